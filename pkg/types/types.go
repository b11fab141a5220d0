package types

import (
	"reflect"
)

// Mode tells the transport whether a request may mutate chain state.
type Mode int

const (
	// ModeWrite is the zero value: the request may change chain state.
	ModeWrite Mode = iota
	// ModeReadOnly permits read-optimized handling in the transport.
	ModeReadOnly
)

func (m Mode) String() string {
	if m == ModeReadOnly {
		return "read-only"
	}
	return "write"
}

// Authentication holds the PEM file paths used to authenticate the channel to a node.
type Authentication struct {
	CACert string `json:"caCert" yaml:"caCert"`
	Cert   string `json:"cert" yaml:"cert"`
	Key    string `json:"key" yaml:"key"`
}

// IsZero reports whether no channel credentials are configured.
func (a *Authentication) IsZero() bool {
	return a == nil || (a.CACert == "" && a.Cert == "" && a.Key == "")
}

// Credentials is the account used to sign transactions.
type Credentials struct {
	Account    string `json:"account" yaml:"account"`
	PrivateKey string `json:"privateKey" yaml:"privateKey"`
}

// SignedPayload is a hex encoded, signed transaction ready for sendRawTransaction.
type SignedPayload string

func (p SignedPayload) String() string {
	return string(p)
}

// SigningContext is everything the signer needs for one contract call.
// BlockLimit is always the freshly fetched height plus the validity window.
type SigningContext struct {
	GroupID           uint64
	Account           string
	PrivateKey        string
	Recipient         string
	FunctionSignature string
	Arguments         []interface{}
	BlockLimit        uint64
}

// DeploymentContext is the signer input for a contract creation transaction.
type DeploymentContext struct {
	GroupID    uint64
	Account    string
	PrivateKey string
	Bytecode   string
	BlockLimit uint64
}

// SubmissionRequest is either a RawPayload or an UnsignedCall.
type SubmissionRequest interface {
	isSubmissionRequest()
}

// RawPayload submits an already signed transaction as is.
type RawPayload struct {
	Payload SignedPayload
}

// UnsignedCall is signed against a fresh validity window before submission.
type UnsignedCall struct {
	To       string
	Function string
	Args     []interface{}
}

func (RawPayload) isSubmissionRequest()   {}
func (UnsignedCall) isSubmissionRequest() {}

func NewRawPayload(payload SignedPayload) RawPayload {
	return RawPayload{Payload: payload}
}

// NewUnsignedCall builds a call request, normalizing params with NormalizeArgs.
func NewUnsignedCall(to, function string, params interface{}) UnsignedCall {
	return UnsignedCall{
		To:       to,
		Function: function,
		Args:     NormalizeArgs(params),
	}
}

// NormalizeArgs turns params into an argument list: nil becomes empty, a slice
// or array becomes its elements, and any other value (including []byte) becomes
// a single element list.
func NormalizeArgs(params interface{}) []interface{} {
	if params == nil {
		return []interface{}{}
	}
	if args, ok := params.([]interface{}); ok {
		if args == nil {
			return []interface{}{}
		}
		return args
	}
	if _, ok := params.([]byte); ok {
		return []interface{}{params}
	}

	v := reflect.ValueOf(params)
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return []interface{}{}
		}
		fallthrough
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 && v.Kind() == reflect.Array {
			// fixed size byte arrays (bytes32 and friends) are single values
			return []interface{}{params}
		}
		args := make([]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			args[i] = v.Index(i).Interface()
		}
		return args
	default:
		return []interface{}{params}
	}
}
