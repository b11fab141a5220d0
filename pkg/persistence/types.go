package persistence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubmissionKind is the submission path a record came from.
type SubmissionKind string

const (
	SubmissionKind_Raw    SubmissionKind = "raw"
	SubmissionKind_Call   SubmissionKind = "call"
	SubmissionKind_Deploy SubmissionKind = "deploy"
)

// SubmissionRecord describes one dispatched sendRawTransaction.
type SubmissionRecord struct {
	// ID is a random UUID assigned when the record is created
	ID string `json:"id"`

	// TxHash is keccak256 of the dispatched payload
	TxHash string `json:"txHash"`

	Kind SubmissionKind `json:"kind"`

	// From is the signing account. Empty for raw payloads.
	From string `json:"from,omitempty"`

	// To and Function describe unsigned calls
	To       string `json:"to,omitempty"`
	Function string `json:"function,omitempty"`

	// BlockLimit is the validity bound the payload was signed with. Zero for raw payloads.
	BlockLimit uint64 `json:"blockLimit,omitempty"`

	// Node is the endpoint the payload was sent to
	Node string `json:"node"`

	SubmittedAt time.Time `json:"submittedAt"`

	// RPCError holds the node's error message when the node rejected the payload
	RPCError string `json:"rpcError,omitempty"`
}

// NewSubmissionRecord creates a record with a fresh ID and the current time.
func NewSubmissionRecord(kind SubmissionKind, txHash string, node string) *SubmissionRecord {
	return &SubmissionRecord{
		ID:          uuid.New().String(),
		TxHash:      txHash,
		Kind:        kind,
		Node:        node,
		SubmittedAt: time.Now().UTC(),
	}
}

// Validate checks the fields every backend relies on.
func (r *SubmissionRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("submission record cannot be nil")
	}
	if r.ID == "" {
		return fmt.Errorf("submission record ID cannot be empty")
	}
	switch r.Kind {
	case SubmissionKind_Raw, SubmissionKind_Call, SubmissionKind_Deploy:
	default:
		return fmt.Errorf("unknown submission kind %q", r.Kind)
	}
	return nil
}

// Copy returns a copy safe from external mutation.
func (r *SubmissionRecord) Copy() *SubmissionRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
