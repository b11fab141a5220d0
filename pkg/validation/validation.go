package validation

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
)

// NonEmptyString fails when value is empty or only whitespace.
func NonEmptyString(op, name, value string) error {
	if strings.TrimSpace(value) == "" {
		return clientErrors.NewValidationError(op, "%s must be a non-empty string", name)
	}
	return nil
}

// Address fails unless value is a 20 byte hex address with optional 0x prefix.
func Address(op, name, value string) error {
	if !common.IsHexAddress(value) {
		return clientErrors.NewValidationError(op, "%s is not a valid address: %q", name, value)
	}
	return nil
}

// NonNegativeInteger accepts a decimal or 0x prefixed hexadecimal integer >= 0.
func NonNegativeInteger(op, name, value string) error {
	if _, ok := ParseNonNegativeInteger(value); !ok {
		return clientErrors.NewValidationError(op, "%s must be a non-negative integer, got %q", name, value)
	}
	return nil
}

// ParseNonNegativeInteger parses a decimal or 0x prefixed hexadecimal integer.
func ParseNonNegativeInteger(value string) (*big.Int, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, false
	}
	base := 10
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		v = v[2:]
		base = 16
	}
	if v == "" || strings.HasPrefix(v, "-") || strings.HasPrefix(v, "+") {
		return nil, false
	}
	n, ok := new(big.Int).SetString(v, base)
	if !ok || n.Sign() < 0 {
		return nil, false
	}
	return n, true
}

// All returns the first failing check.
func All(checks ...error) error {
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}
