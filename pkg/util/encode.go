package util

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Layr-Labs/bcos-web3-go/pkg/validation"
)

// FunctionSignature is a parsed "name(type1,type2)" signature.
type FunctionSignature struct {
	Name  string
	Types []string
}

// Canonical returns the signature in the form hashed for the selector.
func (fs *FunctionSignature) Canonical() string {
	return fmt.Sprintf("%s(%s)", fs.Name, strings.Join(fs.Types, ","))
}

// Selector returns the first four bytes of keccak256 of the canonical signature.
func (fs *FunctionSignature) Selector() []byte {
	return crypto.Keccak256([]byte(fs.Canonical()))[:4]
}

// ParseFunctionSignature parses signatures such as "set(uint256)" or
// "transfer(address, uint)". Tuple arguments are not supported.
func ParseFunctionSignature(signature string) (*FunctionSignature, error) {
	sig := strings.TrimSpace(signature)
	open := strings.Index(sig, "(")
	if open <= 0 || !strings.HasSuffix(sig, ")") {
		return nil, fmt.Errorf("invalid function signature %q", signature)
	}

	name := strings.TrimSpace(sig[:open])
	if name == "" {
		return nil, fmt.Errorf("invalid function signature %q: empty name", signature)
	}
	inner := sig[open+1 : len(sig)-1]
	if strings.ContainsAny(inner, "()") {
		return nil, fmt.Errorf("tuple arguments are not supported: %q", signature)
	}

	fs := &FunctionSignature{Name: name, Types: []string{}}
	if strings.TrimSpace(inner) == "" {
		return fs, nil
	}
	for _, t := range strings.Split(inner, ",") {
		t = strings.TrimSpace(t)
		// "uint256 amount" style parameter names are dropped
		if fields := strings.Fields(t); len(fields) > 1 {
			t = fields[0]
		}
		if t == "" {
			return nil, fmt.Errorf("empty argument type in %q", signature)
		}
		fs.Types = append(fs.Types, canonicalType(t))
	}
	return fs, nil
}

func canonicalType(t string) string {
	base, suffix := t, ""
	if i := strings.Index(t, "["); i >= 0 {
		base, suffix = t[:i], t[i:]
	}
	switch base {
	case "uint":
		base = "uint256"
	case "int":
		base = "int256"
	case "byte":
		base = "bytes1"
	}
	return base + suffix
}

// EncodeFunctionCall returns selector || abi.encode(args) for the function.
func EncodeFunctionCall(signature string, args []interface{}) ([]byte, error) {
	fs, err := ParseFunctionSignature(signature)
	if err != nil {
		return nil, err
	}
	if len(args) != len(fs.Types) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", fs.Canonical(), len(fs.Types), len(args))
	}

	arguments := make(abi.Arguments, 0, len(fs.Types))
	values := make([]interface{}, 0, len(args))
	for i, t := range fs.Types {
		abiType, err := abi.NewType(t, "", nil)
		if err != nil {
			return nil, fmt.Errorf("unsupported argument type %s: %w", t, err)
		}
		v, err := convertArgument(abiType, args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, t, err)
		}
		arguments = append(arguments, abi.Argument{Type: abiType})
		values = append(values, v)
	}

	packed, err := arguments.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack arguments for %s: %w", fs.Canonical(), err)
	}
	return append(fs.Selector(), packed...), nil
}

// EncodeFunctionCallHex is EncodeFunctionCall with 0x hex output.
func EncodeFunctionCallHex(signature string, args []interface{}) (string, error) {
	data, err := EncodeFunctionCall(signature, args)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(data), nil
}

// convertArgument turns loosely typed input (JSON numbers, hex strings, ...)
// into the Go value abi packing expects for t.
func convertArgument(t abi.Type, v interface{}) (interface{}, error) {
	switch t.T {
	case abi.IntTy, abi.UintTy:
		return convertInteger(t, v)
	case abi.BoolTy:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			switch strings.ToLower(b) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
		return nil, fmt.Errorf("cannot use %v as bool", v)
	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("cannot use %v as string", v)
		}
		return s, nil
	case abi.AddressTy:
		switch a := v.(type) {
		case common.Address:
			return a, nil
		case string:
			if !common.IsHexAddress(a) {
				return nil, fmt.Errorf("invalid address %q", a)
			}
			return common.HexToAddress(a), nil
		}
		return nil, fmt.Errorf("cannot use %v as address", v)
	case abi.BytesTy:
		return toBytes(v)
	case abi.FixedBytesTy:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("value is %d bytes, bytes%d holds at most %d", len(b), t.Size, t.Size)
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	case abi.SliceTy, abi.ArrayTy:
		rv := reflect.ValueOf(v)
		if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return nil, fmt.Errorf("cannot use %v as %s", v, t.String())
		}
		if t.T == abi.ArrayTy && rv.Len() != t.Size {
			return nil, fmt.Errorf("%s needs %d elements, got %d", t.String(), t.Size, rv.Len())
		}
		var out reflect.Value
		if t.T == abi.SliceTy {
			out = reflect.MakeSlice(t.GetType(), rv.Len(), rv.Len())
		} else {
			out = reflect.New(t.GetType()).Elem()
		}
		for i := 0; i < rv.Len(); i++ {
			elem, err := convertArgument(*t.Elem, rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(reflect.ValueOf(elem))
		}
		return out.Interface(), nil
	default:
		return nil, fmt.Errorf("unsupported argument type %s", t.String())
	}
}

func convertInteger(t abi.Type, v interface{}) (interface{}, error) {
	n, err := toBigInt(v)
	if err != nil {
		return nil, err
	}

	if t.T == abi.UintTy {
		if n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s for %s", n, t.String())
		}
		if n.BitLen() > t.Size {
			return nil, fmt.Errorf("value %s overflows %s", n, t.String())
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		minValue := new(big.Int).Neg(limit)
		if n.Cmp(minValue) < 0 || n.Cmp(limit) >= 0 {
			return nil, fmt.Errorf("value %s overflows %s", n, t.String())
		}
	}

	goType := t.GetType()
	if goType == reflect.TypeOf(&big.Int{}) {
		return n, nil
	}
	if t.T == abi.UintTy {
		return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
	}
	return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
}

func toBigInt(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(n), nil
	case big.Int:
		return new(big.Int).Set(&n), nil
	case json.Number:
		return toBigInt(string(n))
	case string:
		s := strings.TrimSpace(n)
		neg := strings.HasPrefix(s, "-")
		if neg {
			s = s[1:]
		}
		parsed, ok := validation.ParseNonNegativeInteger(s)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", n)
		}
		if neg {
			parsed.Neg(parsed)
		}
		return parsed, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("non-integral number %v", n)
		}
		f, _ := big.NewFloat(n).Int(nil)
		return f, nil
	case float32:
		return toBigInt(float64(n))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("cannot use %v (%T) as integer", v, v)
}

func toBytes(v interface{}) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		s := b
		if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
			s = "0x" + s
		}
		decoded, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("invalid hex bytes %q: %w", b, err)
		}
		return decoded, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		out := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(out), rv)
		return out, nil
	}
	return nil, fmt.Errorf("cannot use %v as bytes", v)
}
