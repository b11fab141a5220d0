package util

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseFunctionSignature(t *testing.T) {
	fs, err := ParseFunctionSignature("transfer(address, uint)")
	require.NoError(t, err)
	assert.Equal(t, "transfer", fs.Name)
	assert.Equal(t, []string{"address", "uint256"}, fs.Types)
	assert.Equal(t, "transfer(address,uint256)", fs.Canonical())

	fs, err = ParseFunctionSignature("get()")
	require.NoError(t, err)
	assert.Empty(t, fs.Types)

	fs, err = ParseFunctionSignature("setAll(uint[] values, bytes32 key)")
	require.NoError(t, err)
	assert.Equal(t, "setAll(uint256[],bytes32)", fs.Canonical())

	for _, bad := range []string{"", "set", "(uint256)", "set(uint256", "set((uint256,bool))", "set(uint256,)"} {
		_, err := ParseFunctionSignature(bad)
		assert.Error(t, err, bad)
	}
}

func Test_Selector(t *testing.T) {
	tests := map[string]string{
		"set(uint256)":              "0x60fe47b1",
		"get()":                     "0x6d4ce63c",
		"transfer(address,uint256)": "0xa9059cbb",
	}
	for sig, expected := range tests {
		fs, err := ParseFunctionSignature(sig)
		require.NoError(t, err)
		assert.Equal(t, expected, hexutil.Encode(fs.Selector()), sig)
	}
}

func Test_EncodeFunctionCall(t *testing.T) {
	t.Run("uint256 from int", func(t *testing.T) {
		data, err := EncodeFunctionCallHex("set(uint256)", []interface{}{42})
		require.NoError(t, err)
		assert.Equal(t, "0x60fe47b1000000000000000000000000000000000000000000000000000000000000002a", data)
	})

	t.Run("same encoding from json number, string and big.Int", func(t *testing.T) {
		expected, err := EncodeFunctionCall("set(uint256)", []interface{}{42})
		require.NoError(t, err)

		for _, v := range []interface{}{float64(42), json.Number("42"), "42", "0x2a", big.NewInt(42), uint8(42)} {
			data, err := EncodeFunctionCall("set(uint256)", []interface{}{v})
			require.NoError(t, err, "%T", v)
			assert.Equal(t, expected, data, "%T", v)
		}
	})

	t.Run("mixed arguments round trip", func(t *testing.T) {
		to := "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
		data, err := EncodeFunctionCall("register(address,string,bool,uint8,int64,bytes,bytes4,uint256[])",
			[]interface{}{to, "alice", true, 7, "-5", "0x0102", "0xdeadbeef", []interface{}{1, "2"}})
		require.NoError(t, err)

		args := abi.Arguments{}
		for _, ty := range []string{"address", "string", "bool", "uint8", "int64", "bytes", "bytes4", "uint256[]"} {
			abiType, err := abi.NewType(ty, "", nil)
			require.NoError(t, err)
			args = append(args, abi.Argument{Type: abiType})
		}
		out, err := args.Unpack(data[4:])
		require.NoError(t, err)

		assert.Equal(t, common.HexToAddress(to), out[0])
		assert.Equal(t, "alice", out[1])
		assert.Equal(t, true, out[2])
		assert.Equal(t, uint8(7), out[3])
		assert.Equal(t, int64(-5), out[4])
		assert.Equal(t, []byte{1, 2}, out[5])
		assert.Equal(t, [4]byte{0xde, 0xad, 0xbe, 0xef}, out[6])
		assert.Equal(t, []*big.Int{big.NewInt(1), big.NewInt(2)}, out[7])
	})

	t.Run("argument count mismatch", func(t *testing.T) {
		_, err := EncodeFunctionCall("set(uint256)", []interface{}{})
		assert.Error(t, err)
	})

	t.Run("bad values", func(t *testing.T) {
		cases := []struct {
			sig  string
			args []interface{}
		}{
			{"set(uint8)", []interface{}{256}},
			{"set(uint256)", []interface{}{-1}},
			{"set(int8)", []interface{}{128}},
			{"set(uint256)", []interface{}{1.5}},
			{"set(address)", []interface{}{"0x1234"}},
			{"set(bool)", []interface{}{"yes"}},
			{"set(string)", []interface{}{12}},
			{"set(bytes2)", []interface{}{"0x010203"}},
			{"set(uint256[2])", []interface{}{[]interface{}{1}}},
		}
		for _, c := range cases {
			_, err := EncodeFunctionCall(c.sig, c.args)
			assert.Error(t, err, "%s %v", c.sig, c.args)
		}
	})
}
