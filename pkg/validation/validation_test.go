package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
)

func Test_NonEmptyString(t *testing.T) {
	assert.NoError(t, NonEmptyString("op", "func", "set(uint256)"))

	err := NonEmptyString("op", "func", "  ")
	require.Error(t, err)
	assert.True(t, clientErrors.IsValidation(err))
}

func Test_Address(t *testing.T) {
	assert.NoError(t, Address("op", "to", "0x8ba1f109551bD432803012645Ac136ddd64DBA72"))
	assert.NoError(t, Address("op", "to", "8ba1f109551bd432803012645ac136ddd64dba72"))

	for _, bad := range []string{"", "0xabc", "0xzz1f109551bD432803012645Ac136ddd64DBA72", "hello"} {
		err := Address("op", "to", bad)
		require.Error(t, err, bad)
		assert.True(t, clientErrors.IsValidation(err))
	}
}

func Test_NonNegativeInteger(t *testing.T) {
	for _, good := range []string{"0", "10", "0x0", "0x1f", "0XFF"} {
		assert.NoError(t, NonNegativeInteger("op", "blockNumber", good), good)
	}
	for _, bad := range []string{"", "-1", "0x", "abc", "1.5", "+3", "0x-1"} {
		err := NonNegativeInteger("op", "blockNumber", bad)
		require.Error(t, err, bad)
		assert.True(t, clientErrors.IsValidation(err))
	}

	n, ok := ParseNonNegativeInteger("0x64")
	require.True(t, ok)
	assert.Equal(t, int64(100), n.Int64())
}

func Test_All(t *testing.T) {
	assert.NoError(t, All(nil, nil))

	err := All(nil, NonEmptyString("op", "key", ""), Address("op", "to", "bad"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key")
}
