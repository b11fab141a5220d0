package transactionSigner

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
	"github.com/Layr-Labs/bcos-web3-go/pkg/util"
)

const testRecipient = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

func newTestAccount(t *testing.T) types.Credentials {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return types.Credentials{
		Account:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	}
}

func newTestSigner(t *testing.T) *PrivateKeyTransactionSigner {
	t.Helper()
	s, err := NewPrivateKeyTransactionSigner(&SignerConfig{ChainID: 1}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func Test_NewPrivateKeyTransactionSigner(t *testing.T) {
	_, err := NewPrivateKeyTransactionSigner(nil, zaptest.NewLogger(t))
	assert.Error(t, err)

	_, err = NewPrivateKeyTransactionSigner(&SignerConfig{}, zaptest.NewLogger(t))
	assert.Error(t, err)

	s := newTestSigner(t)
	assert.Equal(t, new(big.Int).SetUint64(DefaultGasPrice), s.params.gasPrice)
	assert.Equal(t, new(big.Int).SetUint64(DefaultGasLimit), s.params.gasLimit)
}

func Test_Sign(t *testing.T) {
	signer := newTestSigner(t)
	creds := newTestAccount(t)

	sctx := &types.SigningContext{
		GroupID:           1,
		Account:           creds.Account,
		PrivateKey:        creds.PrivateKey,
		Recipient:         testRecipient,
		FunctionSignature: "set(uint256)",
		Arguments:         []interface{}{42},
		BlockLimit:        600,
	}

	payload, err := signer.Sign(sctx)
	require.NoError(t, err)

	stx, err := DecodeSignedTransaction(payload)
	require.NoError(t, err)

	expectedData, err := util.EncodeFunctionCall("set(uint256)", []interface{}{42})
	require.NoError(t, err)

	assert.Equal(t, uint64(600), stx.BlockLimit.Uint64())
	assert.Equal(t, uint64(1), stx.GroupID.Uint64())
	assert.Equal(t, uint64(1), stx.ChainID.Uint64())
	require.NotNil(t, stx.To)
	assert.Equal(t, common.HexToAddress(testRecipient), *stx.To)
	assert.Equal(t, expectedData, stx.Data)
	assert.Equal(t, int64(0), stx.Value.Int64())
	assert.Equal(t, DefaultGasLimit, stx.GasLimit.Uint64())

	sender, err := stx.Sender()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(creds.Account), sender)

	// re-encoding the decoded transaction is byte identical
	reencoded, err := stx.Encode()
	require.NoError(t, err)
	assert.Equal(t, payload, reencoded)

	hash, err := stx.Hash()
	require.NoError(t, err)
	payloadHash, err := PayloadHash(payload)
	require.NoError(t, err)
	assert.Equal(t, hash, payloadHash)
}

func Test_Sign_FreshRandomID(t *testing.T) {
	signer := newTestSigner(t)
	creds := newTestAccount(t)
	sctx := &types.SigningContext{
		GroupID:           1,
		PrivateKey:        creds.PrivateKey,
		Recipient:         testRecipient,
		FunctionSignature: "get()",
		Arguments:         []interface{}{},
		BlockLimit:        10,
	}

	p1, err := signer.Sign(sctx)
	require.NoError(t, err)
	p2, err := signer.Sign(sctx)
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)
}

func Test_Sign_Errors(t *testing.T) {
	signer := newTestSigner(t)
	creds := newTestAccount(t)
	other := newTestAccount(t)

	base := func() *types.SigningContext {
		return &types.SigningContext{
			GroupID:           1,
			Account:           creds.Account,
			PrivateKey:        creds.PrivateKey,
			Recipient:         testRecipient,
			FunctionSignature: "set(uint256)",
			Arguments:         []interface{}{1},
			BlockLimit:        500,
		}
	}

	cases := map[string]func(*types.SigningContext){
		"bad recipient":     func(s *types.SigningContext) { s.Recipient = "0x12" },
		"bad signature":     func(s *types.SigningContext) { s.FunctionSignature = "set" },
		"argument mismatch": func(s *types.SigningContext) { s.Arguments = []interface{}{} },
		"empty private key": func(s *types.SigningContext) { s.PrivateKey = "" },
		"garbage key":       func(s *types.SigningContext) { s.PrivateKey = "0xnothex" },
		"account mismatch":  func(s *types.SigningContext) { s.Account = other.Account },
		"malformed account": func(s *types.SigningContext) { s.Account = "alice" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			sctx := base()
			mutate(sctx)
			_, err := signer.Sign(sctx)
			require.Error(t, err)
			assert.True(t, clientErrors.IsSigning(err), err.Error())
		})
	}

	_, err := signer.Sign(nil)
	assert.True(t, clientErrors.IsSigning(err))
}

func Test_SignDeployment(t *testing.T) {
	signer := newTestSigner(t)
	creds := newTestAccount(t)

	payload, err := signer.SignDeployment(&types.DeploymentContext{
		GroupID:    2,
		Account:    creds.Account,
		PrivateKey: creds.PrivateKey,
		Bytecode:   "6080604052\n",
		BlockLimit: 1500,
	})
	require.NoError(t, err)

	stx, err := DecodeSignedTransaction(payload)
	require.NoError(t, err)
	assert.Nil(t, stx.To)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, stx.Data)
	assert.Equal(t, uint64(1500), stx.BlockLimit.Uint64())
	assert.Equal(t, uint64(2), stx.GroupID.Uint64())

	sender, err := stx.Sender()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(creds.Account), sender)

	for _, bad := range []string{"", "  ", "0xzz", "abc"} {
		_, err := signer.SignDeployment(&types.DeploymentContext{PrivateKey: creds.PrivateKey, Bytecode: bad})
		require.Error(t, err, bad)
		assert.True(t, clientErrors.IsSigning(err))
	}
}

func Test_DecodeSignedTransaction_Errors(t *testing.T) {
	_, err := DecodeSignedTransaction("not hex")
	assert.Error(t, err)

	_, err = DecodeSignedTransaction("0x01")
	assert.Error(t, err)
}

func Test_AddressFromPrivateKey(t *testing.T) {
	creds := newTestAccount(t)
	addr, err := AddressFromPrivateKey(creds.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, creds.Account, addr.Hex())

	_, err = AddressFromPrivateKey("")
	assert.Error(t, err)
}
