package transactionSigner

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Layr-Labs/bcos-web3-go/internal/tests"
	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
	"github.com/Layr-Labs/bcos-web3-go/pkg/clients/web3signer"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

// stubWeb3Signer returns a canned signature for every request.
type stubWeb3Signer struct {
	signature string
	err       error
}

func (s *stubWeb3Signer) SetHttpClient(*http.Client) {}

func (s *stubWeb3Signer) EthAccounts(context.Context) ([]string, error) { return nil, nil }

func (s *stubWeb3Signer) SignRaw(context.Context, string, []byte) (string, error) {
	return s.signature, s.err
}

func newTestWeb3Signer(t *testing.T, accounts ...types.Credentials) (*Web3TransactionSigner, *tests.FakeWeb3Signer) {
	t.Helper()
	fake := tests.NewFakeWeb3Signer(t, accounts...)
	client, err := web3signer.NewClient(&web3signer.Config{BaseURL: fake.URL()}, zaptest.NewLogger(t))
	require.NoError(t, err)
	s, err := NewWeb3TransactionSigner(&SignerConfig{ChainID: 1}, client, time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s, fake
}

func Test_NewWeb3TransactionSigner(t *testing.T) {
	_, err := NewWeb3TransactionSigner(&SignerConfig{ChainID: 1}, nil, time.Second, zaptest.NewLogger(t))
	assert.Error(t, err)

	_, err = NewWeb3TransactionSigner(&SignerConfig{}, &stubWeb3Signer{}, time.Second, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func Test_Web3Signer_Sign(t *testing.T) {
	creds := newTestAccount(t)
	signer, fake := newTestWeb3Signer(t, creds)

	payload, err := signer.Sign(&types.SigningContext{
		GroupID:           3,
		Account:           creds.Account,
		Recipient:         testRecipient,
		FunctionSignature: "set(uint256)",
		Arguments:         []interface{}{7},
		BlockLimit:        510,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Signs())

	stx, err := DecodeSignedTransaction(payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(510), stx.BlockLimit.Uint64())
	assert.Equal(t, uint64(3), stx.GroupID.Uint64())
	sender, err := stx.Sender()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(creds.Account), sender)
}

func Test_Web3Signer_SignDeployment(t *testing.T) {
	creds := newTestAccount(t)
	signer, _ := newTestWeb3Signer(t, creds)

	payload, err := signer.SignDeployment(&types.DeploymentContext{
		GroupID:    1,
		Account:    creds.Account,
		Bytecode:   "6080604052",
		BlockLimit: 501,
	})
	require.NoError(t, err)

	stx, err := DecodeSignedTransaction(payload)
	require.NoError(t, err)
	assert.Nil(t, stx.To)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, stx.Data)
}

func Test_Web3Signer_Failures(t *testing.T) {
	creds := newTestAccount(t)
	signer, fake := newTestWeb3Signer(t, creds)
	other := newTestAccount(t)

	sctx := func(account string) *types.SigningContext {
		return &types.SigningContext{
			GroupID:           1,
			Account:           account,
			Recipient:         testRecipient,
			FunctionSignature: "set(uint256)",
			Arguments:         []interface{}{1},
			BlockLimit:        500,
		}
	}

	t.Run("unknown account", func(t *testing.T) {
		_, err := signer.Sign(sctx(other.Account))
		assert.True(t, clientErrors.IsSigning(err))
	})

	t.Run("invalid account", func(t *testing.T) {
		_, err := signer.Sign(sctx("nope"))
		assert.True(t, clientErrors.IsSigning(err))
	})

	t.Run("invalid recipient", func(t *testing.T) {
		bad := sctx(creds.Account)
		bad.Recipient = "0x12"
		_, err := signer.Sign(bad)
		assert.True(t, clientErrors.IsSigning(err))
	})

	t.Run("nil contexts", func(t *testing.T) {
		_, err := signer.Sign(nil)
		assert.True(t, clientErrors.IsSigning(err))
		_, err = signer.SignDeployment(nil)
		assert.True(t, clientErrors.IsSigning(err))
	})

	assert.Equal(t, 0, fake.Signs())
}

func Test_Web3Signer_BadSignatures(t *testing.T) {
	creds := newTestAccount(t)
	// an all zero signature recovers no address
	wrong := hexutil.Encode(append(make([]byte, 64), 27))

	cases := map[string]*stubWeb3Signer{
		"service error":   {err: fmt.Errorf("boom")},
		"not hex":         {signature: "0xzz"},
		"short":           {signature: "0x1234"},
		"bad recovery id": {signature: hexutil.Encode(append(make([]byte, 64), 5))},
		"wrong signer":    {signature: wrong},
	}
	for name, stub := range cases {
		t.Run(name, func(t *testing.T) {
			signer, err := NewWeb3TransactionSigner(&SignerConfig{ChainID: 1}, stub, 0, zaptest.NewLogger(t))
			require.NoError(t, err)
			_, err = signer.SignDeployment(&types.DeploymentContext{
				GroupID:    1,
				Account:    creds.Account,
				Bytecode:   "6080",
				BlockLimit: 500,
			})
			assert.True(t, clientErrors.IsSigning(err), err)
		})
	}
}
