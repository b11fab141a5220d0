package transactionSigner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"go.uber.org/zap"

	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
	"github.com/Layr-Labs/bcos-web3-go/pkg/clients/web3signer"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

// Web3TransactionSigner implements ITransactionSigner by handing the RLP
// encoded group transaction to a Web3Signer service. Keys never leave the
// signer, so signing contexts only need an account.
type Web3TransactionSigner struct {
	params  txParams
	client  web3signer.IWeb3Signer
	timeout time.Duration
	logger  *zap.Logger
}

func NewWeb3TransactionSigner(cfg *SignerConfig, client web3signer.IWeb3Signer, timeout time.Duration, logger *zap.Logger) (*Web3TransactionSigner, error) {
	params, err := newTxParams(cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("web3signer client cannot be nil")
	}
	return &Web3TransactionSigner{
		params:  params,
		client:  client,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (w3s *Web3TransactionSigner) Sign(sctx *types.SigningContext) (types.SignedPayload, error) {
	const op = "sign"
	if sctx == nil {
		return "", clientErrors.NewSigningError(op, fmt.Errorf("signing context cannot be nil"))
	}
	to, data, err := callData(sctx)
	if err != nil {
		return "", clientErrors.NewSigningError(op, err)
	}
	return w3s.signTransaction(op, sctx.Account, sctx.GroupID, sctx.BlockLimit, to, data)
}

func (w3s *Web3TransactionSigner) SignDeployment(dctx *types.DeploymentContext) (types.SignedPayload, error) {
	const op = "signDeployment"
	if dctx == nil {
		return "", clientErrors.NewSigningError(op, fmt.Errorf("deployment context cannot be nil"))
	}
	bytecode, err := decodeBytecode(dctx.Bytecode)
	if err != nil {
		return "", clientErrors.NewSigningError(op, err)
	}
	return w3s.signTransaction(op, dctx.Account, dctx.GroupID, dctx.BlockLimit, nil, bytecode)
}

func (w3s *Web3TransactionSigner) signTransaction(
	op string,
	account string,
	groupID uint64,
	blockLimit uint64,
	to *common.Address,
	data []byte,
) (types.SignedPayload, error) {
	if !common.IsHexAddress(account) {
		return "", clientErrors.NewSigningError(op, fmt.Errorf("invalid account address %q", account))
	}
	from := common.HexToAddress(account)

	tx := w3s.params.newTransaction(groupID, blockLimit, to, data)
	encoded, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return "", clientErrors.NewSigningError(op, fmt.Errorf("failed to rlp encode transaction: %w", err))
	}

	ctx := context.Background()
	if w3s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w3s.timeout)
		defer cancel()
	}
	sigHex, err := w3s.client.SignRaw(ctx, from.Hex(), encoded)
	if err != nil {
		return "", clientErrors.NewSigningError(op, err)
	}
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return "", clientErrors.NewSigningError(op, fmt.Errorf("malformed signature: %w", err))
	}

	signed, err := tx.withSignature(sig)
	if err != nil {
		return "", clientErrors.NewSigningError(op, err)
	}
	sender, err := signed.Sender()
	if err != nil {
		return "", clientErrors.NewSigningError(op, err)
	}
	if sender != from {
		return "", clientErrors.NewSigningError(op, fmt.Errorf("web3signer signed as %s, expected %s", sender.Hex(), from.Hex()))
	}

	payload, err := signed.Encode()
	if err != nil {
		return "", clientErrors.NewSigningError(op, err)
	}
	logSigned(w3s.logger, signed, from)
	return payload, nil
}
