package transactionSigner

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
	"github.com/Layr-Labs/bcos-web3-go/pkg/util"
)

// PrivateKeyTransactionSigner signs group transactions locally with the
// private key carried by each signing context.
type PrivateKeyTransactionSigner struct {
	params txParams
	logger *zap.Logger
}

func NewPrivateKeyTransactionSigner(cfg *SignerConfig, logger *zap.Logger) (*PrivateKeyTransactionSigner, error) {
	params, err := newTxParams(cfg)
	if err != nil {
		return nil, err
	}
	return &PrivateKeyTransactionSigner{params: params, logger: logger}, nil
}

func uuidRandomID() *big.Int {
	id := uuid.New()
	return new(big.Int).SetBytes(id[:])
}

// Sign signs a contract call. Malformed recipients, arguments or keys fail with
// a signing error.
func (s *PrivateKeyTransactionSigner) Sign(sctx *types.SigningContext) (types.SignedPayload, error) {
	const op = "sign"
	if sctx == nil {
		return "", clientErrors.NewSigningError(op, fmt.Errorf("signing context cannot be nil"))
	}
	to, data, err := callData(sctx)
	if err != nil {
		return "", clientErrors.NewSigningError(op, err)
	}
	return s.signTransaction(op, sctx.Account, sctx.PrivateKey, sctx.GroupID, sctx.BlockLimit, to, data)
}

// SignDeployment signs a contract creation: no recipient, bytecode as data.
func (s *PrivateKeyTransactionSigner) SignDeployment(dctx *types.DeploymentContext) (types.SignedPayload, error) {
	const op = "signDeployment"
	if dctx == nil {
		return "", clientErrors.NewSigningError(op, fmt.Errorf("deployment context cannot be nil"))
	}

	bytecode, err := decodeBytecode(dctx.Bytecode)
	if err != nil {
		return "", clientErrors.NewSigningError(op, err)
	}
	return s.signTransaction(op, dctx.Account, dctx.PrivateKey, dctx.GroupID, dctx.BlockLimit, nil, bytecode)
}

func (s *PrivateKeyTransactionSigner) signTransaction(
	op string,
	account string,
	privateKey string,
	groupID uint64,
	blockLimit uint64,
	to *common.Address,
	data []byte,
) (types.SignedPayload, error) {
	key, err := parsePrivateKey(privateKey)
	if err != nil {
		return "", clientErrors.NewSigningError(op, err)
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	if account != "" {
		if !common.IsHexAddress(account) {
			return "", clientErrors.NewSigningError(op, fmt.Errorf("invalid account address %q", account))
		}
		if common.HexToAddress(account) != from {
			return "", clientErrors.NewSigningError(op, fmt.Errorf("private key does not belong to account %s", account))
		}
	}

	tx := s.params.newTransaction(groupID, blockLimit, to, data)
	signed, err := tx.sign(key)
	if err != nil {
		return "", clientErrors.NewSigningError(op, err)
	}
	payload, err := signed.Encode()
	if err != nil {
		return "", clientErrors.NewSigningError(op, err)
	}
	logSigned(s.logger, signed, from)
	return payload, nil
}

// txParams holds the chain wide fields shared by every transaction a signer builds.
type txParams struct {
	chainID  *big.Int
	gasPrice *big.Int
	gasLimit *big.Int

	// newRandomID returns the replay protection nonce of a transaction
	newRandomID func() *big.Int
}

func newTxParams(cfg *SignerConfig) (txParams, error) {
	if cfg == nil {
		return txParams{}, fmt.Errorf("signer config cannot be nil")
	}
	if cfg.ChainID == 0 {
		return txParams{}, fmt.Errorf("chain ID cannot be zero")
	}
	gasPrice := cfg.GasPrice
	if gasPrice == 0 {
		gasPrice = DefaultGasPrice
	}
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}
	return txParams{
		chainID:     new(big.Int).SetUint64(cfg.ChainID),
		gasPrice:    new(big.Int).SetUint64(gasPrice),
		gasLimit:    new(big.Int).SetUint64(gasLimit),
		newRandomID: uuidRandomID,
	}, nil
}

func (p txParams) newTransaction(groupID, blockLimit uint64, to *common.Address, data []byte) *GroupTransaction {
	return &GroupTransaction{
		RandomID:   p.newRandomID(),
		GasPrice:   new(big.Int).Set(p.gasPrice),
		GasLimit:   new(big.Int).Set(p.gasLimit),
		BlockLimit: new(big.Int).SetUint64(blockLimit),
		To:         to,
		Value:      big.NewInt(0),
		Data:       data,
		ChainID:    new(big.Int).Set(p.chainID),
		GroupID:    new(big.Int).SetUint64(groupID),
		ExtraData:  []byte{},
	}
}

func logSigned(logger *zap.Logger, signed *SignedGroupTransaction, from common.Address) {
	hash, err := signed.Hash()
	if err != nil {
		return
	}
	logger.Sugar().Debugw("Signed transaction",
		zap.String("from", from.Hex()),
		zap.Bool("deployment", signed.To == nil),
		zap.Uint64("groupID", signed.GroupID.Uint64()),
		zap.Uint64("blockLimit", signed.BlockLimit.Uint64()),
		zap.String("txHash", hash.Hex()),
	)
}

// callData validates the recipient and ABI encodes the call of sctx.
func callData(sctx *types.SigningContext) (*common.Address, []byte, error) {
	if !common.IsHexAddress(sctx.Recipient) {
		return nil, nil, fmt.Errorf("invalid recipient address %q", sctx.Recipient)
	}
	data, err := util.EncodeFunctionCall(sctx.FunctionSignature, sctx.Arguments)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to encode call to %s", sctx.FunctionSignature)
	}
	to := common.HexToAddress(sctx.Recipient)
	return &to, data, nil
}

func parsePrivateKey(privateKey string) (*ecdsa.PrivateKey, error) {
	if privateKey == "" {
		return nil, fmt.Errorf("private key cannot be empty")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

func decodeBytecode(bytecode string) ([]byte, error) {
	code := strings.Join(strings.Fields(bytecode), "")
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	if code == "0x" {
		return nil, fmt.Errorf("bytecode cannot be empty")
	}
	data, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode: %w", err)
	}
	return data, nil
}

// AddressFromPrivateKey derives the account address of a hex private key.
func AddressFromPrivateKey(privateKey string) (common.Address, error) {
	key, err := parsePrivateKey(privateKey)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}
