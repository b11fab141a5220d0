package transactionSigner

import (
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

// ITransactionSigner turns structured call data into submittable payloads
type ITransactionSigner interface {
	// Sign signs a contract call bound to sctx.BlockLimit
	Sign(sctx *types.SigningContext) (types.SignedPayload, error)

	// SignDeployment signs a contract creation transaction carrying the bytecode
	SignDeployment(dctx *types.DeploymentContext) (types.SignedPayload, error)
}

const (
	DefaultGasPrice uint64 = 30000000
	DefaultGasLimit uint64 = 30000000
)

type SignerConfig struct {
	ChainID  uint64 `json:"chainID" yaml:"chainID"`
	GasPrice uint64 `json:"gasPrice" yaml:"gasPrice"`
	GasLimit uint64 `json:"gasLimit" yaml:"gasLimit"`
}
