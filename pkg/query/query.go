package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
	"github.com/Layr-Labs/bcos-web3-go/pkg/config"
	"github.com/Layr-Labs/bcos-web3-go/pkg/peering"
	"github.com/Layr-Labs/bcos-web3-go/pkg/transport"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
	"github.com/Layr-Labs/bcos-web3-go/pkg/util"
	"github.com/Layr-Labs/bcos-web3-go/pkg/validation"
)

// Method names of the node's read API
const (
	MethodGetBlockNumber                      = "getBlockNumber"
	MethodGetPbftView                         = "getPbftView"
	MethodGetObserverList                     = "getObserverList"
	MethodGetSealerList                       = "getSealerList"
	MethodGetConsensusStatus                  = "getConsensusStatus"
	MethodGetSyncStatus                       = "getSyncStatus"
	MethodGetClientVersion                    = "getClientVersion"
	MethodGetPeers                            = "getPeers"
	MethodGetNodeIDList                       = "getNodeIDList"
	MethodGetGroupPeers                       = "getGroupPeers"
	MethodGetGroupList                        = "getGroupList"
	MethodGetBlockByHash                      = "getBlockByHash"
	MethodGetBlockByNumber                    = "getBlockByNumber"
	MethodGetBlockHashByNumber                = "getBlockHashByNumber"
	MethodGetTransactionByHash                = "getTransactionByHash"
	MethodGetTransactionByBlockHashAndIndex   = "getTransactionByBlockHashAndIndex"
	MethodGetTransactionByBlockNumberAndIndex = "getTransactionByBlockNumberAndIndex"
	MethodGetPendingTransactions              = "getPendingTransactions"
	MethodGetPendingTxSize                    = "getPendingTxSize"
	MethodGetTotalTransactionCount            = "getTotalTransactionCount"
	MethodGetTransactionReceipt               = "getTransactionReceipt"
	MethodGetCode                             = "getCode"
	MethodGetSystemConfigByKey                = "getSystemConfigByKey"
	MethodCall                                = "call"
)

// Dispatcher builds read-only envelopes and forwards them to one node of the pool.
// Arguments are validated before any node is selected.
type Dispatcher struct {
	config    *config.ClientConfig
	pool      peering.INodePool
	transport transport.IChannelTransport
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher bound to a snapshot of cfg.
func NewDispatcher(
	cfg *config.ClientConfig,
	pool peering.INodePool,
	tr transport.IChannelTransport,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pool == nil {
		return nil, fmt.Errorf("node pool cannot be nil")
	}
	if tr == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	return &Dispatcher{
		config:    cfg.Clone(),
		pool:      pool,
		transport: tr,
		logger:    logger,
	}, nil
}

func (d *Dispatcher) send(ctx context.Context, method string, args ...interface{}) (*types.Response, error) {
	envelope := types.NewRequestEnvelope(method, d.config.GroupID, args...)
	node := d.pool.Select()
	return d.transport.Dispatch(ctx, node, &d.config.Authentication, envelope, d.config.Timeout, types.ModeReadOnly)
}

func (d *Dispatcher) GetBlockNumber(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetBlockNumber)
}

func (d *Dispatcher) GetPbftView(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetPbftView)
}

func (d *Dispatcher) GetObserverList(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetObserverList)
}

func (d *Dispatcher) GetSealerList(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetSealerList)
}

func (d *Dispatcher) GetConsensusStatus(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetConsensusStatus)
}

func (d *Dispatcher) GetSyncStatus(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetSyncStatus)
}

func (d *Dispatcher) GetClientVersion(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetClientVersion)
}

func (d *Dispatcher) GetPeers(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetPeers)
}

func (d *Dispatcher) GetNodeIDList(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetNodeIDList)
}

func (d *Dispatcher) GetGroupPeers(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetGroupPeers)
}

func (d *Dispatcher) GetGroupList(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetGroupList)
}

func (d *Dispatcher) GetBlockByHash(ctx context.Context, blockHash string, includeTransactions bool) (*types.Response, error) {
	if err := validation.NonEmptyString(MethodGetBlockByHash, "blockHash", blockHash); err != nil {
		return nil, err
	}
	return d.send(ctx, MethodGetBlockByHash, blockHash, includeTransactions)
}

// GetBlockByNumber takes the block number as a decimal or 0x hex string.
func (d *Dispatcher) GetBlockByNumber(ctx context.Context, blockNumber string, includeTransactions bool) (*types.Response, error) {
	if err := validation.NonNegativeInteger(MethodGetBlockByNumber, "blockNumber", blockNumber); err != nil {
		return nil, err
	}
	return d.send(ctx, MethodGetBlockByNumber, blockNumber, includeTransactions)
}

func (d *Dispatcher) GetBlockHashByNumber(ctx context.Context, blockNumber string) (*types.Response, error) {
	if err := validation.NonNegativeInteger(MethodGetBlockHashByNumber, "blockNumber", blockNumber); err != nil {
		return nil, err
	}
	return d.send(ctx, MethodGetBlockHashByNumber, blockNumber)
}

func (d *Dispatcher) GetTransactionByHash(ctx context.Context, txHash string) (*types.Response, error) {
	if err := validation.NonEmptyString(MethodGetTransactionByHash, "transactionHash", txHash); err != nil {
		return nil, err
	}
	return d.send(ctx, MethodGetTransactionByHash, txHash)
}

func (d *Dispatcher) GetTransactionByBlockHashAndIndex(ctx context.Context, blockHash string, index string) (*types.Response, error) {
	const op = MethodGetTransactionByBlockHashAndIndex
	if err := validation.All(
		validation.NonEmptyString(op, "blockHash", blockHash),
		validation.NonNegativeInteger(op, "transactionIndex", index),
	); err != nil {
		return nil, err
	}
	return d.send(ctx, op, blockHash, index)
}

func (d *Dispatcher) GetTransactionByBlockNumberAndIndex(ctx context.Context, blockNumber string, index string) (*types.Response, error) {
	const op = MethodGetTransactionByBlockNumberAndIndex
	if err := validation.All(
		validation.NonNegativeInteger(op, "blockNumber", blockNumber),
		validation.NonNegativeInteger(op, "transactionIndex", index),
	); err != nil {
		return nil, err
	}
	return d.send(ctx, op, blockNumber, index)
}

func (d *Dispatcher) GetPendingTransactions(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetPendingTransactions)
}

func (d *Dispatcher) GetPendingTxSize(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetPendingTxSize)
}

func (d *Dispatcher) GetTotalTransactionCount(ctx context.Context) (*types.Response, error) {
	return d.send(ctx, MethodGetTotalTransactionCount)
}

func (d *Dispatcher) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Response, error) {
	if err := validation.NonEmptyString(MethodGetTransactionReceipt, "transactionHash", txHash); err != nil {
		return nil, err
	}
	return d.send(ctx, MethodGetTransactionReceipt, txHash)
}

func (d *Dispatcher) GetCode(ctx context.Context, address string) (*types.Response, error) {
	if err := validation.Address(MethodGetCode, "address", address); err != nil {
		return nil, err
	}
	return d.send(ctx, MethodGetCode, address)
}

func (d *Dispatcher) GetSystemConfigByKey(ctx context.Context, key string) (*types.Response, error) {
	if err := validation.NonEmptyString(MethodGetSystemConfigByKey, "key", key); err != nil {
		return nil, err
	}
	return d.send(ctx, MethodGetSystemConfigByKey, key)
}

// CallRequest is the second param of a call envelope.
type CallRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
	Data  string `json:"data"`
}

// Call executes a constant contract call from the default account. params goes
// through the same normalization as transaction arguments.
func (d *Dispatcher) Call(ctx context.Context, to string, function string, params interface{}) (*types.Response, error) {
	if err := validation.All(
		validation.Address(MethodCall, "to", to),
		validation.NonEmptyString(MethodCall, "function", function),
	); err != nil {
		return nil, err
	}

	data, err := util.EncodeFunctionCallHex(function, types.NormalizeArgs(params))
	if err != nil {
		return nil, clientErrors.NewValidationError(MethodCall, "failed to encode call to %s: %v", function, err)
	}

	req := CallRequest{
		From:  d.config.Account,
		To:    to,
		Value: "0x0",
		Data:  data,
	}
	return d.send(ctx, MethodCall, req)
}
