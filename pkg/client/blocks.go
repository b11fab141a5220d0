package client

import (
	"context"
	"fmt"
	"time"

	"github.com/Layr-Labs/bcos-web3-go/pkg/blockHandler"
	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
	"github.com/Layr-Labs/bcos-web3-go/pkg/transactionOrchestrator"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

const DefaultPollInterval = time.Second

// BlockHeight returns the current chain height of one node.
func (c *Client) BlockHeight(ctx context.Context) (uint64, error) {
	const op = "getBlockNumber"
	resp, err := c.GetBlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	var result string
	if err := resp.DecodeResult(&result); err != nil {
		return 0, clientErrors.NewTransportError(op, err)
	}
	height, err := transactionOrchestrator.ParseBlockHeight(result)
	if err != nil {
		return 0, clientErrors.NewTransportError(op, err)
	}
	return height, nil
}

// WatchBlocks calls handle with every new chain height until ctx is done.
func (c *Client) WatchBlocks(ctx context.Context, interval time.Duration, handle func(height uint64)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	bh := blockHandler.NewBlockHandler(c.logger)
	poller, err := blockHandler.NewChainPoller(c.BlockHeight, interval, []blockHandler.IBlockHandler{bh}, c.logger)
	if err != nil {
		return err
	}

	go bh.ListenToChannel(ctx, handle)
	return poller.Run(ctx)
}

// WaitForReceipt returns the receipt of txHash, checking once now and again
// each time the chain height moves. A missing receipt is not an error until
// ctx is done.
func (c *Client) WaitForReceipt(ctx context.Context, txHash string, interval time.Duration) (*types.Response, error) {
	q, err := c.Query()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	check := func() (*types.Response, bool, error) {
		resp, err := q.GetTransactionReceipt(ctx, txHash)
		if err != nil {
			return nil, false, err
		}
		if resp.Error != nil {
			return resp, true, nil
		}
		return resp, len(resp.Result) > 0 && string(resp.Result) != "null", nil
	}

	if resp, ok, err := check(); err != nil || ok {
		return resp, err
	}

	bh := blockHandler.NewBlockHandler(c.logger)
	poller, err := blockHandler.NewChainPoller(c.BlockHeight, interval, []blockHandler.IBlockHandler{bh}, c.logger)
	if err != nil {
		return nil, err
	}
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = poller.Run(pollCtx) }()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("receipt of %s not found: %w", txHash, ctx.Err())
		case height := <-bh.BlockChannel:
			resp, ok, err := check()
			if err != nil {
				return nil, err
			}
			if ok {
				c.logger.Sugar().Debugw("Found transaction receipt", "txHash", txHash, "height", height)
				return resp, nil
			}
		}
	}
}
