package blockHandler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// IBlockHandler receives each new chain height observed by a ChainPoller.
type IBlockHandler interface {
	HandleBlock(ctx context.Context, height uint64) error
}

// BlockHandler buffers heights on a channel for a single consumer.
type BlockHandler struct {
	BlockChannel chan uint64
	logger       *zap.Logger
}

func NewBlockHandler(logger *zap.Logger) *BlockHandler {
	return &BlockHandler{
		BlockChannel: make(chan uint64, 100),
		logger:       logger,
	}
}

func (h *BlockHandler) ListenToChannel(ctx context.Context, handleFunc func(height uint64)) {
	for {
		select {
		case height := <-h.BlockChannel:
			handleFunc(height)
		case <-ctx.Done():
			h.logger.Sugar().Debug("BlockHandler channel listener exiting due to context done")
			return
		}
	}
}

// HandleBlock never blocks; a full channel drops the height.
func (h *BlockHandler) HandleBlock(ctx context.Context, height uint64) error {
	select {
	case h.BlockChannel <- height:
		h.logger.Sugar().Debugf("Block %d sent to channel", height)
	case <-ctx.Done():
		h.logger.Sugar().Warnf("Context done before sending block %d to channel", height)
	default:
		h.logger.Sugar().Warnf("Block channel is full, dropping block %d", height)
	}
	return nil
}

// HeightFunc returns the current chain height.
type HeightFunc func(ctx context.Context) (uint64, error)

// ChainPoller polls the chain height and broadcasts every increase to its
// handlers. Heights that do not move forward are not re-sent.
type ChainPoller struct {
	fetch    HeightFunc
	interval time.Duration
	handlers []IBlockHandler
	logger   *zap.Logger

	lastHeight uint64
	seen       bool
}

func NewChainPoller(fetch HeightFunc, interval time.Duration, handlers []IBlockHandler, logger *zap.Logger) (*ChainPoller, error) {
	if fetch == nil {
		return nil, fmt.Errorf("height source cannot be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	return &ChainPoller{
		fetch:    fetch,
		interval: interval,
		handlers: handlers,
		logger:   logger,
	}, nil
}

// Poll fetches the height once and broadcasts it if it is new. It reports
// whether a height was broadcast.
func (p *ChainPoller) Poll(ctx context.Context) (bool, error) {
	height, err := p.fetch(ctx)
	if err != nil {
		return false, err
	}
	if p.seen && height <= p.lastHeight {
		return false, nil
	}
	p.seen = true
	p.lastHeight = height

	for i, handler := range p.handlers {
		if err := handler.HandleBlock(ctx, height); err != nil {
			p.logger.Sugar().Warnw("Failed to send block to handler", "height", height, "handler", i, "error", err)
		}
	}
	return true, nil
}

// Run polls until ctx is done. Fetch failures are logged and retried on the
// next tick.
func (p *ChainPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.logger.Sugar().Warnw("Failed to poll block height", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
