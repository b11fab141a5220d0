package transactionOrchestrator

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
)

// nextBlockLimit fetches the current height and adds BlockLimitWindow. A
// failed or unparsable height is an error, never a height of zero.
func (o *TransactionOrchestrator) nextBlockLimit(ctx context.Context) (uint64, error) {
	const op = "getBlockNumber"

	resp, err := o.heights.GetBlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch block height: %w", err)
	}
	if resp == nil {
		return 0, clientErrors.NewTransportError(op, fmt.Errorf("empty response"))
	}
	if resp.Error != nil {
		return 0, clientErrors.NewTransportError(op, resp.Error)
	}

	var result string
	if err := resp.DecodeResult(&result); err != nil {
		return 0, clientErrors.NewTransportError(op, fmt.Errorf("malformed block number result: %w", err))
	}
	height, err := ParseBlockHeight(result)
	if err != nil {
		return 0, clientErrors.NewTransportError(op, err)
	}
	if height > math.MaxUint64-BlockLimitWindow {
		return 0, clientErrors.NewTransportError(op, fmt.Errorf("block height %d out of range", height))
	}

	blockLimit := height + BlockLimitWindow
	o.logger.Sugar().Debugw("Computed block limit", "height", height, "blockLimit", blockLimit)
	return blockLimit, nil
}

// ParseBlockHeight parses a hexadecimal height, with or without 0x prefix.
func ParseBlockHeight(s string) (uint64, error) {
	digits := strings.TrimSpace(s)
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		digits = digits[2:]
	}
	if digits == "" {
		return 0, fmt.Errorf("empty block number %q", s)
	}
	height, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("block number %q is not hexadecimal: %w", s, err)
	}
	return height, nil
}
