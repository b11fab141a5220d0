package transactionOrchestrator

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
	"github.com/Layr-Labs/bcos-web3-go/pkg/compiler"
	"github.com/Layr-Labs/bcos-web3-go/pkg/config"
	"github.com/Layr-Labs/bcos-web3-go/pkg/peering"
	"github.com/Layr-Labs/bcos-web3-go/pkg/persistence"
	"github.com/Layr-Labs/bcos-web3-go/pkg/transactionSigner"
	"github.com/Layr-Labs/bcos-web3-go/pkg/transport"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
	"github.com/Layr-Labs/bcos-web3-go/pkg/validation"
)

// BlockLimitWindow is how many blocks past the current height a signed
// transaction stays valid.
const BlockLimitWindow uint64 = 500

const MethodSendRawTransaction = "sendRawTransaction"

// IBlockHeightSource answers getBlockNumber through the read-only path.
type IBlockHeightSource interface {
	GetBlockNumber(ctx context.Context) (*types.Response, error)
}

// Dependencies are the collaborators of a TransactionOrchestrator. Compiler
// is only needed for deployments and Journal is optional.
type Dependencies struct {
	Heights   IBlockHeightSource
	Signer    transactionSigner.ITransactionSigner
	Pool      peering.INodePool
	Transport transport.IChannelTransport
	Compiler  compiler.ISolidityCompiler
	Journal   persistence.ISubmissionJournal
}

// TransactionOrchestrator signs and submits transactions. Every unsigned call
// and deployment is bound to a freshly fetched block height; heights are
// never cached between calls.
type TransactionOrchestrator struct {
	config    *config.ClientConfig
	heights   IBlockHeightSource
	signer    transactionSigner.ITransactionSigner
	pool      peering.INodePool
	transport transport.IChannelTransport
	compiler  compiler.ISolidityCompiler
	journal   persistence.ISubmissionJournal
	logger    *zap.Logger
}

func NewTransactionOrchestrator(cfg *config.ClientConfig, deps *Dependencies, logger *zap.Logger) (*TransactionOrchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if deps == nil {
		return nil, fmt.Errorf("dependencies cannot be nil")
	}
	if deps.Heights == nil {
		return nil, fmt.Errorf("block height source cannot be nil")
	}
	if deps.Signer == nil {
		return nil, fmt.Errorf("signer cannot be nil")
	}
	if deps.Pool == nil {
		return nil, fmt.Errorf("node pool cannot be nil")
	}
	if deps.Transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}

	return &TransactionOrchestrator{
		config:    cfg.Clone(),
		heights:   deps.Heights,
		signer:    deps.Signer,
		pool:      deps.Pool,
		transport: deps.Transport,
		compiler:  deps.Compiler,
		journal:   deps.Journal,
		logger:    logger,
	}, nil
}

// submission describes a payload for the journal
type submission struct {
	kind       persistence.SubmissionKind
	from       string
	to         string
	function   string
	blockLimit uint64
}

// Submit submits req signed with the configured default account.
func (o *TransactionOrchestrator) Submit(ctx context.Context, req types.SubmissionRequest) (*types.Response, error) {
	return o.SubmitWithCredentials(ctx, o.config.DefaultCredentials(), req)
}

// SubmitWithCredentials normalizes req into a signed payload using creds and
// dispatches it. The node's response is returned as is.
func (o *TransactionOrchestrator) SubmitWithCredentials(
	ctx context.Context,
	creds types.Credentials,
	req types.SubmissionRequest,
) (*types.Response, error) {
	payload, sub, err := o.normalize(ctx, creds, req)
	if err != nil {
		return nil, err
	}
	return o.dispatch(ctx, payload, sub)
}

// Normalize turns req into a signed payload. A RawPayload is returned
// unchanged without touching the network; an UnsignedCall costs one
// getBlockNumber round trip and is signed with creds.
func (o *TransactionOrchestrator) Normalize(
	ctx context.Context,
	creds types.Credentials,
	req types.SubmissionRequest,
) (types.SignedPayload, error) {
	payload, _, err := o.normalize(ctx, creds, req)
	return payload, err
}

func (o *TransactionOrchestrator) normalize(
	ctx context.Context,
	creds types.Credentials,
	req types.SubmissionRequest,
) (types.SignedPayload, *submission, error) {
	const op = "submit"

	switch r := req.(type) {
	case types.RawPayload:
		if err := validation.NonEmptyString(op, "payload", string(r.Payload)); err != nil {
			return "", nil, err
		}
		return r.Payload, &submission{kind: persistence.SubmissionKind_Raw}, nil

	case types.UnsignedCall:
		sctx, err := o.PrepareUnsigned(ctx, creds, r)
		if err != nil {
			return "", nil, err
		}
		payload, err := o.signer.Sign(sctx)
		if err != nil {
			return "", nil, errors.Wrapf(err, "failed to sign call to %s", r.Function)
		}
		return payload, &submission{
			kind:       persistence.SubmissionKind_Call,
			from:       creds.Account,
			to:         sctx.Recipient,
			function:   sctx.FunctionSignature,
			blockLimit: sctx.BlockLimit,
		}, nil

	case nil:
		return "", nil, clientErrors.NewValidationError(op, "submission request cannot be nil")
	default:
		return "", nil, clientErrors.NewValidationError(op, "unsupported submission request %T", req)
	}
}

// PrepareUnsigned validates call and builds its signing context from creds
// and a freshly fetched block height.
func (o *TransactionOrchestrator) PrepareUnsigned(
	ctx context.Context,
	creds types.Credentials,
	call types.UnsignedCall,
) (*types.SigningContext, error) {
	const op = "submit"
	if err := validation.All(
		validation.Address(op, "to", call.To),
		validation.NonEmptyString(op, "function", call.Function),
	); err != nil {
		return nil, err
	}

	blockLimit, err := o.nextBlockLimit(ctx)
	if err != nil {
		return nil, err
	}

	return &types.SigningContext{
		GroupID:           o.config.GroupID,
		Account:           creds.Account,
		PrivateKey:        creds.PrivateKey,
		Recipient:         call.To,
		FunctionSignature: call.Function,
		Arguments:         types.NormalizeArgs(call.Args),
		BlockLimit:        blockLimit,
	}, nil
}

// Dispatch sends an already signed payload with sendRawTransaction to one
// node of the pool.
func (o *TransactionOrchestrator) Dispatch(ctx context.Context, payload types.SignedPayload) (*types.Response, error) {
	if err := validation.NonEmptyString("dispatch", "payload", string(payload)); err != nil {
		return nil, err
	}
	return o.dispatch(ctx, payload, &submission{kind: persistence.SubmissionKind_Raw})
}

func (o *TransactionOrchestrator) dispatch(ctx context.Context, payload types.SignedPayload, sub *submission) (*types.Response, error) {
	envelope := types.NewRequestEnvelope(MethodSendRawTransaction, o.config.GroupID, string(payload))
	node := o.pool.Select()

	resp, err := o.transport.Dispatch(ctx, node, &o.config.Authentication, envelope, o.config.Timeout, types.ModeWrite)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to submit transaction to %s", node.String())
	}

	txHash := ""
	if hash, err := transactionSigner.PayloadHash(payload); err == nil {
		txHash = hash.Hex()
	}
	o.logger.Sugar().Infow("Submitted transaction",
		zap.String("kind", string(sub.kind)),
		zap.String("node", node.String()),
		zap.String("txHash", txHash),
		zap.Uint64("blockLimit", sub.blockLimit),
		zap.Bool("rejected", resp.Error != nil),
	)
	o.record(txHash, node, sub, resp)
	return resp, nil
}

func (o *TransactionOrchestrator) record(txHash string, node peering.NodeEndpoint, sub *submission, resp *types.Response) {
	if o.journal == nil {
		return
	}
	record := persistence.NewSubmissionRecord(sub.kind, txHash, node.String())
	record.From = sub.from
	record.To = sub.to
	record.Function = sub.function
	record.BlockLimit = sub.blockLimit
	if resp.Error != nil {
		record.RPCError = resp.Error.Message
	}
	if err := o.journal.RecordSubmission(record); err != nil {
		o.logger.Sugar().Warnw("Failed to record submission",
			zap.String("txHash", txHash),
			zap.Error(err),
		)
	}
}
