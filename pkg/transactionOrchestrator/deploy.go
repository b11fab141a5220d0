package transactionOrchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
	"github.com/Layr-Labs/bcos-web3-go/pkg/compiler"
	"github.com/Layr-Labs/bcos-web3-go/pkg/persistence"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
	"github.com/Layr-Labs/bcos-web3-go/pkg/validation"
)

// Deploy compiles contractPath into outputDir and submits the bytecode as a
// contract creation signed with the default account.
func (o *TransactionOrchestrator) Deploy(ctx context.Context, contractPath string, outputDir string) (*types.Response, error) {
	return o.DeployWithCredentials(ctx, o.config.DefaultCredentials(), contractPath, outputDir)
}

// DeployWithCredentials is Deploy signed with creds. Nothing is signed or
// sent unless compilation produced a binary.
func (o *TransactionOrchestrator) DeployWithCredentials(
	ctx context.Context,
	creds types.Credentials,
	contractPath string,
	outputDir string,
) (*types.Response, error) {
	const op = "deploy"
	if err := validation.All(
		validation.NonEmptyString(op, "contractPath", contractPath),
		validation.NonEmptyString(op, "outputDir", outputDir),
	); err != nil {
		return nil, err
	}

	absContract, err := filepath.Abs(contractPath)
	if err != nil {
		return nil, clientErrors.NewCompileError(op, fmt.Errorf("failed to resolve contract path: %w", err))
	}
	absOutput, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, clientErrors.NewCompileError(op, fmt.Errorf("failed to resolve output directory: %w", err))
	}

	if _, err := os.Stat(absContract); err != nil {
		return nil, clientErrors.NewCompileError(op, fmt.Errorf("contract source %s: %w", absContract, err))
	}
	if o.compiler == nil {
		return nil, clientErrors.NewCompileError(op, fmt.Errorf("no compiler configured"))
	}
	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return nil, clientErrors.NewCompileError(op, fmt.Errorf("failed to create output directory: %w", err))
	}

	if err := o.compiler.Compile(ctx, absContract, absOutput); err != nil {
		return nil, err
	}
	bytecode, err := compiler.ReadBinary(absContract, absOutput)
	if err != nil {
		return nil, err
	}

	blockLimit, err := o.nextBlockLimit(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := o.signer.SignDeployment(&types.DeploymentContext{
		GroupID:    o.config.GroupID,
		Account:    creds.Account,
		PrivateKey: creds.PrivateKey,
		Bytecode:   bytecode,
		BlockLimit: blockLimit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to sign deployment of %s", compiler.ContractName(absContract))
	}

	return o.dispatch(ctx, payload, &submission{
		kind:       persistence.SubmissionKind_Deploy,
		from:       creds.Account,
		function:   compiler.ContractName(absContract),
		blockLimit: blockLimit,
	})
}
