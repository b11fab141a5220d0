package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
)

// ISolidityCompiler compiles a contract source into <outputDir>/<Name>.bin and .abi
type ISolidityCompiler interface {
	Compile(ctx context.Context, contractPath string, outputDir string) error
}

// SolcCompiler runs the solc binary.
type SolcCompiler struct {
	solcPath string
	logger   *zap.Logger
}

func NewSolcCompiler(solcPath string, logger *zap.Logger) *SolcCompiler {
	if solcPath == "" {
		solcPath = "solc"
	}
	return &SolcCompiler{solcPath: solcPath, logger: logger}
}

// Compile runs `solc --overwrite --abi --bin -o outputDir contractPath`. A
// missing source, a missing output directory or a compiler failure are
// compile errors.
func (c *SolcCompiler) Compile(ctx context.Context, contractPath string, outputDir string) error {
	const op = "compile"

	info, err := os.Stat(contractPath)
	if err != nil {
		return clientErrors.NewCompileError(op, fmt.Errorf("contract source %s: %w", contractPath, err))
	}
	if info.IsDir() {
		return clientErrors.NewCompileError(op, fmt.Errorf("contract source %s is a directory", contractPath))
	}
	if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
		return clientErrors.NewCompileError(op, fmt.Errorf("output directory %s does not exist", outputDir))
	}

	args := []string{"--overwrite", "--abi", "--bin", "-o", outputDir, contractPath}
	cmd := exec.CommandContext(ctx, c.solcPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.logger.Sugar().Debugw("Compiling contract",
		zap.String("solc", c.solcPath),
		zap.String("contract", contractPath),
		zap.String("outputDir", outputDir),
	)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return clientErrors.NewCompileError(op, fmt.Errorf("%s failed: %w: %s", c.solcPath, err, msg))
		}
		return clientErrors.NewCompileError(op, fmt.Errorf("%s failed: %w", c.solcPath, err))
	}
	return nil
}

// ContractName is the artifact base name of a source file: Foo.sol -> Foo
func ContractName(contractPath string) string {
	return strings.TrimSuffix(filepath.Base(contractPath), ".sol")
}

// ReadBinary reads the compiled bytecode of contractPath from outputDir.
func ReadBinary(contractPath string, outputDir string) (string, error) {
	const op = "readBinary"
	binPath := filepath.Join(outputDir, ContractName(contractPath)+".bin")
	data, err := os.ReadFile(binPath)
	if err != nil {
		return "", clientErrors.NewCompileError(op, fmt.Errorf("failed to read compiled binary: %w", err))
	}
	bin := strings.TrimSpace(string(data))
	if bin == "" {
		return "", clientErrors.NewCompileError(op, fmt.Errorf("compiled binary %s is empty", binPath))
	}
	return bin, nil
}
