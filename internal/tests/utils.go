package tests

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

// NewTestAccount generates a fresh secp256k1 account.
func NewTestAccount(t testing.TB) types.Credentials {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return types.Credentials{
		Account:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	}
}

const fakeSolcScript = `#!/bin/sh
out=""
src=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    --*) shift ;;
    *) src="$1"; shift ;;
  esac
done
if [ ! -f "$src" ]; then
  echo "Error: file not found: $src" >&2
  exit 1
fi
name=$(basename "$src" .sol)
printf '%%s' '%s' > "$out/$name.bin"
printf '[]' > "$out/$name.abi"
`

// WriteFakeSolc writes an executable that accepts solc's deploy flags and
// writes bytecode as <Name>.bin into the -o directory. It returns its path.
func WriteFakeSolc(t testing.TB, dir string, bytecode string) string {
	t.Helper()
	path := filepath.Join(dir, "solc")
	if err := os.WriteFile(path, []byte(fmt.Sprintf(fakeSolcScript, bytecode)), 0o755); err != nil {
		t.Fatalf("failed to write fake solc: %v", err)
	}
	return path
}

// WriteFailingSolc writes an executable that always exits non zero.
func WriteFailingSolc(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "solc-broken")
	script := "#!/bin/sh\necho 'Error: ParserError' >&2\nexit 1\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write failing solc: %v", err)
	}
	return path
}

// WriteContract writes a solidity source file and returns its path.
func WriteContract(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name+".sol")
	src := fmt.Sprintf("pragma solidity ^0.4.25;\ncontract %s { uint256 v; function set(uint256 x) public { v = x; } }\n", name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("failed to write contract: %v", err)
	}
	return path
}
