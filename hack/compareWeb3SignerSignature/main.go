package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Layr-Labs/bcos-web3-go/pkg/clients/web3signer"
	"github.com/Layr-Labs/bcos-web3-go/pkg/config"
	"github.com/Layr-Labs/bcos-web3-go/pkg/logger"
)

// Signs the same bytes with a running Web3Signer and with the local key of
// the same account, then compares the signatures.
func main() {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	url := os.Getenv(config.EnvBCOSWeb3SignerURL)
	if url == "" {
		url = web3signer.DefaultConfig().BaseURL
	}
	account := os.Getenv(config.EnvBCOSAccount)
	privateKey := os.Getenv(config.EnvBCOSPrivateKey)
	if account == "" || privateKey == "" {
		l.Sugar().Fatalf("%s and %s must be set", config.EnvBCOSAccount, config.EnvBCOSPrivateKey)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		l.Sugar().Fatalw("failed to parse private key", "error", err)
	}

	client, err := web3signer.NewClient(&web3signer.Config{BaseURL: url}, l)
	if err != nil {
		l.Sugar().Fatalw("failed to create Web3Signer client", "error", err)
	}

	message := []byte("Hello, Web3Signer!")

	signatureWeb3, err := client.SignRaw(context.Background(), account, message)
	if err != nil {
		l.Sugar().Fatalw("failed to sign message with Web3Signer", "error", err)
	}

	localSig, err := crypto.Sign(crypto.Keccak256(message), key)
	if err != nil {
		l.Sugar().Fatalw("failed to sign message with private key", "error", err)
	}
	localSig[64] += 27
	signaturePK := hexutil.Encode(localSig)

	fmt.Printf("Message: %s\n", message)
	fmt.Printf("Signature (Web3Signer):  %s\n", signatureWeb3)
	fmt.Printf("Signature (Private Key): %s\n", signaturePK)

	if strings.EqualFold(signatureWeb3, signaturePK) {
		fmt.Println("Signatures match!")
	} else {
		fmt.Println("Signatures do not match!")
	}
}
