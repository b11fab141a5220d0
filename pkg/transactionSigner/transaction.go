package transactionSigner

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

// GroupTransaction is the unsigned group transaction. Field order is the wire order.
type GroupTransaction struct {
	RandomID   *big.Int
	GasPrice   *big.Int
	GasLimit   *big.Int
	BlockLimit *big.Int
	To         *common.Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	ChainID    *big.Int
	GroupID    *big.Int
	ExtraData  []byte
}

// SignedGroupTransaction is a GroupTransaction followed by its secp256k1 signature.
type SignedGroupTransaction struct {
	RandomID   *big.Int
	GasPrice   *big.Int
	GasLimit   *big.Int
	BlockLimit *big.Int
	To         *common.Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	ChainID    *big.Int
	GroupID    *big.Int
	ExtraData  []byte
	V          *big.Int
	R          *big.Int
	S          *big.Int
}

// SigningHash is keccak256 of the RLP encoded unsigned transaction.
func (tx *GroupTransaction) SigningHash() (common.Hash, error) {
	encoded, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to rlp encode transaction: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

func (tx *GroupTransaction) sign(key *ecdsa.PrivateKey) (*SignedGroupTransaction, error) {
	hash, err := tx.SigningHash()
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx.withSignature(sig)
}

// withSignature attaches a 65 byte [R || S || V] signature. V may be 0/1 or 27/28.
func (tx *GroupTransaction) withSignature(sig []byte) (*SignedGroupTransaction, error) {
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return nil, fmt.Errorf("invalid signature recovery id %d", sig[64])
	}
	return &SignedGroupTransaction{
		RandomID:   tx.RandomID,
		GasPrice:   tx.GasPrice,
		GasLimit:   tx.GasLimit,
		BlockLimit: tx.BlockLimit,
		To:         tx.To,
		Value:      tx.Value,
		Data:       tx.Data,
		ChainID:    tx.ChainID,
		GroupID:    tx.GroupID,
		ExtraData:  tx.ExtraData,
		V:          new(big.Int).SetUint64(uint64(v) + 27),
		R:          new(big.Int).SetBytes(sig[:32]),
		S:          new(big.Int).SetBytes(sig[32:64]),
	}, nil
}

// Unsigned strips the signature.
func (stx *SignedGroupTransaction) Unsigned() *GroupTransaction {
	return &GroupTransaction{
		RandomID:   stx.RandomID,
		GasPrice:   stx.GasPrice,
		GasLimit:   stx.GasLimit,
		BlockLimit: stx.BlockLimit,
		To:         stx.To,
		Value:      stx.Value,
		Data:       stx.Data,
		ChainID:    stx.ChainID,
		GroupID:    stx.GroupID,
		ExtraData:  stx.ExtraData,
	}
}

// Hash is the transaction hash the node reports for this transaction.
func (stx *SignedGroupTransaction) Hash() (common.Hash, error) {
	encoded, err := rlp.EncodeToBytes(stx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to rlp encode transaction: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

// Sender recovers the signing address.
func (stx *SignedGroupTransaction) Sender() (common.Address, error) {
	if stx.V == nil || stx.R == nil || stx.S == nil {
		return common.Address{}, fmt.Errorf("transaction is not signed")
	}
	v := stx.V.Uint64()
	if v != 27 && v != 28 {
		return common.Address{}, fmt.Errorf("invalid signature recovery id %d", v)
	}
	hash, err := stx.Unsigned().SigningHash()
	if err != nil {
		return common.Address{}, err
	}
	sig := make([]byte, 65)
	stx.R.FillBytes(sig[:32])
	stx.S.FillBytes(sig[32:64])
	sig[64] = byte(v - 27)

	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover sender: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Encode returns the 0x hex payload accepted by sendRawTransaction.
func (stx *SignedGroupTransaction) Encode() (types.SignedPayload, error) {
	encoded, err := rlp.EncodeToBytes(stx)
	if err != nil {
		return "", fmt.Errorf("failed to rlp encode signed transaction: %w", err)
	}
	return types.SignedPayload(hexutil.Encode(encoded)), nil
}

// DecodeSignedTransaction parses a sendRawTransaction payload.
func DecodeSignedTransaction(payload types.SignedPayload) (*SignedGroupTransaction, error) {
	raw, err := hexutil.Decode(string(payload))
	if err != nil {
		return nil, fmt.Errorf("payload is not 0x prefixed hex: %w", err)
	}
	var stx SignedGroupTransaction
	if err := rlp.DecodeBytes(raw, &stx); err != nil {
		return nil, fmt.Errorf("failed to rlp decode signed transaction: %w", err)
	}
	return &stx, nil
}

// PayloadHash returns keccak256 of the raw payload bytes, which is the
// transaction hash for any well formed payload.
func PayloadHash(payload types.SignedPayload) (common.Hash, error) {
	raw, err := hexutil.Decode(string(payload))
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(raw), nil
}
