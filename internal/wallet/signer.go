// Package wallet builds and signs plain ether value transfers.
//
// Everything here is a pure function of its inputs: no network, no storage,
// no logging. Private keys are accepted as hex with or without a 0x prefix and
// never appear in returned errors.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidKey     = errors.New("invalid private key")
	ErrInvalidAddress = errors.New("invalid recipient address")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// weiPerEther is the ether -> wei exponent.
const weiPerEther = 18

// TransferIntent describes an unsigned value transfer.
type TransferIntent struct {
	To       string
	Value    *big.Int // wei
	Nonce    uint64
	GasPrice *big.Int // wei
	GasLimit uint64
}

// SignedTransfer is a transaction ready for broadcast.
type SignedTransfer struct {
	// Raw is the RLP-encoded signed transaction.
	Raw []byte
	// Hash is the 0x-prefixed transaction hash.
	Hash string
	// From is the sender derived from the key.
	From common.Address
}

// Signer signs legacy EIP-155 transactions for a single chain. Safe for concurrent use.
type Signer struct {
	signer types.Signer
}

// NewSigner creates a Signer bound to chainID.
func NewSigner(chainID *big.Int) *Signer {
	return &Signer{signer: types.NewEIP155Signer(new(big.Int).Set(chainID))}
}

// Sign builds and signs intent with privateKey.
func (s *Signer) Sign(privateKey string, intent TransferIntent) (*SignedTransfer, error) {
	key, err := parseKey(privateKey)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(intent.To) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, intent.To)
	}
	if intent.Value == nil || intent.Value.Sign() <= 0 {
		return nil, fmt.Errorf("%w: value must be positive", ErrInvalidAmount)
	}
	if intent.GasPrice == nil || intent.GasPrice.Sign() < 0 {
		return nil, fmt.Errorf("%w: gas price must be set", ErrInvalidAmount)
	}

	to := common.HexToAddress(intent.To)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    intent.Nonce,
		GasPrice: intent.GasPrice,
		Gas:      intent.GasLimit,
		To:       &to,
		Value:    intent.Value,
	})

	signed, err := types.SignTx(tx, s.signer, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}

	return &SignedTransfer{
		Raw:  raw,
		Hash: signed.Hash().Hex(),
		From: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Sender recovers the signer of a raw transaction produced by Sign.
func (s *Signer) Sender(raw []byte) (common.Address, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Address{}, fmt.Errorf("failed to decode transaction: %w", err)
	}
	from, err := types.Sender(s.signer, tx)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover sender: %w", err)
	}
	return from, nil
}

// Address derives the account address controlled by privateKey.
func Address(privateKey string) (common.Address, error) {
	key, err := parseKey(privateKey)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// NormalizeKey strips an optional 0x prefix and surrounding whitespace.
func NormalizeKey(privateKey string) string {
	k := strings.TrimSpace(privateKey)
	if len(k) >= 2 && (k[:2] == "0x" || k[:2] == "0X") {
		k = k[2:]
	}
	return k
}

func parseKey(privateKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(NormalizeKey(privateKey))
	if err != nil {
		// The underlying error may quote the input.
		return nil, ErrInvalidKey
	}
	return key, nil
}

// ValidAddress reports whether s is a 20-byte hex address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// EtherToWei converts a positive ether amount to wei. Amounts finer than one wei are rejected.
func EtherToWei(ether decimal.Decimal) (*big.Int, error) {
	if !ether.IsPositive() {
		return nil, fmt.Errorf("%w: %s is not positive", ErrInvalidAmount, ether)
	}
	wei := ether.Shift(weiPerEther)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidAmount, ether, weiPerEther)
	}
	return wei.BigInt(), nil
}

// WeiToEther converts wei to an ether decimal.
func WeiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -weiPerEther)
}
