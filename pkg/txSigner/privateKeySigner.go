package txSigner

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// parsePrivateKey parses a hex-encoded private key with or without the 0x prefix and
// returns it with its derived address.
func parsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, common.Address, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to parse private key: %w", err)
	}
	return privateKey, crypto.PubkeyToAddress(privateKey.PublicKey), nil
}

// signWithPrivateKey signs tx with the in-memory key held by account. The recovery id is
// produced by the signature itself, so no trial recovery is needed.
func signWithPrivateKey(tx *transaction.UnsignedTransaction, account *transaction.Account) (*transaction.SignedTransaction, error) {
	if account == nil || account.PrivateKey == nil {
		return nil, fmt.Errorf("%w: account has no private key", transaction.ErrSigningService)
	}
	if account.Address != tx.From {
		return nil, fmt.Errorf("%w: address mismatch: expected %s, got %s",
			transaction.ErrSigningService, account.Address.Hex(), tx.From.Hex())
	}

	signedTx, err := types.SignTx(types.NewTx(tx.ToLegacyTx()), tx.EthSigner(), account.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to sign transaction: %v", transaction.ErrSigningService, err)
	}
	signed, err := transaction.NewSignedTransaction(signedTx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode signed transaction: %v", transaction.ErrSigningService, err)
	}
	return signed, nil
}
