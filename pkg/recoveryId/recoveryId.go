// Package recoveryId completes signatures produced by remote signers that return only
// (r, s). The recovery id is found by trial: each candidate is used to recover a public key
// and the first one yielding the expected address wins.
package recoveryId

import (
	"fmt"
	"math/big"

	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// MaxRecoveryId is the highest candidate tried by Resolve.
const MaxRecoveryId = 3

// Resolve returns the smallest recovery id in [0, MaxRecoveryId] for which the public key
// recovered from (hash, r, s) hashes to expected.
//
// Parameters:
//   - hash: The 32-byte digest that was signed
//   - r, s: The signature components
//   - expected: The address of the signing account
//
// Returns:
//   - uint8: The recovery id
//   - error: ErrRecoveryIdNotFound if no candidate matches
func Resolve(hash common.Hash, r, s [32]byte, expected common.Address) (uint8, error) {
	sig := make([]byte, crypto.SignatureLength)
	copy(sig[0:32], r[:])
	copy(sig[32:64], s[:])

	for id := 0; id <= MaxRecoveryId; id++ {
		sig[crypto.RecoveryIDOffset] = byte(id)
		pub, err := crypto.SigToPub(hash.Bytes(), sig)
		if err != nil {
			continue
		}
		if crypto.PubkeyToAddress(*pub) == expected {
			return uint8(id), nil
		}
	}
	return 0, fmt.Errorf("%w: no candidate recovers %s", transaction.ErrRecoveryIdNotFound, expected.Hex())
}

// AddressFromPoint derives an address from the raw affine coordinates of a secp256k1
// public key: the last 20 bytes of keccak256(x || y), each coordinate left-padded to 32 bytes.
func AddressFromPoint(x, y []byte) common.Address {
	return common.BytesToAddress(crypto.Keccak256(
		common.LeftPadBytes(x, 32),
		common.LeftPadBytes(y, 32),
	)[12:])
}

// Finalize resolves the recovery id for (r, s) over the signing hash of u and assembles the
// signed transaction.
func Finalize(u *transaction.UnsignedTransaction, r, s [32]byte) (*transaction.SignedTransaction, error) {
	signer := u.EthSigner()
	hash := u.SigningHash()

	id, err := Resolve(hash, r, s, u.From)
	if err != nil {
		return nil, err
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig[0:32], r[:])
	copy(sig[32:64], s[:])
	sig[crypto.RecoveryIDOffset] = id

	tx, err := types.NewTx(u.ToLegacyTx()).WithSignature(signer, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to apply signature to transaction: %w", err)
	}
	signed, err := transaction.NewSignedTransaction(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signed transaction: %w", err)
	}
	return signed, nil
}

// NormalizeS maps s into the lower half of the curve order. Remote signers may return
// either of the two valid s values; only the low one is accepted by the network.
func NormalizeS(s []byte) [32]byte {
	v := new(big.Int).SetBytes(s)
	if v.Cmp(secp256k1HalfN) > 0 {
		v.Sub(crypto.S256().Params().N, v)
	}
	var out [32]byte
	v.FillBytes(out[:])
	return out
}

var secp256k1HalfN = new(big.Int).Rsh(crypto.S256().Params().N, 1)
