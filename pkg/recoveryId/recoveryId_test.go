package recoveryId

import (
	"math/big"
	"strings"
	"testing"

	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splitSig(t *testing.T, sig []byte) (r, s [32]byte, v byte) {
	require.Len(t, sig, crypto.SignatureLength)
	copy(r[:], sig[0:32])
	copy(s[:], sig[32:64])
	return r, s, sig[64]
}

func TestResolve_FindsSigningId(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	for i := 0; i < 5; i++ {
		hash := crypto.Keccak256Hash([]byte{byte(i), 0xaa})
		sig, err := crypto.Sign(hash.Bytes(), key)
		require.NoError(t, err)
		r, s, v := splitSig(t, sig)

		id, err := Resolve(hash, r, s, addr)
		require.NoError(t, err)
		assert.Equal(t, v, id)

		// exactly one candidate in 0..3 recovers the address
		matches := 0
		for cand := 0; cand <= MaxRecoveryId; cand++ {
			sig[64] = byte(cand)
			pub, err := crypto.SigToPub(hash.Bytes(), sig)
			if err == nil && crypto.PubkeyToAddress(*pub) == addr {
				matches++
			}
		}
		assert.Equal(t, 1, matches)
	}
}

func TestResolve_TamperedSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	hash := crypto.Keccak256Hash([]byte("set(42)"))
	sig, err := crypto.Sign(hash.Bytes(), key)
	require.NoError(t, err)
	r, s, _ := splitSig(t, sig)

	s[31] ^= 0x01
	_, err = Resolve(hash, r, s, addr)
	assert.ErrorIs(t, err, transaction.ErrRecoveryIdNotFound)

	// wrong expected address
	r, s, _ = splitSig(t, sig)
	_, err = Resolve(hash, r, s, common.HexToAddress("0x00000000000000000000000000000000000000ff"))
	assert.ErrorIs(t, err, transaction.ErrRecoveryIdNotFound)
}

func TestAddressFromPoint(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	x := key.PublicKey.X.Bytes()
	y := key.PublicKey.Y.Bytes()
	addr := AddressFromPoint(x, y)

	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)

	lower := strings.ToLower(addr.Hex())
	assert.True(t, strings.HasPrefix(lower, "0x"))
	assert.Len(t, lower, 42)
}

func TestAddressFromPoint_ShortCoordinates(t *testing.T) {
	// coordinates with leading zero bytes are padded before hashing
	x := []byte{0x01}
	y := []byte{0x02}
	padded := append(common.LeftPadBytes(x, 32), common.LeftPadBytes(y, 32)...)
	expected := common.BytesToAddress(crypto.Keccak256(padded)[12:])
	assert.Equal(t, expected, AddressFromPoint(x, y))
}

func TestFinalize(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	to := common.HexToAddress("0x1000000000000000000000000000000000000001")

	for _, chainID := range []*big.Int{nil, big.NewInt(2018)} {
		u := &transaction.UnsignedTransaction{
			From:     from,
			Nonce:    5,
			To:       &to,
			Data:     []byte{0x60, 0xfe, 0x47, 0xb1},
			GasLimit: 50000,
			GasPrice: big.NewInt(0),
			ChainID:  chainID,
		}
		sig, err := crypto.Sign(u.SigningHash().Bytes(), key)
		require.NoError(t, err)
		r, s, v := splitSig(t, sig)

		signed, err := Finalize(u, r, s)
		require.NoError(t, err)
		require.NotNil(t, signed.Signature.RecoveryId)
		assert.Equal(t, v, *signed.Signature.RecoveryId)
		assert.Equal(t, 0, signed.Signature.V(chainID).Cmp(transaction.EncodeV(v, chainID)))

		sender, err := types.Sender(u.EthSigner(), signed.Tx)
		require.NoError(t, err)
		assert.Equal(t, from, sender)
		assert.True(t, strings.HasPrefix(signed.Payload(), "0x"))
	}
}

func TestNormalizeS(t *testing.T) {
	n := crypto.S256().Params().N
	low := big.NewInt(12345)
	high := new(big.Int).Sub(n, low)

	got := NormalizeS(high.Bytes())
	assert.Equal(t, 0, new(big.Int).SetBytes(got[:]).Cmp(low))

	got = NormalizeS(low.Bytes())
	assert.Equal(t, 0, new(big.Int).SetBytes(got[:]).Cmp(low))
}
