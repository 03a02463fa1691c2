package transaction

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeV(t *testing.T) {
	tests := []struct {
		name       string
		recoveryId uint8
		chainID    *big.Int
		want       int64
	}{
		{name: "no chain id, id 0", recoveryId: 0, chainID: nil, want: 27},
		{name: "no chain id, id 1", recoveryId: 1, chainID: nil, want: 28},
		{name: "no chain id, id 3", recoveryId: 3, chainID: nil, want: 30},
		{name: "chain 2018, id 1", recoveryId: 1, chainID: big.NewInt(2018), want: 4072},
		{name: "chain 1, id 0", recoveryId: 0, chainID: big.NewInt(1), want: 37},
		{name: "zero chain id treated as absent", recoveryId: 1, chainID: big.NewInt(0), want: 28},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeV(tt.recoveryId, tt.chainID).Int64())
		})
	}
}

func TestSignature_V_UnknownRecoveryId(t *testing.T) {
	sig := Signature{}
	assert.Nil(t, sig.V(big.NewInt(10)))
}

func TestPrivacyFields_Validate(t *testing.T) {
	assert.NoError(t, (*PrivacyFields)(nil).Validate())
	assert.NoError(t, (&PrivacyFields{PrivateFrom: "A1a", PrivateFor: []string{"B1b"}}).Validate())
	assert.NoError(t, (&PrivacyFields{PrivateFrom: "A1a", PrivacyGroupId: "group"}).Validate())

	err := (&PrivacyFields{PrivateFor: []string{"B1b"}, PrivacyGroupId: "group"}).Validate()
	assert.True(t, errors.Is(err, ErrConflictingPrivacyFields))
}

func TestUnsignedTransaction_Validate(t *testing.T) {
	to := common.HexToAddress("0xdef0000000000000000000000000000000000000")

	valid := &UnsignedTransaction{To: &to, GasPrice: big.NewInt(0), Value: big.NewInt(0)}
	assert.NoError(t, valid.Validate())

	withValue := &UnsignedTransaction{To: &to, Value: big.NewInt(1)}
	assert.ErrorIs(t, withValue.Validate(), ErrInvalidValue)

	withGasPrice := &UnsignedTransaction{To: &to, GasPrice: big.NewInt(1)}
	assert.ErrorIs(t, withGasPrice.Validate(), ErrInvalidGasPrice)
}

func TestUnsignedTransaction_EthSigner(t *testing.T) {
	u := &UnsignedTransaction{}
	assert.IsType(t, types.HomesteadSigner{}, u.EthSigner())

	u.ChainID = big.NewInt(2018)
	assert.Equal(t, types.NewEIP155Signer(big.NewInt(2018)), u.EthSigner())
}

func TestSignedTransaction_RoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	to := common.HexToAddress("0xdef0000000000000000000000000000000000000")
	u := &UnsignedTransaction{
		Nonce:    5,
		To:       &to,
		Data:     []byte{0x60, 0xfe, 0x47, 0xb1},
		GasLimit: 50000,
		ChainID:  big.NewInt(2018),
	}

	tx, err := types.SignTx(types.NewTx(u.ToLegacyTx()), u.EthSigner(), key)
	require.NoError(t, err)

	signed, err := NewSignedTransaction(tx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed.Payload(), "0x"))
	require.NotNil(t, signed.Signature.RecoveryId)

	v, _, _ := tx.RawSignatureValues()
	assert.Equal(t, 0, v.Cmp(signed.Signature.V(u.ChainID)))

	decoded, err := DecodeSignedTransaction(signed.Raw)
	require.NoError(t, err)
	assert.Equal(t, signed.Hash, decoded.Hash)
	assert.Equal(t, signed.Signature, decoded.Signature)
}

func TestReceiptFromEth(t *testing.T) {
	contract := common.HexToAddress("0x1234567890123456789012345678901234567890")
	r := ReceiptFromEth(&types.Receipt{
		Status:          types.ReceiptStatusSuccessful,
		TxHash:          common.HexToHash("0x01"),
		ContractAddress: contract,
	})
	assert.Equal(t, ReceiptStatusSuccess, r.Status)
	require.NotNil(t, r.ContractAddress)
	assert.Equal(t, contract, *r.ContractAddress)

	failed := ReceiptFromEth(&types.Receipt{Status: types.ReceiptStatusFailed})
	assert.Equal(t, ReceiptStatusFailure, failed.Status)
	assert.Nil(t, failed.ContractAddress)
}

func TestAccount_KeyMaterial(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	assert.Equal(t, KeyMaterialNone, (&Account{}).KeyMaterial())
	assert.Equal(t, KeyMaterialPrivateKey, (&Account{PrivateKey: key}).KeyMaterial())
	assert.Equal(t, KeyMaterialHandle, (&Account{KeyHandle: "alias/deployer"}).KeyMaterial())
}
