package txBuilder

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/Layr-Labs/deploy-transact-go/pkg/chainManager"
	"github.com/Layr-Labs/deploy-transact-go/pkg/gasEstimator"
	"github.com/Layr-Labs/deploy-transact-go/pkg/logger"
	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const storageABI = `[
	{"type":"function","name":"set","inputs":[{"name":"x","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"get","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"}
]`

type fakePrivateNonces struct {
	nonce  uint64
	err    error
	called bool
	got    *transaction.PrivacyFields
}

func (f *fakePrivateNonces) PrivateNonce(_ context.Context, _ common.Address, p *transaction.PrivacyFields) (uint64, error) {
	f.called = true
	f.got = p
	return f.nonce, f.err
}

func testLogger(t *testing.T) *zap.Logger {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)
	return l
}

func TestBuild_PublicCallWithFallbackGas(t *testing.T) {
	l := testLogger(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	to := common.HexToAddress("0xdef0000000000000000000000000000000000def")

	parsed, err := abi.JSON(strings.NewReader(storageABI))
	require.NoError(t, err)
	data, err := parsed.Pack("set", big.NewInt(42))
	require.NoError(t, err)

	client := chainManager.NewMockEthClientInterface(t)
	client.On("PendingNonceAt", mock.Anything, from).Return(uint64(5), nil).Once()
	client.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(0), errors.New("execution reverted")).Once()

	b := NewBuilder(client, nil, gasEstimator.NewEstimator(client, l, nil), nil, l)
	tx, err := b.Build(context.Background(), &Request{
		From:        from,
		To:          &to,
		Data:        data,
		FallbackGas: 50000,
	})
	require.NoError(t, err)

	assert.Equal(t, from, tx.From)
	assert.Equal(t, uint64(5), tx.Nonce)
	assert.Equal(t, &to, tx.To)
	assert.Equal(t, data, tx.Data)
	assert.Equal(t, uint64(50000), tx.GasLimit)
	assert.Equal(t, 0, tx.GasPrice.Sign())
	assert.Equal(t, 0, tx.Value.Sign())
	assert.Nil(t, tx.ChainID)
	assert.Nil(t, tx.Privacy)

	// unsigned: no v/r/s
	v, r, s := types.NewTx(tx.ToLegacyTx()).RawSignatureValues()
	assert.Equal(t, 0, v.Sign())
	assert.Equal(t, 0, r.Sign())
	assert.Equal(t, 0, s.Sign())

	signedTx, err := types.SignTx(types.NewTx(tx.ToLegacyTx()), tx.EthSigner(), key)
	require.NoError(t, err)
	signed, err := transaction.NewSignedTransaction(signedTx)
	require.NoError(t, err)

	v, r, s = signed.Tx.RawSignatureValues()
	assert.NotZero(t, v.Sign())
	assert.NotZero(t, r.Sign())
	assert.NotZero(t, s.Sign())
	assert.True(t, strings.HasPrefix(signed.Payload(), "0x"))
}

func TestBuild_InflatesEstimateAndSetsChainId(t *testing.T) {
	l := testLogger(t)
	from := common.HexToAddress("0xabc0000000000000000000000000000000000abc")

	client := chainManager.NewMockEthClientInterface(t)
	client.On("PendingNonceAt", mock.Anything, from).Return(uint64(0), nil).Once()
	client.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(200000), nil).Once()

	b := NewBuilder(client, nil, gasEstimator.NewEstimator(client, l, nil), big.NewInt(2018), l)
	tx, err := b.Build(context.Background(), &Request{
		From:        from,
		Data:        []byte{0x60, 0x80},
		FallbackGas: 700000,
	})
	require.NoError(t, err)

	assert.True(t, tx.IsContractCreation())
	assert.Equal(t, uint64(220000), tx.GasLimit)
	require.NotNil(t, tx.ChainID)
	assert.Equal(t, int64(2018), tx.ChainID.Int64())
}

func TestBuild_PrivateNonceIsSeparate(t *testing.T) {
	l := testLogger(t)
	from := common.HexToAddress("0xabc0000000000000000000000000000000000abc")
	to := common.HexToAddress("0xdef0000000000000000000000000000000000def")
	privacy := &transaction.PrivacyFields{PrivateFrom: "A1aVtMxLCUHmBVHXoZzzBgPbW/wj5axDpW9X8l91SGo=", PrivacyGroupId: "group-1"}

	client := chainManager.NewMockEthClientInterface(t)
	client.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(10), nil).Once()
	privateNonces := &fakePrivateNonces{nonce: 3}

	b := NewBuilder(client, privateNonces, gasEstimator.NewEstimator(client, l, nil), nil, l)
	tx, err := b.Build(context.Background(), &Request{From: from, To: &to, Privacy: privacy, FallbackGas: 500000})
	require.NoError(t, err)

	assert.True(t, privateNonces.called)
	assert.Equal(t, privacy, privateNonces.got)
	assert.Equal(t, uint64(3), tx.Nonce)
	assert.True(t, tx.IsPrivate())
	client.AssertNotCalled(t, "PendingNonceAt", mock.Anything, mock.Anything)
}

func TestBuild_ConflictingPrivacyFields(t *testing.T) {
	l := testLogger(t)
	client := chainManager.NewMockEthClientInterface(t)
	privateNonces := &fakePrivateNonces{}

	b := NewBuilder(client, privateNonces, gasEstimator.NewEstimator(client, l, nil), nil, l)
	_, err := b.Build(context.Background(), &Request{
		From: common.HexToAddress("0x1"),
		Privacy: &transaction.PrivacyFields{
			PrivateFrom:    "from",
			PrivateFor:     []string{"for"},
			PrivacyGroupId: "group",
		},
	})
	assert.ErrorIs(t, err, transaction.ErrConflictingPrivacyFields)
	// rejected before any network call
	assert.False(t, privateNonces.called)
	client.AssertNotCalled(t, "PendingNonceAt", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "EstimateGas", mock.Anything, mock.Anything)
}

func TestBuild_Errors(t *testing.T) {
	l := testLogger(t)
	from := common.HexToAddress("0x1")

	t.Run("nonce failure", func(t *testing.T) {
		client := chainManager.NewMockEthClientInterface(t)
		client.On("PendingNonceAt", mock.Anything, from).Return(uint64(0), errors.New("connection refused")).Once()

		b := NewBuilder(client, nil, gasEstimator.NewEstimator(client, l, nil), nil, l)
		_, err := b.Build(context.Background(), &Request{From: from})
		assert.ErrorIs(t, err, transaction.ErrAccountResolution)
	})

	t.Run("private without privacy support", func(t *testing.T) {
		client := chainManager.NewMockEthClientInterface(t)

		b := NewBuilder(client, nil, gasEstimator.NewEstimator(client, l, nil), nil, l)
		_, err := b.Build(context.Background(), &Request{
			From:    from,
			Privacy: &transaction.PrivacyFields{PrivateFrom: "a", PrivateFor: []string{"b"}},
		})
		assert.ErrorIs(t, err, transaction.ErrPrivateTransactionUnsupported)
	})
}
