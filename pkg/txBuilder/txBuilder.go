// Package txBuilder assembles unsigned transactions: nonce, gas limit, zero gas price,
// optional chain id, recipient, payload and optional privacy fields.
package txBuilder

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// NonceClient provides the public transaction count of an account.
type NonceClient interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// PrivateNonceSource provides the private transaction count of an account scoped to a
// privacy group or a private-for set.
type PrivateNonceSource interface {
	PrivateNonce(ctx context.Context, from common.Address, privacy *transaction.PrivacyFields) (uint64, error)
}

// GasEstimator returns a gas limit for msg, or fallback when estimation is not possible.
type GasEstimator interface {
	Estimate(ctx context.Context, msg ethereum.CallMsg, fallback uint64) uint64
}

// Request describes the transaction to assemble.
type Request struct {
	From common.Address
	// To is nil for contract creation.
	To   *common.Address
	Data []byte
	// Privacy is nil for public transactions.
	Privacy *transaction.PrivacyFields
	// FallbackGas is used when the node cannot estimate gas.
	FallbackGas uint64
}

// Builder assembles UnsignedTransactions for one chain.
type Builder struct {
	nonces        NonceClient
	privateNonces PrivateNonceSource
	estimator     GasEstimator
	chainID       *big.Int
	logger        *zap.Logger
}

// NewBuilder creates a Builder. privateNonces may be nil, in which case private
// transactions are rejected. chainID may be nil to build transactions without replay
// protection.
func NewBuilder(
	nonces NonceClient,
	privateNonces PrivateNonceSource,
	estimator GasEstimator,
	chainID *big.Int,
	logger *zap.Logger,
) *Builder {
	return &Builder{
		nonces:        nonces,
		privateNonces: privateNonces,
		estimator:     estimator,
		chainID:       chainID,
		logger:        logger,
	}
}

// Build assembles an unsigned transaction for req.
//
// Parameters:
//   - ctx: Context for the nonce and estimation calls
//   - req: The transaction request
//
// Returns:
//   - *transaction.UnsignedTransaction: The assembled transaction
//   - error: ErrConflictingPrivacyFields before any network call, or an account resolution
//     error if the nonce cannot be fetched
func (b *Builder) Build(ctx context.Context, req *Request) (*transaction.UnsignedTransaction, error) {
	if err := req.Privacy.Validate(); err != nil {
		return nil, err
	}

	nonce, err := b.nonce(ctx, req)
	if err != nil {
		return nil, err
	}

	gas := b.estimator.Estimate(ctx, ethereum.CallMsg{
		From:     req.From,
		To:       req.To,
		GasPrice: big.NewInt(0),
		Value:    big.NewInt(0),
		Data:     req.Data,
	}, req.FallbackGas)

	tx := &transaction.UnsignedTransaction{
		From:     req.From,
		Nonce:    nonce,
		To:       req.To,
		Value:    big.NewInt(0),
		Data:     req.Data,
		GasLimit: gas,
		GasPrice: big.NewInt(0),
		Privacy:  req.Privacy,
	}
	if b.chainID != nil && b.chainID.Sign() > 0 {
		tx.ChainID = new(big.Int).Set(b.chainID)
	}

	b.logger.Sugar().Debugw("Built unsigned transaction",
		zap.String("from", tx.From.String()),
		zap.Uint64("nonce", tx.Nonce),
		zap.Uint64("gasLimit", tx.GasLimit),
		zap.Bool("contractCreation", tx.IsContractCreation()),
		zap.Bool("private", tx.IsPrivate()),
	)
	return tx, nil
}

func (b *Builder) nonce(ctx context.Context, req *Request) (uint64, error) {
	if req.Privacy == nil {
		nonce, err := b.nonces.PendingNonceAt(ctx, req.From)
		if err != nil {
			return 0, fmt.Errorf("%w: failed to get nonce for %s: %v", transaction.ErrAccountResolution, req.From.Hex(), err)
		}
		return nonce, nil
	}

	if b.privateNonces == nil {
		return 0, transaction.ErrPrivateTransactionUnsupported
	}
	nonce, err := b.privateNonces.PrivateNonce(ctx, req.From, req.Privacy)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get private nonce for %s: %v", transaction.ErrAccountResolution, req.From.Hex(), err)
	}
	return nonce, nil
}
