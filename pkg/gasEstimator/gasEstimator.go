// Package gasEstimator estimates gas limits for unsigned transactions. Estimation never
// fails: when the node cannot estimate, the backend's fallback limit is used instead.
package gasEstimator

import (
	"context"
	"math"
	"math/bits"

	"github.com/Layr-Labs/deploy-transact-go/pkg/metrics"
	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"
)

// GasEstimatorClient is the subset of the node client used for estimation.
type GasEstimatorClient interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// Estimator inflates node estimates by a safety margin and substitutes a fallback on failure.
type Estimator struct {
	client  GasEstimatorClient
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewEstimator creates an Estimator. m may be nil.
func NewEstimator(client GasEstimatorClient, logger *zap.Logger, m *metrics.Metrics) *Estimator {
	return &Estimator{
		client:  client,
		logger:  logger,
		metrics: m,
	}
}

// Estimate returns the inflated node estimate for msg, or fallback if the node rejects the
// estimation for any reason.
func (e *Estimator) Estimate(ctx context.Context, msg ethereum.CallMsg, fallback uint64) uint64 {
	raw, err := e.client.EstimateGas(ctx, msg)
	if err != nil {
		e.logger.Sugar().Warnw("Gas estimation failed, using fallback gas limit",
			zap.String("from", msg.From.String()),
			zap.Bool("contractCreation", msg.To == nil),
			zap.Uint64("fallback", fallback),
			zap.Error(err),
		)
		e.metrics.IncGasFallback()
		return fallback
	}
	gas := Inflate(raw)
	e.logger.Sugar().Debugw("Estimated gas",
		zap.Uint64("estimate", raw),
		zap.Uint64("gasLimit", gas),
	)
	return gas
}

// Inflate adds a 10% safety margin to raw, rounded up. The result saturates at
// math.MaxUint64.
func Inflate(raw uint64) uint64 {
	margin := raw/10
	if raw%10 != 0 {
		margin++
	}
	gas, carry := bits.Add64(raw, margin, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return gas
}
