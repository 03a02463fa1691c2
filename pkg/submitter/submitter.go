// Package submitter submits signed public transactions and waits for them to be mined.
package submitter

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// SubmitterClient is the subset of the node client used for submission.
type SubmitterClient interface {
	bind.DeployBackend
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Submitter sends signed transactions to the node. Failures are returned, never retried.
type Submitter struct {
	client SubmitterClient
	logger *zap.Logger
}

func NewSubmitter(client SubmitterClient, logger *zap.Logger) *Submitter {
	return &Submitter{
		client: client,
		logger: logger,
	}
}

// Submit sends signed and blocks until its receipt is available or ctx is done.
//
// Parameters:
//   - ctx: Context bounding the wait for the receipt
//   - signed: The signed transaction
//   - tag: A short description used in logs
//
// Returns:
//   - *transaction.Receipt: The receipt of the mined transaction
//   - error: An error wrapping transaction.ErrSubmission; transaction.ErrTransactionFailed
//     when the transaction was mined with a failure status
func (s *Submitter) Submit(ctx context.Context, signed *transaction.SignedTransaction, tag string) (*transaction.Receipt, error) {
	s.logger.Sugar().Infow("Submitting transaction",
		zap.String("tag", tag),
		zap.String("hash", signed.Hash.String()),
	)
	s.logger.Sugar().Debugw("Signed payload", zap.String("payload", signed.Payload()))

	if err := s.client.SendTransaction(ctx, signed.Tx); err != nil {
		return nil, fmt.Errorf("%w: failed to send transaction (%s): %v", transaction.ErrSubmission, tag, err)
	}

	receipt, err := s.ensureTransactionEvaled(ctx, signed.Tx, tag)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *Submitter) ensureTransactionEvaled(ctx context.Context, tx *types.Transaction, tag string) (*transaction.Receipt, error) {
	ethReceipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to wait for transaction (%s) to mine: %v", transaction.ErrSubmission, tag, err)
	}
	receipt := transaction.ReceiptFromEth(ethReceipt)
	if receipt.Status != transaction.ReceiptStatusSuccess {
		s.logger.Sugar().Errorw("Transaction failed",
			zap.String("tag", tag),
			zap.String("hash", receipt.TransactionHash.String()),
		)
		return nil, fmt.Errorf("%w: %s (%s)", transaction.ErrTransactionFailed, receipt.TransactionHash.Hex(), tag)
	}

	if tx.To() == nil {
		if err := s.ensureCodeDeployed(ctx, receipt.ContractAddress, tag); err != nil {
			return nil, err
		}
	}

	s.logger.Sugar().Infow("Transaction succeeded",
		zap.String("tag", tag),
		zap.String("hash", receipt.TransactionHash.String()),
	)
	return receipt, nil
}

func (s *Submitter) ensureCodeDeployed(ctx context.Context, address *common.Address, tag string) error {
	if address == nil {
		return fmt.Errorf("%w: receipt of deployment (%s) has no contract address", transaction.ErrTransactionFailed, tag)
	}
	code, err := s.client.CodeAt(ctx, *address, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to read code at %s: %v", transaction.ErrSubmission, address.Hex(), err)
	}
	if len(code) == 0 {
		return fmt.Errorf("%w: no contract code after deployment at %s", transaction.ErrTransactionFailed, address.Hex())
	}
	return nil
}
