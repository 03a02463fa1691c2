// Package privacy adapts the pipeline to the private transaction RPC methods of a
// permissioned network: private nonces, private submission, private receipt polling and
// privacy group management. No group state is cached locally.
package privacy

import (
	"context"
	"fmt"
	"time"

	"github.com/Layr-Labs/deploy-transact-go/pkg/chainManager"
	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval = time.Second
	DefaultPollAttempts = 60

	// RestrictionRestricted keeps the private payload on participant nodes only
	RestrictionRestricted = "restricted"
)

// Config holds the private receipt polling configuration.
type Config struct {
	// PollInterval is the delay between two receipt queries
	PollInterval time.Duration
	// PollAttempts is the number of receipt queries before giving up
	PollAttempts int
}

// PrivacyGroup describes a group returned by the node.
type PrivacyGroup struct {
	PrivacyGroupId string   `json:"privacyGroupId"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Type           string   `json:"type"`
	Members        []string `json:"members"`
}

type privateReceipt struct {
	TransactionHash common.Hash     `json:"transactionHash"`
	ContractAddress *common.Address `json:"contractAddress"`
	Status          hexutil.Uint64  `json:"status"`
	Output          hexutil.Bytes   `json:"output"`
}

// Adapter issues private transaction RPC calls over the node connection.
type Adapter struct {
	rpc          chainManager.RPCCaller
	pollInterval time.Duration
	pollAttempts int
	logger       *zap.Logger
}

// NewAdapter creates an Adapter. A nil cfg uses the default polling configuration.
func NewAdapter(rpc chainManager.RPCCaller, cfg *Config, logger *zap.Logger) *Adapter {
	a := &Adapter{
		rpc:          rpc,
		pollInterval: DefaultPollInterval,
		pollAttempts: DefaultPollAttempts,
		logger:       logger,
	}
	if cfg != nil {
		if cfg.PollInterval > 0 {
			a.pollInterval = cfg.PollInterval
		}
		if cfg.PollAttempts > 0 {
			a.pollAttempts = cfg.PollAttempts
		}
	}
	return a
}

// PrivateNonce returns the private transaction count of from, scoped to the privacy group
// or to the private-from/private-for set. It is independent of the public nonce.
func (a *Adapter) PrivateNonce(ctx context.Context, from common.Address, privacy *transaction.PrivacyFields) (uint64, error) {
	if privacy == nil {
		return 0, fmt.Errorf("%w: missing privacy fields", transaction.ErrConfiguration)
	}
	if err := privacy.Validate(); err != nil {
		return 0, err
	}

	var nonce hexutil.Uint64
	var err error
	if privacy.UsesGroup() {
		err = a.rpc.CallContext(ctx, &nonce, "priv_getTransactionCount", from, privacy.PrivacyGroupId)
	} else {
		err = a.rpc.CallContext(ctx, &nonce, "priv_getEeaTransactionCount", from, privacy.PrivateFrom, privacy.PrivateFor)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get private transaction count: %w", err)
	}
	return uint64(nonce), nil
}

// sendArgs renders tx in the eea_sendTransaction parameter shape.
func sendArgs(tx *transaction.UnsignedTransaction) map[string]interface{} {
	args := map[string]interface{}{
		"from":        tx.From,
		"data":        hexutil.Bytes(tx.Data),
		"gas":         hexutil.Uint64(tx.GasLimit),
		"gasPrice":    hexutil.Uint64(0),
		"nonce":       hexutil.Uint64(tx.Nonce),
		"privateFrom": tx.Privacy.PrivateFrom,
		"restriction": RestrictionRestricted,
	}
	if tx.To != nil {
		args["to"] = tx.To
	}
	if tx.Privacy.UsesGroup() {
		args["privacyGroupId"] = tx.Privacy.PrivacyGroupId
	} else {
		args["privateFor"] = tx.Privacy.PrivateFor
	}
	return args
}

// Send submits a private transaction, which the node signs with its managed account, and
// returns the transaction hash.
func (a *Adapter) Send(ctx context.Context, tx *transaction.UnsignedTransaction) (common.Hash, error) {
	if !tx.IsPrivate() {
		return common.Hash{}, fmt.Errorf("%w: transaction has no privacy fields", transaction.ErrConfiguration)
	}
	if err := tx.Privacy.Validate(); err != nil {
		return common.Hash{}, err
	}

	var hash common.Hash
	if err := a.rpc.CallContext(ctx, &hash, "eea_sendTransaction", sendArgs(tx)); err != nil {
		return common.Hash{}, fmt.Errorf("%w: failed to send private transaction: %v", transaction.ErrSubmission, err)
	}
	a.logger.Sugar().Infow("Sent private transaction",
		zap.String("hash", hash.String()),
		zap.Bool("contractCreation", tx.IsContractCreation()),
	)
	return hash, nil
}

// WaitForReceipt polls for the private receipt of hash until it is available, the attempts
// are exhausted or ctx is done.
func (a *Adapter) WaitForReceipt(ctx context.Context, hash common.Hash, privateFrom string) (*transaction.Receipt, error) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		var r *privateReceipt
		if err := a.rpc.CallContext(ctx, &r, "priv_getTransactionReceipt", hash, privateFrom); err != nil {
			return nil, fmt.Errorf("%w: failed to get private receipt for %s: %v", transaction.ErrSubmission, hash.Hex(), err)
		}
		if r != nil {
			return a.toReceipt(hash, r)
		}
		if attempt >= a.pollAttempts {
			return nil, fmt.Errorf("%w: no private receipt for %s after %d attempts", transaction.ErrSubmission, hash.Hex(), attempt)
		}

		a.logger.Sugar().Debugw("Private receipt not yet available",
			zap.String("hash", hash.String()),
			zap.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", transaction.ErrSubmission, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (a *Adapter) toReceipt(hash common.Hash, r *privateReceipt) (*transaction.Receipt, error) {
	receipt := &transaction.Receipt{
		TransactionHash: hash,
		ContractAddress: r.ContractAddress,
		Status:          transaction.ReceiptStatusFailure,
		Output:          r.Output,
	}
	if r.Status == 1 {
		receipt.Status = transaction.ReceiptStatusSuccess
	}
	if receipt.Status != transaction.ReceiptStatusSuccess {
		return nil, fmt.Errorf("%w: private transaction %s", transaction.ErrTransactionFailed, hash.Hex())
	}
	return receipt, nil
}

// FindPrivacyGroups returns the groups whose members are exactly addresses.
func (a *Adapter) FindPrivacyGroups(ctx context.Context, addresses []string) ([]PrivacyGroup, error) {
	var groups []PrivacyGroup
	if err := a.rpc.CallContext(ctx, &groups, "priv_findPrivacyGroup", addresses); err != nil {
		return nil, fmt.Errorf("failed to find privacy groups: %w", err)
	}
	return groups, nil
}

// CreatePrivacyGroup creates a group and returns its id.
func (a *Adapter) CreatePrivacyGroup(ctx context.Context, addresses []string, name, description string) (string, error) {
	params := map[string]interface{}{
		"addresses": addresses,
	}
	if name != "" {
		params["name"] = name
	}
	if description != "" {
		params["description"] = description
	}

	var id string
	if err := a.rpc.CallContext(ctx, &id, "priv_createPrivacyGroup", params); err != nil {
		return "", fmt.Errorf("failed to create privacy group: %w", err)
	}
	a.logger.Sugar().Infow("Created privacy group", zap.String("privacyGroupId", id))
	return id, nil
}

// DeletePrivacyGroup deletes the group and returns the id reported by the node.
func (a *Adapter) DeletePrivacyGroup(ctx context.Context, id string) (string, error) {
	var deleted string
	if err := a.rpc.CallContext(ctx, &deleted, "priv_deletePrivacyGroup", id); err != nil {
		return "", fmt.Errorf("failed to delete privacy group %s: %w", id, err)
	}
	a.logger.Sugar().Infow("Deleted privacy group", zap.String("privacyGroupId", deleted))
	return deleted, nil
}
