// Package transactor runs the signing pipeline for one invocation: resolve the signing
// account, build the transaction, sign it and submit it, or route it through the
// private transaction adapter when privacy fields are configured.
package transactor

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Layr-Labs/deploy-transact-go/pkg/chainManager"
	"github.com/Layr-Labs/deploy-transact-go/pkg/contracts"
	"github.com/Layr-Labs/deploy-transact-go/pkg/gasEstimator"
	"github.com/Layr-Labs/deploy-transact-go/pkg/metrics"
	"github.com/Layr-Labs/deploy-transact-go/pkg/privacy"
	"github.com/Layr-Labs/deploy-transact-go/pkg/submitter"
	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/Layr-Labs/deploy-transact-go/pkg/txBuilder"
	"github.com/Layr-Labs/deploy-transact-go/pkg/txSigner"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// ArtifactLoader returns compiled contracts by name.
type ArtifactLoader interface {
	Load(ctx context.Context, name string) (*contracts.Artifact, error)
}

// TransactorConfig holds the per-invocation settings of the pipeline.
type TransactorConfig struct {
	// ContractName is the contract loaded for deploy, set and query
	ContractName string
	// Privacy routes every transaction through the private transaction adapter when set
	Privacy *transaction.PrivacyFields
	// PrivacyPolling configures private receipt polling
	PrivacyPolling *privacy.Config
}

// Transactor wires the pipeline components for one chain and one signer.
type Transactor struct {
	config    *TransactorConfig
	client    chainManager.EthClientInterface
	signer    txSigner.ITransactionSigner
	builder   *txBuilder.Builder
	submitter *submitter.Submitter
	privacy   *privacy.Adapter
	contracts ArtifactLoader
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewTransactor creates a Transactor.
//
// Parameters:
//   - cfg: The pipeline configuration
//   - chain: The connected chain
//   - signer: The signing backend
//   - loader: The contract artifact loader
//   - m: Metrics for this invocation, may be nil
//   - logger: Logger for pipeline operations
//
// Returns:
//   - *Transactor: The pipeline
//   - error: An error wrapping transaction.ErrConflictingPrivacyFields for invalid privacy fields
func NewTransactor(
	cfg *TransactorConfig,
	chain *chainManager.Chain,
	signer txSigner.ITransactionSigner,
	loader ArtifactLoader,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*Transactor, error) {
	if cfg == nil {
		cfg = &TransactorConfig{}
	}
	if cfg.ContractName == "" {
		cfg.ContractName = contracts.DefaultContractName
	}
	if err := cfg.Privacy.Validate(); err != nil {
		return nil, err
	}

	adapter := privacy.NewAdapter(chain.RawClient, cfg.PrivacyPolling, logger)
	var privateNonces txBuilder.PrivateNonceSource
	if signer.SupportsPrivacy() {
		privateNonces = adapter
	}

	estimator := gasEstimator.NewEstimator(chain.RPCClient, logger, m)
	return &Transactor{
		config:    cfg,
		client:    chain.RPCClient,
		signer:    signer,
		builder:   txBuilder.NewBuilder(chain.RPCClient, privateNonces, estimator, chain.ChainID(), logger),
		submitter: submitter.NewSubmitter(chain.RPCClient, logger),
		privacy:   adapter,
		contracts: loader,
		metrics:   m,
		logger:    logger,
	}, nil
}

// Account resolves the signing account of the configured backend.
func (t *Transactor) Account(ctx context.Context) (*transaction.Account, error) {
	return t.signer.ResolveAccount(ctx)
}

// Deploy deploys the configured contract with args as constructor arguments, or with
// contracts.DefaultInitialValue when no args are given.
func (t *Transactor) Deploy(ctx context.Context, args ...interface{}) (*transaction.Receipt, error) {
	artifact, err := t.contracts.Load(ctx, t.config.ContractName)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract %s: %w", t.config.ContractName, err)
	}
	if len(args) == 0 {
		args = []interface{}{new(big.Int).Set(contracts.DefaultInitialValue)}
	}
	data, err := artifact.DeployData(args...)
	if err != nil {
		return nil, err
	}

	t.logger.Sugar().Infow("Deploying contract", zap.String("contract", t.config.ContractName))
	receipt, err := t.execute(ctx, nil, data, "deploy")
	if err != nil {
		return nil, err
	}
	if receipt.ContractAddress != nil {
		t.logger.Sugar().Infow("Contract deployed, ready to take calls",
			zap.String("contractAddress", receipt.ContractAddress.String()),
		)
	}
	return receipt, nil
}

// Transact calls method on the contract at contract with args.
func (t *Transactor) Transact(ctx context.Context, contract common.Address, method string, args ...interface{}) (*transaction.Receipt, error) {
	artifact, err := t.contracts.Load(ctx, t.config.ContractName)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract %s: %w", t.config.ContractName, err)
	}
	data, err := artifact.CallData(method, args...)
	if err != nil {
		return nil, err
	}
	return t.execute(ctx, &contract, data, method)
}

// Set stores value through the contract's mutator.
func (t *Transactor) Set(ctx context.Context, contract common.Address, value *big.Int) (*transaction.Receipt, error) {
	receipt, err := t.Transact(ctx, contract, contracts.MutatorMethod, value)
	if err != nil {
		return nil, err
	}
	t.logger.Sugar().Infow("Set new value", zap.String("value", value.String()))
	return receipt, nil
}

// Query reads the contract state through its accessor. Public queries use eth_call;
// private queries are private transactions whose receipt output carries the result.
func (t *Transactor) Query(ctx context.Context, contract common.Address) ([]interface{}, error) {
	artifact, err := t.contracts.Load(ctx, t.config.ContractName)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract %s: %w", t.config.ContractName, err)
	}
	accessor, err := artifact.Accessor()
	if err != nil {
		return nil, err
	}
	data, err := artifact.CallData(accessor)
	if err != nil {
		return nil, err
	}

	t.logger.Sugar().Infow("Calling contract for current state",
		zap.String("contractAddress", contract.String()),
		zap.String("method", accessor),
	)

	var output []byte
	if t.config.Privacy != nil {
		receipt, err := t.execute(ctx, &contract, data, accessor)
		if err != nil {
			return nil, err
		}
		output = receipt.Output
	} else {
		output, err = t.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to call %s: %w", accessor, err)
		}
	}
	return artifact.Unpack(accessor, output)
}

// Simulate runs method with args through eth_call from the signing account without
// submitting a transaction, and returns the decoded output. Private state cannot be
// simulated this way.
func (t *Transactor) Simulate(ctx context.Context, contract common.Address, method string, args ...interface{}) ([]interface{}, error) {
	if t.config.Privacy != nil {
		return nil, fmt.Errorf("%w: private transactions cannot be simulated", transaction.ErrPrivateTransactionUnsupported)
	}
	artifact, err := t.contracts.Load(ctx, t.config.ContractName)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract %s: %w", t.config.ContractName, err)
	}
	data, err := artifact.CallData(method, args...)
	if err != nil {
		return nil, err
	}
	account, err := t.signer.ResolveAccount(ctx)
	if err != nil {
		return nil, err
	}

	output, err := t.client.CallContract(ctx, ethereum.CallMsg{From: account.Address, To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to simulate %s: %w", method, err)
	}
	t.logger.Sugar().Infow("Simulated transaction",
		zap.String("contractAddress", contract.String()),
		zap.String("method", method),
		zap.String("output", hexutil.Encode(output)),
	)
	return artifact.Unpack(method, output)
}

// execute runs the public or private pipeline for one transaction.
func (t *Transactor) execute(ctx context.Context, to *common.Address, data []byte, tag string) (*transaction.Receipt, error) {
	private := t.config.Privacy != nil
	if private && !t.signer.SupportsPrivacy() {
		return nil, fmt.Errorf("%w: %s", transaction.ErrPrivateTransactionUnsupported, t.signer.Name())
	}

	account, err := t.signer.ResolveAccount(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := t.builder.Build(ctx, &txBuilder.Request{
		From:        account.Address,
		To:          to,
		Data:        data,
		Privacy:     t.config.Privacy,
		FallbackGas: t.signer.GasDefaults().For(to == nil),
	})
	if err != nil {
		return nil, err
	}

	if private {
		receipt, err := t.sendPrivate(ctx, tx)
		t.metrics.ObserveSubmission(metrics.KindPrivate, err)
		return receipt, err
	}

	started := time.Now()
	signed, err := t.signer.SignTransaction(ctx, tx, account)
	t.metrics.ObserveSignature(t.signer.Name(), started, err)
	if err != nil {
		return nil, err
	}

	receipt, err := t.submitter.Submit(ctx, signed, tag)
	t.metrics.ObserveSubmission(metrics.KindPublic, err)
	return receipt, err
}

func (t *Transactor) sendPrivate(ctx context.Context, tx *transaction.UnsignedTransaction) (*transaction.Receipt, error) {
	hash, err := t.privacy.Send(ctx, tx)
	if err != nil {
		return nil, err
	}
	return t.privacy.WaitForReceipt(ctx, hash, tx.Privacy.PrivateFrom)
}

// FindPrivacyGroups returns the privacy groups whose members are exactly addresses.
func (t *Transactor) FindPrivacyGroups(ctx context.Context, addresses []string) ([]privacy.PrivacyGroup, error) {
	return t.privacy.FindPrivacyGroups(ctx, addresses)
}

// CreatePrivacyGroup creates a privacy group and returns its id.
func (t *Transactor) CreatePrivacyGroup(ctx context.Context, addresses []string, name, description string) (string, error) {
	return t.privacy.CreatePrivacyGroup(ctx, addresses, name, description)
}

// DeletePrivacyGroup deletes a privacy group.
func (t *Transactor) DeletePrivacyGroup(ctx context.Context, id string) (string, error) {
	return t.privacy.DeletePrivacyGroup(ctx, id)
}
