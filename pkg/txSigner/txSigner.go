// Package txSigner provides transaction signing backends for deploy-transact.
// Every backend resolves the account it signs for and turns an unsigned transaction into
// a signed one, either by signing locally with a key it holds, by sending the transaction
// hash to a remote key manager, or by handing the whole transaction to a remote signer.
package txSigner

import (
	"context"
	"fmt"
	"strings"

	"github.com/Layr-Labs/deploy-transact-go/pkg/chainManager"
	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"go.uber.org/zap"
)

const (
	BackendLocalKeystore = "local-keystore"
	BackendHDWallet      = "hd-wallet"
	BackendKMS           = "kms"
	BackendVault         = "vault"
	BackendNode          = "node"
)

// Backends lists every supported backend name.
var Backends = []string{BackendLocalKeystore, BackendHDWallet, BackendKMS, BackendVault, BackendNode}

// backendRequirements notes what a backend needs from its environment.
var backendRequirements = map[string]string{
	BackendNode: "the node must serve eth_signTransaction for an unlocked account",
}

// BackendUsage lists the backend names for help output, with their requirements.
func BackendUsage() string {
	names := make([]string, len(Backends))
	for i, b := range Backends {
		names[i] = b
		if req, ok := backendRequirements[b]; ok {
			names[i] = fmt.Sprintf("%s (%s)", b, req)
		}
	}
	return strings.Join(names, ", ")
}

// GasDefaults are the gas limits used when the node cannot estimate a transaction.
type GasDefaults struct {
	// Create is used for contract deployments
	Create uint64
	// Call is used for calls to an existing contract
	Call uint64
}

// For returns the default matching the kind of transaction.
func (g GasDefaults) For(contractCreation bool) uint64 {
	if contractCreation {
		return g.Create
	}
	return g.Call
}

// ITransactionSigner defines the interface implemented by every signing backend.
// Backends are selected once at startup by New and are not safe for concurrent reuse
// across unrelated accounts.
type ITransactionSigner interface {
	// Name returns the backend name used in logs and metrics.
	Name() string

	// ResolveAccount returns the account this backend signs for.
	//
	// Parameters:
	//   - ctx: Context for any remote lookup
	//
	// Returns:
	//   - *transaction.Account: The signing account
	//   - error: An error wrapping transaction.ErrAccountResolution if no account is available
	ResolveAccount(ctx context.Context) (*transaction.Account, error)

	// SignTransaction signs tx on behalf of account.
	//
	// Parameters:
	//   - ctx: Context for any remote signing call
	//   - tx: The unsigned transaction, not modified
	//   - account: The account returned by ResolveAccount
	//
	// Returns:
	//   - *transaction.SignedTransaction: The signed transaction ready for submission
	//   - error: An error wrapping transaction.ErrSigningService or transaction.ErrRecoveryIdNotFound
	SignTransaction(ctx context.Context, tx *transaction.UnsignedTransaction, account *transaction.Account) (*transaction.SignedTransaction, error)

	// GasDefaults returns the fallback gas limits for this backend.
	GasDefaults() GasDefaults

	// SupportsPrivacy reports whether private transactions can be sent through this backend.
	SupportsPrivacy() bool
}

// Config selects and configures a backend. Only the section matching Backend is read.
type Config struct {
	Backend       string
	LocalKeystore *LocalKeystoreConfig
	HDWallet      *HDWalletConfig
	KMS           *KMSConfig
	Vault         *VaultConfig
}

// New creates the backend selected by cfg.Backend.
//
// Parameters:
//   - cfg: The signer configuration
//   - chain: The connected chain, used by the node backend
//   - logger: Logger for backend operations
//
// Returns:
//   - ITransactionSigner: The selected backend
//   - error: An error wrapping transaction.ErrConfiguration if the backend is unknown or
//     its section is missing
func New(cfg *Config, chain *chainManager.Chain, logger *zap.Logger) (ITransactionSigner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: missing signer configuration", transaction.ErrConfiguration)
	}
	switch cfg.Backend {
	case BackendLocalKeystore, "":
		return NewLocalKeystoreSigner(cfg.LocalKeystore, logger)
	case BackendHDWallet:
		return NewHDWalletSigner(cfg.HDWallet, logger)
	case BackendKMS:
		if cfg.KMS == nil {
			return nil, fmt.Errorf("%w: missing kms configuration", transaction.ErrConfiguration)
		}
		client, err := NewAWSKMSClient(cfg.KMS.Region, cfg.KMS.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", transaction.ErrConfiguration, err)
		}
		return NewKMSSigner(cfg.KMS, client, logger)
	case BackendVault:
		return NewVaultSigner(cfg.Vault, logger)
	case BackendNode:
		if chain == nil || chain.RawClient == nil {
			return nil, fmt.Errorf("%w: node backend requires a node connection", transaction.ErrConfiguration)
		}
		return NewNodeSigner(chain.RawClient, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown signer backend %q", transaction.ErrConfiguration, cfg.Backend)
	}
}
