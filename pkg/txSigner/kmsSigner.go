package txSigner

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/deploy-transact-go/pkg/recoveryId"
	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"go.uber.org/zap"
)

// KeyManagementClient is the key management service consumed by KMSSigner. The private key
// never leaves the service; only the public point and detached signatures are returned.
type KeyManagementClient interface {
	// GetPublicKey returns the affine coordinates of the key's public point.
	GetPublicKey(ctx context.Context, keyID, version string) (x, y []byte, err error)
	// Sign signs a 32-byte digest and returns the 64-byte r || s signature with low s.
	Sign(ctx context.Context, keyID, version string, digest []byte) ([]byte, error)
}

// KMSConfig holds the configuration for the cloud KMS backend.
type KMSConfig struct {
	// KeyID is the key id or ARN
	KeyID string
	// KeyVersion selects a key version where the service supports versions
	KeyVersion string
	// Region is the region the key lives in
	Region string
	// Endpoint overrides the service endpoint, e.g. for a local KMS emulator
	Endpoint string
}

// KMSSigner signs transaction hashes with a remote key management service and completes
// the detached signature by resolving its recovery id.
type KMSSigner struct {
	client  KeyManagementClient
	keyID   string
	version string
	logger  *zap.Logger
}

// NewKMSSigner creates a KMSSigner for the configured key.
//
// Parameters:
//   - cfg: The KMS configuration
//   - client: The key management client
//   - logger: Logger for signing operations
//
// Returns:
//   - *KMSSigner: A new KMS signer instance
//   - error: An error wrapping transaction.ErrConfiguration if no key id is configured
func NewKMSSigner(cfg *KMSConfig, client KeyManagementClient, logger *zap.Logger) (*KMSSigner, error) {
	if cfg == nil || cfg.KeyID == "" {
		return nil, fmt.Errorf("%w: kms key id is required", transaction.ErrConfiguration)
	}
	return &KMSSigner{
		client:  client,
		keyID:   cfg.KeyID,
		version: cfg.KeyVersion,
		logger:  logger,
	}, nil
}

func (k *KMSSigner) Name() string {
	return BackendKMS
}

func (k *KMSSigner) GasDefaults() GasDefaults {
	return GasDefaults{Create: 700000, Call: 500000}
}

func (k *KMSSigner) SupportsPrivacy() bool {
	return false
}

// ResolveAccount derives the account address from the key's public point.
func (k *KMSSigner) ResolveAccount(ctx context.Context) (*transaction.Account, error) {
	x, y, err := k.client.GetPublicKey(ctx, k.keyID, k.version)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get public key from KMS: %v", transaction.ErrAccountResolution, err)
	}
	address := recoveryId.AddressFromPoint(x, y)

	k.logger.Sugar().Infow("Resolved KMS account",
		zap.String("keyId", k.keyID),
		zap.String("address", address.String()),
	)
	return &transaction.Account{
		Address:   address,
		KeyHandle: k.keyID,
	}, nil
}

// SignTransaction sends the signing hash of tx to the KMS and resolves the recovery id of
// the returned (r, s) against the account address.
func (k *KMSSigner) SignTransaction(ctx context.Context, tx *transaction.UnsignedTransaction, account *transaction.Account) (*transaction.SignedTransaction, error) {
	if account == nil || account.Address != tx.From {
		return nil, fmt.Errorf("%w: transaction sender does not match the KMS account", transaction.ErrSigningService)
	}

	hash := tx.SigningHash()
	sig, err := k.client.Sign(ctx, k.keyID, k.version, hash.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: KMS signing failed: %v", transaction.ErrSigningService, err)
	}
	if len(sig) != 64 {
		return nil, fmt.Errorf("%w: KMS returned a %d byte signature", transaction.ErrSigningService, len(sig))
	}

	var r, s [32]byte
	copy(r[:], sig[0:32])
	copy(s[:], sig[32:64])

	signed, err := recoveryId.Finalize(tx, r, s)
	if err != nil {
		return nil, err
	}
	k.logger.Sugar().Debugw("Resolved recovery id",
		zap.Uint8("recoveryId", *signed.Signature.RecoveryId),
		zap.String("hash", signed.Hash.String()),
	)
	return signed, nil
}
