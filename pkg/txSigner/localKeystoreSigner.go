package txSigner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// KeystoreFileName is the name of the account file inside the keystore directory
	KeystoreFileName = "local-account.json"
	// DefaultKeystoreDirName is the keystore directory under the user's home
	DefaultKeystoreDirName = ".web3keystore"

	// keystore files are protected by filesystem permissions only
	keystorePassphrase = ""
)

// LocalKeystoreConfig holds the configuration for the local keystore backend.
type LocalKeystoreConfig struct {
	// Dir is the keystore directory; defaults to ~/.web3keystore
	Dir string
	// ScryptN and ScryptP tune key encryption; default to keystore.StandardScryptN/P
	ScryptN int
	ScryptP int
}

// LocalKeystoreSigner signs with a key stored in an encrypted V3 keystore file. The key is
// generated and persisted on first use.
type LocalKeystoreSigner struct {
	path    string
	scryptN int
	scryptP int
	logger  *zap.Logger
}

// DefaultKeystoreDir returns ~/.web3keystore for the current user.
func DefaultKeystoreDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, DefaultKeystoreDirName), nil
}

// NewLocalKeystoreSigner creates a LocalKeystoreSigner. A nil cfg uses every default.
func NewLocalKeystoreSigner(cfg *LocalKeystoreConfig, logger *zap.Logger) (*LocalKeystoreSigner, error) {
	if cfg == nil {
		cfg = &LocalKeystoreConfig{}
	}
	dir := cfg.Dir
	if dir == "" {
		d, err := DefaultKeystoreDir()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", transaction.ErrConfiguration, err)
		}
		dir = d
	}
	s := &LocalKeystoreSigner{
		path:    filepath.Join(dir, KeystoreFileName),
		scryptN: cfg.ScryptN,
		scryptP: cfg.ScryptP,
		logger:  logger,
	}
	if s.scryptN == 0 {
		s.scryptN = keystore.StandardScryptN
	}
	if s.scryptP == 0 {
		s.scryptP = keystore.StandardScryptP
	}
	return s, nil
}

// Path returns the keystore file location.
func (s *LocalKeystoreSigner) Path() string {
	return s.path
}

func (s *LocalKeystoreSigner) Name() string {
	return BackendLocalKeystore
}

func (s *LocalKeystoreSigner) GasDefaults() GasDefaults {
	return GasDefaults{Create: 700000, Call: 500000}
}

func (s *LocalKeystoreSigner) SupportsPrivacy() bool {
	return false
}

// ResolveAccount loads the keystore account, generating and persisting a new one when the
// file does not exist. Concurrent first runs against the same directory are not guarded.
func (s *LocalKeystoreSigner) ResolveAccount(ctx context.Context) (*transaction.Account, error) {
	s.logger.Sugar().Infow("Loading local account from keystore", zap.String("path", s.path))

	keyJSON, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Sugar().Infow("Local account does not exist, generating a new one", zap.String("path", s.path))
		return s.generate()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read keystore %s: %v", transaction.ErrAccountResolution, s.path, err)
	}

	key, err := keystore.DecryptKey(keyJSON, keystorePassphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", transaction.ErrKeystoreCorrupt, s.path, err)
	}

	s.logger.Sugar().Infow("Found account in the keystore", zap.String("address", key.Address.String()))
	return &transaction.Account{
		Address:    key.Address,
		PrivateKey: key.PrivateKey,
	}, nil
}

func (s *LocalKeystoreSigner) generate() (*transaction.Account, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate key: %v", transaction.ErrAccountResolution, err)
	}
	key := &keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		PrivateKey: privateKey,
	}

	keyJSON, err := keystore.EncryptKey(key, keystorePassphrase, s.scryptN, s.scryptP)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encrypt key: %v", transaction.ErrAccountResolution, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: failed to create keystore directory: %v", transaction.ErrAccountResolution, err)
	}
	if err := os.WriteFile(s.path, keyJSON, 0o600); err != nil {
		return nil, fmt.Errorf("%w: failed to write keystore %s: %v", transaction.ErrAccountResolution, s.path, err)
	}

	s.logger.Sugar().Infow("Generated local account", zap.String("address", key.Address.String()))
	return &transaction.Account{
		Address:    key.Address,
		PrivateKey: privateKey,
	}, nil
}

func (s *LocalKeystoreSigner) SignTransaction(ctx context.Context, tx *transaction.UnsignedTransaction, account *transaction.Account) (*transaction.SignedTransaction, error) {
	return signWithPrivateKey(tx, account)
}
