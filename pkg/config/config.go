// Package config defines the deploy-transact configuration. Values come from command line
// flags, then an optional YAML or JSON file with DEPLOY_TRANSACT_ environment overrides,
// then defaults. The configuration is built once and handed to each component.
package config

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/Layr-Labs/deploy-transact-go/pkg/chainManager"
	"github.com/Layr-Labs/deploy-transact-go/pkg/contracts"
	"github.com/Layr-Labs/deploy-transact-go/pkg/privacy"
	"github.com/Layr-Labs/deploy-transact-go/pkg/secrets"
	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/Layr-Labs/deploy-transact-go/pkg/transactor"
	"github.com/Layr-Labs/deploy-transact-go/pkg/txSigner"
	"github.com/Layr-Labs/deploy-transact-go/pkg/util"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DEPLOY_TRANSACT_NODE_RPC_URL.
const EnvPrefix = "DEPLOY_TRANSACT"

type Config struct {
	Debug         bool                `mapstructure:"debug"`
	Node          NodeConfig          `mapstructure:"node"`
	Signer        SignerConfig        `mapstructure:"signer"`
	LocalKeystore LocalKeystoreConfig `mapstructure:"local_keystore"`
	HDWallet      HDWalletConfig      `mapstructure:"hd_wallet"`
	KMS           KMSConfig           `mapstructure:"kms"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
	Contract      ContractConfig      `mapstructure:"contract"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Secrets       SecretsConfig       `mapstructure:"secrets"`
}

type NodeConfig struct {
	RPCUrl string `mapstructure:"rpc_url"`
	// ChainID of 0 means no replay protection
	ChainID uint64 `mapstructure:"chain_id"`
}

type SignerConfig struct {
	Backend string `mapstructure:"backend"`
}

type LocalKeystoreConfig struct {
	Dir string `mapstructure:"dir"`
}

type HDWalletConfig struct {
	URL          string        `mapstructure:"url"`
	WalletID     string        `mapstructure:"wallet_id"`
	AccountIndex uint32        `mapstructure:"account_index"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type KMSConfig struct {
	KeyID      string `mapstructure:"key_id"`
	KeyVersion string `mapstructure:"key_version"`
	Region     string `mapstructure:"region"`
	Endpoint   string `mapstructure:"endpoint"`
}

type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PluginPath string `mapstructure:"plugin_path"`
	AccountKey string `mapstructure:"account_key"`
}

type PrivacyConfig struct {
	PrivateFrom    string        `mapstructure:"private_from"`
	PrivateFor     []string      `mapstructure:"private_for"`
	PrivacyGroupId string        `mapstructure:"privacy_group_id"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	PollAttempts   int           `mapstructure:"poll_attempts"`
}

type ContractConfig struct {
	Dir  string `mapstructure:"dir"`
	Name string `mapstructure:"name"`
	Solc string `mapstructure:"solc"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

type SecretsConfig struct {
	// Region of the Secrets Manager holding awssm: references
	Region string `mapstructure:"region"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("node.rpc_url", "")
	v.SetDefault("node.chain_id", 0)

	v.SetDefault("signer.backend", txSigner.BackendLocalKeystore)

	v.SetDefault("local_keystore.dir", "")

	v.SetDefault("hd_wallet.url", "")
	v.SetDefault("hd_wallet.wallet_id", "")
	v.SetDefault("hd_wallet.account_index", 0)
	v.SetDefault("hd_wallet.timeout", txSigner.DefaultHDWalletTimeout)

	v.SetDefault("kms.key_id", "")
	v.SetDefault("kms.key_version", "")
	v.SetDefault("kms.region", "")
	v.SetDefault("kms.endpoint", "")

	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.plugin_path", txSigner.DefaultVaultPluginPath)
	v.SetDefault("vault.account_key", "")

	v.SetDefault("privacy.private_from", "")
	v.SetDefault("privacy.private_for", []string{})
	v.SetDefault("privacy.privacy_group_id", "")
	v.SetDefault("privacy.poll_interval", privacy.DefaultPollInterval)
	v.SetDefault("privacy.poll_attempts", privacy.DefaultPollAttempts)

	v.SetDefault("contract.dir", "contracts")
	v.SetDefault("contract.name", contracts.DefaultContractName)
	v.SetDefault("contract.solc", "solc")

	v.SetDefault("metrics.pushgateway_url", "")

	v.SetDefault("secrets.region", "")
}

// Load reads the configuration from path, when not empty, and from the environment.
//
// Parameters:
//   - path: Optional configuration file; the format follows its extension
//
// Returns:
//   - *Config: The loaded configuration with defaults applied
//   - error: An error wrapping transaction.ErrConfiguration if the file cannot be read or decoded
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read config file %s: %v", transaction.ErrConfiguration, path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: unable to decode config: %v", transaction.ErrConfiguration, err)
	}
	return cfg, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", transaction.ErrConfiguration, field)
}

// Validate checks that the credentials of the selected backend are present. Secret
// references must be resolved first for the check to be meaningful.
func (c *Config) Validate() error {
	var errs []error
	if c.Node.RPCUrl == "" {
		errs = append(errs, missing("node rpc url"))
	}
	if !slices.Contains(txSigner.Backends, c.Signer.Backend) {
		errs = append(errs, fmt.Errorf("%w: unknown signer backend %q, expected one of %s",
			transaction.ErrConfiguration, c.Signer.Backend, strings.Join(txSigner.Backends, ", ")))
	}

	switch c.Signer.Backend {
	case txSigner.BackendHDWallet:
		if c.HDWallet.URL == "" {
			errs = append(errs, missing("hd wallet url"))
		}
		if c.HDWallet.WalletID == "" {
			errs = append(errs, missing("hd wallet id"))
		}
	case txSigner.BackendKMS:
		if c.KMS.KeyID == "" {
			errs = append(errs, missing("kms key id"))
		}
		if c.KMS.Region == "" {
			errs = append(errs, missing("kms region"))
		}
	case txSigner.BackendVault:
		if c.Vault.Address == "" {
			errs = append(errs, missing("vault url"))
		}
		if c.Vault.Token == "" {
			errs = append(errs, missing("vault token"))
		}
	}

	if p := c.PrivacyFields(); p != nil {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", transaction.ErrConfiguration, err))
		}
		if p.PrivateFrom == "" {
			errs = append(errs, missing("private from"))
		}
		if len(p.PrivateFor) == 0 && p.PrivacyGroupId == "" {
			errs = append(errs, missing("private for or privacy group id"))
		}
	}
	return errors.Join(errs...)
}

// ResolveSecrets replaces awssm: references in credential fields using resolver.
func (c *Config) ResolveSecrets(ctx context.Context, resolver *secrets.Resolver) error {
	if err := resolver.ResolveAll(ctx,
		&c.Vault.Token,
		&c.Vault.Address,
		&c.HDWallet.URL,
		&c.HDWallet.WalletID,
		&c.KMS.KeyID,
	); err != nil {
		return fmt.Errorf("%w: %v", transaction.ErrConfiguration, err)
	}
	return nil
}

// HasSecretReferences reports whether any credential field holds an awssm: reference.
func (c *Config) HasSecretReferences() bool {
	return slices.ContainsFunc([]string{
		c.Vault.Token,
		c.Vault.Address,
		c.HDWallet.URL,
		c.HDWallet.WalletID,
		c.KMS.KeyID,
	}, secrets.IsReference)
}

// ChainConfig returns the node connection settings.
func (c *Config) ChainConfig() *chainManager.ChainConfig {
	cfg := &chainManager.ChainConfig{RPCUrl: c.Node.RPCUrl}
	if c.Node.ChainID != 0 {
		cfg.ChainID = new(big.Int).SetUint64(c.Node.ChainID)
	}
	return cfg
}

// SignerConfig returns the signer backend settings.
func (c *Config) SignerConfig() *txSigner.Config {
	return &txSigner.Config{
		Backend: c.Signer.Backend,
		LocalKeystore: &txSigner.LocalKeystoreConfig{
			Dir: c.LocalKeystore.Dir,
		},
		HDWallet: &txSigner.HDWalletConfig{
			URL:          c.HDWallet.URL,
			WalletID:     c.HDWallet.WalletID,
			AccountIndex: c.HDWallet.AccountIndex,
			Timeout:      c.HDWallet.Timeout,
		},
		KMS: &txSigner.KMSConfig{
			KeyID:      c.KMS.KeyID,
			KeyVersion: c.KMS.KeyVersion,
			Region:     c.KMS.Region,
			Endpoint:   c.KMS.Endpoint,
		},
		Vault: &txSigner.VaultConfig{
			Address:    c.Vault.Address,
			Token:      c.Vault.Token,
			PluginPath: c.Vault.PluginPath,
			AccountKey: c.Vault.AccountKey,
		},
	}
}

// PrivacyFields returns the configured privacy addressing, or nil for public transactions.
func (c *Config) PrivacyFields() *transaction.PrivacyFields {
	p := c.Privacy
	privateFor := util.Filter(p.PrivateFor, func(key string) bool {
		return strings.TrimSpace(key) != ""
	})
	if p.PrivateFrom == "" && len(privateFor) == 0 && p.PrivacyGroupId == "" {
		return nil
	}
	return &transaction.PrivacyFields{
		PrivateFrom:    p.PrivateFrom,
		PrivateFor:     privateFor,
		PrivacyGroupId: p.PrivacyGroupId,
	}
}

// TransactorConfig returns the pipeline settings.
func (c *Config) TransactorConfig() *transactor.TransactorConfig {
	return &transactor.TransactorConfig{
		ContractName: c.Contract.Name,
		Privacy:      c.PrivacyFields(),
		PrivacyPolling: &privacy.Config{
			PollInterval: c.Privacy.PollInterval,
			PollAttempts: c.Privacy.PollAttempts,
		},
	}
}
