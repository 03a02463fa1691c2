package txSigner

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/Layr-Labs/deploy-transact-go/pkg/util"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultVaultPluginPath is the mount path of the ethereum signing plugin.
const DefaultVaultPluginPath = "ethereum"

// VaultConfig holds the configuration for the Vault signing plugin backend.
type VaultConfig struct {
	// Address is the Vault server URL
	Address string
	// Token authenticates every request
	Token string
	// PluginPath is the plugin mount path; defaults to DefaultVaultPluginPath
	PluginPath string
	// AccountKey selects the plugin account. Required when the plugin holds more than one.
	AccountKey string
}

type vaultAccount struct {
	key     string
	address common.Address
}

// VaultSigner delegates signing to a Vault ethereum plugin. The plugin returns a fully
// signed transaction, which is used verbatim.
type VaultSigner struct {
	client     *vault.Client
	pluginPath string
	accountKey string
	logger     *zap.Logger
}

// NewVaultSigner creates a VaultSigner. The underlying client never retries.
func NewVaultSigner(cfg *VaultConfig, logger *zap.Logger) (*VaultSigner, error) {
	if cfg == nil || cfg.Address == "" || cfg.Token == "" {
		return nil, fmt.Errorf("%w: vault address and token are required", transaction.ErrConfiguration)
	}
	vaultCfg := vault.DefaultConfig()
	vaultCfg.Address = cfg.Address
	vaultCfg.MaxRetries = 0

	client, err := vault.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create vault client: %v", transaction.ErrConfiguration, err)
	}
	client.SetToken(cfg.Token)

	pluginPath := strings.Trim(cfg.PluginPath, "/")
	if pluginPath == "" {
		pluginPath = DefaultVaultPluginPath
	}
	return &VaultSigner{
		client:     client,
		pluginPath: pluginPath,
		accountKey: cfg.AccountKey,
		logger:     logger,
	}, nil
}

func (v *VaultSigner) Name() string {
	return BackendVault
}

func (v *VaultSigner) GasDefaults() GasDefaults {
	return GasDefaults{Create: 500000, Call: 50000}
}

func (v *VaultSigner) SupportsPrivacy() bool {
	return false
}

// ResolveAccount lists the plugin accounts, fetches every account's address in parallel
// and selects the configured account key. Without a configured key the plugin must hold
// exactly one account.
func (v *VaultSigner) ResolveAccount(ctx context.Context) (*transaction.Account, error) {
	v.logger.Sugar().Infow("Fetching Vault accounts", zap.String("pluginPath", v.pluginPath))

	keys, err := v.listAccountKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: vault plugin %s", transaction.ErrNoAccountsAvailable, v.pluginPath)
	}

	accounts := make([]*vaultAccount, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			address, err := v.readAccountAddress(gctx, key)
			if err != nil {
				return err
			}
			accounts[i] = &vaultAccount{key: key, address: address}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	v.logger.Sugar().Infow("Found Vault accounts",
		zap.Int("count", len(accounts)),
		zap.Strings("addresses", util.Map(accounts, func(a *vaultAccount, _ uint64) string {
			return a.address.String()
		})),
	)

	var selected *vaultAccount
	switch {
	case v.accountKey != "":
		selected = util.Find(accounts, func(a *vaultAccount) bool {
			return a.key == v.accountKey
		})
		if selected == nil {
			return nil, fmt.Errorf("%w: vault account key %q not found", transaction.ErrAccountResolution, v.accountKey)
		}
	case len(accounts) == 1:
		selected = accounts[0]
	default:
		return nil, fmt.Errorf("%w: vault plugin holds %d accounts, an account key must be selected",
			transaction.ErrConfiguration, len(accounts))
	}

	return &transaction.Account{
		Address:   selected.address,
		KeyHandle: selected.key,
	}, nil
}

func (v *VaultSigner) listAccountKeys(ctx context.Context) ([]string, error) {
	secret, err := v.client.Logical().ListWithContext(ctx, path.Join(v.pluginPath, "accounts"))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list vault accounts: %v", transaction.ErrAccountResolution, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}
	raw, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		if s, ok := k.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys, nil
}

func (v *VaultSigner) readAccountAddress(ctx context.Context, key string) (common.Address, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, path.Join(v.pluginPath, "accounts", key))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: failed to read vault account %s: %v", transaction.ErrAccountResolution, key, err)
	}
	if secret == nil || secret.Data == nil {
		return common.Address{}, fmt.Errorf("%w: vault account %s not found", transaction.ErrAccountResolution, key)
	}
	address, _ := secret.Data["address"].(string)
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%w: vault account %s has invalid address %q", transaction.ErrAccountResolution, key, address)
	}
	return common.HexToAddress(address), nil
}

// signRequest renders tx in the plugin's sign request shape.
func signRequest(tx *transaction.UnsignedTransaction) map[string]interface{} {
	body := map[string]interface{}{
		"data":     strings.TrimPrefix(hexutil.Encode(tx.Data), "0x"),
		"nonce":    hexutil.EncodeUint64(tx.Nonce),
		"gas":      tx.GasLimit,
		"gasPrice": 0,
	}
	if tx.To != nil {
		body["to"] = tx.To.Hex()
	}
	if tx.ChainID != nil {
		body["chainId"] = tx.ChainID.String()
	}
	return body
}

// SignTransaction sends the unsigned transaction to the plugin and decodes the signed
// payload it returns.
func (v *VaultSigner) SignTransaction(ctx context.Context, tx *transaction.UnsignedTransaction, account *transaction.Account) (*transaction.SignedTransaction, error) {
	if account == nil || account.KeyHandle == "" {
		return nil, fmt.Errorf("%w: account has no vault key", transaction.ErrSigningService)
	}

	secret, err := v.client.Logical().WriteWithContext(ctx,
		path.Join(v.pluginPath, "accounts", account.KeyHandle, "sign"),
		signRequest(tx),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: vault signing failed: %v", transaction.ErrSigningService, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: vault returned no signed transaction", transaction.ErrSigningService)
	}
	payload, _ := secret.Data["signed_transaction"].(string)
	if payload == "" {
		return nil, fmt.Errorf("%w: vault returned no signed transaction", transaction.ErrSigningService)
	}
	if !strings.HasPrefix(payload, "0x") {
		payload = "0x" + payload
	}

	raw, err := hexutil.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signed transaction: %v", transaction.ErrSigningService, err)
	}
	signed, err := transaction.DecodeSignedTransaction(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signed transaction: %v", transaction.ErrSigningService, err)
	}
	return signed, nil
}
