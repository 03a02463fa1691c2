package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/Layr-Labs/deploy-transact-go/pkg/chainManager"
	"github.com/Layr-Labs/deploy-transact-go/pkg/config"
	"github.com/Layr-Labs/deploy-transact-go/pkg/contracts"
	"github.com/Layr-Labs/deploy-transact-go/pkg/logger"
	"github.com/Layr-Labs/deploy-transact-go/pkg/metrics"
	"github.com/Layr-Labs/deploy-transact-go/pkg/secrets"
	"github.com/Layr-Labs/deploy-transact-go/pkg/transactor"
	"github.com/Layr-Labs/deploy-transact-go/pkg/txSigner"
	"github.com/ethereum/go-ethereum/common"
	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "deploy-transact",
		Usage: "Deploy and transact with a contract using a pluggable signing backend",
		Description: `The deploy-transact CLI deploys a contract to an Ethereum compatible node and calls it,
signing every transaction with the configured backend: a local keystore, a remote HD wallet,
AWS KMS, a Vault signing plugin or the node itself. Private transactions are sent to
permissioned networks when privacy addressing is configured.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a YAML or JSON configuration file",
				EnvVars: []string{"DEPLOY_TRANSACT_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
				EnvVars: []string{"DEBUG"},
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "JSON-RPC URL of the target node",
				EnvVars: []string{"RPC_URL"},
			},
			&cli.Uint64Flag{
				Name:    "chain-id",
				Usage:   "Chain id for replay protection (0 disables it)",
				EnvVars: []string{"CHAIN_ID"},
			},
			&cli.StringFlag{
				Name:    "signer",
				Aliases: []string{"s"},
				Usage:   "Signing backend, one of: " + txSigner.BackendUsage(),
				EnvVars: []string{"SIGNER"},
			},
			// Local keystore options
			&cli.StringFlag{
				Name:    "keystore-dir",
				Usage:   "Directory holding the local keystore file",
				EnvVars: []string{"KEYSTORE_DIR"},
			},
			// HD wallet options
			&cli.StringFlag{
				Name:    "hd-wallet-url",
				Usage:   "Base URL of the HD wallet service",
				EnvVars: []string{"HD_WALLET_URL"},
			},
			&cli.StringFlag{
				Name:    "hd-wallet-id",
				Usage:   "Wallet id in the HD wallet service",
				EnvVars: []string{"HD_WALLET_ID"},
			},
			&cli.UintFlag{
				Name:    "hd-wallet-account-index",
				Usage:   "Account index within the wallet",
				EnvVars: []string{"HD_WALLET_ACCOUNT_INDEX"},
			},
			// KMS options
			&cli.StringFlag{
				Name:    "kms-key-id",
				Usage:   "AWS KMS key id or alias for transaction signing",
				EnvVars: []string{"KMS_KEY_ID"},
			},
			&cli.StringFlag{
				Name:    "kms-region",
				Usage:   "AWS region of the KMS key",
				EnvVars: []string{"KMS_REGION"},
			},
			&cli.StringFlag{
				Name:    "kms-endpoint",
				Usage:   "Custom KMS endpoint, e.g. a local KMS emulator",
				EnvVars: []string{"KMS_ENDPOINT"},
			},
			// Vault options
			&cli.StringFlag{
				Name:    "vault-url",
				Usage:   "Vault server address",
				EnvVars: []string{"VAULT_ADDR"},
			},
			&cli.StringFlag{
				Name:    "vault-token",
				Usage:   "Vault token",
				EnvVars: []string{"VAULT_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "vault-plugin-path",
				Usage:   "Mount path of the Ethereum signing plugin",
				EnvVars: []string{"VAULT_PLUGIN_PATH"},
			},
			&cli.StringFlag{
				Name:    "vault-account",
				Usage:   "Vault account key to sign with when several accounts exist",
				EnvVars: []string{"VAULT_ACCOUNT"},
			},
			// Privacy options
			&cli.StringFlag{
				Name:    "private-from",
				Usage:   "Enclave key of the sending participant",
				EnvVars: []string{"PRIVATE_FROM"},
			},
			&cli.StringSliceFlag{
				Name:    "private-for",
				Usage:   "Enclave keys of the receiving participants",
				EnvVars: []string{"PRIVATE_FOR"},
			},
			&cli.StringFlag{
				Name:    "privacy-group-id",
				Usage:   "Privacy group to address private transactions to",
				EnvVars: []string{"PRIVACY_GROUP_ID"},
			},
			// Contract options
			&cli.StringFlag{
				Name:    "contracts-dir",
				Usage:   "Directory holding contract sources and compiled artifacts",
				EnvVars: []string{"CONTRACTS_DIR"},
			},
			&cli.StringFlag{
				Name:    "contract-name",
				Usage:   "Name of the contract to deploy and call",
				EnvVars: []string{"CONTRACT_NAME"},
			},
			&cli.StringFlag{
				Name:    "solc",
				Usage:   "Path to the solc compiler",
				EnvVars: []string{"SOLC"},
			},
			&cli.StringFlag{
				Name:    "pushgateway-url",
				Usage:   "Prometheus Pushgateway to push invocation metrics to",
				EnvVars: []string{"PUSHGATEWAY_URL"},
			},
			&cli.StringFlag{
				Name:    "secrets-region",
				Usage:   "AWS region of Secrets Manager for awssm: references",
				EnvVars: []string{"SECRETS_REGION"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "deploy",
				Usage:  "Deploy the contract",
				Action: deployAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "initial-value",
						Usage: "Constructor argument of the contract",
						Value: contracts.DefaultInitialValue.String(),
					},
				},
			},
			{
				Name:   "set",
				Usage:  "Store a new value in a deployed contract",
				Action: setAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "contract",
						Usage:    "Address of the deployed contract",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "value",
						Usage:    "Value to store",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Simulate the call with eth_call and print its output without sending a transaction",
					},
				},
			},
			{
				Name:   "query",
				Usage:  "Read the current value of a deployed contract",
				Action: queryAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "contract",
						Usage:    "Address of the deployed contract",
						Required: true,
					},
				},
			},
			{
				Name:   "account",
				Usage:  "Print the signing account of the configured backend",
				Action: accountAction,
			},
			{
				Name:  "privacy-group",
				Usage: "Manage privacy groups on a permissioned network",
				Subcommands: []*cli.Command{
					{
						Name:   "find",
						Usage:  "List the privacy groups containing exactly the given members",
						Action: findGroupsAction,
						Flags: []cli.Flag{
							&cli.StringSliceFlag{Name: "member", Usage: "Enclave key of a member", Required: true},
						},
					},
					{
						Name:   "create",
						Usage:  "Create a privacy group",
						Action: createGroupAction,
						Flags: []cli.Flag{
							&cli.StringSliceFlag{Name: "member", Usage: "Enclave key of a member", Required: true},
							&cli.StringFlag{Name: "name", Usage: "Group name"},
							&cli.StringFlag{Name: "description", Usage: "Group description"},
						},
					},
					{
						Name:   "delete",
						Usage:  "Delete a privacy group",
						Action: deleteGroupAction,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Usage: "Privacy group id", Required: true},
						},
					},
				},
			},
		},
		Before: validateFlags,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func validateFlags(c *cli.Context) error {
	if backend := c.String("signer"); backend != "" {
		for _, b := range txSigner.Backends {
			if b == backend {
				return nil
			}
		}
		return fmt.Errorf("unknown signer %q, expected one of: %s", backend, strings.Join(txSigner.Backends, ", "))
	}
	return nil
}

// loadConfig layers flags that were set explicitly over the file and environment configuration.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	setString := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
	}
	if c.IsSet("chain-id") {
		cfg.Node.ChainID = c.Uint64("chain-id")
	}
	if c.IsSet("hd-wallet-account-index") {
		cfg.HDWallet.AccountIndex = uint32(c.Uint("hd-wallet-account-index"))
	}
	if c.IsSet("private-for") {
		cfg.Privacy.PrivateFor = c.StringSlice("private-for")
	}
	setString("rpc-url", &cfg.Node.RPCUrl)
	setString("signer", &cfg.Signer.Backend)
	setString("keystore-dir", &cfg.LocalKeystore.Dir)
	setString("hd-wallet-url", &cfg.HDWallet.URL)
	setString("hd-wallet-id", &cfg.HDWallet.WalletID)
	setString("kms-key-id", &cfg.KMS.KeyID)
	setString("kms-region", &cfg.KMS.Region)
	setString("kms-endpoint", &cfg.KMS.Endpoint)
	setString("vault-url", &cfg.Vault.Address)
	setString("vault-token", &cfg.Vault.Token)
	setString("vault-plugin-path", &cfg.Vault.PluginPath)
	setString("vault-account", &cfg.Vault.AccountKey)
	setString("private-from", &cfg.Privacy.PrivateFrom)
	setString("privacy-group-id", &cfg.Privacy.PrivacyGroupId)
	setString("contracts-dir", &cfg.Contract.Dir)
	setString("contract-name", &cfg.Contract.Name)
	setString("solc", &cfg.Contract.Solc)
	setString("pushgateway-url", &cfg.Metrics.PushgatewayURL)
	setString("secrets-region", &cfg.Secrets.Region)
	return cfg, nil
}

type session struct {
	cfg        *config.Config
	logger     *zap.Logger
	chain      *chainManager.Chain
	metrics    *metrics.Metrics
	transactor *transactor.Transactor
}

func setupSession(c *cli.Context) (*session, error) {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	if cfg.HasSecretReferences() {
		resolver, err := secrets.NewAWSResolver(cfg.Secrets.Region, l)
		if err != nil {
			return nil, fmt.Errorf("failed to setup secrets resolver: %w", err)
		}
		if err := cfg.ResolveSecrets(ctx, resolver); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	chain, err := chainManager.Dial(ctx, cfg.ChainConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to setup chain: %w", err)
	}

	signer, err := txSigner.New(cfg.SignerConfig(), chain, l)
	if err != nil {
		chain.Close()
		return nil, fmt.Errorf("failed to setup transaction signer: %w", err)
	}

	m := metrics.NewMetrics()
	source := contracts.NewSource(cfg.Contract.Dir, &contracts.SolcCompiler{Path: cfg.Contract.Solc}, l)
	t, err := transactor.NewTransactor(cfg.TransactorConfig(), chain, signer, source, m, l)
	if err != nil {
		chain.Close()
		return nil, fmt.Errorf("failed to setup transactor: %w", err)
	}

	return &session{
		cfg:        cfg,
		logger:     l,
		chain:      chain,
		metrics:    m,
		transactor: t,
	}, nil
}

// close pushes the invocation metrics, when configured, and releases the node connection.
func (s *session) close(ctx context.Context) {
	defer s.chain.Close()
	defer s.logger.Sync() //nolint:errcheck

	if url := s.cfg.Metrics.PushgatewayURL; url != "" {
		if err := s.metrics.Push(ctx, url); err != nil {
			s.logger.Sugar().Warnw("Failed to push metrics", "error", err)
		}
	}
}

func withSession(action func(c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := setupSession(c)
		if err != nil {
			return err
		}
		defer s.close(c.Context)
		return action(c, s)
	}
}

func parseAddress(value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid contract address: %s", value)
	}
	return common.HexToAddress(value), nil
}

func parseValue(value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid value %q: expected a non-negative integer", value)
	}
	return v, nil
}

var deployAction = withSession(func(c *cli.Context, s *session) error {
	initial, err := parseValue(c.String("initial-value"))
	if err != nil {
		return err
	}
	receipt, err := s.transactor.Deploy(c.Context, initial)
	if err != nil {
		return fmt.Errorf("failed to deploy contract: %w", err)
	}
	fmt.Printf("Transaction Hash: %s\n", receipt.TransactionHash.Hex())
	if receipt.ContractAddress != nil {
		fmt.Printf("Contract Address: %s\n", receipt.ContractAddress.Hex())
	}
	return nil
})

var setAction = withSession(func(c *cli.Context, s *session) error {
	contract, err := parseAddress(c.String("contract"))
	if err != nil {
		return err
	}
	value, err := parseValue(c.String("value"))
	if err != nil {
		return err
	}
	if c.Bool("dry-run") {
		output, err := s.transactor.Simulate(c.Context, contract, contracts.MutatorMethod, value)
		if err != nil {
			return fmt.Errorf("failed to simulate set: %w", err)
		}
		fmt.Printf("Simulated Output: %v\n", output)
		return nil
	}
	receipt, err := s.transactor.Set(c.Context, contract, value)
	if err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}
	fmt.Printf("Transaction Hash: %s\n", receipt.TransactionHash.Hex())
	fmt.Printf("Status: %s\n", receipt.Status)
	return nil
})

var queryAction = withSession(func(c *cli.Context, s *session) error {
	contract, err := parseAddress(c.String("contract"))
	if err != nil {
		return err
	}
	values, err := s.transactor.Query(c.Context, contract)
	if err != nil {
		return fmt.Errorf("failed to query contract: %w", err)
	}
	for _, v := range values {
		fmt.Printf("Value: %v\n", v)
	}
	return nil
})

var accountAction = withSession(func(c *cli.Context, s *session) error {
	account, err := s.transactor.Account(c.Context)
	if err != nil {
		return fmt.Errorf("failed to resolve account: %w", err)
	}
	fmt.Printf("Account: %s\n", account.Address.Hex())
	return nil
})

var findGroupsAction = withSession(func(c *cli.Context, s *session) error {
	groups, err := s.transactor.FindPrivacyGroups(c.Context, c.StringSlice("member"))
	if err != nil {
		return fmt.Errorf("failed to find privacy groups: %w", err)
	}
	fmt.Printf("Privacy Groups: %d\n", len(groups))
	for i, g := range groups {
		fmt.Printf("  [%d] ID: %s, Name: %s, Members: %s\n", i, g.PrivacyGroupId, g.Name, strings.Join(g.Members, ","))
	}
	return nil
})

var createGroupAction = withSession(func(c *cli.Context, s *session) error {
	id, err := s.transactor.CreatePrivacyGroup(c.Context, c.StringSlice("member"), c.String("name"), c.String("description"))
	if err != nil {
		return fmt.Errorf("failed to create privacy group: %w", err)
	}
	fmt.Printf("Privacy Group ID: %s\n", id)
	return nil
})

var deleteGroupAction = withSession(func(c *cli.Context, s *session) error {
	id, err := s.transactor.DeletePrivacyGroup(c.Context, c.String("id"))
	if err != nil {
		return fmt.Errorf("failed to delete privacy group: %w", err)
	}
	fmt.Printf("Deleted Privacy Group ID: %s\n", id)
	return nil
})
