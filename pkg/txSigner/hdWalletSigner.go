package txSigner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Layr-Labs/deploy-transact-go/pkg/logger"
	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// DefaultHDWalletTimeout bounds each request to the wallet service.
const DefaultHDWalletTimeout = 30 * time.Second

// HDWalletConfig holds the configuration for the HD wallet service backend.
type HDWalletConfig struct {
	// URL is the base URL of the wallet service
	URL string
	// WalletID identifies the wallet within the service
	WalletID string
	// AccountIndex is the derivation index of the account
	AccountIndex uint32
	// Timeout bounds each request; defaults to DefaultHDWalletTimeout
	Timeout time.Duration
}

type hdWalletAccount struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}

// HDWalletSigner fetches a derived account, including its private key, from an HD wallet
// service and signs locally.
type HDWalletSigner struct {
	config *HDWalletConfig
	client *http.Client
	logger *zap.Logger
}

// NewHDWalletSigner creates an HDWalletSigner. Outbound requests are logged through l.
func NewHDWalletSigner(cfg *HDWalletConfig, l *zap.Logger) (*HDWalletSigner, error) {
	if cfg == nil || cfg.URL == "" || cfg.WalletID == "" {
		return nil, fmt.Errorf("%w: hd wallet url and wallet id are required", transaction.ErrConfiguration)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultHDWalletTimeout
	}
	return &HDWalletSigner{
		config: cfg,
		client: &http.Client{
			Transport: logger.NewHttpLoggerTransport(nil, l),
			Timeout:   timeout,
		},
		logger: l,
	}, nil
}

func (s *HDWalletSigner) Name() string {
	return BackendHDWallet
}

func (s *HDWalletSigner) GasDefaults() GasDefaults {
	return GasDefaults{Create: 700000, Call: 500000}
}

func (s *HDWalletSigner) SupportsPrivacy() bool {
	return false
}

func (s *HDWalletSigner) accountURL() string {
	return fmt.Sprintf("%s/wallets/%s/accounts/%d",
		strings.TrimRight(s.config.URL, "/"),
		url.PathEscape(s.config.WalletID),
		s.config.AccountIndex,
	)
}

// ResolveAccount fetches the configured account from the wallet service.
func (s *HDWalletSigner) ResolveAccount(ctx context.Context) (*transaction.Account, error) {
	s.logger.Sugar().Infow("Fetching hd wallet account",
		zap.String("walletId", s.config.WalletID),
		zap.Uint32("accountIndex", s.config.AccountIndex),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.accountURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transaction.ErrConfiguration, err)
	}
	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transaction.ErrWalletServiceUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", transaction.ErrWalletServiceUnavailable, res.StatusCode)
	}

	var body hdWalletAccount
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: failed to decode wallet account: %v", transaction.ErrAccountResolution, err)
	}
	if !common.IsHexAddress(body.Address) {
		return nil, fmt.Errorf("%w: invalid wallet address %q", transaction.ErrAccountResolution, body.Address)
	}

	privateKey, address, err := parsePrivateKey(body.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transaction.ErrAccountResolution, err)
	}
	if address != common.HexToAddress(body.Address) {
		return nil, fmt.Errorf("%w: private key does not match wallet address %s", transaction.ErrAccountResolution, body.Address)
	}

	return &transaction.Account{
		Address:    address,
		PrivateKey: privateKey,
	}, nil
}

func (s *HDWalletSigner) SignTransaction(ctx context.Context, tx *transaction.UnsignedTransaction, account *transaction.Account) (*transaction.SignedTransaction, error) {
	return signWithPrivateKey(tx, account)
}
