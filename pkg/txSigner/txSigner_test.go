package txSigner

import (
	"testing"

	"github.com/Layr-Labs/deploy-transact-go/pkg/chainManager"
	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGasDefaults_For(t *testing.T) {
	g := GasDefaults{Create: 700000, Call: 500000}
	assert.Equal(t, uint64(700000), g.For(true))
	assert.Equal(t, uint64(500000), g.For(false))
}

func TestBackendUsage(t *testing.T) {
	usage := BackendUsage()
	for _, b := range Backends {
		assert.Contains(t, usage, b)
	}
	assert.Contains(t, usage, "node (the node must serve eth_signTransaction")
}

func TestNew(t *testing.T) {
	l := testLogger(t)
	chain := chainManager.NewChain(&chainManager.ChainConfig{RPCUrl: "http://node:8545"},
		chainManager.NewMockEthClientInterface(t), chainManager.NewMockRPCCaller(t))

	tests := []struct {
		name    string
		cfg     *Config
		chain   *chainManager.Chain
		backend string
		err     error
	}{
		{name: "nil config", cfg: nil, err: transaction.ErrConfiguration},
		{name: "unknown", cfg: &Config{Backend: "ledger"}, err: transaction.ErrConfiguration},
		{
			name:    "local keystore",
			cfg:     &Config{Backend: BackendLocalKeystore, LocalKeystore: &LocalKeystoreConfig{Dir: t.TempDir()}},
			backend: BackendLocalKeystore,
		},
		{
			name:    "hd wallet",
			cfg:     &Config{Backend: BackendHDWallet, HDWallet: &HDWalletConfig{URL: "http://wallet", WalletID: "w1"}},
			backend: BackendHDWallet,
		},
		{name: "hd wallet missing", cfg: &Config{Backend: BackendHDWallet}, err: transaction.ErrConfiguration},
		{
			name:    "kms",
			cfg:     &Config{Backend: BackendKMS, KMS: &KMSConfig{KeyID: "key-1", Region: "us-east-1"}},
			backend: BackendKMS,
		},
		{name: "kms missing", cfg: &Config{Backend: BackendKMS}, err: transaction.ErrConfiguration},
		{
			name:    "vault",
			cfg:     &Config{Backend: BackendVault, Vault: &VaultConfig{Address: "http://vault:8200", Token: "s.token"}},
			backend: BackendVault,
		},
		{name: "node", cfg: &Config{Backend: BackendNode}, chain: chain, backend: BackendNode},
		{name: "node without chain", cfg: &Config{Backend: BackendNode}, err: transaction.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, tt.chain, l)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.backend, s.Name())
		})
	}
}
