package txSigner

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVault struct {
	t        *testing.T
	accounts map[string]*ecdsa.PrivateKey
	order    []string
	reads    atomic.Int32
	signBody map[string]interface{}
	tx       *transaction.UnsignedTransaction
}

func (f *fakeVault) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Vault-Token") != "s.token" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	reply := func(data map[string]interface{}) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}

	p := strings.TrimPrefix(r.URL.Path, "/v1/ethereum/")
	switch {
	case p == "accounts" && (r.Method == "LIST" || r.URL.Query().Get("list") == "true"):
		keys := make([]interface{}, len(f.order))
		for i, k := range f.order {
			keys[i] = k
		}
		reply(map[string]interface{}{"keys": keys})
	case strings.HasSuffix(p, "/sign") && (r.Method == http.MethodPut || r.Method == http.MethodPost):
		name := strings.TrimSuffix(strings.TrimPrefix(p, "accounts/"), "/sign")
		key := f.accounts[name]
		require.NotNil(f.t, key)
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.signBody))

		signedTx, err := types.SignTx(types.NewTx(f.tx.ToLegacyTx()), f.tx.EthSigner(), key)
		require.NoError(f.t, err)
		raw, err := signedTx.MarshalBinary()
		require.NoError(f.t, err)
		// the plugin answers without the 0x prefix
		reply(map[string]interface{}{"signed_transaction": strings.TrimPrefix(hexutil.Encode(raw), "0x")})
	case strings.HasPrefix(p, "accounts/") && r.Method == http.MethodGet:
		f.reads.Add(1)
		key, ok := f.accounts[strings.TrimPrefix(p, "accounts/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		reply(map[string]interface{}{"address": strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newFakeVault(t *testing.T, names ...string) (*fakeVault, *httptest.Server) {
	f := &fakeVault{t: t, accounts: map[string]*ecdsa.PrivateKey{}, order: names}
	for _, n := range names {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		f.accounts[n] = key
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func TestVaultSigner_SingleAccount(t *testing.T) {
	f, srv := newFakeVault(t, "only")

	s, err := NewVaultSigner(&VaultConfig{Address: srv.URL, Token: "s.token"}, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, GasDefaults{Create: 500000, Call: 50000}, s.GasDefaults())
	assert.False(t, s.SupportsPrivacy())

	account, err := s.ResolveAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(f.accounts["only"].PublicKey), account.Address)
	assert.Equal(t, "only", account.KeyHandle)

	f.tx = unsignedCall(account.Address, nil)
	signed, err := s.SignTransaction(context.Background(), f.tx, account)
	require.NoError(t, err)

	sender, err := types.Sender(f.tx.EthSigner(), signed.Tx)
	require.NoError(t, err)
	assert.Equal(t, account.Address, sender)

	assert.Equal(t, "0x5", f.signBody["nonce"])
	assert.Equal(t, "60fe47b1", f.signBody["data"])
	assert.Equal(t, float64(50000), f.signBody["gas"])
	assert.Equal(t, float64(0), f.signBody["gasPrice"])
	assert.Equal(t, common.HexToAddress("0xdef0000000000000000000000000000000000def").Hex(), f.signBody["to"])
	assert.NotContains(t, f.signBody, "chainId")
}

func TestVaultSigner_MultipleAccounts(t *testing.T) {
	f, srv := newFakeVault(t, "alpha", "beta", "gamma")

	t.Run("explicit key", func(t *testing.T) {
		s, err := NewVaultSigner(&VaultConfig{Address: srv.URL, Token: "s.token", AccountKey: "beta"}, testLogger(t))
		require.NoError(t, err)

		account, err := s.ResolveAccount(context.Background())
		require.NoError(t, err)
		assert.Equal(t, crypto.PubkeyToAddress(f.accounts["beta"].PublicKey), account.Address)
		assert.Equal(t, "beta", account.KeyHandle)
	})

	t.Run("ambiguous without key", func(t *testing.T) {
		before := f.reads.Load()
		s, err := NewVaultSigner(&VaultConfig{Address: srv.URL, Token: "s.token"}, testLogger(t))
		require.NoError(t, err)

		_, err = s.ResolveAccount(context.Background())
		assert.ErrorIs(t, err, transaction.ErrConfiguration)
		// every account detail was fetched before selecting
		assert.Equal(t, int32(3), f.reads.Load()-before)
	})

	t.Run("unknown key", func(t *testing.T) {
		s, err := NewVaultSigner(&VaultConfig{Address: srv.URL, Token: "s.token", AccountKey: "delta"}, testLogger(t))
		require.NoError(t, err)

		_, err = s.ResolveAccount(context.Background())
		assert.ErrorIs(t, err, transaction.ErrAccountResolution)
	})
}

func TestVaultSigner_Errors(t *testing.T) {
	_, srv := newFakeVault(t)

	_, err := NewVaultSigner(&VaultConfig{Address: srv.URL}, testLogger(t))
	assert.ErrorIs(t, err, transaction.ErrConfiguration)

	s, err := NewVaultSigner(&VaultConfig{Address: srv.URL, Token: "s.token"}, testLogger(t))
	require.NoError(t, err)
	_, err = s.ResolveAccount(context.Background())
	assert.ErrorIs(t, err, transaction.ErrNoAccountsAvailable)

	s, err = NewVaultSigner(&VaultConfig{Address: srv.URL, Token: "wrong"}, testLogger(t))
	require.NoError(t, err)
	_, err = s.ResolveAccount(context.Background())
	assert.ErrorIs(t, err, transaction.ErrAccountResolution)

	_, err = s.SignTransaction(context.Background(), unsignedCall(common.HexToAddress("0x1"), nil), &transaction.Account{})
	assert.ErrorIs(t, err, transaction.ErrSigningService)
}
