// Package chainManager provides the connection to the target network node.
// A single rpc.Client is dialled once per invocation and exposed both as a typed
// ethclient and as a raw JSON-RPC caller for the permissioned-network namespaces.
package chainManager

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrMissingRPCUrl is returned when no node URL is configured
	ErrMissingRPCUrl = errors.New("missing node RPC URL")
)

// ChainConfig holds the configuration for connecting to the target node.
type ChainConfig struct {
	// RPCUrl is the URL endpoint of the node's JSON-RPC interface
	RPCUrl string
	// ChainID is the configured chain id. Nil means no replay protection is applied.
	ChainID *big.Int
}

// Chain represents an active connection to the target node.
type Chain struct {
	config *ChainConfig
	rpc    *rpc.Client
	// RPCClient is the typed client for eth_* calls
	RPCClient EthClientInterface
	// RawClient performs untyped JSON-RPC calls on the same connection
	RawClient RPCCaller
}

// NewChain assembles a Chain from already constructed clients. It is used by tests and by
// callers that manage their own connection.
func NewChain(cfg *ChainConfig, client EthClientInterface, raw RPCCaller) *Chain {
	return &Chain{
		config:    cfg,
		RPCClient: client,
		RawClient: raw,
	}
}

// Dial connects to the node described by cfg. No call is made to the node; connection
// errors surface on first use for HTTP endpoints.
//
// Parameters:
//   - ctx: Context for the dial operation
//   - cfg: The chain configuration containing the RPC URL and optional chain id
//
// Returns:
//   - *Chain: The connected chain
//   - error: An error if the URL is missing or cannot be dialled
func Dial(ctx context.Context, cfg *ChainConfig) (*Chain, error) {
	if cfg == nil || cfg.RPCUrl == "" {
		return nil, ErrMissingRPCUrl
	}
	rpcClient, err := rpc.DialContext(ctx, cfg.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC URL %s: %w", cfg.RPCUrl, err)
	}
	return &Chain{
		config:    cfg,
		rpc:       rpcClient,
		RPCClient: ethclient.NewClient(rpcClient),
		RawClient: rpcClient,
	}, nil
}

// ChainID returns the configured chain id, or nil when none was configured.
func (c *Chain) ChainID() *big.Int {
	if c.config == nil {
		return nil
	}
	return c.config.ChainID
}

// RPCUrl returns the node URL this chain was created for.
func (c *Chain) RPCUrl() string {
	if c.config == nil {
		return ""
	}
	return c.config.RPCUrl
}

// Close releases the underlying connection.
func (c *Chain) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}
