package chainManager

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// EthClientInterface defines the typed eth_* calls the signing pipeline consumes.
// This interface allows for mocking and testing while maintaining compatibility
// with ethclient.Client and the go-ethereum bind package.
type EthClientInterface interface {
	// Chain identity
	ChainID(ctx context.Context) (*big.Int, error)

	// Nonce and gas
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)

	// Transaction operations
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)

	// Contract reads (CodeAt is required by bind.DeployBackend for receipt waiting)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// RPCCaller performs raw JSON-RPC calls for methods that ethclient does not wrap,
// such as eth_accounts, eth_signTransaction and the priv_/eea_ privacy namespace.
// *rpc.Client satisfies this interface.
type RPCCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}
