package txSigner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Layr-Labs/deploy-transact-go/pkg/chainManager"
	"github.com/Layr-Labs/deploy-transact-go/pkg/transaction"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// NodeSigner uses an account managed by the connected node. The node signs transactions
// itself; the key never leaves it.
type NodeSigner struct {
	rpc    chainManager.RPCCaller
	logger *zap.Logger
}

type signTransactionResult struct {
	Raw hexutil.Bytes `json:"raw"`
}

// NewNodeSigner creates a NodeSigner over the node's JSON-RPC connection.
func NewNodeSigner(rpc chainManager.RPCCaller, logger *zap.Logger) *NodeSigner {
	return &NodeSigner{
		rpc:    rpc,
		logger: logger,
	}
}

func (n *NodeSigner) Name() string {
	return BackendNode
}

func (n *NodeSigner) GasDefaults() GasDefaults {
	return GasDefaults{Create: 500000, Call: 500000}
}

func (n *NodeSigner) SupportsPrivacy() bool {
	return true
}

// ResolveAccount selects the first account managed by the node.
func (n *NodeSigner) ResolveAccount(ctx context.Context) (*transaction.Account, error) {
	var accounts []common.Address
	if err := n.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("%w: failed to list node accounts: %v", transaction.ErrAccountResolution, err)
	}
	if len(accounts) == 0 {
		return nil, transaction.ErrNoAccountsAvailable
	}

	n.logger.Sugar().Infow("Using node managed account",
		zap.Int("count", len(accounts)),
		zap.String("address", accounts[0].String()),
	)
	return &transaction.Account{Address: accounts[0]}, nil
}

// SignTransaction asks the node to sign tx with eth_signTransaction. Clients without that
// method, such as Besu, cannot be used with this backend.
func (n *NodeSigner) SignTransaction(ctx context.Context, tx *transaction.UnsignedTransaction, account *transaction.Account) (*transaction.SignedTransaction, error) {
	if account != nil && account.Address != tx.From {
		return nil, fmt.Errorf("%w: address mismatch: expected %s, got %s",
			transaction.ErrSigningService, account.Address.Hex(), tx.From.Hex())
	}

	var result signTransactionResult
	if err := n.rpc.CallContext(ctx, &result, "eth_signTransaction", toCallArgs(tx)); err != nil {
		return nil, fmt.Errorf("%w: node signing failed: %v", transaction.ErrSigningService, err)
	}
	if len(result.Raw) == 0 {
		return nil, fmt.Errorf("%w: node returned no signed transaction", transaction.ErrSigningService)
	}
	signed, err := transaction.DecodeSignedTransaction(result.Raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signed transaction: %v", transaction.ErrSigningService, err)
	}
	return signed, nil
}

// toCallArgs renders tx as JSON-RPC transaction arguments.
func toCallArgs(tx *transaction.UnsignedTransaction) map[string]interface{} {
	args := map[string]interface{}{
		"from":     tx.From,
		"gas":      hexutil.Uint64(tx.GasLimit),
		"gasPrice": (*hexutil.Big)(bigOrZero(tx.GasPrice)),
		"value":    (*hexutil.Big)(bigOrZero(tx.Value)),
		"nonce":    hexutil.Uint64(tx.Nonce),
		"data":     hexutil.Bytes(tx.Data),
	}
	if tx.To != nil {
		args["to"] = tx.To
	}
	if tx.ChainID != nil {
		args["chainId"] = (*hexutil.Big)(tx.ChainID)
	}
	return args
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
