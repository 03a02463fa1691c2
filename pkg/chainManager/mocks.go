package chainManager

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
)

// MockEthClientInterface is a testify mock of EthClientInterface.
type MockEthClientInterface struct {
	mock.Mock
}

// NewMockEthClientInterface creates a mock and registers expectation assertion on test cleanup.
func NewMockEthClientInterface(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEthClientInterface {
	m := &MockEthClientInterface{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (_m *MockEthClientInterface) ChainID(ctx context.Context) (*big.Int, error) {
	ret := _m.Called(ctx)
	var r0 *big.Int
	if v := ret.Get(0); v != nil {
		r0 = v.(*big.Int)
	}
	return r0, ret.Error(1)
}

func (_m *MockEthClientInterface) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	ret := _m.Called(ctx, account)
	return ret.Get(0).(uint64), ret.Error(1)
}

func (_m *MockEthClientInterface) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	ret := _m.Called(ctx, msg)
	return ret.Get(0).(uint64), ret.Error(1)
}

func (_m *MockEthClientInterface) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ret := _m.Called(ctx, tx)
	return ret.Error(0)
}

func (_m *MockEthClientInterface) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ret := _m.Called(ctx, txHash)
	var r0 *types.Receipt
	if v := ret.Get(0); v != nil {
		r0 = v.(*types.Receipt)
	}
	return r0, ret.Error(1)
}

func (_m *MockEthClientInterface) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	ret := _m.Called(ctx, msg, blockNumber)
	var r0 []byte
	if v := ret.Get(0); v != nil {
		r0 = v.([]byte)
	}
	return r0, ret.Error(1)
}

func (_m *MockEthClientInterface) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	ret := _m.Called(ctx, account, blockNumber)
	var r0 []byte
	if v := ret.Get(0); v != nil {
		r0 = v.([]byte)
	}
	return r0, ret.Error(1)
}

// MockRPCCaller is a testify mock of RPCCaller. Expectations are registered with the method
// name followed by its arguments; the result pointer is matched positionally after ctx.
type MockRPCCaller struct {
	mock.Mock
}

// NewMockRPCCaller creates a mock and registers expectation assertion on test cleanup.
func NewMockRPCCaller(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRPCCaller {
	m := &MockRPCCaller{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (_m *MockRPCCaller) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	callArgs := append([]interface{}{ctx, result, method}, args...)
	ret := _m.Called(callArgs...)
	return ret.Error(0)
}

var (
	_ EthClientInterface = (*MockEthClientInterface)(nil)
	_ RPCCaller          = (*MockRPCCaller)(nil)
)
