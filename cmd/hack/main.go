package main

import (
	"context"
	"math/big"
	"time"

	"github.com/Layr-Labs/deploy-transact-go/pkg/chainManager"
	"github.com/Layr-Labs/deploy-transact-go/pkg/contracts"
	"github.com/Layr-Labs/deploy-transact-go/pkg/logger"
	"github.com/Layr-Labs/deploy-transact-go/pkg/metrics"
	"github.com/Layr-Labs/deploy-transact-go/pkg/transactor"
	"github.com/Layr-Labs/deploy-transact-go/pkg/txSigner"
)

var (
	devNodeConfig = &chainManager.ChainConfig{
		ChainID: big.NewInt(2018),
		RPCUrl:  "http://localhost:8545",
	}
	keystoreDir  = "/tmp/deploy-transact-hack"
	contractsDir = "contracts"
)

func main() {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: true})
	if err != nil {
		panic(err)
	}
	ctx := context.Background()

	chain, err := chainManager.Dial(ctx, devNodeConfig)
	if err != nil {
		l.Sugar().Fatalf("Failed to dial dev node: %v", err)
	}
	defer chain.Close()

	signer, err := txSigner.New(&txSigner.Config{
		Backend:       txSigner.BackendLocalKeystore,
		LocalKeystore: &txSigner.LocalKeystoreConfig{Dir: keystoreDir},
	}, chain, l)
	if err != nil {
		l.Sugar().Fatalf("Failed to create local keystore signer: %v", err)
	}

	m := metrics.NewMetrics()
	t, err := transactor.NewTransactor(
		&transactor.TransactorConfig{},
		chain,
		signer,
		contracts.NewSource(contractsDir, &contracts.SolcCompiler{}, l),
		m,
		l,
	)
	if err != nil {
		l.Sugar().Fatalf("Failed to create transactor: %v", err)
	}

	account, err := t.Account(ctx)
	if err != nil {
		l.Sugar().Fatalf("Failed to resolve account: %v", err)
	}
	l.Sugar().Infow("Using account", "address", account.Address.Hex())

	receipt, err := t.Deploy(ctx)
	if err != nil {
		l.Sugar().Fatalf("Failed to deploy contract: %v", err)
	}
	contract := *receipt.ContractAddress

	values, err := t.Query(ctx, contract)
	if err != nil {
		l.Sugar().Fatalf("Failed to query contract: %v", err)
	}
	l.Sugar().Infow("Initial value", "values", values)

	if _, err := t.Set(ctx, contract, big.NewInt(42)); err != nil {
		l.Sugar().Fatalf("Failed to set value: %v", err)
	}
	l.Sugar().Infow("Value set, sleeping for 2 seconds")
	time.Sleep(2 * time.Second)

	values, err = t.Query(ctx, contract)
	if err != nil {
		l.Sugar().Fatalf("Failed to query contract: %v", err)
	}
	l.Sugar().Infow("Updated value", "values", values)
}
