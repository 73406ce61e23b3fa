package devwallet

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/prediction-market-client/internal/chains"
)

// ChainBackend is the node access the wallet needs to fill, broadcast and track transactions.
// *ethclient.Client satisfies it.
type ChainBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// BackendDialer opens a backend for a chain.
type BackendDialer func(ctx context.Context, d chains.Descriptor) (ChainBackend, error)

// DialEthClient connects to the chain's first RPC URL.
func DialEthClient(ctx context.Context, d chains.Descriptor) (ChainBackend, error) {
	url := d.PrimaryRPC()
	if url == "" {
		return nil, errors.Newf("chain %s has no rpc url", d.ChainID)
	}
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	return c, nil
}
