package devwallet

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/quantumauth-io/prediction-market-client/internal/chains"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu sync.Mutex

	chainID  *big.Int
	nonce    uint64
	estimate uint64
	baseFee  *big.Int
	gasPrice *big.Int
	tipCap   *big.Int
	sendErr  error

	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
}

func newFakeBackend(chainID int64) *fakeBackend {
	return &fakeBackend{
		chainID:  big.NewInt(chainID),
		nonce:    7,
		estimate: 50_000,
		gasPrice: big.NewInt(100_000_000_000),
		tipCap:   big.NewInt(2_000_000_000),
		receipts: map[common.Hash]*types.Receipt{},
	}
}

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) { return b.chainID, nil }

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return b.nonce, nil
}

func (b *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return b.estimate, nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) { return b.gasPrice, nil }

func (b *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return b.tipCap, nil }

func (b *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100), BaseFee: b.baseFee}, nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (b *fakeBackend) sentTxs() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

// countingApprover answers with ok and counts prompts by method.
type countingApprover struct {
	mu     sync.Mutex
	ok     bool
	counts map[string]int
}

func newCountingApprover(ok bool) *countingApprover {
	return &countingApprover{ok: ok, counts: map[string]int{}}
}

func (a *countingApprover) Approve(_ context.Context, p Prompt) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts[p.Method]++
	return a.ok, nil
}

func (a *countingApprover) count(method string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[method]
}

type testWallet struct {
	*Wallet
	backend *fakeBackend
}

// newTestWallet builds a wallet knowing only the registry chains given, active on the first one.
func newTestWallet(t *testing.T, approver Approver, known ...chains.Descriptor) *testWallet {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	reg := chains.NewRegistry("")
	for _, d := range known {
		_, err := reg.Add(context.Background(), d)
		require.NoError(t, err)
	}

	backend := newFakeBackend(23295)
	active := ""
	if len(known) > 0 {
		active = known[0].ChainID
	}

	w, err := New(Config{
		Key:      key,
		Registry: reg,
		Approver: approver,
		Dial: func(context.Context, chains.Descriptor) (ChainBackend, error) {
			return backend, nil
		},
		ActiveChain: active,
	})
	require.NoError(t, err)
	return &testWallet{Wallet: w, backend: backend}
}

func dialInProc(t *testing.T, w *Wallet) *rpc.Client {
	t.Helper()
	srv, err := NewRPCServer(w)
	require.NoError(t, err)
	c := rpc.DialInProc(srv)
	t.Cleanup(func() {
		c.Close()
		srv.Stop()
	})
	return c
}

func requireRPCError(t *testing.T, err error, code int) rpc.Error {
	t.Helper()
	require.Error(t, err)
	rerr, ok := err.(rpc.Error)
	require.True(t, ok, "expected rpc.Error, got %T: %v", err, err)
	require.Equal(t, code, rerr.ErrorCode())
	return rerr
}

func mainnetDescriptor() chains.Descriptor {
	return chains.Descriptor{
		ChainID:        "0x1",
		ChainName:      "Ethereum Mainnet",
		NativeCurrency: chains.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:        []string{"https://eth.example"},
	}
}
