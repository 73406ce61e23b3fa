package devwallet

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/prediction-market-client/internal/chains"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
	"github.com/stretchr/testify/require"
)

func TestAccountsEmptyUntilApproved(t *testing.T) {
	approver := newCountingApprover(true)
	w := newTestWallet(t, approver, chains.SapphireTestnet())
	c := dialInProc(t, w.Wallet)
	ctx := context.Background()

	var accounts []string
	require.NoError(t, c.CallContext(ctx, &accounts, constants.MethodEthAccounts))
	require.Empty(t, accounts)

	require.NoError(t, c.CallContext(ctx, &accounts, constants.MethodEthRequestAccounts))
	require.Equal(t, []string{w.accountString()}, accounts)

	// already authorized: no second prompt
	require.NoError(t, c.CallContext(ctx, &accounts, constants.MethodEthRequestAccounts))
	require.Equal(t, 1, approver.count(constants.MethodEthRequestAccounts))

	require.NoError(t, c.CallContext(ctx, &accounts, constants.MethodEthAccounts))
	require.Equal(t, []string{w.accountString()}, accounts)

	requireRPCError(t, c.CallContext(ctx, nil, constants.MethodWalletRevokePermissions, map[string]any{}), -32602)

	require.NoError(t, c.CallContext(ctx, nil, constants.MethodWalletRevokePermissions,
		map[string]any{constants.MethodEthAccounts: map[string]any{}}))
	require.NoError(t, c.CallContext(ctx, &accounts, constants.MethodEthAccounts))
	require.Empty(t, accounts)
}

func TestRequestAccountsRejected(t *testing.T) {
	w := newTestWallet(t, AutoReject, chains.SapphireTestnet())
	c := dialInProc(t, w.Wallet)

	var accounts []string
	err := c.CallContext(context.Background(), &accounts, constants.MethodEthRequestAccounts)
	rerr := requireRPCError(t, err, constants.ProviderErrorCodeUserRejected)
	require.Equal(t, "User rejected the request.", rerr.Error())
	require.Empty(t, w.Accounts())
}

func TestChainIDReportsActiveChain(t *testing.T) {
	w := newTestWallet(t, AutoApprove, chains.SapphireTestnet())
	c := dialInProc(t, w.Wallet)

	var id string
	require.NoError(t, c.CallContext(context.Background(), &id, constants.MethodEthChainID))
	require.Equal(t, "0x5aff", id)
}

func TestSwitchUnknownChain(t *testing.T) {
	w := newTestWallet(t, AutoApprove, mainnetDescriptor())
	c := dialInProc(t, w.Wallet)

	err := c.CallContext(context.Background(), nil, constants.MethodWalletSwitchChain,
		SwitchChainParams{ChainID: "0x5aff"})
	rerr := requireRPCError(t, err, constants.ProviderErrorCodeUnrecognizedChain)
	require.Equal(t,
		`Unrecognized chain ID "0x5aff". Try adding the chain using wallet_addEthereumChain first.`,
		rerr.Error())
	require.Equal(t, "0x1", w.ChainID())
}

func TestSwitchKnownChain(t *testing.T) {
	approver := newCountingApprover(true)
	w := newTestWallet(t, approver, mainnetDescriptor(), chains.SapphireTestnet())
	c := dialInProc(t, w.Wallet)
	ctx := context.Background()

	require.NoError(t, c.CallContext(ctx, nil, constants.MethodWalletSwitchChain, SwitchChainParams{ChainID: "0x5AFF"}))
	require.Equal(t, "0x5aff", w.ChainID())
	require.Equal(t, 1, approver.count(constants.MethodWalletSwitchChain))

	// already active: no prompt
	require.NoError(t, c.CallContext(ctx, nil, constants.MethodWalletSwitchChain, SwitchChainParams{ChainID: "0x5aff"}))
	require.Equal(t, 1, approver.count(constants.MethodWalletSwitchChain))
}

func TestSwitchRejectedKeepsChain(t *testing.T) {
	w := newTestWallet(t, AutoReject, mainnetDescriptor(), chains.SapphireTestnet())

	err := w.SwitchChain(context.Background(), "0x5aff")
	var rerr *RPCError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, constants.ProviderErrorCodeUserRejected, rerr.Code)
	require.Equal(t, "0x1", w.ChainID())
}

func TestAddChainRegistersAndSwitches(t *testing.T) {
	approver := newCountingApprover(true)
	w := newTestWallet(t, approver, mainnetDescriptor())
	c := dialInProc(t, w.Wallet)
	ctx := context.Background()

	require.NoError(t, c.CallContext(ctx, nil, constants.MethodWalletAddChain, chains.SapphireTestnet()))
	require.Equal(t, "0x5aff", w.ChainID())
	require.Equal(t, 1, approver.count(constants.MethodWalletAddChain))

	d, ok := w.registry.Find("0x5aff")
	require.True(t, ok)
	require.Equal(t, "Oasis Sapphire Testnet", d.ChainName)

	// adding a known chain again only switches
	require.NoError(t, c.CallContext(ctx, nil, constants.MethodWalletSwitchChain, SwitchChainParams{ChainID: "0x1"}))
	require.NoError(t, c.CallContext(ctx, nil, constants.MethodWalletAddChain, chains.SapphireTestnet()))
	require.Equal(t, 1, approver.count(constants.MethodWalletAddChain))
	require.Equal(t, 2, approver.count(constants.MethodWalletSwitchChain))
	require.Equal(t, "0x5aff", w.ChainID())
}

func TestAddChainInvalidParams(t *testing.T) {
	approver := newCountingApprover(true)
	w := newTestWallet(t, approver, mainnetDescriptor())
	c := dialInProc(t, w.Wallet)

	bad := chains.SapphireTestnet()
	bad.RPCURLs = nil
	err := c.CallContext(context.Background(), nil, constants.MethodWalletAddChain, bad)
	requireRPCError(t, err, constants.JSONRPCErrorCodeInvalidParams)

	require.Zero(t, approver.count(constants.MethodWalletAddChain))
	_, ok := w.registry.Find("0x5aff")
	require.False(t, ok)
}

func TestAddChainRejected(t *testing.T) {
	w := newTestWallet(t, AutoReject, mainnetDescriptor())
	c := dialInProc(t, w.Wallet)

	err := c.CallContext(context.Background(), nil, constants.MethodWalletAddChain, chains.SapphireTestnet())
	requireRPCError(t, err, constants.ProviderErrorCodeUserRejected)
	_, ok := w.registry.Find("0x5aff")
	require.False(t, ok)
}

func TestSecondPromptWhilePending(t *testing.T) {
	release := make(chan struct{})
	blocking := ApproverFunc(func(ctx context.Context, p Prompt) (bool, error) {
		select {
		case <-release:
			return true, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	})
	w := newTestWallet(t, blocking, mainnetDescriptor(), chains.SapphireTestnet())
	c := dialInProc(t, w.Wallet)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		var accounts []string
		done <- c.CallContext(ctx, &accounts, constants.MethodEthRequestAccounts)
	}()

	require.Eventually(t, func() bool {
		return w.Status().Pending != nil
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, constants.MethodEthRequestAccounts, w.Status().Pending.Method)

	err := c.CallContext(ctx, nil, constants.MethodWalletSwitchChain, SwitchChainParams{ChainID: "0x5aff"})
	rerr := requireRPCError(t, err, constants.JSONRPCErrorCodeResourceUnavailable)
	require.Equal(t, "Request of type 'wallet_switchEthereumChain' already pending", rerr.Error())

	close(release)
	require.NoError(t, <-done)
	require.Nil(t, w.Status().Pending)
	require.Len(t, w.Accounts(), 1)
}

func authorize(t *testing.T, w *testWallet) {
	t.Helper()
	_, err := w.RequestAccounts(context.Background())
	require.NoError(t, err)
}

func sendArgs(from common.Address, to common.Address, wei int64, data []byte) TxArgs {
	d := hexutil.Bytes(data)
	return TxArgs{
		From:  &from,
		To:    &to,
		Value: (*hexutil.Big)(big.NewInt(wei)),
		Data:  &d,
	}
}

var contractAddr = common.HexToAddress("0x00000000000000000000000000000000c0ffee00")

func TestSendTransactionUnauthorized(t *testing.T) {
	w := newTestWallet(t, AutoApprove, chains.SapphireTestnet())
	c := dialInProc(t, w.Wallet)

	var hash common.Hash
	err := c.CallContext(context.Background(), &hash, constants.MethodEthSendTransaction,
		sendArgs(w.Address(), contractAddr, 1, nil))
	requireRPCError(t, err, constants.ProviderErrorCodeUnauthorized)

	authorize(t, w)
	other := common.HexToAddress("0x00000000000000000000000000000000000b0b00")
	err = c.CallContext(context.Background(), &hash, constants.MethodEthSendTransaction,
		sendArgs(other, contractAddr, 1, nil))
	requireRPCError(t, err, constants.ProviderErrorCodeUnauthorized)

	require.Empty(t, w.backend.sentTxs())
}

func TestSendTransactionLegacy(t *testing.T) {
	w := newTestWallet(t, AutoApprove, chains.SapphireTestnet())
	authorize(t, w)
	c := dialInProc(t, w.Wallet)

	var hash common.Hash
	err := c.CallContext(context.Background(), &hash, constants.MethodEthSendTransaction,
		sendArgs(w.Address(), contractAddr, 1_000_000_000_000_000, []byte{0xde, 0xad, 0xbe, 0xef}))
	require.NoError(t, err)

	sent := w.backend.sentTxs()
	require.Len(t, sent, 1)
	tx := sent[0]
	require.Equal(t, hash, tx.Hash())
	require.Equal(t, uint8(types.LegacyTxType), tx.Type())
	require.Equal(t, uint64(7), tx.Nonce())
	require.Equal(t, uint64(60_000), tx.Gas())
	require.Equal(t, w.backend.gasPrice, tx.GasPrice())
	require.Equal(t, &contractAddr, tx.To())
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, tx.Data())
	require.Equal(t, big.NewInt(23295), tx.ChainId())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(23295)), tx)
	require.NoError(t, err)
	require.Equal(t, w.Address(), sender)
}

func TestSendTransactionDynamicFee(t *testing.T) {
	w := newTestWallet(t, AutoApprove, chains.SapphireTestnet())
	w.backend.baseFee = big.NewInt(10_000_000_000)
	authorize(t, w)

	gas := hexutil.Uint64(90_000)
	args := sendArgs(w.Address(), contractAddr, 5, nil)
	args.Gas = &gas

	hash, err := w.SendTransaction(context.Background(), args)
	require.NoError(t, err)

	tx := w.backend.sentTxs()[0]
	require.Equal(t, hash, tx.Hash())
	require.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	require.Equal(t, uint64(90_000), tx.Gas())
	require.Equal(t, big.NewInt(2_000_000_000), tx.GasTipCap())
	require.Equal(t, big.NewInt(22_000_000_000), tx.GasFeeCap())
}

func TestSendTransactionExplicitGasPrice(t *testing.T) {
	w := newTestWallet(t, AutoApprove, chains.SapphireTestnet())
	w.backend.baseFee = big.NewInt(10_000_000_000)
	authorize(t, w)

	args := sendArgs(w.Address(), contractAddr, 5, nil)
	args.GasPrice = (*hexutil.Big)(big.NewInt(42))

	_, err := w.SendTransaction(context.Background(), args)
	require.NoError(t, err)
	tx := w.backend.sentTxs()[0]
	require.Equal(t, uint8(types.LegacyTxType), tx.Type())
	require.Equal(t, big.NewInt(42), tx.GasPrice())
}

func TestSendTransactionInvalidArgs(t *testing.T) {
	w := newTestWallet(t, AutoApprove, chains.SapphireTestnet())
	authorize(t, w)

	from := w.Address()
	_, err := w.SendTransaction(context.Background(), TxArgs{From: &from})
	var rerr *RPCError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, constants.JSONRPCErrorCodeInvalidParams, rerr.Code)

	args := sendArgs(w.Address(), contractAddr, 1, nil)
	args.ChainID = (*hexutil.Big)(big.NewInt(1))
	_, err = w.SendTransaction(context.Background(), args)
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, constants.JSONRPCErrorCodeInvalidParams, rerr.Code)

	require.Empty(t, w.backend.sentTxs())
}

func TestSendTransactionRejectedNotBroadcast(t *testing.T) {
	approver := ApproverFunc(func(_ context.Context, p Prompt) (bool, error) {
		return p.Method != constants.MethodEthSendTransaction, nil
	})
	w := newTestWallet(t, approver, chains.SapphireTestnet())
	authorize(t, w)

	_, err := w.SendTransaction(context.Background(), sendArgs(w.Address(), contractAddr, 1, nil))
	var rerr *RPCError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, constants.ProviderErrorCodeUserRejected, rerr.Code)
	require.Empty(t, w.backend.sentTxs())
}

func TestSendTransactionBroadcastFailure(t *testing.T) {
	w := newTestWallet(t, AutoApprove, chains.SapphireTestnet())
	w.backend.sendErr = errors.New("insufficient funds for gas * price + value")
	authorize(t, w)

	_, err := w.SendTransaction(context.Background(), sendArgs(w.Address(), contractAddr, 1, nil))
	var rerr *RPCError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, constants.JSONRPCErrorCodeInternalError, rerr.Code)
	require.Equal(t, "insufficient funds for gas * price + value", rerr.Data)
}

func TestGetTransactionReceipt(t *testing.T) {
	w := newTestWallet(t, AutoApprove, chains.SapphireTestnet())
	c := dialInProc(t, w.Wallet)
	ctx := context.Background()

	hash := common.HexToHash("0x01")

	var pending map[string]any
	require.NoError(t, c.CallContext(ctx, &pending, constants.MethodEthGetTransactionReceipt, hash))
	require.Nil(t, pending)

	w.backend.receipts[hash] = &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(12),
		Logs:        []*types.Log{},
	}

	var mined map[string]any
	require.NoError(t, c.CallContext(ctx, &mined, constants.MethodEthGetTransactionReceipt, hash))
	require.Equal(t, "0x1", mined["status"])
	require.Equal(t, hash.Hex(), mined["transactionHash"])
	require.Equal(t, "0xc", mined["blockNumber"])
}

func TestStatus(t *testing.T) {
	w := newTestWallet(t, AutoApprove, chains.SapphireTestnet(), mainnetDescriptor())

	st := w.Status()
	require.Equal(t, w.Address().Hex(), st.Address)
	require.Equal(t, "0x5aff", st.ChainID)
	require.Equal(t, "Oasis Sapphire Testnet", st.ChainName)
	require.False(t, st.Authorized)
	require.Equal(t, 2, st.KnownChains)
	require.Nil(t, st.Pending)
}

func TestNewDefaultsActiveChain(t *testing.T) {
	w := newTestWallet(t, AutoApprove)
	require.Equal(t, "0x1", w.ChainID())

	_, err := New(Config{Approver: AutoApprove})
	require.Error(t, err)
}
