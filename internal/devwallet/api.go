package devwallet

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/quantumauth-io/prediction-market-client/internal/chains"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
)

// EthAPI serves the eth_ namespace of the wallet.
type EthAPI struct {
	w *Wallet
}

func (api *EthAPI) Accounts() []string {
	return api.w.Accounts()
}

func (api *EthAPI) RequestAccounts(ctx context.Context) ([]string, error) {
	return api.w.RequestAccounts(ctx)
}

func (api *EthAPI) ChainId() string {
	return api.w.ChainID()
}

func (api *EthAPI) SendTransaction(ctx context.Context, args TxArgs) (common.Hash, error) {
	return api.w.SendTransaction(ctx, args)
}

func (api *EthAPI) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return api.w.TransactionReceipt(ctx, hash)
}

// WalletAPI serves the wallet_ namespace.
type WalletAPI struct {
	w *Wallet
}

type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

func (api *WalletAPI) SwitchEthereumChain(ctx context.Context, p SwitchChainParams) error {
	if p.ChainID == "" {
		return errInvalidParams("missing chainId")
	}
	return api.w.SwitchChain(ctx, p.ChainID)
}

// RevokePermissions drops account access; the request object must name eth_accounts.
func (api *WalletAPI) RevokePermissions(p map[string]any) error {
	if _, ok := p[constants.MethodEthAccounts]; !ok {
		return errInvalidParams("only eth_accounts permissions can be revoked")
	}
	api.w.Revoke()
	return nil
}

func (api *WalletAPI) AddEthereumChain(ctx context.Context, d chains.Descriptor) error {
	return api.w.AddChain(ctx, d)
}

// NewRPCServer exposes w over JSON-RPC under the eth and wallet namespaces.
func NewRPCServer(w *Wallet) (*rpc.Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("eth", &EthAPI{w: w}); err != nil {
		return nil, errors.Wrap(err, "register eth api")
	}
	if err := srv.RegisterName("wallet", &WalletAPI{w: w}); err != nil {
		return nil, errors.Wrap(err, "register wallet api")
	}
	return srv, nil
}
