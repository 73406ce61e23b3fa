package devwallet

import (
	"bytes"
	"context"
	"math/big"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/prediction-market-client/internal/chains"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/shopspring/decimal"
)

const (
	// estimated gas * 1.2
	gasBufferBps = 12_000

	defaultTipCapWei = 1_000_000_000 // 1 gwei
)

// TxArgs is the eth_sendTransaction parameter object.
type TxArgs struct {
	From                 *common.Address `json:"from"`
	To                   *common.Address `json:"to"`
	Gas                  *hexutil.Uint64 `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas"`
	Value                *hexutil.Big    `json:"value"`
	Nonce                *hexutil.Uint64 `json:"nonce"`
	Data                 *hexutil.Bytes  `json:"data"`
	Input                *hexutil.Bytes  `json:"input"`
	ChainID              *hexutil.Big    `json:"chainId,omitempty"`
}

func (a TxArgs) validate() error {
	if a.Data != nil && a.Input != nil && !bytes.Equal(*a.Data, *a.Input) {
		return errors.New(`both "data" and "input" are set and not equal`)
	}
	if a.To == nil && len(a.data()) == 0 {
		return errors.New("contract creation without data")
	}
	if a.GasPrice != nil && (a.MaxFeePerGas != nil || a.MaxPriorityFeePerGas != nil) {
		return errors.New("both gasPrice and (maxFeePerGas or maxPriorityFeePerGas) specified")
	}
	if a.MaxFeePerGas != nil && a.MaxPriorityFeePerGas != nil &&
		a.MaxFeePerGas.ToInt().Cmp(a.MaxPriorityFeePerGas.ToInt()) < 0 {
		return errors.New("maxFeePerGas is below maxPriorityFeePerGas")
	}
	return nil
}

func (a TxArgs) data() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

func (a TxArgs) value() *big.Int {
	if a.Value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.Value.ToInt())
}

// buildTx fills nonce, gas and fees from the backend where args leave them out.
// EIP-1559 when the head has a base fee, legacy otherwise or when gasPrice is given.
func buildTx(ctx context.Context, b ChainBackend, chainID *big.Int, from common.Address, args TxArgs) (*types.Transaction, error) {
	data := args.data()
	value := args.value()

	var nonce uint64
	if args.Nonce != nil {
		nonce = uint64(*args.Nonce)
	} else {
		n, err := b.PendingNonceAt(ctx, from)
		if err != nil {
			return nil, errors.Wrap(err, "fetch nonce")
		}
		nonce = n
	}

	var gas uint64
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	} else {
		est, err := b.EstimateGas(ctx, ethereum.CallMsg{From: from, To: args.To, Value: value, Data: data})
		if err != nil {
			return nil, errors.Wrap(err, "estimate gas")
		}
		gas = applyBpsBuffer(est, gasBufferBps)
	}

	if args.GasPrice != nil {
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: new(big.Int).Set(args.GasPrice.ToInt()),
			Gas:      gas,
			To:       args.To,
			Value:    value,
			Data:     data,
		}), nil
	}

	head, err := b.HeaderByNumber(ctx, nil)
	if err != nil {
		log.Warn("devwallet head lookup failed, using legacy pricing", "error", err)
	}

	if head == nil || head.BaseFee == nil {
		price, err := b.SuggestGasPrice(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "suggest gas price")
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: price,
			Gas:      gas,
			To:       args.To,
			Value:    value,
			Data:     data,
		}), nil
	}

	tipCap, feeCap := suggestFees(ctx, b, head.BaseFee, args)
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).Set(chainID),
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        args.To,
		Value:     value,
		Data:      data,
	}), nil
}

// suggestFees returns tip and fee caps. Fee cap defaults to 2*baseFee + tip.
func suggestFees(ctx context.Context, b ChainBackend, baseFee *big.Int, args TxArgs) (*big.Int, *big.Int) {
	var tipCap *big.Int
	if args.MaxPriorityFeePerGas != nil {
		tipCap = new(big.Int).Set(args.MaxPriorityFeePerGas.ToInt())
	} else if tip, err := b.SuggestGasTipCap(ctx); err == nil && tip != nil {
		tipCap = tip
	} else {
		tipCap = big.NewInt(defaultTipCapWei)
	}

	var feeCap *big.Int
	if args.MaxFeePerGas != nil {
		feeCap = new(big.Int).Set(args.MaxFeePerGas.ToInt())
	} else {
		feeCap = new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tipCap)
	}

	if feeCap.Cmp(tipCap) < 0 {
		tipCap = new(big.Int).Set(feeCap)
	}
	return tipCap, feeCap
}

func applyBpsBuffer(gas uint64, bps uint64) uint64 {
	return (gas * bps) / 10000
}

// describeTx renders the prompt details for a transaction.
func describeTx(tx *types.Transaction, d chains.Descriptor) map[string]string {
	to := "(contract creation)"
	if tx.To() != nil {
		to = tx.To().Hex()
	}

	out := map[string]string{
		"to":    to,
		"value": formatUnits(tx.Value(), d.NativeCurrency.Decimals) + " " + d.NativeCurrency.Symbol,
		"gas":   strconv.FormatUint(tx.Gas(), 10),
		"nonce": strconv.FormatUint(tx.Nonce(), 10),
		"data":  strconv.Itoa(len(tx.Data())) + " bytes",
	}
	if tx.Type() == types.DynamicFeeTxType {
		out["maxFee"] = formatUnits(tx.GasFeeCap(), 9) + " gwei"
	} else {
		out["gasPrice"] = formatUnits(tx.GasPrice(), 9) + " gwei"
	}
	return out
}

func formatUnits(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}
