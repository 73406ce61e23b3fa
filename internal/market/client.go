package market

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
	"github.com/quantumauth-io/prediction-market-client/internal/wallet"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/quantumauth-io/quantum-go-utils/retry"
)

var (
	ErrTxReverted    = errors.New("transaction reverted")
	errReceiptNotYet = errors.New("receipt not available yet")
)

// Receipt is the part of a transaction receipt the client reads.
type Receipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber *hexutil.Big   `json:"blockNumber"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
}

// Bet is a placed bet.
type Bet struct {
	Account string
	Outcome bool
	Amount  string
	Value   *hexutil.Big
	TxHash  common.Hash
}

type sendTxParams struct {
	From  string        `json:"from"`
	To    string        `json:"to"`
	Value *hexutil.Big  `json:"value"`
	Data  hexutil.Bytes `json:"data"`
}

// Client places bets through the connected wallet.
type Client struct {
	session  *wallet.Session
	contract common.Address

	pollInterval time.Duration
	waitTimeout  time.Duration
}

type Option func(*Client)

// WithPollInterval sets the receipt polling interval, never below constants.MinReceiptPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = max(d, constants.MinReceiptPollInterval) }
}

func WithWaitTimeout(d time.Duration) Option {
	return func(c *Client) { c.waitTimeout = d }
}

func NewClient(session *wallet.Session, contract string, opts ...Option) (*Client, error) {
	contract = strings.TrimSpace(contract)
	if contract == "" {
		contract = DefaultContract
	}
	if !common.IsHexAddress(contract) {
		return nil, errors.Newf("invalid market contract address %q", contract)
	}

	c := &Client{
		session:      session,
		contract:     common.HexToAddress(contract),
		pollInterval: constants.ReceiptPollInterval,
		waitTimeout:  constants.ReceiptWaitTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Contract() common.Address { return c.contract }

// PlaceBet connects the wallet, makes sure it is on the target chain and sends placeBet(outcome)
// with amount (in the native currency) attached. Returns once the wallet accepted the transaction.
func (c *Client) PlaceBet(ctx context.Context, outcome bool, amount string) (Bet, error) {
	target := c.session.Target()
	value, err := ParseAmount(amount, target.NativeCurrency.Decimals)
	if err != nil {
		return Bet{}, err
	}

	conn, err := c.session.Connect(ctx)
	if err != nil {
		return Bet{}, err
	}
	if err := c.session.SwitchOrAddChain(ctx, nil); err != nil {
		return Bet{}, err
	}

	p, err := c.session.EnsureProvider(ctx)
	if err != nil {
		return Bet{}, err
	}

	data, err := PackPlaceBet(outcome)
	if err != nil {
		return Bet{}, errors.Wrap(err, "pack placeBet")
	}

	params := sendTxParams{
		From:  conn.Address,
		To:    c.contract.Hex(),
		Value: (*hexutil.Big)(value),
		Data:  data,
	}

	var hash common.Hash
	if err := p.Request(ctx, constants.MethodEthSendTransaction, []any{params}, &hash); err != nil {
		log.Error("placeBet transaction failed", "account", conn.Address, "error", err)
		return Bet{}, errors.Wrap(err, "send placeBet transaction")
	}

	log.Info("bet placed",
		"account", conn.Address,
		"outcome", outcome,
		"amount", amount,
		"symbol", target.NativeCurrency.Symbol,
		"txHash", hash.Hex(),
	)
	return Bet{
		Account: conn.Address,
		Outcome: outcome,
		Amount:  FormatAmount(value, target.NativeCurrency.Decimals),
		Value:   (*hexutil.Big)(value),
		TxHash:  hash,
	}, nil
}

// WaitMined polls the wallet for the receipt of hash. A failed status returns ErrTxReverted.
// Pending receipts and transport failures are retried until the wait timeout; errors the wallet
// answers with a JSON-RPC code end the wait immediately.
func (c *Client) WaitMined(ctx context.Context, hash common.Hash) (*Receipt, error) {
	p, err := c.session.EnsureProvider(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	cfg := retry.DefaultConfig()
	cfg.InitialDelayBeforeRetrying = c.pollInterval
	cfg.MaxDelayBeforeRetrying = c.pollInterval

	out, err := retry.Retry(ctx, cfg,
		func(ctx context.Context) ([]interface{}, error) {
			var r *Receipt
			if err := p.Request(ctx, constants.MethodEthGetTransactionReceipt, []any{hash}, &r); err != nil {
				return nil, errors.Wrap(err, "get receipt")
			}
			if r == nil {
				return nil, errReceiptNotYet
			}
			return []interface{}{r}, nil
		},
		shouldRetryReceipt,
		"wait for transaction receipt")
	if err != nil {
		err = errors.Wrapf(err, "waiting for %s", hash.Hex())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Mark(err, ctxErr)
		}
		return nil, err
	}

	r, ok := out[0].(*Receipt)
	if !ok {
		return nil, errors.Newf("unexpected receipt type %T", out[0])
	}
	return checkReceipt(hash, r)
}

// shouldRetryReceipt retries pending receipts and errors without a JSON-RPC code (transport).
func shouldRetryReceipt(err error) bool {
	return errors.Is(err, errReceiptNotYet) || wallet.ErrorCode(err) == 0
}

func checkReceipt(hash common.Hash, r *Receipt) (*Receipt, error) {
	if r.Status == 0 {
		log.Warn("transaction reverted", "txHash", hash.Hex())
		return r, errors.Wrapf(ErrTxReverted, "tx %s", hash.Hex())
	}
	log.Info("transaction mined", "txHash", hash.Hex(), "block", r.BlockNumber, "gasUsed", uint64(r.GasUsed))
	return r, nil
}
