package oracle

import (
	"context"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

var (
	ErrNoContractCode = errors.New("no contract code found at address")
	ErrChainMismatch  = errors.New("rpc chain id differs from configured chain id")
)

const resolverABIJSON = `[
	{
		"inputs": [],
		"name": "nextUnresolvedBetId",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "_betId", "type": "uint256"},
			{"internalType": "bool", "name": "_actualOutcome", "type": "bool"}
		],
		"name": "resolveBet",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var resolverABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(resolverABIJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// Backend is the node access the resolver needs. *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// OutcomeSource reports the real-world result of a bet.
type OutcomeSource interface {
	FetchOutcome(ctx context.Context, betID *big.Int) (bool, error)
}

// StaticOutcome resolves every bet the same way.
type StaticOutcome bool

func (o StaticOutcome) FetchOutcome(context.Context, *big.Int) (bool, error) { return bool(o), nil }

type Resolver struct {
	backend  Backend
	signer   Signer
	outcomes OutcomeSource

	contract common.Address
	chainID  *big.Int
	gasLimit uint64
	gasPrice *big.Int
}

type Option func(*Resolver)

func WithOutcomeSource(src OutcomeSource) Option {
	return func(r *Resolver) { r.outcomes = src }
}

func NewResolver(backend Backend, signer Signer, s Settings, opts ...Option) *Resolver {
	r := &Resolver{
		backend:  backend,
		signer:   signer,
		outcomes: StaticOutcome(true),
		contract: s.ContractAddress(),
		chainID:  new(big.Int).SetUint64(s.ChainID),
		gasLimit: s.GasLimit,
		gasPrice: s.GasPriceWei(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dial connects to the settings' RPC endpoint and builds a resolver signing with the configured key.
func Dial(ctx context.Context, s Settings, opts ...Option) (*Resolver, func(), error) {
	signer, err := SignerFromHex(new(big.Int).SetUint64(s.ChainID), s.PrivateKey)
	if err != nil {
		return nil, nil, err
	}
	client, err := ethclient.DialContext(ctx, s.RPCURL)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "Failed to connect to blockchain at %s", s.RPCURL)
	}
	return NewResolver(client, signer, s, opts...), client.Close, nil
}

func (r *Resolver) From() common.Address { return r.signer.From() }

// CheckConnection verifies the chain id and that the contract is deployed.
func (r *Resolver) CheckConnection(ctx context.Context) error {
	id, err := r.backend.ChainID(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch chain id")
	}
	log.Info("oracle connected", "chainId", id.String(), "contract", r.contract.Hex())
	if id.Cmp(r.chainID) != 0 {
		return errors.Wrapf(ErrChainMismatch, "rpc %s, configured %s", id, r.chainID)
	}

	code, err := r.backend.CodeAt(ctx, r.contract, nil)
	if err != nil {
		return errors.Wrap(err, "fetch contract code")
	}
	if len(code) == 0 {
		return errors.Wrapf(ErrNoContractCode, "%s", r.contract.Hex())
	}
	return nil
}

// NextUnresolvedBetID returns the next bet waiting for resolution. Failures are logged and reported as 0.
func (r *Resolver) NextUnresolvedBetID(ctx context.Context) *big.Int {
	id, err := r.nextUnresolvedBetID(ctx)
	if err != nil {
		log.Error("Error fetching unresolved ID", "error", err)
		return new(big.Int)
	}
	log.Info("fetched unresolved bet id", "betId", id.String())
	return id
}

func (r *Resolver) nextUnresolvedBetID(ctx context.Context) (*big.Int, error) {
	data, err := resolverABI.Pack("nextUnresolvedBetId")
	if err != nil {
		return nil, errors.Wrap(err, "pack nextUnresolvedBetId")
	}
	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{From: r.signer.From(), To: &r.contract, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "call nextUnresolvedBetId")
	}
	vals, err := resolverABI.Unpack("nextUnresolvedBetId", out)
	if err != nil {
		return nil, errors.Wrap(err, "unpack nextUnresolvedBetId")
	}
	id, ok := vals[0].(*big.Int)
	if !ok {
		return nil, errors.Newf("unexpected nextUnresolvedBetId type %T", vals[0])
	}
	return id, nil
}

// Resolve sends resolveBet(betID, outcome) as a legacy transaction with the configured gas settings.
func (r *Resolver) Resolve(ctx context.Context, betID *big.Int, outcome bool) (common.Hash, error) {
	data, err := resolverABI.Pack("resolveBet", betID, outcome)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "pack resolveBet")
	}

	from := r.signer.From()
	nonce, err := r.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "fetch nonce")
	}

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: new(big.Int).Set(r.gasPrice),
		Gas:      r.gasLimit,
		To:       &r.contract,
		Value:    new(big.Int),
		Data:     data,
	})
	signed, err := r.signer.SignTx(ctx, unsigned)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "sign tx")
	}

	if err := r.backend.SendTransaction(ctx, signed); err != nil {
		log.Error("Failed to send resolveBet", "betId", betID.String(), "txHash", signed.Hash().Hex(), "error", err)
		return common.Hash{}, errors.Wrap(err, "send tx")
	}

	log.Info("resolveBet sent",
		"betId", betID.String(),
		"outcome", outcome,
		"nonce", nonce,
		"txHash", signed.Hash().Hex(),
	)
	return signed.Hash(), nil
}

// RunResult describes one resolver pass.
type RunResult struct {
	BetID    *big.Int
	Outcome  bool
	TxHash   common.Hash
	Resolved bool
}

// Run checks the connection, looks up the next unresolved bet and resolves it when there is one.
func (r *Resolver) Run(ctx context.Context) (RunResult, error) {
	log.Info("Oracle service starting", "contract", r.contract.Hex(), "from", r.signer.From().Hex())

	if err := r.CheckConnection(ctx); err != nil {
		log.Error("Cannot connect to contract. Check deployment, network and contract address", "error", err)
		return RunResult{}, err
	}

	id := r.NextUnresolvedBetID(ctx)
	res := RunResult{BetID: id}
	if id.Sign() <= 0 {
		log.Info("No pending bets to resolve")
		return res, nil
	}

	outcome, err := r.outcomes.FetchOutcome(ctx, id)
	if err != nil {
		return res, errors.Wrapf(err, "fetch outcome for bet %s", id)
	}
	res.Outcome = outcome

	hash, err := r.Resolve(ctx, id, outcome)
	if err != nil {
		return res, errors.Wrapf(err, "resolve bet %s", id)
	}
	res.TxHash = hash
	res.Resolved = true
	return res, nil
}
