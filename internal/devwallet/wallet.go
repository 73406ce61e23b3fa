package devwallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/quantumauth-io/prediction-market-client/internal/chains"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

const fallbackChainID = "0x1"

type Config struct {
	Key      *ecdsa.PrivateKey
	Registry *chains.Registry
	Approver Approver

	// Dial opens node connections; defaults to DialEthClient.
	Dial BackendDialer

	// ActiveChain is the chain selected at startup. Empty picks the first registered chain.
	ActiveChain string
}

// Wallet is a single-account wallet agent with user-gated prompts.
type Wallet struct {
	key      *ecdsa.PrivateKey
	address  common.Address
	registry *chains.Registry
	approver Approver
	dial     BackendDialer

	mu         sync.RWMutex
	active     string
	authorized bool
	pending    *Prompt
	backends   map[string]ChainBackend

	// at most one prompt outstanding
	promptMu sync.Mutex
}

func New(cfg Config) (*Wallet, error) {
	if cfg.Key == nil {
		return nil, errors.New("devwallet: nil key")
	}
	if cfg.Registry == nil {
		cfg.Registry = chains.NewRegistry("")
	}
	if cfg.Approver == nil {
		return nil, errors.New("devwallet: nil approver")
	}
	if cfg.Dial == nil {
		cfg.Dial = DialEthClient
	}

	active := chains.NormalizeChainID(cfg.ActiveChain)
	if active == "" {
		if list := cfg.Registry.List(); len(list) > 0 {
			active = list[0].ChainID
		} else {
			active = fallbackChainID
		}
	}

	return &Wallet{
		key:      cfg.Key,
		address:  crypto.PubkeyToAddress(cfg.Key.PublicKey),
		registry: cfg.Registry,
		approver: cfg.Approver,
		dial:     cfg.Dial,
		active:   active,
		backends: map[string]ChainBackend{},
	}, nil
}

func (w *Wallet) Address() common.Address { return w.address }

// Accounts returns the authorized accounts, empty until the user approved access.
func (w *Wallet) Accounts() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.authorized {
		return []string{}
	}
	return []string{w.accountString()}
}

func (w *Wallet) accountString() string {
	return strings.ToLower(w.address.Hex())
}

// RequestAccounts prompts for account access unless it was already granted.
func (w *Wallet) RequestAccounts(ctx context.Context) ([]string, error) {
	if accounts := w.Accounts(); len(accounts) > 0 {
		return accounts, nil
	}

	p := newPrompt(constants.MethodEthRequestAccounts, "Connect account to the requesting app", map[string]string{
		"account": w.address.Hex(),
	})
	if err := w.prompt(ctx, p); err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.authorized = true
	w.mu.Unlock()

	log.Info("devwallet accounts authorized", "account", w.address.Hex(), "prompt", p.ID)
	return w.Accounts(), nil
}

// Revoke drops the account authorization.
func (w *Wallet) Revoke() {
	w.mu.Lock()
	w.authorized = false
	w.mu.Unlock()
}

func (w *Wallet) ChainID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.active
}

// SwitchChain activates a registered chain. Unknown chains fail with 4902.
func (w *Wallet) SwitchChain(ctx context.Context, chainID string) error {
	d, ok := w.registry.Find(chainID)
	if !ok {
		return errUnrecognizedChain(chainID)
	}
	if d.Key() == w.ChainID() {
		return nil
	}

	p := newPrompt(constants.MethodWalletSwitchChain, "Switch network to "+d.ChainName, map[string]string{
		"chainId": d.ChainID,
		"rpc":     d.PrimaryRPC(),
	})
	if err := w.prompt(ctx, p); err != nil {
		return err
	}

	w.setActive(d.Key())
	log.Info("devwallet chain switched", "chainId", d.ChainID, "chainName", d.ChainName, "prompt", p.ID)
	return nil
}

// AddChain registers a chain and makes it active. A known chain only goes through the switch prompt.
func (w *Wallet) AddChain(ctx context.Context, d chains.Descriptor) error {
	if err := d.Validate(); err != nil {
		return errInvalidParams(err.Error())
	}

	if _, ok := w.registry.Find(d.ChainID); ok {
		return w.SwitchChain(ctx, d.ChainID)
	}

	p := newPrompt(constants.MethodWalletAddChain, "Add network "+d.ChainName, map[string]string{
		"chainId":  d.ChainID,
		"currency": d.NativeCurrency.Symbol,
		"rpc":      d.PrimaryRPC(),
	})
	if err := w.prompt(ctx, p); err != nil {
		return err
	}

	added, err := w.registry.Add(ctx, d)
	if err != nil && !errors.Is(err, chains.ErrChainExists) {
		return errInternal("failed to register chain", err)
	}
	if err != nil {
		added, _ = w.registry.Find(d.ChainID)
	}

	w.setActive(added.Key())
	log.Info("devwallet chain added", "chainId", added.ChainID, "chainName", added.ChainName, "prompt", p.ID)
	return nil
}

func (w *Wallet) setActive(key string) {
	w.mu.Lock()
	w.active = key
	w.mu.Unlock()
}

// SendTransaction fills, signs and broadcasts a transaction from the authorized account.
func (w *Wallet) SendTransaction(ctx context.Context, args TxArgs) (common.Hash, error) {
	if args.From == nil {
		return common.Hash{}, errInvalidParams("missing from")
	}
	w.mu.RLock()
	authorized := w.authorized
	w.mu.RUnlock()
	if !authorized || *args.From != w.address {
		return common.Hash{}, errUnauthorized(args.From.Hex())
	}
	if err := args.validate(); err != nil {
		return common.Hash{}, errInvalidParams(err.Error())
	}

	d, chainID, err := w.activeChain()
	if err != nil {
		return common.Hash{}, err
	}
	if args.ChainID != nil && args.ChainID.ToInt().Cmp(chainID) != 0 {
		return common.Hash{}, errInvalidParams("chainId does not match the active chain " + d.ChainID)
	}

	backend, err := w.backend(ctx, d)
	if err != nil {
		return common.Hash{}, errInternal("chain backend unavailable", err)
	}

	unsigned, err := buildTx(ctx, backend, chainID, w.address, args)
	if err != nil {
		return common.Hash{}, errInternal("failed to prepare transaction", err)
	}

	p := newPrompt(constants.MethodEthSendTransaction, "Send transaction on "+d.ChainName, describeTx(unsigned, d))
	if err := w.prompt(ctx, p); err != nil {
		return common.Hash{}, err
	}

	signed, err := types.SignTx(unsigned, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return common.Hash{}, errInternal("failed to sign transaction", err)
	}

	if err := backend.SendTransaction(ctx, signed); err != nil {
		log.Error("devwallet broadcast failed", "txHash", signed.Hash().Hex(), "error", err)
		return common.Hash{}, errInternal("failed to broadcast transaction", err)
	}

	log.Info("devwallet transaction sent",
		"txHash", signed.Hash().Hex(),
		"chainId", d.ChainID,
		"nonce", signed.Nonce(),
		"gas", signed.Gas(),
		"prompt", p.ID,
	)
	return signed.Hash(), nil
}

// TransactionReceipt returns nil while the transaction is pending or unknown.
func (w *Wallet) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	d, _, err := w.activeChain()
	if err != nil {
		return nil, err
	}
	backend, err := w.backend(ctx, d)
	if err != nil {
		return nil, errInternal("chain backend unavailable", err)
	}

	r, err := backend.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, errInternal("failed to fetch receipt", err)
	}
	return r, nil
}

func (w *Wallet) activeChain() (chains.Descriptor, *big.Int, error) {
	active := w.ChainID()
	d, ok := w.registry.Find(active)
	if !ok {
		return chains.Descriptor{}, nil, errInternal("active chain "+active+" has no configuration", nil)
	}
	id, err := d.ChainIDBig()
	if err != nil {
		return chains.Descriptor{}, nil, errInternal("invalid active chain id", err)
	}
	return d, id, nil
}

func (w *Wallet) backend(ctx context.Context, d chains.Descriptor) (ChainBackend, error) {
	w.mu.RLock()
	b, ok := w.backends[d.Key()]
	w.mu.RUnlock()
	if ok {
		return b, nil
	}

	b, err := w.dial(ctx, d)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	if existing, ok := w.backends[d.Key()]; ok {
		w.mu.Unlock()
		return existing, nil
	}
	w.backends[d.Key()] = b
	w.mu.Unlock()
	return b, nil
}

func (w *Wallet) prompt(ctx context.Context, p Prompt) error {
	if !w.promptMu.TryLock() {
		return errRequestPending(p.Method)
	}
	defer w.promptMu.Unlock()

	w.mu.Lock()
	w.pending = &p
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.pending = nil
		w.mu.Unlock()
	}()

	ok, err := w.approver.Approve(ctx, p)
	if err != nil {
		return errInternal("approval failed", err)
	}
	if !ok {
		log.Info("devwallet request rejected", "method", p.Method, "prompt", p.ID)
		return errUserRejected()
	}
	return nil
}

type PendingPrompt struct {
	ID     string `json:"id"`
	Method string `json:"method"`
}

type Status struct {
	Address     string         `json:"address"`
	ChainID     string         `json:"chainId"`
	ChainName   string         `json:"chainName,omitempty"`
	Authorized  bool           `json:"authorized"`
	KnownChains int            `json:"knownChains"`
	Pending     *PendingPrompt `json:"pending,omitempty"`
}

func (w *Wallet) Status() Status {
	w.mu.RLock()
	st := Status{
		Address:    w.address.Hex(),
		ChainID:    w.active,
		Authorized: w.authorized,
	}
	if w.pending != nil {
		st.Pending = &PendingPrompt{ID: w.pending.ID, Method: w.pending.Method}
	}
	w.mu.RUnlock()

	if d, ok := w.registry.Find(st.ChainID); ok {
		st.ChainName = d.ChainName
	}
	st.KnownChains = len(w.registry.List())
	return st
}

// Close drops cached backends, closing those that can be closed.
func (w *Wallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for k, b := range w.backends {
		if c, ok := b.(interface{ Close() }); ok {
			c.Close()
		}
		delete(w.backends, k)
	}
}
