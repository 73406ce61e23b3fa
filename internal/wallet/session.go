package wallet

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/prediction-market-client/internal/chains"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// ConnectionResult is the account a successful Connect returns.
type ConnectionResult struct {
	Address string
}

func (r ConnectionResult) String() string { return r.Address }

// Session connects to a wallet provider and keeps it on the target chain.
// It holds no state between calls; the mutex only keeps one wallet prompt outstanding per session.
type Session struct {
	locate Locator
	target chains.Descriptor

	promptMu sync.Mutex
}

type Option func(*Session)

// WithTargetChain overrides the default target network (Sapphire testnet).
func WithTargetChain(d chains.Descriptor) Option {
	return func(s *Session) {
		s.target = d.Clone()
	}
}

func NewSession(locate Locator, opts ...Option) *Session {
	s := &Session{
		locate: locate,
		target: chains.SapphireTestnet(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Target returns a copy of the session's target chain.
func (s *Session) Target() chains.Descriptor {
	return s.target.Clone()
}

// EnsureProvider returns the injected provider or a ProviderUnavailable error.
func (s *Session) EnsureProvider(ctx context.Context) (Provider, error) {
	if s.locate == nil {
		return nil, providerUnavailable(nil)
	}
	p, err := s.locate(ctx)
	if err != nil {
		return nil, providerUnavailable(err)
	}
	if p == nil {
		return nil, providerUnavailable(nil)
	}
	return p, nil
}

// SwitchOrAddChain points the wallet at target (the session target when nil).
// An unknown chain (4902) is registered with wallet_addEthereumChain, which also activates it.
func (s *Session) SwitchOrAddChain(ctx context.Context, target *chains.Descriptor) error {
	p, err := s.EnsureProvider(ctx)
	if err != nil {
		return err
	}

	s.promptMu.Lock()
	defer s.promptMu.Unlock()

	return s.switchOrAddChain(ctx, p, s.resolveTarget(target))
}

func (s *Session) resolveTarget(target *chains.Descriptor) chains.Descriptor {
	if target == nil {
		return s.target.Clone()
	}
	return target.Clone()
}

func (s *Session) switchOrAddChain(ctx context.Context, p Provider, target chains.Descriptor) error {
	err := p.Request(ctx, constants.MethodWalletSwitchChain,
		[]any{switchChainParams{ChainID: target.ChainID}}, nil)
	if err == nil {
		log.Info("wallet chain switched", "chainId", target.ChainID)
		return nil
	}

	if ErrorCode(err) != constants.ProviderErrorCodeUnrecognizedChain {
		return chainSwitchFailed(err)
	}

	log.Info("wallet does not know chain, adding it", "chainId", target.ChainID, "chainName", target.ChainName)
	if addErr := p.Request(ctx, constants.MethodWalletAddChain, []any{target}, nil); addErr != nil {
		return chainSwitchFailed(addErr)
	}
	return nil
}

// Connect returns an authorized account. Already-authorized accounts are returned without
// prompting; otherwise the chain is switched first and then account access is requested.
func (s *Session) Connect(ctx context.Context) (ConnectionResult, error) {
	p, err := s.EnsureProvider(ctx)
	if err != nil {
		return ConnectionResult{}, err
	}

	addr, err := s.connect(ctx, p)
	if err == nil {
		return ConnectionResult{Address: addr}, nil
	}

	switch {
	case isUserRejection(err):
		log.Info("wallet connection rejected by user")
		return ConnectionResult{}, userRejected(err)
	case IsKind(err, KindProviderUnavailable):
		return ConnectionResult{}, err
	default:
		log.Error("wallet connection failed", "error", err)
		return ConnectionResult{}, connectionFailed(err)
	}
}

func (s *Session) connect(ctx context.Context, p Provider) (string, error) {
	var existing []string
	if err := p.Request(ctx, constants.MethodEthAccounts, nil, &existing); err != nil {
		return "", errors.Wrap(err, "query authorized accounts")
	}
	if first := firstAccount(existing); first != "" {
		return first, nil
	}

	s.promptMu.Lock()
	defer s.promptMu.Unlock()

	if err := s.switchOrAddChain(ctx, p, s.target.Clone()); err != nil {
		return "", err
	}

	var accounts []string
	if err := p.Request(ctx, constants.MethodEthRequestAccounts, nil, &accounts); err != nil {
		return "", errors.Wrap(err, "request accounts")
	}
	first := firstAccount(accounts)
	if first == "" {
		return "", noAccountsReturned()
	}

	log.Info("wallet connected", "account", first, "chainId", s.target.ChainID)
	return first, nil
}

func firstAccount(accounts []string) string {
	if len(accounts) == 0 {
		return ""
	}
	return strings.TrimSpace(accounts[0])
}
