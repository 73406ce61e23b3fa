// Package rpcprovider adapts a go-ethereum JSON-RPC client to the wallet provider interface.
package rpcprovider

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
	"github.com/quantumauth-io/prediction-market-client/internal/wallet"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

var ErrNoEndpoint = errors.New("no wallet endpoint configured")

type Provider struct {
	client *rpc.Client
}

func New(c *rpc.Client) *Provider {
	return &Provider{client: c}
}

// Dial connects to a wallet agent over http(s), ws(s) or an IPC path.
func Dial(ctx context.Context, url string) (*Provider, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrNoEndpoint
	}
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial wallet %s", url)
	}
	return New(c), nil
}

// Request forwards the call. Errors are returned as the rpc client reports them so ErrorCode survives.
func (p *Provider) Request(ctx context.Context, method string, params []any, result any) error {
	return p.client.CallContext(ctx, result, method, params...)
}

func (p *Provider) Close() {
	p.client.Close()
}

// Ping checks that a wallet answers at all. Any JSON-RPC error response counts as present.
func (p *Provider) Ping(ctx context.Context) error {
	var chainID string
	err := p.Request(ctx, constants.MethodEthChainID, nil, &chainID)
	if err == nil {
		return nil
	}
	var rerr rpc.Error
	if errors.As(err, &rerr) {
		return nil
	}
	return errors.Wrap(err, "ping wallet")
}

// Locator finds the wallet at url. The connection is reused once a ping succeeds.
func Locator(url string) wallet.Locator {
	var (
		mu     sync.Mutex
		cached *Provider
	)
	return func(ctx context.Context) (wallet.Provider, error) {
		mu.Lock()
		defer mu.Unlock()

		if cached != nil {
			return cached, nil
		}

		p, err := Dial(ctx, url)
		if err != nil {
			log.Warn("wallet provider not reachable", "url", url, "error", err)
			return nil, err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			log.Warn("wallet provider not reachable", "url", url, "error", err)
			return nil, err
		}
		cached = p
		return p, nil
	}
}
