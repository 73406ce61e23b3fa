package wallet

import (
	"context"
)

// Provider is an injected wallet capability with a single request method keyed by method name.
// result is a pointer the JSON response is decoded into; nil discards it.
type Provider interface {
	Request(ctx context.Context, method string, params []any, result any) error
}

// Locator finds the wallet provider. It returns a nil Provider (or an error) when no wallet is present.
type Locator func(ctx context.Context) (Provider, error)

// StaticLocator always returns p.
func StaticLocator(p Provider) Locator {
	return func(context.Context) (Provider, error) {
		return p, nil
	}
}

// switchChainParams is the wallet_switchEthereumChain parameter object.
type switchChainParams struct {
	ChainID string `json:"chainId"`
}
