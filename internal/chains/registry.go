package chains

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
	"github.com/quantumauth-io/prediction-market-client/internal/securefile"
)

var ErrChainExists = errors.New("chain already registered")

type Store struct {
	Schema int                   `json:"schema"`
	Chains map[string]Descriptor `json:"chains"` // key = normalized chainId
}

func NewEmptyStore() Store {
	return Store{
		Schema: constants.SchemaV1,
		Chains: map[string]Descriptor{},
	}
}

// Registry is the set of networks a wallet knows about, optionally persisted as JSON.
type Registry struct {
	mu    sync.RWMutex
	path  string
	store Store
}

// NewRegistry creates a registry backed by path. An empty path keeps it in memory only.
func NewRegistry(path string) *Registry {
	return &Registry{
		path:  strings.TrimSpace(path),
		store: NewEmptyStore(),
	}
}

func (r *Registry) Path() string { return r.path }

// Load reads the registry file. A missing file leaves the registry empty.
func (r *Registry) Load(ctx context.Context) error {
	if r.path == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "read chains file")
	}

	var s Store
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "unmarshal chains file")
	}

	norm := NewEmptyStore()
	if s.Schema != 0 {
		norm.Schema = s.Schema
	}
	for k, d := range s.Chains {
		if d.ChainID == "" {
			d.ChainID = k
		}
		d.ChainID = NormalizeChainID(d.ChainID)
		// must be usable by wallet_addEthereumChain to be kept
		if err := d.Validate(); err != nil {
			continue
		}
		norm.Chains[d.Key()] = d
	}

	r.mu.Lock()
	r.store = norm
	r.mu.Unlock()
	return nil
}

// Add registers d. Returns ErrChainExists when the chain id is already known.
func (r *Registry) Add(ctx context.Context, d Descriptor) (Descriptor, error) {
	d = normalizeDescriptor(d)
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}

	r.mu.Lock()
	if _, ok := r.store.Chains[d.Key()]; ok {
		r.mu.Unlock()
		return Descriptor{}, errors.Wrapf(ErrChainExists, "chainId %s", d.ChainID)
	}
	r.store.Chains[d.Key()] = d.Clone()
	r.mu.Unlock()

	if err := r.persist(ctx); err != nil {
		r.mu.Lock()
		delete(r.store.Chains, d.Key())
		r.mu.Unlock()
		return Descriptor{}, err
	}
	return d.Clone(), nil
}

// Remove deletes a chain by id. Removing an unknown chain is a no-op.
func (r *Registry) Remove(ctx context.Context, chainID string) error {
	key := NormalizeChainID(chainID)

	r.mu.Lock()
	if _, ok := r.store.Chains[key]; !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.store.Chains, key)
	r.mu.Unlock()

	return r.persist(ctx)
}

func (r *Registry) Find(chainID string) (Descriptor, bool) {
	key := NormalizeChainID(chainID)
	if key == "" {
		return Descriptor{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.store.Chains[key]
	if !ok {
		return Descriptor{}, false
	}
	return d.Clone(), true
}

func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.store.Chains))
	for _, d := range r.store.Chains {
		out = append(out, d.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ChainName < out[j].ChainName
	})
	return out
}

// EnsureDefaults merges defaults into the registry:
// - missing chains are added
// - known chains only get empty fields filled, user values are kept
func (r *Registry) EnsureDefaults(ctx context.Context, defaults []Descriptor) error {
	changed := false

	r.mu.Lock()
	for _, dd := range defaults {
		dd = normalizeDescriptor(dd)
		if err := dd.Validate(); err != nil {
			// skip invalid config entries
			continue
		}

		existing, ok := r.store.Chains[dd.Key()]
		if !ok {
			r.store.Chains[dd.Key()] = dd.Clone()
			changed = true
			continue
		}

		if existing.ChainName == "" && dd.ChainName != "" {
			existing.ChainName = dd.ChainName
			changed = true
		}
		if len(existing.RPCURLs) == 0 && len(dd.RPCURLs) > 0 {
			existing.RPCURLs = append([]string(nil), dd.RPCURLs...)
			changed = true
		}
		if len(existing.BlockExplorerURLs) == 0 && len(dd.BlockExplorerURLs) > 0 {
			existing.BlockExplorerURLs = append([]string(nil), dd.BlockExplorerURLs...)
			changed = true
		}
		r.store.Chains[dd.Key()] = existing
	}
	r.mu.Unlock()

	if r.path != "" && !securefile.Exists(r.path) {
		changed = true
	}
	if changed {
		return r.persist(ctx)
	}
	return nil
}

func (r *Registry) persist(ctx context.Context) error {
	if r.path == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "persist chains")
	}

	if err := os.MkdirAll(filepath.Dir(r.path), constants.DirectoryPerm); err != nil {
		return errors.Wrap(err, "mkdir chains dir")
	}

	r.mu.RLock()
	b, err := json.MarshalIndent(r.store, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "marshal chains store")
	}

	return securefile.AtomicWriteFile(r.path, b, constants.FilePerm)
}

func normalizeDescriptor(d Descriptor) Descriptor {
	d.ChainID = NormalizeChainID(d.ChainID)
	d.ChainName = strings.TrimSpace(d.ChainName)
	d.NativeCurrency.Name = strings.TrimSpace(d.NativeCurrency.Name)
	d.NativeCurrency.Symbol = strings.TrimSpace(d.NativeCurrency.Symbol)
	d.RPCURLs = normalizeURLs(d.RPCURLs)
	d.BlockExplorerURLs = normalizeURLs(d.BlockExplorerURLs)
	return d
}

func normalizeURLs(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, raw := range in {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		key := strings.ToLower(u)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
	}
	return out
}
