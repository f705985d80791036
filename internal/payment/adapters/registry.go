package adapters

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"github.com/smallbiznis/hrledger/internal/payment/domain"
)

// Registry builds gateway verifiers and reuses them while the provider,
// mode and secret stay the same, so each mode keeps one HTTP client.
type Registry struct {
	factories map[string]domain.AdapterFactory

	mu        sync.Mutex
	verifiers map[verifierKey]domain.Verifier
}

type verifierKey struct {
	provider string
	mode     domain.Mode
	secret   string
}

func NewRegistry(factories ...domain.AdapterFactory) *Registry {
	registry := &Registry{
		factories: map[string]domain.AdapterFactory{},
		verifiers: map[verifierKey]domain.Verifier{},
	}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		if provider := normalize(factory.Provider()); provider != "" {
			registry.factories[provider] = factory
		}
	}
	return registry
}

func (r *Registry) Providers() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) ProviderExists(provider string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[normalize(provider)]
	return ok
}

// NewVerifier returns the cached verifier for cfg or builds one. A custom
// http.Client in cfg bypasses the cache.
func (r *Registry) NewVerifier(provider string, cfg domain.AdapterConfig) (domain.Verifier, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	provider = normalize(provider)
	factory, ok := r.factories[provider]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	if cfg.Client != nil {
		return factory.NewVerifier(cfg)
	}

	key := verifierKey{provider: provider, mode: cfg.Mode, secret: fingerprint(cfg.SecretKey)}
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.verifiers[key]; ok {
		return v, nil
	}

	v, err := factory.NewVerifier(cfg)
	if err != nil {
		return nil, err
	}
	// A rotated key replaces the old entry for the same provider and mode.
	for k := range r.verifiers {
		if k.provider == key.provider && k.mode == key.mode {
			delete(r.verifiers, k)
		}
	}
	r.verifiers[key] = v
	return v, nil
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:8])
}
