package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// State is the resolution state of a domain's field set.
type State int

const (
	StateUnresolved State = iota
	StateResolving
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Cache persists resolved field sets between Registry instances.
type Cache interface {
	Load(ctx context.Context, domain string) (FieldSet, bool, error)
	Store(ctx context.Context, domain string, fields FieldSet) error
}

type entry struct {
	state  State
	fields FieldSet
	err    error
}

// Registry resolves each domain's field set at most once. Concurrent first
// callers share a single in-flight resolution. A failed resolution is not
// memoized: the next caller starts a new one.
type Registry struct {
	resolver *Resolver
	cache    Cache
	logger   *slog.Logger

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]*entry
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCache makes the Registry consult and fill cache.
func WithCache(cache Cache) RegistryOption {
	return func(r *Registry) { r.cache = cache }
}

// WithLogger sets the Registry logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry returns a Registry backed by resolver.
func NewRegistry(resolver *Resolver, opts ...RegistryOption) *Registry {
	r := &Registry{
		resolver: resolver,
		logger:   slog.Default(),
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TypeName returns the root type name of domain ("user" -> "User").
func TypeName(domain string) string {
	first, size := utf8.DecodeRuneInString(domain)
	if first == utf8.RuneError {
		return domain
	}
	return string(unicode.ToUpper(first)) + domain[size:]
}

// State reports the resolution state of domain.
func (r *Registry) State(domain string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[domain]; ok {
		return e.state
	}
	return StateUnresolved
}

// FieldSet returns the field set of domain, resolving it on first use.
// The shared resolution is not cancelled when ctx is; ctx only bounds how
// long this caller waits for it.
func (r *Registry) FieldSet(ctx context.Context, domain string) (FieldSet, error) {
	if fields, ok := r.resolved(domain); ok {
		return fields, nil
	}

	ch := r.group.DoChan(domain, func() (any, error) {
		return r.resolve(context.WithoutCancel(ctx), domain)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(FieldSet), nil
	}
}

// Warm resolves the field sets of domains concurrently.
func (r *Registry) Warm(ctx context.Context, domains ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, domain := range domains {
		g.Go(func() error {
			_, err := r.FieldSet(gctx, domain)
			return err
		})
	}
	return g.Wait()
}

func (r *Registry) resolved(domain string) (FieldSet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[domain]
	if !ok || e.state != StateResolved {
		return "", false
	}
	return e.fields, true
}

func (r *Registry) setState(domain string, e *entry) {
	r.mu.Lock()
	r.entries[domain] = e
	r.mu.Unlock()
}

func (r *Registry) resolve(ctx context.Context, domain string) (FieldSet, error) {
	// a flight that finished between the caller's check and DoChan
	if fields, ok := r.resolved(domain); ok {
		return fields, nil
	}
	r.setState(domain, &entry{state: StateResolving})

	if r.cache != nil {
		fields, ok, err := r.cache.Load(ctx, domain)
		switch {
		case err != nil:
			r.logger.WarnContext(ctx, "field set cache load failed", "domain", domain, "error", err)
		case ok && !fields.Empty():
			r.setState(domain, &entry{state: StateResolved, fields: fields})
			return fields, nil
		}
	}

	fields, err := r.resolver.Resolve(ctx, TypeName(domain))
	if err != nil {
		err = fmt.Errorf("resolve field set of %s: %w", domain, err)
		r.setState(domain, &entry{state: StateFailed, err: err})
		return "", err
	}
	r.setState(domain, &entry{state: StateResolved, fields: fields})

	if fields.Empty() {
		r.logger.WarnContext(ctx, "no field set available", "domain", domain)
		return fields, nil
	}
	r.logger.DebugContext(ctx, "field set resolved", "domain", domain, "fields", string(fields))
	if r.cache != nil {
		if err := r.cache.Store(ctx, domain, fields); err != nil {
			r.logger.WarnContext(ctx, "field set cache store failed", "domain", domain, "error", err)
		}
	}
	return fields, nil
}
