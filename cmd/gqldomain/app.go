package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	graphql "github.com/neoscript99/go-gql-domain"
	"github.com/neoscript99/go-gql-domain/internal/config"
	"github.com/neoscript99/go-gql-domain/internal/metrics"
	"github.com/neoscript99/go-gql-domain/internal/telemetry"
	"github.com/neoscript99/go-gql-domain/pkg/domain"
	"github.com/neoscript99/go-gql-domain/pkg/fieldcache"
	"github.com/neoscript99/go-gql-domain/pkg/fieldcache/postgres"
	"github.com/neoscript99/go-gql-domain/pkg/fieldcache/sqlite"
	"github.com/neoscript99/go-gql-domain/pkg/schema"
	"github.com/neoscript99/go-gql-domain/pkg/store"
)

// app is the wired set of components one command runs against.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	client   *graphql.Client
	registry *schema.Registry
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	messages *store.Messages
	closers  []func(context.Context) error
}

func newApp(ctx context.Context, cfg config.Config, stderr io.Writer) (*app, error) {
	logger := newLogger(cfg.LogLevel, stderr)
	a := &app{cfg: cfg, logger: logger}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.Service)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	reg := prometheus.NewRegistry()
	a.metrics = metrics.New()
	if err := a.metrics.Register(reg); err != nil {
		a.close(ctx)
		return nil, err
	}
	a.gatherer = reg

	a.client = newGraphQLClient(cfg, logger)

	opts := []schema.RegistryOption{schema.WithLogger(logger)}
	cache, err := a.openCache(ctx)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("field set cache: %w", err)
	}
	if cache != nil {
		opts = append(opts, schema.WithCache(cache))
	}
	resolver := schema.NewResolver(schema.NewIntrospector(a.client), schema.WithMaxDepth(cfg.MaxDepth))
	a.registry = schema.NewRegistry(resolver, opts...)

	a.messages = store.NewMessages(func(m store.Message) {
		level := slog.LevelInfo
		if m.Type == store.MessageError {
			level = slog.LevelError
		}
		logger.Log(context.Background(), level, m.Text, "type", m.Type)
	})
	return a, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

func newGraphQLClient(cfg config.Config, logger *slog.Logger) *graphql.Client {
	client := graphql.NewClient(cfg.Endpoint, http.DefaultClient).
		WithDebug(cfg.Debug).
		WithTimeout(cfg.Timeout).
		WithLogger(logger)
	if len(cfg.DefaultVariables) > 0 {
		client = client.WithDefaultVariables(cfg.DefaultVariables)
	}
	if cfg.RateLimit.Limit > 0 {
		client = client.WithRateLimit(cfg.RateLimit.Limit, cfg.RateLimit.Burst)
	}
	if len(cfg.Headers) > 0 {
		headers := cfg.Headers
		client = client.WithRequestModifier(func(r *http.Request) {
			for k, v := range headers {
				r.Header.Set(k, v)
			}
		})
	}
	return client
}

func (a *app) openCache(ctx context.Context) (schema.Cache, error) {
	c := a.cfg.Cache
	switch c.Backend {
	case config.CacheMemory:
		return fieldcache.NewMemory(c.MaxAge), nil
	case config.CacheSQLite:
		cache, err := sqlite.Open(ctx, c.DSN, a.cfg.Endpoint, c.MaxAge)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return cache.Close() })
		return cache, nil
	case config.CachePostgres:
		cache, err := postgres.Open(ctx, c.DSN, a.cfg.Endpoint, c.MaxAge)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return cache.Close() })
		return cache, nil
	default:
		return nil, nil
	}
}

func (a *app) domainClient(name string) *domain.Client {
	return domain.New(name, a.client, a.registry,
		domain.WithExcludedKeys(a.cfg.ExcludedKeys...),
		domain.WithMetrics(a.metrics),
		domain.WithLogger(a.logger))
}

func (a *app) store(name string) *store.Store {
	return store.New(a.domainClient(name),
		store.WithMessages(a.messages),
		store.WithPageSize(a.cfg.PageSize))
}

// printMetrics writes the operation counters as "name{labels} value" lines.
func (a *app) printMetrics(w io.Writer) {
	families, err := a.gatherer.Gather()
	if err != nil {
		a.logger.Warn("gather metrics", "error", err)
		return
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), value))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown", "error", err)
		}
	}
}
