// Package domain executes the list, get, create, update and delete
// operations of one domain without hand-written GraphQL documents.
package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neoscript99/go-gql-domain/internal/metrics"
	"github.com/neoscript99/go-gql-domain/pkg/criteria"
	"github.com/neoscript99/go-gql-domain/pkg/document"
	"github.com/neoscript99/go-gql-domain/pkg/schema"
	"github.com/neoscript99/go-gql-domain/types"
)

// ErrNoFieldSet is returned when the domain's type could not be introspected
// into a non-empty field set.
var ErrNoFieldSet = fmt.Errorf("no field set available: %w", document.ErrEmptySelection)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Executor is the network execution boundary. Implementations must not
// cache responses.
type Executor interface {
	QueryRaw(ctx context.Context, document string, variables map[string]any) ([]byte, error)
	MutateRaw(ctx context.Context, document string, variables map[string]any) ([]byte, error)
}

// FieldSets provides the resolved field set of a domain, typically a
// *schema.Registry.
type FieldSets interface {
	FieldSet(ctx context.Context, domain string) (schema.FieldSet, error)
}

// Payload is one entity as returned by the backend.
type Payload = map[string]any

// ListResult is the result of a list query.
type ListResult struct {
	Results    []Payload `json:"results"`
	TotalCount int       `json:"totalCount"`
}

// DeleteResult is the result of a delete mutation.
type DeleteResult struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
}

// Client executes operations for a single domain.
type Client struct {
	domain    string
	exec      Executor
	fieldSets FieldSets
	sanitizer *Sanitizer
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithExcludedKeys replaces the keys stripped from update payloads.
func WithExcludedKeys(keys ...string) Option {
	return func(c *Client) { c.sanitizer = NewSanitizer(keys...) }
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) { c.tracer = tracer }
}

// WithMetrics records operation counts and durations in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Client for domain executing through exec and selecting the
// fields provided by fieldSets.
func New(domain string, exec Executor, fieldSets FieldSets, opts ...Option) *Client {
	c := &Client{
		domain:    domain,
		exec:      exec,
		fieldSets: fieldSets,
		sanitizer: NewSanitizer(types.DefaultExcludedUpdateKeys...),
		tracer:    otel.Tracer("github.com/neoscript99/go-gql-domain/pkg/domain"),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Domain returns the domain name.
func (c *Client) Domain() string { return c.domain }

// Fields returns the resolved field set, resolving it on first use.
func (c *Client) Fields(ctx context.Context) (schema.FieldSet, error) {
	fields, err := c.fieldSets.FieldSet(ctx, c.domain)
	if err != nil {
		return "", err
	}
	if fields.Empty() {
		return "", fmt.Errorf("%s: %w", c.domain, ErrNoFieldSet)
	}
	return fields, nil
}

// List queries the domain list. Non-string criteria are serialized to JSON.
func (c *Client) List(ctx context.Context, crit any) (*ListResult, error) {
	encoded, err := criteria.Encode(crit)
	if err != nil {
		return nil, err
	}
	out := &ListResult{}
	err = c.execute(ctx, document.KindList, map[string]any{types.CriteriaVariable: encoded}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the entity with id, or nil when the backend returns null.
func (c *Client) Get(ctx context.Context, id string) (Payload, error) {
	var out Payload
	if err := c.execute(ctx, document.KindGet, map[string]any{types.IDVariable: id}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create sends value verbatim and returns the created entity.
func (c *Client) Create(ctx context.Context, value map[string]any) (Payload, error) {
	var out Payload
	if err := c.execute(ctx, document.KindCreate, map[string]any{c.domain: value}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update strips the excluded keys from a copy of value, sends it and
// returns the updated entity.
func (c *Client) Update(ctx context.Context, id string, value map[string]any) (Payload, error) {
	variables := map[string]any{
		types.IDVariable: id,
		c.domain:         c.sanitizer.Sanitize(value),
	}
	var out Payload
	if err := c.execute(ctx, document.KindUpdate, variables, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete deletes the entity with id.
func (c *Client) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	out := &DeleteResult{}
	if err := c.execute(ctx, document.KindDelete, map[string]any{types.IDVariable: id}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) execute(ctx context.Context, kind document.Kind, variables map[string]any, out any) error {
	ctx, span := c.tracer.Start(ctx, "domain."+kind.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gqldomain.domain", c.domain),
			attribute.String("gqldomain.operation", kind.String()),
		))
	defer span.End()

	start := time.Now()
	err := c.do(ctx, kind, variables, out)
	c.metrics.ObserveOperation(c.domain, kind.String(), start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.DebugContext(ctx, "domain operation failed",
			"domain", c.domain, "operation", kind.String(), "error", err)
	}
	return err
}

func (c *Client) do(ctx context.Context, kind document.Kind, variables map[string]any, out any) error {
	var fields schema.FieldSet
	if kind != document.KindDelete {
		var err error
		if fields, err = c.Fields(ctx); err != nil {
			return err
		}
	}

	doc, err := document.Render(document.Operation{Domain: c.domain, Kind: kind, Fields: fields})
	if err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "domain operation",
		"domain", c.domain, "operation", doc.Name, "variables", variables)

	var data []byte
	if kind.IsMutation() {
		data, err = c.exec.MutateRaw(ctx, doc.Text, variables)
	} else {
		data, err = c.exec.QueryRaw(ctx, doc.Text, variables)
	}
	if err != nil {
		return err
	}
	return unwrap(data, doc.ResultKey, out)
}

// unwrap decodes the value of the single top-level key of data into out.
// A missing or null value leaves out untouched.
func unwrap(data []byte, key string, out any) error {
	if len(data) == 0 {
		return nil
	}
	var top map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	raw, ok := top[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
