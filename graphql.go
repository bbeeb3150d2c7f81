package graphql

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the per-request identifier generated by the client.
const RequestIDHeader = "X-Request-Id"

// This function allows you to tweak the HTTP request. It might be useful to set authentication
// headers  amongst other things
type RequestModifier func(*http.Request)

// TransportFunc sends a prepared HTTP request. It lets environments that lack
// a native HTTP client plug in their own request primitive.
type TransportFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f TransportFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Client executes pre-built GraphQL documents against a single endpoint.
//
// # Immutable Pattern
//
// The Client's With* methods return a new Client instance rather than
// modifying the receiver. Always use the returned Client:
//
//	client = client.WithDebug(true)  // Correct
//	client.WithDebug(true)            // Wrong - original client unchanged
//
// Methods can be chained since each returns a new Client:
//
//	client = client.WithDebug(true).WithDefaultVariables(vars)
type Client struct {
	url              string // GraphQL server URL.
	httpClient       *http.Client
	requestModifier  RequestModifier
	defaultVariables map[string]any
	limiter          *rate.Limiter
	timeout          time.Duration
	logger           *slog.Logger
	debug            bool
}

// NewClient creates a GraphQL client targeting the specified GraphQL server URL.
// If httpClient is nil, then http.DefaultClient is used.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		url:        url,
		httpClient: httpClient,
		logger:     slog.Default(),
	}
}

// QueryRaw executes a query document and returns the raw "data" member of
// the response. Responses are never cached: every call is a round trip.
func (c *Client) QueryRaw(
	ctx context.Context,
	document string,
	variables map[string]any,
) ([]byte, error) {
	return c.doRaw(ctx, queryOperation, document, variables)
}

// MutateRaw executes a mutation document and returns the raw "data" member
// of the response.
func (c *Client) MutateRaw(
	ctx context.Context,
	document string,
	variables map[string]any,
) ([]byte, error) {
	return c.doRaw(ctx, mutationOperation, document, variables)
}

// mergeVariables returns the default variables overlaid with the call's
// own variables. Call variables win.
func (c *Client) mergeVariables(variables map[string]any) map[string]any {
	if len(c.defaultVariables) == 0 {
		return variables
	}
	merged := make(map[string]any, len(c.defaultVariables)+len(variables))
	maps.Copy(merged, c.defaultVariables)
	maps.Copy(merged, variables)
	return merged
}

// doRaw executes a single GraphQL operation and returns raw data and errors.
func (c *Client) doRaw(
	ctx context.Context,
	op operationType,
	document string,
	variables map[string]any,
) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, newSimpleErrors(ErrRequestError, err)
		}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	requestID := uuid.NewString()
	start := time.Now()
	c.logger.DebugContext(ctx, "graphql request",
		"operation", op.String(),
		"request_id", requestID,
		"document", document)

	data, errs := c.request(ctx, requestID, document, c.mergeVariables(variables))

	c.logger.DebugContext(ctx, "graphql response",
		"operation", op.String(),
		"request_id", requestID,
		"duration", time.Since(start),
		"errors", len(errs))
	if len(errs) > 0 {
		return data, errs
	}
	return data, nil
}

// handleGzipResponse wraps the response body reader with a gzip decompressor
// if the Content-Encoding header indicates gzip compression.
func handleGzipResponse(
	resp *http.Response,
	bodyReader io.Reader,
) (io.ReadCloser, error) {
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gr, err := gzip.NewReader(bodyReader)
		if err != nil {
			return nil, fmt.Errorf("problem trying to create gzip reader: %w", err)
		}
		return gr, nil
	}
	return io.NopCloser(bodyReader), nil
}

func (c *Client) request(
	ctx context.Context,
	requestID string,
	document string,
	variables map[string]any,
) ([]byte, Errors) {
	request, reqBody, err := c.BuildRequest(ctx, document, variables)
	if err != nil {
		e := c.NewRequestError(
			ErrRequestError,
			fmt.Errorf("problem constructing request: %w", err),
			request,
			nil,
			bytes.NewReader(reqBody),
			nil,
		)
		return nil, Errors{e}
	}
	request.Header.Set(RequestIDHeader, requestID)

	resp, err := c.httpClient.Do(request)
	if err != nil {
		e := c.NewRequestError(
			ErrRequestError,
			err,
			request,
			nil,
			bytes.NewReader(reqBody),
			nil,
		)
		return nil, Errors{e}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		e := c.NewRequestError(
			ErrRequestError,
			fmt.Errorf("%v; body: %q", resp.Status, body),
			request,
			nil,
			bytes.NewReader(reqBody),
			nil,
		)
		return nil, Errors{e}
	}

	r, err := handleGzipResponse(resp, resp.Body)
	if err != nil {
		return nil, newSimpleErrors(ErrJsonDecode, err)
	}
	defer func() { _ = r.Close() }()

	respBody, err := io.ReadAll(r)
	if err != nil {
		return nil, newSimpleErrors(ErrJsonDecode, err)
	}

	rawData, gqlErrors := c.DecodeResponse(bytes.NewReader(respBody))
	if len(gqlErrors) == 0 {
		return rawData, nil
	}

	if gqlErrors[0].GetCode() == ErrJsonDecode {
		we := c.NewRequestError(
			ErrJsonDecode,
			fmt.Errorf("%s", gqlErrors[0].Message),
			request,
			resp,
			bytes.NewReader(reqBody),
			bytes.NewReader(respBody),
		)
		return nil, Errors{we}
	}

	if c.debug && gqlErrors[0].GetInternalExtensions() == nil {
		gqlErrors[0] = c.DecorateError(
			gqlErrors[0],
			request,
			resp,
			bytes.NewReader(reqBody),
			bytes.NewReader(respBody),
		)
	}
	return rawData, gqlErrors
}

// BuildRequest constructs an HTTP request with JSON body for a GraphQL operation.
// It returns the HTTP request and the request body bytes (useful for error decoration).
func (c *Client) BuildRequest(
	ctx context.Context,
	document string,
	variables map[string]any,
) (*http.Request, []byte, error) {
	if len(variables) == 0 {
		variables = nil
	}
	in := struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables,omitempty"`
	}{
		Query:     document,
		Variables: variables,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(in); err != nil {
		return nil, nil, err
	}

	reqBody := buf.Bytes()
	request, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.url,
		bytes.NewReader(reqBody),
	)
	if err != nil {
		return nil, reqBody, err
	}
	request.Header.Add("Content-Type", "application/json")

	if c.requestModifier != nil {
		c.requestModifier(request)
	}

	return request, reqBody, nil
}

// DecodeResponse decodes a GraphQL JSON response into raw data and errors.
func (c *Client) DecodeResponse(reader io.Reader) ([]byte, Errors) {
	var out struct {
		Data   *json.RawMessage
		Errors Errors
	}

	if err := json.NewDecoder(reader).Decode(&out); err != nil {
		return nil, newSimpleErrors(ErrJsonDecode, err)
	}

	var rawData []byte
	if out.Data != nil && len(*out.Data) > 0 && string(*out.Data) != "null" {
		rawData = *out.Data
	}

	if len(out.Errors) > 0 {
		return rawData, out.Errors
	}
	return rawData, nil
}

// clone creates a copy of the Client with all fields preserved.
func (c *Client) clone() *Client {
	clone := *c
	return &clone
}

// WithRequestModifier returns a new Client with the request modifier set,
// e.g. to add authentication headers.
func (c *Client) WithRequestModifier(f RequestModifier) *Client {
	clone := c.clone()
	clone.requestModifier = f
	return clone
}

// WithDebug returns a new Client with debug mode enabled or disabled.
// When enabled, errors carry the request and response bodies in their
// "internal" extension.
func (c *Client) WithDebug(debug bool) *Client {
	clone := c.clone()
	clone.debug = debug
	return clone
}

// WithDefaultVariables returns a new Client whose requests always include
// vars. Variables passed to an individual call override defaults with the
// same name.
func (c *Client) WithDefaultVariables(vars map[string]any) *Client {
	clone := c.clone()
	clone.defaultVariables = maps.Clone(vars)
	return clone
}

// WithTransport returns a new Client that sends requests through fn instead
// of the configured http.Client transport.
func (c *Client) WithTransport(fn TransportFunc) *Client {
	clone := c.clone()
	hc := *c.httpClient
	hc.Transport = fn
	clone.httpClient = &hc
	return clone
}

// WithTimeout returns a new Client that bounds every request by d.
// Zero disables the bound.
func (c *Client) WithTimeout(d time.Duration) *Client {
	clone := c.clone()
	clone.timeout = d
	return clone
}

// WithRateLimit returns a new Client that waits for a token before each
// request. A non-positive limit disables rate limiting.
func (c *Client) WithRateLimit(limit float64, burst int) *Client {
	clone := c.clone()
	if limit <= 0 {
		clone.limiter = nil
		return clone
	}
	if burst < 1 {
		burst = 1
	}
	clone.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	return clone
}

// WithLogger returns a new Client logging to logger.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	clone := c.clone()
	if logger == nil {
		logger = slog.Default()
	}
	clone.logger = logger
	return clone
}

// DecorateError decorates an error with request/response information if debug
// mode is enabled.
func (c *Client) DecorateError(
	err Error,
	req *http.Request,
	resp *http.Response,
	reqBody,
	respBody io.Reader,
) Error {
	if !c.debug {
		return err
	}

	if req != nil && reqBody != nil {
		err = err.withRequest(req, reqBody)
	}

	if resp != nil && respBody != nil {
		err = err.withResponse(resp, respBody)
	}

	return err
}

// NewRequestError creates a new error with the given code and decorates it with
// request/response information if debug mode is enabled.
func (c *Client) NewRequestError(
	code string,
	err error,
	req *http.Request,
	resp *http.Response,
	reqBody,
	respBody io.Reader,
) Error {
	e := newError(code, err)
	return c.DecorateError(e, req, resp, reqBody, respBody)
}

type operationType uint8

const (
	queryOperation operationType = iota
	mutationOperation
)

func (op operationType) String() string {
	if op == mutationOperation {
		return "mutation"
	}
	return "query"
}
