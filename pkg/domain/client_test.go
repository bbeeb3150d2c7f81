package domain_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/neoscript99/go-gql-domain/internal/metrics"
	"github.com/neoscript99/go-gql-domain/pkg/criteria"
	"github.com/neoscript99/go-gql-domain/pkg/document"
	"github.com/neoscript99/go-gql-domain/pkg/domain"
	"github.com/neoscript99/go-gql-domain/pkg/schema"
)

type call struct {
	mutation  bool
	document  string
	variables map[string]any
}

// fakeExecutor answers with canned data keyed by operation name.
type fakeExecutor struct {
	mu    sync.Mutex
	data  map[string]string
	err   error
	calls []call
}

func (f *fakeExecutor) QueryRaw(_ context.Context, doc string, variables map[string]any) ([]byte, error) {
	return f.do(false, doc, variables)
}

func (f *fakeExecutor) MutateRaw(_ context.Context, doc string, variables map[string]any) ([]byte, error) {
	return f.do(true, doc, variables)
}

func (f *fakeExecutor) do(mutation bool, doc string, variables map[string]any) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{mutation: mutation, document: doc, variables: variables})
	if f.err != nil {
		return nil, f.err
	}
	for name, data := range f.data {
		if strings.Contains(doc, " "+name+"(") {
			return []byte(data), nil
		}
	}
	return nil, nil
}

func (f *fakeExecutor) last(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls, "no request was sent")
	return f.calls[len(f.calls)-1]
}

// staticFieldSets returns the same field set for every domain.
type staticFieldSets struct {
	fields schema.FieldSet
	err    error
	calls  int
}

func (s *staticFieldSets) FieldSet(context.Context, string) (schema.FieldSet, error) {
	s.calls++
	return s.fields, s.err
}

func newClient(exec *fakeExecutor, opts ...domain.Option) *domain.Client {
	return domain.New("user", exec, &staticFieldSets{fields: "id,name"}, opts...)
}

func TestClient_List(t *testing.T) {
	exec := &fakeExecutor{data: map[string]string{
		"userListQuery": `{"userList":{"results":[{"id":"1","name":"a"},{"id":"2","name":"b"}],"totalCount":12}}`,
	}}
	c := newClient(exec)

	crit := criteria.Criteria{}
	require.NoError(t, criteria.ApplyPaging(crit, 2, 10))
	result, err := c.List(context.Background(), crit)
	require.NoError(t, err)

	assert.Equal(t, 12, result.TotalCount)
	assert.Equal(t, []domain.Payload{{"id": "1", "name": "a"}, {"id": "2", "name": "b"}}, result.Results)

	sent := exec.last(t)
	assert.False(t, sent.mutation)
	assert.Equal(t, "query userListQuery($criteria:String){userList(criteria:$criteria){results{id,name},totalCount}}", sent.document)
	assert.Equal(t, map[string]any{"criteria": `{"max":10,"offset":10}`}, sent.variables)
}

func TestClient_List_stringCriteria(t *testing.T) {
	exec := &fakeExecutor{data: map[string]string{
		"userListQuery": `{"userList":{"results":[],"totalCount":0}}`,
	}}
	_, err := newClient(exec).List(context.Background(), `{"eq":[["name","a"]]}`)
	require.NoError(t, err)
	assert.Equal(t, `{"eq":[["name","a"]]}`, exec.last(t).variables["criteria"])
}

func TestClient_Get(t *testing.T) {
	exec := &fakeExecutor{data: map[string]string{
		"userGet": `{"user":{"id":"1","name":"a"}}`,
	}}
	got, err := newClient(exec).Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, domain.Payload{"id": "1", "name": "a"}, got)
	assert.Equal(t, map[string]any{"id": "1"}, exec.last(t).variables)
}

func TestClient_Get_null(t *testing.T) {
	exec := &fakeExecutor{data: map[string]string{"userGet": `{"user":null}`}}
	got, err := newClient(exec).Get(context.Background(), "404")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClient_Create(t *testing.T) {
	exec := &fakeExecutor{data: map[string]string{
		"userCreateMutate": `{"userCreate":{"id":"3","name":"c"}}`,
	}}
	value := map[string]any{"name": "c", "version": 0}
	got, err := newClient(exec).Create(context.Background(), value)
	require.NoError(t, err)
	assert.Equal(t, domain.Payload{"id": "3", "name": "c"}, got)

	sent := exec.last(t)
	assert.True(t, sent.mutation)
	assert.Equal(t, map[string]any{"user": value}, sent.variables, "create sends the value verbatim")
}

func TestClient_Update_sanitizesPayload(t *testing.T) {
	exec := &fakeExecutor{data: map[string]string{
		"userUpdateMutate": `{"userUpdate":{"id":"x","name":"a"}}`,
	}}
	value := map[string]any{"id": "x", "version": 5, "name": "a", "lastUpdated": "t"}

	got, err := newClient(exec).Update(context.Background(), "x", value)
	require.NoError(t, err)
	assert.Equal(t, domain.Payload{"id": "x", "name": "a"}, got)

	sent := exec.last(t)
	assert.Equal(t, "mutation userUpdateMutate($id:String!,$user:UserUpdate){userUpdate(id:$id,user:$user){id,name}}", sent.document)
	assert.Equal(t, map[string]any{"name": "a"}, sent.variables["user"])
	assert.Equal(t, "x", sent.variables["id"])
	assert.Len(t, value, 4, "the caller's value must not be modified")
}

func TestClient_Update_withExcludedKeys(t *testing.T) {
	exec := &fakeExecutor{data: map[string]string{"userUpdateMutate": `{"userUpdate":{"id":"x"}}`}}
	c := newClient(exec, domain.WithExcludedKeys("password"))

	_, err := c.Update(context.Background(), "x", map[string]any{"id": "x", "password": "p", "name": "a"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "x", "name": "a"}, exec.last(t).variables["user"])
}

func TestClient_Delete(t *testing.T) {
	exec := &fakeExecutor{data: map[string]string{
		"userDeleteMutate": `{"userDelete":{"success":false,"error":"in use"}}`,
	}}
	fieldSets := &staticFieldSets{err: errors.New("must not be called")}
	c := domain.New("user", exec, fieldSets)

	got, err := c.Delete(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, got.Success)
	require.NotNil(t, got.Error)
	assert.Equal(t, "in use", *got.Error)
	assert.Equal(t, 0, fieldSets.calls)
	assert.Equal(t, "mutation userDeleteMutate($id:String){userDelete(id:$id){success,error}}", exec.last(t).document)
}

func TestClient_noFieldSet(t *testing.T) {
	exec := &fakeExecutor{}
	c := domain.New("user", exec, &staticFieldSets{})

	_, err := c.Get(context.Background(), "1")
	require.ErrorIs(t, err, domain.ErrNoFieldSet)
	require.ErrorIs(t, err, document.ErrEmptySelection)
	assert.Empty(t, exec.calls)
}

func TestClient_fieldSetError(t *testing.T) {
	exec := &fakeExecutor{}
	boom := errors.New("introspection failed")
	c := domain.New("user", exec, &staticFieldSets{err: boom})

	_, err := c.List(context.Background(), criteria.Criteria{})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, exec.calls)
}

func TestClient_executorError(t *testing.T) {
	boom := errors.New("GraphQL error: boom")
	exec := &fakeExecutor{err: boom}

	_, err := newClient(exec).Create(context.Background(), map[string]any{"name": "a"})
	require.ErrorIs(t, err, boom)
}

func TestClient_invalidResponse(t *testing.T) {
	exec := &fakeExecutor{data: map[string]string{"userGet": `{"user":"not an object"}`}}
	_, err := newClient(exec).Get(context.Background(), "1")
	require.Error(t, err)
}

func TestClient_WithMetrics(t *testing.T) {
	m := metrics.New()
	exec := &fakeExecutor{data: map[string]string{"userGet": `{"user":{"id":"1"}}`}}
	c := newClient(exec, domain.WithMetrics(m))

	_, err := c.Get(context.Background(), "1")
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "2")
	require.NoError(t, err)

	exec.err = errors.New("down")
	_, err = c.Get(context.Background(), "3")
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("user", "get", metrics.ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("user", "get", metrics.ResultError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}

func TestClient_WithTracer(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	exec := &fakeExecutor{err: errors.New("down")}
	c := newClient(exec, domain.WithTracer(tp.Tracer("test")))

	_, err := c.Get(context.Background(), "1")
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "domain.get", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("gqldomain.domain", "user"))
	assert.Contains(t, spans[0].Attributes(), attribute.String("gqldomain.operation", "get"))
}

func TestSanitizer(t *testing.T) {
	s := domain.NewSanitizer("id", "version")
	assert.True(t, s.Excludes("id"))
	assert.False(t, s.Excludes("name"))
	assert.Nil(t, s.Sanitize(nil))

	in := map[string]any{"id": 1, "name": "a"}
	assert.Equal(t, map[string]any{"name": "a"}, s.Sanitize(in))
	assert.Equal(t, map[string]any{"id": 1, "name": "a"}, in)
}
