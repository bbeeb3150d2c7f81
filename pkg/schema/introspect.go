// Package schema discovers the selection set of a GraphQL type by walking
// the backend's introspection data.
package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neoscript99/go-gql-domain/types"
)

// Type kinds as reported by __Type.kind.
const (
	KindScalar      = "SCALAR"
	KindObject      = "OBJECT"
	KindInterface   = "INTERFACE"
	KindUnion       = "UNION"
	KindEnum        = "ENUM"
	KindInputObject = "INPUT_OBJECT"
	KindList        = "LIST"
	KindNonNull     = "NON_NULL"
)

// TypeRef represents a reference to a GraphQL type (with support for nested types)
type TypeRef struct {
	Kind   string   `json:"kind"`
	Name   *string  `json:"name"`
	OfType *TypeRef `json:"ofType"`
}

// TypeName returns the referenced name, or "" for wrapper kinds.
func (t *TypeRef) TypeName() string {
	if t == nil || t.Name == nil {
		return ""
	}
	return *t.Name
}

// Unwrap strips NON_NULL wrappers.
func (t *TypeRef) Unwrap() *TypeRef {
	for t != nil && t.Kind == KindNonNull {
		t = t.OfType
	}
	return t
}

// FieldDescriptor describes one field of an introspected type.
type FieldDescriptor struct {
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
}

// TypeDescriptor is the result of introspecting one named type.
type TypeDescriptor struct {
	Name   string            `json:"name"`
	Fields []FieldDescriptor `json:"fields"`
}

// Executor sends a query document and returns the raw "data" member of the
// response.
type Executor interface {
	QueryRaw(ctx context.Context, document string, variables map[string]any) ([]byte, error)
}

// Introspector fetches type descriptors by name.
type Introspector interface {
	// FetchType returns nil, nil when the backend does not know name.
	FetchType(ctx context.Context, name string) (*TypeDescriptor, error)
}

// IntrospectorFunc adapts a function to the Introspector interface.
type IntrospectorFunc func(ctx context.Context, name string) (*TypeDescriptor, error)

// FetchType implements Introspector.
func (f IntrospectorFunc) FetchType(ctx context.Context, name string) (*TypeDescriptor, error) {
	return f(ctx, name)
}

const typeQueryTemplate = `query %s%s($type:String!){__type(name:$type){name fields{name type{kind name ofType{name kind ofType{name kind ofType{name kind}}}}}}}`

type execIntrospector struct {
	exec Executor
}

// NewIntrospector returns an Introspector issuing one __type query per call
// through exec.
func NewIntrospector(exec Executor) Introspector {
	return &execIntrospector{exec: exec}
}

func (i *execIntrospector) FetchType(ctx context.Context, name string) (*TypeDescriptor, error) {
	if !IsName(name) {
		return nil, fmt.Errorf("invalid type name %q", name)
	}
	document := fmt.Sprintf(typeQueryTemplate, name, types.TypeQuerySuffix)
	data, err := i.exec.QueryRaw(ctx, document, map[string]any{"type": name})
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var out struct {
		Type *TypeDescriptor `json:"__type"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s introspection: %w", name, err)
	}
	return out.Type, nil
}

// IsName reports whether s is a valid GraphQL name.
func IsName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
