package schema

import (
	"context"
	"strings"

	"github.com/neoscript99/go-gql-domain/types"
)

// DefaultMaxDepth bounds object nesting in a resolved field set.
const DefaultMaxDepth = 8

// FieldSet is a minified selection set body, e.g. "id,name,owner{id,name}".
// The empty FieldSet means no field set is available for the type.
type FieldSet string

// Empty reports whether no field could be selected.
func (f FieldSet) Empty() bool { return f == "" }

func (f FieldSet) String() string { return string(f) }

// Resolver derives field sets from introspection data.
//
// List fields are only expanded when their element type is the Error
// envelope type; every other list field is dropped. Selecting lists of
// objects is not supported.
type Resolver struct {
	introspector Introspector
	maxDepth     int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMaxDepth bounds the nesting depth of object fields. Values below 1
// are ignored.
func WithMaxDepth(depth int) ResolverOption {
	return func(r *Resolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// NewResolver returns a Resolver fetching types through introspector.
func NewResolver(introspector Introspector, opts ...ResolverOption) *Resolver {
	r := &Resolver{introspector: introspector, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// resolution holds the state of one Resolve call.
type resolution struct {
	r           *Resolver
	descriptors map[string]*TypeDescriptor
	onPath      map[string]bool
}

// Resolve returns the field set of typeName. Unknown types resolve to the
// empty FieldSet without error. Each type is introspected at most once per
// call, and a type already being expanded higher up the path is treated as
// having no fields so self-referential schemas terminate.
func (r *Resolver) Resolve(ctx context.Context, typeName string) (FieldSet, error) {
	res := &resolution{
		r:           r,
		descriptors: make(map[string]*TypeDescriptor),
		onPath:      make(map[string]bool),
	}
	return res.resolve(ctx, typeName, 0)
}

func (res *resolution) descriptor(ctx context.Context, typeName string) (*TypeDescriptor, error) {
	if d, ok := res.descriptors[typeName]; ok {
		return d, nil
	}
	d, err := res.r.introspector.FetchType(ctx, typeName)
	if err != nil {
		return nil, err
	}
	res.descriptors[typeName] = d
	return d, nil
}

func (res *resolution) resolve(ctx context.Context, typeName string, depth int) (FieldSet, error) {
	if typeName == "" || depth > res.r.maxDepth || res.onPath[typeName] {
		return "", nil
	}
	d, err := res.descriptor(ctx, typeName)
	if err != nil {
		return "", err
	}
	if d == nil {
		return "", nil
	}

	res.onPath[typeName] = true
	defer delete(res.onPath, typeName)

	selections := make([]string, 0, len(d.Fields))
	for _, field := range d.Fields {
		nested, expand := nestedType(field.Type)
		if !expand {
			if nested {
				continue
			}
			selections = append(selections, field.Name)
			continue
		}
		sub, err := res.resolve(ctx, field.Type.Unwrap().nestedName(), depth+1)
		if err != nil {
			return "", err
		}
		if sub.Empty() {
			continue
		}
		selections = append(selections, field.Name+"{"+string(sub)+"}")
	}
	return FieldSet(strings.Join(selections, ",")), nil
}

// nestedType classifies a field type. composite reports a non-leaf type;
// expand reports whether the resolver descends into it.
func nestedType(ref TypeRef) (composite bool, expand bool) {
	t := ref.Unwrap()
	if t == nil {
		return true, false
	}
	switch t.Kind {
	case KindList:
		return true, t.OfType.Unwrap().TypeName() == types.ErrorTypeName
	case KindObject, KindInterface:
		return true, true
	case KindUnion:
		return true, false
	default:
		return false, false
	}
}

// nestedName is the name of the type a composite field selects from.
func (t *TypeRef) nestedName() string {
	if t == nil {
		return ""
	}
	if t.Kind == KindList {
		return t.OfType.Unwrap().TypeName()
	}
	return t.TypeName()
}
