// Package criteria encodes paging and ordering into the filter structure
// understood by the backend query layer.
//
// Paging follows the max/offset convention; ordering is a list of
// [field, direction] pairs. Orders on related entities are nested under the
// relation key, so
//
//	ApplyOrdering(c, []Order{{"user.age", "desc"}})
//
// turns c into {"order": [], "user": {"order": [["age", "desc"]]}}.
package criteria

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/neoscript99/go-gql-domain/types"
)

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// ErrInvalidPage is returned for a page number below 1 or a non-positive
// page size.
var ErrInvalidPage = errors.New("invalid page")

// Criteria is an open filter mapping. Nested relation criteria are stored
// as Criteria values under the relation key.
type Criteria map[string]any

// Order is a [path, direction] pair.
type Order [2]string

// Path returns the ordered field, possibly dotted.
func (o Order) Path() string { return o[0] }

// Direction returns the sort direction.
func (o Order) Direction() string { return o[1] }

// ApplyPaging sets max and offset for the given 1-based page.
func ApplyPaging(c Criteria, currentPage, pageSize int) error {
	if currentPage < 1 || pageSize <= 0 {
		return fmt.Errorf("%w: page %d, size %d", ErrInvalidPage, currentPage, pageSize)
	}
	c[types.MaxKey] = pageSize
	c[types.OffsetKey] = (currentPage - 1) * pageSize
	return nil
}

// ApplyOrdering writes orders into c. Flat orders replace c's order list,
// which is always set, even when orders is empty. Dotted orders are
// appended to the order list of the nested relation criteria, creating the
// relation criteria as needed. Dotted entries of orders are rewritten in
// place to their last path segment.
func ApplyOrdering(c Criteria, orders []Order) {
	flat := make([]Order, 0, len(orders))
	c[types.OrderKey] = flat

	for i := range orders {
		segments := strings.Split(orders[i][0], ".")
		if len(segments) == 1 {
			flat = append(flat, orders[i])
			continue
		}
		orders[i][0] = segments[len(segments)-1]

		parent := c
		for _, name := range segments[:len(segments)-1] {
			parent = child(parent, name)
		}
		parent[types.OrderKey] = append(orderList(parent[types.OrderKey]), orders[i])
	}
	c[types.OrderKey] = flat
}

// child returns the nested criteria stored under name, creating it when
// absent. A plain map already stored there is converted in place.
func child(c Criteria, name string) Criteria {
	switch v := c[name].(type) {
	case Criteria:
		return v
	case map[string]any:
		nested := Criteria(v)
		c[name] = nested
		return nested
	default:
		nested := Criteria{}
		c[name] = nested
		return nested
	}
}

// orderList returns the order list stored in v. Lists decoded from JSON
// arrive as []any and are converted, dropping malformed entries.
func orderList(v any) []Order {
	switch list := v.(type) {
	case []Order:
		return list
	case [][2]string:
		out := make([]Order, len(list))
		for i, pair := range list {
			out[i] = Order(pair)
		}
		return out
	case [][]string:
		out := make([]Order, 0, len(list))
		for _, pair := range list {
			if o, ok := toOrder(pair); ok {
				out = append(out, o)
			}
		}
		return out
	case []any:
		out := make([]Order, 0, len(list))
		for _, e := range list {
			if o, ok := toOrder(e); ok {
				out = append(out, o)
			}
		}
		return out
	default:
		return nil
	}
}

// toOrder converts a two-string pair in any of its common shapes.
func toOrder(v any) (Order, bool) {
	switch pair := v.(type) {
	case Order:
		return pair, true
	case [2]string:
		return Order(pair), true
	case []string:
		if len(pair) == 2 {
			return Order{pair[0], pair[1]}, true
		}
	case []any:
		if len(pair) == 2 {
			path, ok1 := pair[0].(string)
			dir, ok2 := pair[1].(string)
			if ok1 && ok2 {
				return Order{path, dir}, true
			}
		}
	}
	return Order{}, false
}

// Clone returns a deep copy of c. Nested maps and slices are copied so
// that ApplyPaging and ApplyOrdering on the copy leave c untouched.
// A nil c yields an empty Criteria.
func Clone(c Criteria) Criteria {
	out := make(Criteria, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Criteria:
		return Clone(t)
	case map[string]any:
		return map[string]any(Clone(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []Order:
		return slices.Clone(t)
	case [][2]string:
		return slices.Clone(t)
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

// ParseOrder parses "path" or "path direction" (e.g. "user.age desc").
// The direction defaults to ascending.
func ParseOrder(s string) (Order, error) {
	parts := strings.Fields(s)
	switch len(parts) {
	case 1:
		return Order{parts[0], Asc}, nil
	case 2:
		dir := strings.ToLower(parts[1])
		if dir != Asc && dir != Desc {
			return Order{}, fmt.Errorf("invalid order direction %q", parts[1])
		}
		return Order{parts[0], dir}, nil
	default:
		return Order{}, fmt.Errorf("invalid order %q", s)
	}
}

var encoder = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Encode serializes criteria to the opaque filter string sent to the
// backend. Strings are passed through unchanged.
func Encode(c any) (string, error) {
	if s, ok := c.(string); ok {
		return s, nil
	}
	out, err := encoder.MarshalToString(c)
	if err != nil {
		return "", fmt.Errorf("encode criteria: %w", err)
	}
	return out, nil
}
