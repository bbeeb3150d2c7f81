package domain

import "maps"

// Sanitizer removes a fixed set of keys from update payloads.
type Sanitizer struct {
	excluded map[string]struct{}
}

// NewSanitizer returns a Sanitizer stripping keys.
func NewSanitizer(keys ...string) *Sanitizer {
	s := &Sanitizer{excluded: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.excluded[k] = struct{}{}
	}
	return s
}

// Excludes reports whether key is stripped.
func (s *Sanitizer) Excludes(key string) bool {
	_, ok := s.excluded[key]
	return ok
}

// Sanitize returns a copy of value without the excluded keys. value itself
// is not modified.
func (s *Sanitizer) Sanitize(value map[string]any) map[string]any {
	if value == nil {
		return nil
	}
	out := maps.Clone(value)
	maps.DeleteFunc(out, func(k string, _ any) bool { return s.Excludes(k) })
	return out
}
