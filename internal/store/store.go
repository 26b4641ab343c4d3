// Package store is the boundary to the remote realtime document store.
// Values are addressed by slash-separated key paths and exchanged as JSON.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrBadPath = errors.New("bad store path")

// Store is the capability set the domain needs from the remote store.
type Store interface {
	// Get reads the value at path. A missing value is not an error.
	Get(ctx context.Context, path string) (Snapshot, error)
	// Set overwrites the value at path.
	Set(ctx context.Context, path string, v any) error
	// Delete removes the value at path. Removing a missing value is a no-op.
	Delete(ctx context.Context, path string) error
	// Push appends v under path with a store-generated key.
	Push(ctx context.Context, path string, v any) (string, error)
	// Query reads the children of path selected by q.
	Query(ctx context.Context, path string, q Query) (Snapshot, error)
	// Subscribe delivers the current value of path (filtered by q) and then
	// every changed value until the returned func is called or ctx ends.
	Subscribe(ctx context.Context, path string, q Query, fn func(Snapshot)) (func(), error)
	Close() error
}

// Query selects children of a path by a named child field. The zero Query
// selects every child.
type Query struct {
	OrderBy     string
	EqualTo     *string
	LimitToLast int
}

func Equal(child, value string) Query {
	return Query{OrderBy: child, EqualTo: &value}
}

func Last(child string, n int) Query {
	return Query{OrderBy: child, LimitToLast: n}
}

func (q Query) IsZero() bool {
	return q.OrderBy == "" && q.EqualTo == nil && q.LimitToLast == 0
}

func (q Query) String() string {
	switch {
	case q.IsZero():
		return "all"
	case q.EqualTo != nil:
		return fmt.Sprintf("%s==%s", q.OrderBy, *q.EqualTo)
	default:
		return fmt.Sprintf("last(%s,%d)", q.OrderBy, q.LimitToLast)
	}
}

// Snapshot is the JSON value found at a path.
type Snapshot struct {
	Path string
	Raw  json.RawMessage
}

func (s Snapshot) Exists() bool {
	r := strings.TrimSpace(string(s.Raw))
	return r != "" && r != "null"
}

func (s Snapshot) Decode(v any) error {
	if !s.Exists() {
		return nil
	}
	return json.Unmarshal(s.Raw, v)
}

// Children splits an object value into its keyed children.
func (s Snapshot) Children() (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	if !s.Exists() {
		return out, nil
	}
	if err := json.Unmarshal(s.Raw, &out); err != nil {
		return nil, fmt.Errorf("snapshot %s is not an object: %w", s.Path, err)
	}
	return out, nil
}

// ServerTimestamp is replaced by the store-assigned write time (milliseconds
// since the epoch) when it appears in a written value.
var ServerTimestamp = serverValue{}

type serverValue struct{}

// The Realtime Database REST protocol spells the placeholder this way; the
// other backends look for the same shape after JSON encoding.
func (serverValue) MarshalJSON() ([]byte, error) {
	return []byte(`{".sv":"timestamp"}`), nil
}

// resolveServerValues walks a decoded JSON value and replaces timestamp
// placeholders with fill().
func resolveServerValues(v any, fill func() any) any {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 1 && t[".sv"] == "timestamp" {
			return fill()
		}
		for k, c := range t {
			t[k] = resolveServerValues(c, fill)
		}
		return t
	case []any:
		for i, c := range t {
			t[i] = resolveServerValues(c, fill)
		}
		return t
	default:
		return v
	}
}

// toGeneric round-trips v through JSON so every backend stores the same shape
// the Realtime Database would.
func toGeneric(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Join builds a key path, rejecting empty or reserved segments.
func Join(segs ...string) (string, error) {
	for _, s := range segs {
		if s == "" || strings.ContainsAny(s, "/.#$[]") {
			return "", fmt.Errorf("%w: segment %q", ErrBadPath, s)
		}
	}
	return strings.Join(segs, "/"), nil
}

// Split is the inverse of Join.
func Split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// related reports whether a write at a may change the value read at b.
func related(a, b string) bool {
	a, b = strings.Trim(a, "/"), strings.Trim(b, "/")
	return a == b || a == "" || b == "" || strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}
