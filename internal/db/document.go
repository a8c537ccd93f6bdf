package db

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Scope selects the documents a query runs over. A plain scope names a
// collection path ("malls", "malls/A/stores"); a group scope names a
// collection id and spans every collection with that id ("stores" matches
// "malls/*/stores").
type Scope struct {
	Collection string
	Group      bool
}

// CollectionScope returns a plain collection scope.
func CollectionScope(path string) Scope { return Scope{Collection: path} }

// GroupScope returns a collection-group scope.
func GroupScope(id string) Scope { return Scope{Collection: id, Group: true} }

// Key is a stable identifier for the scope, used to name index keys.
func (s Scope) Key() string {
	if s.Group {
		return "g:" + s.Collection
	}
	return "c:" + s.Collection
}

// Contains reports whether the document at path belongs to the scope.
func (s Scope) Contains(path string) bool {
	parent, _, ok := SplitPath(path)
	if !ok {
		return false
	}
	if s.Group {
		return GroupOf(parent) == s.Collection
	}
	return parent == s.Collection
}

// ScopesOf returns the two scopes a document is indexed under: its parent
// collection and its collection group.
func ScopesOf(path string) ([]Scope, error) {
	parent, _, ok := SplitPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return []Scope{CollectionScope(parent), GroupScope(GroupOf(parent))}, nil
}

// Document is a stored JSON object addressed by its slash-separated path.
type Document struct {
	Path string
	ID   string
	Data []byte
}

// NewDocument builds a Document, deriving ID from the last path segment.
func NewDocument(path string, data []byte) (Document, error) {
	_, id, ok := SplitPath(path)
	if !ok {
		return Document{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return Document{Path: path, ID: id, Data: data}, nil
}

// SplitPath splits "a/b/c/d" into parent collection "a/b/c" and id "d".
// A valid document path has an even, non-zero number of non-empty segments.
func SplitPath(path string) (parent, id string, ok bool) {
	segs := strings.Split(path, "/")
	if len(segs) < 2 || len(segs)%2 != 0 {
		return "", "", false
	}
	for _, s := range segs {
		if s == "" {
			return "", "", false
		}
	}
	i := strings.LastIndexByte(path, '/')
	return path[:i], path[i+1:], true
}

// GroupOf returns the collection id (last segment) of a collection path.
func GroupOf(collection string) string {
	if i := strings.LastIndexByte(collection, '/'); i >= 0 {
		return collection[i+1:]
	}
	return collection
}

// Fields is a decoded top-level view of a document used for indexing.
type Fields map[string]json.RawMessage

// DecodeFields parses a document body as a JSON object.
func DecodeFields(data []byte) (Fields, error) {
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil || f == nil {
		return nil, ErrInvalidDocument
	}
	return f, nil
}

// String returns the field as a string. Missing or non-string fields report false.
func (f Fields) String(name string) (string, bool) {
	raw, ok := f[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Strings returns the string elements of an array field. Non-string
// elements are skipped.
func (f Fields) Strings(name string) []string {
	raw, ok := f[name]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if json.Unmarshal(it, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}
