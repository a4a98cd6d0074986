// Package store is the document persistence layer. Collections are addressed by
// slash separated paths such as "globalOrders" or "users/{uid}/orders"; the last
// segment names the collection group used by cross-parent queries.
package store

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrNotFound        = errors.New("store: document not found")
	ErrConditionFailed = errors.New("store: condition not met")
)

// Ref addresses one physical document.
type Ref struct {
	Path string `json:"path"`
	ID   string `json:"id"`
}

func (r Ref) String() string { return r.Path + "/" + r.ID }

// Join builds a collection path from its segments.
func Join(segments ...string) string { return strings.Join(segments, "/") }

// Group returns the collection group of a path (its last segment).
func Group(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Snapshot is a document read from the store.
type Snapshot struct {
	Ref Ref
	Raw bson.Raw
}

func (s Snapshot) Decode(v interface{}) error {
	return bson.Unmarshal(s.Raw, v)
}

// Store is the only persistence mechanism of the service.
type Store interface {
	Get(ctx context.Context, path, id string, out interface{}) error
	List(ctx context.Context, path string, filter Filter) ([]Snapshot, error)
	// ListGroup queries every collection named group regardless of parent.
	ListGroup(ctx context.Context, group string, filter Filter) ([]Snapshot, error)
	Create(ctx context.Context, path string, doc interface{}) (string, error)
	// Put replaces (or inserts) the whole document.
	Put(ctx context.Context, path, id string, doc interface{}) error
	// Merge patches fields, creating the document when it is missing.
	Merge(ctx context.Context, path, id string, fields map[string]interface{}) error
	// Patch merges fields into an existing document. Keys may be dotted paths.
	Patch(ctx context.Context, path, id string, fields map[string]interface{}) error
	// PatchIf applies fields only while the document matches cond.
	PatchIf(ctx context.Context, path, id string, cond Filter, fields map[string]interface{}) error
	Delete(ctx context.Context, path, id string) error
	// Subscribe pushes every document written to path that matches filter until ctx ends.
	Subscribe(ctx context.Context, path string, filter Filter) (<-chan Snapshot, error)
}

type appendValues struct {
	values []interface{}
}

// Append used as a patch value appends values to the array field.
func Append(values ...interface{}) interface{} {
	return appendValues{values: values}
}
