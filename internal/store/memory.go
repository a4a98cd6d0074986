package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps documents in process. Values go through a bson round trip
// so decoding behaves the same as with MongoStore.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]map[string]bson.M
	subs    map[int]*subscription
	nextSub int
}

type subscription struct {
	path   string
	filter Filter
	ch     chan Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]bson.M),
		subs: make(map[int]*subscription),
	}
}

func (m *MemoryStore) Get(ctx context.Context, path, id string, out interface{}) error {
	m.mu.RLock()
	doc, ok := m.docs[path][id]
	var raw []byte
	var err error
	if ok {
		raw, err = bson.Marshal(doc)
	}
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, path, id)
	}
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func (m *MemoryStore) List(ctx context.Context, path string, filter Filter) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(p string) bool { return p == path }, filter)
}

func (m *MemoryStore) ListGroup(ctx context.Context, group string, filter Filter) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(p string) bool { return Group(p) == group }, filter)
}

func (m *MemoryStore) collect(pathMatch func(string) bool, filter Filter) ([]Snapshot, error) {
	var out []Snapshot
	for path, coll := range m.docs {
		if !pathMatch(path) {
			continue
		}
		for id, doc := range coll {
			if !filter.matches(doc) {
				continue
			}
			raw, err := bson.Marshal(doc)
			if err != nil {
				return nil, err
			}
			out = append(out, Snapshot{Ref: Ref{Path: path, ID: id}, Raw: raw})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ref.Path != out[j].Ref.Path {
			return out[i].Ref.Path < out[j].Ref.Path
		}
		return out[i].Ref.ID < out[j].Ref.ID
	})
	return out, nil
}

func (m *MemoryStore) Create(ctx context.Context, path string, doc interface{}) (string, error) {
	id := uuid.NewString()
	if err := m.Put(ctx, path, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (m *MemoryStore) Put(ctx context.Context, path, id string, doc interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	var stored bson.M
	if err := bson.Unmarshal(raw, &stored); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[path] == nil {
		m.docs[path] = make(map[string]bson.M)
	}
	m.docs[path][id] = stored
	m.publish(path, id, stored)
	return nil
}

func (m *MemoryStore) Merge(ctx context.Context, path, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path][id]
	if !ok {
		doc = bson.M{}
	}
	if err := applyFields(doc, fields); err != nil {
		return err
	}
	if m.docs[path] == nil {
		m.docs[path] = make(map[string]bson.M)
	}
	m.docs[path][id] = doc
	m.publish(path, id, doc)
	return nil
}

func (m *MemoryStore) Patch(ctx context.Context, path, id string, fields map[string]interface{}) error {
	return m.PatchIf(ctx, path, id, nil, fields)
}

func (m *MemoryStore) PatchIf(ctx context.Context, path, id string, cond Filter, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, path, id)
	}
	if !cond.matches(doc) {
		return fmt.Errorf("%w: %s/%s", ErrConditionFailed, path, id)
	}
	if err := applyFields(doc, fields); err != nil {
		return err
	}
	m.publish(path, id, doc)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, path, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[path], id)
	return nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, path string, filter Filter) (<-chan Snapshot, error) {
	m.mu.Lock()
	key := m.nextSub
	m.nextSub++
	sub := &subscription{path: path, filter: filter, ch: make(chan Snapshot, 16)}
	m.subs[key] = sub
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, key)
		close(sub.ch)
		m.mu.Unlock()
	}()
	return sub.ch, nil
}

// publish must be called with m.mu held.
func (m *MemoryStore) publish(path, id string, doc bson.M) {
	if len(m.subs) == 0 {
		return
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return
	}
	for _, sub := range m.subs {
		if sub.path != path || !sub.filter.matches(doc) {
			continue
		}
		select {
		case sub.ch <- Snapshot{Ref: Ref{Path: path, ID: id}, Raw: raw}:
		default:
		}
	}
}

// applyFields normalizes every value first so a bad value leaves doc untouched.
func applyFields(doc bson.M, fields map[string]interface{}) error {
	type change struct {
		field  string
		value  interface{}
		append bool
	}
	changes := make([]change, 0, len(fields))
	for field, v := range fields {
		if av, ok := v.(appendValues); ok {
			vals := make([]interface{}, 0, len(av.values))
			for _, x := range av.values {
				nx, err := normalize(x)
				if err != nil {
					return err
				}
				vals = append(vals, nx)
			}
			changes = append(changes, change{field: field, value: vals, append: true})
			continue
		}
		nv, err := normalize(v)
		if err != nil {
			return err
		}
		changes = append(changes, change{field: field, value: nv})
	}

	for _, ch := range changes {
		if !ch.append {
			setPath(doc, ch.field, ch.value)
			continue
		}
		existing, _ := lookup(doc, ch.field)
		var arr bson.A
		switch a := existing.(type) {
		case bson.A:
			arr = append(arr, a...)
		case []interface{}:
			arr = append(arr, a...)
		}
		arr = append(arr, ch.value.([]interface{})...)
		setPath(doc, ch.field, arr)
	}
	return nil
}

func setPath(doc bson.M, field string, value interface{}) {
	parts := strings.Split(field, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part]
		var child bson.M
		switch t := next.(type) {
		case bson.M:
			child = t
		case map[string]interface{}:
			child = bson.M(t)
		case primitive.D:
			child, _ = asMap(t)
		}
		if !ok || child == nil {
			child = bson.M{}
		}
		cur[part] = child
		cur = child
	}
	cur[parts[len(parts)-1]] = value
}
