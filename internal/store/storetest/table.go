// Package storetest provides in-memory stand-ins for the MongoDB stores.
// They honour the same default predicates and error kinds, but only support
// equality filters.
package storetest

import (
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/query"
)

type table[T any] struct {
	mu      sync.Mutex
	entity  string
	rows    map[primitive.ObjectID]T
	order   []primitive.ObjectID
	idOf    func(*T) *primitive.ObjectID
	visible func(*T) bool
}

func newTable[T any](entity string, idOf func(*T) *primitive.ObjectID) *table[T] {
	return &table[T]{entity: entity, rows: map[primitive.ObjectID]T{}, idOf: idOf}
}

func (t *table[T]) notFound() error {
	return apperr.Newf(apperr.KindNotFound, "No %s found with that ID", t.entity)
}

func (t *table[T]) seen(doc *T) bool {
	return t.visible == nil || t.visible(doc)
}

func (t *table[T]) insert(doc *T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertLocked(doc)
}

// insertLocked is insert for callers already holding mu.
func (t *table[T]) insertLocked(doc *T) {
	id := t.idOf(doc)
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
	if _, ok := t.rows[*id]; !ok {
		t.order = append(t.order, *id)
	}
	t.rows[*id] = *doc
}

func (t *table[T]) get(id primitive.ObjectID) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	doc, ok := t.rows[id]
	if !ok || !t.seen(&doc) {
		return nil, t.notFound()
	}
	return &doc, nil
}

func (t *table[T]) all(filters ...bson.M) []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]T, 0, len(t.rows))
	for _, id := range t.order {
		doc, ok := t.rows[id]
		if !ok || !t.seen(&doc) || !matches(&doc, filters...) {
			continue
		}
		out = append(out, doc)
	}
	return out
}

func (t *table[T]) list(opts query.Options, scope bson.M) []T {
	rows := t.all(opts.Filter, scope)
	if opts.Skip > 0 {
		if int(opts.Skip) >= len(rows) {
			return []T{}
		}
		rows = rows[opts.Skip:]
	}
	if opts.Limit > 0 && int(opts.Limit) < len(rows) {
		rows = rows[:opts.Limit]
	}
	return rows
}

// update applies fields as a $set through a BSON round trip, so field names
// are the stored ones.
func (t *table[T]) update(id primitive.ObjectID, fields bson.M) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	doc, ok := t.rows[id]
	if !ok || !t.seen(&doc) {
		return nil, t.notFound()
	}
	m, err := toM(&doc)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		m[k] = v
	}
	raw, err := bson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%s update: %w", t.entity, err)
	}
	var next T
	if err := bson.Unmarshal(raw, &next); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "Invalid input data", err)
	}
	t.rows[id] = next
	return &next, nil
}

func (t *table[T]) remove(id primitive.ObjectID) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	doc, ok := t.rows[id]
	if !ok || !t.seen(&doc) {
		return nil, t.notFound()
	}
	delete(t.rows, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return &doc, nil
}

func toM(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	return m, bson.Unmarshal(raw, &m)
}

func matches(doc any, filters ...bson.M) bool {
	var m bson.M
	for _, f := range filters {
		if len(f) == 0 {
			continue
		}
		if m == nil {
			var err error
			if m, err = toM(doc); err != nil {
				return false
			}
		}
		for k, want := range f {
			if _, isOp := want.(bson.M); isOp {
				// operator filters are not supported in memory
				continue
			}
			if fmt.Sprint(m[k]) != fmt.Sprint(want) {
				return false
			}
		}
	}
	return true
}
