// Package flowtest provides an in-memory tracker for tests.
package flowtest

import (
	"context"
	"fmt"
	"sync"

	"vnpipe/internal/services/flow"
)

// Call records one request made against the Tracker.
type Call struct {
	Method     string
	EntityType string
	Filters    []flow.Filter
	Data       map[string]any
}

// Upload records one file attached through Upload.
type Upload struct {
	EntityType string
	ID         int
	Field      string
	Path       string
}

// Tracker is an in-memory stand-in for flow.Client. Filters support the
// "is" relation on id, attributes and entity fields.
type Tracker struct {
	mu       sync.Mutex
	nextID   int
	entities map[string][]flow.Record
	failures map[string]error
	calls    []Call
	uploads  []Upload
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{
		nextID:   1000,
		entities: map[string][]flow.Record{},
		failures: map[string]error{},
	}
}

// Add seeds an entity and returns it. Entity-valued fields in values become
// relations; everything else is an attribute.
func (t *Tracker) Add(entityType string, values map[string]any) flow.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insert(entityType, values)
}

// FailOn makes every call of method ("find", "find_one", "create" or
// "upload") on entityType return err.
func (t *Tracker) FailOn(method, entityType string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[method+" "+entityType] = err
}

// Calls returns every recorded call.
func (t *Tracker) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.calls...)
}

// Count returns how many calls of method were made on entityType.
func (t *Tracker) Count(method, entityType string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.calls {
		if c.Method == method && c.EntityType == entityType {
			n++
		}
	}
	return n
}

// Records returns the stored entities of entityType.
func (t *Tracker) Records(entityType string) []flow.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]flow.Record(nil), t.entities[entityType]...)
}

// Uploads returns every recorded upload.
func (t *Tracker) Uploads() []Upload {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Upload(nil), t.uploads...)
}

func (t *Tracker) Find(ctx context.Context, entityType string, filters []flow.Filter, fields []string) ([]flow.Record, error) {
	if err := t.begin(ctx, Call{Method: "find", EntityType: entityType, Filters: filters}); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []flow.Record
	for _, rec := range t.entities[entityType] {
		if matches(rec, filters) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (t *Tracker) FindOne(ctx context.Context, entityType string, filters []flow.Filter, fields []string) (flow.Record, bool, error) {
	if err := t.begin(ctx, Call{Method: "find_one", EntityType: entityType, Filters: filters}); err != nil {
		return flow.Record{}, false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range t.entities[entityType] {
		if matches(rec, filters) {
			return rec, true, nil
		}
	}
	return flow.Record{}, false, nil
}

func (t *Tracker) Create(ctx context.Context, entityType string, data map[string]any) (flow.Record, error) {
	if err := t.begin(ctx, Call{Method: "create", EntityType: entityType, Data: data}); err != nil {
		return flow.Record{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insert(entityType, data), nil
}

func (t *Tracker) Upload(ctx context.Context, entityType string, id int, field, path string) error {
	if err := t.begin(ctx, Call{Method: "upload", EntityType: entityType}); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.uploads = append(t.uploads, Upload{EntityType: entityType, ID: id, Field: field, Path: path})
	return nil
}

func (t *Tracker) begin(ctx context.Context, call Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, call)
	return t.failures[call.Method+" "+call.EntityType]
}

func (t *Tracker) insert(entityType string, values map[string]any) flow.Record {
	t.nextID++
	rec := flow.Record{
		Type:       entityType,
		ID:         t.nextID,
		Attributes: map[string]any{},
		Relations:  map[string][]flow.EntityRef{},
	}
	for key, value := range values {
		switch v := value.(type) {
		case flow.EntityRef:
			rec.Relations[key] = []flow.EntityRef{v}
		case []flow.EntityRef:
			rec.Relations[key] = append([]flow.EntityRef(nil), v...)
		default:
			rec.Attributes[key] = value
		}
	}
	t.entities[entityType] = append(t.entities[entityType], rec)
	return rec
}

func matches(rec flow.Record, filters []flow.Filter) bool {
	for _, f := range filters {
		if f.Relation != "is" || len(f.Values) != 1 {
			return false
		}
		want := f.Values[0]
		if f.Field == "id" {
			if fmt.Sprint(rec.ID) != fmt.Sprint(want) {
				return false
			}
			continue
		}
		if ref, ok := want.(flow.EntityRef); ok {
			found := false
			for _, have := range rec.Relations[f.Field] {
				if have.Type == ref.Type && have.ID == ref.ID {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if fmt.Sprint(rec.Attributes[f.Field]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
