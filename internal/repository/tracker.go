package repository

import (
	"fmt"
	"slices"
	"time"

	"github.com/opensource-finance/storefront/internal/domain"
)

// EntityState is the change-tracking state of an entity within a unit of work.
type EntityState int

const (
	Detached EntityState = iota
	Unchanged
	Added
	Modified
	Deleted
)

func (s EntityState) String() string {
	switch s {
	case Detached:
		return "detached"
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("EntityState(%d)", int(s))
	}
}

// Entry is the tracking handle of one entity.
type Entry struct {
	entity   domain.Entity
	table    *table
	state    EntityState
	original []any
}

// Entity returns the tracked entity.
func (e *Entry) Entity() domain.Entity {
	return e.entity
}

// State returns the current tracking state.
func (e *Entry) State() EntityState {
	return e.state
}

type entityKey struct {
	table string
	id    int64
}

// tracker is the identity map and change set of one unit of work.
// Entries keep the order in which entities were first tracked.
type tracker struct {
	entries []*Entry
	byRef   map[domain.Entity]*Entry
	byKey   map[entityKey]*Entry
}

func newTracker() *tracker {
	return &tracker{
		byRef: make(map[domain.Entity]*Entry),
		byKey: make(map[entityKey]*Entry),
	}
}

func (t *tracker) entry(e domain.Entity) *Entry {
	return t.byRef[e]
}

func (t *tracker) lookup(tbl *table, id int64) *Entry {
	return t.byKey[entityKey{tbl.table, id}]
}

// track starts tracking e in the given state, or moves an already tracked
// entity into that state. A different instance with the same key is rejected.
func (t *tracker) track(e domain.Entity, tbl *table, state EntityState) (*Entry, error) {
	if en := t.byRef[e]; en != nil {
		en.state = state
		return en, nil
	}

	if id := e.GetID(); id != 0 {
		if other := t.lookup(tbl, id); other != nil {
			return nil, fmt.Errorf("%w: another %s instance with id %d is already tracked", ErrInvalidOperation, tbl.name, id)
		}
	}

	en := &Entry{entity: e, table: tbl, state: state}
	if state != Added {
		en.original = tbl.values(e)
	}
	t.entries = append(t.entries, en)
	t.byRef[e] = en
	if id := e.GetID(); id != 0 {
		t.byKey[entityKey{tbl.table, id}] = en
	}
	return en, nil
}

// resolve returns the tracked instance for a freshly loaded row, tracking the
// row as unchanged when no instance with its key exists yet.
func (t *tracker) resolve(e domain.Entity, tbl *table) domain.Entity {
	if en := t.lookup(tbl, e.GetID()); en != nil {
		return en.entity
	}
	en := &Entry{entity: e, table: tbl, state: Unchanged, original: tbl.values(e)}
	t.entries = append(t.entries, en)
	t.byRef[e] = en
	t.byKey[entityKey{tbl.table, e.GetID()}] = en
	return e
}

func (t *tracker) detach(en *Entry) {
	delete(t.byRef, en.entity)
	if k := (entityKey{en.table.table, en.entity.GetID()}); t.byKey[k] == en {
		delete(t.byKey, k)
	}
	t.entries = slices.DeleteFunc(t.entries, func(x *Entry) bool { return x == en })
	en.state = Detached
}

// detectChanges discovers new entities reachable through navigations,
// synchronizes foreign keys and marks unchanged entries whose column values
// differ from their snapshot as modified.
func (t *tracker) detectChanges() {
	for i := 0; i < len(t.entries); i++ {
		en := t.entries[i]
		if en.state == Deleted {
			continue
		}
		t.discover(en)
	}

	for _, en := range t.entries {
		if en.table.prepare != nil && en.state != Deleted {
			en.table.prepare(en.entity)
		}
		if en.state == Unchanged && !valuesEqual(en.original, en.table.values(en.entity)) {
			en.state = Modified
		}
	}
}

// discover tracks unsaved entities hanging off en as added.
func (t *tracker) discover(en *Entry) {
	if en.table.related == nil {
		return
	}
	for _, rel := range en.table.related(en.entity) {
		if rel == nil || rel.GetID() != 0 || t.byRef[rel] != nil {
			continue
		}
		tbl := tableOf(rel)
		if tbl == nil {
			continue
		}
		// Appended entries are visited by the caller's loop.
		_, _ = t.track(rel, tbl, Added)
	}
}

func (t *tracker) pending() []*Entry {
	var out []*Entry
	for _, en := range t.entries {
		switch en.state {
		case Added, Modified, Deleted:
			out = append(out, en)
		}
	}
	return out
}

func (t *tracker) hasChanges() bool {
	t.detectChanges()
	return len(t.pending()) > 0
}

// accept moves committed entries to their post-save state.
func (t *tracker) accept(entries []*Entry) {
	for _, en := range entries {
		switch en.state {
		case Deleted:
			t.detach(en)
		case Added, Modified:
			en.state = Unchanged
			en.original = en.table.values(en.entity)
			t.byKey[entityKey{en.table.table, en.entity.GetID()}] = en
		}
	}
}

func (t *tracker) reset() {
	for _, en := range t.entries {
		en.state = Detached
	}
	t.entries = nil
	t.byRef = make(map[domain.Entity]*Entry)
	t.byKey = make(map[entityKey]*Entry)
}

func valuesEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if ta, ok := a[i].(time.Time); ok {
			tb, ok := b[i].(time.Time)
			if !ok || !ta.Equal(tb) {
				return false
			}
			continue
		}
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
