package stellaecs

import (
	"iter"

	"github.com/TheBitDrifter/mask"
	"go.uber.org/zap"
)

// Query is a reusable description of a component combination: entities
// holding all "with" types, none of the "without" types, optionally
// carrying "optional" types, filtered by predicates against live values.
//
// A query caches the computed membership set. The cache is keyed to the
// world's change version: evaluation reuses it while the version is
// unchanged and recomputes otherwise. Adding clauses invalidates it
// structurally. Predicates are never cached; they always observe live
// component values at iteration time.
type Query struct {
	world    *World
	with     []int
	without  []int
	optional []int
	preds    []Predicate

	withMask    mask.Mask
	withoutMask mask.Mask

	// missingWith holds unresolvable "with" names; a query naming an
	// undeclared dynamic type yields an empty result and a diagnostic.
	missingWith []string
	warned      bool

	cacheValid bool
	cachedAt   uint64
	candidates []Entity
}

// NewQuery starts an empty query against this world.
func (w *World) NewQuery() *Query {
	return &Query{world: w}
}

// With requires that matching entities hold every listed type.
func (q *Query) With(types ...RegisteredType) *Query {
	for _, t := range types {
		id, err := t.resolve(q.world)
		if err != nil {
			q.missingWith = append(q.missingWith, t.TypeName())
			continue
		}
		q.with = append(q.with, id)
		q.withMask.Mark(uint32(id))
	}
	q.cacheValid = false
	return q
}

// Without requires that matching entities hold none of the listed types.
// An undeclared dynamic type excludes nothing.
func (q *Query) Without(types ...RegisteredType) *Query {
	for _, t := range types {
		id, err := t.resolve(q.world)
		if err != nil {
			continue
		}
		q.without = append(q.without, id)
		q.withoutMask.Mark(uint32(id))
	}
	q.cacheValid = false
	return q
}

// Optional declares types to expose on results when present, without
// constraining membership. Access them with GetFromResultSafe or
// Result.Named.
func (q *Query) Optional(types ...RegisteredType) *Query {
	for _, t := range types {
		id, err := t.resolve(q.world)
		if err != nil {
			continue
		}
		q.optional = append(q.optional, id)
	}
	q.cacheValid = false
	return q
}

// Where appends a predicate. Predicates run in declaration order and
// short-circuit on the first failure.
func (q *Query) Where(pred Predicate) *Query {
	q.preds = append(q.preds, pred)
	return q
}

// Refresh drops the cached membership set so the next evaluation
// recomputes it regardless of the world version.
func (q *Query) Refresh() *Query {
	q.cacheValid = false
	return q
}

// usable reports whether the query can evaluate at all. A query with no
// "with" clause must not fall back to a full scan: it is a caller usage
// error, reported as a diagnostic and an empty result.
func (q *Query) usable() bool {
	if len(q.with) == 0 && len(q.missingWith) == 0 {
		if !q.warned {
			q.world.log.Warn("query has no with clause; returning empty result")
			q.warned = true
		}
		return false
	}
	if len(q.missingWith) > 0 {
		if !q.warned {
			q.world.log.Warn("query names unresolved component types; returning empty result",
				zap.Strings("types", q.missingWith))
			q.warned = true
		}
		return false
	}
	return true
}

func (q *Query) ensure() {
	if q.cacheValid && q.cachedAt == q.world.version {
		return
	}
	q.candidates = q.compute()
	q.cachedAt = q.world.version
	q.cacheValid = true
}

// compute derives the membership set. The smallest "with" storage anchors
// the scan, bounding work by the smallest set's size; the remaining with
// and without checks collapse to one mask comparison per candidate
// against the per-entity component masks.
func (q *Query) compute() []Entity {
	anchor := q.world.registry.byID(q.with[0]).storage
	for _, id := range q.with[1:] {
		st := q.world.registry.byID(id).storage
		if st.size() < anchor.size() {
			anchor = st
		}
	}

	candidates := make([]Entity, 0, anchor.size())
	simple := len(q.with) == 1 && len(q.without) == 0
	for _, e := range anchor.entities() {
		if simple {
			candidates = append(candidates, e)
			continue
		}
		m := q.world.entityMask(e)
		if !m.ContainsAll(q.withMask) {
			continue
		}
		if !m.ContainsNone(q.withoutMask) {
			continue
		}
		candidates = append(candidates, e)
	}
	return candidates
}

func (q *Query) matchPredicates(r Result) bool {
	for _, pred := range q.preds {
		if !pred(r) {
			return false
		}
	}
	return true
}

// Each evaluates the query lazily as a restartable sequence. The world is
// locked for the duration of each iteration: mutate through the Enqueue
// variants from inside the loop.
func (q *Query) Each() iter.Seq[Result] {
	return func(yield func(Result) bool) {
		if !q.usable() {
			return
		}
		q.ensure()
		w := q.world
		w.Lock()
		defer w.Unlock()
		for _, e := range q.candidates {
			r := Result{Entity: e, world: w}
			if !q.matchPredicates(r) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Entities evaluates the query and returns the matching ids in
// unspecified order.
func (q *Query) Entities() []Entity {
	var out []Entity
	for r := range q.Each() {
		out = append(out, r.Entity)
	}
	return out
}

// Count evaluates the query and returns the number of matches.
func (q *Query) Count() int {
	n := 0
	for range q.Each() {
		n++
	}
	return n
}

// Result is one query match: an entity plus access to its components at
// their live values.
type Result struct {
	Entity Entity
	world  *World
}

func (r Result) World() *World {
	return r.world
}

// Named reads a dynamic component record off the result, returning false
// when absent.
func (r Result) Named(name string) (map[string]any, bool) {
	return r.world.GetNamed(r.Entity, name)
}

// Has reports whether the result's entity currently holds the given type.
func (r Result) Has(t RegisteredType) bool {
	id, err := t.resolve(r.world)
	if err != nil {
		return false
	}
	return r.world.registry.byID(id).storage.has(r.Entity)
}
