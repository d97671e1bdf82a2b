package stellaecs

import "go.uber.org/zap"

type operationType int

const (
	opSet operationType = iota
	opRemove
	opSkip
)

type componentOp struct {
	typ    operationType
	typeID int
	entity Entity
	value  any
}

type opKey struct {
	entity Entity
	typeID int
}

// opQueue buffers structural mutations issued while the world is locked
// (typically from inside query iteration). At most one pending operation
// is kept per (entity, component type) pair: a later enqueue replaces the
// earlier one.
type opQueue struct {
	componentOps   []componentOp
	destroyOps     []Entity
	pendingOps     map[opKey]int
	pendingDestroy map[Entity]struct{}
}

func newOpQueue() opQueue {
	return opQueue{
		pendingOps:     make(map[opKey]int),
		pendingDestroy: make(map[Entity]struct{}),
	}
}

func (q *opQueue) enqueueComponentOp(typ operationType, typeID int, e Entity, value any) {
	// Component operations on an entity pending destruction are dead work.
	if _, doomed := q.pendingDestroy[e]; doomed {
		return
	}
	key := opKey{entity: e, typeID: typeID}
	if idx, exists := q.pendingOps[key]; exists {
		q.componentOps[idx].typ = typ
		q.componentOps[idx].value = value
		return
	}
	q.pendingOps[key] = len(q.componentOps)
	q.componentOps = append(q.componentOps, componentOp{
		typ:    typ,
		typeID: typeID,
		entity: e,
		value:  value,
	})
}

func (q *opQueue) enqueueDestroy(e Entity) {
	if _, exists := q.pendingDestroy[e]; exists {
		return
	}
	q.pendingDestroy[e] = struct{}{}
	q.destroyOps = append(q.destroyOps, e)

	// Invalidate component operations already queued for this entity.
	for key, idx := range q.pendingOps {
		if key.entity == e {
			q.componentOps[idx].typ = opSkip
			delete(q.pendingOps, key)
		}
	}
}

func (q *opQueue) empty() bool {
	return len(q.componentOps) == 0 && len(q.destroyOps) == 0
}

// processOperationQueue drains buffered operations after the last lock is
// released. A failing operation is logged and skipped: one bad queued op
// inside a frame loop must not halt the rest.
func (w *World) processOperationQueue() {
	if w.opQueue.empty() {
		return
	}

	for _, op := range w.opQueue.componentOps {
		var err error
		switch op.typ {
		case opSet:
			err = w.setByID(op.typeID, op.entity, op.value)
		case opRemove:
			err = w.removeByID(op.typeID, op.entity)
		case opSkip:
			continue
		}
		if err != nil {
			w.log.Warn("queued component operation failed",
				zap.Int("entity", int(op.entity)),
				zap.String("component", w.registry.byID(op.typeID).name),
				zap.Error(err))
		}
	}

	// Destroys run last so queued component state never resurrects an
	// entity destroyed in the same batch.
	for _, e := range w.opQueue.destroyOps {
		if err := w.DestroyEntity(e); err != nil {
			w.log.Warn("queued entity destruction failed",
				zap.Int("entity", int(e)),
				zap.Error(err))
		}
	}

	w.opQueue.componentOps = w.opQueue.componentOps[:0]
	w.opQueue.destroyOps = w.opQueue.destroyOps[:0]
	clear(w.opQueue.pendingOps)
	clear(w.opQueue.pendingDestroy)
}
