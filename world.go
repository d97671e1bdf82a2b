package stellaecs

import (
	"maps"

	"github.com/TheBitDrifter/mask"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// World is the façade holding all component storages, the type registry,
// and the relationship graph. It is a single mutable resource with no
// internal synchronization: callers embedding it in a multi-threaded host
// must serialize all mutation through a single writer.
type World struct {
	id       uuid.UUID
	log      *zap.Logger
	nextID   Entity
	version  uint64
	lockHeld int
	registry typeRegistry
	masks    []mask.Mask
	graph    *Graph
	opQueue  opQueue
}

func newWorld(opts ...Option) *World {
	w := &World{
		id:       uuid.New(),
		log:      zap.NewNop(),
		nextID:   1,
		registry: newTypeRegistry(),
		opQueue:  newOpQueue(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With(zap.String("world", w.id.String()))
	w.graph = newGraph()
	return w
}

// WithLogger attaches a logger for usage-error diagnostics and snapshot
// warnings. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *World) {
		w.log = l
	}
}

// WithEntityCapacity pre-sizes per-entity bookkeeping for worlds whose
// rough population is known up front.
func WithEntityCapacity(n int) Option {
	return func(w *World) {
		if n > 0 {
			w.masks = make([]mask.Mask, 0, n)
		}
	}
}

// ID returns the world's instance identifier.
func (w *World) ID() uuid.UUID {
	return w.id
}

// Version returns the world's change counter. It increments on every
// component set and remove; the query engine uses it to decide whether
// cached membership sets are still current.
func (w *World) Version() uint64 {
	return w.version
}

// CreateEntity allocates a fresh entity id. Ids increase monotonically and
// are never reused, so stale references simply read as absent everywhere.
// Creation is allowed while the world is locked: it touches no storage.
func (w *World) CreateEntity() Entity {
	e := w.nextID
	w.nextID++
	w.masks = append(w.masks, mask.Mask{})
	return e
}

// CreateEntities allocates n fresh entity ids.
func (w *World) CreateEntities(n int) []Entity {
	out := make([]Entity, n)
	for i := range out {
		out[i] = w.CreateEntity()
	}
	return out
}

// DestroyEntity removes the entity from every component storage and drops
// all graph edges incident to it.
func (w *World) DestroyEntity(e Entity) error {
	if w.Locked() {
		return LockedWorldError{}
	}
	if !w.validEntity(e) {
		return InvalidEntityError{Entity: e}
	}
	for id := 0; id < w.registry.count(); id++ {
		w.registry.byID(id).storage.remove(e)
	}
	w.masks[e-1] = mask.Mask{}
	w.graph.removeEntity(e)
	w.version++
	return nil
}

// EnqueueDestroyEntity behaves like DestroyEntity, but buffers the
// operation when the world is locked. Component operations already queued
// for the entity are dropped.
func (w *World) EnqueueDestroyEntity(e Entity) error {
	if !w.Locked() {
		return w.DestroyEntity(e)
	}
	w.opQueue.enqueueDestroy(e)
	return nil
}

// Lock marks the world as iterating. While locked, direct structural
// mutation fails with LockedWorldError and the Enqueue variants buffer
// instead. Locks nest; the operation queue drains when the last lock is
// released.
func (w *World) Lock() {
	w.lockHeld++
}

// Unlock releases one lock level and, once unlocked, applies all buffered
// operations in order: component sets and removes first, destroys last.
func (w *World) Unlock() {
	if w.lockHeld == 0 {
		return
	}
	w.lockHeld--
	if w.lockHeld == 0 {
		w.processOperationQueue()
	}
}

func (w *World) Locked() bool {
	return w.lockHeld > 0
}

// Graph returns the world's relationship graph.
func (w *World) Graph() *Graph {
	return w.graph
}

// DefineComponent declares a runtime component type with a default-value
// template. Re-declaring an existing dynamic type replaces its template;
// declaring over a static type fails with TypeConflictError.
func (w *World) DefineComponent(name string, defaults map[string]any) (DynamicType, error) {
	_, err := w.registry.registerDynamic(name, defaults)
	if err != nil {
		return DynamicType{}, err
	}
	return DynamicType{name: name}, nil
}

// SetNamed attaches a dynamic component by name, merging overrides onto
// the type's default template. Unknown names fail with
// UnknownComponentError rather than implicitly declaring a type.
func (w *World) SetNamed(e Entity, name string, overrides map[string]any) error {
	if w.Locked() {
		return LockedWorldError{}
	}
	if !w.validEntity(e) {
		return InvalidEntityError{Entity: e}
	}
	entry, ok := w.registry.byName(name)
	if !ok {
		return UnknownComponentError{Name: name}
	}
	if entry.kind != typeDynamic {
		return TypeConflictError{Name: name}
	}
	added, err := entry.storage.setAny(e, mergeDefaults(entry.defaults, overrides))
	if err != nil {
		return err
	}
	w.noteSet(e, entry.id, added)
	return nil
}

// GetNamed retrieves a dynamic component record by name. The returned map
// is the live stored record, not a copy. Unknown names read as absent.
func (w *World) GetNamed(e Entity, name string) (map[string]any, bool) {
	entry, ok := w.registry.byName(name)
	if !ok || entry.kind != typeDynamic {
		return nil, false
	}
	v, ok := entry.storage.value(e)
	if !ok {
		return nil, false
	}
	record, ok := v.(map[string]any)
	return record, ok
}

func (w *World) HasNamed(e Entity, name string) bool {
	entry, ok := w.registry.byName(name)
	if !ok {
		return false
	}
	return entry.storage.has(e)
}

// RemoveNamed detaches a dynamic component by name. Removing an absent
// component is a no-op; an unknown name is an error.
func (w *World) RemoveNamed(e Entity, name string) error {
	if w.Locked() {
		return LockedWorldError{}
	}
	entry, ok := w.registry.byName(name)
	if !ok {
		return UnknownComponentError{Name: name}
	}
	if entry.storage.remove(e) {
		w.noteRemove(e, entry.id)
	}
	return nil
}

func (w *World) validEntity(e Entity) bool {
	return e > 0 && e < w.nextID
}

// ensureEntity extends the id space to cover e, used when restoring a
// snapshot whose ids must be preserved exactly.
func (w *World) ensureEntity(e Entity) {
	for w.nextID <= e {
		w.CreateEntity()
	}
}

func (w *World) noteSet(e Entity, typeID int, added bool) {
	if added {
		w.masks[e-1].Mark(uint32(typeID))
	}
	w.version++
}

func (w *World) noteRemove(e Entity, typeID int) {
	w.masks[e-1].Unmark(uint32(typeID))
	w.version++
}

func (w *World) entityMask(e Entity) mask.Mask {
	return w.masks[e-1]
}

// setByID applies a type-erased set, used by the operation queue and the
// snapshot codec.
func (w *World) setByID(typeID int, e Entity, v any) error {
	if !w.validEntity(e) {
		return InvalidEntityError{Entity: e}
	}
	entry := w.registry.byID(typeID)
	added, err := entry.storage.setAny(e, v)
	if err != nil {
		return ValueTypeError{Name: entry.name, Value: v}
	}
	w.noteSet(e, typeID, added)
	return nil
}

func (w *World) removeByID(typeID int, e Entity) error {
	if !w.validEntity(e) {
		return InvalidEntityError{Entity: e}
	}
	if w.registry.byID(typeID).storage.remove(e) {
		w.noteRemove(e, typeID)
	}
	return nil
}

func mergeDefaults(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	maps.Copy(merged, defaults)
	maps.Copy(merged, overrides)
	return merged
}
