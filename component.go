package stellaecs

import "encoding/json"

// ComponentType is a typed handle for a statically declared component. The
// zero value is not usable; create handles with FactoryNewComponent. A
// handle is world-independent: the id is resolved lazily per World on
// first use.
type ComponentType[T any] struct {
	name string
}

func (c ComponentType[T]) TypeName() string {
	return c.name
}

func (c ComponentType[T]) resolve(w *World) (int, error) {
	if id, ok := w.registry.idByName(c.name); ok {
		return id, nil
	}
	decode := func(data []byte) (any, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return w.registry.registerStatic(c.name, newStore[T](), decode)
}

func (c ComponentType[T]) storeIn(w *World) (*store[T], int, error) {
	id, err := c.resolve(w)
	if err != nil {
		return nil, -1, err
	}
	st, ok := w.registry.byID(id).storage.(*store[T])
	if !ok {
		return nil, -1, TypeConflictError{Name: c.name}
	}
	return st, id, nil
}

// Set attaches a component value to an entity, replacing any previous
// value of this type in place.
func (c ComponentType[T]) Set(w *World, e Entity, v T) error {
	if w.Locked() {
		return LockedWorldError{}
	}
	if !w.validEntity(e) {
		return InvalidEntityError{Entity: e}
	}
	st, id, err := c.storeIn(w)
	if err != nil {
		return err
	}
	added := st.set(e, v)
	w.noteSet(e, id, added)
	return nil
}

// EnqueueSet behaves like Set, but buffers the operation when the world is
// locked. Buffered operations apply in order once the world unlocks.
func (c ComponentType[T]) EnqueueSet(w *World, e Entity, v T) error {
	if !w.Locked() {
		return c.Set(w, e, v)
	}
	id, err := c.resolve(w)
	if err != nil {
		return err
	}
	w.opQueue.enqueueComponentOp(opSet, id, e, v)
	return nil
}

// Get retrieves the component value for an entity, returning false when
// absent.
func (c ComponentType[T]) Get(w *World, e Entity) (T, bool) {
	st, _, err := c.storeIn(w)
	if err != nil {
		var zero T
		return zero, false
	}
	return st.get(e)
}

// Ptr returns a pointer to the stored value for in-place mutation, or nil
// when absent. The pointer is valid only until the next structural
// mutation of this component's storage.
func (c ComponentType[T]) Ptr(w *World, e Entity) *T {
	st, _, err := c.storeIn(w)
	if err != nil {
		return nil
	}
	return st.ptr(e)
}

func (c ComponentType[T]) Has(w *World, e Entity) bool {
	st, _, err := c.storeIn(w)
	if err != nil {
		return false
	}
	return st.has(e)
}

// Remove detaches the component from an entity. Removing an absent
// component is a no-op.
func (c ComponentType[T]) Remove(w *World, e Entity) error {
	if w.Locked() {
		return LockedWorldError{}
	}
	st, id, err := c.storeIn(w)
	if err != nil {
		return err
	}
	if st.remove(e) {
		w.noteRemove(e, id)
	}
	return nil
}

// EnqueueRemove behaves like Remove, but buffers the operation when the
// world is locked.
func (c ComponentType[T]) EnqueueRemove(w *World, e Entity) error {
	if !w.Locked() {
		return c.Remove(w, e)
	}
	id, err := c.resolve(w)
	if err != nil {
		return err
	}
	w.opQueue.enqueueComponentOp(opRemove, id, e, nil)
	return nil
}

// Entities returns a copy of the ids currently holding this component, in
// unspecified order.
func (c ComponentType[T]) Entities(w *World) []Entity {
	st, _, err := c.storeIn(w)
	if err != nil {
		return nil
	}
	out := make([]Entity, st.size())
	copy(out, st.entities())
	return out
}

// GetFromResult retrieves the component for the entity at a query result,
// panicking if absent. Use GetFromResultSafe for optional components.
func (c ComponentType[T]) GetFromResult(r Result) *T {
	p := c.Ptr(r.world, r.Entity)
	if p == nil {
		panic(UnknownComponentError{Name: c.name})
	}
	return p
}

// GetFromResultSafe retrieves the component for the entity at a query
// result, checking presence first.
func (c ComponentType[T]) GetFromResultSafe(r Result) (bool, *T) {
	p := c.Ptr(r.world, r.Entity)
	if p == nil {
		return false, nil
	}
	return true, p
}

// CheckResult reports whether the entity at a query result holds this
// component.
func (c ComponentType[T]) CheckResult(r Result) bool {
	return c.Has(r.world, r.Entity)
}

// DynamicType is a handle for a component type declared at runtime by name
// with a default-value template. Obtain one from World.DefineComponent, or
// construct a reference to an already-declared type with Named.
type DynamicType struct {
	name string
}

// Named references a runtime-declared component type by name. Resolution
// happens against the World at use time; an undeclared name behaves as an
// absent component rather than an error.
func Named(name string) DynamicType {
	return DynamicType{name: name}
}

func (d DynamicType) TypeName() string {
	return d.name
}

func (d DynamicType) resolve(w *World) (int, error) {
	if id, ok := w.registry.idByName(d.name); ok {
		return id, nil
	}
	return -1, UnknownComponentError{Name: d.name}
}

// Set merges overrides onto the type's default template and attaches the
// merged record to the entity, replacing any previous value.
func (d DynamicType) Set(w *World, e Entity, overrides map[string]any) error {
	return w.SetNamed(e, d.name, overrides)
}

// EnqueueSet behaves like Set, but buffers the operation when the world is
// locked.
func (d DynamicType) EnqueueSet(w *World, e Entity, overrides map[string]any) error {
	if !w.Locked() {
		return d.Set(w, e, overrides)
	}
	entry, ok := w.registry.byName(d.name)
	if !ok {
		return UnknownComponentError{Name: d.name}
	}
	if entry.kind != typeDynamic {
		return TypeConflictError{Name: d.name}
	}
	w.opQueue.enqueueComponentOp(opSet, entry.id, e, mergeDefaults(entry.defaults, overrides))
	return nil
}

func (d DynamicType) Get(w *World, e Entity) (map[string]any, bool) {
	return w.GetNamed(e, d.name)
}

func (d DynamicType) Has(w *World, e Entity) bool {
	return w.HasNamed(e, d.name)
}

func (d DynamicType) Remove(w *World, e Entity) error {
	return w.RemoveNamed(e, d.name)
}

// EnqueueRemove behaves like Remove, but buffers the operation when the
// world is locked.
func (d DynamicType) EnqueueRemove(w *World, e Entity) error {
	if !w.Locked() {
		return d.Remove(w, e)
	}
	entry, ok := w.registry.byName(d.name)
	if !ok {
		return UnknownComponentError{Name: d.name}
	}
	w.opQueue.enqueueComponentOp(opRemove, entry.id, e, nil)
	return nil
}
