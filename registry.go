package stellaecs

// MaxComponentTypes is the maximum number of component types (static and
// dynamic combined) one World can register. Type ids double as bit
// positions in the per-entity component masks, which bounds the count.
const MaxComponentTypes = 64

type typeKind int

const (
	typeStatic typeKind = iota
	typeDynamic
)

// typeEntry is one registered component type. Static entries carry a
// decoder for snapshot restoration; dynamic entries carry the
// default-value template instead.
type typeEntry struct {
	id       int
	name     string
	kind     typeKind
	defaults map[string]any
	decode   func([]byte) (any, error)
	storage  anyStore
}

// typeRegistry assigns a stable small integer id to every component type
// on first use. Ids increase monotonically and are never reassigned or
// reused within one World's lifetime.
type typeRegistry struct {
	cache *SimpleCache[typeEntry]
}

func newTypeRegistry() typeRegistry {
	return typeRegistry{
		cache: &SimpleCache[typeEntry]{
			itemIndices: make(map[string]int),
			maxCapacity: MaxComponentTypes,
		},
	}
}

func (r *typeRegistry) idByName(name string) (int, bool) {
	return r.cache.GetIndex(name)
}

func (r *typeRegistry) byName(name string) (*typeEntry, bool) {
	id, ok := r.cache.GetIndex(name)
	if !ok {
		return nil, false
	}
	return r.cache.GetItem(id), true
}

func (r *typeRegistry) byID(id int) *typeEntry {
	return r.cache.GetItem(id)
}

func (r *typeRegistry) count() int {
	return r.cache.Len()
}

func (r *typeRegistry) registerStatic(name string, storage anyStore, decode func([]byte) (any, error)) (int, error) {
	if id, ok := r.cache.GetIndex(name); ok {
		return id, nil
	}
	id, err := r.cache.Register(name, typeEntry{
		name:    name,
		kind:    typeStatic,
		decode:  decode,
		storage: storage,
	})
	if err != nil {
		return -1, RegistryFullError{Capacity: MaxComponentTypes}
	}
	r.cache.GetItem(id).id = id
	return id, nil
}

func (r *typeRegistry) registerDynamic(name string, defaults map[string]any) (int, error) {
	if entry, ok := r.byName(name); ok {
		if entry.kind != typeDynamic {
			return -1, TypeConflictError{Name: name}
		}
		// Re-declaring a dynamic type updates its template.
		entry.defaults = defaults
		return entry.id, nil
	}
	id, err := r.cache.Register(name, typeEntry{
		name:     name,
		kind:     typeDynamic,
		defaults: defaults,
		storage:  newStore[map[string]any](),
	})
	if err != nil {
		return -1, RegistryFullError{Capacity: MaxComponentTypes}
	}
	r.cache.GetItem(id).id = id
	return id, nil
}
