package stellaecs

// Entity is an opaque identifier keying component and relationship data.
// Ids start at 1 and increase monotonically for the lifetime of a World;
// the zero value is never a valid entity.
type Entity int

// RegisteredType identifies a component type that can participate in
// storage, query, and snapshot operations. Static types are created with
// FactoryNewComponent; dynamic types are declared on a World with
// DefineComponent or referenced by Named.
type RegisteredType interface {
	TypeName() string
	resolve(w *World) (int, error)
}

// Predicate filters query results against live component values.
type Predicate func(Result) bool

// Option configures a World at construction time.
type Option func(*World)

// anyStore is the type-erased view of a component storage, used for
// uniform lifecycle handling and by the snapshot codec.
type anyStore interface {
	has(Entity) bool
	remove(Entity) bool
	size() int
	entities() []Entity
	value(Entity) (any, bool)
	setAny(Entity, any) (bool, error)
}

// Cache is a small append-only keyed cache with stable integer indices.
type Cache[T any] interface {
	GetIndex(string) (int, bool)
	GetItem(int) *T
	GetItem32(uint32) *T
	Register(string, T) (int, error)
}

// SimpleCache is the default Cache implementation.
type SimpleCache[T any] struct {
	items       []T
	itemIndices map[string]int
	maxCapacity int
}
