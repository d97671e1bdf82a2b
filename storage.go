package stellaecs

// A store is a sparse set holding all values of one component type.
//
// denseEntities and denseValues are parallel arrays with no holes; sparse
// maps entity id (minus one) to a dense index, with -1 marking absence. An
// entry is live only when the round trip holds:
//
//	sparse[e-1] < len(denseEntities) && denseEntities[sparse[e-1]] == e
//
// The second half of the check guards against stale sparse slots left over
// from swap-removal, so it is a validity test rather than a mere existence
// test.
type store[T any] struct {
	denseEntities []Entity
	denseValues   []T
	sparse        []int
}

const sparseTombstone = -1

var _ anyStore = &store[any]{}

func newStore[T any]() *store[T] {
	return &store[T]{
		denseEntities: make([]Entity, 0, Config.DenseCapacity()),
		denseValues:   make([]T, 0, Config.DenseCapacity()),
	}
}

// index returns the dense index for e, or -1 if e holds no value here.
func (s *store[T]) index(e Entity) int {
	if e <= 0 || int(e) > len(s.sparse) {
		return -1
	}
	idx := s.sparse[e-1]
	if idx == sparseTombstone || idx >= len(s.denseEntities) || s.denseEntities[idx] != e {
		return -1
	}
	return idx
}

// set inserts or overwrites the value for e. It reports whether the entity
// was newly added to the set.
func (s *store[T]) set(e Entity, v T) bool {
	if idx := s.index(e); idx != -1 {
		s.denseValues[idx] = v
		return false
	}
	s.growSparse(e)
	s.denseEntities = append(s.denseEntities, e)
	s.denseValues = append(s.denseValues, v)
	s.sparse[e-1] = len(s.denseEntities) - 1
	return true
}

// growSparse extends the sparse array to cover e, filling new slots with
// tombstones. Growth doubles to amortize repeated extension.
func (s *store[T]) growSparse(e Entity) {
	if int(e) <= len(s.sparse) {
		return
	}
	oldLen := len(s.sparse)
	newLen := max(oldLen*2, int(e))
	grown := make([]int, newLen)
	copy(grown, s.sparse)
	for i := oldLen; i < newLen; i++ {
		grown[i] = sparseTombstone
	}
	s.sparse = grown
}

func (s *store[T]) get(e Entity) (T, bool) {
	idx := s.index(e)
	if idx == -1 {
		var zero T
		return zero, false
	}
	return s.denseValues[idx], true
}

// ptr returns a pointer into the dense array for in-place mutation. The
// pointer is valid only until the next structural mutation of this store.
func (s *store[T]) ptr(e Entity) *T {
	idx := s.index(e)
	if idx == -1 {
		return nil
	}
	return &s.denseValues[idx]
}

func (s *store[T]) has(e Entity) bool {
	return s.index(e) != -1
}

// remove deletes the value for e by swapping the last dense element into
// its slot and fixing that element's sparse pointer. It reports whether
// anything was removed.
func (s *store[T]) remove(e Entity) bool {
	idx := s.index(e)
	if idx == -1 {
		return false
	}
	last := len(s.denseEntities) - 1
	lastEntity := s.denseEntities[last]

	s.denseEntities[idx] = lastEntity
	s.denseValues[idx] = s.denseValues[last]
	s.sparse[lastEntity-1] = idx

	var zero T
	s.denseValues[last] = zero
	s.denseEntities = s.denseEntities[:last]
	s.denseValues = s.denseValues[:last]
	s.sparse[e-1] = sparseTombstone
	return true
}

func (s *store[T]) size() int {
	return len(s.denseEntities)
}

// entities returns the live entity ids in dense-array order. The slice
// aliases internal state: callers must not mutate it, and the order may
// change across any mutation of the store.
func (s *store[T]) entities() []Entity {
	return s.denseEntities
}

func (s *store[T]) value(e Entity) (any, bool) {
	v, ok := s.get(e)
	if !ok {
		return nil, false
	}
	return v, true
}

func (s *store[T]) setAny(e Entity, v any) (bool, error) {
	typed, ok := v.(T)
	if !ok {
		return false, ValueTypeError{Value: v}
	}
	return s.set(e, typed), nil
}
