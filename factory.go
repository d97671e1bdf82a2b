package stellaecs

import "reflect"

type factory struct{}

var Factory factory

func (f factory) NewWorld(opts ...Option) *World {
	return newWorld(opts...)
}

func (f factory) NewQuery(w *World) *Query {
	return w.NewQuery()
}

// FactoryNewComponent creates a typed component handle. The handle is
// world-independent; its type id is assigned lazily per World on first
// use.
func FactoryNewComponent[T any]() ComponentType[T] {
	return ComponentType[T]{name: reflect.TypeFor[T]().String()}
}

func FactoryNewCache[T any](cap int) Cache[T] {
	return &SimpleCache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: cap,
	}
}
