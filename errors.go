package stellaecs

import "fmt"

type LockedWorldError struct{}

func (e LockedWorldError) Error() string {
	return "world is currently locked"
}

type InvalidEntityError struct {
	Entity Entity
}

func (e InvalidEntityError) Error() string {
	return fmt.Sprintf("entity %d is not a valid entity of this world", e.Entity)
}

type RegistryFullError struct {
	Capacity int
}

func (e RegistryFullError) Error() string {
	return fmt.Sprintf("component type registry at maximum capacity (%d)", e.Capacity)
}

type UnknownComponentError struct {
	Name string
}

func (e UnknownComponentError) Error() string {
	return fmt.Sprintf("component type %q is not registered", e.Name)
}

type TypeConflictError struct {
	Name string
}

func (e TypeConflictError) Error() string {
	return fmt.Sprintf("component type %q is already registered with a different kind", e.Name)
}

type ValueTypeError struct {
	Name  string
	Value any
}

func (e ValueTypeError) Error() string {
	return fmt.Sprintf("value of type %T does not match component type %q", e.Value, e.Name)
}

type CacheCapacityError struct {
	Capacity int
}

func (e CacheCapacityError) Error() string {
	return fmt.Sprintf("cache at maximum capacity (%d)", e.Capacity)
}

type SnapshotFormatError struct {
	Format int
}

func (e SnapshotFormatError) Error() string {
	return fmt.Sprintf("unsupported snapshot format %d (want %d)", e.Format, SnapshotFormatVersion)
}

type SnapshotChecksumError struct {
	Want, Got string
}

func (e SnapshotChecksumError) Error() string {
	return fmt.Sprintf("snapshot checksum mismatch: header %s, payload %s", e.Want, e.Got)
}
