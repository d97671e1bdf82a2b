/*
Package stellaecs provides an Entity-Component-System (ECS) data engine for
games and simulations.

Stella ECS stores components in sparse sets: one densely packed value array
per component type, paired with a sparse index from entity id to dense slot.
Set, get, and remove are O(1), and iteration walks contiguous memory. On top
of the storages sit a query engine with cached set intersection, a
relationship graph for edges between entities that don't belong in component
data, and a JSON snapshot codec that survives component types declared at
runtime.

Core Concepts:

  - Entity: A unique identifier that represents an object in the world.
  - Component: A data record attached to an entity, keyed by type.
  - Query: A reusable description of a component combination to retrieve.
  - Graph: Directed and undirected relationships between entities.
  - Snapshot: A point-in-time serializable copy of the whole world.

Basic Usage:

	// Create a world
	world := stellaecs.Factory.NewWorld()

	// Define components
	position := stellaecs.FactoryNewComponent[Position]()
	velocity := stellaecs.FactoryNewComponent[Velocity]()

	// Create entities and attach data
	player := world.CreateEntity()
	position.Set(world, player, Position{X: 10, Y: 20})
	velocity.Set(world, player, Velocity{X: 1, Y: 2})

	// Query entities and process them
	moving := world.NewQuery().With(position, velocity)
	for r := range moving.Each() {
		pos := position.GetFromResult(r)
		vel := velocity.GetFromResult(r)
		pos.X += vel.X
		pos.Y += vel.Y
	}

Component types can also be declared at runtime by name, with a default-value
template:

	mana, _ := world.DefineComponent("Mana", map[string]any{"value": 100.0, "max": 150.0})
	mana.Set(world, player, map[string]any{"value": 50.0})

The engine is a synchronous, single-threaded data structure. It performs no
internal locking; hosts embedding it in concurrent code must serialize all
mutation through a single writer. During query iteration the world is locked
and structural mutation must go through the Enqueue variants, which apply
once iteration finishes.
*/
package stellaecs
