package stellaecs

// Config holds global configuration for the engine.
var Config config = config{denseCapacity: 64}

type config struct {
	denseCapacity int
}

// SetDenseCapacity sets the initial capacity of the dense arrays backing
// newly created component storages.
func (c *config) SetDenseCapacity(n int) {
	if n > 0 {
		c.denseCapacity = n
	}
}

func (c *config) DenseCapacity() int {
	return c.denseCapacity
}
