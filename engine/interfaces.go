package engine

// Storage abstracts the string key/value store backing persisted state.
// Implementations must never fail observably: errors are absorbed (and
// usually logged) inside the adapter, leaving the store in its prior state.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// Hasher computes the integrity digest stored next to each persisted field.
// It must be pure and deterministic.
type Hasher interface {
	Hash(data string) string
}

// HasherFunc adapts a plain function to the Hasher interface.
type HasherFunc func(data string) string

func (f HasherFunc) Hash(data string) string { return f(data) }
