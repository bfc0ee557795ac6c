package container

// resourceMap is a hash-bucketed lookup table keyed by ResourceId. A
// ResourceId embeds a QualifierSet, which holds its members in a map, so
// ResourceId is not comparable and cannot back a native Go map directly.
// resourceMap uses ResourceId's own cached Hash as the bucket key and
// Equal to resolve collisions within a bucket, which is exactly the pair
// of methods ResourceId exposes for this purpose.
type resourceMap[V any] struct {
	buckets map[uint64][]resourceMapEntry[V]
	size    int
}

type resourceMapEntry[V any] struct {
	key   ResourceId
	value V
}

func newResourceMap[V any]() *resourceMap[V] {
	return &resourceMap[V]{buckets: make(map[uint64][]resourceMapEntry[V])}
}

// Get returns the value stored for rid, if any.
func (m *resourceMap[V]) Get(rid ResourceId) (V, bool) {
	for _, e := range m.buckets[rid.Hash()] {
		if e.key.Equal(rid) {
			return e.value, true
		}
	}

	var zero V

	return zero, false
}

// Set stores value for rid, overwriting any existing entry.
func (m *resourceMap[V]) Set(rid ResourceId, value V) {
	h := rid.Hash()
	bucket := m.buckets[h]

	for i, e := range bucket {
		if e.key.Equal(rid) {
			bucket[i].value = value

			return
		}
	}

	m.buckets[h] = append(bucket, resourceMapEntry[V]{key: rid, value: value})
	m.size++
}

// Delete removes rid's entry, if present.
func (m *resourceMap[V]) Delete(rid ResourceId) {
	h := rid.Hash()
	bucket := m.buckets[h]

	for i, e := range bucket {
		if e.key.Equal(rid) {
			m.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			m.size--

			return
		}
	}
}

// Len reports the number of entries.
func (m *resourceMap[V]) Len() int { return m.size }

// Keys returns every key currently stored, in unspecified order.
func (m *resourceMap[V]) Keys() []ResourceId {
	keys := make([]ResourceId, 0, m.size)

	for _, bucket := range m.buckets {
		for _, e := range bucket {
			keys = append(keys, e.key)
		}
	}

	return keys
}

// Range calls fn for every entry until fn returns false or every entry has
// been visited. Iteration order is unspecified.
func (m *resourceMap[V]) Range(fn func(ResourceId, V) bool) {
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			if !fn(e.key, e.value) {
				return
			}
		}
	}
}
