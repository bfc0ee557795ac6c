package container

import (
	"fmt"
	"reflect"
)

// typeKey is the type-erased half of a ResourceId: the resource's instance
// type together with the identity of the scope it is bound to. Folding the
// scope's identity in here is what makes the same instance type bound to
// two different scopes resolve to two distinct ResourceIds, per
// spec.md §4.4.
type typeKey struct {
	instance reflect.Type
	scope    string
}

func (k typeKey) String() string {
	return fmt.Sprintf("%s@%s", k.instance, k.scope)
}

// ResourceId is the type-erased identity of a resource: a (typeKey,
// QualifierSet) pair. Two ResourceIds are equal iff their components are
// equal. It carries a cached hash, but it is not comparable (its
// QualifierSet holds a map), so it cannot key a native Go map; resourceMap
// indexes by Hash and Equal instead.
type ResourceId struct {
	key   typeKey
	quals QualifierSet
	hash  uint64
}

func newResourceId(key typeKey, quals QualifierSet) ResourceId {
	h := fnvOffset
	h = fnvMix(h, key.String())
	h ^= quals.Hash()

	return ResourceId{key: key, quals: quals, hash: h}
}

// Hash returns the resource id's cached hash.
func (r ResourceId) Hash() uint64 { return r.hash }

// Qualifiers returns the resource id's qualifier set.
func (r ResourceId) Qualifiers() QualifierSet { return r.quals }

// Equal reports componentwise equality.
func (r ResourceId) Equal(other ResourceId) bool {
	return r.key == other.key && r.quals.Equal(other.quals)
}

// String renders the resource id for diagnostics and consistency reports.
func (r ResourceId) String() string {
	if r.quals.Size() == 0 {
		return r.key.String()
	}

	s := r.key.String() + "["
	first := true
	r.quals.Each(func(q Qualifier) {
		if !first {
			s += ","
		}

		first = false
		s += q.String()
	})

	return s + "]"
}

// Resource is the compile-time-typed client handle for a declared
// resource: an instance type T (as a Go type parameter), the Scope it is
// bound to, and a QualifierSet distinguishing it from other resources that
// share T. Constructing a handle does not declare anything in a
// Container; only Declare does.
type Resource[T any] struct {
	scope Scope
	quals QualifierSet
}

// NewResource creates a handle for instance type T bound to scope, with
// the given qualifiers distinguishing it from other resources of type T.
func NewResource[T any](scope Scope, quals ...Qualifier) Resource[T] {
	return Resource[T]{scope: scope, quals: NewQualifierSet(quals...)}
}

// ID derives the ResourceId this handle refers to.
func (r Resource[T]) ID() ResourceId {
	key := typeKey{
		instance: reflect.TypeOf((*T)(nil)).Elem(),
		scope:    r.scope.Key(),
	}

	return newResourceId(key, r.quals)
}

// Scope returns the scope this handle is bound to.
func (r Resource[T]) Scope() Scope { return r.scope }

// Qualifiers returns the handle's qualifier set.
func (r Resource[T]) Qualifiers() QualifierSet { return r.quals }
