package container

import "reflect"

// QualifierSet is a small, unordered set of qualifiers with the invariant
// that it holds at most one qualifier per tag-key. Its cached hash is
// maintained as the xor of its members' hashes so that Hash is O(1) after
// every mutation.
type QualifierSet struct {
	members map[reflect.Type]Qualifier
	hash    uint64
}

// NewQualifierSet builds a QualifierSet from the given qualifiers. Later
// qualifiers with a tag already present replace earlier ones, per the
// tag-uniqueness invariant.
func NewQualifierSet(quals ...Qualifier) QualifierSet {
	s := QualifierSet{members: make(map[reflect.Type]Qualifier, len(quals))}
	for _, q := range quals {
		s = s.Update(q)
	}

	return s
}

// Size returns the number of qualifiers in the set.
func (s QualifierSet) Size() int {
	return len(s.members)
}

// Hash returns the set's cached hash.
func (s QualifierSet) Hash() uint64 {
	return s.hash
}

// Contains reports whether q is a member of s under equality.
func (s QualifierSet) Contains(q Qualifier) bool {
	existing, ok := s.members[q.Tag()]
	if !ok {
		return false
	}

	return existing.Equal(q)
}

// ContainsSimilar reports whether s has a member sharing q's tag-key,
// regardless of payload.
func (s QualifierSet) ContainsSimilar(q Qualifier) bool {
	_, ok := s.members[q.Tag()]

	return ok
}

// Update inserts q, replacing any existing qualifier that shares its
// tag-key (the tag-uniqueness invariant). It returns the resulting set;
// the receiver is not mutated (QualifierSet is treated as a persistent
// value type at call sites, mirroring Qualifier's immutability).
func (s QualifierSet) Update(q Qualifier) QualifierSet {
	next := s.clone()

	if old, ok := next.members[q.Tag()]; ok {
		next.hash ^= old.Hash()
	}

	next.members[q.Tag()] = q
	next.hash ^= q.Hash()

	return next
}

// DeleteSimilar removes any member sharing tag's tag-key.
func (s QualifierSet) DeleteSimilar(tag Qualifier) QualifierSet {
	next := s.clone()

	if old, ok := next.members[tag.Tag()]; ok {
		next.hash ^= old.Hash()
		delete(next.members, tag.Tag())
	}

	return next
}

// DeleteEqual removes q only if an equal qualifier is present.
func (s QualifierSet) DeleteEqual(q Qualifier) QualifierSet {
	if !s.Contains(q) {
		return s
	}

	return s.DeleteSimilar(q)
}

func (s QualifierSet) clone() QualifierSet {
	members := make(map[reflect.Type]Qualifier, len(s.members)+1)
	for k, v := range s.members {
		members[k] = v
	}

	return QualifierSet{members: members, hash: s.hash}
}

// Each calls fn for every member of s. Iteration order is unspecified.
func (s QualifierSet) Each(fn func(Qualifier)) {
	for _, q := range s.members {
		fn(q)
	}
}

// Equal reports standard set equality: same size, same members.
func (s QualifierSet) Equal(other QualifierSet) bool {
	if len(s.members) != len(other.members) {
		return false
	}

	for tag, q := range s.members {
		o, ok := other.members[tag]
		if !ok || !q.Equal(o) {
			return false
		}
	}

	return true
}

// Matches implements the matching relation of spec.md §3: every element
// of s matches some element of other, and vice versa. An empty set
// matches only an empty set.
func (s QualifierSet) Matches(other QualifierSet) bool {
	if len(s.members) == 0 || len(other.members) == 0 {
		return len(s.members) == 0 && len(other.members) == 0
	}

	for _, q := range s.members {
		if !anyMatches(q, other) {
			return false
		}
	}

	for _, q := range other.members {
		if !anyMatches(q, s) {
			return false
		}
	}

	return true
}

func anyMatches(q Qualifier, set QualifierSet) bool {
	for _, o := range set.members {
		if q.Matches(o) {
			return true
		}
	}

	return false
}
