package container

// ResourceQuery filters the resources declared in a Container. A zero
// value matches every declared resource.
type ResourceQuery struct {
	// InstanceType, if non-empty, matches ResourceIds whose instance type
	// string equals it exactly (as produced by reflect.Type.String()).
	InstanceType string

	// Scope, if non-empty, matches ResourceIds bound to the scope with
	// this Key(), e.g. "global" or "guarded:mypkg.Request".
	Scope string

	// Qualifiers, if non-empty, matches ResourceIds whose QualifierSet
	// matches this one under the matching relation of spec.md §3, not
	// plain equality.
	Qualifiers []Qualifier
}

// Query returns every declared ResourceId matching q.
func Query(c Container, q ResourceQuery) []ResourceId {
	want := NewQualifierSet(q.Qualifiers...)

	var results []ResourceId

	for _, rid := range c.Services() {
		if q.InstanceType != "" && rid.key.instance.String() != q.InstanceType {
			continue
		}

		if q.Scope != "" && rid.key.scope != q.Scope {
			continue
		}

		if len(q.Qualifiers) > 0 && !rid.quals.Matches(want) {
			continue
		}

		results = append(results, rid)
	}

	return results
}

// QueryCount is a cheaper Query for callers that only need the match
// count.
func QueryCount(c Container, q ResourceQuery) int {
	return len(Query(c, q))
}

// FindByScope returns every declared resource bound to the scope with the
// given Key().
func FindByScope(c Container, scopeKey string) []ResourceId {
	return Query(c, ResourceQuery{Scope: scopeKey})
}
