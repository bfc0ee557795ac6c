package container

import (
	"fmt"
	"io"
	"sort"
)

// phaseNode identifies one of the five lifecycle events of one resource in
// the consistency graph.
type phaseNode struct {
	rid   ResourceId
	phase Phase
}

func (n phaseNode) String() string { return fmt.Sprintf("%s/%s", n.rid, n.phase) }

// phaseNodeMap is a hash-bucketed lookup table keyed by phaseNode. A
// phaseNode embeds a ResourceId, which is not comparable (see
// resourceMap), so phaseNode cannot back a native Go map directly either.
// It mirrors resourceMap's hash/Equal bucketing for the same reason.
type phaseNodeMap[V any] struct {
	buckets map[uint64][]phaseNodeMapEntry[V]
}

type phaseNodeMapEntry[V any] struct {
	key   phaseNode
	value V
}

func newPhaseNodeMap[V any]() *phaseNodeMap[V] {
	return &phaseNodeMap[V]{buckets: make(map[uint64][]phaseNodeMapEntry[V])}
}

func phaseNodeHash(n phaseNode) uint64 {
	return n.rid.Hash()*31 + uint64(n.phase)
}

func phaseNodeEqual(a, b phaseNode) bool {
	return a.phase == b.phase && a.rid.Equal(b.rid)
}

func (m *phaseNodeMap[V]) get(n phaseNode) (V, bool) {
	for _, e := range m.buckets[phaseNodeHash(n)] {
		if phaseNodeEqual(e.key, n) {
			return e.value, true
		}
	}

	var zero V

	return zero, false
}

func (m *phaseNodeMap[V]) set(n phaseNode, value V) {
	h := phaseNodeHash(n)
	bucket := m.buckets[h]

	for i, e := range bucket {
		if phaseNodeEqual(e.key, n) {
			bucket[i].value = value

			return
		}
	}

	m.buckets[h] = append(bucket, phaseNodeMapEntry[V]{key: n, value: value})
}

// dependencyGraph is the offline phase-event graph described in
// spec.md §4.6: five nodes per declared resource, connected by
// intra-resource ordering edges and cross-resource provider/injector/
// initializer/disposer edges. Its topological sort is CheckConsistency's
// cycle report.
type dependencyGraph struct {
	nodes []phaseNode
	edges *phaseNodeMap[[]phaseNode]
	order *phaseNodeMap[int]
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		edges: newPhaseNodeMap[[]phaseNode](),
		order: newPhaseNodeMap[int](),
	}
}

func (g *dependencyGraph) addNode(n phaseNode) {
	if _, ok := g.order.get(n); ok {
		return
	}

	g.order.set(n, len(g.nodes))
	g.nodes = append(g.nodes, n)
}

func (g *dependencyGraph) addEdge(from, to phaseNode) {
	g.addNode(from)
	g.addNode(to)

	existing, _ := g.edges.get(from)
	g.edges.set(from, append(existing, to))
}

// buildDependencyGraph inspects every manager the container has declared
// and produces the phase-event graph for it.
func buildDependencyGraph(c *containerImpl) *dependencyGraph {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g := newDependencyGraph()

	rids := c.managers.Keys()

	sort.Slice(rids, func(i, j int) bool { return rids[i].String() < rids[j].String() })

	for _, rid := range rids {
		g.addEdge(phaseNode{rid, Allocated}, phaseNode{rid, Provided})
		g.addEdge(phaseNode{rid, Provided}, phaseNode{rid, Injected})
		g.addEdge(phaseNode{rid, Injected}, phaseNode{rid, Created})
		g.addEdge(phaseNode{rid, Created}, phaseNode{rid, Disposed})
	}

	for _, rid := range rids {
		manager, _ := c.managers.Get(rid)

		for _, dep := range manager.ProviderDeps() {
			// The provider runs before rid reaches Provided, and resolves
			// its own deps at Provided (spec.md §4.6 step 3b).
			g.addEdge(phaseNode{dep, Provided}, phaseNode{rid, Provided})
		}

		for _, dep := range manager.InjectorDeps() {
			// An injector runs before rid reaches Injected, and resolves
			// its own deps at Provided — this is the cycle-breaking edge
			// of spec.md §9: it never depends on dep's Injected or
			// Created phase.
			g.addEdge(phaseNode{dep, Provided}, phaseNode{rid, Injected})
		}

		for _, dep := range manager.InitializerDeps() {
			// The initializer runs before rid reaches Created, and
			// resolves its own deps at Injected.
			g.addEdge(phaseNode{dep, Injected}, phaseNode{rid, Created})
		}

		for _, dep := range manager.DisposerDeps() {
			// rid's disposer resolves dep at Created, so dep must have
			// reached Created before rid can be disposed.
			g.addEdge(phaseNode{dep, Created}, phaseNode{rid, Disposed})

			// rid's disposer consumes dep, so dep must still be around:
			// dep is disposed only after rid is.
			g.addEdge(phaseNode{rid, Disposed}, phaseNode{dep, Disposed})
		}
	}

	return g
}

// topologicalSort runs Kahn's algorithm, breaking ties in registration
// order for a deterministic report. It returns the sorted nodes and true
// on success, or the still-blocked nodes (the cycle) and false.
func (g *dependencyGraph) topologicalSort() ([]phaseNode, []phaseNode, bool) {
	indegree := newPhaseNodeMap[int]()
	for _, n := range g.nodes {
		indegree.set(n, 0)
	}

	for _, n := range g.nodes {
		targets, _ := g.edges.get(n)
		for _, to := range targets {
			d, _ := indegree.get(to)
			indegree.set(to, d+1)
		}
	}

	order := func(n phaseNode) int {
		o, _ := g.order.get(n)
		return o
	}

	sortByOrder := func(ns []phaseNode) {
		sort.Slice(ns, func(i, j int) bool { return order(ns[i]) < order(ns[j]) })
	}

	var ready []phaseNode

	for _, n := range g.nodes {
		d, _ := indegree.get(n)
		if d == 0 {
			ready = append(ready, n)
		}
	}

	sortByOrder(ready)

	var sorted []phaseNode

	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		sorted = append(sorted, n)

		var newlyReady []phaseNode

		targets, _ := g.edges.get(n)
		for _, to := range targets {
			d, _ := indegree.get(to)
			d--
			indegree.set(to, d)

			if d == 0 {
				newlyReady = append(newlyReady, to)
			}
		}

		sortByOrder(newlyReady)
		ready = append(ready, newlyReady...)
	}

	if len(sorted) == len(g.nodes) {
		return sorted, nil, true
	}

	var remaining []phaseNode

	for _, n := range g.nodes {
		d, _ := indegree.get(n)
		if d > 0 {
			remaining = append(remaining, n)
		}
	}

	sortByOrder(remaining)

	return sorted, remaining, false
}

// CheckConsistency implements Container.CheckConsistency.
func (c *containerImpl) CheckConsistency(sink io.Writer) bool {
	ok := true

	c.mu.RLock()

	for _, rid := range c.managers.Keys() {
		manager, _ := c.managers.Get(rid)

		allDeps := make([]ResourceId, 0)
		allDeps = append(allDeps, manager.ProviderDeps()...)
		allDeps = append(allDeps, manager.InjectorDeps()...)
		allDeps = append(allDeps, manager.InitializerDeps()...)
		allDeps = append(allDeps, manager.DisposerDeps()...)

		for _, dep := range allDeps {
			if _, declared := c.managers.Get(dep); !declared {
				ok = false

				fmt.Fprintf(sink, "undeclared dependency: %s depends on %s, which was never declared\n", rid, dep)
			}
		}
	}

	c.mu.RUnlock()

	g := buildDependencyGraph(c)

	sorted, cyclic, acyclic := g.topologicalSort()
	if !acyclic {
		ok = false

		fmt.Fprintf(sink, "cyclical dependency involving %d phase events:\n", len(cyclic))

		for _, n := range cyclic {
			fmt.Fprintf(sink, "  %s\n", n)
		}

		return ok
	}

	fmt.Fprintf(sink, "consistency check passed: %d phase events, valid order:\n", len(sorted))

	for _, n := range sorted {
		fmt.Fprintf(sink, "  %s\n", n)
	}

	return ok
}
