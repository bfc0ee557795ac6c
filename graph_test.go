package container

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustIndex(index *phaseNodeMap[int], n phaseNode) int {
	i, _ := index.get(n)
	return i
}

func TestCheckConsistency_ValidChainPasses(t *testing.T) {
	c := New()

	engineR := NewResource[*engine](c.Global())
	widgetR := NewResource[*widget](c.Global())

	Declare(c, engineR).Provide(func() (*engine, error) { return &engine{}, nil })
	Declare(c, widgetR).Provide(func(*engine) (*widget, error) { return &widget{}, nil }, DepOf(engineR))

	var sink strings.Builder
	ok := c.CheckConsistency(&sink)

	require.True(t, ok)
	assert.Contains(t, sink.String(), "consistency check passed")
}

func TestCheckConsistency_ReportsUndeclaredDependency(t *testing.T) {
	c := New()

	widgetR := NewResource[*widget](c.Global())
	engineR := NewResource[*engine](c.Global())

	Declare(c, widgetR).Provide(func(*engine) (*widget, error) { return &widget{}, nil }, DepOf(engineR))

	var sink strings.Builder
	ok := c.CheckConsistency(&sink)

	assert.False(t, ok)
	assert.Contains(t, sink.String(), "undeclared dependency")
}

func TestCheckConsistency_ReportsProviderCycle(t *testing.T) {
	c := New()

	type a struct{}

	type b struct{}

	aR := NewResource[*a](c.Global())
	bR := NewResource[*b](c.Global())

	Declare(c, aR).Provide(func(*b) (*a, error) { return &a{}, nil }, DepOf(bR))
	Declare(c, bR).Provide(func(*a) (*b, error) { return &b{}, nil }, DepOf(aR))

	var sink strings.Builder
	ok := c.CheckConsistency(&sink)

	assert.False(t, ok)
	assert.Contains(t, sink.String(), "cyclical dependency")
}

func TestCheckConsistency_InjectorCycleIsNotFlagged(t *testing.T) {
	c := New()

	aR := NewResource[*a](c.Global())
	bR := NewResource[*b](c.Global())

	Declare(c, aR).
		Provide(func() (*a, error) { return &a{}, nil }).
		Inject(func(Container, *a, *b) error { return nil }, DepOf(bR))

	Declare(c, bR).
		Provide(func() (*b, error) { return &b{}, nil }).
		Inject(func(Container, *b, *a) error { return nil }, DepOf(aR))

	var sink strings.Builder
	ok := c.CheckConsistency(&sink)

	// a's injector depends on b@Provided and b's injector depends on
	// a@Provided; the edges land on each resource's Injected node, not
	// its Provided node, so they never close a cycle through Provided.
	assert.True(t, ok)
}

type a struct{ b *b }

type b struct{ a *a }

func TestTopologicalSort_OrdersIntraResourcePhases(t *testing.T) {
	c := New()
	r := NewResource[*widget](c.Global())

	Declare(c, r).
		Provide(func() (*widget, error) { return &widget{}, nil }).
		Inject(func(Container, *widget) error { return nil }).
		Initialize(func(Container, *widget) error { return nil })

	g := buildDependencyGraph(c.(*containerImpl))
	sorted, _, ok := g.topologicalSort()
	require.True(t, ok)

	index := newPhaseNodeMap[int]()
	for i, n := range sorted {
		index.set(n, i)
	}

	rid := r.ID()
	assert.Less(t, mustIndex(index, phaseNode{rid, Allocated}), mustIndex(index, phaseNode{rid, Provided}))
	assert.Less(t, mustIndex(index, phaseNode{rid, Provided}), mustIndex(index, phaseNode{rid, Injected}))
	assert.Less(t, mustIndex(index, phaseNode{rid, Injected}), mustIndex(index, phaseNode{rid, Created}))
	assert.Less(t, mustIndex(index, phaseNode{rid, Created}), mustIndex(index, phaseNode{rid, Disposed}))
}

func TestTopologicalSort_OrdersBothDisposerEdges(t *testing.T) {
	c := New()

	engineR := NewResource[*engine](c.Global())
	widgetR := NewResource[*widget](c.Global())

	Declare(c, engineR).Provide(func() (*engine, error) { return &engine{}, nil })
	Declare(c, widgetR).
		Provide(func() (*widget, error) { return &widget{}, nil }).
		Dispose(func(*widget, *engine) error { return nil }, DepOf(engineR))

	g := buildDependencyGraph(c.(*containerImpl))
	sorted, _, ok := g.topologicalSort()
	require.True(t, ok)

	index := newPhaseNodeMap[int]()
	for i, n := range sorted {
		index.set(n, i)
	}

	engineRid, widgetRid := engineR.ID(), widgetR.ID()

	// widget's disposer resolves engine at Created, so engine must reach
	// Created before widget can be disposed.
	assert.Less(t, mustIndex(index, phaseNode{engineRid, Created}), mustIndex(index, phaseNode{widgetRid, Disposed}))

	// widget's disposer still needs engine around, so engine is disposed
	// only after widget is.
	assert.Less(t, mustIndex(index, phaseNode{widgetRid, Disposed}), mustIndex(index, phaseNode{engineRid, Disposed}))
}

func TestCheckConsistency_ReportsMutualDisposerCycle(t *testing.T) {
	c := New()

	engineR := NewResource[*engine](c.Global())
	widgetR := NewResource[*widget](c.Global())

	Declare(c, engineR).
		Provide(func() (*engine, error) { return &engine{}, nil }).
		Dispose(func(*engine, *widget) error { return nil }, DepOf(widgetR))

	Declare(c, widgetR).
		Provide(func() (*widget, error) { return &widget{}, nil }).
		Dispose(func(*widget, *engine) error { return nil }, DepOf(engineR))

	var sink strings.Builder
	ok := c.CheckConsistency(&sink)

	assert.False(t, ok)
	assert.Contains(t, sink.String(), "cyclical dependency")
}
