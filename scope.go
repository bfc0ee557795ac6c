package container

import (
	"sync"

	"github.com/vsamtuc/container/internal/telemetry"
)

// Scope owns the Context(s) that back resources bound to it and decides
// whether a resource may be resolved right now. Every concrete Scope
// participates in ResourceId identity through Key.
type Scope interface {
	// Key identifies the scope for the purpose of ResourceId identity;
	// two resources of the same instance type bound to scopes with equal
	// keys are the same resource (spec.md §4.4).
	Key() string

	// GetAsset returns the asset for rid, allocating one if this is the
	// first request for rid in the scope's currently active context. It
	// fails with an InactiveScope error if the scope has no active
	// context to allocate into (GuardedScope/LocalScope before Activate).
	GetAsset(rid ResourceId) (asset *Asset, isNew bool, err error)

	// DropAsset removes rid's entry without disposing it, used to unwind
	// failed provisioning.
	DropAsset(rid ResourceId)
}

// GlobalScope is the container-wide scope: a single Context that lives for
// as long as the Container does and is cleared only by an explicit
// Container.Clear call.
type GlobalScope struct {
	ctx *Context
}

func newGlobalScope() *GlobalScope {
	return &GlobalScope{ctx: newContext()}
}

// Key implements Scope.
func (*GlobalScope) Key() string { return "global" }

// GetAsset implements Scope.
func (g *GlobalScope) GetAsset(rid ResourceId) (*Asset, bool, error) {
	asset, isNew := g.ctx.GetOrAllocate(rid)

	return asset, isNew, nil
}

// DropAsset implements Scope.
func (g *GlobalScope) DropAsset(rid ResourceId) { g.ctx.Drop(rid) }

// ActivationGuard represents one activation of a GuardedScope or
// LocalScope; Close ends that activation. Close is idempotent.
type ActivationGuard struct {
	once  sync.Once
	close func()
}

// Close ends the activation this guard represents.
func (g *ActivationGuard) Close() {
	g.once.Do(g.close)
}

// guardedState is the shared, per-tag state behind every GuardedScope[Tag]
// handle obtained from the same Container: a turnstile counter and the
// single Context shared by every nested activation while the turnstile is
// above zero (spec.md §5's GuardedScope semantics).
type guardedState struct {
	mu        sync.Mutex
	turnstile int
	ctx       *Context
	container Container
	log       telemetry.Sink
}

func (s *guardedState) getAsset(rid ResourceId) (*Asset, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.turnstile == 0 {
		return nil, false, ErrInactiveScope(rid)
	}

	asset, isNew := s.ctx.GetOrAllocate(rid)

	return asset, isNew, nil
}

func (s *guardedState) dropAsset(rid ResourceId) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		s.ctx.Drop(rid)
	}
}

func (s *guardedState) activate() *ActivationGuard {
	s.mu.Lock()
	s.turnstile++

	if s.turnstile == 1 {
		s.ctx = newContext()
	}
	s.mu.Unlock()

	return &ActivationGuard{close: func() {
		s.mu.Lock()
		s.turnstile--

		var toClear *Context

		if s.turnstile == 0 {
			toClear = s.ctx
			s.ctx = nil
		}

		container, log := s.container, s.log
		s.mu.Unlock()

		if toClear != nil {
			_ = toClear.Clear(container, log)
		}
	}}
}

// forceClear clears the shared context regardless of the turnstile count,
// used by Container.Clear.
func (s *guardedState) forceClear(container Container, log telemetry.Sink) {
	s.mu.Lock()
	ctx := s.ctx
	s.ctx = nil
	s.turnstile = 0
	s.mu.Unlock()

	if ctx != nil {
		_ = ctx.Clear(container, log)
	}
}

// GuardedScope is the turnstile-counted scope of spec.md §5: nested
// activations of the same tag share one context, which is created on the
// first activation and disposed when the last matching activation closes.
type GuardedScope[Tag any] struct {
	state *guardedState
}

// Guarded returns the container-wide GuardedScope handle for Tag,
// creating its shared state on first use.
func Guarded[Tag any](c Container) *GuardedScope[Tag] {
	impl, ok := c.(*containerImpl)
	if !ok {
		panic("container: Guarded requires a Container created by New")
	}

	name := tagOf[Tag]().String()

	impl.mu.Lock()
	defer impl.mu.Unlock()

	st, ok := impl.guarded[name]
	if !ok {
		st = &guardedState{container: impl, log: impl.log}
		impl.guarded[name] = st
	}

	return &GuardedScope[Tag]{state: st}
}

// Key implements Scope.
func (*GuardedScope[Tag]) Key() string { return "guarded:" + tagOf[Tag]().String() }

// GetAsset implements Scope.
func (g *GuardedScope[Tag]) GetAsset(rid ResourceId) (*Asset, bool, error) {
	return g.state.getAsset(rid)
}

// DropAsset implements Scope.
func (g *GuardedScope[Tag]) DropAsset(rid ResourceId) { g.state.dropAsset(rid) }

// Activate begins one activation of the scope, creating the shared
// context if none is currently active. The returned guard must be closed
// exactly once, typically via defer.
func (g *GuardedScope[Tag]) Activate() *ActivationGuard { return g.state.activate() }

// localState is the shared, per-tag state behind every LocalScope[Tag]
// handle: a stack of contexts, one per nested activation, each with its
// own independent instances (spec.md §5's LocalScope semantics).
type localState struct {
	mu        sync.Mutex
	stack     []*Context
	container Container
	log       telemetry.Sink
}

func (s *localState) getAsset(rid ResourceId) (*Asset, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.stack) == 0 {
		return nil, false, ErrInactiveScope(rid)
	}

	top := s.stack[len(s.stack)-1]
	asset, isNew := top.GetOrAllocate(rid)

	return asset, isNew, nil
}

func (s *localState) dropAsset(rid ResourceId) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.stack) == 0 {
		return
	}

	s.stack[len(s.stack)-1].Drop(rid)
}

func (s *localState) activate() *ActivationGuard {
	s.mu.Lock()
	ctx := newContext()
	s.stack = append(s.stack, ctx)
	s.mu.Unlock()

	return &ActivationGuard{close: func() {
		s.mu.Lock()

		var popped *Context

		if n := len(s.stack); n > 0 {
			popped = s.stack[n-1]
			s.stack = s.stack[:n-1]
		}

		container, log := s.container, s.log
		s.mu.Unlock()

		if popped != nil {
			_ = popped.Clear(container, log)
		}
	}}
}

// forceClearAll clears every context on the stack, deepest first, used by
// Container.Clear.
func (s *localState) forceClearAll(container Container, log telemetry.Sink) {
	s.mu.Lock()
	stack := s.stack
	s.stack = nil
	s.mu.Unlock()

	for i := len(stack) - 1; i >= 0; i-- {
		_ = stack[i].Clear(container, log)
	}
}

// LocalScope is the stack-of-contexts scope of spec.md §5: each activation
// pushes a fresh context, so nested activations of the same tag never
// share instances, unlike GuardedScope.
type LocalScope[Tag any] struct {
	state *localState
}

// Local returns the container-wide LocalScope handle for Tag, creating
// its shared state on first use.
func Local[Tag any](c Container) *LocalScope[Tag] {
	impl, ok := c.(*containerImpl)
	if !ok {
		panic("container: Local requires a Container created by New")
	}

	name := tagOf[Tag]().String()

	impl.mu.Lock()
	defer impl.mu.Unlock()

	st, ok := impl.local[name]
	if !ok {
		st = &localState{container: impl, log: impl.log}
		impl.local[name] = st
	}

	return &LocalScope[Tag]{state: st}
}

// Key implements Scope.
func (*LocalScope[Tag]) Key() string { return "local:" + tagOf[Tag]().String() }

// GetAsset implements Scope.
func (l *LocalScope[Tag]) GetAsset(rid ResourceId) (*Asset, bool, error) {
	return l.state.getAsset(rid)
}

// DropAsset implements Scope.
func (l *LocalScope[Tag]) DropAsset(rid ResourceId) { l.state.dropAsset(rid) }

// Activate pushes a fresh context onto the stack. The returned guard pops
// and disposes it; it must be closed exactly once.
func (l *LocalScope[Tag]) Activate() *ActivationGuard { return l.state.activate() }

// NewScope never persists instances: every GetAsset call for a rid not
// currently mid-provisioning allocates a fresh Asset, and the container
// forgets it again as soon as it reaches the Created phase. The
// mid-provisioning bookkeeping exists solely so that a provider which
// recursively requests its own resource is still caught by the engine's
// Allocated-phase cycle check (spec.md §9).
type NewScope struct {
	mu       sync.Mutex
	inflight *resourceMap[*Asset]
}

// NewAlwaysScope creates a NewScope. A single instance may back any
// number of resource declarations; it holds no state beyond the
// currently in-flight allocations.
func NewAlwaysScope() *NewScope {
	return &NewScope{inflight: newResourceMap[*Asset]()}
}

// Key implements Scope.
func (*NewScope) Key() string { return "new" }

// GetAsset implements Scope.
func (n *NewScope) GetAsset(rid ResourceId) (*Asset, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if a, ok := n.inflight.Get(rid); ok {
		return a, false, nil
	}

	a := newAsset()
	n.inflight.Set(rid, a)

	return a, true, nil
}

// DropAsset implements Scope. It is also how the engine forgets a
// completed asset so the next unrelated Get call for the same rid starts
// fresh.
func (n *NewScope) DropAsset(rid ResourceId) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inflight.Delete(rid)
}
