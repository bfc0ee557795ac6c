// Package container implements a Contexts-and-Dependency-Injection (CDI)
// container: a runtime registry that manages the lifecycle of typed,
// qualified resources and resolves their dependency graph on demand.
//
// Client code declares resources with Declare, registers a provider,
// injectors, an initializer and a disposer on the returned Registration,
// and later calls Get to obtain a fully created instance. The container
// drives each resource through five ordered phases — Allocated, Provided,
// Injected, Created, Disposed — using deferred work queues that let
// provider-time and setter-time dependencies interleave, which is what
// allows resources that depend on each other through injectors (rather
// than through providers) to be instantiated at all.
package container

import (
	"fmt"
	"io"
	"sync"

	"github.com/vsamtuc/container/internal/telemetry"
)

// Container is the registry of ResourceManagers and the owner of the
// instantiation engine and consistency checker.
type Container interface {
	// GetDeclared returns the manager declared for rid, or nil if none
	// exists. It never creates a manager.
	GetDeclared(rid ResourceId) ResourceManager

	// Clear destroys every declared manager and clears every scope's
	// context, disposing every asset along the way.
	Clear()

	// CheckConsistency runs the offline phase-graph check described in
	// spec.md §4.6 and writes a human-readable report to sink. It returns
	// true iff no cycle and no undeclared dependency was found.
	CheckConsistency(sink io.Writer) bool

	// Use registers middleware invoked around every outermost Get call.
	Use(mw Middleware)

	// Global returns the container's single process-wide global scope.
	Global() *GlobalScope

	// Services lists every declared ResourceId.
	Services() []ResourceId

	// get is the type-erased instantiation entry point; Get[T] wraps it.
	get(rid ResourceId, scope Scope, target Phase) (any, error)

	// declare returns the manager for rid, creating it via newManager if
	// none exists yet.
	declare(rid ResourceId, newManager func() ResourceManager) ResourceManager
}

// containerImpl is the concrete Container.
type containerImpl struct {
	mu       sync.RWMutex
	managers *resourceMap[ResourceManager]
	global   *GlobalScope
	guarded  map[string]*guardedState
	local    map[string]*localState
	mw       *middlewareChain
	log      telemetry.Sink
	opts     containerOptions

	// engine state; single-threaded per spec.md §5, so no lock guards
	// these queues.
	injectQueue []deferredWork
	createQueue []deferredWork
}

type containerOptions struct {
	strictProviderRedeclaration bool
}

// Option configures a Container built with New.
type Option func(*containerOptions, *containerImpl)

// WithLogger installs a telemetry sink used for engine, checker and
// disposal diagnostics. The default is a no-op sink.
func WithLogger(sink telemetry.Sink) Option {
	return func(_ *containerOptions, c *containerImpl) {
		if sink != nil {
			c.log = sink
		}
	}
}

// WithStrictProviderRedeclaration makes a second call to Provide on the
// same Registration panic with a Configuration error's message instead of
// silently overwriting the first provider. This resolves the open question in
// spec.md §9 in favor of the strict reading.
func WithStrictProviderRedeclaration() Option {
	return func(o *containerOptions, _ *containerImpl) {
		o.strictProviderRedeclaration = true
	}
}

// New creates an empty Container.
func New(opts ...Option) Container {
	c := &containerImpl{
		managers: newResourceMap[ResourceManager](),
		guarded:  make(map[string]*guardedState),
		local:    make(map[string]*localState),
		mw:       newMiddlewareChain(),
		log:      telemetry.NoOp(),
	}

	for _, opt := range opts {
		opt(&c.opts, c)
	}

	c.global = newGlobalScope()

	return c
}

func (c *containerImpl) Global() *GlobalScope { return c.global }

func (c *containerImpl) GetDeclared(rid ResourceId) ResourceManager {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, _ := c.managers.Get(rid)

	return m
}

func (c *containerImpl) Services() []ResourceId {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.managers.Keys()
}

func (c *containerImpl) declare(rid ResourceId, newManager func() ResourceManager) ResourceManager {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.managers.Get(rid); ok {
		return m
	}

	m := newManager()
	c.managers.Set(rid, m)

	return m
}

func (c *containerImpl) Use(mw Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mw.add(mw)
}

func (c *containerImpl) lookup(rid ResourceId) ResourceManager {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, _ := c.managers.Get(rid)

	return m
}

// Clear disposes every asset in every scope, then empties the registries.
// The registries stay live for the whole disposal pass — a disposer
// resolves its own deps at Created (spec.md §4.6), which means it calls
// back into c.get, which in turn needs c.managers to still list every
// declared manager — so the reset to a fresh, empty state happens only
// after every context has finished clearing.
func (c *containerImpl) Clear() {
	c.mu.Lock()
	guardedStates := c.guarded
	localStates := c.local
	global := c.global
	c.mu.Unlock()

	_ = global.ctx.Clear(c, c.log)

	for _, st := range guardedStates {
		st.forceClear(c, c.log)
	}

	for _, st := range localStates {
		st.forceClearAll(c, c.log)
	}

	c.mu.Lock()
	c.managers = newResourceMap[ResourceManager]()
	c.guarded = make(map[string]*guardedState)
	c.local = make(map[string]*localState)
	c.global = newGlobalScope()
	c.injectQueue = nil
	c.createQueue = nil
	c.mu.Unlock()
}

// Get resolves r's Created-phase instance from its declared scope. Unlike
// the recursive resolution the engine performs while satisfying a
// resource's own dependencies, a direct call to Get runs the container's
// middleware chain around the whole resolution.
func Get[T any](c Container, r Resource[T]) (T, error) {
	var zero T

	rid := r.ID()

	impl, ok := c.(*containerImpl)
	if !ok {
		panic("container: Get requires a Container created by New")
	}

	if err := impl.mw.beforeGet(rid); err != nil {
		impl.mw.afterGet(rid, nil, err)

		return zero, err
	}

	value, err := impl.get(rid, r.scope, Created)

	impl.mw.afterGet(rid, value, err)

	if err != nil {
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		return zero, ErrTypeMismatch(rid, value)
	}

	return typed, nil
}

// MustGet resolves r's instance, panicking on error. Use only where a
// resolution failure is a programmer error (e.g. during startup wiring).
func MustGet[T any](c Container, r Resource[T]) T {
	v, err := Get(c, r)
	if err != nil {
		panic(fmt.Sprintf("container: MustGet(%s): %v", r.ID(), err))
	}

	return v
}

// get is the type-erased instantiation engine described in spec.md §4.6.
// It has no middleware of its own: Get[T] wraps the outermost call with
// the container's middleware chain, while every recursive dependency
// resolution the engine performs while satisfying a provider, injector or
// initializer calls this method directly.
func (c *containerImpl) get(rid ResourceId, scope Scope, target Phase) (any, error) {
	asset, isNew, err := scope.GetAsset(rid)
	if err != nil {
		return nil, err
	}

	if isNew {
		if err := c.allocate(rid, scope, asset); err != nil {
			return nil, err
		}
	} else if asset.Phase() == Allocated {
		return nil, ErrInstantiation(rid, errCyclicalDependency)
	}

	if err := c.drain(rid, asset, target); err != nil {
		return nil, err
	}

	return asset.Value(), nil
}

// allocate runs the provider for a freshly allocated asset and schedules
// the remaining phase work (step 3 of the algorithm).
func (c *containerImpl) allocate(rid ResourceId, scope Scope, asset *Asset) error {
	manager := c.lookup(rid)
	if manager == nil {
		scope.DropAsset(rid)

		return ErrInstantiation(rid, errUndeclaredResource)
	}

	value, err := manager.Provide(c)
	if err != nil {
		scope.DropAsset(rid)

		return ErrInstantiation(rid, err)
	}

	asset.setValue(value)
	asset.setPhase(Provided)

	c.scheduleFollowOn(rid, scope, manager, asset)

	return nil
}

// scheduleFollowOn pushes the deferred inject/create work implied by an
// asset's current phase and the manager's registered callbacks.
func (c *containerImpl) scheduleFollowOn(rid ResourceId, scope Scope, manager ResourceManager, asset *Asset) {
	if asset.Phase() == Provided {
		if manager.HasInjectors() {
			c.injectQueue = append(c.injectQueue, deferredWork{rid: rid, scope: scope, manager: manager, asset: asset})

			return
		}

		asset.setPhase(Injected)
	}

	if asset.Phase() == Injected {
		if manager.HasInitializer() {
			c.createQueue = append(c.createQueue, deferredWork{rid: rid, scope: scope, manager: manager, asset: asset})

			return
		}

		asset.setPhase(Created)
		c.forgetIfTransient(scope, rid)
	}
}

type deferredWork struct {
	rid     ResourceId
	scope   Scope
	manager ResourceManager
	asset   *Asset
}

// drain runs deferred inject/create work, preferring create work, until
// asset reaches target or no progress can be made (step 5).
func (c *containerImpl) drain(rid ResourceId, asset *Asset, target Phase) error {
	for asset.Phase() < target {
		progressed, err := c.drainOne()
		if err != nil {
			return err
		}

		if !progressed {
			if asset.Phase() < target {
				return ErrInstantiation(rid, errCyclicalDependency)
			}

			break
		}
	}

	return nil
}

func (c *containerImpl) drainOne() (bool, error) {
	if len(c.createQueue) > 0 {
		work := c.createQueue[0]
		c.createQueue = c.createQueue[1:]

		if err := c.runCreate(work); err != nil {
			return false, err
		}

		return true, nil
	}

	if len(c.injectQueue) > 0 {
		work := c.injectQueue[0]
		c.injectQueue = c.injectQueue[1:]

		if err := c.runInject(work); err != nil {
			return false, err
		}

		return true, nil
	}

	return false, nil
}

func (c *containerImpl) runInject(work deferredWork) error {
	if err := work.manager.RunInjectors(c, work.asset); err != nil {
		return ErrInstantiation(work.rid, err)
	}

	work.asset.setPhase(Injected)
	c.log.Debug("container: injected", "resource", work.rid.String())

	if work.manager.HasInitializer() {
		c.createQueue = append(c.createQueue, work)
	} else {
		work.asset.setPhase(Created)
		c.forgetIfTransient(work.scope, work.rid)
	}

	return nil
}

func (c *containerImpl) runCreate(work deferredWork) error {
	if err := work.manager.RunInitializer(c, work.asset); err != nil {
		return ErrInstantiation(work.rid, err)
	}

	work.asset.setPhase(Created)
	c.log.Debug("container: created", "resource", work.rid.String())
	c.forgetIfTransient(work.scope, work.rid)

	return nil
}

// forgetIfTransient drops rid from a NewScope's bookkeeping once it has
// reached Created, so that the next unrelated Get call sees a fresh
// allocation instead of the one built for this request (spec.md §9's
// resolution of the NewScope/cyclic-request open question).
func (c *containerImpl) forgetIfTransient(scope Scope, rid ResourceId) {
	if ns, ok := scope.(*NewScope); ok {
		ns.DropAsset(rid)
	}
}

var (
	errCyclicalDependency = fmt.Errorf("cyclical dependency")
	errUndeclaredResource = fmt.Errorf("undeclared resource")
)
