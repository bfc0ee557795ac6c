package container

import (
	"fmt"
	"reflect"
)

// Dep binds one dependency slot of a provider, injector, initializer or
// disposer callback to a concrete declared resource. It captures both the
// resource's identity (for the consistency graph) and a resolver closure
// that fetches its value from whatever Container ends up driving the
// call — this is what lets resolution keep working correctly no matter
// which Scope the dependency itself lives in, instead of trying to
// recover a Scope from a bare ResourceId.
//
// The phase a Dep resolves at is decided by where it is used, not by the
// Dep itself: Provide and Inject both resolve their deps at Provided,
// while Initialize and Dispose resolve their deps at Injected and Created
// respectively. The Provide/Inject difference is the whole cycle-breaking
// mechanism of spec.md §9: a dependency consumed by an injector only needs
// to reach an earlier phase than Created, so a request for it never has to
// wait on work still further up the same call stack.
type Dep struct {
	rid   ResourceId
	fetch func(c Container, target Phase) (any, error)
}

// DepOf binds a dependency slot to r. Use it to build the deps list
// passed to Registration.Provide, Inject, Initialize and Dispose.
func DepOf[D any](r Resource[D]) Dep {
	return Dep{
		rid: r.ID(),
		fetch: func(c Container, target Phase) (any, error) {
			value, err := c.get(r.ID(), r.scope, target)
			if err != nil {
				return nil, err
			}

			typed, ok := value.(D)
			if !ok {
				return nil, ErrTypeMismatch(r.ID(), value)
			}

			return typed, nil
		},
	}
}

// ID returns the ResourceId this dependency slot is bound to.
func (d Dep) ID() ResourceId { return d.rid }

func resolveDeps(c Container, deps []Dep, target Phase) ([]any, error) {
	args := make([]any, len(deps))

	for i, d := range deps {
		v, err := d.fetch(c, target)
		if err != nil {
			return nil, err
		}

		args[i] = v
	}

	return args, nil
}

func depIDs(deps []Dep) []ResourceId {
	ids := make([]ResourceId, len(deps))
	for i, d := range deps {
		ids[i] = d.rid
	}

	return ids
}

// callFactory invokes fn — a client-supplied factory of any arity —
// with args, and expects a (T) or (T, error) return. It never inspects
// fn's argument types to decide what to pass; the caller is responsible
// for args matching fn's parameters positionally, exactly as with the
// dependency lists a client declares on Provide/Inject/Initialize.
func callFactory(fn any, args []any) (any, error) {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()

	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("container: factory must be a function, got %T", fn)
	}

	if fnType.NumIn() != len(args) {
		return nil, fmt.Errorf("container: factory expects %d parameters, got %d dependencies", fnType.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))

	for i, a := range args {
		if a == nil {
			in[i] = reflect.Zero(fnType.In(i))
		} else {
			in[i] = reflect.ValueOf(a)
		}
	}

	out := fnVal.Call(in)

	switch fnType.NumOut() {
	case 1:
		return out[0].Interface(), nil
	case 2:
		if !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}

		return out[0].Interface(), nil
	default:
		return nil, fmt.Errorf("container: factory must return (T) or (T, error), got %d return values", fnType.NumOut())
	}
}

// callVoid invokes fn with args and expects a () or (error) return; it is
// used for injectors and initializers, which mutate their receiver rather
// than returning a value.
func callVoid(fn any, args []any) error {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()

	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("container: callback must be a function, got %T", fn)
	}

	if fnType.NumIn() != len(args) {
		return fmt.Errorf("container: callback expects %d parameters, got %d arguments", fnType.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))

	for i, a := range args {
		if a == nil {
			in[i] = reflect.Zero(fnType.In(i))
		} else {
			in[i] = reflect.ValueOf(a)
		}
	}

	out := fnVal.Call(in)

	switch fnType.NumOut() {
	case 0:
		return nil
	case 1:
		if out[0].IsNil() {
			return nil
		}

		return out[0].Interface().(error)
	default:
		return fmt.Errorf("container: callback must return () or (error), got %d return values", fnType.NumOut())
	}
}

// ResourceManager is the type-erased half of a resource's declaration:
// the instantiation engine drives every resource through this interface
// regardless of its instance type, which is otherwise only known inside
// the generic resourceManager[T] that implements it.
type ResourceManager interface {
	HasInjectors() bool
	HasInitializer() bool
	HasDisposer() bool

	// ProviderDeps, InjectorDeps and InitializerDeps report the
	// dependencies declared on each of the three callbacks separately, so
	// the consistency graph can give each kind its own edge shape per
	// spec.md §4.6: a provider dependency must reach Provided, an injector
	// dependency must reach Provided, and an initializer dependency must
	// reach Injected — but the *source* phase-node differs per kind too
	// (Provided, Injected and Created respectively), which is lost if the
	// three lists are merged.
	ProviderDeps() []ResourceId
	InjectorDeps() []ResourceId
	InitializerDeps() []ResourceId

	// DisposerDeps lists the dependencies this manager's disposer
	// declared, for the consistency graph's disposer edges (spec.md §4.6:
	// a disposer requires its dependencies at Created, and each dependency
	// must be disposed after this resource is).
	DisposerDeps() []ResourceId

	Provide(c Container) (any, error)
	RunInjectors(c Container, asset *Asset) error
	RunInitializer(c Container, asset *Asset) error
	Dispose(c Container, asset *Asset) error
}

type injectorEntry[T any] struct {
	deps []Dep
	fn   func(c Container, instance T) error
}

// resourceManager is the generic ResourceManager implementation backing
// every Registration[T]. Client code never constructs one directly; it is
// created by Declare and mutated through the chainable Registration API.
type resourceManager[T any] struct {
	rid ResourceId

	hasProvider  bool
	providerDeps []Dep
	providerFn   func(c Container) (T, error)

	injectors []injectorEntry[T]

	initializerDeps []Dep
	initializerFn   func(c Container, instance T) error

	disposerDeps []Dep
	disposerFn   func(c Container, instance T) error
}

func (m *resourceManager[T]) HasInjectors() bool   { return len(m.injectors) > 0 }
func (m *resourceManager[T]) HasInitializer() bool { return m.initializerFn != nil }
func (m *resourceManager[T]) HasDisposer() bool    { return m.disposerFn != nil }

func (m *resourceManager[T]) ProviderDeps() []ResourceId { return depIDs(m.providerDeps) }

func (m *resourceManager[T]) InjectorDeps() []ResourceId {
	ids := make([]ResourceId, 0, len(m.injectors))
	for _, inj := range m.injectors {
		ids = append(ids, depIDs(inj.deps)...)
	}

	return ids
}

func (m *resourceManager[T]) InitializerDeps() []ResourceId { return depIDs(m.initializerDeps) }

func (m *resourceManager[T]) DisposerDeps() []ResourceId { return depIDs(m.disposerDeps) }

func (m *resourceManager[T]) Provide(c Container) (any, error) {
	if m.providerFn == nil {
		return nil, ErrConfiguration(m.rid, "no provider registered")
	}

	return m.providerFn(c)
}

func (m *resourceManager[T]) RunInjectors(c Container, asset *Asset) error {
	instance, ok := asset.Value().(T)
	if !ok {
		return ErrTypeMismatch(m.rid, asset.Value())
	}

	for _, inj := range m.injectors {
		if err := inj.fn(c, instance); err != nil {
			return err
		}
	}

	return nil
}

func (m *resourceManager[T]) RunInitializer(c Container, asset *Asset) error {
	if m.initializerFn == nil {
		return nil
	}

	instance, ok := asset.Value().(T)
	if !ok {
		return ErrTypeMismatch(m.rid, asset.Value())
	}

	return m.initializerFn(c, instance)
}

func (m *resourceManager[T]) Dispose(c Container, asset *Asset) error {
	if m.disposerFn == nil {
		return nil
	}

	instance, ok := asset.Value().(T)
	if !ok {
		return ErrTypeMismatch(m.rid, asset.Value())
	}

	return m.disposerFn(c, instance)
}

// Registration is the chainable declaration API returned by Declare. Each
// method registers one of the four client callbacks a resource may have;
// all are optional except Provide.
type Registration[T any] struct {
	c   Container
	rid ResourceId
	m   *resourceManager[T]
}

// Declare declares the resource identified by r, returning its
// Registration. Calling Declare again for the same ResourceId returns a
// Registration wrapping the same manager, so registration can be split
// across multiple call sites.
func Declare[T any](c Container, r Resource[T]) *Registration[T] {
	rid := r.ID()

	manager := c.declare(rid, func() ResourceManager {
		return &resourceManager[T]{rid: rid}
	})

	m, ok := manager.(*resourceManager[T])
	if !ok {
		panic(fmt.Sprintf("container: %s already declared with a different instance type", rid))
	}

	return &Registration[T]{c: c, rid: rid, m: m}
}

func (reg *Registration[T]) strictRedeclaration() bool {
	impl, ok := reg.c.(*containerImpl)

	return ok && impl.opts.strictProviderRedeclaration
}

// Provide registers fn as the resource's provider: a function taking one
// argument per element of deps, in order, and returning (T) or (T,
// error). Provide is the only mandatory callback (spec.md §4.2).
func (reg *Registration[T]) Provide(fn any, deps ...Dep) *Registration[T] {
	if reg.m.hasProvider && reg.strictRedeclaration() {
		panic(ErrConfiguration(reg.rid, "provider already registered").Error())
	}

	reg.m.hasProvider = true
	reg.m.providerDeps = deps
	reg.m.providerFn = func(c Container) (T, error) {
		var zero T

		args, err := resolveDeps(c, deps, Provided)
		if err != nil {
			return zero, err
		}

		result, err := callFactory(fn, args)
		if err != nil {
			return zero, err
		}

		typed, ok := result.(T)
		if !ok {
			return zero, ErrTypeMismatch(reg.rid, result)
		}

		return typed, nil
	}

	return reg
}

// Inject registers fn as one of the resource's injectors: a function
// taking the Container, the resource's own instance, and one argument per
// element of deps, returning () or (error). Injectors run in registration
// order after the provider, as deferred work scheduled once the resource
// is Provided, and resolve their deps at Provided; a dependency that is
// still Allocated fails as a cyclical dependency.
func (reg *Registration[T]) Inject(fn any, deps ...Dep) *Registration[T] {
	reg.m.injectors = append(reg.m.injectors, injectorEntry[T]{
		deps: deps,
		fn: func(c Container, instance T) error {
			args, err := resolveDeps(c, deps, Provided)
			if err != nil {
				return err
			}

			return callVoid(fn, append([]any{c, instance}, args...))
		},
	})

	return reg
}

// Initialize registers fn as the resource's initializer: a function taking
// the Container, the resource's own instance, and one argument per element
// of deps, returning () or (error). It runs once every injector has run.
func (reg *Registration[T]) Initialize(fn any, deps ...Dep) *Registration[T] {
	reg.m.initializerDeps = deps
	reg.m.initializerFn = func(c Container, instance T) error {
		args, err := resolveDeps(c, deps, Injected)
		if err != nil {
			return err
		}

		return callVoid(fn, append([]any{c, instance}, args...))
	}

	return reg
}

// Dispose registers fn as the resource's disposer: a function taking the
// resource's own instance followed by one argument per element of deps,
// returning () or (error). It runs once, when the owning Context is
// cleared, with deps resolved at Created — the dependency must still be
// around to be usefully passed to the disposer, but its own disposer may
// already have run, since resolution here fetches whatever value the
// dependency's Context is still holding rather than re-provisioning it.
func (reg *Registration[T]) Dispose(fn any, deps ...Dep) *Registration[T] {
	reg.m.disposerDeps = deps
	reg.m.disposerFn = func(c Container, instance T) error {
		args, err := resolveDeps(c, deps, Created)
		if err != nil {
			return err
		}

		return callVoid(fn, append([]any{instance}, args...))
	}

	return reg
}

// ID returns the ResourceId this registration declares.
func (reg *Registration[T]) ID() ResourceId { return reg.rid }
