package container

import (
	"fmt"
	"sync"
)

// Lazy wraps a resource that is resolved on first access rather than
// eagerly, useful for a client-side dependency a caller only sometimes
// needs. Resolution happens at most once; later calls return the cached
// outcome, including a cached error.
type Lazy[T any] struct {
	c    Container
	r    Resource[T]
	once sync.Once

	value    T
	err      error
	resolved bool
}

// NewLazy wraps r for on-demand resolution against c.
func NewLazy[T any](c Container, r Resource[T]) *Lazy[T] {
	return &Lazy[T]{c: c, r: r}
}

// Get resolves r, caching the outcome.
func (l *Lazy[T]) Get() (T, error) {
	l.once.Do(func() {
		l.value, l.err = Get(l.c, l.r)
		l.resolved = true
	})

	return l.value, l.err
}

// MustGet resolves r, panicking on error.
func (l *Lazy[T]) MustGet() T {
	value, err := l.Get()
	if err != nil {
		panic(fmt.Sprintf("container: lazy %s: %v", l.r.ID(), err))
	}

	return value
}

// IsResolved reports whether Get has been called.
func (l *Lazy[T]) IsResolved() bool { return l.resolved }

// ID returns the wrapped resource's identity.
func (l *Lazy[T]) ID() ResourceId { return l.r.ID() }

// OptionalLazy is a Lazy that resolves to (zero, false) instead of an
// error when the wrapped resource was never declared.
type OptionalLazy[T any] struct {
	c    Container
	r    Resource[T]
	once sync.Once

	value    T
	err      error
	found    bool
	resolved bool
}

// NewOptionalLazy wraps r for on-demand, presence-tolerant resolution
// against c.
func NewOptionalLazy[T any](c Container, r Resource[T]) *OptionalLazy[T] {
	return &OptionalLazy[T]{c: c, r: r}
}

// Get resolves r, caching the outcome. found is false, with no error, if
// r was never declared in c; any other failure is still returned as err.
func (l *OptionalLazy[T]) Get() (value T, found bool, err error) {
	l.once.Do(func() {
		if l.c.GetDeclared(l.r.ID()) == nil {
			l.resolved = true

			return
		}

		l.value, l.err = Get(l.c, l.r)
		l.found = l.err == nil
		l.resolved = true
	})

	return l.value, l.found, l.err
}

// IsResolved reports whether Get has been called.
func (l *OptionalLazy[T]) IsResolved() bool { return l.resolved }

// ID returns the wrapped resource's identity.
func (l *OptionalLazy[T]) ID() ResourceId { return l.r.ID() }

// Provider wraps a resource that produces a fresh instance on every call,
// typically one declared with NewAlwaysScope. It performs no caching of
// its own — repeated calls just repeat resolution.
type Provider[T any] struct {
	c Container
	r Resource[T]
}

// NewProvider wraps r for repeated on-demand resolution against c.
func NewProvider[T any](c Container, r Resource[T]) *Provider[T] {
	return &Provider[T]{c: c, r: r}
}

// Provide resolves r once, returning whatever the resource's Scope hands
// back — a fresh instance for a NewScope resource, the shared instance
// for any other.
func (p *Provider[T]) Provide() (T, error) {
	return Get(p.c, p.r)
}

// MustProvide resolves r, panicking on error.
func (p *Provider[T]) MustProvide() T {
	value, err := p.Provide()
	if err != nil {
		panic(fmt.Sprintf("container: provider %s: %v", p.r.ID(), err))
	}

	return value
}

// ID returns the wrapped resource's identity.
func (p *Provider[T]) ID() ResourceId { return p.r.ID() }
