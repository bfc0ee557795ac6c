package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requestTag struct{}

func TestGlobalScope_SharesOneInstance(t *testing.T) {
	c := New()
	r := NewResource[*widget](c.Global())

	calls := 0
	Declare(c, r).Provide(func() (*widget, error) {
		calls++

		return &widget{id: calls}, nil
	})

	first, err := Get(c, r)
	require.NoError(t, err)
	second, err := Get(c, r)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestGuardedScope_SharesInstanceAcrossNestedActivations(t *testing.T) {
	c := New()
	scope := Guarded[requestTag](c)
	r := NewResource[*widget](scope)

	calls := 0
	Declare(c, r).Provide(func() (*widget, error) {
		calls++

		return &widget{id: calls}, nil
	})

	outer := scope.Activate()
	defer outer.Close()

	first, err := Get(c, r)
	require.NoError(t, err)

	inner := scope.Activate()
	second, err := Get(c, r)
	require.NoError(t, err)
	inner.Close()

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestGuardedScope_InactiveBeforeActivation(t *testing.T) {
	c := New()
	scope := Guarded[requestTag](c)
	r := NewResource[*widget](scope)

	Declare(c, r).Provide(func() (*widget, error) { return &widget{}, nil })

	_, err := Get(c, r)
	require.Error(t, err)

	var inactive *InactiveScope
	assert.ErrorAs(t, err, &inactive)
}

func TestGuardedScope_ClearsOnLastActivationClose(t *testing.T) {
	c := New()
	scope := Guarded[requestTag](c)
	r := NewResource[*widget](scope)

	disposed := false
	Declare(c, r).
		Provide(func() (*widget, error) { return &widget{}, nil }).
		Dispose(func(*widget) error { disposed = true; return nil })

	guard := scope.Activate()
	_, err := Get(c, r)
	require.NoError(t, err)

	guard.Close()
	assert.True(t, disposed)
}

func TestLocalScope_NestedActivationsGetDistinctInstances(t *testing.T) {
	c := New()
	scope := Local[requestTag](c)
	r := NewResource[*widget](scope)

	calls := 0
	Declare(c, r).Provide(func() (*widget, error) {
		calls++

		return &widget{id: calls}, nil
	})

	outer := scope.Activate()
	outerVal, err := Get(c, r)
	require.NoError(t, err)

	inner := scope.Activate()
	innerVal, err := Get(c, r)
	require.NoError(t, err)

	assert.NotSame(t, outerVal, innerVal)
	assert.Equal(t, 2, calls)

	inner.Close()
	outer.Close()
}

func TestNewScope_ReturnsFreshInstanceEveryCall(t *testing.T) {
	c := New()
	scope := NewAlwaysScope()
	r := NewResource[*widget](scope)

	calls := 0
	Declare(c, r).Provide(func() (*widget, error) {
		calls++

		return &widget{id: calls}, nil
	})

	first, err := Get(c, r)
	require.NoError(t, err)
	second, err := Get(c, r)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, calls)
}

func TestNewScope_SelfRecursiveProviderIsCyclical(t *testing.T) {
	c := New()
	scope := NewAlwaysScope()
	r := NewResource[*widget](scope)

	reg := Declare(c, r)
	reg.Provide(func(self *widget) (*widget, error) {
		return &widget{}, nil
	}, DepOf(r))

	_, err := Get(c, r)
	require.Error(t, err)
	assert.True(t, IsCyclicalDependency(err))
}

func TestActivationGuard_CloseIsIdempotent(t *testing.T) {
	c := New()
	scope := Guarded[requestTag](c)

	guard := scope.Activate()
	assert.NotPanics(t, func() {
		guard.Close()
		guard.Close()
	})
}
