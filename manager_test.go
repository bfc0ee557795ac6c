package container

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistration_InjectorsRunInRegistrationOrder(t *testing.T) {
	c := New()
	r := NewResource[*widget](c.Global())

	var order []int

	Declare(c, r).
		Provide(func() (*widget, error) { return &widget{}, nil }).
		Inject(func(Container, *widget) error { order = append(order, 1); return nil }).
		Inject(func(Container, *widget) error { order = append(order, 2); return nil }).
		Inject(func(Container, *widget) error { order = append(order, 3); return nil })

	_, err := Get(c, r)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestRegistration_InitializerRunsAfterEveryInjector(t *testing.T) {
	c := New()
	r := NewResource[*widget](c.Global())

	var order []string

	Declare(c, r).
		Provide(func() (*widget, error) { return &widget{}, nil }).
		Inject(func(Container, *widget) error { order = append(order, "inject"); return nil }).
		Initialize(func(Container, *widget) error { order = append(order, "init"); return nil })

	_, err := Get(c, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"inject", "init"}, order)
}

func TestRegistration_ProviderErrorWrapsAsInstantiation(t *testing.T) {
	c := New()
	r := NewResource[*widget](c.Global())

	boom := errors.New("boom")
	Declare(c, r).Provide(func() (*widget, error) { return nil, boom })

	_, err := Get(c, r)
	require.Error(t, err)

	var inst *Instantiation
	require.ErrorAs(t, err, &inst)
	assert.ErrorIs(t, err, boom)
}

func TestRegistration_MissingProviderIsConfigurationError(t *testing.T) {
	c := New()
	r := NewResource[*widget](c.Global())

	Declare(c, r)

	_, err := Get(c, r)
	require.Error(t, err)

	var inst *Instantiation
	require.ErrorAs(t, err, &inst)

	var cfg *Configuration
	assert.ErrorAs(t, err, &cfg)
}

func TestCallFactory_RejectsWrongArity(t *testing.T) {
	_, err := callFactory(func(int) (*widget, error) { return nil, nil }, nil)
	require.Error(t, err)
}

