package container

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareAll_DeclaresEveryResource(t *testing.T) {
	c := New()

	engineR := NewResource[*engine](c.Global())
	widgetR := NewResource[*widget](c.Global())

	err := DeclareAll(c,
		Declared(func(c Container) *Registration[*engine] {
			return Declare(c, engineR).Provide(func() (*engine, error) { return &engine{}, nil })
		}),
		Declared(func(c Container) *Registration[*widget] {
			return Declare(c, widgetR).Provide(func(*engine) (*widget, error) { return &widget{}, nil }, DepOf(engineR))
		}),
	)
	require.NoError(t, err)

	w, err := Get(c, widgetR)
	require.NoError(t, err)
	assert.NotNil(t, w)
}

func TestDeclareAll_StopsAtFirstError(t *testing.T) {
	c := New()

	boom := errors.New("boom")
	calls := 0

	err := DeclareAll(c,
		func(c Container) error { calls++; return boom },
		func(c Container) error { calls++; return nil },
	)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}
