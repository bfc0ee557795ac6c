package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_FiltersByInstanceTypeAndQualifiers(t *testing.T) {
	c := New()

	widgetR := NewResource[*widget](c.Global())
	redWidgetR := NewResource[*widget](c.Global(), NewQualifier[colorTag]("red"))
	engineR := NewResource[*engine](c.Global())

	Declare(c, widgetR).Provide(func() (*widget, error) { return &widget{}, nil })
	Declare(c, redWidgetR).Provide(func() (*widget, error) { return &widget{}, nil })
	Declare(c, engineR).Provide(func() (*engine, error) { return &engine{}, nil })

	widgets := Query(c, ResourceQuery{InstanceType: widgetR.ID().key.instance.String()})
	assert.Len(t, widgets, 2)

	red := Query(c, ResourceQuery{
		InstanceType: widgetR.ID().key.instance.String(),
		Qualifiers:   []Qualifier{NewQualifier[colorTag]("red")},
	})
	require.Len(t, red, 1)
	assert.True(t, red[0].Equal(redWidgetR.ID()))
}

func TestFindByScope_ReturnsOnlyThatScopesResources(t *testing.T) {
	c := New()

	globalR := NewResource[*widget](c.Global())
	guardedR := NewResource[*widget](Guarded[requestTag](c))

	Declare(c, globalR).Provide(func() (*widget, error) { return &widget{}, nil })
	Declare(c, guardedR).Provide(func() (*widget, error) { return &widget{}, nil })

	matches := FindByScope(c, "global")
	require.Len(t, matches, 1)
	assert.True(t, matches[0].Equal(globalR.ID()))
}

func TestQueryCount_MatchesQueryLength(t *testing.T) {
	c := New()
	r := NewResource[*widget](c.Global())
	Declare(c, r).Provide(func() (*widget, error) { return &widget{}, nil })

	assert.Equal(t, 1, QueryCount(c, ResourceQuery{}))
}
