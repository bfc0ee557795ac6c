package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type colorTag struct{}

type sizeTag struct{}

func TestQualifier_EqualAndSimilar(t *testing.T) {
	red1 := NewQualifier[colorTag]("red")
	red2 := NewQualifier[colorTag]("red")
	blue := NewQualifier[colorTag]("blue")
	size := NewQualifier[sizeTag]("red")

	assert.True(t, red1.Equal(red2))
	assert.True(t, red1.Similar(blue))
	assert.False(t, red1.Equal(blue))
	assert.False(t, red1.Similar(size))
}

func TestQualifier_AllMatchesEverything(t *testing.T) {
	red := NewQualifier[colorTag]("red")

	assert.True(t, All.Matches(red))
	assert.True(t, red.Matches(All))
}

func TestQualifier_DefaultAndNullAreDistinctZeroPayloadQualifiers(t *testing.T) {
	assert.False(t, Default.Equal(Null))
	assert.True(t, Default.Similar(Default))
}

func TestQualifierSet_UpdateReplacesSameTag(t *testing.T) {
	s := NewQualifierSet(NewQualifier[colorTag]("red"))
	s = s.Update(NewQualifier[colorTag]("blue"))

	assert.Equal(t, 1, s.Size())
	assert.True(t, s.Contains(NewQualifier[colorTag]("blue")))
	assert.False(t, s.Contains(NewQualifier[colorTag]("red")))
}

func TestQualifierSet_MatchesRequiresMutualCoverage(t *testing.T) {
	want := NewQualifierSet(NewQualifier[colorTag]("red"))
	have := NewQualifierSet(NewQualifier[colorTag]("red"), NewQualifier[sizeTag]("large"))

	assert.False(t, want.Matches(have))
	assert.True(t, want.Matches(want))
}

func TestQualifierSet_EmptyMatchesOnlyEmpty(t *testing.T) {
	empty := NewQualifierSet()
	nonEmpty := NewQualifierSet(NewQualifier[colorTag]("red"))

	assert.True(t, empty.Matches(empty))
	assert.False(t, empty.Matches(nonEmpty))
}

func TestResourceId_ScopeParticipatesInIdentity(t *testing.T) {
	c := New()

	global := NewResource[*widget](c.Global())
	guarded := NewResource[*widget](Guarded[requestTag](c))

	assert.False(t, global.ID().Equal(guarded.ID()))
}

func TestResourceId_QualifiersDistinguishSameType(t *testing.T) {
	c := New()

	plain := NewResource[*widget](c.Global())
	red := NewResource[*widget](c.Global(), NewQualifier[colorTag]("red"))

	assert.False(t, plain.ID().Equal(red.ID()))
}
