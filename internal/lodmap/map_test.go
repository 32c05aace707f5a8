package lodmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Effective L always equals the numeric minimum of
// currently-requested Ls; empty means not present.
func TestEffectiveLIsMinOfRequests(t *testing.T) {
	m := New[string, int]()

	_, change := m.Insert("R", 1, 5)
	require.NotNil(t, change)
	assert.Nil(t, change.Loaded)
	require.NotNil(t, change.Desired)
	assert.Equal(t, LOD(5), *change.Desired)

	l, ok := m.Effective("R")
	require.True(t, ok)
	assert.Equal(t, LOD(5), l)

	_, change = m.Insert("R", 2, 2)
	require.NotNil(t, change)
	assert.Equal(t, LOD(5), *change.Loaded)
	assert.Equal(t, LOD(2), *change.Desired)

	// A third, coarser owner doesn't change the effective L.
	_, change = m.Insert("R", 3, 9)
	assert.Nil(t, change)
	l, _ = m.Effective("R")
	assert.Equal(t, LOD(2), l)

	_, change = m.Remove("R", 1)
	assert.Nil(t, change, "removing a non-minimum owner must not change effective L")

	_, change = m.Remove("R", 2)
	require.NotNil(t, change)
	require.NotNil(t, change.Desired)
	assert.Equal(t, LOD(9), *change.Desired)

	_, change = m.Remove("R", 3)
	require.NotNil(t, change)
	assert.Nil(t, change.Desired, "region with no owners must report desired=none")
	_, ok = m.Effective("R")
	assert.False(t, ok, "region with no owners must not be present")
}

func TestNoDuplicateEntryForSameOwner(t *testing.T) {
	m := New[string, int]()
	m.Insert("R", 1, 5)
	m.Insert("R", 1, 1)

	_, owners := m.Get("R", 1)
	require.Len(t, owners, 1)
	assert.Equal(t, LOD(1), owners[1])
}

// Two owners: O1 requests L=2, O2 requests L=0. Effective
// L = 0. O2 removed => effective L = 2.
func TestEffectiveLODRisesWhenFinestOwnerLeaves(t *testing.T) {
	m := New[string, string]()
	m.Insert("R", "O1", 2)
	_, change := m.Insert("R", "O2", 0)
	require.NotNil(t, change)

	l, _ := m.Effective("R")
	assert.Equal(t, LOD(0), l)

	_, change = m.Remove("R", "O2")
	require.NotNil(t, change)
	require.NotNil(t, change.Desired)
	assert.Equal(t, LOD(2), *change.Desired)
}

func TestRemoveUnknownOwnerIsNoop(t *testing.T) {
	m := New[string, int]()
	m.Insert("R", 1, 3)
	_, change := m.Remove("R", 99)
	assert.Nil(t, change)
}

func TestRegionsOfListsOnlyThatOwner(t *testing.T) {
	m := New[string, int]()
	m.Insert("A", 1, 0)
	m.Insert("B", 1, 2)
	m.Insert("B", 2, 0)
	m.Insert("C", 2, 1)

	regions := m.RegionsOf(1)
	assert.ElementsMatch(t, []string{"A", "B"}, regions)
	assert.Empty(t, m.RegionsOf(99))
}

func TestRemoveFromUnknownRegion(t *testing.T) {
	m := New[string, int]()
	prev, change := m.Remove("missing", 1)
	assert.Nil(t, prev)
	assert.Nil(t, change)
}
