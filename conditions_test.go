package promissory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/ioutest"
)

func TestConditionParse(t *testing.T) {
	cond := promissory.NewCondition("sigs", "ed25519", []byte("1234567890"))
	ext, typ, data, err := cond.Parse()
	require.NoError(t, err)
	assert.Equal(t, "sigs", ext)
	assert.Equal(t, "ed25519", typ)
	assert.Equal(t, []byte("1234567890"), data)
}

func TestConditionAddressStable(t *testing.T) {
	a := ioutest.CondNamed("alice")
	b := ioutest.CondNamed("alice")
	require.True(t, a.Equals(b))
	assert.Equal(t, a.Address(), b.Address())
	assert.Len(t, a.Address(), promissory.AddressLength)
}

func TestUnionConditions(t *testing.T) {
	alice := ioutest.CondNamed("alice")
	bob := ioutest.CondNamed("bob")
	carol := ioutest.CondNamed("carol")

	// Duplicates collapse, order does not matter.
	got := promissory.UnionConditions(
		[]promissory.Condition{alice, bob},
		[]promissory.Condition{bob, carol},
	)
	require.Len(t, got, 3)
	assert.True(t, got.Contains(alice))
	assert.True(t, got.Contains(bob))
	assert.True(t, got.Contains(carol))

	want := promissory.UnionConditions([]promissory.Condition{carol, alice, bob})
	assert.True(t, got.Equals(want))
}

func TestConditionSetEquals(t *testing.T) {
	alice := ioutest.CondNamed("alice")
	bob := ioutest.CondNamed("bob")

	a := promissory.UnionConditions([]promissory.Condition{alice, bob})
	b := promissory.UnionConditions([]promissory.Condition{bob, alice})
	c := promissory.UnionConditions([]promissory.Condition{alice})

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, c.Contains(bob))
}
