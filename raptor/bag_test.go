package raptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertRejectsDominated(t *testing.T) {
	a := newArena()
	h1 := a.put(Label{Arrival: 100, Cost: 10})
	bag := Bag{h1}

	bag, ok := insert(a, bag, Label{Arrival: 150, Cost: 20}, 5)
	assert.False(t, ok)
	assert.Len(t, bag, 1)
}

func TestInsertKeepsIncomparableLabels(t *testing.T) {
	a := newArena()
	h1 := a.put(Label{Arrival: 100, Cost: 20})
	bag := Bag{h1}

	bag, ok := insert(a, bag, Label{Arrival: 150, Cost: 10}, 5)
	assert.True(t, ok)
	assert.Len(t, bag, 2)
}

func TestInsertPrunesDominatedExisting(t *testing.T) {
	a := newArena()
	h1 := a.put(Label{Arrival: 150, Cost: 20})
	bag := Bag{h1}

	bag, ok := insert(a, bag, Label{Arrival: 100, Cost: 10}, 5)
	assert.True(t, ok)
	assert.Len(t, bag, 1)
	assert.Equal(t, 100, a.get(bag[0]).Arrival)
}

// TestBagEvictionAtCapacity exercises the bag-eviction policy with
// B=2 and three mutually incomparable labels at costs 10, 20, 30: the
// costliest that dominates nothing else must be the one dropped.
func TestBagEvictionAtCapacity(t *testing.T) {
	a := newArena()
	var bag Bag
	var ok bool

	bag, ok = insert(a, bag, Label{Arrival: 300, Cost: 10, Transfers: 2}, 2)
	assert.True(t, ok)
	bag, ok = insert(a, bag, Label{Arrival: 200, Cost: 20, Transfers: 1}, 2)
	assert.True(t, ok)
	bag, ok = insert(a, bag, Label{Arrival: 100, Cost: 30, Transfers: 0}, 2)
	assert.True(t, ok)

	assert.Len(t, bag, 2)
	for _, h := range bag {
		assert.NotEqual(t, 30.0, a.get(h).Cost)
	}
}

// TestEvictionTieBreaksByFewerTransfers pits two labels with identical
// (arrival, cost) but different transfer counts against a third,
// cheaper-but-later label. The equal-cost pair ties for "dominated
// most"; the one with more transfers must be the one evicted.
func TestEvictionTieBreaksByFewerTransfers(t *testing.T) {
	a := newArena()
	var bag Bag
	bag, _ = insert(a, bag, Label{Arrival: 50, Cost: 30, Transfers: 5}, 2)
	bag, _ = insert(a, bag, Label{Arrival: 50, Cost: 30, Transfers: 1}, 2)
	bag, _ = insert(a, bag, Label{Arrival: 100, Cost: 10, Transfers: 0}, 2)

	assert.Len(t, bag, 2)
	for _, h := range bag {
		assert.NotEqual(t, 5, a.get(h).Transfers)
	}
}
