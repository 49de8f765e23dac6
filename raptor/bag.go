package raptor

import (
	"container/heap"

	"git.fiblab.net/sim/crowding/v2/internal/pq"
)

// Bag is a Pareto-optimal set of label handles at one stop, bounded to
// at most B entries (spec §4.3). It never retains a handle that is
// dominated by another handle already in the bag.
type Bag []Handle

// dominates reports whether a is at least as good as b on both arrival
// time and cost, and strictly better on at least one — the partial
// order labels are kept Pareto-optimal under.
func dominates(a, b Label) bool {
	if a.Arrival > b.Arrival || a.Cost > b.Cost {
		return false
	}
	return a.Arrival < b.Arrival || a.Cost < b.Cost
}

// insert tries to add cand to bag, maintaining the Pareto front and the
// size bound B. It returns the (possibly unchanged) bag and whether
// cand was accepted: false means cand was dominated by an existing
// member and was discarded without being written to the arena. true
// means cand was not dominated and was written to the arena; if the
// size bound then forces an eviction, cand itself may be the label
// evicted, and the result is still true.
func insert(a *arena, bag Bag, cand Label, b int) (Bag, bool) {
	for _, h := range bag {
		if dominates(a.get(h), cand) {
			return bag, false
		}
	}

	kept := bag[:0:0]
	for _, h := range bag {
		if !dominates(cand, a.get(h)) {
			kept = append(kept, h)
		}
	}

	h := a.put(cand)
	kept = append(kept, h)

	if len(kept) > b {
		kept = evictDominatedMost(a, kept)
	}
	return kept, true
}

// evictDominatedMost drops one label from bag: among the labels that
// do not themselves dominate any other label in the bag, the one with
// the largest cost. Ties broken by fewer transfers then earlier
// arrival favor keeping the label most likely to still be useful,
// matching spec §4.3's bag-eviction rule.
func evictDominatedMost(a *arena, bag Bag) Bag {
	var candidates pq.PriorityQueue
	for i, h := range bag {
		l := a.get(h)
		dominatesAny := false
		for j, h2 := range bag {
			if i == j {
				continue
			}
			if dominates(l, a.get(h2)) {
				dominatesAny = true
				break
			}
		}
		if !dominatesAny {
			heap.Push(&candidates, &pq.Item{Value: i, Priority: -l.Cost})
		}
	}
	if len(candidates) == 0 {
		return bag
	}

	worst := heap.Pop(&candidates).(*pq.Item)
	worstIdx := worst.Value
	for len(candidates) > 0 {
		next := heap.Pop(&candidates).(*pq.Item)
		if next.Priority != worst.Priority {
			break
		}
		a1, a2 := a.get(bag[next.Value]), a.get(bag[worstIdx])
		if betterTieBreak(a1, a2) {
			worstIdx = next.Value
		}
	}

	out := make(Bag, 0, len(bag)-1)
	for i, h := range bag {
		if i != worstIdx {
			out = append(out, h)
		}
	}
	return out
}

// betterTieBreak reports whether a should be evicted in preference to
// b when both have equal cost: it returns true when a has more
// transfers than b, or the same transfers and a later arrival. The
// label with fewer transfers, then earlier arrival, is the one kept.
func betterTieBreak(a, b Label) bool {
	if a.Transfers != b.Transfers {
		return a.Transfers > b.Transfers
	}
	return a.Arrival > b.Arrival
}
