// Package occupancy holds the flat, concurrently-updated load table
// that feeds the crowding cost function. Per DESIGN NOTES §9, it is a
// single []int64 indexed by trip_id*maxStops+segment rather than a map
// or per-trip slice, updated with sync/atomic fetch-adds from many
// goroutines running RAPTOR queries within the same simulation step.
package occupancy

import (
	"sync/atomic"

	"git.fiblab.net/sim/crowding/v2/network"
)

// Table is the occupancy snapshot for one simulation step: for every
// trip and every ride segment (the hop from StopTimes[i] to
// StopTimes[i+1]), the number of riders currently assigned to it.
type Table struct {
	net      *network.Network
	maxStops int
	counts   []int64
}

// New allocates a zeroed table sized for net.
func New(net *network.Network) *Table {
	maxStops := net.MaxStopsPerRoute()
	return &Table{
		net:      net,
		maxStops: maxStops,
		counts:   make([]int64, net.NumTrips()*maxStops),
	}
}

func (t *Table) index(tripID, segmentIndex int) int {
	return tripID*t.maxStops + segmentIndex
}

// Add increments the rider count on a trip segment by delta (delta may
// be negative, though the simulation driver only ever adds). Safe for
// concurrent use from multiple RAPTOR queries in the same step.
func (t *Table) Add(tripID, segmentIndex int, delta int64) {
	atomic.AddInt64(&t.counts[t.index(tripID, segmentIndex)], delta)
}

// Load implements raptor.OccupancySnapshot: the current rider count on
// a trip segment, read without blocking writers.
func (t *Table) Load(tripID, segmentIndex int) int {
	return int(atomic.LoadInt64(&t.counts[t.index(tripID, segmentIndex)]))
}

// Reset zeroes every counter, called once at the start of each outer
// simulation round before its first step runs. Occupancy accumulates
// forward across steps within a round, since a step's crowding should
// reflect every earlier-departing rider still aboard; it is rounds,
// not steps, that start over from zero load and re-evaluate every
// agent's journey against the previous round's fuller picture.
func (t *Table) Reset() {
	for i := range t.counts {
		atomic.StoreInt64(&t.counts[i], 0)
	}
}

// AddJourneyRide increments occupancy for every ride segment of one
// chosen journey by count riders, called once per agent row after its
// route is picked — count matches the Rust reference implementation's
// fetch_add(count, ...), so one demand row with agent_count > 1 loads
// a segment as heavily as that many individual riders would.
func (t *Table) AddJourneyRide(tripID, boardPos, alightPos int, count int64) {
	for i := boardPos; i < alightPos; i++ {
		t.Add(tripID, i, count)
	}
}
