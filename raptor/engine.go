// Package raptor implements the round-based, multi-criteria transit
// router of spec §4.3: a RAPTOR variant whose labels carry arrival
// time, a crowding-aware generalized cost, and a transfer count, kept
// as a small Pareto-optimal bag per stop instead of a single scalar
// best-so-far.
package raptor

import (
	"context"
	"sort"

	"git.fiblab.net/sim/crowding/v2/crowding"
	"git.fiblab.net/sim/crowding/v2/network"
)

// OccupancySnapshot is the read side of the occupancy package's flat
// table: the load already aboard a trip's segment i->i+1 at the moment
// this query reads it. RAPTOR never writes through this interface.
type OccupancySnapshot interface {
	Load(tripID, segmentIndex int) int
}

// Params configures one Query: the bag size bound B, the round budget
// K, the crowding function and the cost-utility weight that trades
// crowding disutility against raw travel time (spec §4.2/§4.3).
type Params struct {
	BagSize     int
	MaxRounds   int
	CostUtility float64
	Crowding    crowding.Function
}

// Query runs one RAPTOR search over a fixed Network and occupancy
// snapshot. It owns a private label arena, freed by the GC once the
// caller drops the Query.
type Query struct {
	net    *network.Network
	occ    OccupancySnapshot
	params Params

	arena *arena
	bag   []Bag
}

// NewQuery allocates the per-stop bags and label arena for a search
// over net using occ as the crowding input.
func NewQuery(net *network.Network, occ OccupancySnapshot, params Params) *Query {
	return &Query{
		net:    net,
		occ:    occ,
		params: params,
		arena:  newArena(),
		bag:    make([]Bag, net.NumStops()),
	}
}

// Run executes the multi-round search from origin stop departing no
// earlier than departureTime. It returns the destination stop's final
// Pareto bag and whether the destination was reached at all
// (Unreachable is not an error — spec §4.3/§7 — the caller decides how
// to treat it).
func (q *Query) Run(ctx context.Context, origin, destination int, departureTime int) (Bag, bool) {
	q.Search(ctx, origin, departureTime)
	bag := q.BagAt(destination)
	return bag, len(bag) > 0
}

// Search runs the multi-round scan from origin departing no earlier
// than departureTime, populating every reachable stop's bag. It is
// destination-agnostic: a single Search lets the caller read off
// BagAt for as many destinations as it likes, which is how the
// simulation driver shares one query across every agent departing the
// same origin stop at the same time (spec §5).
func (q *Query) Search(ctx context.Context, origin int, departureTime int) {
	originLabel := Label{Stop: origin, Arrival: departureTime, Cost: 0, Transfers: 0, Pred: noPred, Leg: Leg{Kind: legOrigin}}
	h := q.arena.put(originLabel)
	q.bag[origin] = Bag{h}

	marked := make([]bool, q.net.NumStops())
	marked[origin] = true

	for k := 0; k < q.params.MaxRounds; k++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		roundStart := make([]Bag, len(q.bag))
		copy(roundStart, q.bag)

		changed, nextMarked := q.round(marked, roundStart)
		marked = nextMarked
		if !changed {
			break
		}
	}
}

// BagAt returns stop's final Pareto bag after Search has run.
func (q *Query) BagAt(stop int) Bag {
	return q.bag[stop]
}

// Label exposes one label's fields by handle, for journey
// reconstruction to walk back-pointers after Run returns.
func (q *Query) Label(h Handle) Label {
	return q.arena.get(h)
}

// round performs one RAPTOR round: build the route queue from stops
// marked in the previous round, scan each route once, then relax
// transfers out of every stop touched this round. It returns whether
// any bag changed and the set of stops to mark for the next round's
// route queue.
func (q *Query) round(markedPrev []bool, roundStart []Bag) (bool, []bool) {
	numStops := q.net.NumStops()
	numRoutes := q.net.NumRoutes()

	routeOffset := make([]int, numRoutes)
	routeScheduled := make([]bool, numRoutes)
	for i := range routeOffset {
		routeOffset[i] = -1
	}
	for stop := 0; stop < numStops; stop++ {
		if !markedPrev[stop] {
			continue
		}
		for _, m := range q.net.Stops[stop].Memberships {
			if !routeScheduled[m.Route] || m.Pos < routeOffset[m.Route] {
				routeOffset[m.Route] = m.Pos
				routeScheduled[m.Route] = true
			}
		}
	}

	changed := false
	markedThis := make([]bool, numStops)

	for routeID := 0; routeID < numRoutes; routeID++ {
		if !routeScheduled[routeID] {
			continue
		}
		if q.scanRoute(routeID, routeOffset[routeID], roundStart, markedThis) {
			changed = true
		}
	}

	if q.relaxTransfers(markedThis) {
		changed = true
	}

	return changed, markedThis
}

// boarding tracks the trip currently ridden while scanning a route, and
// the label we boarded it from.
type boarding struct {
	tripIdx   int
	fromLabel Handle
	boardPos  int
}

func (q *Query) scanRoute(routeID, startPos int, roundStart []Bag, markedThis []bool) bool {
	route := q.net.Routes[routeID]
	changed := false

	var cur *boarding
	for pos := startPos; pos < len(route.StopIDs); pos++ {
		stop := route.StopIDs[pos]

		if cur != nil {
			tripID := route.TripIDs[cur.tripIdx]
			trip := q.net.Trips[tripID]
			fromLabel := q.arena.get(cur.fromLabel)
			// the first boarding from the origin is not a transfer
			transfers := fromLabel.Transfers
			if fromLabel.Leg.Kind != legOrigin {
				transfers++
			}

			cand := Label{
				Stop:      stop,
				Arrival:   trip.StopTimes[pos].Arrival,
				Cost:      fromLabel.Cost + q.rideCost(trip, cur.boardPos, pos),
				Transfers: transfers,
				Pred:      cur.fromLabel,
				Leg: Leg{
					Kind:       legRide,
					TripID:     tripID,
					BoardStop:  route.StopIDs[cur.boardPos],
					AlightStop: stop,
					BoardPos:   cur.boardPos,
					AlightPos:  pos,
					BoardTime:  trip.StopTimes[cur.boardPos].Departure,
					AlightTime: trip.StopTimes[pos].Arrival,
				},
			}
			newBag, ok := insert(q.arena, q.bag[stop], cand, q.params.BagSize)
			if ok {
				q.bag[stop] = newBag
				markedThis[stop] = true
				changed = true
			}
		}

		if best, ok := q.earliestBoarding(route, pos, roundStart[stop]); ok {
			if cur == nil || best.tripIdx < cur.tripIdx {
				cur = &best
			}
		}
	}
	return changed
}

// earliestBoarding finds, among the labels in a stop's bag as of the
// start of this round, the earliest trip catchable at route position
// pos. Ties on trip index are broken by lower accumulated cost.
func (q *Query) earliestBoarding(route network.Route, pos int, bag Bag) (boarding, bool) {
	found := false
	var best boarding
	var bestCost float64

	for _, h := range bag {
		l := q.arena.get(h)
		idx, ok := earliestTripAtOrAfter(q.net, route, pos, l.Arrival)
		if !ok {
			continue
		}
		switch {
		case !found, idx < best.tripIdx:
			best = boarding{tripIdx: idx, fromLabel: h, boardPos: pos}
			bestCost = l.Cost
			found = true
		case idx == best.tripIdx && l.Cost < bestCost:
			best = boarding{tripIdx: idx, fromLabel: h, boardPos: pos}
			bestCost = l.Cost
		}
	}
	return best, found
}

// earliestTripAtOrAfter binary searches route's trips (sorted ascending
// by departure at every stop, per the non-overtaking invariant) for the
// earliest one departing pos at or after arrival.
func earliestTripAtOrAfter(net *network.Network, route network.Route, pos int, arrival int) (int, bool) {
	n := len(route.TripIDs)
	idx := sort.Search(n, func(i int) bool {
		tripID := route.TripIDs[i]
		return net.Trips[tripID].StopTimes[pos].Departure >= arrival
	})
	if idx == n {
		return 0, false
	}
	return idx, true
}

// rideCost integrates travel time plus the crowding-weighted disutility
// of each rider sub-segment from boardPos to alightPos, per spec §4.2's
// generalized cost formula.
func (q *Query) rideCost(trip network.Trip, boardPos, alightPos int) float64 {
	cost := 0.0
	for i := boardPos; i < alightPos; i++ {
		segDuration := float64(trip.StopTimes[i+1].Arrival - trip.StopTimes[i].Departure)
		load := q.occ.Load(trip.ID, i)
		penalty := q.params.Crowding.Eval(load, trip.Capacity.Seated, trip.Capacity.Standing)
		cost += segDuration * (1 + q.params.CostUtility*penalty)
	}
	return cost
}

// relaxTransfers extends every stop touched this round by its outgoing
// foot transfers, producing the final marked set for the next round's
// route queue.
func (q *Query) relaxTransfers(markedThis []bool) bool {
	changed := false
	touched := make([]int, 0, len(markedThis))
	for stop, m := range markedThis {
		if m {
			touched = append(touched, stop)
		}
	}

	for _, stop := range touched {
		bagAtStop := q.bag[stop]
		newLabels := make([]Handle, len(bagAtStop))
		copy(newLabels, bagAtStop)

		for _, tr := range q.net.Transfers[stop] {
			if tr.To == stop {
				continue
			}
			for _, h := range newLabels {
				l := q.arena.get(h)
				if l.Leg.Kind == legTransfer {
					// don't chain transfers within one round
					continue
				}
				cand := Label{
					Stop:      tr.To,
					Arrival:   l.Arrival + tr.Duration,
					Cost:      l.Cost,
					Transfers: l.Transfers,
					Pred:      h,
					Leg:       Leg{Kind: legTransfer, FromStop: stop, ToStop: tr.To, Duration: tr.Duration},
				}
				newBag, ok := insert(q.arena, q.bag[tr.To], cand, q.params.BagSize)
				if ok {
					q.bag[tr.To] = newBag
					markedThis[tr.To] = true
					changed = true
				}
			}
		}
	}
	return changed
}
