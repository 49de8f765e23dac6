package network

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"git.fiblab.net/sim/crowding/v2/internal/geo"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// BuildError is returned for every build-time fatal condition in
// spec §4.1/§7: malformed GTFS, no active trips, duplicate stop ids,
// non-monotone stop times or unknown stop references. It batches every
// offender found in one pass rather than failing on the first.
type BuildError struct {
	Problems []string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("network build failed with %d problem(s): %s",
		len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *BuildError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Build constructs an immutable Network from GTFS-shaped records for
// a single modeled day, per spec §4.1.
func Build(in BuildInput) (*Network, error) {
	berr := &BuildError{}

	stopExternalID, stopName, stops := buildStops(in.Stops, berr)
	activeServices := activeServiceIDs(in.Calendar, in.CalendarDates, in.ModelDate, berr)
	trips := activeTrips(in.Trips, activeServices)

	stopTimesByTrip := groupStopTimes(in.StopTimes, stopExternalID, berr)

	if len(berr.Problems) > 0 {
		return nil, berr
	}

	routeCandidates := canonicalizeRoutes(trips, stopTimesByTrip, berr)
	if len(berr.Problems) > 0 {
		return nil, berr
	}

	routes, builtTrips, externalTripID := splitNonOvertakingAndAssignIDs(routeCandidates, in.DefaultCapacity)
	if len(builtTrips) == 0 {
		berr.add("no active trips on modeled date %s", in.ModelDate)
		return nil, berr
	}

	memberships := make([][]StopRoutePosition, len(stops))
	for _, r := range routes {
		for pos, stopID := range r.StopIDs {
			memberships[stopID] = append(memberships[stopID], StopRoutePosition{Route: r.ID, Pos: pos})
		}
	}
	for i := range stops {
		stops[i].Memberships = memberships[i]
	}

	transfers := buildTransfers(stops, in.Transfers, stopExternalID, in.MaxWalkTransferMeters, in.WalkingSpeedMetersPerSecond)

	return &Network{
		Stops:          stops,
		Routes:         routes,
		Trips:          builtTrips,
		Transfers:      transfers,
		externalStopID: stopExternalID,
		externalTripID: externalTripID,
		nameStopID:     stopName,
	}, nil
}

// buildStops assigns dense ids to stops in canonical order: ascending
// external id (spec §8, invariant #7). It also indexes stops by their
// human-readable Name (spec §6's demand-loading columns resolve by
// name, not external id); the first stop built with a given name wins
// any collision, since real GTFS feeds do not guarantee unique names.
func buildStops(raw []RawStop, berr *BuildError) (map[string]int, map[string]int, []Stop) {
	sorted := append([]RawStop(nil), raw...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ExternalID < sorted[j].ExternalID })

	externalID := make(map[string]int, len(sorted))
	nameID := make(map[string]int, len(sorted))
	stops := make([]Stop, 0, len(sorted))
	for _, s := range sorted {
		if _, dup := externalID[s.ExternalID]; dup {
			berr.add("duplicate stop id %q", s.ExternalID)
			continue
		}
		id := len(stops)
		externalID[s.ExternalID] = id
		if s.Name != "" {
			if _, taken := nameID[s.Name]; !taken {
				nameID[s.Name] = id
			}
		}
		stops = append(stops, Stop{
			ID:         id,
			ExternalID: s.ExternalID,
			Name:       s.Name,
			Point:      geo.Point{X: s.Lon, Y: s.Lat},
		})
	}
	return externalID, nameID, stops
}

// activeServiceIDs resolves the calendar + calendar_dates exceptions
// down to the set of service ids active on ModelDate.
func activeServiceIDs(cal []RawCalendar, exceptions []RawCalendarException, modelDate string, berr *BuildError) map[string]bool {
	day, err := time.Parse("20060102", modelDate)
	if err != nil {
		berr.add("invalid model_date %q: %v", modelDate, err)
		return nil
	}
	active := make(map[string]bool)
	for _, c := range cal {
		start, err1 := time.Parse("20060102", c.StartDate)
		end, err2 := time.Parse("20060102", c.EndDate)
		if err1 != nil || err2 != nil {
			berr.add("invalid calendar range for service %q", c.ServiceID)
			continue
		}
		if (day.Equal(start) || day.After(start)) && (day.Equal(end) || day.Before(end)) && c.Weekday[int(day.Weekday())] {
			active[c.ServiceID] = true
		}
	}
	for _, e := range exceptions {
		if e.Date != modelDate {
			continue
		}
		if e.Added {
			active[e.ServiceID] = true
		} else {
			delete(active, e.ServiceID)
		}
	}
	return active
}

func activeTrips(raw []RawTrip, activeServices map[string]bool) []RawTrip {
	return lo.Filter(raw, func(t RawTrip, _ int) bool {
		return activeServices[t.ServiceID]
	})
}

// tripStops is one trip's resolved stop-id sequence and stop times,
// the unit canonicalizeRoutes groups into route candidates.
type tripStops struct {
	stopIDs   []int
	stopTimes []StopTime
}

// groupStopTimes groups raw stop_times by trip, sorts each group by
// sequence, validates monotonicity and dwell, and resolves stop
// externals to dense ids.
func groupStopTimes(raw []RawStopTime, stopExternalID map[string]int, berr *BuildError) map[string]tripStops {
	bySeq := make(map[string][]RawStopTime)
	for _, st := range raw {
		bySeq[st.TripExternalID] = append(bySeq[st.TripExternalID], st)
	}
	out := make(map[string]tripStops, len(bySeq))
	for tripID, rows := range bySeq {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Sequence < rows[j].Sequence })
		var ts tripStops
		var prevArr, prevDep int
		for i, row := range rows {
			stopID, ok := stopExternalID[row.StopExternalID]
			if !ok {
				berr.add("trip %q references unknown stop %q", tripID, row.StopExternalID)
				continue
			}
			if row.Departure < row.Arrival {
				berr.add("trip %q stop_sequence %d has departure before arrival", tripID, row.Sequence)
			}
			if i > 0 && (row.Arrival < prevArr || row.Departure < prevDep) {
				berr.add("trip %q stop_times are not monotone non-decreasing at sequence %d", tripID, row.Sequence)
			}
			ts.stopIDs = append(ts.stopIDs, stopID)
			ts.stopTimes = append(ts.stopTimes, StopTime{Arrival: row.Arrival, Departure: row.Departure})
			prevArr, prevDep = row.Arrival, row.Departure
		}
		out[tripID] = ts
	}
	return out
}

// routeCandidate groups trips sharing one exact stop-id sequence.
type routeCandidate struct {
	stopIDs []int
	trips   []tripBuild
}

type tripBuild struct {
	externalID string
	stopTimes  []StopTime
	capacity   Capacity
}

func canonicalizeRoutes(trips []RawTrip, stopTimesByTrip map[string]tripStops, berr *BuildError) map[string]*routeCandidate {
	candidates := make(map[string]*routeCandidate)
	for _, t := range trips {
		ts, ok := stopTimesByTrip[t.ExternalID]
		if !ok || len(ts.stopTimes) == 0 {
			berr.add("trip %q has no stop_times", t.ExternalID)
			continue
		}
		key := routeKey(ts.stopIDs)
		c, ok := candidates[key]
		if !ok {
			c = &routeCandidate{stopIDs: ts.stopIDs}
			candidates[key] = c
		}
		c.trips = append(c.trips, tripBuild{externalID: t.ExternalID, stopTimes: ts.stopTimes, capacity: t.Capacity})
	}
	return candidates
}

// routeKey is a function of the ordered stop-id sequence only — two
// trips canonicalize to the same route iff their stop ids match
// exactly, in order (spec §4.1 step 3).
func routeKey(stopIDs []int) string {
	parts := make([]string, len(stopIDs))
	for i, id := range stopIDs {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

// splitNonOvertakingAndAssignIDs sorts each candidate's trips by
// departure at the first stop, greedily partitions them into
// non-overtaking tracks (spec §4.1 step 4 / invariant #1), and assigns
// dense route and trip ids in canonical order (spec §8 invariant #7:
// by first-stop id ascending, then by first trip's departure time).
func splitNonOvertakingAndAssignIDs(candidates map[string]*routeCandidate, defaultCap Capacity) ([]Route, []Trip, map[string]int) {
	type track struct {
		stopIDs []int
		trips   []tripBuild
	}
	var tracks []track

	for _, c := range candidates {
		sort.Slice(c.trips, func(i, j int) bool {
			return c.trips[i].stopTimes[0].Departure < c.trips[j].stopTimes[0].Departure
		})
		var localTracks []track
		for _, t := range c.trips {
			placed := false
			for i := range localTracks {
				last := localTracks[i].trips[len(localTracks[i].trips)-1]
				if nonOvertaking(last.stopTimes, t.stopTimes) {
					localTracks[i].trips = append(localTracks[i].trips, t)
					placed = true
					break
				}
			}
			if !placed {
				localTracks = append(localTracks, track{stopIDs: c.stopIDs, trips: []tripBuild{t}})
			}
		}
		tracks = append(tracks, localTracks...)
	}

	sort.Slice(tracks, func(i, j int) bool {
		si, sj := tracks[i].stopIDs[0], tracks[j].stopIDs[0]
		if si != sj {
			return si < sj
		}
		return tracks[i].trips[0].stopTimes[0].Departure < tracks[j].trips[0].stopTimes[0].Departure
	})

	routes := make([]Route, 0, len(tracks))
	trips := make([]Trip, 0)
	externalTripID := make(map[string]int)

	for routeID, tr := range tracks {
		route := Route{ID: routeID, StopIDs: tr.stopIDs}
		for _, t := range tr.trips {
			cap := t.capacity
			if cap == (Capacity{}) {
				cap = defaultCap
			}
			externalID := t.externalID
			if externalID == "" {
				externalID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("route-%d-seq-%d", routeID, len(route.TripIDs)))).String()
			}
			tripID := len(trips)
			trips = append(trips, Trip{
				ID:         tripID,
				ExternalID: externalID,
				Route:      routeID,
				StopTimes:  t.stopTimes,
				Capacity:   cap,
			})
			route.TripIDs = append(route.TripIDs, tripID)
			externalTripID[externalID] = tripID
		}
		routes = append(routes, route)
	}
	return routes, trips, externalTripID
}

// nonOvertaking reports whether appending `next` after `last` on the
// same track preserves invariant #1: arrival_last[i] <= arrival_next[i]
// and departure_last[i] <= departure_next[i] at every stop index.
func nonOvertaking(last, next []StopTime) bool {
	for i := range last {
		if next[i].Arrival < last[i].Arrival || next[i].Departure < last[i].Departure {
			return false
		}
	}
	return true
}

// buildTransfers assembles, per stop, the self-transfer plus any
// explicit transfers and the geographic-proximity transfers synthesized
// from stop coordinates (spec §4.1 step 6).
func buildTransfers(stops []Stop, raw []RawTransfer, stopExternalID map[string]int, maxMeters, speed float64) [][]Transfer {
	out := make([][]Transfer, len(stops))
	for i := range stops {
		out[i] = append(out[i], Transfer{To: i, Duration: 0})
	}
	for _, rt := range raw {
		from, ok1 := stopExternalID[rt.FromExternalID]
		to, ok2 := stopExternalID[rt.ToExternalID]
		if !ok1 || !ok2 {
			continue
		}
		out[from] = append(out[from], Transfer{To: to, Duration: rt.DurationSeconds})
	}
	if maxMeters > 0 && speed > 0 {
		synthesizeGeographicTransfers(stops, out, maxMeters, speed)
	}
	return out
}

// synthesizeGeographicTransfers groups stops within maxMeters of one
// another into clusters with a union-find (grounded on the teacher's
// legacy DisjointSet precompute tool), then runs Dijkstra over a small
// weighted graph per cluster (gonum graph/simple + graph/path) to
// produce walking-duration transfers between every reachable pair.
func synthesizeGeographicTransfers(stops []Stop, out [][]Transfer, maxMeters, speed float64) {
	ds := newDisjointSet()
	for i := range stops {
		ds.add(i)
	}
	type closePair struct{ a, b int }
	var pairs []closePair
	for i := range stops {
		for j := i + 1; j < len(stops); j++ {
			if d := geo.Distance(stops[i].Point, stops[j].Point); d <= maxMeters {
				pairs = append(pairs, closePair{i, j})
				ds.union(i, j)
			}
		}
	}
	pairDistance := make(map[[2]int]float64, len(pairs))
	for _, p := range pairs {
		d := geo.Distance(stops[p.a].Point, stops[p.b].Point)
		pairDistance[[2]int{p.a, p.b}] = d
	}

	for root, members := range ds.components() {
		if len(members) < 2 {
			continue
		}
		g := simple.NewWeightedUndirectedGraph(0, 0)
		for _, m := range members {
			g.AddNode(simple.Node(m))
		}
		for _, p := range pairs {
			if ds.find(p.a) != root {
				continue
			}
			d, ok := pairDistance[[2]int{p.a, p.b}]
			if !ok {
				continue
			}
			g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(p.a), simple.Node(p.b), d/speed))
		}
		for _, m := range members {
			shortest := path.DijkstraFrom(simple.Node(m), g)
			for _, other := range members {
				if other == m {
					continue
				}
				_, weight := shortest.To(int64(other))
				if weight <= 0 {
					continue
				}
				out[m] = append(out[m], Transfer{To: other, Duration: int(weight)})
			}
		}
	}
}
