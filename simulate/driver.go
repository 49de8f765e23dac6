// Package simulate runs the iterative demand-assignment simulation of
// spec §5: repeated outer rounds in which every agent's journey is
// recomputed against the crowding feedback produced by the previous
// round's choices, until OuterRounds is reached.
package simulate

import (
	"context"
	"runtime"
	"sort"

	"git.fiblab.net/sim/crowding/v2/demand"
	"git.fiblab.net/sim/crowding/v2/journey"
	"git.fiblab.net/sim/crowding/v2/network"
	"git.fiblab.net/sim/crowding/v2/occupancy"
	"git.fiblab.net/sim/crowding/v2/raptor"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// queryKey dedupes agents that share an origin stop and an exact
// departure time: such agents see an identical RAPTOR search, so only
// one query needs to run for all of them.
type queryKey struct {
	origin     int
	departure int
}

// Run executes OuterRounds of iterative assignment over net for
// agents, returning the final round's journeys and segment loads. obs
// may be nil.
func Run(ctx context.Context, net *network.Network, agents []demand.Agent, cfg Config, obs *Observer) (*Result, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	// table holds one round's occupancy. Per spec §5, within a round
	// updates are visible strictly step-to-step: a step's RAPTOR queries
	// read table as it stood at step entry, and only after that step's
	// queries have all returned do its agents' chosen rides get added,
	// so step i+1 sees every increment from step i but a step never
	// sees its own agents' additions (intra-step updates are not fed
	// back, per spec §5's ordering guarantee).
	table := occupancy.New(net)
	steps := bucketSteps(agents, cfg.StepSeconds)

	params := raptor.Params{
		BagSize:     cfg.BagSize,
		MaxRounds:   cfg.MaxRounds,
		CostUtility: cfg.CostUtility,
		Crowding:    cfg.Crowding,
	}

	obs.emit(Event{Kind: Started, Rounds: cfg.OuterRounds, Steps: len(steps)})

	journeys := make(map[int]*journey.Journey, len(agents))

	for round := 0; round < cfg.OuterRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		table.Reset()
		logrus.Debugf("simulate: round %d/%d, %d steps", round+1, cfg.OuterRounds, len(steps))

		for stepIdx, stepAgents := range steps {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := runStep(ctx, net, table, params, threads, agents, stepAgents, journeys); err != nil {
				return nil, err
			}
			obs.emit(Event{Kind: StepCompleted, Round: round, Step: stepIdx})
		}

		obs.emit(Event{Kind: RoundCompleted, Round: round})
	}

	return buildResult(net, table, agents, journeys, cfg.OuterRounds), nil
}

// bucketSteps groups agent indices into ascending-departure windows of
// width stepSeconds, each sorted for deterministic processing order.
func bucketSteps(agents []demand.Agent, stepSeconds int) [][]int {
	if stepSeconds <= 0 {
		stepSeconds = 1
	}
	byStep := make(map[int][]int)
	for i, a := range agents {
		w := a.DepartureNotBefore / stepSeconds
		byStep[w] = append(byStep[w], i)
	}

	windows := make([]int, 0, len(byStep))
	for w := range byStep {
		windows = append(windows, w)
	}
	sort.Ints(windows)

	out := make([][]int, len(windows))
	for i, w := range windows {
		idxs := byStep[w]
		sort.Ints(idxs)
		out[i] = idxs
	}
	return out
}

// runStep assigns journeys for one step's agents: unique (origin,
// departure) pairs are searched concurrently through an errgroup pool
// against table as it stood at step entry, then every agent picks its
// best label from the shared query and has its ride legs added to
// table. Because the additions below only happen after every query in
// this step has already returned, a step's own agents never influence
// their own step's RAPTOR search — only the next step's.
func runStep(ctx context.Context, net *network.Network, table *occupancy.Table, params raptor.Params, threads int, agents []demand.Agent, stepAgents []int, out map[int]*journey.Journey) error {
	queries := xsync.NewMapOf[queryKey, *raptor.Query]()
	warnedUnreachable := xsync.NewMapOf[int, bool]()

	var keys []queryKey
	seen := make(map[queryKey]bool)
	for _, idx := range stepAgents {
		a := agents[idx]
		k := queryKey{origin: a.Origin, departure: a.DepartureNotBefore}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for _, k := range keys {
		k := k
		g.Go(func() error {
			q := raptor.NewQuery(net, table, params)
			q.Search(gctx, k.origin, k.departure)
			queries.Store(k, q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, idx := range stepAgents {
		a := agents[idx]
		k := queryKey{origin: a.Origin, departure: a.DepartureNotBefore}
		q, ok := queries.Load(k)
		if !ok {
			continue
		}

		bag := q.BagAt(a.Destination)
		if len(bag) == 0 {
			out[a.ID] = nil
			if _, already := warnedUnreachable.LoadOrStore(a.Destination, true); !already {
				logrus.Warnf("simulate: no agent reached stop %d this step", a.Destination)
			}
			continue
		}

		h := pickBest(q, bag, agents[idx].PrevJourney)
		j := journey.Reconstruct(q, h)
		out[a.ID] = &j
		applyOccupancy(table, &j, int64(a.Count))
		agents[idx].PrevJourney = &j
	}
	return nil
}

// pickBest selects the label an agent actually takes from its
// destination's Pareto bag: the lowest generalized cost, ties broken
// by earliest arrival, and — per spec §4.5 point 4 — any remaining
// tie broken in favor of the label that continues riding the same
// trip the agent boarded last in prev, the previous round's chosen
// journey, so an agent does not flip between equally good options
// round to round for no reason.
func pickBest(q *raptor.Query, bag raptor.Bag, prev *journey.Journey) raptor.Handle {
	best := bag[0]
	bestLabel := q.Label(best)
	for _, h := range bag[1:] {
		l := q.Label(h)
		if betterCandidate(l, bestLabel, prev) {
			best, bestLabel = h, l
		}
	}
	return best
}

func betterCandidate(a, b raptor.Label, prev *journey.Journey) bool {
	if a.Cost != b.Cost {
		return a.Cost < b.Cost
	}
	if a.Arrival != b.Arrival {
		return a.Arrival < b.Arrival
	}
	if prev == nil {
		return false
	}
	prevTrip, ok := lastRideTripID(prev)
	if !ok {
		return false
	}
	aMatch := a.Leg.Kind == raptor.LegRide && a.Leg.TripID == prevTrip
	bMatch := b.Leg.Kind == raptor.LegRide && b.Leg.TripID == prevTrip
	return aMatch && !bMatch
}

// lastRideTripID returns the trip id of prev's last ride leg, the warm
// hint pickBest compares candidate labels against.
func lastRideTripID(prev *journey.Journey) (int, bool) {
	for i := len(prev.Legs) - 1; i >= 0; i-- {
		if prev.Legs[i].Kind == journey.Ride {
			return prev.Legs[i].TripID, true
		}
	}
	return 0, false
}

// applyOccupancy increments the occupancy table for every ride leg of
// j by count riders, so later steps in this round see this agent's
// full row weight aboard.
func applyOccupancy(occ *occupancy.Table, j *journey.Journey, count int64) {
	for _, leg := range j.Legs {
		if leg.Kind != journey.Ride {
			continue
		}
		occ.AddJourneyRide(leg.TripID, leg.BoardPos, leg.AlightPos, count)
	}
}
