package simulate

import (
	"git.fiblab.net/sim/crowding/v2/demand"
	"git.fiblab.net/sim/crowding/v2/journey"
	"git.fiblab.net/sim/crowding/v2/network"
	"git.fiblab.net/sim/crowding/v2/occupancy"
)

// buildResult assembles the final Result from the last round's
// journeys and the occupancy table it produced.
func buildResult(net *network.Network, occ *occupancy.Table, agents []demand.Agent, journeys map[int]*journey.Journey, rounds int) *Result {
	agentJourneys := make([]AgentJourney, 0, len(agents))
	unreachable := 0
	for _, a := range agents {
		j := journeys[a.ID]
		if j == nil {
			unreachable++
		}
		agentJourneys = append(agentJourneys, AgentJourney{AgentID: a.ID, Journey: j})
	}

	var segments []SegmentLoad
	maxStops := net.MaxStopsPerRoute()
	for _, trip := range net.Trips {
		for i := 0; i < len(trip.StopTimes)-1 && i < maxStops; i++ {
			load := occ.Load(trip.ID, i)
			if load == 0 {
				continue
			}
			segments = append(segments, SegmentLoad{TripID: trip.ID, SegmentIndex: i, Load: load})
		}
	}

	return &Result{
		Agents:      agentJourneys,
		Segments:    segments,
		Unreachable: unreachable,
		Rounds:      rounds,
	}
}
