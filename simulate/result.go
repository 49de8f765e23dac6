package simulate

import "git.fiblab.net/sim/crowding/v2/journey"

// AgentJourney pairs one agent with the journey it was assigned in the
// final outer round, or a nil Journey if it never reached its
// destination.
type AgentJourney struct {
	AgentID int
	Journey *journey.Journey
}

// SegmentLoad is one trip segment's final rider count, used for
// crowding reports (spec §6).
type SegmentLoad struct {
	TripID       int
	SegmentIndex int
	Load         int
}

// Result is the outcome of one full Run: per-agent journeys, the final
// segment load table, and how many agents never reached their
// destination in the final round.
type Result struct {
	Agents      []AgentJourney
	Segments    []SegmentLoad
	Unreachable int
	Rounds      int
}
