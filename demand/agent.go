// Package demand loads and generates the rider population that the
// simulation driver assigns to journeys, per spec §4.4/§4.6.
package demand

import "git.fiblab.net/sim/crowding/v2/journey"

// Agent is one rider row: an origin and destination stop, the
// earliest time they may depart, and the number of riders the row
// represents (spec §6's agent_count). PrevJourney carries the journey
// chosen for this agent in the previous outer round, used per spec
// §4.5 point 4 to break ties between equal-utility labels in round
// r+1 (see pickBest in simulate/driver.go).
type Agent struct {
	ID                 int
	Origin             int
	Destination        int
	DepartureNotBefore int
	Count              int

	PrevJourney *journey.Journey
}
