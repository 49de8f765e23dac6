package simulate

import "git.fiblab.net/sim/crowding/v2/crowding"

// Config parameterizes one Run: the RAPTOR search bounds, the crowding
// cost function and weight, and how agents are batched into
// concurrent simulation steps (spec §5).
type Config struct {
	OuterRounds int
	BagSize     int
	MaxRounds   int
	CostUtility float64
	Crowding    crowding.Function

	// StepSeconds buckets agents by DepartureNotBefore into
	// non-overlapping windows of this width; agents in the same step
	// are assigned concurrently.
	StepSeconds int

	// Threads bounds concurrent RAPTOR queries per step. 0 means
	// runtime.NumCPU().
	Threads int
}
