package demand

import (
	"fmt"
	"strings"

	"git.fiblab.net/sim/crowding/v2/network"
)

// RawAgent is one input row before stop-name resolution: a row of
// (origin_stop_name, destination_stop_name, departure_time,
// agent_count) per spec §6. AgentCount is the number of riders this
// row represents; zero and negative counts are not meaningful and are
// normalized to 1 during Load.
type RawAgent struct {
	ExternalID         string `yaml:"agent_id"`
	Origin             string `yaml:"origin_stop_name"`
	Destination        string `yaml:"destination_stop_name"`
	DepartureNotBefore int    `yaml:"departure_time"`
	AgentCount         int    `yaml:"agent_count"`
}

// LoadError batches every row this load failed on, rather than
// stopping at the first, matching the network package's BuildError.
type LoadError struct {
	Problems []string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("demand load: %d problem(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *LoadError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Load resolves every RawAgent's origin and destination to the
// Network's dense stop ids, assigning dense sequential agent ids. It
// returns every unresolved row's problem in one LoadError rather than
// failing on the first (spec §6/§7).
func Load(net *network.Network, raw []RawAgent) ([]Agent, error) {
	berr := &LoadError{}
	agents := make([]Agent, 0, len(raw))

	for _, r := range raw {
		origin, ok := resolveStop(net, r.Origin)
		if !ok {
			berr.add("agent %q: unknown origin stop %q", r.ExternalID, r.Origin)
			continue
		}
		dest, ok := resolveStop(net, r.Destination)
		if !ok {
			berr.add("agent %q: unknown destination stop %q", r.ExternalID, r.Destination)
			continue
		}
		count := r.AgentCount
		if count <= 0 {
			count = 1
		}
		agents = append(agents, Agent{
			ID:                 len(agents),
			Origin:             origin,
			Destination:        dest,
			DepartureNotBefore: r.DepartureNotBefore,
			Count:              count,
		})
	}

	if len(berr.Problems) > 0 {
		return nil, berr
	}
	return agents, nil
}

// resolveStop resolves a demand row's stop reference by name first
// (spec §6's origin_stop_name/destination_stop_name columns), falling
// back to the GTFS external id for rows that carry one instead of a
// name.
func resolveStop(net *network.Network, ref string) (int, bool) {
	if id, ok := net.StopIDByName(ref); ok {
		return id, true
	}
	return net.StopIDByExternal(ref)
}
