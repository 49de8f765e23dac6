package demand

import (
	"math/rand"

	"git.fiblab.net/sim/crowding/v2/network"
)

// RandomConfig parameterizes the synthetic demand generator named in
// spec §4.6's open question: agent_count agents, one per row, with
// departure times drawn uniformly over [WindowStart, WindowEnd) and
// origin/destination drawn uniformly over stops that belong to at
// least one route (isolated stops, if any slip through transfer-only
// construction, are never picked). Seed makes a run reproducible.
type RandomConfig struct {
	Count       int
	Seed        int64
	WindowStart int
	WindowEnd   int
}

// GenerateRandom builds Count agents per RandomConfig. Stops with no
// route membership are excluded from sampling since no RAPTOR query
// could ever board a trip there.
func GenerateRandom(net *network.Network, cfg RandomConfig) []Agent {
	candidates := make([]int, 0, net.NumStops())
	for _, s := range net.Stops {
		if len(s.Memberships) > 0 {
			candidates = append(candidates, s.ID)
		}
	}

	r := rand.New(rand.NewSource(cfg.Seed))
	agents := make([]Agent, 0, cfg.Count)
	span := cfg.WindowEnd - cfg.WindowStart

	for i := 0; i < cfg.Count; i++ {
		origin := candidates[r.Intn(len(candidates))]
		dest := candidates[r.Intn(len(candidates))]
		for dest == origin && len(candidates) > 1 {
			dest = candidates[r.Intn(len(candidates))]
		}
		departure := cfg.WindowStart
		if span > 0 {
			departure += r.Intn(span)
		}
		agents = append(agents, Agent{
			ID:                 i,
			Origin:             origin,
			Destination:        dest,
			DepartureNotBefore: departure,
			Count:              1,
		})
	}
	return agents
}
