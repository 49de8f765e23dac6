package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"git.fiblab.net/sim/crowding/v2/demand"
	"git.fiblab.net/sim/crowding/v2/network"
	"git.fiblab.net/sim/crowding/v2/simulate"
)

var (
	benchmarkMinThreads = flag.Int("benchmark.min_threads", 1, "smallest thread count in the benchmark sweep")
	benchmarkMaxThreads = flag.Int("benchmark.max_threads", 8, "largest thread count in the benchmark sweep")
)

// runBenchmark runs the same simulation across a sweep of thread counts
// and reports wall time per count, then checks that every run produced
// an identical assignment regardless of how many goroutines computed it
// (outcomes should not depend on thread count, only wall time does).
func runBenchmark(ctx context.Context, net *network.Network, agents []demand.Agent, cfg *Config) {
	logrus.SetLevel(logrus.WarnLevel)

	simCfg := simulate.Config{
		OuterRounds: cfg.OuterRounds,
		BagSize:     cfg.BagSize,
		MaxRounds:   cfg.MaxRounds,
		CostUtility: cfg.CostUtility,
		Crowding:    cfg.Crowding.Build(),
		StepSeconds: cfg.StepSeconds,
	}

	var baseline *simulate.Result
	for threads := *benchmarkMinThreads; threads <= *benchmarkMaxThreads; threads++ {
		simCfg.Threads = threads

		start := time.Now()
		result, err := simulate.Run(ctx, net, agents, simCfg, nil)
		elapsed := time.Since(start)
		if err != nil {
			logrus.Errorf("benchmark: threads=%d failed: %v", threads, err)
			continue
		}

		logrus.Warnf("benchmark: threads=%-2d agents=%-6d unreachable=%-4d time=%s",
			threads, len(result.Agents), result.Unreachable, elapsed)

		if baseline == nil {
			baseline = result
			continue
		}
		if diff := firstAssignmentDivergence(baseline, result); diff != "" {
			logrus.Errorf("benchmark: threads=%d diverged from threads=%d baseline: %s", threads, *benchmarkMinThreads, diff)
		}
	}
}

// firstAssignmentDivergence compares two results agent-by-agent and
// returns a description of the first mismatch, or "" if they agree.
func firstAssignmentDivergence(a, b *simulate.Result) string {
	if len(a.Agents) != len(b.Agents) {
		return fmt.Sprintf("agent count %d vs %d", len(a.Agents), len(b.Agents))
	}
	byID := make(map[int]*simulate.AgentJourney, len(b.Agents))
	for i := range b.Agents {
		byID[b.Agents[i].AgentID] = &b.Agents[i]
	}
	for i := range a.Agents {
		aj := a.Agents[i]
		bj, ok := byID[aj.AgentID]
		if !ok {
			return fmt.Sprintf("agent %d missing", aj.AgentID)
		}
		if (aj.Journey == nil) != (bj.Journey == nil) {
			return fmt.Sprintf("agent %d reachability differs", aj.AgentID)
		}
		if aj.Journey == nil {
			continue
		}
		if aj.Journey.ArrivalTime != bj.Journey.ArrivalTime || aj.Journey.Cost != bj.Journey.Cost {
			return fmt.Sprintf("agent %d arrival/cost differs: %d/%.3f vs %d/%.3f",
				aj.AgentID, aj.Journey.ArrivalTime, aj.Journey.Cost, bj.Journey.ArrivalTime, bj.Journey.Cost)
		}
	}
	return ""
}
