package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"git.fiblab.net/sim/crowding/v2/crowding"
	"git.fiblab.net/sim/crowding/v2/journey"
	"git.fiblab.net/sim/crowding/v2/network"
	"git.fiblab.net/sim/crowding/v2/simulate"
)

// outputJourneyLeg and outputJourney mirror journey.Leg/Journey with
// yaml tags, keeping the wire shape of the output file independent of
// the internal struct layout. Ids are converted from the internal
// dense integers to GTFS-level external ids here, at the serialization
// boundary (spec §6's per-agent-journey external interface names
// trip_external_id and stop ids, not the dense ids RAPTOR operates on
// internally).
type outputJourneyLeg struct {
	Kind           string `yaml:"kind"`
	TripExternalID string `yaml:"trip_external_id,omitempty"`
	BoardStopID    string `yaml:"board_stop_id,omitempty"`
	AlightStopID   string `yaml:"alight_stop_id,omitempty"`
	BoardTime      int    `yaml:"board_time,omitempty"`
	AlightTime     int    `yaml:"alight_time,omitempty"`
	FromStopID     string `yaml:"from_stop_id,omitempty"`
	ToStopID       string `yaml:"to_stop_id,omitempty"`
	Duration       int    `yaml:"duration,omitempty"`
}

type outputJourney struct {
	DepartureTime int                `yaml:"departure_time"`
	ArrivalTime   int                `yaml:"arrival_time"`
	Cost          float64            `yaml:"cost"`
	Transfers     int                `yaml:"transfers"`
	Legs          []outputJourneyLeg `yaml:"legs"`
}

type outputAgent struct {
	AgentID int            `yaml:"agent_id"`
	Journey *outputJourney `yaml:"journey,omitempty"`
}

type outputSegmentLoad struct {
	TripExternalID string `yaml:"trip_external_id"`
	SegmentIndex   int    `yaml:"segment_index"`
	Load           int    `yaml:"load"`
}

type outputResult struct {
	Agents      []outputAgent       `yaml:"agents"`
	Segments    []outputSegmentLoad `yaml:"segments"`
	Unreachable int                 `yaml:"unreachable"`
	Rounds      int                 `yaml:"rounds"`
}

type outputCrowdingSamplePoint struct {
	Load          int     `yaml:"load"`
	CostPerMinute float64 `yaml:"cost_per_minute"`
}

// writeCrowdingSample serializes fn's load -> per-minute cost table
// (spec §6's "crowding function sample" output) for (seated, standing)
// over 0..maxLoad to path, so the configured crowding function can be
// visually verified without running a simulation.
func writeCrowdingSample(path string, fn crowding.Function, seated, standing, maxLoad int) error {
	points := fn.Sample(seated, standing, maxLoad)
	out := make([]outputCrowdingSamplePoint, len(points))
	for i, p := range points {
		out[i] = outputCrowdingSamplePoint{Load: p.Load, CostPerMinute: p.Cost}
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling crowding sample: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing crowding sample: %w", err)
	}
	return nil
}

// writeResult serializes a simulation result to path as YAML: one
// journey per agent plus the final per-segment load table. net
// supplies the dense-to-external id mapping for the external-facing
// fields (spec §6).
func writeResult(path string, net *network.Network, result *simulate.Result) error {
	out := outputResult{
		Unreachable: result.Unreachable,
		Rounds:      result.Rounds,
	}

	for _, a := range result.Agents {
		oa := outputAgent{AgentID: a.AgentID}
		if a.Journey != nil {
			oj := &outputJourney{
				DepartureTime: a.Journey.DepartureTime,
				ArrivalTime:   a.Journey.ArrivalTime,
				Cost:          a.Journey.Cost,
				Transfers:     a.Journey.Transfers,
			}
			for _, l := range a.Journey.Legs {
				oj.Legs = append(oj.Legs, convertOutputLeg(net, l))
			}
			oa.Journey = oj
		}
		out.Agents = append(out.Agents, oa)
	}

	for _, s := range result.Segments {
		out.Segments = append(out.Segments, outputSegmentLoad{
			TripExternalID: net.Trips[s.TripID].ExternalID,
			SegmentIndex:   s.SegmentIndex,
			Load:           s.Load,
		})
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}

func convertOutputLeg(net *network.Network, l journey.Leg) outputJourneyLeg {
	if l.Kind == journey.Transfer {
		return outputJourneyLeg{
			Kind:       "transfer",
			FromStopID: net.Stops[l.FromStop].ExternalID,
			ToStopID:   net.Stops[l.ToStop].ExternalID,
			Duration:   l.Duration,
		}
	}
	return outputJourneyLeg{
		Kind:           "ride",
		TripExternalID: net.Trips[l.TripID].ExternalID,
		BoardStopID:    net.Stops[l.BoardStop].ExternalID,
		AlightStopID:   net.Stops[l.AlightStop].ExternalID,
		BoardTime:      l.BoardTime,
		AlightTime:     l.AlightTime,
	}
}
