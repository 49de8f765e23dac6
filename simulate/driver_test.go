package simulate_test

import (
	"context"
	"testing"

	"git.fiblab.net/sim/crowding/v2/crowding"
	"git.fiblab.net/sim/crowding/v2/demand"
	"git.fiblab.net/sim/crowding/v2/network"
	"git.fiblab.net/sim/crowding/v2/simulate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineNetwork(t *testing.T) *network.Network {
	n, err := network.Build(network.BuildInput{
		Stops: []network.RawStop{
			{ExternalID: "A"},
			{ExternalID: "B"},
		},
		StopTimes: []network.RawStopTime{
			{TripExternalID: "T1", StopExternalID: "A", Sequence: 0, Arrival: 0, Departure: 0},
			{TripExternalID: "T1", StopExternalID: "B", Sequence: 1, Arrival: 600, Departure: 600},
			{TripExternalID: "T2", StopExternalID: "A", Sequence: 0, Arrival: 900, Departure: 900},
			{TripExternalID: "T2", StopExternalID: "B", Sequence: 1, Arrival: 1500, Departure: 1500},
		},
		Trips: []network.RawTrip{
			{ExternalID: "T1", ServiceID: "WD"},
			{ExternalID: "T2", ServiceID: "WD"},
		},
		Calendar: []network.RawCalendar{
			{ServiceID: "WD", Weekday: [7]bool{true, true, true, true, true, true, true}, StartDate: "20260101", EndDate: "20261231"},
		},
		ModelDate:       "20260106",
		DefaultCapacity: network.Capacity{Seated: 2, Standing: 0},
	})
	require.NoError(t, err)
	return n
}

func testConfig() simulate.Config {
	return simulate.Config{
		OuterRounds: 2,
		BagSize:     3,
		MaxRounds:   5,
		CostUtility: 1.0,
		Crowding:    crowding.Function{Kind: crowding.Linear},
		StepSeconds: 3600,
		Threads:     2,
	}
}

func TestRunAssignsReachableAgents(t *testing.T) {
	net := lineNetwork(t)
	agents := []demand.Agent{
		{ID: 0, Origin: 0, Destination: 1, DepartureNotBefore: 0, Count: 1},
		{ID: 1, Origin: 0, Destination: 1, DepartureNotBefore: 0, Count: 1},
	}

	result, err := simulate.Run(context.Background(), net, agents, testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Unreachable)
	require.Len(t, result.Agents, 2)
	for _, aj := range result.Agents {
		require.NotNil(t, aj.Journey)
		assert.Equal(t, 600, aj.Journey.ArrivalTime)
	}
}

func TestRunCountsUnreachableAgents(t *testing.T) {
	net := lineNetwork(t)
	net.Stops = append(net.Stops, network.Stop{ID: 2})
	net.Transfers = append(net.Transfers, []network.Transfer{})

	agents := []demand.Agent{
		{ID: 0, Origin: 0, Destination: 2, DepartureNotBefore: 0, Count: 1},
	}

	result, err := simulate.Run(context.Background(), net, agents, testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unreachable)
	assert.Nil(t, result.Agents[0].Journey)
}

func TestRunRespectsCancellation(t *testing.T) {
	net := lineNetwork(t)
	agents := []demand.Agent{
		{ID: 0, Origin: 0, Destination: 1, DepartureNotBefore: 0, Count: 1},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := simulate.Run(ctx, net, agents, testConfig(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunEmitsStartedEventWithRoundsAndSteps(t *testing.T) {
	net := lineNetwork(t)
	agents := []demand.Agent{
		{ID: 0, Origin: 0, Destination: 1, DepartureNotBefore: 0, Count: 1},
	}

	events := make(chan simulate.Event, 16)
	obs := &simulate.Observer{Events: events}

	_, err := simulate.Run(context.Background(), net, agents, testConfig(), obs)
	require.NoError(t, err)

	started := <-events
	assert.Equal(t, simulate.Started, started.Kind)
	assert.Equal(t, testConfig().OuterRounds, started.Rounds)
	assert.Equal(t, 1, started.Steps)
}

// TestOccupancyIsVisibleToLaterStepsInTheSameRound checks the
// step-to-step ordering guarantee of spec §5: two agents departing in
// different simulation steps of the same single round, both riding
// the same trip segment, must see strictly increasing crowding cost —
// the second agent's RAPTOR query has to read the occupancy the first
// agent's step already added, not the round's starting (zero)
// snapshot.
func TestOccupancyIsVisibleToLaterStepsInTheSameRound(t *testing.T) {
	net, err := network.Build(network.BuildInput{
		Stops: []network.RawStop{
			{ExternalID: "A"},
			{ExternalID: "B"},
		},
		StopTimes: []network.RawStopTime{
			{TripExternalID: "T1", StopExternalID: "A", Sequence: 0, Arrival: 1000, Departure: 1000},
			{TripExternalID: "T1", StopExternalID: "B", Sequence: 1, Arrival: 1600, Departure: 1600},
		},
		Trips: []network.RawTrip{{ExternalID: "T1", ServiceID: "WD"}},
		Calendar: []network.RawCalendar{
			{ServiceID: "WD", Weekday: [7]bool{true, true, true, true, true, true, true}, StartDate: "20260101", EndDate: "20261231"},
		},
		ModelDate:       "20260106",
		DefaultCapacity: network.Capacity{Seated: 1, Standing: 0},
	})
	require.NoError(t, err)

	agents := []demand.Agent{
		{ID: 0, Origin: 0, Destination: 1, DepartureNotBefore: 0, Count: 1},
		{ID: 1, Origin: 0, Destination: 1, DepartureNotBefore: 500, Count: 1},
	}

	cfg := testConfig()
	cfg.OuterRounds = 1
	cfg.StepSeconds = 500

	result, err := simulate.Run(context.Background(), net, agents, cfg, nil)
	require.NoError(t, err)
	require.Len(t, result.Agents, 2)
	require.NotNil(t, result.Agents[0].Journey)
	require.NotNil(t, result.Agents[1].Journey)

	assert.Equal(t, 600.0, result.Agents[0].Journey.Cost, "first agent's step sees an empty table")
	assert.Greater(t, result.Agents[1].Journey.Cost, result.Agents[0].Journey.Cost,
		"second agent's step must see the first agent's occupancy already added")
}

// TestCrowdingFeedsBackAcrossRounds checks property: with two riders
// sharing a two-seat trip and a cost_utility weight, at least one
// agent's accumulated cost reflects nonzero crowding disutility once
// both ride the same segment.
func TestCrowdingFeedsBackAcrossRounds(t *testing.T) {
	net := lineNetwork(t)
	agents := []demand.Agent{
		{ID: 0, Origin: 0, Destination: 1, DepartureNotBefore: 0, Count: 1},
		{ID: 1, Origin: 0, Destination: 1, DepartureNotBefore: 0, Count: 1},
	}

	result, err := simulate.Run(context.Background(), net, agents, testConfig(), nil)
	require.NoError(t, err)

	travelTime := 600.0
	foundCrowded := false
	for _, aj := range result.Agents {
		require.NotNil(t, aj.Journey)
		if aj.Journey.Cost > travelTime {
			foundCrowded = true
		}
	}
	assert.True(t, foundCrowded)
}
