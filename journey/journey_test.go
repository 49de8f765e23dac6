package journey_test

import (
	"context"
	"testing"

	"git.fiblab.net/sim/crowding/v2/crowding"
	"git.fiblab.net/sim/crowding/v2/journey"
	"git.fiblab.net/sim/crowding/v2/network"
	"git.fiblab.net/sim/crowding/v2/raptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zeroOccupancy struct{}

func (zeroOccupancy) Load(tripID, segmentIndex int) int { return 0 }

func threeStopWithTransfer() *network.Network {
	return &network.Network{
		Stops: []network.Stop{
			{ID: 0, Memberships: []network.StopRoutePosition{{Route: 0, Pos: 0}}},
			{ID: 1, Memberships: []network.StopRoutePosition{{Route: 0, Pos: 1}}},
			{ID: 2, Memberships: []network.StopRoutePosition{{Route: 1, Pos: 0}}},
			{ID: 3, Memberships: []network.StopRoutePosition{{Route: 1, Pos: 1}}},
		},
		Routes: []network.Route{
			{ID: 0, StopIDs: []int{0, 1}, TripIDs: []int{0}},
			{ID: 1, StopIDs: []int{2, 3}, TripIDs: []int{1}},
		},
		Trips: []network.Trip{
			{ID: 0, Route: 0, StopTimes: []network.StopTime{{Arrival: 0, Departure: 0}, {Arrival: 300, Departure: 300}}, Capacity: network.Capacity{Seated: 50, Standing: 20}},
			{ID: 1, Route: 1, StopTimes: []network.StopTime{{Arrival: 400, Departure: 400}, {Arrival: 700, Departure: 700}}, Capacity: network.Capacity{Seated: 50, Standing: 20}},
		},
		Transfers: [][]network.Transfer{
			{},
			{{To: 2, Duration: 60}},
			{},
			{},
		},
	}
}

func TestReconstructRideTransferRideLegs(t *testing.T) {
	net := threeStopWithTransfer()
	params := raptor.Params{BagSize: 3, MaxRounds: 5, CostUtility: 1.0, Crowding: crowding.Function{Kind: crowding.Linear}}
	q := raptor.NewQuery(net, zeroOccupancy{}, params)
	bag, reached := q.Run(context.Background(), 0, 3, 0)
	require.True(t, reached)

	best := bag[0]
	for _, h := range bag {
		if q.Label(h).Arrival < q.Label(best).Arrival {
			best = h
		}
	}

	j := journey.Reconstruct(q, best)
	assert.Equal(t, 0, j.DepartureTime)
	assert.Equal(t, 700, j.ArrivalTime)

	require.Len(t, j.Legs, 3)
	assert.Equal(t, journey.Ride, j.Legs[0].Kind)
	assert.Equal(t, 0, j.Legs[0].BoardStop)
	assert.Equal(t, 1, j.Legs[0].AlightStop)

	assert.Equal(t, journey.Transfer, j.Legs[1].Kind)
	assert.Equal(t, 1, j.Legs[1].FromStop)
	assert.Equal(t, 2, j.Legs[1].ToStop)

	assert.Equal(t, journey.Ride, j.Legs[2].Kind)
	assert.Equal(t, 2, j.Legs[2].BoardStop)
	assert.Equal(t, 3, j.Legs[2].AlightStop)
}
