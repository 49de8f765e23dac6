package occupancy_test

import (
	"sync"
	"testing"

	"git.fiblab.net/sim/crowding/v2/network"
	"git.fiblab.net/sim/crowding/v2/occupancy"
	"github.com/stretchr/testify/assert"
)

func testNetwork() *network.Network {
	return &network.Network{
		Trips: []network.Trip{
			{ID: 0, StopTimes: make([]network.StopTime, 3)},
			{ID: 1, StopTimes: make([]network.StopTime, 2)},
		},
		Routes: []network.Route{{StopIDs: make([]int, 3)}, {StopIDs: make([]int, 2)}},
	}
}

func TestAddAndLoad(t *testing.T) {
	net := testNetwork()
	tab := occupancy.New(net)

	tab.Add(0, 1, 3)
	assert.Equal(t, 3, tab.Load(0, 1))
	assert.Equal(t, 0, tab.Load(0, 0))
	assert.Equal(t, 0, tab.Load(1, 0))
}

func TestReset(t *testing.T) {
	net := testNetwork()
	tab := occupancy.New(net)
	tab.Add(0, 0, 5)
	tab.Reset()
	assert.Equal(t, 0, tab.Load(0, 0))
}

func TestAddJourneyRide(t *testing.T) {
	net := testNetwork()
	tab := occupancy.New(net)
	tab.AddJourneyRide(0, 0, 2, 1)
	assert.Equal(t, 1, tab.Load(0, 0))
	assert.Equal(t, 1, tab.Load(0, 1))
}

func TestAddJourneyRideWeightsByCount(t *testing.T) {
	net := testNetwork()
	tab := occupancy.New(net)
	tab.AddJourneyRide(0, 0, 2, 5)
	assert.Equal(t, 5, tab.Load(0, 0))
	assert.Equal(t, 5, tab.Load(0, 1))
}

func TestConcurrentAdds(t *testing.T) {
	net := testNetwork()
	tab := occupancy.New(net)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tab.Add(0, 0, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, tab.Load(0, 0))
}
