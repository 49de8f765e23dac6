// Package journey reconstructs a rider-facing itinerary from a chosen
// RAPTOR label by walking its back-pointer chain, per spec §3's
// Journey/Leg model.
package journey

import (
	"git.fiblab.net/sim/crowding/v2/raptor"
)

// LegKind distinguishes a vehicle ride from a foot transfer in a
// reconstructed itinerary.
type LegKind int

const (
	Ride LegKind = iota
	Transfer
)

// Leg is one rider-facing segment of a Journey.
type Leg struct {
	Kind LegKind

	// Ride fields.
	TripID     int
	BoardStop  int
	AlightStop int
	BoardPos   int
	AlightPos  int
	BoardTime  int
	AlightTime int

	// Transfer fields.
	FromStop int
	ToStop   int
	Duration int
}

// Journey is the reconstructed itinerary for one agent: origin
// departure time, destination arrival time, accumulated generalized
// cost and transfer count, and the ordered legs between them.
type Journey struct {
	DepartureTime int
	ArrivalTime   int
	Cost          float64
	Transfers     int
	Legs          []Leg
}

// Reconstruct walks h's back-pointer chain in a finished Query back to
// the origin label, collapsing consecutive ride legs on the same trip
// into a single leg and dropping zero-duration self transfers, per
// spec §3.
func Reconstruct(q *raptor.Query, h raptor.Handle) Journey {
	var chain []raptor.Label
	for {
		l := q.Label(h)
		chain = append(chain, l)
		if l.Pred < 0 {
			break
		}
		h = l.Pred
	}

	// chain is destination-to-origin; reverse it.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	j := Journey{
		DepartureTime: chain[0].Arrival,
		ArrivalTime:   chain[len(chain)-1].Arrival,
		Cost:          chain[len(chain)-1].Cost,
		Transfers:     chain[len(chain)-1].Transfers,
	}

	for _, l := range chain[1:] {
		leg := convertLeg(l.Leg)
		if leg.Kind == Transfer && leg.Duration == 0 {
			continue
		}
		if leg.Kind == Ride && len(j.Legs) > 0 {
			prev := &j.Legs[len(j.Legs)-1]
			if prev.Kind == Ride && prev.TripID == leg.TripID && prev.AlightStop == leg.BoardStop {
				prev.AlightStop = leg.AlightStop
				prev.AlightPos = leg.AlightPos
				prev.AlightTime = leg.AlightTime
				continue
			}
		}
		j.Legs = append(j.Legs, leg)
	}

	return j
}

func convertLeg(l raptor.Leg) Leg {
	kind := Ride
	if l.Kind == raptor.LegTransfer {
		kind = Transfer
	}
	return Leg{
		Kind:       kind,
		TripID:     l.TripID,
		BoardStop:  l.BoardStop,
		AlightStop: l.AlightStop,
		BoardPos:   l.BoardPos,
		AlightPos:  l.AlightPos,
		BoardTime:  l.BoardTime,
		AlightTime: l.AlightTime,
		FromStop:   l.FromStop,
		ToStop:     l.ToStop,
		Duration:   l.Duration,
	}
}
