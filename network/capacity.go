package network

import "github.com/sirupsen/logrus"

// CapacityOverride is one row of a post-hoc capacity correction report
// (spec §6): override the seated/standing capacity carried at build
// time for one trip, identified by its external id.
type CapacityOverride struct {
	TripExternalID string
	Capacity       Capacity
}

// ApplyCapacityOverrides mutates net's trips in place, replacing the
// capacity of every trip named in overrides. Unlike Build's errors,
// an override naming an unknown trip id is not fatal — spec §6 treats
// a stale or misspelled report row as a data-quality warning, not a
// build failure — but every unknown id is logged exactly once even if
// it appears in many rows.
func ApplyCapacityOverrides(net *Network, overrides []CapacityOverride) {
	warned := make(map[string]bool)
	for _, o := range overrides {
		tripID, ok := net.externalTripID[o.TripExternalID]
		if !ok {
			if !warned[o.TripExternalID] {
				warned[o.TripExternalID] = true
				logrus.Warnf("network: capacity override references unknown trip %q, ignoring", o.TripExternalID)
			}
			continue
		}
		net.Trips[tripID].Capacity = o.Capacity
	}
}
