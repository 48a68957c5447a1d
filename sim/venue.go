package sim

import (
	"errors"
	"fmt"
)

// Sentinel errors for callers to match with errors.Is.
var (
	// ErrUnknownZone is returned when a venue references a zone id that the
	// caller-supplied state does not carry (or vice versa).
	ErrUnknownZone = errors.New("unknown zone")
	// ErrUnknownGate is the gate-side counterpart of ErrUnknownZone.
	ErrUnknownGate = errors.New("unknown gate")
)

// Gate is an entry/exit point with a fixed per-minute throughput capacity.
// Gates are read-only topology: the engine never mutates a Gate, only the
// GateState tracked in CrowdState.
type Gate struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	CapacityPerMinute int      `yaml:"capacity_per_minute"`
	IsEmergencyExit   bool     `yaml:"is_emergency_exit"`
	IsOpen            bool     `yaml:"is_open"`
	ConnectedZones    []string `yaml:"connected_zones"`
}

// Zone is a venue section with a safe capacity and a floor area.
// Density (persons/m²) is always derived as occupancy / AreaSqm.
type Zone struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Capacity       int      `yaml:"capacity"`
	AreaSqm        float64  `yaml:"area_sqm"`
	ZoneType       string   `yaml:"zone_type"`
	ConnectedZones []string `yaml:"connected_zones"`
	ConnectedGates []string `yaml:"connected_gates"`
}

// Venue is the immutable zone/gate connectivity graph a simulation runs
// against. The graph is fixed for the duration of a run; per-step mutable
// quantities live in CrowdState.
type Venue struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	VenueType     string `yaml:"venue_type"`
	TotalCapacity int    `yaml:"total_capacity"`
	Zones         []Zone `yaml:"zones"`
	Gates         []Gate `yaml:"gates"`
}

// Zone returns the zone with the given id, or nil if absent.
func (v *Venue) Zone(id string) *Zone {
	for i := range v.Zones {
		if v.Zones[i].ID == id {
			return &v.Zones[i]
		}
	}
	return nil
}

// Gate returns the gate with the given id, or nil if absent.
func (v *Venue) Gate(id string) *Gate {
	for i := range v.Gates {
		if v.Gates[i].ID == id {
			return &v.Gates[i]
		}
	}
	return nil
}

// OpenGateCapacity returns the summed per-minute throughput of all open gates.
func (v *Venue) OpenGateCapacity() int {
	total := 0
	for i := range v.Gates {
		if v.Gates[i].IsOpen {
			total += v.Gates[i].CapacityPerMinute
		}
	}
	return total
}

// Validate checks structural invariants of the topology: unique ids, positive
// capacities and areas, and connectivity references that resolve. A venue
// that fails Validate must not be handed to the engine.
func (v *Venue) Validate() error {
	if len(v.Zones) == 0 {
		return fmt.Errorf("venue %q: at least one zone required", v.ID)
	}
	zoneIDs := make(map[string]bool, len(v.Zones))
	for i := range v.Zones {
		z := &v.Zones[i]
		if z.ID == "" {
			return fmt.Errorf("venue %q: zone %d has empty id", v.ID, i)
		}
		if zoneIDs[z.ID] {
			return fmt.Errorf("venue %q: duplicate zone id %q", v.ID, z.ID)
		}
		zoneIDs[z.ID] = true
		if z.Capacity <= 0 {
			return fmt.Errorf("zone %q: capacity must be positive, got %d", z.ID, z.Capacity)
		}
		if z.AreaSqm <= 0 {
			return fmt.Errorf("zone %q: area must be positive, got %g", z.ID, z.AreaSqm)
		}
	}
	gateIDs := make(map[string]bool, len(v.Gates))
	for i := range v.Gates {
		g := &v.Gates[i]
		if g.ID == "" {
			return fmt.Errorf("venue %q: gate %d has empty id", v.ID, i)
		}
		if gateIDs[g.ID] {
			return fmt.Errorf("venue %q: duplicate gate id %q", v.ID, g.ID)
		}
		gateIDs[g.ID] = true
		if g.CapacityPerMinute <= 0 {
			return fmt.Errorf("gate %q: capacity_per_minute must be positive, got %d", g.ID, g.CapacityPerMinute)
		}
		for _, zid := range g.ConnectedZones {
			if !zoneIDs[zid] {
				return fmt.Errorf("gate %q references %w %q", g.ID, ErrUnknownZone, zid)
			}
		}
	}
	for i := range v.Zones {
		z := &v.Zones[i]
		for _, zid := range z.ConnectedZones {
			if !zoneIDs[zid] {
				return fmt.Errorf("zone %q references %w %q", z.ID, ErrUnknownZone, zid)
			}
		}
		for _, gid := range z.ConnectedGates {
			if !gateIDs[gid] {
				return fmt.Errorf("zone %q references %w %q", z.ID, ErrUnknownGate, gid)
			}
		}
	}
	return nil
}
