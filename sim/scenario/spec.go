// Package scenario defines YAML-loadable simulation scenarios: a venue
// topology, event timing, facilities, emergency exits, and transport
// timetable parameters, bundled so the CLI and tests can bootstrap a full
// run from one file.
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crowdflow-sim/crowdflow-sim/sim"
)

// EventSpec is the event timing and attendance block.
type EventSpec struct {
	ID         string    `yaml:"id"`
	Name       string    `yaml:"name"`
	EventType  string    `yaml:"event_type"`
	Attendance int       `yaml:"expected_attendance"`
	GatesOpen  time.Time `yaml:"gates_open"`
	StartTime  time.Time `yaml:"start_time"`
	EndTime    time.Time `yaml:"end_time"`
}

// SimulationSpec selects how the run is driven.
type SimulationSpec struct {
	DtSeconds       float64            `yaml:"dt_seconds"`
	DurationMinutes int                `yaml:"duration_minutes"`
	ArrivalPattern  sim.ArrivalPattern `yaml:"arrival_pattern"`
	Seed            int64              `yaml:"seed"`
}

// TransportSpec parametrizes rail timetable generation for the event window.
type TransportSpec struct {
	Station      string     `yaml:"station"`
	ServiceStart time.Time  `yaml:"service_start"`
	ServiceEnd   time.Time  `yaml:"service_end"`
	PeakStart    *time.Time `yaml:"peak_start,omitempty"`
	PeakEnd      *time.Time `yaml:"peak_end,omitempty"`

	RailPeakFrequencyMin    int `yaml:"rail_peak_frequency_min"`
	RailOffpeakFrequencyMin int `yaml:"rail_offpeak_frequency_min"`
	RailCapacity            int `yaml:"rail_capacity"`
	RailWalkMinutes         int `yaml:"rail_walk_minutes"`
}

// Spec is a complete scenario file.
type Spec struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Venue      sim.Venue      `yaml:"venue"`
	Event      EventSpec      `yaml:"event"`
	Simulation SimulationSpec `yaml:"simulation"`

	// InitialOccupancy pre-seeds zones (exit/evacuation scenarios).
	InitialOccupancy map[string]int `yaml:"initial_occupancy,omitempty"`

	Facilities []sim.Facility      `yaml:"facilities,omitempty"`
	Exits      []sim.EmergencyExit `yaml:"emergency_exits,omitempty"`
	Transport  *TransportSpec      `yaml:"transport,omitempty"`
	Parking    []sim.ParkingLot    `yaml:"parking,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &spec, nil
}

// Validate rejects specs the simulators cannot run with. This is the only
// place scenario input is checked; the engine assumes a validated topology.
func (s *Spec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("scenario id required")
	}
	if err := s.Venue.Validate(); err != nil {
		return fmt.Errorf("venue: %w", err)
	}
	if s.Event.Attendance < 0 {
		return fmt.Errorf("expected_attendance must be non-negative, got %d", s.Event.Attendance)
	}
	if !s.Event.StartTime.After(s.Event.GatesOpen) {
		return fmt.Errorf("event start %s must be after gates open %s", s.Event.StartTime, s.Event.GatesOpen)
	}
	if !s.Event.EndTime.After(s.Event.StartTime) {
		return fmt.Errorf("event end %s must be after start %s", s.Event.EndTime, s.Event.StartTime)
	}
	switch s.Simulation.ArrivalPattern {
	case "", sim.PatternNormal, sim.PatternEarlyRush, sim.PatternLateSurge, sim.PatternWave:
	default:
		return fmt.Errorf("unknown arrival pattern %q", s.Simulation.ArrivalPattern)
	}
	for zid := range s.InitialOccupancy {
		if s.Venue.Zone(zid) == nil {
			return fmt.Errorf("initial_occupancy references unknown zone %q", zid)
		}
	}
	for i := range s.Facilities {
		f := &s.Facilities[i]
		if f.ID == "" {
			return fmt.Errorf("facility %d has empty id", i)
		}
		if f.Capacity <= 0 {
			return fmt.Errorf("facility %q: capacity must be positive, got %d", f.ID, f.Capacity)
		}
		if s.Venue.Zone(f.ZoneID) == nil {
			return fmt.Errorf("facility %q references unknown zone %q", f.ID, f.ZoneID)
		}
	}
	for i := range s.Exits {
		e := &s.Exits[i]
		if e.ID == "" {
			return fmt.Errorf("emergency exit %d has empty id", i)
		}
		if e.MaxFlowRate <= 0 {
			return fmt.Errorf("exit %q: max_flow_rate must be positive, got %d", e.ID, e.MaxFlowRate)
		}
		if e.ConnectsTo != "" && s.Venue.Zone(e.ConnectsTo) == nil {
			return fmt.Errorf("exit %q references unknown zone %q", e.ID, e.ConnectsTo)
		}
	}
	return nil
}

// Pattern returns the configured arrival pattern, defaulting to normal.
func (s *Spec) Pattern() sim.ArrivalPattern {
	if s.Simulation.ArrivalPattern == "" {
		return sim.PatternNormal
	}
	return s.Simulation.ArrivalPattern
}

// Dt returns the configured timestep, defaulting to 60 seconds.
func (s *Spec) Dt() float64 {
	if s.Simulation.DtSeconds <= 0 {
		return 60
	}
	return s.Simulation.DtSeconds
}

// BuildTransportSchedule materializes the rail timetable, or nil when the
// scenario has no transport block.
func (s *Spec) BuildTransportSchedule() *sim.TransportSchedule {
	if s.Transport == nil {
		return nil
	}
	ts := sim.DefaultTransportSchedule()
	if s.Transport.RailPeakFrequencyMin > 0 {
		ts.RailPeakFrequencyMin = s.Transport.RailPeakFrequencyMin
	}
	if s.Transport.RailOffpeakFrequencyMin > 0 {
		ts.RailOffpeakFrequencyMin = s.Transport.RailOffpeakFrequencyMin
	}
	if s.Transport.RailCapacity > 0 {
		ts.RailCapacity = s.Transport.RailCapacity
	}
	if s.Transport.RailWalkMinutes > 0 {
		ts.RailWalkMinutes = s.Transport.RailWalkMinutes
	}
	ts.AddRailSchedule(s.Transport.ServiceStart, s.Transport.ServiceEnd,
		s.Transport.PeakStart, s.Transport.PeakEnd, s.Transport.Station)
	return ts
}

// BuildEvacuationZones derives per-zone evacuation state from the venue
// topology, the scenario's exits, and either the supplied occupancy map or
// the scenario's initial occupancy.
func (s *Spec) BuildEvacuationZones(occupancy map[string]int) []sim.EvacuationZone {
	if occupancy == nil {
		occupancy = s.InitialOccupancy
	}

	// Exits are matched to zones by their connects_to_zone declaration.
	exitsByZone := make(map[string][]string)
	for i := range s.Exits {
		e := &s.Exits[i]
		exitsByZone[e.ConnectsTo] = append(exitsByZone[e.ConnectsTo], e.ID)
	}

	zones := make([]sim.EvacuationZone, 0, len(s.Venue.Zones))
	for i := range s.Venue.Zones {
		z := &s.Venue.Zones[i]
		zones = append(zones, sim.EvacuationZone{
			ZoneID:          z.ID,
			Occupancy:       occupancy[z.ID],
			AreaSqm:         z.AreaSqm,
			NearestExits:    exitsByZone[z.ID],
			DistanceToExits: map[string]float64{},
		})
	}
	return zones
}
