package scenario

import (
	"time"

	"github.com/crowdflow-sim/crowdflow-sim/sim"
)

// Built-in scenarios used by the CLI (`run --scenario stadium-exit`) and as
// test fixtures. They are deliberately small enough to read end to end but
// carry the topology features the engine exercises: multiple stands feeding
// a shared concourse, unequal gate capacities, and a rail-dominated egress.

func mustParse(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

// StadiumExit is a 60,000-attendance football match focused on egress: most
// attendees are already inside and the interesting window is the hour after
// the final whistle.
func StadiumExit() *Spec {
	peakStart := mustParse("2025-03-15T21:45:00Z")
	peakEnd := mustParse("2025-03-15T23:00:00Z")

	return &Spec{
		ID:          "stadium-exit",
		Name:        "Stadium Exit Rush",
		Description: "60,000 fans exiting a national stadium after a league final",
		Venue: sim.Venue{
			ID:            "national-stadium",
			Name:          "National Stadium",
			VenueType:     "stadium",
			TotalCapacity: 65000,
			Zones: []sim.Zone{
				{ID: "north-stand", Name: "North Stand", Capacity: 18000, AreaSqm: 6000, ZoneType: "seating",
					ConnectedZones: []string{"concourse"}, ConnectedGates: []string{"gate-north"}},
				{ID: "south-stand", Name: "South Stand", Capacity: 20000, AreaSqm: 6500, ZoneType: "seating",
					ConnectedZones: []string{"concourse"}, ConnectedGates: []string{"gate-south"}},
				{ID: "east-stand", Name: "East Stand", Capacity: 15000, AreaSqm: 5000, ZoneType: "seating",
					ConnectedZones: []string{"concourse"}, ConnectedGates: []string{"gate-east"}},
				{ID: "west-stand", Name: "West Stand", Capacity: 12000, AreaSqm: 4500, ZoneType: "seating",
					ConnectedZones: []string{"concourse"}, ConnectedGates: []string{"gate-west"}},
				{ID: "concourse", Name: "Main Concourse", Capacity: 10000, AreaSqm: 8000, ZoneType: "concourse",
					ConnectedZones: []string{"north-stand", "south-stand", "east-stand", "west-stand"}},
			},
			Gates: []sim.Gate{
				{ID: "gate-north", Name: "Gate N", CapacityPerMinute: 300, IsOpen: true, ConnectedZones: []string{"north-stand"}},
				{ID: "gate-south", Name: "Gate S", CapacityPerMinute: 350, IsOpen: true, ConnectedZones: []string{"south-stand"}},
				{ID: "gate-east", Name: "Gate E", CapacityPerMinute: 250, IsOpen: true, ConnectedZones: []string{"east-stand"}},
				{ID: "gate-west", Name: "Gate W", CapacityPerMinute: 200, IsOpen: true, ConnectedZones: []string{"west-stand"}},
				{ID: "gate-emergency", Name: "Emergency Gate", CapacityPerMinute: 500, IsOpen: false, IsEmergencyExit: true,
					ConnectedZones: []string{"concourse"}},
			},
		},
		Event: EventSpec{
			ID:         "league-final-2025",
			Name:       "League Final",
			EventType:  "football",
			Attendance: 60000,
			GatesOpen:  mustParse("2025-03-15T17:30:00Z"),
			StartTime:  mustParse("2025-03-15T20:00:00Z"),
			EndTime:    mustParse("2025-03-15T22:00:00Z"),
		},
		Simulation: SimulationSpec{
			DtSeconds:       60,
			DurationMinutes: 60,
			ArrivalPattern:  sim.PatternLateSurge,
			Seed:            42,
		},
		InitialOccupancy: map[string]int{
			"north-stand": 16000,
			"south-stand": 19000,
			"east-stand":  14000,
			"west-stand":  11000,
		},
		Facilities: []sim.Facility{
			{ID: "north-restroom-m", Type: sim.FacilityRestroomMale, Name: "North Male Restroom", ZoneID: "north-stand", Capacity: 20, IsOperational: true},
			{ID: "north-restroom-f", Type: sim.FacilityRestroomFemale, Name: "North Female Restroom", ZoneID: "north-stand", Capacity: 15, IsOperational: true},
			{ID: "south-restroom-m", Type: sim.FacilityRestroomMale, Name: "South Male Restroom", ZoneID: "south-stand", Capacity: 20, IsOperational: true},
			{ID: "south-restroom-f", Type: sim.FacilityRestroomFemale, Name: "South Female Restroom", ZoneID: "south-stand", Capacity: 15, IsOperational: true},
			{ID: "food-court-main", Type: sim.FacilityFoodCourt, Name: "Main Food Court", ZoneID: "concourse", Capacity: 50, IsOperational: true},
			{ID: "merch-main", Type: sim.FacilityMerchandise, Name: "Main Merchandise Store", ZoneID: "concourse", Capacity: 15, IsOperational: true},
		},
		Exits: []sim.EmergencyExit{
			{ID: "exit-n1", Name: "North Exit 1", WidthMeters: 4, MaxFlowRate: 200, ConnectsTo: "north-stand", IsAccessible: true},
			{ID: "exit-s1", Name: "South Exit 1", WidthMeters: 4, MaxFlowRate: 200, ConnectsTo: "south-stand", IsAccessible: true},
			{ID: "exit-e1", Name: "East Exit 1", WidthMeters: 3, MaxFlowRate: 150, ConnectsTo: "east-stand", IsAccessible: true},
			{ID: "exit-w1", Name: "West Exit 1", WidthMeters: 3, MaxFlowRate: 150, ConnectsTo: "west-stand", IsAccessible: true},
			{ID: "exit-c1", Name: "Concourse Exit", WidthMeters: 6, MaxFlowRate: 300, ConnectsTo: "concourse", IsAccessible: true},
		},
		Transport: &TransportSpec{
			Station:      "Stadium Station",
			ServiceStart: mustParse("2025-03-15T16:00:00Z"),
			ServiceEnd:   mustParse("2025-03-16T00:30:00Z"),
			PeakStart:    &peakStart,
			PeakEnd:      &peakEnd,
		},
		Parking: []sim.ParkingLot{
			{ID: "lot-a", Name: "Parking Lot A (Main)", Capacity: 3000, WalkMinutes: 5},
			{ID: "lot-b", Name: "Parking Lot B (East)", Capacity: 2000, WalkMinutes: 8},
			{ID: "lot-overflow", Name: "Overflow Parking", Capacity: 1000, WalkMinutes: 12, IsOverflow: true},
		},
	}
}

// ArenaConcert is a 15,000-attendance indoor concert focused on entry: an
// early-rush arrival curve through two gates into a shared concourse.
func ArenaConcert() *Spec {
	return &Spec{
		ID:          "arena-concert",
		Name:        "Arena Concert Entry",
		Description: "15,000 attendees entering an indoor arena, early-rush pattern",
		Venue: sim.Venue{
			ID:            "city-arena",
			Name:          "City Arena",
			VenueType:     "arena",
			TotalCapacity: 16000,
			Zones: []sim.Zone{
				{ID: "main-concourse", Name: "Main Concourse", Capacity: 6000, AreaSqm: 4000, ZoneType: "concourse",
					ConnectedZones: []string{"floor", "seated-upper"}, ConnectedGates: []string{"gate-main", "gate-side"}},
				{ID: "floor", Name: "Standing Floor", Capacity: 6000, AreaSqm: 2500, ZoneType: "standing",
					ConnectedZones: []string{"main-concourse"}},
				{ID: "seated-upper", Name: "Upper Seating", Capacity: 4000, AreaSqm: 3000, ZoneType: "seating",
					ConnectedZones: []string{"main-concourse"}},
			},
			Gates: []sim.Gate{
				{ID: "gate-main", Name: "Main Gate", CapacityPerMinute: 200, IsOpen: true, ConnectedZones: []string{"main-concourse"}},
				{ID: "gate-side", Name: "Side Gate", CapacityPerMinute: 100, IsOpen: true, ConnectedZones: []string{"main-concourse"}},
			},
		},
		Event: EventSpec{
			ID:         "arena-concert-2025",
			Name:       "Arena World Tour Night",
			EventType:  "concert",
			Attendance: 15000,
			GatesOpen:  mustParse("2025-06-20T17:00:00Z"),
			StartTime:  mustParse("2025-06-20T20:00:00Z"),
			EndTime:    mustParse("2025-06-20T23:00:00Z"),
		},
		Simulation: SimulationSpec{
			DtSeconds:       60,
			DurationMinutes: 180,
			ArrivalPattern:  sim.PatternEarlyRush,
			Seed:            7,
		},
		Facilities: []sim.Facility{
			{ID: "arena-restroom-m-1", Type: sim.FacilityRestroomMale, Name: "Level 1 Male Restroom", ZoneID: "main-concourse", Capacity: 12, IsOperational: true},
			{ID: "arena-restroom-f-1", Type: sim.FacilityRestroomFemale, Name: "Level 1 Female Restroom", ZoneID: "main-concourse", Capacity: 10, IsOperational: true},
			{ID: "arena-food", Type: sim.FacilityFoodCourt, Name: "Arena Food Court", ZoneID: "main-concourse", Capacity: 30, IsOperational: true},
			{ID: "arena-merch", Type: sim.FacilityMerchandise, Name: "Merchandise Booth", ZoneID: "main-concourse", Capacity: 8, IsOperational: true},
		},
		Exits: []sim.EmergencyExit{
			{ID: "exit-a", Name: "Exit A", WidthMeters: 3, MaxFlowRate: 150, ConnectsTo: "main-concourse", IsAccessible: true},
			{ID: "exit-b", Name: "Exit B", WidthMeters: 3, MaxFlowRate: 150, ConnectsTo: "floor", IsAccessible: true},
			{ID: "exit-c", Name: "Exit C", WidthMeters: 2, MaxFlowRate: 100, ConnectsTo: "seated-upper", IsAccessible: true},
		},
		Transport: &TransportSpec{
			Station:      "Arena Station",
			ServiceStart: mustParse("2025-06-20T16:00:00Z"),
			ServiceEnd:   mustParse("2025-06-21T00:30:00Z"),
		},
	}
}

// Builtin returns a built-in scenario by id, nil if unknown.
func Builtin(id string) *Spec {
	switch id {
	case "stadium-exit":
		return StadiumExit()
	case "arena-concert":
		return ArenaConcert()
	default:
		return nil
	}
}
