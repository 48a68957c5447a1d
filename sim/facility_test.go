package sim

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func restroomBlock(capacity int) []Facility {
	return []Facility{
		{ID: "wc-m", Type: FacilityRestroomMale, Name: "Male Restroom", ZoneID: "concourse",
			Capacity: capacity, IsOperational: true},
	}
}

func TestSimulateStep_HalftimeDemandIsFiveTimesEntry(t *testing.T) {
	// GIVEN two identical restrooms whose tiny capacity leaves arrivals queued
	entry := NewFacilitySimulator(restroomBlock(1), nil)
	halftime := NewFacilitySimulator(restroomBlock(1), nil)
	pops := map[string]int{"concourse": 10000}
	now := time.Now()

	// WHEN one minute of entry-phase and one minute of halftime demand arrive
	entryStates, err := entry.SimulateStep(now, PhaseEntry, pops, 60)
	if err != nil {
		t.Fatalf("entry step: %v", err)
	}
	halfStates, err := halftime.SimulateStep(now, PhaseHalftime, pops, 60)
	if err != nil {
		t.Fatalf("halftime step: %v", err)
	}

	// THEN halftime queues exactly 5x the entry arrivals (20 vs 100)
	if entryStates[0].CurrentQueue != 20 {
		t.Errorf("entry queue = %d, want 20", entryStates[0].CurrentQueue)
	}
	if halfStates[0].CurrentQueue != 100 {
		t.Errorf("halftime queue = %d, want 100", halfStates[0].CurrentQueue)
	}
}

func TestSimulateStep_StatusTiersByWaitTime(t *testing.T) {
	// GIVEN a single-stall restroom (wait = queue × 1.5 min), zone populations
	// sized to land in each tier
	cases := []struct {
		name       string
		population int
		wantStatus string
	}{
		{"normal", 1000, "normal"},        // 2 queued, 3 min
		{"busy", 3000, "busy"},            // 6 queued, 9 min
		{"overcrowded", 20000, "overcrowded"}, // 40 queued, 60 min
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sim := NewFacilitySimulator(restroomBlock(1), nil)

			// WHEN one minute of entry demand arrives
			states, err := sim.SimulateStep(time.Now(), PhaseEntry, map[string]int{"concourse": tc.population}, 60)
			if err != nil {
				t.Fatalf("SimulateStep: %v", err)
			}

			// THEN the wait-time breakpoints (7 and 15 min) pick the status
			if states[0].Status != tc.wantStatus {
				t.Errorf("population %d: status = %s (wait %.1f min), want %s",
					tc.population, states[0].Status, states[0].WaitTimeMinutes, tc.wantStatus)
			}
		})
	}
}

func TestSimulateStep_CompletionsCappedByServiceRate(t *testing.T) {
	// GIVEN 50 people already queued at 10 stalls with 60s service
	facilities := []Facility{
		{ID: "food", Type: FacilityFoodStall, Name: "Food Stall Row", ZoneID: "concourse",
			Capacity: 10, ServiceTimeAvg: 60, IsOperational: true, CurrentQueue: 50},
	}
	sim := NewFacilitySimulator(facilities, nil)

	// WHEN one minute passes with nobody new arriving
	states, err := sim.SimulateStep(time.Now(), PhaseEventStart, map[string]int{}, 60)
	if err != nil {
		t.Fatalf("SimulateStep: %v", err)
	}

	// THEN only the 10/min service ceiling clears
	if states[0].CurrentQueue != 40 {
		t.Errorf("queue = %d, want 40 (served 10 of 50)", states[0].CurrentQueue)
	}
	if got := sim.Facility("food").TotalServed; got != 10 {
		t.Errorf("total served = %d, want 10", got)
	}
	if states[0].UtilizationPercent != 100 {
		t.Errorf("utilization = %.1f%%, want 100", states[0].UtilizationPercent)
	}
}

func TestSimulateStep_SkipsNonOperationalFacilities(t *testing.T) {
	// GIVEN one open and one closed restroom
	facilities := []Facility{
		{ID: "wc-open", Type: FacilityRestroomMale, Name: "Open", ZoneID: "z", Capacity: 5, IsOperational: true},
		{ID: "wc-shut", Type: FacilityRestroomMale, Name: "Shut", ZoneID: "z", Capacity: 5, IsOperational: false},
	}
	sim := NewFacilitySimulator(facilities, nil)

	states, err := sim.SimulateStep(time.Now(), PhaseEntry, map[string]int{"z": 5000}, 60)
	if err != nil {
		t.Fatalf("SimulateStep: %v", err)
	}

	// THEN only the operational facility reports state
	if len(states) != 1 || states[0].FacilityID != "wc-open" {
		t.Errorf("states = %+v, want only wc-open", states)
	}
}

func TestSimulateStep_InputErrors(t *testing.T) {
	empty := NewFacilitySimulator(nil, nil)
	if _, err := empty.SimulateStep(time.Now(), PhaseEntry, nil, 60); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("empty simulator: error = %v, want ErrNotConfigured", err)
	}

	sim := NewFacilitySimulator(restroomBlock(1), nil)
	if _, err := sim.SimulateStep(time.Now(), PhaseEntry, nil, 0); !errors.Is(err, ErrBadTimestep) {
		t.Errorf("dt=0: error = %v, want ErrBadTimestep", err)
	}
}

func TestDemandMultiplier_UnknownPhaseIsNeutral(t *testing.T) {
	if got := DemandMultiplier(EventPhase("encore")); got != 1.0 {
		t.Errorf("unknown phase multiplier = %g, want 1.0", got)
	}
	if got := DemandMultiplier(PhaseHalftime); got != 5.0 {
		t.Errorf("halftime multiplier = %g, want 5.0", got)
	}
}

func TestRecommendations_TiersAndHalftimeWarning(t *testing.T) {
	// GIVEN one overcrowded restroom and one merely busy one
	facilities := []Facility{
		{ID: "wc-a", Type: FacilityRestroomMale, Name: "Restroom A", ZoneID: "za", Capacity: 1, IsOperational: true},
		{ID: "wc-b", Type: FacilityRestroomFemale, Name: "Restroom B", ZoneID: "zb", Capacity: 1, IsOperational: true},
	}
	sim := NewFacilitySimulator(facilities, nil)
	// wc-a: 40 arrivals → 60 min wait. wc-b: 4 arrivals → 12 min wait (svc 180s).
	states, err := sim.SimulateStep(time.Now(), PhaseEntry, map[string]int{"za": 20000, "zb": 2000}, 60)
	if err != nil {
		t.Fatalf("SimulateStep: %v", err)
	}

	recs := sim.Recommendations(states)

	// THEN high precedes medium, and the restroom average triggers the
	// halftime warning
	if len(recs) != 3 {
		t.Fatalf("recommendations = %d, want 3: %+v", len(recs), recs)
	}
	if recs[0].Priority != "high" || recs[0].Type != "facility_overcrowded" || recs[0].FacilityID != "wc-a" {
		t.Errorf("first rec = %+v, want high/facility_overcrowded for wc-a", recs[0])
	}
	if recs[1].Priority != "medium" || recs[1].Type != "facility_busy" || recs[1].FacilityID != "wc-b" {
		t.Errorf("second rec = %+v, want medium/facility_busy for wc-b", recs[1])
	}
	if recs[2].Type != "halftime_warning" {
		t.Errorf("third rec type = %s, want halftime_warning", recs[2].Type)
	}
}

func TestPredictHalftimeImpact_Shortfall(t *testing.T) {
	// GIVEN 30/min of aggregate restroom throughput
	facilities := []Facility{
		{ID: "wc-m", Type: FacilityRestroomMale, Name: "Male", ZoneID: "z", Capacity: 30, ServiceTimeAvg: 90, IsOperational: true},
		{ID: "wc-f", Type: FacilityRestroomFemale, Name: "Female", ZoneID: "z", Capacity: 30, ServiceTimeAvg: 180, IsOperational: true},
		{ID: "food", Type: FacilityFoodCourt, Name: "Food", ZoneID: "z", Capacity: 50, ServiceTimeAvg: 180, IsOperational: true},
	}
	sim := NewFacilitySimulator(facilities, nil)

	// WHEN 10000 attendees hit a 15-minute halftime
	impact := sim.PredictHalftimeImpact(15, 10000)

	// THEN demand is 9% of attendance against 450 served in the window
	if impact.ExpectedDemand != 900 {
		t.Errorf("demand = %d, want 900", impact.ExpectedDemand)
	}
	if impact.CapacityInWindow != 450 {
		t.Errorf("capacity = %d, want 450 (food court excluded)", impact.CapacityInWindow)
	}
	if impact.Shortfall != 450 {
		t.Errorf("shortfall = %d, want 450", impact.Shortfall)
	}
	if impact.AdditionalUnitsNeeded != 22 {
		t.Errorf("units needed = %d, want 22", impact.AdditionalUnitsNeeded)
	}
	if !strings.Contains(impact.Recommendation, "SHORTFALL") {
		t.Errorf("recommendation %q should flag the shortfall", impact.Recommendation)
	}
}

func TestPredictHalftimeImpact_SufficientCapacity(t *testing.T) {
	facilities := []Facility{
		{ID: "wc-m", Type: FacilityRestroomMale, Name: "Male", ZoneID: "z", Capacity: 30, ServiceTimeAvg: 90, IsOperational: true},
	}
	sim := NewFacilitySimulator(facilities, nil)

	impact := sim.PredictHalftimeImpact(15, 1000)

	if impact.Shortfall != 0 || impact.AdditionalUnitsNeeded != 0 {
		t.Errorf("impact = %+v, want no shortfall", impact)
	}
	if !strings.Contains(impact.Recommendation, "sufficient") {
		t.Errorf("recommendation %q should report sufficient capacity", impact.Recommendation)
	}
}

func TestSimulateStep_JitterIsDeterministicPerSeed(t *testing.T) {
	// GIVEN two simulators drawing jitter from the same subsystem seed
	run := func() int {
		rng := NewPartitionedRNG(NewSimulationKey(7)).ForSubsystem(SubsystemFacilities)
		sim := NewFacilitySimulator(restroomBlock(1), rng)
		var queue int
		for i := 0; i < 10; i++ {
			states, err := sim.SimulateStep(time.Now(), PhaseEntry, map[string]int{"concourse": 10000}, 60)
			if err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
			queue = states[0].CurrentQueue
		}
		return queue
	}

	// THEN their trajectories agree exactly
	if a, b := run(), run(); a != b {
		t.Errorf("queues diverged: %d vs %d", a, b)
	}
}

func TestNewFacilitySimulator_DefaultsServiceTimes(t *testing.T) {
	sim := NewFacilitySimulator(restroomBlock(4), nil)

	f := sim.Facility("wc-m")
	if f.ServiceTimeAvg != 90 || f.ServiceTimeStd != 30 {
		t.Errorf("service time = (%g, %g), want defaulted (90, 30)", f.ServiceTimeAvg, f.ServiceTimeStd)
	}
}
