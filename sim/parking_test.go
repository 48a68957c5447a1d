package sim

import (
	"strings"
	"testing"
	"time"
)

func threeLotParking() *ParkingSimulator {
	return NewParkingSimulator([]ParkingLot{
		{ID: "lot-b", Name: "Lot B", Capacity: 500, EntryRatePerMin: 50},
		{ID: "lot-a", Name: "Lot A", Capacity: 1000, EntryRatePerMin: 50},
		{ID: "lot-ovf", Name: "Overflow Lot", Capacity: 300, EntryRatePerMin: 50, IsOverflow: true},
	})
}

func TestSimulateArrival_FillsPrimaryLargestFirst(t *testing.T) {
	// GIVEN lots declared out of order, overflow included
	sim := threeLotParking()

	// WHEN 1200 vehicles arrive with generous entry-rate headroom
	sim.SimulateArrival(time.Now(), 1200, 60)

	// THEN the largest primary lot fills first, overflow stays empty
	if got := sim.Lot("lot-a").CurrentOccupancy; got != 1000 {
		t.Errorf("lot-a occupancy = %d, want 1000", got)
	}
	if got := sim.Lot("lot-b").CurrentOccupancy; got != 200 {
		t.Errorf("lot-b occupancy = %d, want 200", got)
	}
	if got := sim.Lot("lot-ovf").CurrentOccupancy; got != 0 {
		t.Errorf("overflow occupancy = %d, want 0", got)
	}
}

func TestSimulateArrival_EntryRateBoundsIntake(t *testing.T) {
	// GIVEN a lot that can only admit 20 vehicles per minute
	sim := NewParkingSimulator([]ParkingLot{
		{ID: "lot", Name: "Lot", Capacity: 5000, EntryRatePerMin: 20},
	})

	// WHEN 500 vehicles show up over 10 minutes
	recs := sim.SimulateArrival(time.Now(), 500, 10)

	// THEN only 200 get in; the rest are reported as unaccommodated
	if got := sim.Lot("lot").CurrentOccupancy; got != 200 {
		t.Errorf("occupancy = %d, want 200 (20/min × 10 min)", got)
	}
	if len(recs) != 1 || recs[0].Priority != "critical" || recs[0].OverflowCount != 300 {
		t.Errorf("recs = %+v, want one critical with 300 overflow", recs)
	}
}

func TestSimulateArrival_FillAdvisories(t *testing.T) {
	// GIVEN a primary lot pushed past 90% and an overflow lot past 75%
	sim := NewParkingSimulator([]ParkingLot{
		{ID: "main", Name: "Main Lot", Capacity: 1000, EntryRatePerMin: 100},
		{ID: "ovf", Name: "Overflow", Capacity: 100, EntryRatePerMin: 100, IsOverflow: true},
	})

	// WHEN arrivals fill main completely and overflow to 80%
	recs := sim.SimulateArrival(time.Now(), 1080, 60)

	// THEN main gets the high redirect advisory, overflow the medium one
	byLot := map[string]ParkingRecommendation{}
	for _, rec := range recs {
		byLot[rec.LotID] = rec
	}
	if rec := byLot["main"]; rec.Priority != "high" || !strings.Contains(rec.Action, "overflow") {
		t.Errorf("main advisory = %+v, want high redirect", rec)
	}
	if rec := byLot["ovf"]; rec.Priority != "medium" {
		t.Errorf("overflow advisory = %+v, want medium", rec)
	}
}

func TestSimulateArrival_AppendsHistory(t *testing.T) {
	sim := threeLotParking()

	sim.SimulateArrival(time.Now(), 100, 10)
	sim.SimulateArrival(time.Now(), 100, 10)

	if len(sim.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(sim.History))
	}
	if got := sim.History[0].Occupancy["lot-a"]; got != 100 {
		t.Errorf("first entry lot-a = %d, want 100", got)
	}
	if got := sim.History[1].Occupancy["lot-a"]; got != 200 {
		t.Errorf("second entry lot-a = %d, want 200", got)
	}
}

func TestPredictOverflowTime_LinearProjection(t *testing.T) {
	// GIVEN 1800 total spaces with 300 already taken
	sim := threeLotParking()
	sim.Lot("lot-a").CurrentOccupancy = 300
	now := time.Date(2025, 3, 15, 17, 0, 0, 0, time.UTC)

	// WHEN vehicles keep arriving at 50/min
	forecast := sim.PredictOverflowTime(50, now)

	// THEN the 1500 free spaces last 30 minutes
	if forecast == nil {
		t.Fatal("forecast = nil, want projection")
	}
	if forecast.MinutesUntilFull != 30 {
		t.Errorf("minutes until full = %d, want 30", forecast.MinutesUntilFull)
	}
	if want := now.Add(30 * time.Minute); !forecast.OverflowTime.Equal(want) {
		t.Errorf("overflow at %s, want %s", forecast.OverflowTime, want)
	}
	if !strings.Contains(forecast.Recommendation, "15 minutes before") {
		t.Errorf("recommendation %q should lead by 15 minutes", forecast.Recommendation)
	}
}

func TestPredictOverflowTime_NoArrivalsNoForecast(t *testing.T) {
	sim := threeLotParking()

	if got := sim.PredictOverflowTime(0, time.Now()); got != nil {
		t.Errorf("forecast = %+v, want nil at zero arrival rate", got)
	}
}
