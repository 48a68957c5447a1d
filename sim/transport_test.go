package sim

import (
	"strings"
	"testing"
	"time"
)

var scheduleEpoch = time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC)

func railOnlySchedule(services ...TransportService) *TransportSchedule {
	sched := DefaultTransportSchedule()
	sched.Services = append(sched.Services, services...)
	return sched
}

func railAt(id string, minuteOffset, passengers int) TransportService {
	return TransportService{
		ID:                 id,
		Type:               TransportRail,
		Station:            "Stadium Station",
		ScheduledTime:      scheduleEpoch.Add(time.Duration(minuteOffset) * time.Minute),
		Capacity:           1200,
		ExpectedPassengers: passengers,
		WalkMinutesToVenue: 5,
	}
}

func TestAddRailSchedule_PeakWindowTightensHeadway(t *testing.T) {
	// GIVEN a two-hour service span with a peak window in the middle hour
	sched := DefaultTransportSchedule()
	start := scheduleEpoch
	end := scheduleEpoch.Add(2 * time.Hour)
	peakStart := scheduleEpoch.Add(30 * time.Minute)
	peakEnd := scheduleEpoch.Add(90 * time.Minute)

	// WHEN the rail timetable is generated
	sched.AddRailSchedule(start, end, &peakStart, &peakEnd, "Stadium Station")

	// THEN services exist, ids are sequential, and peak services run fuller
	if len(sched.Services) == 0 {
		t.Fatal("no services generated")
	}
	if sched.Services[0].ID != "RAIL-0000" {
		t.Errorf("first id = %s, want RAIL-0000", sched.Services[0].ID)
	}

	var peakLoads, offpeakLoads int
	var prev time.Time
	for i, svc := range sched.Services {
		if i > 0 && !svc.ScheduledTime.After(prev) {
			t.Fatalf("service %d not after its predecessor", i)
		}
		prev = svc.ScheduledTime

		inPeak := !svc.ScheduledTime.Before(peakStart) && !svc.ScheduledTime.After(peakEnd)
		if inPeak {
			peakLoads++
			if svc.ExpectedPassengers < 1139 || svc.ExpectedPassengers > 1140 { // ~95% of 1200
				t.Errorf("peak service %s load = %d, want ~1140", svc.ID, svc.ExpectedPassengers)
			}
		} else {
			offpeakLoads++
			if svc.ExpectedPassengers < 839 || svc.ExpectedPassengers > 840 { // ~70% of 1200
				t.Errorf("off-peak service %s load = %d, want ~840", svc.ID, svc.ExpectedPassengers)
			}
		}
	}

	// 60-minute peak at 4-min headway beats the 8-min off-peak stretches.
	if peakLoads <= offpeakLoads {
		t.Errorf("peak services %d not denser than off-peak %d", peakLoads, offpeakLoads)
	}
}

func TestCalculateArrivalWave_WindowUsesVenueArrivalTime(t *testing.T) {
	// GIVEN trains whose venue arrival (scheduled + 5 min walk) straddles a
	// 15-minute window starting at the epoch
	sched := railOnlySchedule(
		railAt("early", -10, 800), // at venue 18:55... before window
		railAt("in-1", 0, 900),    // at venue +5
		railAt("in-2", 10, 1100),  // at venue +15, inclusive boundary
		railAt("late", 11, 700),   // at venue +16, outside
	)
	tsim := NewTransportSimulator(sched)

	// WHEN the wave is computed
	wave := tsim.CalculateArrivalWave(scheduleEpoch, 15)

	// THEN only the two in-window services count, grouped under rail
	if wave.TotalArrivals != 2000 {
		t.Errorf("total arrivals = %d, want 2000", wave.TotalArrivals)
	}
	if wave.ByType[TransportRail] != 2000 {
		t.Errorf("rail arrivals = %d, want 2000", wave.ByType[TransportRail])
	}
	if wave.ByType[TransportBus] != 0 {
		t.Errorf("bus arrivals = %d, want 0", wave.ByType[TransportBus])
	}
	// Peak is the venue-arrival instant of the fullest service.
	wantPeak := scheduleEpoch.Add(15 * time.Minute)
	if !wave.PeakArrivalTime.Equal(wantPeak) {
		t.Errorf("peak arrival = %s, want %s", wave.PeakArrivalTime, wantPeak)
	}
}

func TestCalculateArrivalWave_RecommendationThresholds(t *testing.T) {
	// GIVEN waves below, between, and above the advisory thresholds
	cases := []struct {
		name       string
		passengers []int
		wantPhrase string
	}{
		{"quiet", []int{400}, ""},
		{"rail surge", []int{1000, 1000}, "Rail arrival surge"},
		{"open everything", []int{1200, 1200, 1200}, "Open all gates"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var services []TransportService
			for i, p := range tc.passengers {
				services = append(services, railAt(strings.Repeat("x", i+1), i*2, p))
			}
			tsim := NewTransportSimulator(railOnlySchedule(services...))

			wave := tsim.CalculateArrivalWave(scheduleEpoch, 15)

			if tc.wantPhrase == "" {
				if wave.RecommendedAction != "" {
					t.Errorf("action = %q, want none", wave.RecommendedAction)
				}
				return
			}
			if !strings.Contains(wave.RecommendedAction, tc.wantPhrase) {
				t.Errorf("action = %q, want it to contain %q", wave.RecommendedAction, tc.wantPhrase)
			}
		})
	}
}

func TestPredictExitSurge_ReleasesTrackDepartures(t *testing.T) {
	// GIVEN ample rail capacity departing after a 20:00 event end
	eventEnd := time.Date(2025, 3, 15, 20, 0, 0, 0, time.UTC)
	sched := DefaultTransportSchedule()
	for i := 0; i < 8; i++ {
		sched.Services = append(sched.Services, TransportService{
			ID:            "RAIL-0" + string(rune('0'+i)),
			Type:          TransportRail,
			ScheduledTime: eventEnd.Add(time.Duration(10+i*4) * time.Minute),
			Capacity:      1200,
		})
	}
	tsim := NewTransportSimulator(sched)

	// WHEN surge pacing is computed for a small crowd (coverage is ample)
	recs := tsim.PredictExitSurge(eventEnd, 10000, 45)

	// THEN at most five releases come back, first high then medium
	if len(recs) != 5 {
		t.Fatalf("recommendations = %d, want 5", len(recs))
	}
	if recs[0].Priority != "high" {
		t.Errorf("first release priority = %s, want high", recs[0].Priority)
	}
	for i, rec := range recs[1:] {
		if rec.Priority != "medium" {
			t.Errorf("release %d priority = %s, want medium", i+1, rec.Priority)
		}
	}
	// Each release leads its departure by walk (5) + 3 minutes.
	firstDeparture := eventEnd.Add(10 * time.Minute)
	wantRelease := firstDeparture.Add(-8 * time.Minute)
	if !recs[0].Time.Equal(wantRelease) {
		t.Errorf("first release at %s, want %s", recs[0].Time.Format("15:04"), wantRelease.Format("15:04"))
	}
}

func TestPredictExitSurge_InsufficientCoverageEscalates(t *testing.T) {
	// GIVEN one 1200-seat train against 60000 attendees (rail share 0.6
	// expects 36000 riders; coverage is far below 80%)
	eventEnd := time.Date(2025, 3, 15, 22, 0, 0, 0, time.UTC)
	sched := DefaultTransportSchedule()
	sched.Services = append(sched.Services, TransportService{
		ID: "RAIL-0001", Type: TransportRail, ScheduledTime: eventEnd.Add(12 * time.Minute), Capacity: 1200,
	})
	tsim := NewTransportSimulator(sched)

	recs := tsim.PredictExitSurge(eventEnd, 60000, 45)

	// THEN a critical extra-service request precedes the release plan
	if len(recs) != 2 {
		t.Fatalf("recommendations = %d, want 2", len(recs))
	}
	if recs[0].Priority != "critical" || !strings.Contains(recs[0].Action, "additional rail services") {
		t.Errorf("first rec = %+v, want critical capacity request", recs[0])
	}
	if !strings.Contains(recs[0].Impact, "3%") {
		t.Errorf("impact = %q, want the 3%% coverage figure", recs[0].Impact)
	}
	if recs[1].Priority != "high" {
		t.Errorf("second rec priority = %s, want high", recs[1].Priority)
	}
}

func TestPredictExitSurge_NoServicesMeansExtendHours(t *testing.T) {
	// GIVEN no rail departures in the post-event window
	eventEnd := time.Date(2025, 3, 15, 22, 0, 0, 0, time.UTC)
	tsim := NewTransportSimulator(DefaultTransportSchedule())

	recs := tsim.PredictExitSurge(eventEnd, 20000, 45)

	// THEN the single recommendation is a critical extend-hours request
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d, want 1", len(recs))
	}
	if recs[0].Priority != "critical" || !strings.Contains(recs[0].Action, "extending rail hours") {
		t.Errorf("rec = %+v, want critical extend-hours", recs[0])
	}
}

func TestPredictExitSurge_IgnoresBusDepartures(t *testing.T) {
	// GIVEN only bus services after the event
	eventEnd := time.Date(2025, 3, 15, 22, 0, 0, 0, time.UTC)
	sched := DefaultTransportSchedule()
	sched.Services = append(sched.Services, TransportService{
		ID: "BUS-0001", Type: TransportBus, ScheduledTime: eventEnd.Add(10 * time.Minute), Capacity: 50,
	})
	tsim := NewTransportSimulator(sched)

	recs := tsim.PredictExitSurge(eventEnd, 5000, 45)

	// THEN pacing treats the window as rail-free
	if len(recs) != 1 || recs[0].Priority != "critical" {
		t.Errorf("recs = %+v, want single critical extend-hours", recs)
	}
}
