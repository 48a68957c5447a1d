package sim

import (
	"fmt"
	"sort"
	"time"
)

// ParkingLot tracks fill state of one parking facility.
type ParkingLot struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Capacity        int    `yaml:"capacity"`
	EntryRatePerMin int    `yaml:"entry_rate_per_min"`
	ExitRatePerMin  int    `yaml:"exit_rate_per_min"`
	WalkMinutes     int    `yaml:"walk_minutes"`
	IsOverflow      bool   `yaml:"is_overflow"`

	CurrentOccupancy int `yaml:"-"`
}

// ParkingRecommendation is one fill-level advisory.
type ParkingRecommendation struct {
	Priority       string // "critical", "high", "medium"
	LotID          string
	Action         string
	FillPercentage float64
	OverflowCount  int
}

// OverflowForecast predicts when aggregate parking fills at a given rate.
type OverflowForecast struct {
	OverflowTime     time.Time
	MinutesUntilFull int
	Recommendation   string
}

// ParkingSimulator fills primary lots before overflow lots and surfaces
// fill-level advisories, mirroring how traffic marshals route vehicles.
type ParkingSimulator struct {
	lots    map[string]*ParkingLot
	order   []string // primary lots (largest first), then overflow
	History []ParkingHistoryEntry
}

// ParkingHistoryEntry records one step's occupancy.
type ParkingHistoryEntry struct {
	Time      time.Time
	Occupancy map[string]int
}

// NewParkingSimulator builds a simulator; fill order is primary lots by
// descending capacity, then overflow lots.
func NewParkingSimulator(lots []ParkingLot) *ParkingSimulator {
	s := &ParkingSimulator{lots: make(map[string]*ParkingLot, len(lots))}
	for i := range lots {
		lot := lots[i]
		if lot.EntryRatePerMin == 0 {
			lot.EntryRatePerMin = 20
		}
		if lot.ExitRatePerMin == 0 {
			lot.ExitRatePerMin = 15
		}
		s.lots[lot.ID] = &lot
		s.order = append(s.order, lot.ID)
	}
	sort.SliceStable(s.order, func(i, j int) bool {
		a, b := s.lots[s.order[i]], s.lots[s.order[j]]
		if a.IsOverflow != b.IsOverflow {
			return !a.IsOverflow
		}
		return a.Capacity > b.Capacity
	})
	return s
}

// Lot returns a lot by id, nil if absent.
func (s *ParkingSimulator) Lot(id string) *ParkingLot { return s.lots[id] }

// SimulateArrival routes arriving vehicles into lots for the given number of
// minutes, bounded by per-lot entry rates, and returns fill advisories.
func (s *ParkingSimulator) SimulateArrival(currentTime time.Time, vehiclesArriving int, minutes int) []ParkingRecommendation {
	var recs []ParkingRecommendation
	remaining := vehiclesArriving

	for _, id := range s.order {
		if remaining <= 0 {
			break
		}
		lot := s.lots[id]

		accepted := lot.Capacity - lot.CurrentOccupancy
		if remaining < accepted {
			accepted = remaining
		}
		if rateBound := lot.EntryRatePerMin * minutes; rateBound < accepted {
			accepted = rateBound
		}
		if accepted < 0 {
			accepted = 0
		}

		lot.CurrentOccupancy += accepted
		remaining -= accepted

		fill := float64(lot.CurrentOccupancy) / float64(lot.Capacity)
		switch {
		case fill >= 0.9 && !lot.IsOverflow:
			recs = append(recs, ParkingRecommendation{
				Priority:       "high",
				LotID:          id,
				Action:         fmt.Sprintf("%s at %d%% capacity. Direct traffic to overflow parking.", lot.Name, int(fill*100)),
				FillPercentage: fill,
			})
		case fill >= 0.75:
			recs = append(recs, ParkingRecommendation{
				Priority:       "medium",
				LotID:          id,
				Action:         fmt.Sprintf("%s reaching capacity (%d%%). Prepare overflow lot.", lot.Name, int(fill*100)),
				FillPercentage: fill,
			})
		}
	}

	if remaining > 0 {
		recs = append(recs, ParkingRecommendation{
			Priority:      "critical",
			Action:        fmt.Sprintf("All parking lots full! %d vehicles cannot be accommodated.", remaining),
			OverflowCount: remaining,
		})
	}

	occ := make(map[string]int, len(s.lots))
	for id, lot := range s.lots {
		occ[id] = lot.CurrentOccupancy
	}
	s.History = append(s.History, ParkingHistoryEntry{Time: currentTime, Occupancy: occ})

	return recs
}

// PredictOverflowTime projects linearly when all lots fill at the given
// arrival rate; nil when the rate is zero or negative.
func (s *ParkingSimulator) PredictOverflowTime(arrivalRatePerMin int, currentTime time.Time) *OverflowForecast {
	if arrivalRatePerMin <= 0 {
		return nil
	}

	available := 0
	for _, lot := range s.lots {
		available += lot.Capacity - lot.CurrentOccupancy
	}

	minutesUntilFull := available / arrivalRatePerMin
	overflowAt := currentTime.Add(time.Duration(minutesUntilFull) * time.Minute)

	return &OverflowForecast{
		OverflowTime:     overflowAt,
		MinutesUntilFull: minutesUntilFull,
		Recommendation: fmt.Sprintf("Parking will overflow at %s. Activate overflow arrangements %d minutes before.",
			overflowAt.Format("15:04"), max(0, minutesUntilFull-15)),
	}
}
