package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// ErrNotConfigured is returned when a FacilitySimulator with no facilities
// is stepped.
var ErrNotConfigured = errors.New("no facilities configured")

// FacilityType selects per-type service time and demand defaults.
type FacilityType string

const (
	FacilityRestroomMale       FacilityType = "restroom_male"
	FacilityRestroomFemale     FacilityType = "restroom_female"
	FacilityRestroomAccessible FacilityType = "restroom_accessible"
	FacilityFoodCourt          FacilityType = "food_court"
	FacilityFoodStall          FacilityType = "food_stall"
	FacilityMerchandise        FacilityType = "merchandise"
	FacilityATM                FacilityType = "atm"
	FacilityFirstAid           FacilityType = "first_aid"
)

// DefaultServiceTime returns the empirical (mean, stddev) service seconds for
// a facility type; (120, 30) for unknown types.
func DefaultServiceTime(t FacilityType) (mean, std float64) {
	switch t {
	case FacilityRestroomMale:
		return 90, 30
	case FacilityRestroomFemale:
		return 180, 45
	case FacilityRestroomAccessible:
		return 240, 60
	case FacilityFoodCourt:
		return 180, 60
	case FacilityFoodStall:
		return 120, 30
	case FacilityMerchandise:
		return 300, 120
	case FacilityATM:
		return 90, 30
	case FacilityFirstAid:
		return 600, 300
	default:
		return 120, 30
	}
}

// EventPhase labels the stage of the event driving facility demand.
type EventPhase string

const (
	PhasePreEvent     EventPhase = "pre_event"
	PhaseEntry        EventPhase = "entry"
	PhaseEventStart   EventPhase = "event_start"
	PhaseHalftime     EventPhase = "halftime"
	PhaseIntermission EventPhase = "intermission"
	PhaseEventEnd     EventPhase = "event_end"
	PhaseExit         EventPhase = "exit"
)

// DemandMultiplier is the phase demand factor, the dominant nonlinearity of
// the facility model. Halftime and intermission carry the restroom surge.
// Unknown phases fall back to 1.0.
func DemandMultiplier(phase EventPhase) float64 {
	switch phase {
	case PhasePreEvent:
		return 0.5
	case PhaseEntry:
		return 1.0
	case PhaseEventStart:
		return 0.3
	case PhaseHalftime:
		return 5.0
	case PhaseIntermission:
		return 4.0
	case PhaseEventEnd:
		return 0.5
	case PhaseExit:
		return 0.2
	default:
		return 1.0
	}
}

// arrivalFraction is the per-minute fraction of the associated zone's
// population arriving at a facility of the given type at multiplier 1.0.
func arrivalFraction(t FacilityType) float64 {
	switch t {
	case FacilityRestroomMale, FacilityRestroomFemale, FacilityRestroomAccessible:
		return 0.002
	case FacilityFoodCourt, FacilityFoodStall:
		return 0.005
	case FacilityMerchandise:
		return 0.001
	default:
		return 0.001
	}
}

// Facility is one service point cluster (restroom block, food counter row).
// Capacity is the number of parallel service points.
type Facility struct {
	ID             string       `yaml:"id"`
	Type           FacilityType `yaml:"type"`
	Name           string       `yaml:"name"`
	ZoneID         string       `yaml:"zone_id"`
	Capacity       int          `yaml:"capacity"`
	ServiceTimeAvg float64      `yaml:"service_time_avg"` // seconds
	ServiceTimeStd float64      `yaml:"service_time_std"`
	IsOperational  bool         `yaml:"is_operational"`

	// Mutable queue tracking, owned by the simulator between steps.
	CurrentQueue int `yaml:"-"`
	TotalServed  int `yaml:"-"`
}

// FacilityState is the derived per-step snapshot; recomputed each step, not
// persisted.
type FacilityState struct {
	FacilityID         string
	CurrentQueue       int
	WaitTimeMinutes    float64
	UtilizationPercent float64
	Status             string // "normal", "busy", "overcrowded"
}

// FacilityRecommendation is one operator action derived from facility states.
type FacilityRecommendation struct {
	Priority   string // "high", "medium"
	Type       string // "facility_overcrowded", "facility_busy", "halftime_warning"
	FacilityID string
	Action     string
	WaitTime   float64
}

// HalftimeImpact is the restroom shortfall forecast for the halftime window.
type HalftimeImpact struct {
	ExpectedDemand        int
	CapacityInWindow      int
	Shortfall             int
	AdditionalUnitsNeeded int
	Recommendation        string
}

// FacilitySimulator models queueing at support facilities with an M/M/c-style
// service-rate ceiling: Poisson-ish arrivals proportional to zone population,
// c parallel servers with mean service time per facility type.
type FacilitySimulator struct {
	facilities map[string]*Facility
	order      []string

	// rng drives the ±20% demand jitter; nil makes arrivals deterministic.
	rng *rand.Rand

	// History keeps (time, queue-by-facility) per step, in memory only.
	History []FacilityHistoryEntry
}

// FacilityHistoryEntry records one step's queue lengths.
type FacilityHistoryEntry struct {
	Time   time.Time
	Queues map[string]int
}

// NewFacilitySimulator builds a simulator over the given facilities. Pass a
// seeded rng (PartitionedRNG.ForSubsystem(SubsystemFacilities)) or nil.
func NewFacilitySimulator(facilities []Facility, rng *rand.Rand) *FacilitySimulator {
	s := &FacilitySimulator{
		facilities: make(map[string]*Facility, len(facilities)),
		rng:        rng,
	}
	for i := range facilities {
		f := facilities[i]
		if f.ServiceTimeAvg <= 0 {
			f.ServiceTimeAvg, f.ServiceTimeStd = DefaultServiceTime(f.Type)
		}
		s.facilities[f.ID] = &f
		s.order = append(s.order, f.ID)
	}
	sort.Strings(s.order)
	return s
}

// Facility returns a configured facility by id, nil if absent.
func (s *FacilitySimulator) Facility(id string) *Facility { return s.facilities[id] }

// demandJitter returns a multiplicative perturbation in [0.8, 1.2), or 1.0
// when jitter is disabled.
func (s *FacilitySimulator) demandJitter() float64 {
	if s.rng == nil {
		return 1.0
	}
	return 0.8 + s.rng.Float64()*0.4
}

// SimulateStep advances every operational facility's queue by dtSeconds.
// Arrivals scale with the facility's zone population and the event-phase
// demand multiplier; completions are capped by the service-rate ceiling
// capacity·60/serviceTime per minute.
func (s *FacilitySimulator) SimulateStep(currentTime time.Time, phase EventPhase, zonePopulations map[string]int, dtSeconds float64) ([]FacilityState, error) {
	if len(s.facilities) == 0 {
		return nil, ErrNotConfigured
	}
	if dtSeconds <= 0 {
		return nil, fmt.Errorf("%w: dt=%g", ErrBadTimestep, dtSeconds)
	}

	dtMinutes := dtSeconds / 60
	mult := DemandMultiplier(phase)
	states := make([]FacilityState, 0, len(s.facilities))

	for _, fid := range s.order {
		f := s.facilities[fid]
		if !f.IsOperational {
			continue
		}

		zonePop := zonePopulations[f.ZoneID]
		baseRate := float64(zonePop) * arrivalFraction(f.Type) * dtMinutes
		arrivals := int(baseRate * mult * s.demandJitter())

		// M/M/c ceiling: c servers, each completing 60/serviceTime per minute.
		serviceRate := float64(f.Capacity) * 60 / f.ServiceTimeAvg // per minute
		maxService := serviceRate * dtMinutes
		completions := int(math.Min(float64(f.CurrentQueue+arrivals), maxService))

		f.CurrentQueue = max(0, f.CurrentQueue+arrivals-completions)
		f.TotalServed += completions

		waitMinutes := float64(unknownTimeSeconds) / 60
		if f.Capacity > 0 {
			waitMinutes = float64(f.CurrentQueue) * f.ServiceTimeAvg / (60 * float64(f.Capacity))
		}

		utilization := 0.0
		if maxService > 0 {
			utilization = math.Min(float64(completions)/maxService*100, 100)
		}

		status := "normal"
		switch {
		case waitMinutes > 15:
			status = "overcrowded"
		case waitMinutes > 7:
			status = "busy"
		}

		states = append(states, FacilityState{
			FacilityID:         fid,
			CurrentQueue:       f.CurrentQueue,
			WaitTimeMinutes:    waitMinutes,
			UtilizationPercent: utilization,
			Status:             status,
		})
	}

	queues := make(map[string]int, len(states))
	for _, st := range states {
		queues[st.FacilityID] = st.CurrentQueue
	}
	s.History = append(s.History, FacilityHistoryEntry{Time: currentTime, Queues: queues})

	return states, nil
}

// Recommendations derives operator actions from a step's facility states.
func (s *FacilitySimulator) Recommendations(states []FacilityState) []FacilityRecommendation {
	var recs []FacilityRecommendation

	for _, st := range states {
		if st.Status != "overcrowded" {
			continue
		}
		f := s.facilities[st.FacilityID]
		recs = append(recs, FacilityRecommendation{
			Priority:   "high",
			Type:       "facility_overcrowded",
			FacilityID: st.FacilityID,
			Action: fmt.Sprintf("%s overcrowded (%.0f min wait). Consider deploying additional portable units or redirecting to alternate facilities.",
				f.Name, st.WaitTimeMinutes),
			WaitTime: st.WaitTimeMinutes,
		})
	}

	for _, st := range states {
		if st.Status != "busy" || st.WaitTimeMinutes <= 10 {
			continue
		}
		f := s.facilities[st.FacilityID]
		recs = append(recs, FacilityRecommendation{
			Priority:   "medium",
			Type:       "facility_busy",
			FacilityID: st.FacilityID,
			Action:     fmt.Sprintf("%s busy (%.0f min wait). Monitor for further congestion.", f.Name, st.WaitTimeMinutes),
			WaitTime:   st.WaitTimeMinutes,
		})
	}

	// Restroom averages foreshadow the halftime surge.
	var restroomWaits []float64
	for _, st := range states {
		if f := s.facilities[st.FacilityID]; f != nil && isRestroom(f.Type) {
			restroomWaits = append(restroomWaits, st.WaitTimeMinutes)
		}
	}
	if len(restroomWaits) > 0 {
		sum := 0.0
		for _, w := range restroomWaits {
			sum += w
		}
		avg := sum / float64(len(restroomWaits))
		if avg > 5 {
			recs = append(recs, FacilityRecommendation{
				Priority: "medium",
				Type:     "halftime_warning",
				Action: fmt.Sprintf("Current restroom wait averaging %.0f min. Half-time will see 5x demand - prepare overflow facilities.",
					avg),
				WaitTime: avg,
			})
		}
	}

	return recs
}

// PredictHalftimeImpact forecasts the halftime restroom shortfall: empirical
// demand of ~9% of attendance against aggregate restroom service capacity
// over the halftime window. One portable unit covers ~20 uses per window.
func (s *FacilitySimulator) PredictHalftimeImpact(halftimeDurationMinutes int, attendance int) HalftimeImpact {
	demand := int(float64(attendance) * 0.09)

	capacityPerMinute := 0.0
	for _, fid := range s.order {
		f := s.facilities[fid]
		if isRestroom(f.Type) && f.ServiceTimeAvg > 0 {
			capacityPerMinute += float64(f.Capacity) * 60 / f.ServiceTimeAvg
		}
	}
	capacityInWindow := capacityPerMinute * float64(halftimeDurationMinutes)
	shortfall := float64(demand) - capacityInWindow

	impact := HalftimeImpact{
		ExpectedDemand:   demand,
		CapacityInWindow: int(capacityInWindow),
	}
	if shortfall > 0 {
		impact.Shortfall = int(shortfall)
		impact.AdditionalUnitsNeeded = int(shortfall / 20)
		impact.Recommendation = fmt.Sprintf(
			"Half-time restroom demand: %d people. Current capacity: %d in %d min. SHORTFALL of %d - deploy %d additional portable units.",
			demand, impact.CapacityInWindow, halftimeDurationMinutes, impact.Shortfall, impact.AdditionalUnitsNeeded)
	} else {
		impact.Recommendation = fmt.Sprintf(
			"Half-time restroom demand: %d people. Current capacity: %d in %d min. Capacity sufficient.",
			demand, impact.CapacityInWindow, halftimeDurationMinutes)
	}
	return impact
}

func isRestroom(t FacilityType) bool {
	return t == FacilityRestroomMale || t == FacilityRestroomFemale || t == FacilityRestroomAccessible
}
