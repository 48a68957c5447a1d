package sim

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNotStarted is returned when SimulateStep is called before StartEvacuation.
var ErrNotStarted = errors.New("evacuation not started")

// unknownTimeSeconds is the sentinel estimate when no exit capacity exists.
const unknownTimeSeconds = 9999

// EvacuationPhase is the escalation regime governing evacuation behavior.
//
// Transitions, evaluated once per step after the density recompute:
// CRITICAL if any zone is at crushing density; else PANIC if any zone is at
// bottleneck density or the run is de-escalating out of CRITICAL; PANIC drops
// to ALERT once the peak density falls below half the bottleneck threshold.
// NORMAL is the pre-start state only and is never re-entered.
type EvacuationPhase string

const (
	PhaseNormal EvacuationPhase = "normal"
	// PhaseAlert: announcement made, orderly movement.
	PhaseAlert EvacuationPhase = "alert"
	// PhasePanic: crowd pushing, reduced rationality.
	PhasePanic EvacuationPhase = "panic"
	// PhaseCritical: dangerous crushing possible.
	PhaseCritical EvacuationPhase = "critical"
)

// EvacuationParams groups the egress model constants.
type EvacuationParams struct {
	// Walking speeds (m/s).
	NormalVelocity float64 `yaml:"normal_velocity"`
	PanicVelocity  float64 `yaml:"panic_velocity"`

	// BottleneckDensity (persons/m²) triggers bottleneck detection and PANIC.
	BottleneckDensity float64 `yaml:"bottleneck_density"`
	// CrushingDensity (persons/m²) triggers CRITICAL.
	CrushingDensity float64 `yaml:"crushing_density"`

	// CongestionFloor is the lowest the per-exit congestion factor may fall.
	CongestionFloor float64 `yaml:"congestion_floor"`
}

// DefaultEvacuationParams returns defaults consistent with Fruin
// level-of-service bands.
func DefaultEvacuationParams() EvacuationParams {
	return EvacuationParams{
		NormalVelocity:    1.5,
		PanicVelocity:     2.5,
		BottleneckDensity: 4.0,
		CrushingDensity:   6.0,
		CongestionFloor:   0.3,
	}
}

// EmergencyExit is one exit serving evacuation traffic.
type EmergencyExit struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	WidthMeters  float64 `yaml:"width_meters"`
	MaxFlowRate  int     `yaml:"max_flow_rate"` // persons per minute
	ConnectsTo   string  `yaml:"connects_to_zone"`
	IsAccessible bool    `yaml:"is_accessible"`

	// CurrentFlowRate is the realized persons/minute through this exit in the
	// most recent step.
	CurrentFlowRate int `yaml:"-"`
}

// EvacuationZone tracks one zone's egress state. NearestExits is ordered by
// preference (nearest first); flow is attempted in that order each step.
type EvacuationZone struct {
	ZoneID             string
	Occupancy          int
	AreaSqm            float64
	NearestExits       []string
	DistanceToExits    map[string]float64 // exit id -> meters
	EvacuationStarted  bool
	EvacuatedCount     int
	EstimatedRemaining int // seconds
}

// Density returns the zone's current crowd density.
func (z *EvacuationZone) Density() float64 {
	if z.AreaSqm <= 0 {
		return 0
	}
	return float64(z.Occupancy) / z.AreaSqm
}

// Bottleneck is a congestion point detected this step. Bottlenecks are
// recomputed fresh every step, never accumulated.
type Bottleneck struct {
	ZoneID   string
	ExitID   string
	Severity string // "critical", "high", "medium"
	Density  float64
	FlowRate int
	Message  string
	Action   string
}

// EvacRecommendation is one prioritized operator action.
type EvacRecommendation struct {
	Priority int
	Type     string // "evacuation_start", "critical", "obstruction", "progress"
	Action   string
	Target   string
	Exits    []string
	Progress float64 // percent, only for "progress"
}

// EvacuationState is the complete evacuation snapshot after a step.
type EvacuationState struct {
	Phase            EvacuationPhase
	StartTime        time.Time
	ElapsedSeconds   int
	TotalToEvacuate  int
	TotalEvacuated   int
	Zones            map[string]*EvacuationZone
	Bottlenecks      []Bottleneck
	Recommendations  []EvacRecommendation
	EstimatedSeconds int // remaining until complete
}

// EvacuationSimulator models emergency egress with exit-capacity-constrained
// flow and the phase escalation machine. Unlike Engine, it owns its state
// between calls; each SimulateStep mutates it and appends a deep snapshot to
// History for post-hoc reporting.
type EvacuationSimulator struct {
	Params  EvacuationParams
	exits   map[string]*EmergencyExit
	zones   map[string]*EvacuationZone
	state   *EvacuationState
	History []*EvacuationState

	exitOrder []string // stable iteration order
	zoneOrder []string
}

// NewEvacuationSimulator builds a simulator over the given exits and zones.
// Zero-capacity exit sets are allowed but produce the sentinel time estimate.
func NewEvacuationSimulator(params EvacuationParams, exits []EmergencyExit, zones []EvacuationZone) *EvacuationSimulator {
	s := &EvacuationSimulator{
		Params: params,
		exits:  make(map[string]*EmergencyExit, len(exits)),
		zones:  make(map[string]*EvacuationZone, len(zones)),
	}
	for i := range exits {
		e := exits[i]
		s.exits[e.ID] = &e
		s.exitOrder = append(s.exitOrder, e.ID)
	}
	for i := range zones {
		z := zones[i]
		if z.DistanceToExits == nil {
			z.DistanceToExits = map[string]float64{}
		}
		s.zones[z.ZoneID] = &z
		s.zoneOrder = append(s.zoneOrder, z.ZoneID)
	}
	sort.Strings(s.exitOrder)
	sort.Strings(s.zoneOrder)
	return s
}

// State returns the current evacuation state, nil before StartEvacuation.
func (s *EvacuationSimulator) State() *EvacuationState { return s.state }

// StartEvacuation initializes the run. The completion estimate is total
// occupancy over total exit capacity, inflated by a safety factor: 1.5x when
// starting in ALERT (orderly), 2.0x otherwise.
func (s *EvacuationSimulator) StartEvacuation(triggerTime time.Time, initialPhase EvacuationPhase) *EvacuationState {
	total := 0
	for _, id := range s.zoneOrder {
		total += s.zones[id].Occupancy
	}

	totalExitCapacity := 0
	for _, id := range s.exitOrder {
		totalExitCapacity += s.exits[id].MaxFlowRate
	}

	estimated := float64(unknownTimeSeconds)
	if totalExitCapacity > 0 {
		estimated = float64(total) / float64(totalExitCapacity) * 60
		safetyFactor := 2.0
		if initialPhase == PhaseAlert {
			safetyFactor = 1.5
		}
		estimated *= safetyFactor
	} else {
		logrus.Warnf("evacuation started with zero exit capacity; time estimate unknown")
	}

	s.state = &EvacuationState{
		Phase:            initialPhase,
		StartTime:        triggerTime,
		TotalToEvacuate:  total,
		Zones:            s.zones,
		Recommendations:  s.initialRecommendations(),
		EstimatedSeconds: int(estimated),
	}
	return s.state
}

// SimulateStep advances the evacuation by dtSeconds. Must be preceded by
// StartEvacuation; stepping an unstarted simulator is a sequencing error.
func (s *EvacuationSimulator) SimulateStep(dtSeconds int) (*EvacuationState, error) {
	if s.state == nil {
		return nil, fmt.Errorf("%w: call StartEvacuation first", ErrNotStarted)
	}

	s.state.ElapsedSeconds += dtSeconds
	dtMinutes := float64(dtSeconds) / 60

	for _, zid := range s.zoneOrder {
		zone := s.zones[zid]
		if zone.Occupancy <= 0 {
			continue
		}
		zone.EvacuationStarted = true

		zoneEvacuated := 0
		density := zone.Density()
		// Congestion degrades linearly from 1.0 toward the floor as density
		// approaches the bottleneck threshold.
		congestion := 1.0 - (density/s.Params.BottleneckDensity)*0.5
		if congestion < s.Params.CongestionFloor {
			congestion = s.Params.CongestionFloor
		}

		for _, exitID := range zone.NearestExits {
			exit, ok := s.exits[exitID]
			if !ok || !exit.IsAccessible {
				continue
			}

			effective := float64(exit.MaxFlowRate) * congestion * dtMinutes
			viaExit := int(effective)
			if rem := zone.Occupancy - zoneEvacuated; viaExit > rem {
				viaExit = rem
			}

			zoneEvacuated += viaExit
			exit.CurrentFlowRate = int(float64(viaExit) / dtMinutes)
		}

		zone.Occupancy -= zoneEvacuated
		zone.EvacuatedCount += zoneEvacuated
		s.state.TotalEvacuated += zoneEvacuated

		if zone.Occupancy > 0 {
			liveCapacity := 0
			for _, exitID := range zone.NearestExits {
				if exit, ok := s.exits[exitID]; ok && exit.IsAccessible {
					liveCapacity += exit.MaxFlowRate
				}
			}
			if liveCapacity > 0 {
				zone.EstimatedRemaining = int(float64(zone.Occupancy) / float64(liveCapacity) * 60)
			} else {
				zone.EstimatedRemaining = unknownTimeSeconds
			}
		} else {
			zone.EstimatedRemaining = 0
		}
	}

	s.state.Bottlenecks = s.detectBottlenecks()
	s.updatePhase()
	s.state.Recommendations = s.recommendations()

	if remaining := s.state.TotalToEvacuate - s.state.TotalEvacuated; remaining > 0 {
		totalCapacity := 0
		for _, id := range s.exitOrder {
			if e := s.exits[id]; e.IsAccessible {
				totalCapacity += e.MaxFlowRate
			}
		}
		if totalCapacity < 1 {
			totalCapacity = 1
		}
		s.state.EstimatedSeconds = int(float64(remaining) / float64(totalCapacity) * 60)
	}

	s.History = append(s.History, s.snapshot())
	return s.state, nil
}

// detectBottlenecks scans zones and exits for congestion this step.
// A zone at crushing density is critical, at bottleneck density high; an exit
// running at 90% or more of its rated flow is medium.
func (s *EvacuationSimulator) detectBottlenecks() []Bottleneck {
	var out []Bottleneck

	for _, zid := range s.zoneOrder {
		zone := s.zones[zid]
		if zone.Occupancy <= 0 {
			continue
		}
		density := zone.Density()
		switch {
		case density >= s.Params.CrushingDensity:
			out = append(out, Bottleneck{
				ZoneID:   zid,
				Severity: "critical",
				Density:  density,
				Message:  fmt.Sprintf("CRUSHING RISK in %s! Density %.1f/m²", zid, density),
				Action:   fmt.Sprintf("Immediately open additional exits for %s", zid),
			})
		case density >= s.Params.BottleneckDensity:
			out = append(out, Bottleneck{
				ZoneID:   zid,
				Severity: "high",
				Density:  density,
				Message:  fmt.Sprintf("Bottleneck forming at %s. Density %.1f/m²", zid, density),
				Action:   fmt.Sprintf("Increase exit flow from %s, consider auxiliary routes", zid),
			})
		}
	}

	for _, eid := range s.exitOrder {
		exit := s.exits[eid]
		if float64(exit.CurrentFlowRate) >= float64(exit.MaxFlowRate)*0.9 {
			out = append(out, Bottleneck{
				ExitID:   eid,
				Severity: "medium",
				FlowRate: exit.CurrentFlowRate,
				Message:  fmt.Sprintf("Exit %s at capacity (%d/min)", exit.Name, exit.CurrentFlowRate),
				Action:   fmt.Sprintf("Open adjacent exits to relieve %s", exit.Name),
			})
		}
	}

	return out
}

// updatePhase applies the escalation rule. De-escalation from CRITICAL goes
// through PANIC, never straight to ALERT; NORMAL is never re-entered.
func (s *EvacuationSimulator) updatePhase() {
	maxDensity := 0.0
	for _, zid := range s.zoneOrder {
		zone := s.zones[zid]
		if zone.Occupancy > 0 {
			if d := zone.Density(); d > maxDensity {
				maxDensity = d
			}
		}
	}

	switch {
	case maxDensity >= s.Params.CrushingDensity:
		s.state.Phase = PhaseCritical
	case maxDensity >= s.Params.BottleneckDensity:
		s.state.Phase = PhasePanic
	case s.state.Phase == PhaseCritical:
		s.state.Phase = PhasePanic
	case s.state.Phase == PhasePanic && maxDensity < s.Params.BottleneckDensity*0.5:
		s.state.Phase = PhaseAlert
	}
}

// initialRecommendations targets the three highest-occupancy zones.
func (s *EvacuationSimulator) initialRecommendations() []EvacRecommendation {
	zones := make([]*EvacuationZone, 0, len(s.zones))
	for _, zid := range s.zoneOrder {
		zones = append(zones, s.zones[zid])
	}
	sort.SliceStable(zones, func(i, j int) bool {
		return zones[i].Occupancy > zones[j].Occupancy
	})

	var recs []EvacRecommendation
	for i, zone := range zones {
		if i >= 3 {
			break
		}
		if zone.Occupancy <= 0 {
			continue
		}
		var exitNames []string
		for _, eid := range zone.NearestExits {
			if exit, ok := s.exits[eid]; ok {
				exitNames = append(exitNames, exit.Name)
			}
		}
		recs = append(recs, EvacRecommendation{
			Priority: i + 1,
			Type:     "evacuation_start",
			Action:   fmt.Sprintf("Begin evacuation of %s (%d people)", zone.ZoneID, zone.Occupancy),
			Target:   zone.ZoneID,
			Exits:    exitNames,
		})
	}
	return recs
}

// recommendations regenerates the fixed-priority action list: critical
// bottlenecks first, then blocked-exit clearance, then a progress statement.
func (s *EvacuationSimulator) recommendations() []EvacRecommendation {
	var recs []EvacRecommendation

	for _, bn := range s.state.Bottlenecks {
		if bn.Severity != "critical" {
			continue
		}
		target := bn.ZoneID
		if target == "" {
			target = bn.ExitID
		}
		recs = append(recs, EvacRecommendation{
			Priority: 1,
			Type:     "critical",
			Action:   bn.Action,
			Target:   target,
		})
	}

	for _, eid := range s.exitOrder {
		exit := s.exits[eid]
		if exit.IsAccessible {
			continue
		}
		recs = append(recs, EvacRecommendation{
			Priority: 2,
			Type:     "obstruction",
			Action:   fmt.Sprintf("Clear obstruction at %s to increase evacuation capacity", exit.Name),
			Target:   eid,
		})
	}

	progress := s.progressPercent()
	recs = append(recs, EvacRecommendation{
		Priority: 3,
		Type:     "progress",
		Action: fmt.Sprintf("Evacuation %.0f%% complete. Estimated %.0f minutes remaining.",
			progress, float64(s.state.EstimatedSeconds)/60),
		Progress: progress,
	})

	return recs
}

func (s *EvacuationSimulator) progressPercent() float64 {
	denom := s.state.TotalToEvacuate
	if denom < 1 {
		denom = 1
	}
	return float64(s.state.TotalEvacuated) / float64(denom) * 100
}

// snapshot deep-copies the current state for the history trail.
func (s *EvacuationSimulator) snapshot() *EvacuationState {
	cp := *s.state
	cp.Zones = make(map[string]*EvacuationZone, len(s.state.Zones))
	for zid, zone := range s.state.Zones {
		z := *zone
		z.NearestExits = append([]string(nil), zone.NearestExits...)
		z.DistanceToExits = make(map[string]float64, len(zone.DistanceToExits))
		for k, v := range zone.DistanceToExits {
			z.DistanceToExits[k] = v
		}
		cp.Zones[zid] = &z
	}
	cp.Bottlenecks = append([]Bottleneck(nil), s.state.Bottlenecks...)
	cp.Recommendations = append([]EvacRecommendation(nil), s.state.Recommendations...)
	return &cp
}

// EvacuationSummary is the post-hoc report record.
type EvacuationSummary struct {
	Status            string
	Phase             EvacuationPhase
	ElapsedSeconds    int
	ElapsedMinutes    float64
	TotalEvacuated    int
	TotalToEvacuate   int
	ProgressPercent   float64
	ZonesCleared      int
	ZonesTotal        int
	BottlenecksActive int
	RemainingMinutes  float64
	Recommendations   []EvacRecommendation
}

// Summary reports evacuation progress; zero value before StartEvacuation.
func (s *EvacuationSimulator) Summary() EvacuationSummary {
	if s.state == nil {
		return EvacuationSummary{}
	}

	cleared, involved := 0, 0
	for _, zid := range s.zoneOrder {
		zone := s.zones[zid]
		if zone.EvacuatedCount > 0 || zone.Occupancy > 0 {
			involved++
		}
		if zone.Occupancy == 0 && zone.EvacuatedCount > 0 {
			cleared++
		}
	}

	status := "in_progress"
	if s.state.TotalEvacuated >= s.state.TotalToEvacuate {
		status = "complete"
	}

	return EvacuationSummary{
		Status:            status,
		Phase:             s.state.Phase,
		ElapsedSeconds:    s.state.ElapsedSeconds,
		ElapsedMinutes:    float64(s.state.ElapsedSeconds) / 60,
		TotalEvacuated:    s.state.TotalEvacuated,
		TotalToEvacuate:   s.state.TotalToEvacuate,
		ProgressPercent:   s.progressPercent(),
		ZonesCleared:      cleared,
		ZonesTotal:        involved,
		BottlenecksActive: len(s.state.Bottlenecks),
		RemainingMinutes:  float64(s.state.EstimatedSeconds) / 60,
		Recommendations:   s.state.Recommendations,
	}
}

// ZoneEvacuationEstimate is the closed-form per-zone egress estimate.
type ZoneEvacuationEstimate struct {
	TravelTimeSeconds float64
	ExitTimeMinutes   float64
	TotalTimeSeconds  float64
	TotalTimeMinutes  float64
	EffectiveFlowRate float64 // persons/minute
	VelocityMps       float64
}

// EstimateZoneEvacuation computes a closed-form egress time for one zone
// from total exit width, mean distance, and a panic level in [0,1].
// Panic speeds people up but degrades flow quadratically (arching at exits),
// following Predtechenskii–Milinskii flow observations (~82 p/min/m free flow).
func EstimateZoneEvacuation(occupancy int, exitWidthMeters, distanceMeters, panicLevel float64) ZoneEvacuationEstimate {
	const baseFlowRate = 82.0 // persons/min per meter of exit width

	panicFactor := 1.0 + panicLevel*0.3 - panicLevel*panicLevel*0.5
	effectiveFlow := baseFlowRate * exitWidthMeters * panicFactor

	velocity := 1.5 + panicLevel*1.0
	travelSeconds := distanceMeters / velocity

	exitMinutes := float64(unknownTimeSeconds) / 60
	if effectiveFlow > 0 {
		exitMinutes = float64(occupancy) / effectiveFlow
	}

	totalSeconds := travelSeconds + exitMinutes*60
	return ZoneEvacuationEstimate{
		TravelTimeSeconds: travelSeconds,
		ExitTimeMinutes:   exitMinutes,
		TotalTimeSeconds:  totalSeconds,
		TotalTimeMinutes:  totalSeconds / 60,
		EffectiveFlowRate: effectiveFlow,
		VelocityMps:       velocity,
	}
}
