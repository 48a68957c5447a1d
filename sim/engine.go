package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrBadTimestep is returned when SimulateTimestep is called with dt <= 0.
var ErrBadTimestep = errors.New("timestep must be positive")

// Engine is the normal-operation crowd-flow simulator. It advances gate
// queues, zone occupancy, and inter-zone diffusion one timestep at a time.
// The engine itself holds no per-run state; all mutable quantities live in
// the CrowdState passed in and the new CrowdState returned. One Engine can
// therefore serve many runs, provided the caller serializes step calls per
// run key.
type Engine struct {
	Params SimulationParams

	// rng supplies the bounded arrival jitter. nil disables jitter entirely,
	// which makes the mean path exactly reproducible for tests and replay.
	rng *rand.Rand
}

// NewEngine builds an Engine after validating params. Pass a seeded rng
// (typically PartitionedRNG.ForSubsystem(SubsystemArrivals)) or nil to
// disable arrival jitter.
func NewEngine(params SimulationParams, rng *rand.Rand) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("engine params: %w", err)
	}
	return &Engine{Params: params, rng: rng}, nil
}

// InitializeState creates the run's starting CrowdState: every zone empty,
// every gate queue empty, and the full expected attendance still approaching.
func (e *Engine) InitializeState(venue *Venue, eventID string, expectedAttendance int, startTime time.Time) *CrowdState {
	zoneStates := make(map[string]*ZoneState, len(venue.Zones))
	for i := range venue.Zones {
		z := &venue.Zones[i]
		zoneStates[z.ID] = &ZoneState{ZoneID: z.ID, RiskLevel: RiskSafe}
	}
	gateStates := make(map[string]*GateState, len(venue.Gates))
	for i := range venue.Gates {
		g := &venue.Gates[i]
		gateStates[g.ID] = &GateState{GateID: g.ID}
	}
	return &CrowdState{
		EventID:          eventID,
		Timestamp:        startTime,
		TotalApproaching: expectedAttendance,
		ZoneStates:       zoneStates,
		GateStates:       gateStates,
	}
}

// SimulateTimestep advances the simulation by dtSeconds and returns a new
// snapshot; the input state is not mutated. arrivalRate is the expected
// arrivals per minute at this point of the arrival curve.
//
// The four phases run in fixed order: arrival distribution, gate throughput,
// inter-zone diffusion, density/risk recompute.
func (e *Engine) SimulateTimestep(venue *Venue, state *CrowdState, dtSeconds float64, arrivalRate float64) (*CrowdState, error) {
	if dtSeconds <= 0 {
		return nil, fmt.Errorf("%w: dt=%g", ErrBadTimestep, dtSeconds)
	}
	if err := checkStateMatchesVenue(venue, state); err != nil {
		return nil, err
	}

	next := state.Clone()
	next.Timestamp = next.Timestamp.Add(time.Duration(dtSeconds * float64(time.Second)))
	next.SimulationMinutes += dtSeconds / 60

	e.processArrivals(venue, next, arrivalRate, dtSeconds)
	e.processGates(venue, next, dtSeconds)
	e.processZoneFlow(venue, next, dtSeconds)
	e.updateDensities(venue, next)

	return next, nil
}

// checkStateMatchesVenue fails fast when the caller pairs a venue with a
// state initialized from a different topology. Silently skipping a known
// zone or gate would corrupt the conservation counters.
func checkStateMatchesVenue(venue *Venue, state *CrowdState) error {
	for i := range venue.Zones {
		if _, ok := state.ZoneStates[venue.Zones[i].ID]; !ok {
			return fmt.Errorf("state missing %w %q", ErrUnknownZone, venue.Zones[i].ID)
		}
	}
	for i := range venue.Gates {
		if _, ok := state.GateStates[venue.Gates[i].ID]; !ok {
			return fmt.Errorf("state missing %w %q", ErrUnknownGate, venue.Gates[i].ID)
		}
	}
	if len(state.ZoneStates) != len(venue.Zones) {
		return fmt.Errorf("state tracks %d zones, venue has %d: %w", len(state.ZoneStates), len(venue.Zones), ErrUnknownZone)
	}
	if len(state.GateStates) != len(venue.Gates) {
		return fmt.Errorf("state tracks %d gates, venue has %d: %w", len(state.GateStates), len(venue.Gates), ErrUnknownGate)
	}
	return nil
}

// jitter returns a bounded [0,1) perturbation added to the fractional
// arrival count before truncation. Zero when no rng is configured.
func (e *Engine) jitter() float64 {
	if e.rng == nil {
		return 0
	}
	return e.rng.Float64()
}

// processArrivals draws this step's arrivals and distributes them to the
// queues of open, non-emergency gates proportionally to capacity share.
// Per-gate shares are floored; the remainder stays in TotalApproaching.
func (e *Engine) processArrivals(venue *Venue, state *CrowdState, arrivalRate, dtSeconds float64) {
	if state.TotalApproaching <= 0 {
		return
	}

	arrivals := int(arrivalRate*dtSeconds/60 + e.jitter())
	if arrivals > state.TotalApproaching {
		arrivals = state.TotalApproaching
	}
	if arrivals <= 0 {
		return
	}

	var open []*Gate
	totalCapacity := 0
	for i := range venue.Gates {
		g := &venue.Gates[i]
		if g.IsOpen && !g.IsEmergencyExit {
			open = append(open, g)
			totalCapacity += g.CapacityPerMinute
		}
	}
	if len(open) == 0 || totalCapacity == 0 {
		return
	}

	for _, g := range open {
		share := float64(g.CapacityPerMinute) / float64(totalCapacity)
		gateArrivals := int(float64(arrivals) * share)
		state.GateStates[g.ID].QueueLength += gateArrivals
		state.TotalApproaching -= gateArrivals
		state.TotalQueuing += gateArrivals
	}
}

// processGates admits queued people through each open gate, throttled by the
// flow-reduction factor of the densest zone the gate feeds. Admissions are
// split evenly across connected zones; the integer-division remainder is
// dropped, not carried.
func (e *Engine) processGates(venue *Venue, state *CrowdState, dtSeconds float64) {
	totalEntered := 0

	for i := range venue.Gates {
		gate := &venue.Gates[i]
		if !gate.IsOpen {
			continue
		}
		gs := state.GateStates[gate.ID]
		if gs.QueueLength <= 0 {
			continue
		}

		maxThroughput := float64(gate.CapacityPerMinute) * dtSeconds / 60
		throughput := maxThroughput
		if q := float64(gs.QueueLength); q < throughput {
			throughput = q
		}

		reduction := e.feedZoneReduction(venue, state, gate)
		admitted := int(throughput * reduction)

		gs.QueueLength -= admitted
		gs.ThroughputRate = float64(admitted) * 60 / dtSeconds
		gs.WaitTimeMinutes = float64(gs.QueueLength) / float64(gate.CapacityPerMinute)
		gs.IsCongested = gs.WaitTimeMinutes > e.Params.CongestionWaitMinutes

		if len(gate.ConnectedZones) > 0 && admitted > 0 {
			perZone := admitted / len(gate.ConnectedZones)
			for _, zid := range gate.ConnectedZones {
				state.ZoneStates[zid].Occupancy += perZone
			}
		}

		state.TotalQueuing -= admitted
		totalEntered += admitted
	}

	state.TotalInside += totalEntered
	state.OverallInflowRate = float64(totalEntered) * 60 / dtSeconds
}

// feedZoneReduction returns the flow-reduction factor for a gate, taken at
// the maximum density among the zones it feeds. 1.0 for gates feeding no zone.
func (e *Engine) feedZoneReduction(venue *Venue, state *CrowdState, gate *Gate) float64 {
	if len(gate.ConnectedZones) == 0 {
		return 1.0
	}
	maxDensity := 0.0
	for _, zid := range gate.ConnectedZones {
		if zs := state.ZoneStates[zid]; zs.Density > maxDensity {
			maxDensity = zs.Density
		}
	}
	return e.Params.FlowReduction(maxDensity)
}

// processZoneFlow models lateral crowd diffusion: each occupied zone pushes
// outflow toward each connected zone, bounded by the zone's own
// flow-reduction factor, the single-step drain cap, and the receiver's
// remaining capacity.
func (e *Engine) processZoneFlow(venue *Venue, state *CrowdState, dtSeconds float64) {
	baseFlowRate := e.Params.DesiredSpeed * 60 // persons/min at free flow

	for i := range venue.Zones {
		zone := &venue.Zones[i]
		zs := state.ZoneStates[zone.ID]
		if zs.Occupancy <= 0 {
			continue
		}
		if len(zone.ConnectedZones) == 0 {
			continue
		}

		reduction := e.Params.FlowReduction(zs.Density)
		perTarget := baseFlowRate * reduction * dtSeconds / 60 / float64(len(zone.ConnectedZones))

		for _, targetID := range zone.ConnectedZones {
			target := venue.Zone(targetID)
			ts := state.ZoneStates[targetID]
			available := target.Capacity - ts.Occupancy
			if available <= 0 {
				continue
			}

			flow := perTarget
			if drainCap := float64(zs.Occupancy) * e.Params.MaxDiffusionFraction; drainCap < flow {
				flow = drainCap
			}
			if a := float64(available); a < flow {
				flow = a
			}
			moved := int(flow)
			if moved <= 0 {
				continue
			}
			zs.Occupancy -= moved
			ts.Occupancy += moved
		}
	}
}

// updateDensities recomputes density and risk tier for every zone.
func (e *Engine) updateDensities(venue *Venue, state *CrowdState) {
	for i := range venue.Zones {
		zone := &venue.Zones[i]
		zs := state.ZoneStates[zone.ID]
		zs.Density = float64(zs.Occupancy) / zone.AreaSqm
		zs.RiskLevel = e.Params.RiskLevelAt(zs.Density)
		if zs.RiskLevel == RiskCritical {
			logrus.Warnf("zone %s at critical density %.2f/m² (occupancy %d)", zone.ID, zs.Density, zs.Occupancy)
		}
	}
}
