package cmd

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crowdflow-sim/crowdflow-sim/sim"
	"github.com/crowdflow-sim/crowdflow-sim/sim/scenario"
)

// runScenario drives one full scenario: arrival curve → engine timesteps,
// with the facility simulator stepped alongside and transport advisories
// logged at the start and end of the window.
func runScenario(spec *scenario.Spec) error {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))

	var arrivalRNG = rng.ForSubsystem(sim.SubsystemArrivals)
	var facilityRNG = rng.ForSubsystem(sim.SubsystemFacilities)
	if disableJitter {
		arrivalRNG = nil
		facilityRNG = nil
	}

	engine, err := sim.NewEngine(sim.DefaultSimulationParams(), arrivalRNG)
	if err != nil {
		return err
	}

	curve, err := sim.GenerateArrivalCurve(spec.Event.Attendance, spec.Event.GatesOpen, spec.Event.StartTime, spec.Pattern())
	if err != nil {
		return err
	}
	logrus.Debugf("Arrival curve: %d minutes, %d total arrivals", len(curve), sim.CurveTotal(curve))

	facilities := sim.NewFacilitySimulator(spec.Facilities, facilityRNG)

	var transport *sim.TransportSimulator
	if schedule := spec.BuildTransportSchedule(); schedule != nil {
		transport = sim.NewTransportSimulator(schedule)
		wave := transport.CalculateArrivalWave(spec.Event.GatesOpen, 15)
		logrus.Infof("Opening arrival wave: %d expected in first 15 min (rail %d)",
			wave.TotalArrivals, wave.ByType[sim.TransportRail])
		if wave.RecommendedAction != "" {
			logrus.Warnf("Transport advisory: %s", wave.RecommendedAction)
		}
	}

	state := engine.InitializeState(&spec.Venue, spec.Event.ID, spec.Event.Attendance, spec.Event.GatesOpen)
	for zid, occ := range spec.InitialOccupancy {
		state.ZoneStates[zid].Occupancy = occ
		state.TotalInside += occ
		state.TotalApproaching -= occ
	}
	if state.TotalApproaching < 0 {
		state.TotalApproaching = 0
	}

	dt := spec.Dt()
	if dtSeconds > 0 {
		dt = dtSeconds
	}
	horizon := spec.Simulation.DurationMinutes
	if horizonMinutes > 0 {
		horizon = horizonMinutes
	}
	stepsPerMinute := 60 / dt

	initialTotal := state.TotalApproaching + state.TotalQueuing + state.TotalInside + state.TotalExited

	steps := int(float64(horizon) * stepsPerMinute)
	for i := 0; i < steps; i++ {
		minute := state.SimulationMinutes
		rate := sim.RateAt(curve, minute)

		state, err = engine.SimulateTimestep(&spec.Venue, state, dt, rate)
		if err != nil {
			return err
		}

		zonePops := make(map[string]int, len(state.ZoneStates))
		for zid, zs := range state.ZoneStates {
			zonePops[zid] = zs.Occupancy
		}
		phase := phaseAt(spec, state.Timestamp)
		if len(spec.Facilities) > 0 {
			fstates, err := facilities.SimulateStep(state.Timestamp, phase, zonePops, dt)
			if err != nil {
				return err
			}
			for _, rec := range facilities.Recommendations(fstates) {
				logrus.Debugf("Facility [%s]: %s", rec.Priority, rec.Action)
			}
		}

		if reportEveryMins > 0 && int(state.SimulationMinutes)%reportEveryMins == 0 && isWholeMinute(state.SimulationMinutes) {
			logrus.Infof("t=%3.0fmin phase=%-11s approaching=%d queuing=%d inside=%d maxDensity=%.2f/m²",
				state.SimulationMinutes, phase, state.TotalApproaching, state.TotalQueuing, state.TotalInside, state.MaxDensity())
		}
	}

	finalTotal := state.TotalApproaching + state.TotalQueuing + state.TotalInside + state.TotalExited
	logrus.Infof("Conservation: start=%d end=%d (split-rounding leak %d)", initialTotal, finalTotal, initialTotal-finalTotal)

	if transport != nil {
		for _, rec := range transport.PredictExitSurge(spec.Event.EndTime, spec.Event.Attendance, 45) {
			logrus.Infof("Exit pacing [%s] %s: %s", rec.Priority, rec.Time.Format("15:04"), rec.Action)
		}
	}

	return nil
}

// phaseAt maps a wall-clock instant to the event-phase label driving
// facility demand.
func phaseAt(spec *scenario.Spec, now time.Time) sim.EventPhase {
	switch {
	case now.Before(spec.Event.GatesOpen):
		return sim.PhasePreEvent
	case now.Before(spec.Event.StartTime):
		return sim.PhaseEntry
	case now.Before(spec.Event.EndTime):
		return sim.PhaseEventStart
	case now.Before(spec.Event.EndTime.Add(15 * time.Minute)):
		return sim.PhaseEventEnd
	default:
		return sim.PhaseExit
	}
}

func isWholeMinute(minutes float64) bool {
	return minutes == float64(int(minutes))
}
