package sim

import "time"

// ZoneState is the per-zone mutable quantity tracked across timesteps.
type ZoneState struct {
	ZoneID    string
	Occupancy int
	// Density is persons per square meter, recomputed every step.
	Density   float64
	RiskLevel RiskLevel
}

// GateState is the per-gate mutable quantity tracked across timesteps.
type GateState struct {
	GateID string
	// QueueLength is the number of people waiting outside the gate.
	QueueLength int
	// ThroughputRate is the realized admissions in persons/minute last step.
	ThroughputRate  float64
	WaitTimeMinutes float64
	IsCongested     bool
}

// CrowdState is the complete crowd snapshot at one instant. SimulateTimestep
// returns a NEW CrowdState each call; callers retain history by keeping the
// returned values. The aggregate counters partition the expected attendance:
// approaching + queuing + inside + exited (minus the documented rounding
// leaks in gate-to-zone splits) accounts for every attendee.
type CrowdState struct {
	EventID           string
	Timestamp         time.Time
	SimulationMinutes float64

	TotalApproaching int
	TotalQueuing     int
	TotalInside      int
	TotalExited      int

	ZoneStates map[string]*ZoneState
	GateStates map[string]*GateState

	// OverallInflowRate is persons/minute admitted through all gates last step.
	OverallInflowRate float64
}

// Clone returns a deep copy. Step functions clone before mutating so the
// caller's previous snapshot stays untouched.
func (s *CrowdState) Clone() *CrowdState {
	out := *s
	out.ZoneStates = make(map[string]*ZoneState, len(s.ZoneStates))
	for id, zs := range s.ZoneStates {
		cp := *zs
		out.ZoneStates[id] = &cp
	}
	out.GateStates = make(map[string]*GateState, len(s.GateStates))
	for id, gs := range s.GateStates {
		cp := *gs
		out.GateStates[id] = &cp
	}
	return &out
}

// MaxDensity returns the highest zone density in the snapshot.
func (s *CrowdState) MaxDensity() float64 {
	max := 0.0
	for _, zs := range s.ZoneStates {
		if zs.Density > max {
			max = zs.Density
		}
	}
	return max
}

// AverageDensity returns the mean zone density, 0 with no zones.
func (s *CrowdState) AverageDensity() float64 {
	if len(s.ZoneStates) == 0 {
		return 0
	}
	sum := 0.0
	for _, zs := range s.ZoneStates {
		sum += zs.Density
	}
	return sum / float64(len(s.ZoneStates))
}

// CriticalZones returns the ids of zones at critical risk, unordered.
func (s *CrowdState) CriticalZones() []string {
	var ids []string
	for id, zs := range s.ZoneStates {
		if zs.RiskLevel == RiskCritical {
			ids = append(ids, id)
		}
	}
	return ids
}
