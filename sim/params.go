package sim

import "fmt"

// RiskLevel is the ordinal density classification of a zone.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// SimulationParams groups the physical parameters of normal-mode crowd flow.
// The density breakpoints and flow-reduction multipliers are the single
// governing nonlinearity of the engine: flow self-throttles as downstream
// zones fill. Breakpoints must be strictly ascending; first match wins.
type SimulationParams struct {
	// Walking speeds (m/s).
	DesiredSpeed float64 `yaml:"desired_speed"`
	MaxSpeed     float64 `yaml:"max_speed"`

	// Density breakpoints (persons/m²), ascending.
	DensityComfortable float64 `yaml:"density_comfortable"`
	DensityCrowded     float64 `yaml:"density_crowded"`
	DensityDangerous   float64 `yaml:"density_dangerous"`
	DensityCritical    float64 `yaml:"density_critical"`

	// Flow-reduction multipliers applied above each breakpoint.
	FlowReductionCrowded   float64 `yaml:"flow_reduction_crowded"`
	FlowReductionDangerous float64 `yaml:"flow_reduction_dangerous"`
	FlowReductionCritical  float64 `yaml:"flow_reduction_critical"`

	// Gate queue wait (minutes) above which a gate is flagged congested.
	CongestionWaitMinutes float64 `yaml:"congestion_wait_minutes"`

	// Fraction of a zone's occupancy that may diffuse out in one step.
	MaxDiffusionFraction float64 `yaml:"max_diffusion_fraction"`
}

// DefaultSimulationParams returns the calibrated defaults
// (Fruin level-of-service density bands).
func DefaultSimulationParams() SimulationParams {
	return SimulationParams{
		DesiredSpeed:           1.34,
		MaxSpeed:               2.5,
		DensityComfortable:     0.5,
		DensityCrowded:         2.0,
		DensityDangerous:       4.0,
		DensityCritical:        6.0,
		FlowReductionCrowded:   0.7,
		FlowReductionDangerous: 0.4,
		FlowReductionCritical:  0.1,
		CongestionWaitMinutes:  10,
		MaxDiffusionFraction:   0.1,
	}
}

// Validate rejects parameter sets the engine cannot run with.
func (p SimulationParams) Validate() error {
	if !(p.DensityComfortable < p.DensityCrowded && p.DensityCrowded < p.DensityDangerous) {
		return fmt.Errorf("density breakpoints must be strictly ascending: comfortable=%g crowded=%g dangerous=%g",
			p.DensityComfortable, p.DensityCrowded, p.DensityDangerous)
	}
	for name, f := range map[string]float64{
		"flow_reduction_crowded":   p.FlowReductionCrowded,
		"flow_reduction_dangerous": p.FlowReductionDangerous,
		"flow_reduction_critical":  p.FlowReductionCritical,
	} {
		if f <= 0 || f > 1 {
			return fmt.Errorf("%s must be in (0,1], got %g", name, f)
		}
	}
	if p.MaxDiffusionFraction <= 0 || p.MaxDiffusionFraction > 1 {
		return fmt.Errorf("max_diffusion_fraction must be in (0,1], got %g", p.MaxDiffusionFraction)
	}
	return nil
}

// FlowReduction returns the multiplier in (0,1] applied to nominal flow
// capacity at the given density. Lowest breakpoint wins first match.
func (p SimulationParams) FlowReduction(density float64) float64 {
	switch {
	case density < p.DensityComfortable:
		return 1.0
	case density < p.DensityCrowded:
		return p.FlowReductionCrowded
	case density < p.DensityDangerous:
		return p.FlowReductionDangerous
	default:
		return p.FlowReductionCritical
	}
}

// RiskLevelAt classifies a density into the four-tier risk scale.
func (p SimulationParams) RiskLevelAt(density float64) RiskLevel {
	switch {
	case density < p.DensityComfortable:
		return RiskSafe
	case density < p.DensityCrowded:
		return RiskModerate
	case density < p.DensityDangerous:
		return RiskHigh
	default:
		return RiskCritical
	}
}
