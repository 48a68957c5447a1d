// Package sim provides the discrete-time crowd-flow and emergency simulation
// engine for large public venues.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - venue.go: the immutable Zone/Gate topology a run executes against
//   - crowdstate.go: the per-step crowd snapshot and its conservation counters
//   - engine.go: the timestep loop (arrivals → gates → diffusion → density)
//
// # Architecture
//
// Five simulators cooperate, each a synchronous single-threaded state machine
// advanced by a caller-supplied dt:
//   - Engine: normal-operation entry/exit flow with density-based throttling
//   - EvacuationSimulator: emergency egress with the ALERT/PANIC/CRITICAL
//     phase machine (evacuation.go)
//   - FacilitySimulator: M/M/c-style service queues at restrooms, food, and
//     merchandise, driven by event-phase demand multipliers (facility.go)
//   - TransportSimulator: read-only transit-schedule analysis producing
//     arrival waves and gate-release pacing (transport.go)
//   - ParkingSimulator: primary-then-overflow lot filling with overflow
//     forecasts (parking.go)
//
// arrival.go generates the per-minute expected-arrivals curve that feeds the
// Engine. rng.go provides deterministic per-subsystem randomness so the mean
// path is exactly reproducible. registry.go holds the injected run-id store
// used by the surrounding orchestration layer.
//
// Scenario specs (YAML) and built-in venue scenarios live in sim/scenario.
//
// Time advances only through step calls, never from the wall clock, so
// callers get deterministic replay and variable-speed playback.
package sim
