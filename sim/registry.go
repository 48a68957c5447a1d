package sim

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run id is absent from a RunStore.
var ErrRunNotFound = errors.New("run not found")

// RunID keys one exclusive simulation run bundle.
type RunID string

// NewRunID mints a fresh run id.
func NewRunID() RunID {
	return RunID(uuid.NewString())
}

// Run bundles the mutable state of one event's simulation. The surrounding
// service must serialize step calls per run: the simulators read-then-write
// this state without internal locking.
type Run struct {
	ID      RunID
	EventID string

	Crowd      *CrowdState
	Curve      []CurvePoint
	Facilities *FacilitySimulator
	Evacuation *EvacuationSimulator
	Transport  *TransportSimulator
}

// RunStore is the injected registry mapping run ids to run bundles. The
// orchestration layer owns the store's lifecycle; the simulators never touch
// it.
type RunStore interface {
	Get(id RunID) (*Run, error)
	Put(run *Run)
	Delete(id RunID)
}

// MemoryStore is the in-process RunStore. The mutex guards the map only;
// callers still must not step the same run concurrently.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[RunID]*Run
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[RunID]*Run)}
}

// Get returns the run for id, or ErrRunNotFound.
func (m *MemoryStore) Get(id RunID) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// Put registers or replaces a run.
func (m *MemoryStore) Put(run *Run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
}

// Delete discards a run; deleting an absent id is a no-op.
func (m *MemoryStore) Delete(id RunID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, id)
}

// Len reports the number of registered runs.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}
