package sim

import (
	"errors"
	"testing"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	// GIVEN an empty store
	store := NewMemoryStore()
	if store.Len() != 0 {
		t.Fatalf("new store length = %d, want 0", store.Len())
	}

	// WHEN a run is registered
	run := &Run{ID: NewRunID(), EventID: "evt-1"}
	store.Put(run)

	// THEN it is retrievable by id
	got, err := store.Get(run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != run {
		t.Error("Get returned a different run")
	}
	if store.Len() != 1 {
		t.Errorf("length = %d, want 1", store.Len())
	}

	// AND deleting it makes lookups fail with the sentinel
	store.Delete(run.ID)
	if _, err := store.Get(run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("after delete: error = %v, want ErrRunNotFound", err)
	}
}

func TestMemoryStore_GetUnknownRun(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Get(RunID("missing")); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("error = %v, want ErrRunNotFound", err)
	}
}

func TestMemoryStore_PutReplaces(t *testing.T) {
	store := NewMemoryStore()
	id := NewRunID()

	store.Put(&Run{ID: id, EventID: "first"})
	store.Put(&Run{ID: id, EventID: "second"})

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.EventID != "second" {
		t.Errorf("event id = %s, want second (replaced)", got.EventID)
	}
	if store.Len() != 1 {
		t.Errorf("length = %d, want 1", store.Len())
	}
}

func TestMemoryStore_DeleteAbsentIsNoop(t *testing.T) {
	store := NewMemoryStore()
	store.Delete(RunID("never-existed"))

	if store.Len() != 0 {
		t.Errorf("length = %d, want 0", store.Len())
	}
}

func TestNewRunID_Unique(t *testing.T) {
	seen := map[RunID]bool{}
	for i := 0; i < 100; i++ {
		id := NewRunID()
		if id == "" {
			t.Fatal("empty run id")
		}
		if seen[id] {
			t.Fatalf("duplicate run id %s", id)
		}
		seen[id] = true
	}
}
