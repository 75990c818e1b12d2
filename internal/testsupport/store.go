package testsupport

import (
	"context"
	"testing"

	"timeclock/internal/attendance"
	"timeclock/internal/config"
	"timeclock/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedWorkers caches workers in the store.
func SeedWorkers(t testing.TB, st *store.Store, workers ...attendance.Worker) {
	t.Helper()

	if err := st.ReplaceWorkers(context.Background(), workers); err != nil {
		t.Fatalf("store.ReplaceWorkers: %v", err)
	}
}
