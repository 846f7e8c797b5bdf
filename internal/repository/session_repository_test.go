package repository_test

import (
	"errors"
	"testing"
	"time"

	"github.com/simverse/riversim/internal/engine"
	"github.com/simverse/riversim/internal/entities"
	"github.com/simverse/riversim/internal/repository"
)

func newTestRepo(t *testing.T) *repository.SQLiteSessionRepository {
	t.Helper()
	repo, err := repository.NewSQLiteSessionRepository(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSessionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := engine.NewSession("basin-test", now)
	if err := repo.CreateSession(s, engine.FirstRecord(s)); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	loaded, err := repo.GetSession("basin-test")
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if loaded.Day != 1 || loaded.Pollution != 10.0 || loaded.Oxygen != 8.0 || loaded.Health != 100.0 {
		t.Errorf("loaded session does not match initial state: %+v", loaded)
	}
	if loaded.Policies.TreatmentPlant || loaded.Policies.Regulation || loaded.Policies.CleanupDrive {
		t.Errorf("fresh session should have no active policies: %+v", loaded.Policies)
	}

	history, err := repo.GetHistory("basin-test")
	if err != nil {
		t.Fatalf("failed to load history: %v", err)
	}
	if len(history) != 1 || history[0].Day != 1 {
		t.Errorf("expected one day-1 history row, got %+v", history)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetSession("missing")
	if !errors.Is(err, repository.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestUpdateSessionAppendsHistory(t *testing.T) {
	repo := newTestRepo(t)

	s := engine.NewSession("basin-test", time.Now().UTC())
	if err := repo.CreateSession(s, engine.FirstRecord(s)); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	rec := engine.Step(s, 5, 3)
	s.UpdatedAt = time.Now().UTC()
	if err := repo.UpdateSession(s, &rec); err != nil {
		t.Fatalf("failed to update session: %v", err)
	}

	loaded, err := repo.GetSession("basin-test")
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if loaded.Day != 2 {
		t.Errorf("expected day 2, got %d", loaded.Day)
	}

	history, err := repo.GetHistory("basin-test")
	if err != nil {
		t.Fatalf("failed to load history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected two history rows, got %d", len(history))
	}
	if history[1].Day != 2 || history[1].FactoryInput != 5 || history[1].FarmInput != 3 {
		t.Errorf("day-2 row should carry the applied inputs, got %+v", history[1])
	}
}

func TestUpdateUnknownSession(t *testing.T) {
	repo := newTestRepo(t)

	s := engine.NewSession("ghost", time.Now().UTC())
	err := repo.UpdateSession(s, nil)
	if !errors.Is(err, repository.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestResetSession(t *testing.T) {
	repo := newTestRepo(t)

	s := engine.NewSession("basin-test", time.Now().UTC())
	if err := repo.CreateSession(s, engine.FirstRecord(s)); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	for i := 0; i < 3; i++ {
		rec := engine.Step(s, 8, 8)
		if err := repo.UpdateSession(s, &rec); err != nil {
			t.Fatalf("failed to update session: %v", err)
		}
	}

	fresh := engine.NewSession("basin-test", time.Now().UTC())
	if err := repo.ResetSession(fresh, engine.FirstRecord(fresh)); err != nil {
		t.Fatalf("failed to reset session: %v", err)
	}

	loaded, err := repo.GetSession("basin-test")
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if loaded.Day != 1 || loaded.Pollution != 10.0 {
		t.Errorf("reset did not restore initial state: %+v", loaded)
	}

	history, err := repo.GetHistory("basin-test")
	if err != nil {
		t.Fatalf("failed to load history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("reset should leave only the day-1 row, got %d rows", len(history))
	}
}

func TestListSessions(t *testing.T) {
	repo := newTestRepo(t)

	if sessions, err := repo.ListSessions(); err != nil || len(sessions) != 0 {
		t.Errorf("an empty repository should list no sessions, got %d err=%v", len(sessions), err)
	}

	older := engine.NewSession("older", time.Now().UTC().Add(-time.Hour))
	if err := repo.CreateSession(older, engine.FirstRecord(older)); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	newer := engine.NewSession("newer", time.Now().UTC())
	if err := repo.CreateSession(newer, engine.FirstRecord(newer)); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	sessions, err := repo.ListSessions()
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "newer" || sessions[1].ID != "older" {
		t.Errorf("sessions should be ordered most recently touched first: %s, %s", sessions[0].ID, sessions[1].ID)
	}
}

func TestDeleteSession(t *testing.T) {
	repo := newTestRepo(t)

	s := engine.NewSession("doomed", time.Now().UTC())
	if err := repo.CreateSession(s, engine.FirstRecord(s)); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	keep := engine.NewSession("keep", time.Now().UTC())
	if err := repo.CreateSession(keep, engine.FirstRecord(keep)); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if err := repo.DeleteSession("doomed"); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}

	if _, err := repo.GetSession("doomed"); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Errorf("deleted session should be gone, got %v", err)
	}
	if history, err := repo.GetHistory("doomed"); err != nil || len(history) != 0 {
		t.Errorf("deleted session should have no history, got %d rows err=%v", len(history), err)
	}
	if _, err := repo.GetSession("keep"); err != nil {
		t.Errorf("the other session should survive: %v", err)
	}
}

func TestPurgeIdleSessions(t *testing.T) {
	repo := newTestRepo(t)

	old := engine.NewSession("old", time.Now().UTC().Add(-48*time.Hour))
	if err := repo.CreateSession(old, engine.FirstRecord(old)); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	fresh := engine.NewSession("fresh", time.Now().UTC())
	if err := repo.CreateSession(fresh, engine.FirstRecord(fresh)); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	n, err := repo.PurgeIdleSessions(time.Now().UTC().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("failed to purge: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged session, got %d", n)
	}

	if _, err := repo.GetSession("old"); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Errorf("old session should be gone, got %v", err)
	}
	if _, err := repo.GetSession("fresh"); err != nil {
		t.Errorf("fresh session should survive purge: %v", err)
	}
	if history, err := repo.GetHistory("old"); err != nil || len(history) != 0 {
		t.Errorf("purged session should have no history, got %v rows err=%v", len(history), err)
	}
}

func TestObservations(t *testing.T) {
	repo := newTestRepo(t)

	ts := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	obs := []entities.Observation{
		{River: "EVERGLADE", Station: "Upper Bend", WaterLevel: "120", WaterTemp: "14.5", Timestamp: ts},
		{River: "EVERGLADE", Station: "Mill Weir", WaterLevel: "98", WaterTemp: "15.1", Timestamp: ts},
	}
	if err := repo.SaveObservations(obs); err != nil {
		t.Fatalf("failed to save observations: %v", err)
	}

	got, err := repo.GetObservations(ts.Add(-time.Hour))
	if err != nil {
		t.Fatalf("failed to load observations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(got))
	}

	last, err := repo.GetLastObservationTime()
	if err != nil {
		t.Fatalf("failed to get last observation time: %v", err)
	}
	if last.IsZero() {
		t.Error("expected non-zero last observation time")
	}

	// Saving the same river/station/timestamp again must upsert, not duplicate
	obs[0].WaterLevel = "130"
	if err := repo.SaveObservations(obs[:1]); err != nil {
		t.Fatalf("failed to upsert observation: %v", err)
	}
	got, err = repo.GetObservations(ts.Add(-time.Hour))
	if err != nil {
		t.Fatalf("failed to reload observations: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("upsert duplicated rows: got %d", len(got))
	}
}
