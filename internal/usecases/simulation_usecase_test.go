package usecases_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/simverse/riversim/internal/engine"
	"github.com/simverse/riversim/internal/entities"
	"github.com/simverse/riversim/internal/integration"
	"github.com/simverse/riversim/internal/integration/openai"
	"github.com/simverse/riversim/internal/repository"
	"github.com/simverse/riversim/internal/usecases"
)

func newTestUseCase(t *testing.T, advisor openai.AdvisorService) *usecases.SimulationUseCase {
	t.Helper()
	repo, err := repository.NewSQLiteSessionRepository(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return usecases.NewSimulationUseCase(repo, nil, advisor, 0)
}

func TestCreateSessionMintsID(t *testing.T) {
	uc := newTestUseCase(t, nil)

	s, err := uc.CreateSession("")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if s.ID == "" {
		t.Error("expected a minted session id")
	}
	if s.Day != 1 {
		t.Errorf("expected day 1, got %d", s.Day)
	}

	other, err := uc.CreateSession("")
	if err != nil {
		t.Fatalf("failed to create second session: %v", err)
	}
	if other.ID == s.ID {
		t.Error("two sessions should not share an id")
	}
}

func TestGetOrCreateSession(t *testing.T) {
	uc := newTestUseCase(t, nil)

	s, err := uc.GetOrCreateSession("tg-42")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if _, _, err := uc.AdvanceDay(s.ID, 4, 2); err != nil {
		t.Fatalf("failed to advance day: %v", err)
	}

	again, err := uc.GetOrCreateSession("tg-42")
	if err != nil {
		t.Fatalf("failed to fetch existing session: %v", err)
	}
	if again.Day != 2 {
		t.Errorf("expected the existing day-2 session back, got day %d", again.Day)
	}
}

func TestAdvanceDayValidatesInputs(t *testing.T) {
	uc := newTestUseCase(t, nil)

	s, err := uc.CreateSession("")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	_, _, err = uc.AdvanceDay(s.ID, 11, 0)
	if !errors.Is(err, usecases.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for discharge=11, got %v", err)
	}
	_, _, err = uc.AdvanceDay(s.ID, 5, -1)
	if !errors.Is(err, usecases.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for runoff=-1, got %v", err)
	}
}

func TestAdvanceDayUnknownSession(t *testing.T) {
	uc := newTestUseCase(t, nil)

	_, _, err := uc.AdvanceDay("missing", 5, 5)
	if !errors.Is(err, repository.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestCampaignLifecycle(t *testing.T) {
	uc := newTestUseCase(t, nil)

	s, err := uc.CreateSession("")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if _, err := uc.GetReport(s.ID); !errors.Is(err, usecases.ErrCampaignRunning) {
		t.Errorf("report before day 30 should fail with ErrCampaignRunning, got %v", err)
	}

	// 29 steps take the campaign from day 1 to day 30.
	for i := 0; i < engine.CampaignDays-1; i++ {
		if _, _, err := uc.AdvanceDay(s.ID, 0, 0); err != nil {
			t.Fatalf("failed to advance on step %d: %v", i, err)
		}
	}

	final, err := uc.GetSession(s.ID)
	if err != nil {
		t.Fatalf("failed to load final session: %v", err)
	}
	if final.Day != engine.CampaignDays {
		t.Fatalf("expected day %d after %d steps, got %d", engine.CampaignDays, engine.CampaignDays-1, final.Day)
	}

	if _, _, err := uc.AdvanceDay(s.ID, 0, 0); !errors.Is(err, usecases.ErrCampaignOver) {
		t.Errorf("stepping a finished campaign should fail with ErrCampaignOver, got %v", err)
	}

	report, err := uc.GetReport(s.ID)
	if err != nil {
		t.Fatalf("failed to get final report: %v", err)
	}
	if report.Grade == "" || report.Description == "" {
		t.Errorf("report should carry a grade and description: %+v", report)
	}
	// Zero inputs let natural recovery clean the river for the whole campaign.
	if report.Grade != "A+" {
		t.Errorf("clean campaign should grade A+, got %s (avg health %.1f, final pollution %.1f)",
			report.Grade, report.AverageHealth, report.FinalPollution)
	}

	history, err := uc.GetHistory(s.ID)
	if err != nil {
		t.Fatalf("failed to load history: %v", err)
	}
	if len(history) != engine.CampaignDays {
		t.Errorf("expected %d history rows, got %d", engine.CampaignDays, len(history))
	}
}

func TestCampaignLengthOverride(t *testing.T) {
	repo, err := repository.NewSQLiteSessionRepository(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	uc := usecases.NewSimulationUseCase(repo, nil, nil, 3)

	if uc.CampaignDays() != 3 {
		t.Fatalf("expected campaign length 3, got %d", uc.CampaignDays())
	}

	s, err := uc.CreateSession("")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	// Two steps take a 3-day campaign from day 1 to day 3.
	for i := 0; i < 2; i++ {
		if _, _, err := uc.AdvanceDay(s.ID, 0, 0); err != nil {
			t.Fatalf("failed to advance on step %d: %v", i, err)
		}
	}

	if _, _, err := uc.AdvanceDay(s.ID, 0, 0); !errors.Is(err, usecases.ErrCampaignOver) {
		t.Errorf("stepping past the shortened campaign should fail with ErrCampaignOver, got %v", err)
	}
	if _, err := uc.GetReport(s.ID); err != nil {
		t.Errorf("report should be available on the shortened campaign's final day: %v", err)
	}
}

func TestListAndDeleteSessions(t *testing.T) {
	uc := newTestUseCase(t, nil)

	first, err := uc.CreateSession("")
	if err != nil {
		t.Fatalf("failed to create first session: %v", err)
	}
	second, err := uc.CreateSession("")
	if err != nil {
		t.Fatalf("failed to create second session: %v", err)
	}

	sessions, err := uc.ListSessions()
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	if err := uc.DeleteSession(first.ID); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}
	if _, err := uc.GetSession(first.ID); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Errorf("deleted session should be gone, got %v", err)
	}
	if _, err := uc.GetSession(second.ID); err != nil {
		t.Errorf("the other session should survive: %v", err)
	}

	if err := uc.DeleteSession("missing"); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Errorf("deleting an unknown session should fail with ErrSessionNotFound, got %v", err)
	}
}

func TestRefreshObservations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `
<html><body><table><tbody>
<tr>
  <td>EVERGLADE</td><td></td><td><a href="#">Upper Bend</a></td><td></td><td></td>
  <td>120</td><td>-2</td><td>35.1</td><td>14.5</td><td></td>
</tr>
</tbody></table></body></html>`)
	}))
	defer server.Close()

	repo, err := repository.NewSQLiteSessionRepository(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	uc := usecases.NewSimulationUseCase(repo, integration.NewObservationScraper(server.URL), nil, 0)

	if err := uc.RefreshObservations(); err != nil {
		t.Fatalf("failed to refresh observations: %v", err)
	}

	obs, last, err := uc.GetObservations()
	if err != nil {
		t.Fatalf("failed to load observations: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs))
	}
	if obs[0].River != "EVERGLADE" || obs[0].Station != "Upper Bend" {
		t.Errorf("unexpected observation: %+v", obs[0])
	}
	if last.IsZero() {
		t.Error("last observation time should be set after a refresh")
	}
}

func TestSetPoliciesAndReset(t *testing.T) {
	uc := newTestUseCase(t, nil)

	s, err := uc.CreateSession("")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	updated, err := uc.SetPolicies(s.ID, entities.PolicySet{TreatmentPlant: true, CleanupDrive: true})
	if err != nil {
		t.Fatalf("failed to set policies: %v", err)
	}
	if !updated.Policies.TreatmentPlant || !updated.Policies.CleanupDrive || updated.Policies.Regulation {
		t.Errorf("unexpected policy set: %+v", updated.Policies)
	}

	if _, _, err := uc.AdvanceDay(s.ID, 9, 9); err != nil {
		t.Fatalf("failed to advance day: %v", err)
	}

	reset, err := uc.ResetSession(s.ID)
	if err != nil {
		t.Fatalf("failed to reset session: %v", err)
	}
	if reset.Day != 1 || reset.Policies.TreatmentPlant {
		t.Errorf("reset should restore day 1 with no policies: %+v", reset)
	}
}

// fakeAdvisor returns canned advice for testing the advisory flow without the
// OpenAI API.
type fakeAdvisor struct {
	resp openai.AdvisorResponse
	err  error
}

func (f *fakeAdvisor) AdviseOnBasin(ctx context.Context, s *entities.Session, msg string) (*openai.AdvisorResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.resp, nil
}

func TestHandleAdvisoryQuery(t *testing.T) {
	t.Run("advice with suggestions is rendered as a bullet list", func(t *testing.T) {
		uc := newTestUseCase(t, &fakeAdvisor{resp: openai.AdvisorResponse{
			UserMessage:      "Pollution is climbing fast.",
			SuggestTreatment: true,
			SuggestCleanup:   true,
		}})
		s, err := uc.CreateSession("")
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		msg, err := uc.HandleAdvisoryQuery(context.Background(), s.ID, "what should I do?")
		if err != nil {
			t.Fatalf("advisory query failed: %v", err)
		}
		if !strings.Contains(msg, "Pollution is climbing fast.") {
			t.Errorf("advisor message missing from reply: %q", msg)
		}
		if !strings.Contains(msg, "treatment plant") || !strings.Contains(msg, "cleanup drive") {
			t.Errorf("expected both suggestions in reply: %q", msg)
		}
	})

	t.Run("advisor failure degrades to a friendly message", func(t *testing.T) {
		uc := newTestUseCase(t, &fakeAdvisor{err: errors.New("api down")})
		s, err := uc.CreateSession("")
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		msg, err := uc.HandleAdvisoryQuery(context.Background(), s.ID, "help")
		if err != nil {
			t.Fatalf("advisory query should not surface the API error: %v", err)
		}
		if msg == "" {
			t.Error("expected a fallback message")
		}
	})

	t.Run("nil advisor reports unavailability", func(t *testing.T) {
		uc := newTestUseCase(t, nil)
		s, err := uc.CreateSession("")
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		msg, err := uc.HandleAdvisoryQuery(context.Background(), s.ID, "help")
		if err != nil {
			t.Fatalf("advisory query failed: %v", err)
		}
		if !strings.Contains(msg, "not available") {
			t.Errorf("expected unavailability message, got %q", msg)
		}
	})
}
