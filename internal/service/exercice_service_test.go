package service

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/synapso/internal/models"
)

func (e *testEnv) createExercice(t *testing.T, c *http.Client, body map[string]any) models.Exercice {
	t.Helper()
	resp := e.do(t, c, http.MethodPost, "/api/exercices", body)
	expectStatus(t, resp, http.StatusCreated)
	return decode[models.Exercice](t, resp)
}

func (e *testEnv) setCompleted(t *testing.T, c *http.Client, id string, completed bool) models.Exercice {
	t.Helper()
	resp := e.do(t, c, http.MethodPost, "/api/exercices/"+id+"/complete", map[string]bool{"completed": completed})
	expectStatus(t, resp, http.StatusOK)
	return decode[models.Exercice](t, resp)
}

func (e *testEnv) getExercice(t *testing.T, c *http.Client, id string) models.Exercice {
	t.Helper()
	resp := e.do(t, c, http.MethodGet, "/api/exercices/"+id, nil)
	expectStatus(t, resp, http.StatusOK)
	return decode[models.Exercice](t, resp)
}

func (e *testEnv) historyCount(t *testing.T, c *http.Client) int {
	t.Helper()
	resp := e.do(t, c, http.MethodGet, "/api/history", nil)
	expectStatus(t, resp, http.StatusOK)
	return len(decode[[]models.History](t, resp))
}

func TestExerciceCRUD(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", models.RoleUser)
	c := env.login(t, "alice")

	resp := env.do(t, c, http.MethodGet, "/api/bodyparts", nil)
	expectStatus(t, resp, http.StatusOK)
	bodyparts := decode[[]models.Bodypart](t, resp)
	if len(bodyparts) < 2 {
		t.Fatalf("expected seeded bodyparts, got %d", len(bodyparts))
	}
	shoulders, legs := bodyparts[0].ID, bodyparts[1].ID

	squats := env.createExercice(t, c, map[string]any{
		"name":        "  Squats ",
		"series":      3,
		"repetitions": 10,
		"equipments":  []string{"chair", " "},
		"bodypartIds": []string{legs, legs},
	})
	if squats.Name != "Squats" {
		t.Errorf("expected trimmed name, got %q", squats.Name)
	}
	if len(squats.Bodyparts) != 1 || squats.Bodyparts[0].Name == "" {
		t.Errorf("expected one named bodypart, got %+v", squats.Bodyparts)
	}
	if len(squats.Equipments) != 1 || squats.Equipments[0] != "chair" {
		t.Errorf("expected equipments [chair], got %v", squats.Equipments)
	}
	if squats.Completed || squats.CompletedAt != nil {
		t.Error("expected new exercise not completed")
	}

	curls := env.createExercice(t, c, map[string]any{
		"name":        "Curls",
		"bodypartIds": []string{shoulders},
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			body map[string]any
		}{
			{"blank name", map[string]any{"name": "   "}},
			{"missing name", map[string]any{"series": 3}},
			{"negative series", map[string]any{"name": "Plank", "series": -1}},
			{"unknown bodypart", map[string]any{"name": "Plank", "bodypartIds": []string{"nope"}}},
			{"equipment too long", map[string]any{"name": "Plank", "equipments": []string{strings.Repeat("x", 101)}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				resp := env.do(t, c, http.MethodPost, "/api/exercices", tt.body)
				expectStatus(t, resp, http.StatusBadRequest)
			})
		}
	})

	t.Run("update", func(t *testing.T) {
		resp := env.do(t, c, http.MethodPatch, "/api/exercices/"+squats.ID, map[string]any{
			"series":      4,
			"bodypartIds": []string{shoulders, legs},
		})
		expectStatus(t, resp, http.StatusOK)
		updated := decode[models.Exercice](t, resp)
		if updated.Series != 4 || updated.Repetitions != 10 || updated.Name != "Squats" {
			t.Errorf("unexpected update result: %+v", updated)
		}
		if len(updated.Bodyparts) != 2 {
			t.Errorf("expected 2 bodyparts, got %d", len(updated.Bodyparts))
		}

		resp = env.do(t, c, http.MethodPatch, "/api/exercices/"+squats.ID, map[string]any{"name": ""})
		expectStatus(t, resp, http.StatusBadRequest)

		resp = env.do(t, c, http.MethodPatch, "/api/exercices/"+squats.ID, map[string]any{
			"equipments": []string{"chair", strings.Repeat("x", 101)},
		})
		expectStatus(t, resp, http.StatusBadRequest)

		resp = env.do(t, c, http.MethodGet, "/api/exercices/"+squats.ID, nil)
		expectStatus(t, resp, http.StatusOK)
		if got := decode[models.Exercice](t, resp); len(got.Equipments) != 1 || got.Equipments[0] != "chair" {
			t.Errorf("rejected patch changed equipments: %v", got.Equipments)
		}
	})

	t.Run("pin and list", func(t *testing.T) {
		resp := env.do(t, c, http.MethodGet, "/api/exercices", nil)
		list := decode[[]models.Exercice](t, resp)
		if len(list) != 2 || list[0].ID != curls.ID {
			t.Fatalf("expected Curls first by name, got %+v", list)
		}

		resp = env.do(t, c, http.MethodPatch, "/api/exercices/"+squats.ID+"/pin", map[string]bool{"pinned": true})
		expectStatus(t, resp, http.StatusOK)

		resp = env.do(t, c, http.MethodGet, "/api/exercices", nil)
		list = decode[[]models.Exercice](t, resp)
		if list[0].ID != squats.ID || !list[0].Pinned {
			t.Errorf("expected pinned Squats first, got %+v", list[0])
		}

		resp = env.do(t, c, http.MethodPatch, "/api/exercices/"+squats.ID+"/pin", map[string]any{})
		expectStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("filter by bodypart", func(t *testing.T) {
		resp := env.do(t, c, http.MethodGet, "/api/exercices?bodypart="+legs, nil)
		list := decode[[]models.Exercice](t, resp)
		if len(list) != 1 || list[0].ID != squats.ID {
			t.Errorf("expected only Squats, got %+v", list)
		}
	})

	t.Run("delete", func(t *testing.T) {
		resp := env.do(t, c, http.MethodDelete, "/api/exercices/"+curls.ID, nil)
		expectStatus(t, resp, http.StatusNoContent)

		resp = env.do(t, c, http.MethodGet, "/api/exercices/"+curls.ID, nil)
		expectStatus(t, resp, http.StatusNotFound)
		if msg := errorMessage(t, resp); msg != "exercice not found" {
			t.Errorf("expected 'exercice not found', got %q", msg)
		}
	})
}

func TestExerciceOwnership(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", models.RoleUser)
	env.createUser(t, "bob", models.RoleUser)
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")

	ex := env.createExercice(t, alice, map[string]any{"name": "Squats"})

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/exercices/" + ex.ID, nil},
		{http.MethodPatch, "/api/exercices/" + ex.ID, map[string]any{"name": "Mine now"}},
		{http.MethodDelete, "/api/exercices/" + ex.ID, nil},
		{http.MethodPost, "/api/exercices/" + ex.ID + "/complete", map[string]bool{"completed": true}},
		{http.MethodPatch, "/api/exercices/" + ex.ID + "/pin", map[string]bool{"pinned": true}},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := env.do(t, bob, tt.method, tt.path, tt.body)
			expectStatus(t, resp, http.StatusNotFound)
		})
	}

	resp := env.do(t, bob, http.MethodGet, "/api/exercices", nil)
	if list := decode[[]models.Exercice](t, resp); len(list) != 0 {
		t.Errorf("expected bob to see no exercises, got %d", len(list))
	}

	if got := env.getExercice(t, alice, ex.ID); got.Name != "Squats" || got.Pinned {
		t.Errorf("alice's exercise changed: %+v", got)
	}
}

func TestCompletionDaily(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", models.RoleUser)
	c := env.login(t, "alice")
	ex := env.createExercice(t, c, map[string]any{"name": "Squats"})

	done := env.setCompleted(t, c, ex.ID, true)
	if !done.Completed || done.CompletedAt == nil || !done.CompletedAt.Equal(testStart) {
		t.Fatalf("expected completed at %v, got %+v", testStart, done)
	}

	// Idempotent within the period
	env.setCompleted(t, c, ex.ID, true)
	if n := env.historyCount(t, c); n != 1 {
		t.Errorf("expected 1 history row, got %d", n)
	}

	env.setNow(time.Date(2026, time.October, 14, 23, 59, 59, 0, time.UTC))
	if !env.getExercice(t, c, ex.ID).Completed {
		t.Error("expected still completed before midnight")
	}

	env.setNow(time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC))
	next := env.getExercice(t, c, ex.ID)
	if next.Completed {
		t.Error("expected reset at midnight")
	}
	if next.CompletedAt == nil {
		t.Error("expected last completion kept after reset")
	}

	env.setCompleted(t, c, ex.ID, true)
	if n := env.historyCount(t, c); n != 2 {
		t.Errorf("expected 2 history rows, got %d", n)
	}

	undone := env.setCompleted(t, c, ex.ID, false)
	if undone.Completed || undone.CompletedAt != nil {
		t.Errorf("expected uncompleted, got %+v", undone)
	}
	// Only the current period's row is removed
	if n := env.historyCount(t, c); n != 1 {
		t.Errorf("expected 1 history row after uncomplete, got %d", n)
	}

	resp := env.do(t, c, http.MethodPost, "/api/exercices/"+ex.ID+"/complete", map[string]any{})
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestCompletionWeekly(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", models.RoleUser)
	c := env.login(t, "alice")

	resp := env.do(t, c, http.MethodPatch, "/api/users/me", map[string]string{"resetFrequency": "WEEKLY"})
	expectStatus(t, resp, http.StatusOK)

	ex := env.createExercice(t, c, map[string]any{"name": "Squats"})
	env.setCompleted(t, c, ex.ID, true)

	tests := []struct {
		name      string
		now       time.Time
		completed bool
	}{
		{"next day", time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC), true},
		{"saturday night", time.Date(2026, time.October, 17, 23, 59, 59, 0, time.UTC), true},
		{"sunday midnight", time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.setNow(tt.now)
			if got := env.getExercice(t, c, ex.ID).Completed; got != tt.completed {
				t.Errorf("expected completed=%v, got %v", tt.completed, got)
			}
		})
	}
}

func TestHistory(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", models.RoleUser)
	c := env.login(t, "alice")
	squats := env.createExercice(t, c, map[string]any{"name": "Squats"})
	curls := env.createExercice(t, c, map[string]any{"name": "Curls"})

	for _, day := range []int{10, 12, 13, 14} {
		env.setNow(time.Date(2026, time.October, day, 9, 0, 0, 0, time.UTC))
		env.setCompleted(t, c, squats.ID, true)
	}
	env.setCompleted(t, c, curls.ID, true)

	t.Run("range", func(t *testing.T) {
		resp := env.do(t, c, http.MethodGet, "/api/history?from=2026-10-12&to=2026-10-13", nil)
		expectStatus(t, resp, http.StatusOK)
		history := decode[[]models.History](t, resp)
		if len(history) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(history))
		}
		if history[0].CompletedAt.Day() != 13 || history[0].ExerciceName != "Squats" {
			t.Errorf("expected newest first with name, got %+v", history[0])
		}

		resp = env.do(t, c, http.MethodGet, "/api/history?from=yesterday", nil)
		expectStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("stats", func(t *testing.T) {
		resp := env.do(t, c, http.MethodGet, "/api/history/stats?days=7", nil)
		expectStatus(t, resp, http.StatusOK)
		stats := decode[StatsResponse](t, resp)

		if stats.Current != 3 || stats.Longest != 3 || stats.ActiveDays != 4 {
			t.Errorf("unexpected streaks: %+v", stats.StreakSummary)
		}
		if len(stats.Heatmap) != 7 {
			t.Fatalf("expected 7 heatmap days, got %d", len(stats.Heatmap))
		}
		last := stats.Heatmap[6]
		if last.Date != "2026-10-14" || last.Count != 2 {
			t.Errorf("expected 2 completions on 2026-10-14, got %+v", last)
		}
		if stats.Heatmap[0].Date != "2026-10-08" {
			t.Errorf("expected heatmap to start on 2026-10-08, got %s", stats.Heatmap[0].Date)
		}
	})

	t.Run("default days", func(t *testing.T) {
		resp := env.do(t, c, http.MethodGet, "/api/history/stats", nil)
		expectStatus(t, resp, http.StatusOK)
		if stats := decode[StatsResponse](t, resp); len(stats.Heatmap) != defaultStatsDays {
			t.Errorf("expected %d heatmap days, got %d", defaultStatsDays, len(stats.Heatmap))
		}
	})

	for _, days := range []string{"0", "367", "abc"} {
		t.Run("invalid days "+days, func(t *testing.T) {
			resp := env.do(t, c, http.MethodGet, "/api/history/stats?days="+days, nil)
			expectStatus(t, resp, http.StatusBadRequest)
		})
	}
}
