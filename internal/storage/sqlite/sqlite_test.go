package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/synapso/internal/models"
	"github.com/mmynk/synapso/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createUser(t *testing.T, store *SQLiteStore, name string) *models.User {
	t.Helper()

	user := models.NewUser(name, "hash", models.RoleUser)
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", name, err)
	}
	return user
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	store, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	user := createUser(t, store, "Alice")
	store.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID after reopen failed: %v", err)
	}
	if got.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", got.Name)
	}
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateUser generates ID and defaults", func(t *testing.T) {
		user := createUser(t, store, "Marie")
		if user.ID == "" {
			t.Error("Expected user ID to be generated")
		}

		got, err := store.GetUserByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if got.ResetFrequency != models.ResetDaily {
			t.Errorf("ResetFrequency = %s, want DAILY", got.ResetFrequency)
		}
		if got.Role != models.RoleUser {
			t.Errorf("Role = %s, want USER", got.Role)
		}
	})

	t.Run("duplicate name is a conflict regardless of case", func(t *testing.T) {
		createUser(t, store, "Paul")
		err := store.CreateUser(ctx, models.NewUser("paul", "hash", models.RoleUser))
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("accented names fold to the same account", func(t *testing.T) {
		createUser(t, store, "Élodie")
		err := store.CreateUser(ctx, models.NewUser("élodie", "hash", models.RoleUser))
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}

		got, err := store.GetUserByName(ctx, "ÉLODIE")
		if err != nil {
			t.Fatalf("GetUserByName failed: %v", err)
		}
		if got.Name != "Élodie" {
			t.Errorf("Name = %q, want Élodie", got.Name)
		}
	})

	t.Run("GetUserByName is case-insensitive", func(t *testing.T) {
		createUser(t, store, "Lucie")
		got, err := store.GetUserByName(ctx, "  LUCIE ")
		if err != nil {
			t.Fatalf("GetUserByName failed: %v", err)
		}
		if got.Name != "Lucie" {
			t.Errorf("Name = %q, want Lucie", got.Name)
		}
	})

	t.Run("unknown user is ErrNotFound", func(t *testing.T) {
		if _, err := store.GetUserByID(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetUserByID: expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetUserByName(ctx, "nobody"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetUserByName: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateUserSettings", func(t *testing.T) {
		user := createUser(t, store, "Jean")
		user.ResetFrequency = models.ResetWeekly
		user.DominantHand = models.HandLeft
		if err := store.UpdateUserSettings(ctx, user); err != nil {
			t.Fatalf("UpdateUserSettings failed: %v", err)
		}

		got, _ := store.GetUserByID(ctx, user.ID)
		if got.ResetFrequency != models.ResetWeekly || got.DominantHand != models.HandLeft {
			t.Errorf("settings not stored: %+v", got)
		}
	})

	t.Run("UpdateUserPassword on unknown user", func(t *testing.T) {
		if err := store.UpdateUserPassword(ctx, "nope", "x"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListUsers is ordered by name", func(t *testing.T) {
		users, err := store.ListUsers(ctx)
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		for i := 1; i < len(users); i++ {
			if users[i-1].Name > users[i].Name {
				t.Errorf("users not sorted: %q before %q", users[i-1].Name, users[i].Name)
			}
		}
	})
}

func TestDeleteUserCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, store, "Alice")

	note := &models.JournalNote{UserID: user.ID, Title: "Day 1"}
	if err := store.CreateNote(ctx, note); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}
	ex := &models.Exercice{UserID: user.ID, Name: "Squats"}
	if err := store.CreateExercice(ctx, ex); err != nil {
		t.Fatalf("CreateExercice failed: %v", err)
	}

	if err := store.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	if _, err := store.GetNote(ctx, user.ID, note.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected note to be deleted, got %v", err)
	}
	if _, err := store.GetExercice(ctx, user.ID, ex.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected exercice to be deleted, got %v", err)
	}
}

func TestBodyparts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.SeedBodyparts(ctx, DefaultBodyparts)
	if err != nil {
		t.Fatalf("SeedBodyparts failed: %v", err)
	}
	if n != len(DefaultBodyparts) {
		t.Errorf("seeded %d, want %d", n, len(DefaultBodyparts))
	}

	// Seeding twice is a no-op
	n, err = store.SeedBodyparts(ctx, DefaultBodyparts)
	if err != nil {
		t.Fatalf("second SeedBodyparts failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second seed inserted %d, want 0", n)
	}

	err = store.CreateBodypart(ctx, &models.Bodypart{Name: "shoulders"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate bodypart, got %v", err)
	}

	list, err := store.ListBodyparts(ctx)
	if err != nil {
		t.Fatalf("ListBodyparts failed: %v", err)
	}
	if len(list) != len(DefaultBodyparts) {
		t.Errorf("listed %d bodyparts, want %d", len(list), len(DefaultBodyparts))
	}
}

func TestExercices(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := createUser(t, store, "Alice")
	bob := createUser(t, store, "Bob")

	arms := &models.Bodypart{Name: "Arms", Color: "#fff"}
	legs := &models.Bodypart{Name: "Legs", Color: "#000"}
	for _, bp := range []*models.Bodypart{arms, legs} {
		if err := store.CreateBodypart(ctx, bp); err != nil {
			t.Fatalf("CreateBodypart failed: %v", err)
		}
	}

	curls := &models.Exercice{
		UserID:     alice.ID,
		Name:       "Curls",
		Series:     3,
		Equipments: []string{"dumbbell"},
		Bodyparts:  []models.Bodypart{*arms, *arms},
	}
	squats := &models.Exercice{UserID: alice.ID, Name: "Squats", Bodyparts: []models.Bodypart{*legs}}
	balance := &models.Exercice{UserID: alice.ID, Name: "Balance"}
	for _, ex := range []*models.Exercice{curls, squats, balance} {
		if err := store.CreateExercice(ctx, ex); err != nil {
			t.Fatalf("CreateExercice(%s) failed: %v", ex.Name, err)
		}
	}

	t.Run("GetExercice returns body parts and equipments", func(t *testing.T) {
		got, err := store.GetExercice(ctx, alice.ID, curls.ID)
		if err != nil {
			t.Fatalf("GetExercice failed: %v", err)
		}
		if len(got.Bodyparts) != 1 || got.Bodyparts[0].Name != "Arms" {
			t.Errorf("Bodyparts = %+v, want [Arms]", got.Bodyparts)
		}
		if len(got.Equipments) != 1 || got.Equipments[0] != "dumbbell" {
			t.Errorf("Equipments = %v, want [dumbbell]", got.Equipments)
		}
		if got.Series != 3 {
			t.Errorf("Series = %d, want 3", got.Series)
		}
	})

	t.Run("exercice of another user is not found", func(t *testing.T) {
		if _, err := store.GetExercice(ctx, bob.ID, curls.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := store.DeleteExercice(ctx, bob.ID, curls.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound on delete, got %v", err)
		}
	})

	t.Run("unknown bodypart is an invalid reference", func(t *testing.T) {
		ex := &models.Exercice{UserID: alice.ID, Name: "Ghost", Bodyparts: []models.Bodypart{{ID: "missing"}}}
		if err := store.CreateExercice(ctx, ex); !errors.Is(err, storage.ErrInvalidReference) {
			t.Errorf("expected ErrInvalidReference, got %v", err)
		}
	})

	t.Run("list is pinned first then by name", func(t *testing.T) {
		if err := store.SetExercicePinned(ctx, alice.ID, squats.ID, true); err != nil {
			t.Fatalf("SetExercicePinned failed: %v", err)
		}
		list, err := store.ListExercices(ctx, alice.ID, "")
		if err != nil {
			t.Fatalf("ListExercices failed: %v", err)
		}
		var names []string
		for _, ex := range list {
			names = append(names, ex.Name)
		}
		want := []string{"Squats", "Balance", "Curls"}
		if len(names) != len(want) {
			t.Fatalf("names = %v, want %v", names, want)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("names = %v, want %v", names, want)
				break
			}
		}
		if len(list[2].Bodyparts) != 1 {
			t.Errorf("expected Curls to carry its bodypart in the list, got %+v", list[2].Bodyparts)
		}
	})

	t.Run("list filtered by bodypart", func(t *testing.T) {
		list, err := store.ListExercices(ctx, alice.ID, legs.ID)
		if err != nil {
			t.Fatalf("ListExercices failed: %v", err)
		}
		if len(list) != 1 || list[0].ID != squats.ID {
			t.Errorf("expected only Squats, got %d exercices", len(list))
		}
	})

	t.Run("UpdateExercice replaces body parts", func(t *testing.T) {
		balance.Name = "Balance board"
		balance.Bodyparts = []models.Bodypart{*legs, *arms}
		if err := store.UpdateExercice(ctx, balance); err != nil {
			t.Fatalf("UpdateExercice failed: %v", err)
		}
		got, _ := store.GetExercice(ctx, alice.ID, balance.ID)
		if got.Name != "Balance board" || len(got.Bodyparts) != 2 {
			t.Errorf("update not stored: %+v", got)
		}

		stolen := *balance
		stolen.UserID = bob.ID
		if err := store.UpdateExercice(ctx, &stolen); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound updating another user's exercice, got %v", err)
		}
	})
}

func TestCompletion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, store, "Alice")

	ex := &models.Exercice{UserID: user.ID, Name: "Walk"}
	if err := store.CreateExercice(ctx, ex); err != nil {
		t.Fatalf("CreateExercice failed: %v", err)
	}

	periodStart := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	at := periodStart.Add(9 * time.Hour)

	recorded, err := store.CompleteExercice(ctx, user.ID, ex.ID, at, periodStart)
	if err != nil || !recorded {
		t.Fatalf("CompleteExercice = %v, %v; want true, nil", recorded, err)
	}

	// Second completion in the same period is ignored
	recorded, err = store.CompleteExercice(ctx, user.ID, ex.ID, at.Add(time.Hour), periodStart)
	if err != nil || recorded {
		t.Fatalf("second CompleteExercice = %v, %v; want false, nil", recorded, err)
	}

	history, err := store.ListHistory(ctx, user.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(history))
	}
	if history[0].ExerciceName != "Walk" || !history[0].CompletedAt.Equal(at) {
		t.Errorf("unexpected history row: %+v", history[0])
	}

	got, _ := store.GetExercice(ctx, user.ID, ex.ID)
	if got.CompletedAt == nil || !got.CompletedAt.Equal(at) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, at)
	}

	// Next period: completes again
	nextStart := periodStart.AddDate(0, 0, 1)
	if recorded, _ := store.CompleteExercice(ctx, user.ID, ex.ID, nextStart.Add(time.Hour), nextStart); !recorded {
		t.Error("expected a new completion in the next period")
	}

	if err := store.UncompleteExercice(ctx, user.ID, ex.ID, nextStart); err != nil {
		t.Fatalf("UncompleteExercice failed: %v", err)
	}
	history, _ = store.ListHistory(ctx, user.ID, time.Time{}, time.Time{})
	if len(history) != 1 {
		t.Errorf("expected only the previous period's history to remain, got %d rows", len(history))
	}
	got, _ = store.GetExercice(ctx, user.ID, ex.ID)
	if got.CompletedAt != nil {
		t.Errorf("expected CompletedAt to be cleared, got %v", got.CompletedAt)
	}

	t.Run("history range", func(t *testing.T) {
		rows, err := store.ListHistory(ctx, user.ID, nextStart, time.Time{})
		if err != nil {
			t.Fatalf("ListHistory failed: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("expected no rows after %v, got %d", nextStart, len(rows))
		}
	})

	t.Run("completing another user's exercice", func(t *testing.T) {
		other := createUser(t, store, "Bob")
		if _, err := store.CompleteExercice(ctx, other.ID, ex.ID, at, periodStart); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := store.UncompleteExercice(ctx, other.ID, ex.ID, periodStart); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ClearCompletionsBefore", func(t *testing.T) {
		if _, err := store.CompleteExercice(ctx, user.ID, ex.ID, at, periodStart); err != nil {
			t.Fatalf("CompleteExercice failed: %v", err)
		}
		n, err := store.ClearCompletionsBefore(ctx, user.ID, nextStart)
		if err != nil {
			t.Fatalf("ClearCompletionsBefore failed: %v", err)
		}
		if n != 1 {
			t.Errorf("cleared %d, want 1", n)
		}
	})
}

func TestJournal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, store, "Alice")

	note := &models.JournalNote{UserID: user.ID, Title: "First", Content: "Hello"}
	if err := store.CreateNote(ctx, note); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}
	note.Content = "Updated"
	if err := store.UpdateNote(ctx, note); err != nil {
		t.Fatalf("UpdateNote failed: %v", err)
	}
	got, err := store.GetNote(ctx, user.ID, note.ID)
	if err != nil || got.Content != "Updated" {
		t.Errorf("GetNote = %+v, %v", got, err)
	}

	open := &models.JournalTask{UserID: user.ID, Title: "Call the physio", DueDate: "2024-03-20"}
	undated := &models.JournalTask{UserID: user.ID, Title: "Buy bands"}
	done := &models.JournalTask{UserID: user.ID, Title: "Done"}
	done.SetCompleted(true, time.Now())
	for _, task := range []*models.JournalTask{done, undated, open} {
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	tasks, err := store.ListTasks(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 3 || tasks[0].ID != open.ID || tasks[1].ID != undated.ID || tasks[2].ID != done.ID {
		t.Errorf("unexpected task order")
	}
	if tasks[2].CompletedAt == nil {
		t.Error("expected completed task to keep CompletedAt")
	}

	if err := store.DeleteTask(ctx, user.ID, open.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if err := store.DeleteTask(ctx, user.ID, open.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestAphasie(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, store, "Alice")

	item := &models.AphasieItem{UserID: user.ID, Quote: "the blue thing", Meaning: "the sky"}
	if err := store.CreateAphasieItem(ctx, item); err != nil {
		t.Fatalf("CreateAphasieItem failed: %v", err)
	}
	items, err := store.ListAphasieItems(ctx, user.ID)
	if err != nil || len(items) != 1 {
		t.Fatalf("ListAphasieItems = %d items, %v", len(items), err)
	}

	c := &models.AphasieChallenge{UserID: user.ID, Text: "butterfly"}
	if err := store.CreateChallenge(ctx, c); err != nil {
		t.Fatalf("CreateChallenge failed: %v", err)
	}
	c.SetMastered(true, time.Now())
	if err := store.UpdateChallenge(ctx, c); err != nil {
		t.Fatalf("UpdateChallenge failed: %v", err)
	}
	got, err := store.GetChallenge(ctx, user.ID, c.ID)
	if err != nil {
		t.Fatalf("GetChallenge failed: %v", err)
	}
	if !got.Mastered || got.MasteredAt == nil {
		t.Errorf("expected mastered challenge with timestamp, got %+v", got)
	}
}

func TestProgressUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, store, "Alice")

	p := &models.Progress{UserID: user.ID, Date: "2024-03-13", Emoji: "🙂"}
	created, err := store.UpsertProgress(ctx, p)
	if err != nil || !created {
		t.Fatalf("UpsertProgress = %v, %v; want created", created, err)
	}
	firstID := p.ID

	again := &models.Progress{UserID: user.ID, Date: "2024-03-13", Emoji: "😄", Comment: "better"}
	created, err = store.UpsertProgress(ctx, again)
	if err != nil || created {
		t.Fatalf("second UpsertProgress = %v, %v; want updated", created, err)
	}
	if again.ID != firstID {
		t.Errorf("upsert changed ID: %s != %s", again.ID, firstID)
	}

	if _, err := store.UpsertProgress(ctx, &models.Progress{UserID: user.ID, Date: "2024-03-15"}); err != nil {
		t.Fatalf("UpsertProgress failed: %v", err)
	}

	entries, err := store.ListProgress(ctx, user.ID, "2024-03-14", "")
	if err != nil {
		t.Fatalf("ListProgress failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Date != "2024-03-15" {
		t.Errorf("unexpected range result: %+v", entries)
	}

	all, _ := store.ListProgress(ctx, user.ID, "", "")
	if len(all) != 2 || all[0].Emoji != "😄" {
		t.Errorf("unexpected entries: %+v", all)
	}

	if err := store.DeleteProgress(ctx, user.ID, "2024-01-01"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVictories(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, store, "Alice")

	first := &models.Victory{UserID: user.ID, Content: "Walked to the bakery"}
	second := &models.Victory{UserID: user.ID, Content: "Said my grandson's name", Pinned: true}
	for _, v := range []*models.Victory{first, second} {
		if err := store.CreateVictory(ctx, v); err != nil {
			t.Fatalf("CreateVictory failed: %v", err)
		}
	}

	list, err := store.ListVictories(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListVictories failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("expected pinned victory first")
	}

	first.Emoji = "🎉"
	if err := store.UpdateVictory(ctx, first); err != nil {
		t.Fatalf("UpdateVictory failed: %v", err)
	}
	got, _ := store.GetVictory(ctx, user.ID, first.ID)
	if got.Emoji != "🎉" {
		t.Errorf("Emoji = %q, want 🎉", got.Emoji)
	}
}
