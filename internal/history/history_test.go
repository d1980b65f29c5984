package history

import (
	"context"
	"testing"
	"time"

	"github.com/PatrickWalther/wordle-timer-go/internal/database"
	"github.com/PatrickWalther/wordle-timer-go/internal/puzzle"
)

func openRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	return repo
}

var base = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func completion(name, day string, d time.Duration, at time.Duration) puzzle.Completion {
	return puzzle.Completion{
		Day:         day,
		UserID:      "id-" + name,
		Name:        name,
		ChannelID:   "c",
		Duration:    d,
		CompletedAt: base.Add(at),
	}
}

func TestByDayOrdersFastestFirst(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	for _, c := range []puzzle.Completion{
		completion("alice", "2025-03-10", 3*time.Minute, time.Hour),
		completion("bob", "2025-03-10", 90*time.Second, 2*time.Hour),
		completion("carol", "2025-03-11", time.Minute, 26*time.Hour),
	} {
		if _, err := repo.Record(ctx, c); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := repo.ByDay(ctx, "2025-03-10")
	if err != nil {
		t.Fatalf("by day: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Name != "bob" || entries[1].Name != "alice" {
		t.Fatalf("order = %s, %s", entries[0].Name, entries[1].Name)
	}
	if entries[0].Duration() != 90*time.Second || entries[0].Formatted != "1 minute and 30.000 seconds" {
		t.Errorf("entry = %+v", entries[0])
	}
	if !entries[1].CompletedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("completedAt = %v", entries[1].CompletedAt)
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Errorf("ids = %q, %q", entries[0].ID, entries[1].ID)
	}

	none, err := repo.ByDay(ctx, "2020-01-01")
	if err != nil || len(none) != 0 {
		t.Fatalf("empty day = %v, %v", none, err)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	for i, name := range []string{"a", "b", "c"} {
		if _, err := repo.Record(ctx, completion(name, "2025-03-10", time.Minute, time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "c" || entries[1].Name != "b" {
		t.Fatalf("recent = %+v", entries)
	}
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()

	for i := 0; i < 20; i++ {
		hub.Publish(Entry{Name: "x"})
	}
	if got := len(ch); got != cap(ch) {
		t.Fatalf("buffered %d entries, want %d", got, cap(ch))
	}

	hub.Unsubscribe(ch)
	if hub.Subscribers() != 0 {
		t.Fatal("expected no subscribers")
	}
	for range ch {
	}
}

func TestRecorderStoresAndPublishes(t *testing.T) {
	repo := openRepo(t)
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	rec := NewRecorder(repo, hub)
	if err := rec.RecordCompletion(context.Background(), completion("alice", "2025-03-10", time.Minute, 0)); err != nil {
		t.Fatalf("record: %v", err)
	}

	select {
	case e := <-ch:
		if e.Name != "alice" {
			t.Fatalf("published %+v", e)
		}
	default:
		t.Fatal("nothing published")
	}

	entries, err := repo.Recent(context.Background(), 10)
	if err != nil || len(entries) != 1 {
		t.Fatalf("stored = %v, %v", entries, err)
	}
}

func TestRecorderWithoutRepository(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	if err := NewRecorder(nil, hub).RecordCompletion(context.Background(), completion("bob", "2025-03-10", time.Second, 0)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(ch) != 1 {
		t.Fatal("expected entry on hub")
	}
}
