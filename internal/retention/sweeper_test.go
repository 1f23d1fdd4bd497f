package retention

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/scrumkit/scrumkit/internal/config"
	"github.com/scrumkit/scrumkit/internal/db"
	"github.com/scrumkit/scrumkit/internal/models"
	"github.com/scrumkit/scrumkit/internal/store"
)

type fakeStore struct {
	sessions  []models.Session
	cutoff    time.Time
	deleted   []string
	failOn    string
	missingOn string
	listErr   error
}

func (f *fakeStore) ListCompletedBefore(_ context.Context, cutoff time.Time) ([]models.Session, error) {
	f.cutoff = cutoff
	return f.sessions, f.listErr
}

func (f *fakeStore) DeleteSession(_ context.Context, id string) error {
	switch id {
	case f.failOn:
		return errors.New("database is locked")
	case f.missingOn:
		return fmt.Errorf("store: session %s: %w", id, store.ErrNotFound)
	}
	f.deleted = append(f.deleted, id)
	return nil
}

var fixedNow = time.Date(2026, 10, 14, 3, 0, 0, 0, time.UTC)

func newTestSweeper(t *testing.T, st Store, cfg config.RetentionConfig) *Sweeper {
	t.Helper()
	s, err := New(st, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.RetentionConfig
		enabled bool
		wantErr string
	}{
		{"disabled", config.RetentionConfig{MaxAge: time.Hour}, false, ""},
		{"scheduled", config.RetentionConfig{Schedule: "0 3 * * *", MaxAge: time.Hour}, true, ""},
		{"bad schedule", config.RetentionConfig{Schedule: "every night", MaxAge: time.Hour}, false, "schedule"},
		{"no max age", config.RetentionConfig{Schedule: "0 3 * * *"}, false, "max age"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(&fakeStore{}, tt.cfg, nil)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if s.Enabled() != tt.enabled {
				t.Errorf("Enabled() = %v, want %v", s.Enabled(), tt.enabled)
			}
		})
	}
}

func TestSweep(t *testing.T) {
	st := &fakeStore{
		sessions:  []models.Session{{ID: "a"}, {ID: "gone"}, {ID: "b"}},
		missingOn: "gone",
	}
	s := newTestSweeper(t, st, config.RetentionConfig{MaxAge: 48 * time.Hour})

	n, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	if got := strings.Join(st.deleted, ","); got != "a,b" {
		t.Errorf("deleted ids = %s, want a,b", got)
	}
	if want := fixedNow.Add(-48 * time.Hour); !st.cutoff.Equal(want) {
		t.Errorf("cutoff = %s, want %s", st.cutoff, want)
	}
}

func TestSweep_StopsOnError(t *testing.T) {
	st := &fakeStore{sessions: []models.Session{{ID: "a"}, {ID: "bad"}, {ID: "c"}}, failOn: "bad"}
	s := newTestSweeper(t, st, config.RetentionConfig{MaxAge: time.Hour})

	n, err := s.Sweep(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bad") {
		t.Fatalf("err = %v, want failure naming the session", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}

func TestSweep_ListError(t *testing.T) {
	st := &fakeStore{listErr: errors.New("no such table")}
	s := newTestSweeper(t, st, config.RetentionConfig{MaxAge: time.Hour})
	if _, err := s.Sweep(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRun_DisabledReturnsImmediately(t *testing.T) {
	s := newTestSweeper(t, &fakeStore{}, config.RetentionConfig{MaxAge: time.Hour})
	if err := s.Run(context.Background()); err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := newTestSweeper(t, &fakeStore{}, config.RetentionConfig{Schedule: "0 3 * * *", MaxAge: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestUntilNext(t *testing.T) {
	sched, err := cronParser.Parse("0 9 * * *")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC)
	if got := untilNext(sched, now); got != 30*time.Minute {
		t.Errorf("untilNext = %s, want 30m", got)
	}

	every, _ := cronParser.Parse("* * * * *")
	if d := untilNext(every, time.Now()); d <= 0 || d > 61*time.Second {
		t.Errorf("untilNext every minute = %s, want within a minute", d)
	}
}

func TestSweep_AgainstStore(t *testing.T) {
	gormDB, err := db.ConnectSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatal(err)
	}
	st := store.New(gormDB)
	ctx := context.Background()

	old := fixedNow.Add(-100 * 24 * time.Hour)
	recent := fixedNow.Add(-time.Hour)
	for _, sess := range []*models.Session{
		{Name: "old", Status: models.PhaseCompleted, CompletedAt: &old, VotesPerUser: 5},
		{Name: "recent", Status: models.PhaseCompleted, CompletedAt: &recent, VotesPerUser: 5},
		{Name: "open", Status: models.PhaseVoting, VotesPerUser: 5},
	} {
		if err := st.CreateSession(ctx, sess); err != nil {
			t.Fatal(err)
		}
	}

	s := newTestSweeper(t, st, config.RetentionConfig{MaxAge: 90 * 24 * time.Hour})
	n, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	left, _ := st.ListSessions(ctx)
	if len(left) != 2 {
		t.Errorf("remaining sessions = %d, want 2", len(left))
	}
	for _, sess := range left {
		if sess.Name == "old" {
			t.Error("expired session survived the sweep")
		}
	}
}
