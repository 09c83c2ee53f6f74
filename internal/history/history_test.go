package history

import (
	"path/filepath"
	"testing"
	"time"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunRoundTrip(t *testing.T) {
	store := tempStore(t)

	run := &Run{DryRun: false, Letters: "[b c]", StartedAt: time.Now()}
	if err := store.AddRun(run); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("AddRun did not set an ID")
	}

	outcomes := []LetterOutcome{
		{RunID: run.ID, Letter: "b", Blocked: 3, Targets: 2, Unblocked: 2, Escalated: true, Retried: true},
		{RunID: run.ID, Letter: "c", Error: "request to x failed"},
	}
	for i := range outcomes {
		if err := store.AddLetter(&outcomes[i]); err != nil {
			t.Fatalf("AddLetter: %v", err)
		}
	}

	if err := store.FinishRun(run.ID, 2, 1); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].Unblocked != 2 || runs[0].Failed != 1 {
		t.Errorf("got %+v", runs[0])
	}

	got, err := store.LettersForRun(run.ID)
	if err != nil {
		t.Fatalf("LettersForRun: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(got))
	}
	if got[0].Letter != "b" || !got[0].Escalated || !got[0].Retried || got[0].Unblocked != 2 {
		t.Errorf("got %+v", got[0])
	}
	if got[1].Error != "request to x failed" {
		t.Errorf("got %+v", got[1])
	}
}

func TestTotalUnblockedIgnoresDryRuns(t *testing.T) {
	store := tempStore(t)

	live := &Run{DryRun: false, Letters: "[b]", StartedAt: time.Now()}
	dry := &Run{DryRun: true, Letters: "[b]", StartedAt: time.Now()}
	for _, r := range []*Run{live, dry} {
		if err := store.AddRun(r); err != nil {
			t.Fatalf("AddRun: %v", err)
		}
	}
	if err := store.FinishRun(live.ID, 5, 0); err != nil {
		t.Fatal(err)
	}
	if err := store.FinishRun(dry.ID, 7, 0); err != nil {
		t.Fatal(err)
	}

	total, err := store.TotalUnblocked()
	if err != nil {
		t.Fatalf("TotalUnblocked: %v", err)
	}
	if total != 5 {
		t.Errorf("got %d, want 5 (dry runs excluded)", total)
	}
}
