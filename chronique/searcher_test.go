package chronique

import (
	"context"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

// fakeSearcher returns a canned result or error and records calls.
type fakeSearcher struct {
	result *SearchResult
	err    error
	calls  int
}

func (f *fakeSearcher) Search(_ context.Context, _ *Monitor) (*SearchResult, error) {
	f.calls++
	return f.result, f.err
}

func TestRunMonitorNow_SearchesAndIngests(t *testing.T) {
	// WHAT: RunMonitorNow drives one search+ingest cycle and returns counts.
	searcher := &fakeSearcher{result: &SearchResult{Events: []CandidateEvent{
		{Title: "Budget Speech", Summary: "s", EventDate: "2025-06-15"},
	}}}
	svc, _ := setupTestService(t, WithSearcher(searcher))
	ctx := context.Background()

	m := addTestMonitor(t, svc, "fig-1", "topic-1")
	sum, err := svc.RunMonitorNow(ctx, m.ID)
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	if searcher.calls != 1 {
		t.Errorf("searcher called %d times, want 1", searcher.calls)
	}
	if sum.Created != 1 || sum.Skipped != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRunMonitorNow_NoSearcherConfigured(t *testing.T) {
	// WHAT: Without a searcher, on-demand runs fail with a sentinel;
	// direct Ingest still works.
	svc, _ := setupTestService(t)
	ctx := context.Background()

	m := addTestMonitor(t, svc, "fig-1", "topic-1")
	if _, err := svc.RunMonitorNow(ctx, m.ID); !errors.Is(err, ErrNoSearcher) {
		t.Errorf("expected ErrNoSearcher, got: %v", err)
	}
}

func TestRunMonitorNow_SearchFailureRecorded(t *testing.T) {
	// WHAT: A search failure records the error on the monitor and bumps
	// its fail count instead of touching last_status ok.
	searcher := &fakeSearcher{err: errors.New("provider down")}
	svc, _ := setupTestService(t, WithSearcher(searcher))
	ctx := context.Background()

	m := addTestMonitor(t, svc, "fig-1", "topic-1")
	if _, err := svc.RunMonitorNow(ctx, m.ID); err == nil {
		t.Fatal("expected error")
	}
	got, err := svc.GetMonitor(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastStatus != "error" || got.FailCount != 1 || got.LastError == "" {
		t.Errorf("failure not recorded: %+v", got)
	}
}

func TestRunMonitorNow_MonitorNotFound(t *testing.T) {
	// WHAT: An unknown monitor ID fails with not-found before searching.
	searcher := &fakeSearcher{result: &SearchResult{}}
	svc, _ := setupTestService(t, WithSearcher(searcher))
	if _, err := svc.RunMonitorNow(context.Background(), "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
	if searcher.calls != 0 {
		t.Errorf("searcher should not run for a missing monitor")
	}
}
