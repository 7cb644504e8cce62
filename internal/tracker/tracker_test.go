package tracker

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chr1sbest/switchboard/internal/logger"
	"github.com/chr1sbest/switchboard/internal/store"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	s := store.New(filepath.Join(t.TempDir(), "runs.json"), logger.NewNoopLogger())
	return New(s, logger.NewNoopLogger())
}

func TestRecordStartPrependsNewest(t *testing.T) {
	tr := newTestTracker(t)
	tr.RecordStart("run-a", "first", "first message", 1000)
	tr.RecordStart("run-b", "second", "second message", 2000)

	runs := tr.store.Load()
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].RunID != "run-b" || runs[1].RunID != "run-a" {
		t.Errorf("records out of order: %v, %v", runs[0].RunID, runs[1].RunID)
	}
	if runs[0].Status != StatusRunning {
		t.Errorf("new record status = %q", runs[0].Status)
	}
}

func TestRecordStartDeduplicatesByID(t *testing.T) {
	tr := newTestTracker(t)
	for i := 0; i < 5; i++ {
		tr.RecordStart("run-a", "again", "again", int64(1000+i))
		tr.RecordUpdate("run-a", Patch{Status: "done"}, int64(2000+i))
	}

	runs := tr.store.Load()
	count := 0
	for _, r := range runs {
		if r.RunID == "run-a" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("run-a appears %d times, want 1", count)
	}
}

func TestStoreNeverExceedsMaxRuns(t *testing.T) {
	tr := newTestTracker(t)
	for i := 0; i < MaxRuns+25; i++ {
		tr.RecordStart(fmt.Sprintf("run-%03d", i), "s", "m", int64(i))
	}

	runs := tr.store.Load()
	if len(runs) != MaxRuns {
		t.Fatalf("store holds %d records, want %d", len(runs), MaxRuns)
	}
	// Newest survives, oldest evicted.
	if runs[0].RunID != fmt.Sprintf("run-%03d", MaxRuns+24) {
		t.Errorf("newest record = %q", runs[0].RunID)
	}
}

func TestRecordUpdateMergesAndRefreshes(t *testing.T) {
	tr := newTestTracker(t)
	tr.RecordStart("run-a", "digest", "full message", 1000)
	tr.RecordUpdate("run-a", Patch{Status: StatusDone, CompletedAtMs: 5000}, 5000)

	runs := tr.store.Load()
	rec := runs[0]
	if rec.Status != StatusDone {
		t.Errorf("status = %q", rec.Status)
	}
	if rec.CompletedAtMs != 5000 {
		t.Errorf("completed_at_ms = %d", rec.CompletedAtMs)
	}
	if rec.UpdatedAtMs != 5000 {
		t.Errorf("updated_at_ms = %d", rec.UpdatedAtMs)
	}
	// Untouched fields survive the patch.
	if rec.Summary != "digest" || rec.Message != "full message" || rec.StartedAtMs != 1000 {
		t.Errorf("patch clobbered other fields: %+v", rec)
	}
}

func TestRecordUpdateSelfHealsMissingRecord(t *testing.T) {
	tr := newTestTracker(t)
	tr.RecordUpdate("ghost", Patch{Status: "done"}, 9000)

	runs := tr.store.Load()
	if len(runs) != 1 || runs[0].RunID != "ghost" {
		t.Fatalf("expected inserted record, got %v", runs)
	}
	if runs[0].Status != "done" {
		t.Errorf("status = %q", runs[0].Status)
	}
}

func TestFindForStatusQueryPrefersRunning(t *testing.T) {
	tr := newTestTracker(t)
	tr.RecordStart("run-done", "finished", "m", 1000)
	tr.RecordUpdate("run-done", Patch{Status: StatusDone}, 1500)
	tr.RecordStart("run-old-running", "old", "m", 2000)
	tr.RecordStart("run-newest-done", "newest", "m", 3000)
	tr.RecordUpdate("run-newest-done", Patch{Status: StatusDone}, 3500)

	rec := tr.FindForStatusQuery("check status")
	if rec == nil || rec.RunID != "run-old-running" {
		t.Fatalf("FindForStatusQuery = %v, want the running record", rec)
	}
}

func TestFindForStatusQueryFallsBackToNewest(t *testing.T) {
	tr := newTestTracker(t)
	tr.RecordStart("run-a", "a", "m", 1000)
	tr.RecordUpdate("run-a", Patch{Status: StatusDone}, 1100)
	tr.RecordStart("run-b", "b", "m", 2000)
	tr.RecordUpdate("run-b", Patch{Status: "failed"}, 2100)

	rec := tr.FindForStatusQuery("status")
	if rec == nil || rec.RunID != "run-b" {
		t.Fatalf("FindForStatusQuery = %v, want newest record", rec)
	}
}

func TestFindForStatusQueryEmptyStore(t *testing.T) {
	tr := newTestTracker(t)
	if rec := tr.FindForStatusQuery("check status"); rec != nil {
		t.Fatalf("FindForStatusQuery = %v, want nil", rec)
	}
}

func TestFindForStatusQueryByShortRef(t *testing.T) {
	tr := newTestTracker(t)
	tr.RecordStart("abcdef12-3456-7890-abcd-ef1234567890", "target", "m", 1000)
	tr.RecordStart("run-other", "other", "m", 2000)

	rec := tr.FindForStatusQuery("status of #abcdef12 please")
	if rec == nil || !strings.HasPrefix(rec.RunID, "abcdef12") {
		t.Fatalf("FindForStatusQuery = %v, want short-ref match", rec)
	}

	rec = tr.FindForStatusQuery("status abcdef12-3456-7890-abcd-ef1234567890")
	if rec == nil || !strings.HasPrefix(rec.RunID, "abcdef12") {
		t.Fatalf("FindForStatusQuery = %v, want full-id match", rec)
	}

	if rec := tr.FindForStatusQuery("status of #zzzzzzzz"); rec != nil {
		t.Fatalf("unknown ref should return nil, got %v", rec)
	}
}

func TestIsStatusQuery(t *testing.T) {
	yes := []string{
		"check status",
		"Status",
		"job status please",
		"are you done?",
		"  STATUS   UPDATE  ",
		"hey, is it done yet",
	}
	for _, s := range yes {
		if !IsStatusQuery(s) {
			t.Errorf("IsStatusQuery(%q) = false, want true", s)
		}
	}

	no := []string{
		"please update the doc",
		"turn on the lights",
		"statistics look wrong, fix the dashboard",
		"",
	}
	for _, s := range no {
		if IsStatusQuery(s) {
			t.Errorf("IsStatusQuery(%q) = true, want false", s)
		}
	}
}

func TestParseRunRef(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"status of #abcd1234", "#abcd1234"},
		{"check abcdef12-3456-7890-abcd-ef1234567890", "abcdef12-3456-7890-abcd-ef1234567890"},
		{"check 0123456789abcdef", "0123456789abcdef"},
		{"check status", ""},
		{"#short", ""}, // short form must be exactly 8 chars
	}
	for _, tt := range tests {
		if got := ParseRunRef(tt.input); got != tt.want {
			t.Errorf("ParseRunRef(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSummarizeAndTruncate(t *testing.T) {
	long := strings.Repeat("word ", 60)
	sum := Summarize(long)
	if len([]rune(sum)) > SummaryBudget {
		t.Errorf("summary length %d exceeds budget", len([]rune(sum)))
	}
	if !strings.HasSuffix(sum, "…") {
		t.Errorf("truncated summary should end with ellipsis: %q", sum)
	}

	if got := Summarize("  turn   on the lights  "); got != "turn on the lights" {
		t.Errorf("Summarize should collapse whitespace, got %q", got)
	}

	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate should leave short strings alone, got %q", got)
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("abcdef12-3456"); got != "abcdef12" {
		t.Errorf("ShortID = %q", got)
	}
	if got := ShortID("tiny"); got != "tiny" {
		t.Errorf("ShortID = %q", got)
	}
}

func TestNewRunIDUnique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == "" || a == b {
		t.Errorf("NewRunID() produced %q and %q", a, b)
	}
}
