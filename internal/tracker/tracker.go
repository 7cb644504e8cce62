package tracker

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/chr1sbest/switchboard/internal/logger"
	"github.com/chr1sbest/switchboard/internal/store"
)

const (
	// MaxRuns bounds the persisted list; the oldest record is evicted.
	MaxRuns = 50

	// Character budgets for stored text. Summaries feed notification
	// one-liners; the full message is kept only for operator context.
	SummaryBudget = 120
	MessageBudget = 600

	StatusRunning = "running"
	StatusDone    = "done"
)

// Patch carries partial updates for RecordUpdate. Zero values are skipped.
type Patch struct {
	Status        string
	CompletedAtMs int64
	Message       string
}

// Tracker owns the run-record list. It serializes its own read-modify-write
// cycles; the backing file itself stays best-effort and unlocked across
// processes.
type Tracker struct {
	mu    sync.Mutex
	store *store.Store
	log   logger.Logger
}

// New creates a tracker over the given store.
func New(s *store.Store, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Tracker{store: s, log: log}
}

// RecordStart upserts a running record for runID, prepending it and
// evicting any prior record with the same id. The list is truncated to
// MaxRuns.
func (t *Tracker) RecordStart(runID, summary, message string, startedAtMs int64) store.RunRecord {
	rec := store.RunRecord{
		RunID:       runID,
		Summary:     Truncate(summary, SummaryBudget),
		Message:     Truncate(message, MessageBudget),
		StartedAtMs: startedAtMs,
		UpdatedAtMs: startedAtMs,
		Status:      StatusRunning,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	runs := t.store.Load()
	kept := make([]store.RunRecord, 0, len(runs)+1)
	kept = append(kept, rec)
	for _, r := range runs {
		if r.RunID == runID {
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) > MaxRuns {
		kept = kept[:MaxRuns]
	}
	t.store.Save(kept)
	return rec
}

// RecordUpdate merges patch into the record matching runID and refreshes
// its updated timestamp. If no record exists (e.g. the start write raced a
// concurrent eviction) a minimal record is inserted so the update is never
// lost.
func (t *Tracker) RecordUpdate(runID string, patch Patch, nowMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	runs := t.store.Load()
	for i := range runs {
		if runs[i].RunID != runID {
			continue
		}
		applyPatch(&runs[i], patch, nowMs)
		t.store.Save(runs)
		return
	}

	rec := store.RunRecord{
		RunID:       runID,
		StartedAtMs: nowMs,
		Status:      StatusRunning,
	}
	applyPatch(&rec, patch, nowMs)
	runs = append([]store.RunRecord{rec}, runs...)
	if len(runs) > MaxRuns {
		runs = runs[:MaxRuns]
	}
	t.store.Save(runs)
}

func applyPatch(rec *store.RunRecord, patch Patch, nowMs int64) {
	if patch.Status != "" {
		rec.Status = patch.Status
	}
	if patch.CompletedAtMs != 0 {
		rec.CompletedAtMs = patch.CompletedAtMs
	}
	if patch.Message != "" {
		rec.Message = Truncate(patch.Message, MessageBudget)
	}
	rec.UpdatedAtMs = nowMs
}

// FindForStatusQuery picks the record a "check status" message refers to.
// An explicit run reference in the text wins; otherwise the newest running
// record, falling back to the newest record overall. Returns nil when the
// store is empty or the reference matches nothing.
func (t *Tracker) FindForStatusQuery(text string) *store.RunRecord {
	t.mu.Lock()
	runs := t.store.Load()
	t.mu.Unlock()

	if len(runs) == 0 {
		return nil
	}

	if ref := ParseRunRef(text); ref != "" {
		short := strings.TrimPrefix(ref, "#")
		for i := range runs {
			id := strings.ToLower(runs[i].RunID)
			if id == ref || strings.HasPrefix(id, short) {
				return &runs[i]
			}
		}
		return nil
	}

	for i := range runs {
		if runs[i].Status == StatusRunning {
			return &runs[i]
		}
	}
	return &runs[0]
}

// NewRunID generates a local run id for when the backend omits one.
func NewRunID() string {
	return uuid.NewString()
}

// ShortID renders the 8-char form used in human-readable notices.
func ShortID(runID string) string {
	if len(runID) <= 8 {
		return runID
	}
	return runID[:8]
}

// Summarize produces the short instruction digest stored on a record.
func Summarize(message string) string {
	s := strings.Join(strings.Fields(message), " ")
	return Truncate(s, SummaryBudget)
}

// Truncate clamps s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
