package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chr1sbest/switchboard/internal/logger"
)

// RunRecord is one dispatched instruction's persisted status.
type RunRecord struct {
	RunID         string `json:"run_id"`
	Summary       string `json:"summary,omitempty"`
	Message       string `json:"message,omitempty"`
	StartedAtMs   int64  `json:"started_at_ms"`
	UpdatedAtMs   int64  `json:"updated_at_ms"`
	CompletedAtMs int64  `json:"completed_at_ms,omitempty"`
	Status        string `json:"status"`
}

// document is the on-disk shape: a single JSON object with a runs array,
// most recent first.
type document struct {
	Runs []RunRecord `json:"runs"`
}

// Store reads and writes the run-state document. Persistence is best
// effort: loads tolerate a missing or corrupt file and saves log failures
// instead of returning them, so a bad disk never aborts a dispatch.
type Store struct {
	Path string
	log  logger.Logger
}

// New creates a store backed by the given file path.
func New(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Store{Path: path, log: log}
}

// Load returns the current run records, newest first. A missing,
// unreadable, or malformed file yields an empty list.
func (s *Store) Load() []RunRecord {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("run state unreadable, starting empty", logger.F("path", s.Path), logger.F("error", err))
		}
		return nil
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		s.log.Warn("run state malformed, starting empty", logger.F("path", s.Path), logger.F("error", err))
		return nil
	}
	return doc.Runs
}

// Save rewrites the whole document. Failures are logged and swallowed.
func (s *Store) Save(runs []RunRecord) {
	if runs == nil {
		runs = []RunRecord{}
	}
	if err := writeJSONAtomic(s.Path, document{Runs: runs}); err != nil {
		s.log.Error("failed to persist run state", logger.F("path", s.Path), logger.F("error", err))
	}
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
