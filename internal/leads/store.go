// Package leads persists the contact records captured at report-request and
// send time. Records form an ever-growing ordered list in a single JSON
// file: no uniqueness constraint, no updates, no deletes — duplicates are
// expected and preserved.
//
// All writes go through one Store guarded by a mutex, so concurrent requests
// can no longer drop each other's entries, and each rewrite lands via a
// temp-file rename so a crash mid-write never corrupts the list.
package leads

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Record is one captured lead. Field names match the legacy leads.json
// format so existing files keep loading.
type Record struct {
	Timestamp  string `json:"timestamp"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Company    string `json:"company"`
	Newsletter bool   `json:"newsletter"`
}

// Fields carries the optional contact details supplied alongside an email
// address. Zero values get substituted with defaults on record.
type Fields struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Company   string `json:"companyName"`
	Subscribe bool   `json:"subscribe"`
}

// Recorder is the narrow interface the dispatcher and handlers depend on.
// Tests inject a stub that collects calls in memory.
type Recorder interface {
	Record(email string, fields Fields)
}

// ─── STORE ────────────────────────────────────────────────────────────────────

// Store appends records to one JSON file. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger

	now func() time.Time // injectable for tests
}

// NewStore creates a Store writing to path. The file is created on first
// record; a missing or unparsable file is treated as an empty list.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger, now: time.Now}
}

// Record appends a normalized lead. It is best-effort by contract: every
// failure is logged and swallowed so a lead problem can never fail a render
// or a send.
func (s *Store) Record(email string, fields Fields) {
	if email == "" {
		return
	}

	rec := Record{
		Timestamp:  s.now().UTC().Format(time.RFC3339),
		FirstName:  fields.FirstName,
		LastName:   fields.LastName,
		Email:      email,
		Company:    fields.Company,
		Newsletter: fields.Subscribe,
	}
	if rec.FirstName == "" {
		rec.FirstName = "Unknown"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	records = append(records, rec)

	if err := s.rewrite(records); err != nil {
		s.logger.Error("leads: save failed", "email", email, "error", err)
		return
	}
	s.logger.Info("leads: recorded", "email", email, "total", len(records))
}

// All returns a copy of every stored record in insertion order.
func (s *Store) All() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// load reads the backing file. Missing or corrupt content recovers to an
// empty list — never a hard error.
func (s *Store) load() []Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("leads: read failed, starting fresh", "path", s.path, "error", err)
		}
		return nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("leads: file was invalid, resetting", "path", s.path, "error", err)
		return nil
	}
	return records
}

// rewrite writes the full list to a sibling temp file and renames it over
// the target, so readers never observe a half-written file.
func (s *Store) rewrite(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".leads-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}
