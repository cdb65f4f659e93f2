// Package audit keeps an append-only record of authorization decisions.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/shellbot-ai/shellbot/internal/logging"
	"github.com/shellbot-ai/shellbot/internal/permission"
)

// ComponentRecord is the audited verdict for one component of a line.
type ComponentRecord struct {
	Signature string `json:"signature"`
	Verdict   string `json:"verdict"`
}

// Record is one audited authorization. Records are observational only; the
// engine never reads them back.
type Record struct {
	ID         string            `json:"id"`
	Time       time.Time         `json:"time"`
	SessionID  string            `json:"session_id"`
	Command    string            `json:"command"`
	Verdict    string            `json:"verdict"`
	Components []ComponentRecord `json:"components,omitempty"`
	Decision   string            `json:"decision,omitempty"`
}

// Log writes records as individual JSON files under one directory. ULID ids
// double as filenames, so lexical order is chronological order.
type Log struct {
	dir string
	mu  sync.Mutex
	log zerolog.Logger
}

// New creates an audit log writing to dir.
func New(dir string) *Log {
	return &Log{
		dir: dir,
		log: logging.For("audit").With().Str("dir", dir).Logger(),
	}
}

// Record writes one authorization result. Failures are logged and swallowed:
// auditing must never block or fail an already-decided command.
func (l *Log) Record(sessionID string, result permission.Result) string {
	rec := Record{
		ID:        ulid.Make().String(),
		Time:      time.Now().UTC(),
		SessionID: sessionID,
		Command:   result.Command,
		Verdict:   string(result.Verdict),
		Decision:  string(result.Decision),
	}
	for _, cr := range result.Components {
		rec.Components = append(rec.Components, ComponentRecord{
			Signature: cr.Component.Signature(),
			Verdict:   string(cr.Verdict),
		})
	}

	if err := l.put(rec); err != nil {
		l.log.Error().Err(err).Str("command", result.Command).Msg("failed to write audit record")
		return ""
	}
	return rec.ID
}

// put persists one record with a temp-file + rename write.
func (l *Log) put(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	path := filepath.Join(l.dir, rec.ID+".json")
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename record: %w", err)
	}

	return nil
}

// Get reads one record by id.
func (l *Log) Get(id string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

// List returns all record ids in chronological order.
func (l *Log) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Scan iterates over all records in chronological order.
func (l *Log) Scan(fn func(rec Record) error) error {
	ids, err := l.List()
	if err != nil {
		return err
	}

	for _, id := range ids {
		rec, err := l.Get(id)
		if err != nil {
			// Skip records that can't be read
			continue
		}
		if err := fn(*rec); err != nil {
			return err
		}
	}
	return nil
}
