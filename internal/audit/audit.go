// Package audit appends a rotating, append-only JSONL trail of destructive
// history operations (rollback, tag removal).
package audit

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const idPrefix = "evt-"

// Entry is one audit event. It is intentionally flexible: Kind plus the
// common fields cover rollback and removal; Extra carries anything else.
type Entry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`

	TagName     string `json:"tag_name,omitempty"`
	Branch      string `json:"branch,omitempty"`
	OldRevision uint64 `json:"old_revision,omitempty"`
	NewRevision uint64 `json:"new_revision,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// Log appends entries to a size-rotated JSONL file. A history database's
// audit trail is expected to live far longer than a single CLI session, so
// rotation is size-based rather than a fresh file per run.
type Log struct {
	writer *lumberjack.Logger
}

// Open returns a Log appending to path, rotating at maxSizeMB (0 uses
// lumberjack's default of 100MB) and keeping maxBackups old files.
func Open(path string, maxSizeMB, maxBackups int) *Log {
	return &Log{writer: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}}
}

// Close flushes and closes the underlying rotated file.
func (l *Log) Close() error {
	return l.writer.Close()
}

// Append writes one audit event as a single JSON line.
func (l *Log) Append(e *Entry) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil entry")
	}
	if e.Kind == "" {
		return "", fmt.Errorf("kind is required")
	}
	if e.ID == "" {
		id, err := newID()
		if err != nil {
			return "", err
		}
		e.ID = id
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	} else {
		e.CreatedAt = e.CreatedAt.UTC()
	}

	enc, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal audit entry: %w", err)
	}
	enc = append(enc, '\n')
	if _, err := l.writer.Write(enc); err != nil {
		return "", fmt.Errorf("write audit entry: %w", err)
	}
	return e.ID, nil
}

func newID() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate audit id: %w", err)
	}
	return idPrefix + hex.EncodeToString(b[:]), nil
}
