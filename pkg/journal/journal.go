// Package journal persists delivery outcomes to SQLite so past sessions can
// be inspected after the bridge exits.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite

	"adsbridge/pkg/bus"
)

// Entry is one stored delivery.
type Entry struct {
	ID        int64           `json:"id"`
	At        time.Time       `json:"at"`
	SessionID string          `json:"session_id,omitempty"`
	Provider  string          `json:"provider,omitempty"`
	Status    bus.Status      `json:"status"`
	Phase     string          `json:"phase"`
	Type      string          `json:"type,omitempty"`
	IsError   bool            `json:"is_error"`
	Event     json.RawMessage `json:"event"`
	Error     string          `json:"error,omitempty"`
}

// Filter narrows Recent. Empty fields match everything.
type Filter struct {
	Status    bus.Status
	Type      string
	SessionID string
	Limit     int
}

type Journal struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens or creates the journal database at path.
func Open(path string, log *slog.Logger) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is required")
	}
	if log == nil {
		log = slog.Default()
	}

	// WAL + busy timeout so the history command can read while a run writes.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db, log: log.With("component", "journal")}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS deliveries(
	  id         INTEGER PRIMARY KEY,
	  ts_utc     INTEGER NOT NULL,
	  session_id TEXT    NOT NULL DEFAULT '',
	  provider   TEXT    NOT NULL DEFAULT '',
	  status     TEXT    NOT NULL CHECK (status IN ('delivered','dropped','failed')),
	  phase      TEXT    NOT NULL,
	  type       TEXT    NOT NULL DEFAULT '',
	  is_error   INTEGER NOT NULL DEFAULT 0,
	  event_json TEXT    NOT NULL CHECK (json_valid(event_json)),
	  error      TEXT    NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_deliveries_ts      ON deliveries(ts_utc);
	CREATE INDEX IF NOT EXISTS idx_deliveries_session ON deliveries(session_id);
	CREATE INDEX IF NOT EXISTS idx_deliveries_status  ON deliveries(status);
	`)
	if err != nil {
		return fmt.Errorf("create journal tables: %w", err)
	}
	return nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores one delivery.
func (j *Journal) Record(ctx context.Context, d bus.Delivery) error {
	if d.Status == "" {
		return errors.New("delivery status is required")
	}
	if d.Event.IsZero() {
		return errors.New("delivery has no event")
	}
	if d.At.IsZero() {
		d.At = time.Now().UTC()
	}

	eventJSON, err := json.Marshal(d.Event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO deliveries(ts_utc, session_id, provider, status, phase, type, is_error, event_json, error)
		 VALUES(?,?,?,?,?,?,?,json(?),?)`,
		d.At.UnixMilli(), d.SessionID, d.Provider, string(d.Status),
		string(d.Event.Phase()), string(d.Event.Type()), d.Event.IsError(),
		string(eventJSON), d.Error,
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (j *Journal) Recent(ctx context.Context, filter Filter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, ts_utc, session_id, provider, status, phase, type, is_error, event_json, error FROM deliveries`
	var clauses []string
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			tsMillis  int64
			status    string
			eventJSON string
		)
		if err := rows.Scan(&entry.ID, &tsMillis, &entry.SessionID, &entry.Provider, &status,
			&entry.Phase, &entry.Type, &entry.IsError, &eventJSON, &entry.Error); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		entry.At = time.UnixMilli(tsMillis).UTC()
		entry.Status = bus.Status(status)
		entry.Event = json.RawMessage(eventJSON)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read deliveries: %w", err)
	}
	return entries, nil
}

// Run records deliveries until the channel closes. Once ctx is done it
// records whatever is still buffered and returns; writes are not cut short by
// the cancellation.
func (j *Journal) Run(ctx context.Context, deliveries <-chan bus.Delivery) {
	writeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			j.drain(writeCtx, deliveries)
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			j.record(writeCtx, d)
		}
	}
}

func (j *Journal) drain(ctx context.Context, deliveries <-chan bus.Delivery) {
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			j.record(ctx, d)
		default:
			return
		}
	}
}

func (j *Journal) record(ctx context.Context, d bus.Delivery) {
	if err := j.Record(ctx, d); err != nil {
		j.log.Warn("Delivery not journaled", "status", d.Status, "error", err)
	}
}
