// Package journal persists what the nervous system observed and did in a
// local SQLite database, so history survives restarts.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/awareness"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/watcher"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Config selects the journal database.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig keeps the journal next to the working directory.
func DefaultConfig() Config {
	return Config{Enabled: true, Path: "nexus.db"}
}

// Heartbeat is one engine heartbeat.
type Heartbeat struct {
	Beat              int           `json:"beat"`
	Timestamp         time.Time     `json:"timestamp"`
	Uptime            time.Duration `json:"uptime"`
	AutonomousActions int           `json:"autonomous_actions"`
	BrainHealthy      bool          `json:"brain_healthy"`
}

// Counts is the number of rows per table.
type Counts struct {
	Changes        int `json:"changes"`
	Optimizations  int `json:"optimizations"`
	Heartbeats     int `json:"heartbeats"`
	Introspections int `json:"introspections"`
}

// Journal is the SQLite-backed history store. It is safe for concurrent use.
type Journal struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open creates or opens the journal at path. MemoryPath gives a throwaway
// database.
func Open(path string) (*Journal, error) {
	dsn := path + "?_busy_timeout=5000"
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nerrors.JournalWrap(err, nerrors.ErrJournalOpenFailed, "failed to create journal directory").
				WithContext("path", path)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nerrors.JournalWrap(err, nerrors.ErrJournalOpenFailed, "failed to open journal").
			WithContext("path", path)
	}
	// Every pooled connection to :memory: would see its own empty database.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, path: path}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, nerrors.JournalWrap(err, nerrors.ErrJournalOpenFailed, "failed to initialize journal schema").
			WithContext("path", path)
	}
	return j, nil
}

// Path returns the database path.
func (j *Journal) Path() string { return j.path }

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS changes (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		description TEXT NOT NULL,
		data_json TEXT,
		requires_action INTEGER NOT NULL DEFAULT 0,
		suggested_json TEXT,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_changes_timestamp ON changes(timestamp);
	CREATE INDEX IF NOT EXISTS idx_changes_type ON changes(type);

	CREATE TABLE IF NOT EXISTS optimizations (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		forced INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		steps_json TEXT,
		rollback_json TEXT,
		error TEXT,
		benefits_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_optimizations_started ON optimizations(started_at);
	CREATE INDEX IF NOT EXISTS idx_optimizations_status ON optimizations(status);

	CREATE TABLE IF NOT EXISTS heartbeats (
		beat INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		uptime_ms INTEGER NOT NULL,
		autonomous_actions INTEGER NOT NULL,
		brain_healthy INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS awareness (
		cycle INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		deep INTEGER NOT NULL DEFAULT 0,
		thought TEXT,
		changes_json TEXT,
		brain_status TEXT,
		level TEXT NOT NULL,
		mood TEXT,
		confidence REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_awareness_timestamp ON awareness(timestamp);
	`
	_, err := j.db.Exec(schema)
	return err
}

func (j *Journal) exec(ctx context.Context, table, query string, args ...any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.db.ExecContext(ctx, query, args...); err != nil {
		return nerrors.JournalWrap(err, nerrors.ErrJournalWriteFailed, "journal insert failed").
			WithContext("table", table)
	}
	return nil
}

// RecordChange stores a detected change. Recording the same event twice
// keeps the latest copy.
func (j *Journal) RecordChange(ctx context.Context, ev watcher.ChangeEvent) error {
	data, err := marshal(ev.Data)
	if err != nil {
		return err
	}
	suggested, err := marshal(ev.SuggestedActions)
	if err != nil {
		return err
	}
	return j.exec(ctx, "changes", `
		INSERT OR REPLACE INTO changes (id, type, severity, description, data_json, requires_action, suggested_json, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.Type), string(ev.Severity), ev.Description, data,
		boolInt(ev.RequiresAction), suggested, ev.Timestamp.UTC())
}

// RecordOptimization stores an optimization record.
func (j *Journal) RecordOptimization(ctx context.Context, rec reflex.Record) error {
	steps, err := marshal(rec.Steps)
	if err != nil {
		return err
	}
	rollback, err := marshal(rec.Rollback)
	if err != nil {
		return err
	}
	benefits, err := marshal(rec.Benefits)
	if err != nil {
		return err
	}
	var ended any
	if !rec.EndedAt.IsZero() {
		ended = rec.EndedAt.UTC()
	}
	return j.exec(ctx, "optimizations", `
		INSERT OR REPLACE INTO optimizations (id, type, status, forced, started_at, ended_at, steps_json, rollback_json, error, benefits_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Type), string(rec.Status), boolInt(rec.Forced), rec.StartedAt.UTC(), ended,
		steps, rollback, rec.Error, benefits)
}

// RecordHeartbeat stores an engine heartbeat.
func (j *Journal) RecordHeartbeat(ctx context.Context, hb Heartbeat) error {
	return j.exec(ctx, "heartbeats", `
		INSERT INTO heartbeats (beat, timestamp, uptime_ms, autonomous_actions, brain_healthy)
		VALUES (?, ?, ?, ?, ?)`,
		hb.Beat, hb.Timestamp.UTC(), hb.Uptime.Milliseconds(), hb.AutonomousActions, boolInt(hb.BrainHealthy))
}

// RecordIntrospection stores an introspection outcome.
func (j *Journal) RecordIntrospection(ctx context.Context, r awareness.Reflection) error {
	changes, err := marshal(r.Changes)
	if err != nil {
		return err
	}
	return j.exec(ctx, "awareness", `
		INSERT INTO awareness (cycle, timestamp, deep, thought, changes_json, brain_status, level, mood, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Cycle, r.Timestamp.UTC(), boolInt(r.Deep), r.Thought, changes, r.Snapshot.BrainStatus,
		string(r.Level), string(r.Mood), r.Confidence)
}

// RecentChanges returns up to limit changes, newest first.
func (j *Journal) RecentChanges(ctx context.Context, limit int) ([]watcher.ChangeEvent, error) {
	rows, err := j.query(ctx, "changes", `
		SELECT id, type, severity, description, data_json, requires_action, suggested_json, timestamp
		FROM changes ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limitOrAll(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []watcher.ChangeEvent
	for rows.Next() {
		var (
			ev              watcher.ChangeEvent
			typ, severity   string
			data, suggested sql.NullString
			requiresAction  int
		)
		if err := rows.Scan(&ev.ID, &typ, &severity, &ev.Description, &data, &requiresAction, &suggested, &ev.Timestamp); err != nil {
			return nil, readErr(err, "changes")
		}
		ev.Type = watcher.ChangeType(typ)
		ev.Severity = watcher.Severity(severity)
		ev.RequiresAction = requiresAction != 0
		if err := unmarshal(data, &ev.Data); err != nil {
			return nil, readErr(err, "changes")
		}
		if err := unmarshal(suggested, &ev.SuggestedActions); err != nil {
			return nil, readErr(err, "changes")
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err, "changes")
	}
	return out, nil
}

// RecentOptimizations returns up to limit optimization records, newest first.
func (j *Journal) RecentOptimizations(ctx context.Context, limit int) ([]reflex.Record, error) {
	rows, err := j.query(ctx, "optimizations", `
		SELECT id, type, status, forced, started_at, ended_at, steps_json, rollback_json, error, benefits_json
		FROM optimizations ORDER BY started_at DESC, rowid DESC LIMIT ?`, limitOrAll(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reflex.Record
	for rows.Next() {
		var (
			rec                       reflex.Record
			typ, status               string
			forced                    int
			ended                     sql.NullTime
			steps, rollback, benefits sql.NullString
			errText                   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &typ, &status, &forced, &rec.StartedAt, &ended, &steps, &rollback, &errText, &benefits); err != nil {
			return nil, readErr(err, "optimizations")
		}
		rec.Type = reflex.OptimizationType(typ)
		rec.Status = reflex.Status(status)
		rec.Forced = forced != 0
		rec.Error = errText.String
		if ended.Valid {
			rec.EndedAt = ended.Time
		}
		for _, f := range []struct {
			src sql.NullString
			dst any
		}{{steps, &rec.Steps}, {rollback, &rec.Rollback}, {benefits, &rec.Benefits}} {
			if err := unmarshal(f.src, f.dst); err != nil {
				return nil, readErr(err, "optimizations")
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err, "optimizations")
	}
	return out, nil
}

// RecentIntrospections returns up to limit introspections, newest first.
func (j *Journal) RecentIntrospections(ctx context.Context, limit int) ([]awareness.Reflection, error) {
	rows, err := j.query(ctx, "awareness", `
		SELECT cycle, timestamp, deep, thought, changes_json, brain_status, level, mood, confidence
		FROM awareness ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limitOrAll(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []awareness.Reflection
	for rows.Next() {
		var (
			r                 awareness.Reflection
			deep              int
			thought, changes  sql.NullString
			brainStatus, mood sql.NullString
			level             string
		)
		if err := rows.Scan(&r.Cycle, &r.Timestamp, &deep, &thought, &changes, &brainStatus, &level, &mood, &r.Confidence); err != nil {
			return nil, readErr(err, "awareness")
		}
		r.Deep = deep != 0
		r.Thought = thought.String
		r.Level = awareness.Level(level)
		r.Mood = awareness.Mood(mood.String)
		r.Snapshot = awareness.Snapshot{Timestamp: r.Timestamp, Cycle: r.Cycle, BrainStatus: brainStatus.String}
		if err := unmarshal(changes, &r.Changes); err != nil {
			return nil, readErr(err, "awareness")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err, "awareness")
	}
	return out, nil
}

// Counts returns the number of rows per table.
func (j *Journal) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	for _, t := range []struct {
		table string
		dst   *int
	}{
		{"changes", &c.Changes},
		{"optimizations", &c.Optimizations},
		{"heartbeats", &c.Heartbeats},
		{"awareness", &c.Introspections},
	} {
		j.mu.Lock()
		err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst)
		j.mu.Unlock()
		if err != nil {
			return Counts{}, readErr(err, t.table)
		}
	}
	return c, nil
}

func (j *Journal) query(ctx context.Context, table, query string, args ...any) (*sql.Rows, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, readErr(err, table)
	}
	return rows, nil
}

func readErr(err error, table string) error {
	return nerrors.JournalWrap(err, nerrors.ErrJournalReadFailed, "journal query failed").
		WithContext("table", table)
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", nerrors.JournalWrap(err, nerrors.ErrJournalWriteFailed, "failed to encode journal column")
	}
	return string(b), nil
}

func unmarshal(src sql.NullString, dst any) error {
	if !src.Valid || src.String == "" || src.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dst)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// limitOrAll maps a non-positive limit to SQLite's "no limit".
func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
