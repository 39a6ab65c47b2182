package sink

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// SQLite indexes records in a single table so they can be queried by observer and object
type SQLite struct {
	db   *sql.DB
	once sync.Once
}

// RecordFilter narrows SQLite.Records. Zero values match everything.
type RecordFilter struct {
	Observer string
	ObjectID fovlog.ObjectID
	Since    time.Time
	Until    time.Time
	Limit    int
}

// OpenSQLite opens (or creates) index at path
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrapf(err, "Can't create directory for '%s'", path)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open sqlite '%s'", path)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "Can't apply pragmas")
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "Can't create schema")
	}
	return &SQLite{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS visibility_records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			observer TEXT NOT NULL,
			object_id INTEGER NOT NULL,
			object_name TEXT NOT NULL,
			immediate INTEGER NOT NULL,
			predicted INTEGER NOT NULL,
			immediate_distance REAL NOT NULL,
			predicted_distance REAL NOT NULL,
			size INTEGER NOT NULL,
			exit INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_observer_ts ON visibility_records(observer, ts);`,
		`CREATE INDEX IF NOT EXISTS idx_records_object_ts ON visibility_records(object_id, ts);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Append implements Sink. Each batch is one transaction.
func (index *SQLite) Append(ctx context.Context, records []fovlog.LogRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := index.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(fovlog.ErrLogWrite, "begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO visibility_records(ts,observer,object_id,object_name,immediate,predicted,immediate_distance,predicted_distance,size,exit) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return errors.Wrapf(fovlog.ErrLogWrite, "prepare: %v", err)
	}
	defer stmt.Close()
	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.Time.Unix(), r.Observer, int64(r.ObjectID), r.ObjectName,
			boolToInt(r.Immediate), boolToInt(r.Predicted),
			float64(r.ImmediateDistance), float64(r.PredictedDistance),
			int64(r.Size), boolToInt(r.Exit),
		)
		if err != nil {
			return errors.Wrapf(fovlog.ErrLogWrite, "insert: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrapf(fovlog.ErrLogWrite, "commit: %v", err)
	}
	return nil
}

// Records returns stored records matching filter in insertion order
func (index *SQLite) Records(ctx context.Context, filter RecordFilter) ([]fovlog.LogRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.Observer != "" {
		where = append(where, "observer = ?")
		args = append(args, filter.Observer)
	}
	if filter.ObjectID != 0 {
		where = append(where, "object_id = ?")
		args = append(args, int64(filter.ObjectID))
	}
	if !filter.Since.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, filter.Since.Unix())
	}
	if !filter.Until.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, filter.Until.Unix())
	}
	query := `SELECT ts,observer,object_id,object_name,immediate,predicted,immediate_distance,predicted_distance,size,exit FROM visibility_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := index.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "Can't query records")
	}
	defer rows.Close()
	out := make([]fovlog.LogRecord, 0)
	for rows.Next() {
		var (
			ts, objectID, size           int64
			immediate, predicted, exit   int
			immediateDist, predictedDist float64
			r                            fovlog.LogRecord
		)
		if err := rows.Scan(&ts, &r.Observer, &objectID, &r.ObjectName, &immediate, &predicted, &immediateDist, &predictedDist, &size, &exit); err != nil {
			return nil, errors.Wrap(err, "Can't scan record")
		}
		r.Time = time.Unix(ts, 0)
		r.ObjectID = fovlog.ObjectID(objectID)
		r.Immediate = immediate != 0
		r.Predicted = predicted != 0
		r.ImmediateDistance = fovlog.Distance(immediateDist)
		r.PredictedDistance = fovlog.Distance(predictedDist)
		r.Size = fovlog.Bytes(size)
		r.Exit = exit != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// ObserverSummary aggregates records of one observer
type ObserverSummary struct {
	Observer string
	Records  int
	Objects  int
}

// Observers lists every observer with its record and distinct object counts
func (index *SQLite) Observers(ctx context.Context) ([]ObserverSummary, error) {
	rows, err := index.db.QueryContext(ctx, `SELECT observer, COUNT(*), COUNT(DISTINCT object_id) FROM visibility_records GROUP BY observer ORDER BY observer`)
	if err != nil {
		return nil, errors.Wrap(err, "Can't query observers")
	}
	defer rows.Close()
	out := make([]ObserverSummary, 0)
	for rows.Next() {
		var summary ObserverSummary
		if err := rows.Scan(&summary.Observer, &summary.Records, &summary.Objects); err != nil {
			return nil, errors.Wrap(err, "Can't scan observer")
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Close implements Sink
func (index *SQLite) Close() error {
	var err error
	index.once.Do(func() {
		err = index.db.Close()
	})
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
