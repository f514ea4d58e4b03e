package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ogulcanaydogan/bullfrog/pkg/model"

	_ "modernc.org/sqlite"
)

const alertColumns = `fingerprint, condition_type, subject, subject_key, severity, status,
	first_seen_at, last_seen_at, last_sent_at, details`

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

var _ Storage = (*SQLite)(nil)

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// _txlock=immediate takes the write lock at BEGIN, where busy_timeout
	// applies, instead of at the first write of a read-then-write transaction.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer connection keeps read-check-write transactions from
	// tripping over SQLITE_BUSY lock upgrades.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// NewSQLiteFromDB wraps an already opened, already migrated database.
func NewSQLiteFromDB(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) GetAlert(ctx context.Context, fingerprint string) (*model.AlertRecord, error) {
	rec, err := scanAlert(s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE fingerprint = ?`, fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get alert", err)
	}
	return rec, nil
}

func (s *SQLite) UpsertAlert(ctx context.Context, record *model.AlertRecord) error {
	if record.Status == "" {
		record.Status = model.StatusOpen
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (`+alertColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
		   severity = excluded.severity,
		   status = excluded.status,
		   last_seen_at = excluded.last_seen_at,
		   last_sent_at = excluded.last_sent_at,
		   details = excluded.details`,
		record.Fingerprint, record.ConditionType, record.Subject, record.SubjectKey,
		string(record.Severity), string(record.Status),
		record.FirstSeenAt.UTC(), record.LastSeenAt.UTC(), nullTime(record.LastSentAt),
		record.Details,
	)
	if err != nil {
		return storeErr("upsert alert", err)
	}
	return nil
}

func (s *SQLite) ObserveAlert(ctx context.Context, obs model.Observation) (*model.AlertRecord, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, storeErr("begin observe", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM alerts WHERE fingerprint = ?`, obs.Fingerprint,
	).Scan(&existing); err != nil {
		return nil, false, storeErr("check alert", err)
	}

	now := obs.ObservedAt.UTC()
	// ON CONFLICT covers a concurrent writer that inserted between the check and here.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO alerts (`+alertColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
		   last_seen_at = excluded.last_seen_at,
		   severity = excluded.severity,
		   details = excluded.details,
		   status = excluded.status`,
		obs.Fingerprint, obs.ConditionType, obs.Subject, obs.SubjectKey,
		string(obs.Severity), string(model.StatusOpen), now, now, obs.Details,
	)
	if err != nil {
		return nil, false, storeErr("observe alert", err)
	}

	rec, err := scanAlert(tx.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE fingerprint = ?`, obs.Fingerprint))
	if err != nil {
		return nil, false, storeErr("read observed alert", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, storeErr("commit observe", err)
	}
	return rec, existing == 0, nil
}

func (s *SQLite) MarkAlertSent(ctx context.Context, fingerprint string, sentAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET last_sent_at = ? WHERE fingerprint = ?`, sentAt.UTC(), fingerprint)
	if err != nil {
		return storeErr("mark alert sent", err)
	}
	return checkAffected(result, fingerprint)
}

func (s *SQLite) SetAlertStatus(ctx context.Context, fingerprint string, status model.Status) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET status = ? WHERE fingerprint = ?`, string(status), fingerprint)
	if err != nil {
		return storeErr("set alert status", err)
	}
	return checkAffected(result, fingerprint)
}

func (s *SQLite) ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.AlertRecord, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`
	where, args := buildAlertWhere(filter, func(int) string { return "?" })
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY last_seen_at DESC, fingerprint"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list alerts", err)
	}
	defer rows.Close()

	var records []model.AlertRecord
	for rows.Next() {
		rec, err := scanAlert(rows)
		if err != nil {
			return nil, storeErr("scan alert row", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list alerts", err)
	}
	return records, nil
}

func (s *SQLite) RecordSnapshots(ctx context.Context, snapshots []model.LicenseSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin snapshots", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO license_snapshots (batch_id, captured_at, org_id, license_id, license_name,
			total_units, consumed_units, subscription_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return storeErr("prepare snapshot insert", err)
	}
	defer stmt.Close()

	for _, snap := range snapshots {
		if _, err := stmt.ExecContext(ctx,
			snap.BatchID, snap.CapturedAt.UTC(), snap.OrgID, snap.LicenseID,
			nullString(snap.LicenseName), nullInt(snap.TotalUnits), nullInt(snap.ConsumedUnits),
			nullString(snap.SubscriptionID),
		); err != nil {
			return storeErr("insert snapshot", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit snapshots", err)
	}
	return nil
}

func (s *SQLite) LatestSnapshots(ctx context.Context) (time.Time, []model.LicenseSnapshot, error) {
	var batchID string
	err := s.db.QueryRowContext(ctx,
		`SELECT batch_id FROM license_snapshots ORDER BY id DESC LIMIT 1`).Scan(&batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil, ErrNoSnapshots
	}
	if err != nil {
		return time.Time{}, nil, storeErr("find latest batch", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, captured_at, org_id, license_id, license_name,
			total_units, consumed_units, subscription_id
		 FROM license_snapshots WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return time.Time{}, nil, storeErr("query snapshots", err)
	}
	defer rows.Close()

	var snaps []model.LicenseSnapshot
	for rows.Next() {
		var snap model.LicenseSnapshot
		var name, subscription sql.NullString
		var total, consumed sql.NullInt64
		if err := rows.Scan(&snap.ID, &snap.BatchID, &snap.CapturedAt, &snap.OrgID, &snap.LicenseID,
			&name, &total, &consumed, &subscription); err != nil {
			return time.Time{}, nil, storeErr("scan snapshot row", err)
		}
		snap.CapturedAt = snap.CapturedAt.UTC()
		snap.LicenseName = name.String
		snap.SubscriptionID = subscription.String
		snap.TotalUnits = int64Ptr(total)
		snap.ConsumedUnits = int64Ptr(consumed)
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return time.Time{}, nil, storeErr("query snapshots", err)
	}
	if len(snaps) == 0 {
		return time.Time{}, nil, ErrNoSnapshots
	}
	return snaps[0].CapturedAt, snaps, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanAlert reads the alertColumns of one row; extra receives any columns
// selected after them.
func scanAlert(row rowScanner, extra ...any) (*model.AlertRecord, error) {
	var rec model.AlertRecord
	var severity, status string
	var lastSent sql.NullTime
	var details sql.NullString

	dest := []any{&rec.Fingerprint, &rec.ConditionType, &rec.Subject, &rec.SubjectKey,
		&severity, &status, &rec.FirstSeenAt, &rec.LastSeenAt, &lastSent, &details}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	rec.Severity = model.Severity(severity)
	rec.Status = model.ParseStatus(status)
	rec.FirstSeenAt = rec.FirstSeenAt.UTC()
	rec.LastSeenAt = rec.LastSeenAt.UTC()
	if lastSent.Valid {
		t := lastSent.Time.UTC()
		rec.LastSentAt = &t
	}
	rec.Details = details.String
	return &rec, nil
}

// buildAlertWhere constructs a WHERE clause from an AlertFilter. placeholder
// renders the n-th (1-based) bind parameter for the target dialect.
func buildAlertWhere(filter model.AlertFilter, placeholder func(n int) string) (string, []any) {
	var conditions []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, column+" = "+placeholder(len(args)))
	}

	if filter.ConditionType != "" {
		add("condition_type", filter.ConditionType)
	}
	if filter.Subject != "" {
		add("subject", filter.Subject)
	}
	if filter.Status != "" {
		add("status", string(filter.Status))
	}

	return strings.Join(conditions, " AND "), args
}

func checkAffected(result sql.Result, fingerprint string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return storeErr("check rows affected", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert %s: %w", fingerprint, ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
