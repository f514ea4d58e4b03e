package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ogulcanaydogan/bullfrog/pkg/model"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Postgres implements the Storage interface on PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Storage = (*Postgres)(nil)

// NewPostgres connects to dsn and applies pending migrations.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := migratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func migratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(postgresMigrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if err := goose.UpContext(runCtx, db, "migrations/postgres"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func pgPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

func (p *Postgres) GetAlert(ctx context.Context, fingerprint string) (*model.AlertRecord, error) {
	rec, err := scanAlert(p.pool.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE fingerprint = $1`, fingerprint))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get alert", err)
	}
	return rec, nil
}

func (p *Postgres) UpsertAlert(ctx context.Context, record *model.AlertRecord) error {
	if record.Status == "" {
		record.Status = model.StatusOpen
	}

	const query = `INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (fingerprint) DO UPDATE SET
		  severity = EXCLUDED.severity,
		  status = EXCLUDED.status,
		  last_seen_at = EXCLUDED.last_seen_at,
		  last_sent_at = EXCLUDED.last_sent_at,
		  details = EXCLUDED.details`
	_, err := p.pool.Exec(ctx, query,
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

func (p *Postgres) ObserveAlert(ctx context.Context, obs model.Observation) (*model.AlertRecord, bool, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, storeErr("begin observe", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := obs.ObservedAt.UTC()
	// xmax is zero only for rows inserted by this statement.
	const query = `INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9)
		ON CONFLICT (fingerprint) DO UPDATE SET
		  last_seen_at = EXCLUDED.last_seen_at,
		  severity = EXCLUDED.severity,
		  details = EXCLUDED.details,
		  status = EXCLUDED.status
		RETURNING ` + alertColumns + `, (xmax = 0)`

	var created bool
	rec, err := scanAlert(tx.QueryRow(ctx, query,
		obs.Fingerprint, obs.ConditionType, obs.Subject, obs.SubjectKey,
		string(obs.Severity), string(model.StatusOpen), now, now, obs.Details,
	), &created)
	if err != nil {
		return nil, false, storeErr("observe alert", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, storeErr("commit observe", err)
	}
	return rec, created, nil
}

func (p *Postgres) MarkAlertSent(ctx context.Context, fingerprint string, sentAt time.Time) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE alerts SET last_sent_at = $1 WHERE fingerprint = $2`, sentAt.UTC(), fingerprint)
	if err != nil {
		return storeErr("mark alert sent", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s: %w", fingerprint, ErrNotFound)
	}
	return nil
}

func (p *Postgres) SetAlertStatus(ctx context.Context, fingerprint string, status model.Status) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE alerts SET status = $1 WHERE fingerprint = $2`, string(status), fingerprint)
	if err != nil {
		return storeErr("set alert status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s: %w", fingerprint, ErrNotFound)
	}
	return nil
}

func (p *Postgres) ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.AlertRecord, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`
	where, args := buildAlertWhere(filter, pgPlaceholder)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY last_seen_at DESC, fingerprint"

	rows, err := p.pool.Query(ctx, query, args...)
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

func (p *Postgres) RecordSnapshots(ctx context.Context, snapshots []model.LicenseSnapshot) error {
	const query = `INSERT INTO license_snapshots (batch_id, captured_at, org_id, license_id,
		license_name, total_units, consumed_units, subscription_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storeErr("begin snapshots", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(query,
			snap.BatchID, snap.CapturedAt.UTC(), snap.OrgID, snap.LicenseID,
			nullString(snap.LicenseName), snap.TotalUnits, snap.ConsumedUnits,
			nullString(snap.SubscriptionID),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return storeErr("insert snapshots", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit snapshots", err)
	}
	return nil
}

func (p *Postgres) LatestSnapshots(ctx context.Context) (time.Time, []model.LicenseSnapshot, error) {
	var batchID string
	err := p.pool.QueryRow(ctx,
		`SELECT batch_id FROM license_snapshots ORDER BY id DESC LIMIT 1`).Scan(&batchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil, ErrNoSnapshots
	}
	if err != nil {
		return time.Time{}, nil, storeErr("find latest batch", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, batch_id, captured_at, org_id, license_id, COALESCE(license_name, ''),
			total_units, consumed_units, COALESCE(subscription_id, '')
		 FROM license_snapshots WHERE batch_id = $1 ORDER BY id`, batchID)
	if err != nil {
		return time.Time{}, nil, storeErr("query snapshots", err)
	}
	defer rows.Close()

	var snaps []model.LicenseSnapshot
	for rows.Next() {
		var snap model.LicenseSnapshot
		if err := rows.Scan(&snap.ID, &snap.BatchID, &snap.CapturedAt, &snap.OrgID, &snap.LicenseID,
			&snap.LicenseName, &snap.TotalUnits, &snap.ConsumedUnits, &snap.SubscriptionID); err != nil {
			return time.Time{}, nil, storeErr("scan snapshot row", err)
		}
		snap.CapturedAt = snap.CapturedAt.UTC()
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

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
