package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/bullfrog/pkg/model"
)

var (
	// ErrNotFound is returned when no alert exists for a fingerprint.
	ErrNotFound = errors.New("storage: not found")

	// ErrNoSnapshots is returned when no license snapshot has been recorded yet.
	ErrNoSnapshots = errors.New("storage: no license snapshots")
)

// StoreError reports a failure of the persistence layer itself.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// Storage defines the persistence layer for alerts and license snapshots.
type Storage interface {
	// GetAlert returns the alert for a fingerprint, or ErrNotFound.
	GetAlert(ctx context.Context, fingerprint string) (*model.AlertRecord, error)

	// UpsertAlert inserts a record or overwrites its mutable fields.
	// FirstSeenAt of an existing record is never changed.
	UpsertAlert(ctx context.Context, record *model.AlertRecord) error

	// ObserveAlert creates or refreshes the alert for an observation in one
	// transaction and returns the stored state. created is true when the
	// record did not exist before. A resolved record is reopened.
	ObserveAlert(ctx context.Context, obs model.Observation) (record *model.AlertRecord, created bool, err error)

	// MarkAlertSent records a confirmed delivery.
	MarkAlertSent(ctx context.Context, fingerprint string, sentAt time.Time) error

	// SetAlertStatus changes the lifecycle flag of an alert.
	SetAlertStatus(ctx context.Context, fingerprint string, status model.Status) error

	// ListAlerts returns alerts matching the filter, most recently seen first.
	ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.AlertRecord, error)

	// RecordSnapshots persists one batch of license snapshots.
	RecordSnapshots(ctx context.Context, snapshots []model.LicenseSnapshot) error

	// LatestSnapshots returns the most recently recorded batch.
	LatestSnapshots(ctx context.Context) (time.Time, []model.LicenseSnapshot, error)

	// Close releases resources.
	Close() error
}

// Open creates the backend selected by driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, path, dsn string) (Storage, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLite(path)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
