// Package collector pulls Webex license usage and records it as snapshots.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/bullfrog/internal/metrics"
	"github.com/ogulcanaydogan/bullfrog/pkg/model"
	"github.com/ogulcanaydogan/bullfrog/pkg/storage"
	"github.com/ogulcanaydogan/bullfrog/pkg/webex"
)

// DefaultOrg is the org id recorded when the token's own organization is used.
const DefaultOrg = "default-org"

// ErrNoLicenses is returned when the API lists no licenses for the org.
var ErrNoLicenses = errors.New("no licenses returned")

// LicenseLister lists the licenses of an organization.
type LicenseLister interface {
	ListLicenses(ctx context.Context, orgID string) ([]webex.License, error)
}

// Result describes one recorded pull.
type Result struct {
	BatchID    string    `json:"batch_id"`
	OrgID      string    `json:"org_id"`
	CapturedAt time.Time `json:"captured_at"`
	Rows       int       `json:"rows"`
}

// Collector writes one snapshot batch per pull.
type Collector struct {
	licenses LicenseLister
	storage  storage.Storage
	logger   *slog.Logger
}

// New creates a collector.
func New(licenses LicenseLister, store storage.Storage, logger *slog.Logger) *Collector {
	return &Collector{
		licenses: licenses,
		storage:  store,
		logger:   logger,
	}
}

// Pull lists the licenses of orgID and records them as a single batch
// sharing one capture time. An empty orgID uses the token's organization.
func (c *Collector) Pull(ctx context.Context, orgID string) (Result, error) {
	orgID = strings.TrimSpace(orgID)
	capturedAt := time.Now().UTC()

	licenses, err := c.licenses.ListLicenses(ctx, orgID)
	if err != nil {
		return Result{}, fmt.Errorf("list licenses: %w", err)
	}
	if len(licenses) == 0 {
		return Result{}, fmt.Errorf("org %s: %w", displayOrg(orgID), ErrNoLicenses)
	}

	storedOrg := orgID
	if storedOrg == "" {
		storedOrg = DefaultOrg
	}

	result := Result{
		BatchID:    uuid.New().String(),
		OrgID:      storedOrg,
		CapturedAt: capturedAt,
	}

	snapshots := make([]model.LicenseSnapshot, 0, len(licenses))
	for _, lic := range licenses {
		snapshots = append(snapshots, model.LicenseSnapshot{
			BatchID:        result.BatchID,
			CapturedAt:     capturedAt,
			OrgID:          storedOrg,
			LicenseID:      lic.ID,
			LicenseName:    lic.Name,
			TotalUnits:     lic.TotalUnits,
			ConsumedUnits:  lic.ConsumedUnits,
			SubscriptionID: lic.SubscriptionID,
		})
	}

	if err := c.storage.RecordSnapshots(ctx, snapshots); err != nil {
		return Result{}, fmt.Errorf("record snapshots: %w", err)
	}
	result.Rows = len(snapshots)
	metrics.SnapshotsRecordedTotal.Add(float64(result.Rows))

	c.logger.Info("license usage captured",
		"org_id", displayOrg(orgID),
		"rows", result.Rows,
		"batch_id", result.BatchID,
		"captured_at", capturedAt,
	)
	return result, nil
}

func displayOrg(orgID string) string {
	if orgID == "" {
		return "(default-org)"
	}
	return orgID
}
