// Package evaluator turns recorded license snapshots and liveness checks
// into conditions for the alert engine.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ogulcanaydogan/bullfrog/internal/metrics"
	"github.com/ogulcanaydogan/bullfrog/pkg/alerts"
	"github.com/ogulcanaydogan/bullfrog/pkg/model"
	"github.com/ogulcanaydogan/bullfrog/pkg/storage"
)

// DefaultParallelism bounds concurrent reports in one overage pass.
const DefaultParallelism = 4

// Heartbeat condition identity.
const (
	HeartbeatSubject    = "internal"
	HeartbeatSubjectKey = "evaluator"
	heartbeatDetails    = "Evaluator is running. This message is deduped by cooldown."
)

// Reporter accepts condition observations.
type Reporter interface {
	Report(ctx context.Context, cond model.Condition) (model.Outcome, error)
}

// Summary counts the results of one overage pass.
type Summary struct {
	SnapshotAt time.Time `json:"snapshot_at"`
	Overages   int       `json:"overages"`
	Sent       int       `json:"sent"`
	Suppressed int       `json:"suppressed"`
	Failed     int       `json:"failed"`
}

// Evaluator scans the latest snapshot batch for overages.
type Evaluator struct {
	storage     storage.Storage
	reporter    Reporter
	parallelism int
	logger      *slog.Logger
}

// New creates an evaluator. A non-positive parallelism uses DefaultParallelism.
func New(store storage.Storage, reporter Reporter, parallelism int, logger *slog.Logger) *Evaluator {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &Evaluator{
		storage:     store,
		reporter:    reporter,
		parallelism: parallelism,
		logger:      logger,
	}
}

// EvaluateOverage reports one license_overage condition per license of the
// latest batch whose consumption exceeds its entitlement. Rejected deliveries
// are counted in Summary.Failed; any other error aborts the pass. It returns
// storage.ErrNoSnapshots when nothing has been collected yet.
func (e *Evaluator) EvaluateOverage(ctx context.Context) (Summary, error) {
	capturedAt, snaps, err := e.storage.LatestSnapshots(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load latest snapshots: %w", err)
	}

	summary := Summary{SnapshotAt: capturedAt}
	var overages []model.LicenseSnapshot
	for _, s := range snaps {
		if _, over := s.Overage(); over {
			overages = append(overages, s)
		}
	}
	summary.Overages = len(overages)
	metrics.Overages.Set(float64(len(overages)))

	if len(overages) == 0 {
		e.logger.Info("no overages detected", "snapshot_at", capturedAt)
		return summary, nil
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for _, snap := range overages {
		g.Go(func() error {
			outcome, err := e.reporter.Report(gCtx, OverageCondition(snap, capturedAt))

			mu.Lock()
			defer mu.Unlock()

			var de *alerts.DeliveryError
			switch {
			case errors.As(err, &de):
				summary.Failed++
				e.logger.Error("overage alert not delivered",
					"org_id", snap.OrgID,
					"license", snap.DisplayKey(),
					"error", err,
				)
				return nil
			case err != nil:
				return fmt.Errorf("report overage for %s: %w", snap.DisplayKey(), err)
			case outcome == model.OutcomeSent:
				summary.Sent++
			default:
				summary.Suppressed++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	e.logger.Info("overage evaluation complete",
		"snapshot_at", capturedAt,
		"overages", summary.Overages,
		"sent", summary.Sent,
		"suppressed", summary.Suppressed,
		"failed", summary.Failed,
	)
	return summary, nil
}

// Heartbeat reports the evaluator liveness condition.
func (e *Evaluator) Heartbeat(ctx context.Context) (model.Outcome, error) {
	return e.reporter.Report(ctx, HeartbeatCondition())
}

// OverageCondition builds the condition reported for an over-consumed license.
func OverageCondition(s model.LicenseSnapshot, snapshotAt time.Time) model.Condition {
	name := s.LicenseName
	if name == "" {
		name = "(no name)"
	}
	over, _ := s.Overage()

	return model.Condition{
		Type:       model.ConditionLicenseOverage,
		Subject:    s.OrgID,
		SubjectKey: s.DisplayKey(),
		Severity:   model.SeverityHigh,
		Details: fmt.Sprintf("License overage detected.\n"+
			"- License: %s\n"+
			"- License ID: %s\n"+
			"- Consumed: %d\n"+
			"- Entitled: %d\n"+
			"- Overage: %d\n"+
			"- Snapshot (UTC): %s",
			name, s.LicenseID, *s.ConsumedUnits, *s.TotalUnits, over,
			snapshotAt.UTC().Format(time.RFC3339)),
	}
}

// HeartbeatCondition is the liveness condition deduplicated by cooldown.
func HeartbeatCondition() model.Condition {
	return model.Condition{
		Type:       model.ConditionHeartbeat,
		Subject:    HeartbeatSubject,
		SubjectKey: HeartbeatSubjectKey,
		Severity:   model.SeverityInfo,
		Details:    heartbeatDetails,
	}
}
