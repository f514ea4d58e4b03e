package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/bullfrog/internal/metrics"
	"github.com/ogulcanaydogan/bullfrog/pkg/alerts"
	"github.com/ogulcanaydogan/bullfrog/pkg/model"
	"github.com/ogulcanaydogan/bullfrog/pkg/storage"
)

// DefaultCooldown is the minimum time between two deliveries of one alert.
const DefaultCooldown = 30 * time.Minute

// Engine records condition observations and delivers at most one
// notification per fingerprint per cooldown window.
type Engine struct {
	storage  storage.Storage
	notifier alerts.Notifier
	cooldown time.Duration
	logger   *slog.Logger
	locks    *keyLock
}

// NewEngine creates an alert engine. A non-positive cooldown uses DefaultCooldown.
func NewEngine(store storage.Storage, notifier alerts.Notifier, cooldown time.Duration, logger *slog.Logger) *Engine {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Engine{
		storage:  store,
		notifier: notifier,
		cooldown: cooldown,
		logger:   logger,
		locks:    newKeyLock(),
	}
}

// Cooldown returns the configured cooldown window.
func (e *Engine) Cooldown() time.Duration { return e.cooldown }

// Report observes cond at the current time.
func (e *Engine) Report(ctx context.Context, cond model.Condition) (model.Outcome, error) {
	return e.ReportAt(ctx, cond, time.Now())
}

// ReportAt observes cond at now. Stored state always reflects the
// observation; last_sent_at moves only after the notifier accepts the
// message. A rejected delivery is returned as *alerts.DeliveryError and a
// persistence failure as *storage.StoreError.
func (e *Engine) ReportAt(ctx context.Context, cond model.Condition, now time.Time) (model.Outcome, error) {
	now = now.UTC()
	fp := Fingerprint(cond.Type, cond.Subject, cond.SubjectKey)

	unlock := e.locks.Lock(fp)
	defer unlock()

	record, created, err := e.storage.ObserveAlert(ctx, model.Observation{
		Fingerprint:   fp,
		ConditionType: cond.Type,
		Subject:       cond.Subject,
		SubjectKey:    cond.SubjectKey,
		Severity:      cond.Severity,
		Details:       cond.Details,
		ObservedAt:    now,
	})
	if err != nil {
		metrics.StoreErrorsTotal.Inc()
		return "", fmt.Errorf("observe alert %s: %w", fp, err)
	}

	if !e.shouldSend(record.LastSentAt, now) {
		metrics.ReportsTotal.WithLabelValues(cond.Type, string(model.OutcomeSuppressed)).Inc()
		e.logger.Debug("alert suppressed",
			"fingerprint", fp,
			"condition_type", cond.Type,
			"subject", cond.Subject,
			"last_sent_at", *record.LastSentAt,
		)
		return model.OutcomeSuppressed, nil
	}

	notification := alerts.Notification{
		ConditionType: cond.Type,
		Fingerprint:   fp,
		Severity:      cond.Severity,
		Markdown:      RenderMessage(cond, now, e.cooldown),
		Time:          now,
	}
	if err := e.notifier.Send(ctx, notification); err != nil {
		var de *alerts.DeliveryError
		if !errors.As(err, &de) {
			err = &alerts.DeliveryError{Notifier: e.notifier.Name(), Err: err}
		}
		metrics.DeliveryFailuresTotal.WithLabelValues(cond.Type).Inc()
		e.logger.Warn("alert delivery failed",
			"fingerprint", fp,
			"condition_type", cond.Type,
			"subject", cond.Subject,
			"notifier", e.notifier.Name(),
			"error", err,
		)
		return "", err
	}

	if err := e.storage.MarkAlertSent(ctx, fp, now); err != nil {
		metrics.StoreErrorsTotal.Inc()
		return "", fmt.Errorf("commit delivery of %s: %w", fp, err)
	}

	metrics.ReportsTotal.WithLabelValues(cond.Type, string(model.OutcomeSent)).Inc()
	e.logger.Info("alert sent",
		"fingerprint", fp,
		"condition_type", cond.Type,
		"subject", cond.Subject,
		"subject_key", cond.SubjectKey,
		"severity", cond.Severity,
		"new", created,
	)
	return model.OutcomeSent, nil
}

func (e *Engine) shouldSend(lastSent *time.Time, now time.Time) bool {
	if lastSent == nil {
		return true
	}
	return now.Sub(*lastSent) >= e.cooldown
}
