package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/bullfrog/pkg/model"
)

// ErrNoNotifiers is returned by a Fanout that has nothing to deliver to.
var ErrNoNotifiers = errors.New("no notifiers configured")

// maxErrorBody bounds the response body kept on a DeliveryError.
const maxErrorBody = 512

// Notification is a rendered alert ready for delivery.
type Notification struct {
	ConditionType string         `json:"condition_type"`
	Fingerprint   string         `json:"fingerprint"`
	Severity      model.Severity `json:"severity"`
	Markdown      string         `json:"markdown"`
	Time          time.Time      `json:"time"`
}

// Notifier sends notifications to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers a notification. Implementations must be safe for concurrent use.
	Send(ctx context.Context, n Notification) error
}

// DeliveryError reports a notification the transport did not accept. Callers
// treat it as recoverable: the alert is retried on its next observation.
type DeliveryError struct {
	Notifier   string
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("deliver via %s: status %d: %s", e.Notifier, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("deliver via %s: %v", e.Notifier, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func truncateBody(body string) string {
	if len(body) <= maxErrorBody {
		return body
	}
	return body[:maxErrorBody] + "..."
}
