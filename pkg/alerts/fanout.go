package alerts

import (
	"context"
	"errors"
	"strings"
)

// Fanout delivers a notification to every configured notifier. A send
// succeeds only when all notifiers accept it.
type Fanout struct {
	notifiers []Notifier
}

// NewFanout wraps notifiers. A single notifier is still wrapped so callers
// can treat the result uniformly.
func NewFanout(notifiers ...Notifier) *Fanout {
	return &Fanout{notifiers: notifiers}
}

// Len returns the number of wrapped notifiers.
func (f *Fanout) Len() int { return len(f.notifiers) }

func (f *Fanout) Name() string {
	names := make([]string, 0, len(f.notifiers))
	for _, n := range f.notifiers {
		names = append(names, n.Name())
	}
	if len(names) == 0 {
		return "fanout"
	}
	return strings.Join(names, "+")
}

func (f *Fanout) Send(ctx context.Context, n Notification) error {
	if len(f.notifiers) == 0 {
		return &DeliveryError{Notifier: f.Name(), Err: ErrNoNotifiers}
	}

	var failures []error
	for _, notifier := range f.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			var de *DeliveryError
			if !errors.As(err, &de) {
				err = &DeliveryError{Notifier: notifier.Name(), Err: err}
			}
			failures = append(failures, err)
		}
	}

	switch len(failures) {
	case 0:
		return nil
	case 1:
		return failures[0]
	default:
		return &DeliveryError{Notifier: f.Name(), Err: errors.Join(failures...)}
	}
}
