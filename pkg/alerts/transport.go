package alerts

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// newClient builds the resty client shared by the JSON webhook notifiers.
func newClient(timeout time.Duration, userAgent string) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", userAgent)
}

// post sends body to url and maps transport failures and non-accepted
// statuses to a DeliveryError. accept reports whether a status is a success.
func post(ctx context.Context, req *resty.Request, name, url string, body any, accept func(int) bool) error {
	if url == "" {
		return &DeliveryError{Notifier: name, Err: errors.New("webhook url not configured")}
	}

	resp, err := req.SetContext(ctx).SetBody(body).Post(url)
	if err != nil {
		return &DeliveryError{Notifier: name, Err: err}
	}
	if !accept(resp.StatusCode()) {
		return &DeliveryError{
			Notifier:   name,
			StatusCode: resp.StatusCode(),
			Body:       truncateBody(resp.String()),
			Err:        errors.New(http.StatusText(resp.StatusCode())),
		}
	}
	return nil
}

func below300(status int) bool { return status < http.StatusMultipleChoices }

func is2xx(status int) bool { return status >= 200 && status < 300 }
