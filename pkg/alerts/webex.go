package alerts

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultWebexTimeout bounds a single incoming-webhook post.
const DefaultWebexTimeout = 15 * time.Second

// WebexNotifier posts markdown to a Webex incoming webhook.
type WebexNotifier struct {
	webhookURL string
	client     *resty.Client
}

// NewWebexNotifier creates a Webex incoming-webhook notifier. A zero timeout
// uses DefaultWebexTimeout.
func NewWebexNotifier(webhookURL string, timeout time.Duration) *WebexNotifier {
	if timeout <= 0 {
		timeout = DefaultWebexTimeout
	}
	return &WebexNotifier{
		webhookURL: webhookURL,
		client:     newClient(timeout, "Bullfrog/1.0"),
	}
}

func (w *WebexNotifier) Name() string { return "webex" }

func (w *WebexNotifier) Send(ctx context.Context, n Notification) error {
	payload := webexPayload{Markdown: n.Markdown}
	return post(ctx, w.client.R(), w.Name(), w.webhookURL, payload, below300)
}

type webexPayload struct {
	Markdown string `json:"markdown"`
}
