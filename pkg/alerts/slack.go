package alerts

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ogulcanaydogan/bullfrog/pkg/model"
)

// SlackNotifier sends alerts to a Slack webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *resty.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client:     newClient(10*time.Second, "Bullfrog/1.0"),
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, n Notification) error {
	ts := n.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	payload := slackPayload{
		Channel: s.channel,
		Attachments: []slackAttachment{
			{
				Color: severityColor(n.Severity),
				Title: fmt.Sprintf("Bullfrog Alert: %s", n.ConditionType),
				Text:  n.Markdown,
				Fields: []slackField{
					{Title: "Severity", Value: string(n.Severity), Short: true},
					{Title: "Fingerprint", Value: shortFingerprint(n.Fingerprint), Short: true},
				},
				Footer: "Bullfrog",
				Ts:     ts.Unix(),
			},
		},
	}

	return post(ctx, s.client.R(), s.Name(), s.webhookURL, payload, func(status int) bool {
		return status == http.StatusOK
	})
}

func severityColor(sev model.Severity) string {
	switch model.ParseSeverity(string(sev)) {
	case model.SeverityCritical:
		return "#cc0000" // dark red
	case model.SeverityHigh:
		return "#ff0000" // red
	case model.SeverityMedium:
		return "#ff9900" // orange
	case model.SeverityLow:
		return "#ffcc00"
	default:
		return "#36a64f" // green
	}
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
