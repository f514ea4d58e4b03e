package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"text/tabwriter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/bullfrog/internal/collector"
	"github.com/ogulcanaydogan/bullfrog/internal/config"
	"github.com/ogulcanaydogan/bullfrog/pkg/alerts"
	"github.com/ogulcanaydogan/bullfrog/pkg/model"
	"github.com/ogulcanaydogan/bullfrog/pkg/storage"
	"github.com/ogulcanaydogan/bullfrog/pkg/webex"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitNothingToDo, exitCode(fmt.Errorf("pull: %w", collector.ErrNoLicenses)))
	assert.Equal(t, exitNothingToDo, exitCode(fmt.Errorf("evaluate: %w", storage.ErrNoSnapshots)))
	assert.Equal(t, exitError, exitCode(errors.New("boom")))
}

func TestRender(t *testing.T) {
	records := []model.AlertRecord{{Fingerprint: "abc", ConditionType: "heartbeat", Severity: model.SeverityInfo}}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "yaml", records, nil))
	assert.Contains(t, buf.String(), "condition_type: heartbeat")

	buf.Reset()
	require.NoError(t, render(&buf, "json", records, nil))
	assert.Contains(t, buf.String(), `"condition_type": "heartbeat"`)

	buf.Reset()
	require.NoError(t, render(&buf, "table", records, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "A\tB\n1\t2\n")
	}))
	assert.Contains(t, buf.String(), "A  B")

	assert.Error(t, render(&buf, "xml", records, nil))
}

func TestInitNotifier(t *testing.T) {
	cfg := &config.Config{}
	_, err := initNotifier(cfg)
	assert.ErrorIs(t, err, alerts.ErrNoNotifiers)

	cfg.Alerts.Webex.Enabled = true
	cfg.Alerts.Slack = config.SlackConfig{Enabled: true, WebhookURL: "https://hooks.slack.com/x"}
	cfg.Alerts.Webhook = config.WebhookConfig{Enabled: true}
	n, err := initNotifier(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, n.Len())
	assert.Equal(t, "webex+slack", n.Name())
}

func TestInitTokenSource(t *testing.T) {
	cfg := &config.Config{}
	cfg.Webex.AccessToken = "pat"
	assert.Equal(t, webex.StaticToken("pat"), initTokenSource(cfg, nil))

	cfg.Webex.ClientID = "cid"
	_, ok := initTokenSource(cfg, nil).(*webex.TokenCache)
	assert.True(t, ok)
}
