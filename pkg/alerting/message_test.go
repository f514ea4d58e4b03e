package alerting_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ogulcanaydogan/bullfrog/pkg/alerting"
	"github.com/ogulcanaydogan/bullfrog/pkg/model"
)

func TestRenderMessage(t *testing.T) {
	cond := model.Condition{
		Type:       model.ConditionLicenseOverage,
		Subject:    "org-42",
		SubjectKey: "Webex Calling",
		Severity:   model.SeverityHigh,
		Details:    "consumed 105/100",
	}
	now := time.Date(2024, 5, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	got := alerting.RenderMessage(cond, now, 30*time.Minute)

	want := "**Bullfrog Alert**\n" +
		"- Type: `license_overage`\n" +
		"- Org: org-42\n" +
		"- Key: Webex Calling\n" +
		"- Severity: **high**\n" +
		"- Details: consumed 105/100\n" +
		"- Time (UTC): 2024-05-01T12:00:00Z\n" +
		"- Cooldown: 30 minutes"
	assert.Equal(t, want, got)
}
