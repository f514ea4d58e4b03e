package alerting

import (
	"fmt"
	"strings"
	"time"

	"github.com/ogulcanaydogan/bullfrog/pkg/model"
)

// RenderMessage formats a condition as the markdown body of a notification.
func RenderMessage(cond model.Condition, now time.Time, cooldown time.Duration) string {
	var b strings.Builder
	b.WriteString("**Bullfrog Alert**\n")
	fmt.Fprintf(&b, "- Type: `%s`\n", cond.Type)
	fmt.Fprintf(&b, "- Org: %s\n", cond.Subject)
	fmt.Fprintf(&b, "- Key: %s\n", cond.SubjectKey)
	fmt.Fprintf(&b, "- Severity: **%s**\n", cond.Severity)
	fmt.Fprintf(&b, "- Details: %s\n", cond.Details)
	fmt.Fprintf(&b, "- Time (UTC): %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Cooldown: %d minutes", int(cooldown.Minutes()))
	return b.String()
}
