package model

import (
	"strings"
	"time"
)

// Severity is the label attached to an alert. Values are ordered so callers
// can compare them with Rank.
type Severity string

const (
	SeverityUnknown  Severity = "unknown"
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityUnknown:  0,
	SeverityInfo:     1,
	SeverityLow:      2,
	SeverityMedium:   3,
	SeverityHigh:     4,
	SeverityCritical: 5,
}

// ParseSeverity maps a free-form label to a Severity. Unrecognised labels
// become SeverityUnknown rather than an error.
func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := severityRank[sev]; ok {
		return sev
	}
	return SeverityUnknown
}

// Rank returns the position of s in the severity order.
func (s Severity) Rank() int {
	return severityRank[ParseSeverity(string(s))]
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// Status is the lifecycle flag of an alert.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// ParseStatus maps a label to a Status, defaulting to StatusOpen.
func ParseStatus(s string) Status {
	if Status(strings.ToLower(strings.TrimSpace(s))) == StatusResolved {
		return StatusResolved
	}
	return StatusOpen
}

// Outcome is the result of a successful report.
type Outcome string

const (
	OutcomeSent       Outcome = "sent"
	OutcomeSuppressed Outcome = "suppressed"
)

// Well-known condition types.
const (
	ConditionLicenseOverage = "license_overage"
	ConditionHeartbeat      = "heartbeat"
)

// Condition is one observation handed to the alert engine.
type Condition struct {
	Type       string   `json:"condition_type"`
	Subject    string   `json:"subject"`
	SubjectKey string   `json:"subject_key"`
	Severity   Severity `json:"severity"`
	Details    string   `json:"details"`
}

// AlertRecord is the latest known state of a recurring condition, keyed by fingerprint.
type AlertRecord struct {
	Fingerprint   string     `json:"fingerprint" yaml:"fingerprint" db:"fingerprint"`
	ConditionType string     `json:"condition_type" yaml:"condition_type" db:"condition_type"`
	Subject       string     `json:"subject" yaml:"subject" db:"subject"`
	SubjectKey    string     `json:"subject_key" yaml:"subject_key" db:"subject_key"`
	Severity      Severity   `json:"severity" yaml:"severity" db:"severity"`
	Status        Status     `json:"status" yaml:"status" db:"status"`
	FirstSeenAt   time.Time  `json:"first_seen_at" yaml:"first_seen_at" db:"first_seen_at"`
	LastSeenAt    time.Time  `json:"last_seen_at" yaml:"last_seen_at" db:"last_seen_at"`
	LastSentAt    *time.Time `json:"last_sent_at,omitempty" yaml:"last_sent_at,omitempty" db:"last_sent_at"`
	Details       string     `json:"details" yaml:"details" db:"details"`
}

// Observation is the input of an atomic store upsert.
type Observation struct {
	Fingerprint   string
	ConditionType string
	Subject       string
	SubjectKey    string
	Severity      Severity
	Details       string
	ObservedAt    time.Time
}

// AlertFilter controls which alerts are listed.
type AlertFilter struct {
	ConditionType string `json:"condition_type,omitempty"`
	Subject       string `json:"subject,omitempty"`
	Status        Status `json:"status,omitempty"`
}

// LicenseSnapshot is one license row captured from the Webex licenses API.
type LicenseSnapshot struct {
	ID             int64     `json:"id" db:"id"`
	BatchID        string    `json:"batch_id" db:"batch_id"`
	CapturedAt     time.Time `json:"captured_at" db:"captured_at"`
	OrgID          string    `json:"org_id" db:"org_id"`
	LicenseID      string    `json:"license_id" db:"license_id"`
	LicenseName    string    `json:"license_name,omitempty" db:"license_name"`
	TotalUnits     *int64    `json:"total_units,omitempty" db:"total_units"`
	ConsumedUnits  *int64    `json:"consumed_units,omitempty" db:"consumed_units"`
	SubscriptionID string    `json:"subscription_id,omitempty" db:"subscription_id"`
}

// Overage returns how many units are consumed beyond the entitlement.
// ok is false when either count is unknown or there is no overage.
func (s LicenseSnapshot) Overage() (units int64, ok bool) {
	if s.TotalUnits == nil || s.ConsumedUnits == nil {
		return 0, false
	}
	units = *s.ConsumedUnits - *s.TotalUnits
	return units, units > 0
}

// DisplayKey is the license name, falling back to the license id.
func (s LicenseSnapshot) DisplayKey() string {
	if s.LicenseName != "" {
		return s.LicenseName
	}
	return s.LicenseID
}
