// Package alerting decides, for each observed condition, whether to persist
// new state and whether to deliver a notification or suppress it.
package alerting

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies a recurring condition. The value is stored as the
// alert key, so the input layout must never change.
func Fingerprint(conditionType, subject, subjectKey string) string {
	sum := sha256.Sum256([]byte(conditionType + "|" + subject + "|" + subjectKey))
	return hex.EncodeToString(sum[:])
}
