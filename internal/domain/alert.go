package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Alert is a high or critical risk assessment destined for the alert topic.
type Alert struct {
	ID          string     `json:"id"`
	Location    string     `json:"location"`
	Level       RiskLevel  `json:"level"`
	Probability float64    `json:"probability"`
	Conditions  Conditions `json:"conditions"`
	IssuedAt    time.Time  `json:"issued_at"`
}

// alertBucket is the deduplication window baked into alert IDs. Two alerts
// for the same location and level within one bucket share an ID.
const alertBucket = 5 * time.Minute

// NewAlert builds an alert with a deterministic ID so downstream consumers
// can deduplicate replays without coordination.
func NewAlert(location string, a Assessment, c Conditions, issuedAt time.Time) Alert {
	bucket := issuedAt.UTC().Truncate(alertBucket).Format(time.RFC3339)
	input := fmt.Sprintf("%s|%s|%s", location, a.Level, bucket)
	hash := sha256.Sum256([]byte(input))

	return Alert{
		ID:          "alert-" + hex.EncodeToString(hash[:8]),
		Location:    location,
		Level:       a.Level,
		Probability: a.Probability,
		Conditions:  c,
		IssuedAt:    issuedAt.UTC(),
	}
}
