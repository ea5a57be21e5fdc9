package models

import "time"

// Gateway decisions, for the usage log.
const (
	DecisionProceed        = "proceed"
	DecisionMissingKey     = "missing_key"
	DecisionRateLimited    = "rate_limited"
	DecisionHardwareDenied = "hardware_denied"
)

// UsageLog records one gateway decision for auditing and the admin usage
// summary. KeyHash is the sha256 of the presented key; raw keys are never
// persisted.
type UsageLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	KeyHash        string    `gorm:"index" json:"key_hash,omitempty"`
	Tier           string    `gorm:"index" json:"tier"`
	Protocol       string    `json:"protocol,omitempty"`
	Decision       string    `gorm:"index" json:"decision"`
	Hardware       bool      `json:"hardware"`
	StatusCode     int       `gorm:"index" json:"status_code"`
	ResponseTimeMs int       `json:"response_time_ms"`
	IPAddress      string    `json:"ip_address"`
}

func (UsageLog) TableName() string {
	return "usage_logs"
}
