package models

// TierOverride adjusts the window limits of a built-in tier without a
// redeploy. Overrides are read once at startup; a zero limit means unlimited.
type TierOverride struct {
	Name              string `gorm:"primaryKey" json:"name"`
	RequestsPerMinute int64  `gorm:"not null" json:"requests_per_minute"`
	RequestsPerHour   int64  `gorm:"not null" json:"requests_per_hour"`
	RequestsPerDay    int64  `gorm:"not null" json:"requests_per_day"`
}

func (TierOverride) TableName() string {
	return "tier_overrides"
}
