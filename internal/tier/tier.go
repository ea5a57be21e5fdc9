package tier

// Unlimited disables the quota for a window. Requests against an unlimited
// window are never blocked but are still counted.
const Unlimited = 0

// Tier is a named service class fixing request quotas and capability
// permissions. Tiers are built once at startup and never mutated.
type Tier struct {
	Name              string `json:"name"`
	RequestsPerMinute int64  `json:"requests_per_minute"`
	RequestsPerHour   int64  `json:"requests_per_hour"`
	RequestsPerDay    int64  `json:"requests_per_day"`
	AllowHardware     bool   `json:"allow_hardware"`
	AllowAllProtocols bool   `json:"allow_all_protocols"`
}

const (
	TierSandbox    = "sandbox"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// ApplyLimits overrides the window limits of a named tier in place, before
// the tier set is handed to the classifier. Returns false for unknown names.
func ApplyLimits(tiers map[string]*Tier, name string, perMinute, perHour, perDay int64) bool {
	t, ok := tiers[name]
	if !ok {
		return false
	}
	t.RequestsPerMinute = perMinute
	t.RequestsPerHour = perHour
	t.RequestsPerDay = perDay
	return true
}

// DefaultTiers returns the built-in service classes. The sandbox tier doubles
// as the default for keys that match no known prefix.
func DefaultTiers() map[string]*Tier {
	return map[string]*Tier{
		TierSandbox: {
			Name:              TierSandbox,
			RequestsPerMinute: 10,
			RequestsPerHour:   200,
			RequestsPerDay:    1000,
			AllowHardware:     false,
			AllowAllProtocols: true,
		},
		TierPro: {
			Name:              TierPro,
			RequestsPerMinute: 120,
			RequestsPerHour:   3000,
			RequestsPerDay:    50000,
			AllowHardware:     false,
			AllowAllProtocols: true,
		},
		TierEnterprise: {
			Name:              TierEnterprise,
			RequestsPerMinute: Unlimited,
			RequestsPerHour:   Unlimited,
			RequestsPerDay:    Unlimited,
			AllowHardware:     true,
			AllowAllProtocols: true,
		},
	}
}
