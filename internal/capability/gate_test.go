package capability

import (
	"testing"

	"github.com/quantalink/qnet-gateway/internal/tier"
)

func TestAuthorize(t *testing.T) {
	tiers := tier.DefaultTiers()

	tests := []struct {
		name          string
		tier          *tier.Tier
		wantsHardware bool
		want          Decision
	}{
		{
			name: "simulator request never gated",
			tier: tiers[tier.TierSandbox],
			want: Decision{},
		},
		{
			name:          "simulator request on hardware tier stays simulator",
			tier:          tiers[tier.TierEnterprise],
			wantsHardware: false,
			want:          Decision{},
		},
		{
			name:          "hardware allowed on enterprise",
			tier:          tiers[tier.TierEnterprise],
			wantsHardware: true,
			want:          Decision{Hardware: true},
		},
		{
			name:          "hardware denied on sandbox",
			tier:          tiers[tier.TierSandbox],
			wantsHardware: true,
			want:          Decision{Denied: true, Reason: ReasonHardwareDenied},
		},
		{
			name:          "hardware denied on pro",
			tier:          tiers[tier.TierPro],
			wantsHardware: true,
			want:          Decision{Denied: true, Reason: ReasonHardwareDenied},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Authorize(tt.tier, tt.wantsHardware)
			if got != tt.want {
				t.Errorf("Authorize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
