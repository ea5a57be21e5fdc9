// Package capability reconciles a caller's requested execution mode against
// what their service tier permits.
package capability

import "github.com/quantalink/qnet-gateway/internal/tier"

// ReasonHardwareDenied is the machine-readable code returned when a tier
// without hardware access requests hardware execution.
const ReasonHardwareDenied = "HARDWARE_ACCESS_DENIED"

// Decision is the outcome of a capability check.
type Decision struct {
	// Hardware reports the effective execution mode. It is true only when
	// hardware was both requested and permitted.
	Hardware bool
	// Denied is set when the request asked for hardware the tier does not
	// allow. This is a hard rejection, not a silent downgrade to the
	// simulator: the caller must never receive a simulation it did not ask
	// for in place of the hardware run it did.
	Denied bool
	Reason string
}

// Authorize decides the execution mode for a single request. It never touches
// rate-limit state.
func Authorize(t *tier.Tier, wantsHardware bool) Decision {
	if !wantsHardware {
		return Decision{}
	}
	if t.AllowHardware {
		return Decision{Hardware: true}
	}
	return Decision{Denied: true, Reason: ReasonHardwareDenied}
}
