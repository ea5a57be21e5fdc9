// Package executor runs quantum networking operations. Results are
// simulated; the hardware flag only selects the reported execution mode, it
// is decided upstream by the capability gate and never re-checked here.
package executor

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

type Protocol string

const (
	ProtocolEntangle Protocol = "entangle"
	ProtocolTeleport Protocol = "teleport"
	ProtocolQKD      Protocol = "qkd"
)

var ErrUnknownProtocol = errors.New("unknown protocol")

// ParseProtocol validates a wire-format protocol name.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(s) {
	case ProtocolEntangle, ProtocolTeleport, ProtocolQKD:
		return Protocol(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
	}
}

const (
	MinQubits     = 1
	MaxQubits     = 64
	DefaultQubits = 2
)

const (
	BackendSimulator = "simulator"
	BackendHardware  = "hardware"
)

// Request describes one execution. Hardware is the effective mode from the
// capability gate.
type Request struct {
	Protocol Protocol
	Qubits   int
	Hardware bool
}

// Result is the outcome of one execution.
type Result struct {
	JobID    string   `json:"job_id"`
	Protocol Protocol `json:"protocol"`
	Backend  string   `json:"backend"`
	Qubits   int      `json:"qubits"`
	Fidelity float64  `json:"fidelity"`
	Duration int      `json:"duration_us"`

	// Protocol-specific payloads.
	BellState   string  `json:"bell_state,omitempty"`
	Success     *bool   `json:"success,omitempty"`
	KeyBits     string  `json:"key_bits,omitempty"`
	SiftedRatio float64 `json:"sifted_ratio,omitempty"`
}

// ProtocolInfo is one entry of the protocol catalogue.
type ProtocolInfo struct {
	Name        Protocol `json:"name"`
	Description string   `json:"description"`
	MinQubits   int      `json:"min_qubits"`
	MaxQubits   int      `json:"max_qubits"`
}

func Protocols() []ProtocolInfo {
	return []ProtocolInfo{
		{ProtocolEntangle, "Distribute Bell pairs between two endpoints", 2, MaxQubits},
		{ProtocolTeleport, "Teleport a qubit state across an entangled link", 2, MaxQubits},
		{ProtocolQKD, "BB84 quantum key distribution session", MinQubits, MaxQubits},
	}
}

type Executor struct{}

func New() *Executor {
	return &Executor{}
}

// Run executes a single request. Validation errors are the only failure mode.
func (e *Executor) Run(_ context.Context, req Request) (*Result, error) {
	if req.Qubits == 0 {
		req.Qubits = DefaultQubits
	}
	if req.Qubits < MinQubits || req.Qubits > MaxQubits {
		return nil, fmt.Errorf("qubits must be between %d and %d", MinQubits, MaxQubits)
	}

	res := &Result{
		JobID:    uuid.NewString(),
		Protocol: req.Protocol,
		Qubits:   req.Qubits,
		Backend:  BackendSimulator,
		Fidelity: 0.982 + rand.Float64()*0.017,
		Duration: 40 + rand.Intn(120),
	}
	if req.Hardware {
		// Real links are noisier and slower than the simulator.
		res.Backend = BackendHardware
		res.Fidelity = 0.86 + rand.Float64()*0.11
		res.Duration = 900 + rand.Intn(4200)
	}

	switch req.Protocol {
	case ProtocolEntangle:
		res.BellState = bellStates[rand.Intn(len(bellStates))]
	case ProtocolTeleport:
		success := rand.Float64() < res.Fidelity
		res.Success = &success
	case ProtocolQKD:
		res.KeyBits = randomKeyBits(req.Qubits)
		res.SiftedRatio = 0.4 + rand.Float64()*0.15
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, req.Protocol)
	}

	return res, nil
}

var bellStates = []string{"phi+", "phi-", "psi+", "psi-"}

// randomKeyBits yields a hex key of one byte per 4 sifted qubits, one byte
// minimum.
func randomKeyBits(qubits int) string {
	n := qubits / 4
	if n < 1 {
		n = 1
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rand.Intn(256))
	}
	return hex.EncodeToString(b)
}
