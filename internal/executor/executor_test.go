package executor

import (
	"context"
	"errors"
	"testing"
)

var ctx = context.Background()

func TestParseProtocol(t *testing.T) {
	for _, s := range []string{"entangle", "teleport", "qkd"} {
		p, err := ParseProtocol(s)
		if err != nil {
			t.Errorf("ParseProtocol(%q) error = %v", s, err)
		}
		if string(p) != s {
			t.Errorf("ParseProtocol(%q) = %q", s, p)
		}
	}

	if _, err := ParseProtocol("superdense"); !errors.Is(err, ErrUnknownProtocol) {
		t.Errorf("ParseProtocol(superdense) error = %v, want ErrUnknownProtocol", err)
	}
}

func TestRun_BackendFollowsHardwareFlag(t *testing.T) {
	e := New()

	sim, err := e.Run(ctx, Request{Protocol: ProtocolEntangle})
	if err != nil {
		t.Fatal(err)
	}
	if sim.Backend != BackendSimulator {
		t.Errorf("Backend = %q, want %q", sim.Backend, BackendSimulator)
	}

	hw, err := e.Run(ctx, Request{Protocol: ProtocolEntangle, Hardware: true})
	if err != nil {
		t.Fatal(err)
	}
	if hw.Backend != BackendHardware {
		t.Errorf("Backend = %q, want %q", hw.Backend, BackendHardware)
	}
}

func TestRun_ProtocolPayloads(t *testing.T) {
	e := New()

	ent, err := e.Run(ctx, Request{Protocol: ProtocolEntangle, Qubits: 4})
	if err != nil {
		t.Fatal(err)
	}
	if ent.BellState == "" {
		t.Error("entangle result missing bell state")
	}
	if ent.JobID == "" {
		t.Error("missing job id")
	}
	if ent.Fidelity <= 0 || ent.Fidelity > 1 {
		t.Errorf("fidelity %v out of range", ent.Fidelity)
	}

	tp, err := e.Run(ctx, Request{Protocol: ProtocolTeleport})
	if err != nil {
		t.Fatal(err)
	}
	if tp.Success == nil {
		t.Error("teleport result missing success flag")
	}

	qkd, err := e.Run(ctx, Request{Protocol: ProtocolQKD, Qubits: 16})
	if err != nil {
		t.Fatal(err)
	}
	if qkd.KeyBits == "" {
		t.Error("qkd result missing key bits")
	}
	if qkd.SiftedRatio <= 0 {
		t.Error("qkd result missing sifted ratio")
	}
}

func TestRun_QubitBounds(t *testing.T) {
	e := New()

	res, err := e.Run(ctx, Request{Protocol: ProtocolEntangle})
	if err != nil {
		t.Fatal(err)
	}
	if res.Qubits != DefaultQubits {
		t.Errorf("zero qubits defaulted to %d, want %d", res.Qubits, DefaultQubits)
	}

	if _, err := e.Run(ctx, Request{Protocol: ProtocolEntangle, Qubits: MaxQubits + 1}); err == nil {
		t.Error("qubits above max accepted")
	}
	if _, err := e.Run(ctx, Request{Protocol: ProtocolEntangle, Qubits: -1}); err == nil {
		t.Error("negative qubits accepted")
	}
}
