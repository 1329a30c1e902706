package observerproto_test

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"aoc2022.dev/internal/observerproto"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", "observer", name))
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// roundTrip encodes v the way the server does and decodes it into a generic
// value for validation.
func roundTrip(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateMessages(t *testing.T) {
	sub := compile(t, "subscribe.schema.json")
	boot := compile(t, "bootstrap.schema.json")
	round := compile(t, "round.schema.json")

	if err := sub.Validate(roundTrip(t, observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
	})); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := boot.Validate(roundTrip(t, observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		RunID:           "run-1",
		Mode:            "modulus-bound",
		Params:          observerproto.RunParams{RoundsPerSecond: 50, ReliefDivisor: 3, Modulus: "96577"},
		Actors: []observerproto.ActorInfo{
			{Index: 0, Rule: "old * 19", Test: 23, TargetTrue: 2, TargetFalse: 3},
			{Index: 1, Rule: "old + 6", Test: 19, TargetTrue: 2, TargetFalse: 0},
		},
	})); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if err := round.Validate(roundTrip(t, observerproto.RoundMsg{
		Type:            observerproto.TypeRound,
		ProtocolVersion: observerproto.Version,
		Round:           1,
		Mode:            "divide-and-floor",
		Digest:          strings.Repeat("ab", 32),
		Inspected:       []uint64{2, 4, 3, 5},
		Inspections:     []uint64{2, 4, 3, 5},
		Holding:         []int{4, 6, 0, 0},
	})); err != nil {
		t.Fatalf("round: %v", err)
	}
}

func TestSchemas_RejectWrongVersion(t *testing.T) {
	sub := compile(t, "subscribe.schema.json")
	if err := sub.Validate(roundTrip(t, observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: "1.0"})); err == nil {
		t.Fatalf("expected version 1.0 to be rejected")
	}
	round := compile(t, "round.schema.json")
	bad := map[string]any{"type": "ROUND", "protocol_version": "0.1", "round": 0, "mode": "x"}
	if err := round.Validate(bad); err == nil {
		t.Fatalf("expected incomplete round to be rejected")
	}
}
