// Package observerproto defines the messages exchanged with read-only observers
// of a running keep-away simulation.
package observerproto

// Version is the observer protocol version.
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeRound     = "ROUND"
)

// Client -> Server. First message on the observer WS connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	RunID           string      `json:"run_id"`
	Mode            string      `json:"mode"`
	Round           uint64      `json:"round"`
	Params          RunParams   `json:"params"`
	Actors          []ActorInfo `json:"actors"`
}

type RunParams struct {
	RoundsPerSecond int    `json:"rounds_per_second"`
	ReliefDivisor   int64  `json:"relief_divisor"`
	Modulus         string `json:"modulus"`
}

type ActorInfo struct {
	Index       int    `json:"index"`
	Rule        string `json:"rule"`
	Test        int64  `json:"test"`
	TargetTrue  int    `json:"target_true"`
	TargetFalse int    `json:"target_false"`
}

// Server -> Client. Sent after every round.
type RoundMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RunID           string `json:"run_id,omitempty"`
	Round           uint64 `json:"round"`
	Mode            string `json:"mode"`
	Digest          string `json:"digest"`

	Inspected   []uint64 `json:"inspected"`
	Inspections []uint64 `json:"inspections"`
	Holding     []int    `json:"holding"`
}
