package net

import (
	"encoding/json"
	"fmt"

	"SharedBoard/internal/state"
)

// Message types. C2S messages go from a replica to the host, S2C the other
// way.
const (
	TypeAppend   = "append"   // C2S
	TypeTruncate = "truncate" // C2S
	TypeSync     = "sync"     // C2S

	TypeSnapshot  = "snapshot"  // S2C
	TypeAppended  = "appended"  // S2C
	TypeTruncated = "truncated" // S2C
)

// Envelope wraps every websocket message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type AppendPayload struct {
	Commands []state.StrokeCommand `json:"commands"`
}

// SnapshotPayload carries the whole host log. Epoch counts truncations.
type SnapshotPayload struct {
	Epoch    uint64                `json:"epoch"`
	Commands []state.StrokeCommand `json:"commands"`
}

// AppendedPayload carries entries [Start, Start+len(Commands)) of the host log.
type AppendedPayload struct {
	Epoch    uint64                `json:"epoch"`
	Start    int                   `json:"start"`
	Commands []state.StrokeCommand `json:"commands"`
}

type TruncatedPayload struct {
	Epoch uint64 `json:"epoch"`
}

func encode(typ string, payload any) ([]byte, error) {
	env := Envelope{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", typ, err)
	}
	return data, nil
}

func decode[T any](env Envelope) (T, error) {
	var v T
	if len(env.Payload) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return v, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
	}
	return v, nil
}
