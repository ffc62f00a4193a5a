// Package protocol defines the wire format between the CLI and the
// daemon.
//
// Requests are newline-delimited JSON envelopes naming an engine
// operation and carrying an operation-specific payload. Responses carry
// either a result or an error message, plus the subsystem that handled
// the operation and the time it took.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrMalformed = errors.New("malformed message")

// A request envelope: one engine operation and its payload.
type Envelope struct {
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// A response envelope.
type Response struct {
	OK        bool            `json:"ok"`
	Subsystem string          `json:"subsystem,omitempty"`
	Elapsed   time.Duration   `json:"elapsed"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Encodes an operation and payload as a newline-terminated envelope.
func Encode(op string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		raw = data
	}

	data, err := json.Marshal(Envelope{Op: op, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return append(data, '\n'), nil
}

// Decodes a request envelope from a single message line.
func Decode(line []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if env.Op == "" {
		return Envelope{}, fmt.Errorf("%w: missing op", ErrMalformed)
	}
	return env, nil
}

// Decodes an operation payload into its concrete request type.
//
// An absent payload decodes to the zero value, so operations without
// parameters need no payload at all.
func DecodePayload[T any](payload json.RawMessage) (T, error) {
	var req T
	if len(payload) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return req, nil
}
