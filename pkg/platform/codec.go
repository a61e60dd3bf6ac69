// Package platform connects the grant handlers to the host operating system.
//
// The Delegate interface is the boundary the handlers depend on. ChannelDelegate
// implements it over a Bridge that exchanges JSON-encoded method calls and
// events with native code; Fake implements it in memory for tests and the
// simulator.
package platform

import "encoding/json"

// Codec converts channel payloads to and from the bytes exchanged with
// native code.
type Codec interface {
	Encode(value any) ([]byte, error)
	// Decode returns nil for empty input.
	Decode(data []byte) (any, error)
}

// JSONCodec is the Codec the native permission plugins speak. Objects decode
// to map[string]any and numbers to float64.
type JSONCodec struct{}

func (JSONCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ChannelError is an error reported by native code, either as a failed
// method result or on an event stream.
type ChannelError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *ChannelError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// NewChannelError returns a ChannelError without details.
func NewChannelError(code, message string) *ChannelError {
	return &ChannelError{Code: code, Message: message}
}
