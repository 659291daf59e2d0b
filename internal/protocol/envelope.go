package protocol

import (
	"encoding/json"
	"errors"
)

// Envelope is the application-level message carried on Text frames.
type Envelope struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// ErrBadEnvelope reports a Text frame whose payload is not a valid
// {event, data} object. The connection is not closed for this; the client
// receives an error event instead.
var ErrBadEnvelope = errors.New("malformed event envelope")

// ParseEnvelope decodes a Text frame payload into an Envelope. The event
// name must be a non-empty string; a missing data field parses as an
// empty map, so handlers never see a nil Data.
func ParseEnvelope(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, ErrBadEnvelope
	}
	if env.Event == "" {
		return nil, ErrBadEnvelope
	}
	if env.Data == nil {
		env.Data = map[string]any{}
	}
	return &env, nil
}

// EncodeEnvelope serializes an envelope for a server-emitted Text frame.
func EncodeEnvelope(event string, data map[string]any) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: data})
}
