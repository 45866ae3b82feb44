package gateway

import (
	"encoding/json"
	"fmt"

	"gatewayctl/internal/domain"
)

// FrameType identifies the kind of frame exchanged over the WebSocket
// connection.
type FrameType string

const (
	FrameTypeEvent    FrameType = "event"
	FrameTypeRequest  FrameType = "req"
	FrameTypeResponse FrameType = "res"
)

// EventChallenge is the only server event this client acts on. All other
// event names are informational and ignored.
const EventChallenge = "connect.challenge"

// FrameError carries the remote error of a failed response.
type FrameError struct {
	Message string `json:"message"`
}

// Frame is the envelope exchanged with the gateway. Exactly one of the three
// shapes is populated, selected by Type:
//
//	event:    Event, Payload
//	req:      ID, Method, Params
//	res:      ID, OK, Payload or Error
type Frame struct {
	Type    FrameType       `json:"type"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	OK      bool            `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *FrameError     `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
}

// decodeFrame parses one inbound message. Frames that do not parse or carry
// an unrecognized type are reported as domain.ErrProtocol; the reader drops
// them and keeps going.
func decodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", domain.ErrProtocol, err)
	}
	switch f.Type {
	case FrameTypeEvent, FrameTypeRequest, FrameTypeResponse:
		return f, nil
	default:
		return Frame{}, fmt.Errorf("%w: unknown frame type %q", domain.ErrProtocol, f.Type)
	}
}

// challengePayload is the body of a connect.challenge event. The nonce is
// only used for diagnostics.
type challengePayload struct {
	Nonce string `json:"nonce"`
}

// connectParams is the body of the connect request sent in answer to the
// challenge.
type connectParams struct {
	MinProtocol int             `json:"minProtocol"`
	MaxProtocol int             `json:"maxProtocol"`
	Client      domain.Identity `json:"client"`
	Auth        connectAuth     `json:"auth"`
	Role        string          `json:"role"`
	Scopes      []string        `json:"scopes"`
	Caps        []string        `json:"caps"`
}

type connectAuth struct {
	Token string `json:"token"`
}
