package gateway

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gatewayctl/internal/domain"
)

func TestDecodeFrameRequest(t *testing.T) {
	f, err := decodeFrame([]byte(`{"type":"req","id":"rpc-1","method":"health","params":{"a":1}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Type != FrameTypeRequest {
		t.Errorf("type = %q", f.Type)
	}
	if f.ID != "rpc-1" {
		t.Errorf("id = %q", f.ID)
	}
	if f.Method != "health" {
		t.Errorf("method = %q", f.Method)
	}
	if string(f.Params) != `{"a":1}` {
		t.Errorf("params = %s", f.Params)
	}
}

func TestDecodeFrameResponse(t *testing.T) {
	f, err := decodeFrame([]byte(`{"type":"res","id":"rpc-2","ok":true,"payload":{"status":"up"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Type != FrameTypeResponse {
		t.Errorf("type = %q", f.Type)
	}
	if !f.OK {
		t.Error("ok = false")
	}
	if string(f.Payload) != `{"status":"up"}` {
		t.Errorf("payload = %s", f.Payload)
	}
}

func TestDecodeFrameErrorResponse(t *testing.T) {
	f, err := decodeFrame([]byte(`{"type":"res","id":"rpc-3","ok":false,"error":{"message":"invalid schedule"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.OK {
		t.Error("ok = true")
	}
	if f.Error == nil || f.Error.Message != "invalid schedule" {
		t.Errorf("error = %+v", f.Error)
	}
}

func TestDecodeFrameEvent(t *testing.T) {
	f, err := decodeFrame([]byte(`{"type":"event","event":"connect.challenge","payload":{"nonce":"abc"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Type != FrameTypeEvent {
		t.Errorf("type = %q", f.Type)
	}
	if f.Event != EventChallenge {
		t.Errorf("event = %q", f.Event)
	}
	var ch challengePayload
	if err := json.Unmarshal(f.Payload, &ch); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if ch.Nonce != "abc" {
		t.Errorf("nonce = %q", ch.Nonce)
	}
}

func TestDecodeFrameMalformedJSON(t *testing.T) {
	_, err := decodeFrame([]byte(`{"type":"res",`))
	if !errors.Is(err, domain.ErrProtocol) {
		t.Errorf("err = %v, want ErrProtocol", err)
	}
}

func TestDecodeFrameUnknownType(t *testing.T) {
	_, err := decodeFrame([]byte(`{"type":"notify","id":"x"}`))
	if !errors.Is(err, domain.ErrProtocol) {
		t.Errorf("err = %v, want ErrProtocol", err)
	}
}

func TestDecodeFrameUnknownFieldsTolerated(t *testing.T) {
	f, err := decodeFrame([]byte(`{"type":"res","id":"rpc-4","ok":true,"extra":"future-field"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.ID != "rpc-4" {
		t.Errorf("id = %q", f.ID)
	}
}

func TestConnectParamsWireShape(t *testing.T) {
	data, err := json.Marshal(connectParams{
		MinProtocol: 1,
		MaxProtocol: 2,
		Client: domain.Identity{
			ID:          "gwc-test",
			DisplayName: "tester",
			Version:     "0.1.0",
			Platform:    "linux",
			Mode:        "cli",
		},
		Auth:   connectAuth{Token: "secret"},
		Role:   "operator",
		Scopes: []string{},
		Caps:   []string{},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for _, key := range []string{
		`"minProtocol":1`,
		`"maxProtocol":2`,
		`"displayName":"tester"`,
		`"auth":{"token":"secret"}`,
		`"role":"operator"`,
		`"scopes":[]`,
		`"caps":[]`,
	} {
		if !strings.Contains(string(data), key) {
			t.Errorf("connect params missing %s in %s", key, data)
		}
	}
}

func TestRequestFrameOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Frame{Type: FrameTypeRequest, ID: "rpc-1", Method: "health"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, absent := range []string{"params", "payload", "error", "event", "ok"} {
		if strings.Contains(string(data), `"`+absent+`"`) {
			t.Errorf("request frame leaks %q field: %s", absent, data)
		}
	}
}
