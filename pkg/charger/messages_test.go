package charger

import (
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestDecodeLoginRequest(t *testing.T) {
	data, err := EncodeMessage(&LoginRequest{
		MsgType:  MsgLoginRequest,
		Password: "correct",
	})
	if err != nil {
		t.Fatalf("EncodeMessage failed: %v", err)
	}

	msg, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	req, ok := msg.(*LoginRequest)
	if !ok {
		t.Fatalf("decoded type = %T, want *LoginRequest", msg)
	}
	if req.Password != "correct" {
		t.Errorf("password = %q, want %q", req.Password, "correct")
	}
}

func TestDecodeLoginSuccess(t *testing.T) {
	data, err := EncodeMessage(&LoginSuccess{
		MsgType:      MsgLoginSuccess,
		Serial:       "PBL123",
		Capabilities: []string{"charging"},
	})
	if err != nil {
		t.Fatalf("EncodeMessage failed: %v", err)
	}

	msg, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	success, ok := msg.(*LoginSuccess)
	if !ok {
		t.Fatalf("decoded type = %T, want *LoginSuccess", msg)
	}
	if success.Serial != "PBL123" {
		t.Errorf("serial = %q, want %q", success.Serial, "PBL123")
	}
	if len(success.Capabilities) != 1 || success.Capabilities[0] != "charging" {
		t.Errorf("capabilities = %v", success.Capabilities)
	}
}

func TestDecodeLoginReject(t *testing.T) {
	data, err := EncodeMessage(&LoginReject{
		MsgType: MsgLoginReject,
		Code:    RejectInvalidAuth,
		Message: "invalid password",
	})
	if err != nil {
		t.Fatalf("EncodeMessage failed: %v", err)
	}

	msg, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	reject, ok := msg.(*LoginReject)
	if !ok {
		t.Fatalf("decoded type = %T, want *LoginReject", msg)
	}
	if reject.Code != RejectInvalidAuth {
		t.Errorf("code = %d, want %d", reject.Code, RejectInvalidAuth)
	}
}

func TestDecodeUnknownMessageType(t *testing.T) {
	data, err := cbor.Marshal(map[int]interface{}{1: 99})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	_, err = DecodeMessage(data)
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("error = %v, want ErrInvalidMessage", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := DecodeMessage([]byte{0xff, 0x00, 0x13})
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("error = %v, want ErrInvalidMessage", err)
	}
}
