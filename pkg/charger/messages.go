package charger

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Login message types.
const (
	// MsgLoginRequest carries the user-supplied password to the charger.
	MsgLoginRequest uint8 = 1

	// MsgLoginSuccess carries the charger's identity back to the hub.
	MsgLoginSuccess uint8 = 2

	// MsgLoginReject indicates the charger refused the login.
	MsgLoginReject uint8 = 255
)

// Login reject codes.
const (
	RejectInvalidAuth uint8 = 1
	RejectBusy        uint8 = 2
	RejectInternal    uint8 = 255
)

// Message errors.
var (
	ErrInvalidMessage = errors.New("invalid login message")
)

// LoginRequest is the single message the hub sends during onboarding.
// CBOR: { 1: msgType, 2: password }
type LoginRequest struct {
	MsgType  uint8  `cbor:"1,keyasint"`
	Password string `cbor:"2,keyasint"`
}

// LoginSuccess is the charger's answer to an accepted login.
// CBOR: { 1: msgType, 2: serial, 3: capabilities }
type LoginSuccess struct {
	MsgType      uint8    `cbor:"1,keyasint"`
	Serial       string   `cbor:"2,keyasint"`
	Capabilities []string `cbor:"3,keyasint,omitempty"`
}

// LoginReject is the charger's answer to a refused login.
// CBOR: { 1: msgType, 2: code, 3: message }
type LoginReject struct {
	MsgType uint8  `cbor:"1,keyasint"`
	Code    uint8  `cbor:"2,keyasint"`
	Message string `cbor:"3,keyasint,omitempty"`
}

// EncodeMessage encodes a login message to CBOR bytes.
func EncodeMessage(msg interface{}) ([]byte, error) {
	return cbor.Marshal(msg)
}

// DecodeMessage decodes CBOR bytes to the appropriate login message type.
func DecodeMessage(data []byte) (interface{}, error) {
	// First, decode just to get the message type
	var header struct {
		MsgType uint8 `cbor:"1,keyasint"`
	}
	if err := cbor.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch header.MsgType {
	case MsgLoginRequest:
		var msg LoginRequest
		if err := cbor.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case MsgLoginSuccess:
		var msg LoginSuccess
		if err := cbor.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case MsgLoginReject:
		var msg LoginReject
		if err := cbor.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("%w: unknown message type %d", ErrInvalidMessage, header.MsgType)
	}
}
