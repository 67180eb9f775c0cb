package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the JSON-RPC version aria2 speaks.
const Version = "2.0"

// ErrInvalidFrame is returned when a wire payload cannot be parsed.
var ErrInvalidFrame = errors.New("rpc: invalid frame")

// Frame is one message on the websocket, in either direction.
//
// Outbound calls carry ID, Method and Params. Inbound replies carry ID and
// exactly one of Result or Error. Inbound notifications carry Method and
// Params but no ID.
type Frame struct {
	Version string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the protocol-level error payload of a reply.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc: code %d: %s", e.Code, e.Message)
}

// NewRequest builds an outbound call frame.
func NewRequest(id uint64, method string, params []any) (*Frame, error) {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params for %s: %w", method, err)
		}
		raw = data
	}
	return &Frame{
		Version: Version,
		ID:      &id,
		Method:  method,
		Params:  raw,
	}, nil
}

// NewResponse builds a reply frame for the given request id.
func NewResponse(id uint64, result any) (*Frame, error) {
	var raw json.RawMessage
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
		raw = data
	}
	return &Frame{Version: Version, ID: &id, Result: raw}, nil
}

// NewErrorResponse builds an error reply frame.
func NewErrorResponse(id uint64, code int, message string) *Frame {
	return &Frame{Version: Version, ID: &id, Error: &Error{Code: code, Message: message}}
}

// NewNotification builds a server-push frame (no id).
func NewNotification(method string, params any) (*Frame, error) {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params for %s: %w", method, err)
		}
		raw = data
	}
	return &Frame{Version: Version, Method: method, Params: raw}, nil
}

// IsReply reports whether the frame correlates to an outstanding call.
func (f *Frame) IsReply() bool {
	return f.ID != nil
}

// IsNotification reports whether the frame is a server-pushed event.
func (f *Frame) IsNotification() bool {
	return f.ID == nil && f.Method != ""
}

// Marshal encodes the frame for the wire.
func (f *Frame) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

// Decode parses a wire payload and rejects frames that are neither a reply
// nor a notification.
func Decode(payload []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if !f.IsReply() && !f.IsNotification() {
		return nil, fmt.Errorf("%w: no id and no method", ErrInvalidFrame)
	}
	return &f, nil
}
