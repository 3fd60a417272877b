package automation

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxLineSize is the largest protocol line accepted from an engine (4 MiB).
const MaxLineSize = 4 << 20

// Engine→host message types. An engine writes one JSON object per line on
// stdout: any number of "step" messages followed by exactly one "result" or
// "error" message.
const (
	MsgTypeStep   = "step"
	MsgTypeResult = "result"
	MsgTypeError  = "error"
)

// Message is the envelope for every engine→host protocol line.
type Message struct {
	Type   string `json:"type"`
	Detail string `json:"detail,omitempty"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WriteMessage writes msg to w as a single JSON line.
func WriteMessage(w io.Writer, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// ParseMessage decodes one protocol line. Lines that are not JSON objects with
// a known type return an error.
func ParseMessage(line []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal message: %w", err)
	}
	switch msg.Type {
	case MsgTypeStep, MsgTypeResult, MsgTypeError:
		return msg, nil
	default:
		return Message{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
}
