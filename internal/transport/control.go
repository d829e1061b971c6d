package transport

import (
	"encoding/json"
	"fmt"

	"github.com/junsooki/screencap/internal/capture"
)

// NameClosed is sent by a publisher once its capture ended.
const NameClosed = "closed"

// ControlMessage travels on the control channel in both directions.
type ControlMessage struct {
	Command string `json:"command"`
	Value   string `json:"value,omitempty"`
}

// ControlFor encodes cmd in its string form.
func ControlFor(cmd capture.Command) ControlMessage {
	return ControlMessage{Command: cmd.Kind.String(), Value: cmd.Value()}
}

// Closed reports whether m announces the end of the remote capture.
func (m ControlMessage) Closed() bool { return m.Command == NameClosed }

// Decode parses m into a capture command.
func (m ControlMessage) Decode() (capture.Command, error) {
	return capture.ParseCommand(m.Command, m.Value)
}

func marshalControl(m ControlMessage) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal control message: %w", err)
	}
	return b, nil
}

func unmarshalControl(b []byte) (ControlMessage, error) {
	var m ControlMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return ControlMessage{}, fmt.Errorf("unmarshal control message: %w", err)
	}
	return m, nil
}
