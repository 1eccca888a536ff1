package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samiuddin-code/datportal-sub005/internal/chat"
)

var errMalformed = errors.New("malformed frame")

// envelope is the plain JSON frame {"event":"chat","data":{...}}.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// decodeFrame extracts a message for event from one text frame. Besides the
// JSON envelope it accepts socket.io style arrays, with or without the
// engine.io packet-type prefix ("42["chat",{...}]"). ok is false for frames
// carrying other events.
func decodeFrame(data []byte, event string) (msg chat.Message, ok bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return msg, false, nil
	}

	var name string
	var payload json.RawMessage
	switch {
	case data[0] == '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return msg, false, fmt.Errorf("%w: %v", errMalformed, err)
		}
		name, payload = env.Event, env.Data
	default:
		i := bytes.IndexByte(data, '[')
		if i < 0 || !digitsOnly(data[:i]) {
			// Engine.io control packets such as "2" (ping) or "40".
			return msg, false, nil
		}
		var parts []json.RawMessage
		if err := json.Unmarshal(data[i:], &parts); err != nil {
			return msg, false, fmt.Errorf("%w: %v", errMalformed, err)
		}
		if len(parts) < 2 {
			return msg, false, nil
		}
		if err := json.Unmarshal(parts[0], &name); err != nil {
			return msg, false, fmt.Errorf("%w: event name: %v", errMalformed, err)
		}
		payload = parts[1]
	}

	if name != event {
		return msg, false, nil
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, false, fmt.Errorf("%w: %s payload: %v", errMalformed, event, err)
	}
	return msg, true, nil
}

// controlReply answers engine.io control packets: the open packet ("0{...}")
// gets the default namespace connect "40" and a server ping "2" gets "3".
// Other frames return nil.
func controlReply(data []byte) []byte {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) > 1 && data[0] == '0' && data[1] == '{':
		return []byte("40")
	case len(data) == 1 && data[0] == '2':
		return []byte("3")
	}
	return nil
}

func digitsOnly(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
