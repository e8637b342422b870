package hub

import (
	"bytes"
	"encoding/json"
)

// Envelope is the JSON message sent to peers. A welcome envelope carries
// only the recipient's own id with Initial set; a relay carries the sender's
// id and the annotated text.
type Envelope struct {
	UserID  ConnectionID `json:"userId"`
	Text    *string      `json:"text,omitempty"`
	Initial bool         `json:"initial,omitempty"`
}

// Welcome builds the envelope announcing id to its own connection.
func Welcome(id ConnectionID) Envelope {
	return Envelope{UserID: id, Initial: true}
}

// Relay builds the envelope carrying text from sender to its peers.
func Relay(sender ConnectionID, text string) Envelope {
	return Envelope{UserID: sender, Text: &text}
}

// Encode serializes the envelope to its wire form. HTML in Text is written
// verbatim rather than as \u escapes.
func (e Envelope) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
