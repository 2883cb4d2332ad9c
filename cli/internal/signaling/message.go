package signaling

import "encoding/json"

// Message is every frame exchanged with the relay. Only the fields relevant
// to Type are set.
type Message struct {
	Type     string   `json:"type"`
	ClientID string   `json:"clientId,omitempty"`
	Room     string   `json:"room,omitempty"`
	Peers    []string `json:"peers,omitempty"`
	PeerID   string   `json:"peerId,omitempty"`
	From     string   `json:"from,omitempty"`
	Target   string   `json:"target,omitempty"`
	TS       int64    `json:"ts,omitempty"`

	// SDP carries an offer or answer, Candidate an ICE candidate. The relay
	// forwards both untouched.
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// Message type constants.
const (
	MessageTypeJoinRoom     = "join-room"
	MessageTypeLeaveRoom    = "leave-room"
	MessageTypeOffer        = "offer"
	MessageTypeAnswer       = "answer"
	MessageTypeICECandidate = "ice-candidate"
	MessageTypeHeartbeat    = "heartbeat"

	MessageTypeClientID   = "client-id"
	MessageTypeJoined     = "joined"
	MessageTypePeerJoined = "peer-joined"
	MessageTypePeerLeft   = "peer-left"
	MessageTypePong       = "pong"
)

// IsSignal reports whether m is a peer-to-peer handshake message.
func (m *Message) IsSignal() bool {
	switch m.Type {
	case MessageTypeOffer, MessageTypeAnswer, MessageTypeICECandidate:
		return true
	}
	return false
}
