package signaling

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Client to server message kinds.
const (
	TypeJoinRoom     = "join-room"
	TypeLeaveRoom    = "leave-room"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeHeartbeat    = "heartbeat"
)

// Server to client message kinds.
const (
	TypeClientID   = "client-id"
	TypeJoined     = "joined"
	TypePeerJoined = "peer-joined"
	TypePeerLeft   = "peer-left"
	TypePong       = "pong"
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrMissingTarget     = errors.New("missing target")
)

// Envelope is one inbound frame. Routing fields are decoded; everything else
// is kept as raw JSON. A relayed frame carries the same JSON values as the
// inbound one apart from the stamped sender, though top-level keys come out
// sorted and whitespace is compacted.
type Envelope struct {
	Type   string
	From   string
	Target string
	Room   string

	fields map[string]json.RawMessage
}

// ParseEnvelope decodes a single JSON object frame.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedEnvelope)
	}

	env := &Envelope{fields: fields}
	for key, dst := range map[string]*string{
		"type":   &env.Type,
		"from":   &env.From,
		"target": &env.Target,
		"room":   &env.Room,
	} {
		raw, ok := fields[key]
		if !ok || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, fmt.Errorf("%w: field %q is not a string", ErrMalformedEnvelope, key)
		}
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	return env, nil
}

// IsRelay reports whether the envelope kind is forwarded peer to peer.
func (e *Envelope) IsRelay() bool {
	switch e.Type {
	case TypeOffer, TypeAnswer, TypeICECandidate:
		return true
	}
	return false
}

// Stamp re-encodes the envelope with "from" set to the given identity.
func (e *Envelope) Stamp(from string) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.fields)+1)
	for k, v := range e.fields {
		out[k] = v
	}
	raw, err := json.Marshal(from)
	if err != nil {
		return nil, err
	}
	out["from"] = raw

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type clientIDMessage struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

type joinedMessage struct {
	Type  string   `json:"type"`
	Peers []string `json:"peers"`
	Room  string   `json:"room"`
}

type peerEventMessage struct {
	Type   string `json:"type"`
	PeerID string `json:"peerId"`
	Room   string `json:"room"`
}

type pongMessage struct {
	Type string `json:"type"`
	TS   int64  `json:"ts"`
}

func encodeClientID(id string) []byte {
	return mustEncode(clientIDMessage{Type: TypeClientID, ClientID: id})
}

func encodeJoined(room string, peers []string) []byte {
	if peers == nil {
		peers = []string{}
	}
	return mustEncode(joinedMessage{Type: TypeJoined, Peers: peers, Room: room})
}

func encodePeerJoined(room, peer string) []byte {
	return mustEncode(peerEventMessage{Type: TypePeerJoined, PeerID: peer, Room: room})
}

func encodePeerLeft(room, peer string) []byte {
	return mustEncode(peerEventMessage{Type: TypePeerLeft, PeerID: peer, Room: room})
}

func encodePong(now time.Time) []byte {
	return mustEncode(pongMessage{Type: TypePong, TS: now.UnixMilli()})
}

// mustEncode is only used with the fixed server message structs above, which
// cannot fail to marshal.
func mustEncode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("signaling: encode %T: %v", v, err))
	}
	return b
}
