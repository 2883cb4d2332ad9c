package call

import "github.com/vmihailenco/msgpack/v5"

// Probe types exchanged on the probe data channel.
const (
	ProbeTypeHello = "hello"
	ProbeTypePing  = "ping"
	ProbeTypePong  = "pong"
)

// Probe is every message on the probe data channel.
type Probe struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// HelloPayload is sent by both sides once the channel opens.
type HelloPayload struct {
	DeviceName    string `msgpack:"deviceName"`
	DeviceVersion string `msgpack:"deviceVersion"`
}

// PingPayload is carried by ping and echoed back unchanged in pong.
type PingPayload struct {
	Seq    uint32 `msgpack:"seq"`
	SentAt int64  `msgpack:"sentAt"` // unix nanoseconds, sender clock
}

// DecodePayload decodes the probe payload into the provided struct
func (p Probe) DecodePayload(v any) error {
	return msgpack.Unmarshal(p.Payload, v)
}

// NewProbe creates a new Probe with the given type and payload
func NewProbe(t string, payload any) (Probe, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Probe{}, err
	}
	return Probe{Type: t, Payload: b}, nil
}

// EncodeProbe builds a probe and serializes it for the wire.
func EncodeProbe(t string, payload any) ([]byte, error) {
	p, err := NewProbe(t, payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(p)
}

func DecodeProbe(data []byte) (Probe, error) {
	var p Probe
	err := msgpack.Unmarshal(data, &p)
	return p, err
}
