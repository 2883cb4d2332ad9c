package call

import (
	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/warpmeet/cli/internal/config"
)

const probeChannelLabel = "probe"

// ICEConfiguration builds the pion configuration from the CLI config.
func ICEConfiguration(cfg *config.Config) pion.Configuration {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || ShouldForceRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}

func NewPeerConnection(api *pion.API, cfg *config.Config) (*pion.PeerConnection, error) {
	pc, err := api.NewPeerConnection(ICEConfiguration(cfg))
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// CreateProbeChannel opens the unordered, unreliable channel used for RTT
// probes. A lost probe is simply not answered.
func CreateProbeChannel(pc *pion.PeerConnection) (*pion.DataChannel, error) {
	ordered := false
	maxRetransmits := uint16(0)

	dc, err := pc.CreateDataChannel(probeChannelLabel, &pion.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &maxRetransmits,
	})
	if err != nil {
		return nil, NewError("create data channel", err)
	}
	return dc, nil
}

func CreateOffer(pc *pion.PeerConnection) (*pion.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, NewError("create offer", err)
	}

	if err = pc.SetLocalDescription(offer); err != nil {
		return nil, NewError("set local description", err)
	}

	return pc.LocalDescription(), nil
}

func CreateAnswer(pc *pion.PeerConnection, offer pion.SessionDescription) (*pion.SessionDescription, error) {
	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, NewError("set remote description", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, NewError("create answer", err)
	}

	if err = pc.SetLocalDescription(answer); err != nil {
		return nil, NewError("set local description", err)
	}

	return pc.LocalDescription(), nil
}
