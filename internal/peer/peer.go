package peer

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

// ICEServers is the default ICE server configuration.
var ICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
}

// Signaler relays session descriptions and candidates to the remote peer.
type Signaler interface {
	SendOffer(target string, payload json.RawMessage) error
	SendAnswer(target string, payload json.RawMessage) error
	SendICECandidate(target string, payload json.RawMessage) error
}

// NewPeerConnection creates a configured PeerConnection. onState, if set,
// observes every connection state change.
func NewPeerConnection(logger *zap.Logger, onState func(webrtc.PeerConnectionState)) (*webrtc.PeerConnection, error) {
	cfg := webrtc.Configuration{
		ICEServers: ICEServers,
	}
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Info("peer connection state", zap.Stringer("state", state))
		if onState != nil {
			onState(state)
		}
	})
	return pc, nil
}

func trickle(pc *webrtc.PeerConnection, sig Signaler, remote func() string, logger *zap.Logger) {
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		to := remote()
		if c == nil || to == "" {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			logger.Warn("marshal ICE candidate", zap.Error(err))
			return
		}
		if err := sig.SendICECandidate(to, data); err != nil {
			logger.Debug("send ICE candidate", zap.Error(err))
		}
	})
}

func addCandidate(pc *webrtc.PeerConnection, payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	return pc.AddICECandidate(candidate)
}
