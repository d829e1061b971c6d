package peer

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/junsooki/screencap/internal/transport"
)

// Viewer manages the watching side of the WebRTC connection.
type Viewer struct {
	pc          *webrtc.PeerConnection
	sig         Signaler
	transport   *transport.DataChannelTransport
	publisherID string
	logger      *zap.Logger
}

// NewViewer creates a Viewer peer manager for publisherID.
func NewViewer(sig Signaler, publisherID string, logger *zap.Logger, onState func(webrtc.PeerConnectionState)) (*Viewer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("viewer")
	pc, err := NewPeerConnection(logger, onState)
	if err != nil {
		return nil, err
	}

	v := &Viewer{
		pc:          pc,
		sig:         sig,
		transport:   transport.NewDataChannelTransport(nil, nil, logger),
		publisherID: publisherID,
		logger:      logger,
	}

	// Accept data channels from the publisher.
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		label := dc.Label()
		logger.Info("data channel received", zap.String("label", label))
		dc.OnOpen(func() {
			logger.Info("data channel open", zap.String("label", label))
		})
		switch label {
		case transport.FramesLabel:
			v.transport.SetFramesChannel(dc)
		case transport.ControlLabel:
			v.transport.SetControlChannel(dc)
		default:
			logger.Warn("unexpected data channel", zap.String("label", label))
		}
	})

	trickle(pc, sig, func() string { return publisherID }, logger)
	return v, nil
}

// Transport returns the DataChannelTransport.
func (v *Viewer) Transport() *transport.DataChannelTransport {
	return v.transport
}

// Connect initiates the WebRTC connection by creating and sending an offer.
// The publisher opens the data channels, so the offer needs a channel of
// its own to negotiate SCTP.
func (v *Viewer) Connect() error {
	if _, err := v.pc.CreateDataChannel("negotiate", nil); err != nil {
		return err
	}
	offer, err := v.pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := v.pc.SetLocalDescription(offer); err != nil {
		return err
	}

	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return v.sig.SendOffer(v.publisherID, offerJSON)
}

// HandleAnswer processes an incoming SDP answer.
func (v *Viewer) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return err
	}
	return v.pc.SetRemoteDescription(answer)
}

// HandleICECandidate adds a remote ICE candidate.
func (v *Viewer) HandleICECandidate(payload json.RawMessage) error {
	return addCandidate(v.pc, payload)
}

// Close shuts down the peer connection.
func (v *Viewer) Close() {
	if v.pc != nil {
		if err := v.pc.Close(); err != nil {
			v.logger.Debug("close peer connection", zap.Error(err))
		}
	}
}
