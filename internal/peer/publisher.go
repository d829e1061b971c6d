package peer

import (
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/junsooki/screencap/internal/transport"
)

// Publisher manages the capturing side of the WebRTC connection. It
// creates the channels and answers the viewer's offer.
type Publisher struct {
	pc        *webrtc.PeerConnection
	sig       Signaler
	transport *transport.DataChannelTransport
	logger    *zap.Logger

	mu     sync.Mutex
	viewer string
}

// NewPublisher creates a Publisher peer manager.
func NewPublisher(sig Signaler, logger *zap.Logger, onState func(webrtc.PeerConnectionState)) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("publisher")
	pc, err := NewPeerConnection(logger, onState)
	if err != nil {
		return nil, err
	}

	p := &Publisher{
		pc:     pc,
		sig:    sig,
		logger: logger,
	}

	// Frames are unordered and never retransmitted; a late frame is worthless.
	framesOrdered := false
	framesMaxRetransmits := uint16(0)
	framesDC, err := pc.CreateDataChannel(transport.FramesLabel, &webrtc.DataChannelInit{
		Ordered:        &framesOrdered,
		MaxRetransmits: &framesMaxRetransmits,
	})
	if err != nil {
		pc.Close()
		return nil, err
	}

	controlOrdered := true
	controlDC, err := pc.CreateDataChannel(transport.ControlLabel, &webrtc.DataChannelInit{
		Ordered: &controlOrdered,
	})
	if err != nil {
		pc.Close()
		return nil, err
	}

	p.transport = transport.NewDataChannelTransport(framesDC, controlDC, logger)
	trickle(pc, sig, p.remote, logger)
	return p, nil
}

func (p *Publisher) remote() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewer
}

// Transport returns the DataChannelTransport for sending frames and receiving control messages.
func (p *Publisher) Transport() *transport.DataChannelTransport {
	return p.transport
}

// HandleOffer processes an incoming offer from a viewer.
func (p *Publisher) HandleOffer(from string, payload json.RawMessage) error {
	p.mu.Lock()
	p.viewer = from
	p.mu.Unlock()

	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return err
	}
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return err
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return err
	}

	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return p.sig.SendAnswer(from, answerJSON)
}

// HandleICECandidate adds a remote ICE candidate.
func (p *Publisher) HandleICECandidate(payload json.RawMessage) error {
	return addCandidate(p.pc, payload)
}

// Close shuts down the peer connection.
func (p *Publisher) Close() {
	if p.pc != nil {
		if err := p.pc.Close(); err != nil {
			p.logger.Debug("close peer connection", zap.Error(err))
		}
	}
}
