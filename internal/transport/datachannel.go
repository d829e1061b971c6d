package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/junsooki/screencap/internal/capture"
)

// Channel labels.
const (
	FramesLabel  = "frames"
	ControlLabel = "control"
)

// ErrCongested is returned by SendFrame when the frames channel still holds
// too much unsent data. The frame is dropped.
var ErrCongested = errors.New("frames channel congested")

// maxBuffered bounds the data queued on the frames channel.
const maxBuffered = 8 << 20

// DataChannelTransport implements frame and control transport over WebRTC DataChannels.
type DataChannelTransport struct {
	logger *zap.Logger

	mu        sync.Mutex
	framesDC  *webrtc.DataChannel
	controlDC *webrtc.DataChannel
	onFrame   func(f capture.Frame)
	onControl func(m ControlMessage)

	reassembler *Reassembler
	seq         uint32
}

// NewDataChannelTransport wraps two DataChannels (frames + control). Either
// may be nil and set later.
func NewDataChannelTransport(framesDC, controlDC *webrtc.DataChannel, logger *zap.Logger) *DataChannelTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &DataChannelTransport{
		logger:      logger.Named("transport"),
		reassembler: NewReassembler(),
	}
	if framesDC != nil {
		t.SetFramesChannel(framesDC)
	}
	if controlDC != nil {
		t.SetControlChannel(controlDC)
	}
	return t
}

// SendFrame splits f into chunks and sends them. Frames are numbered by the
// transport so a receiver can tell them apart after a capture restart.
func (t *DataChannelTransport) SendFrame(f capture.Frame) error {
	t.mu.Lock()
	dc := t.framesDC
	t.seq++
	f.Seq = uint64(t.seq)
	t.mu.Unlock()

	if dc == nil {
		return fmt.Errorf("frames data channel not set")
	}
	if dc.ReadyState() != webrtc.DataChannelStateOpen {
		return fmt.Errorf("frames data channel %s", dc.ReadyState())
	}
	if dc.BufferedAmount() > maxBuffered {
		return ErrCongested
	}
	chunks, err := SplitFrame(f)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if err := dc.Send(c); err != nil {
			return fmt.Errorf("send frame chunk: %w", err)
		}
	}
	return nil
}

func (t *DataChannelTransport) SendControl(m ControlMessage) error {
	t.mu.Lock()
	dc := t.controlDC
	t.mu.Unlock()
	if dc == nil {
		return fmt.Errorf("control data channel not set")
	}
	b, err := marshalControl(m)
	if err != nil {
		return err
	}
	return dc.Send(b)
}

func (t *DataChannelTransport) OnFrame(cb func(f capture.Frame)) {
	t.mu.Lock()
	t.onFrame = cb
	t.mu.Unlock()
}

func (t *DataChannelTransport) OnControl(cb func(m ControlMessage)) {
	t.mu.Lock()
	t.onControl = cb
	t.mu.Unlock()
}

// SetFramesChannel sets or replaces the frames DataChannel (used when receiving negotiated channels).
func (t *DataChannelTransport) SetFramesChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.framesDC = dc
	t.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.handleChunk(msg.Data)
	})
}

// SetControlChannel sets or replaces the control DataChannel.
func (t *DataChannelTransport) SetControlChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.controlDC = dc
	t.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.handleControl(msg.Data)
	})
}

func (t *DataChannelTransport) handleChunk(data []byte) {
	t.mu.Lock()
	f, ok, err := t.reassembler.Push(data)
	cb := t.onFrame
	t.mu.Unlock()

	if err != nil {
		t.logger.Warn("drop frame chunk", zap.Error(err))
		return
	}
	if ok && cb != nil {
		cb(f)
	}
}

func (t *DataChannelTransport) handleControl(data []byte) {
	m, err := unmarshalControl(data)
	if err != nil {
		t.logger.Warn("drop control message", zap.Error(err))
		return
	}
	t.mu.Lock()
	cb := t.onControl
	t.mu.Unlock()
	if cb != nil {
		cb(m)
	}
}
