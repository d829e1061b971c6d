package transport

import "github.com/junsooki/screencap/internal/capture"

// FrameSender sends captured frames.
type FrameSender interface {
	SendFrame(f capture.Frame) error
}

// FrameReceiver receives reassembled frames.
type FrameReceiver interface {
	OnFrame(callback func(f capture.Frame))
}

// ControlSender sends control messages.
type ControlSender interface {
	SendControl(m ControlMessage) error
}

// ControlReceiver receives control messages.
type ControlReceiver interface {
	OnControl(callback func(m ControlMessage))
}
