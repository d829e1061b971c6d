package transport

import (
	"testing"

	"github.com/junsooki/screencap/internal/capture"
)

func TestControlRoundTrip(t *testing.T) {
	for _, cmd := range []capture.Command{
		capture.SetFrameRate(30),
		capture.SetResolution(1280, 720),
		capture.SetWidth(640),
		capture.SetHeight(480),
		capture.StopCommand(),
	} {
		b, err := marshalControl(ControlFor(cmd))
		if err != nil {
			t.Fatal(err)
		}
		m, err := unmarshalControl(b)
		if err != nil {
			t.Fatal(err)
		}
		got, err := m.Decode()
		if err != nil {
			t.Fatalf("%s: %v", b, err)
		}
		if got != cmd {
			t.Errorf("%s decoded to %+v, want %+v", b, got, cmd)
		}
	}
}

func TestControlWireForm(t *testing.T) {
	b, _ := marshalControl(ControlFor(capture.SetResolution(800, 600)))
	if want := `{"command":"setResolution","value":"800x600"}`; string(b) != want {
		t.Errorf("wire = %s, want %s", b, want)
	}
	b, _ = marshalControl(ControlMessage{Command: NameClosed})
	if want := `{"command":"closed"}`; string(b) != want {
		t.Errorf("wire = %s, want %s", b, want)
	}
}

func TestTransportDispatch(t *testing.T) {
	tr := NewDataChannelTransport(nil, nil, nil)

	var frames []capture.Frame
	var controls []ControlMessage
	tr.OnFrame(func(f capture.Frame) { frames = append(frames, f) })
	tr.OnControl(func(m ControlMessage) { controls = append(controls, m) })

	chunks, _ := SplitFrame(testFrame(64, 64, 3))
	for _, c := range chunks {
		tr.handleChunk(c)
	}
	tr.handleChunk([]byte{1, 2, 3})
	tr.handleControl([]byte(`{"command":"setFrameRate","value":"12"}`))
	tr.handleControl([]byte(`not json`))

	if len(frames) != 1 || frames[0].Width != 64 {
		t.Errorf("frames = %d, want one 64px frame", len(frames))
	}
	if len(controls) != 1 || controls[0].Value != "12" {
		t.Errorf("controls = %+v", controls)
	}
	if err := tr.SendControl(ControlMessage{Command: NameClosed}); err == nil {
		t.Error("SendControl without a channel succeeded")
	}
}
