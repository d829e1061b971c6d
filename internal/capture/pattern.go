package capture

// PatternGrabber renders a moving colour gradient. It stands in for a real
// display where none is available.
type PatternGrabber struct {
	width, height int
	tick          int
}

func NewPatternGrabber(width, height int) *PatternGrabber {
	if width <= 0 || height <= 0 {
		width, height = 1280, 720
	}
	return &PatternGrabber{width: width, height: height}
}

func (g *PatternGrabber) Next() (RawFrame, error) {
	g.tick++
	return &patternFrame{w: g.width, h: g.height, tick: g.tick}, nil
}

func (g *PatternGrabber) Close() error { return nil }

type patternFrame struct {
	w, h, tick int
}

func (f *patternFrame) Width() int  { return f.w }
func (f *patternFrame) Height() int { return f.h }

func (f *patternFrame) Buffer() ([]byte, error) {
	buf := make([]byte, f.w*f.h*BytesPerPixel)
	bar := (f.tick * 8) % f.w
	for y := 0; y < f.h; y++ {
		row := y * f.w * BytesPerPixel
		for x := 0; x < f.w; x++ {
			i := row + x*BytesPerPixel
			buf[i+0] = byte(x * 255 / f.w)
			buf[i+1] = byte(y * 255 / f.h)
			buf[i+2] = byte(f.tick)
			buf[i+3] = 0xff
			if x >= bar && x < bar+8 {
				buf[i+0], buf[i+1], buf[i+2] = 0xff, 0xff, 0xff
			}
		}
	}
	return buf, nil
}
