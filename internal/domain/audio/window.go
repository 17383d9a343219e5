package audio

// Window is a requested playback range [Start, End) in source frames.
type Window struct {
	Start int64
	End   int64
}

// Normalize clamps a negative start to 0. It reports whether the start was
// corrected. The end is left as requested.
func (w Window) Normalize() (Window, bool) {
	if w.Start < 0 {
		return Window{Start: 0, End: w.End}, true
	}
	return w, false
}

// Valid reports whether the window holds at least one frame.
func (w Window) Valid() bool {
	return w.End > w.Start
}

// Frames returns the window length in source frames.
func (w Window) Frames() int64 {
	return w.End - w.Start
}

// OutputFrames converts the window length into output-rate frames. The
// result is truncated toward zero.
func (w Window) OutputFrames(inputRate float64, outputRate int) uint64 {
	return ConvertFrames(w.Frames(), inputRate, outputRate)
}

// ConvertFrames converts frames at inputRate to frames at outputRate,
// truncating toward zero. Non-positive inputs yield 0.
func ConvertFrames(frames int64, inputRate float64, outputRate int) uint64 {
	if frames <= 0 || inputRate <= 0 || outputRate <= 0 {
		return 0
	}
	return uint64(float64(outputRate) * (float64(frames) / inputRate))
}
