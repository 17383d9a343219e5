package audioengine

import (
	"math"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// voice is one source routed through the mixer. All fields are guarded by
// the output lock.
type voice struct {
	stream *Stream
	volume *effects.Volume // source -> resample -> volume

	startClock uint64 // First output frame that may be audible, 0 for immediately
	stopClock  uint64 // First output frame that is silent again, 0 for never
	paused     bool

	startFrame int64  // Source frame at which the voice started
	srcRate    int64  // Source sample rate
	outRate    int64  // Output sample rate
	played     uint64 // Output frames rendered

	done    bool  // Finished, waiting for the sweep
	invalid error // Set once the handle is gone
}

func newVoice(s *Stream, outRate beep.SampleRate, quality int, paused bool) *voice {
	var src beep.Streamer = s.decoder
	if s.format.SampleRate != outRate {
		src = beep.Resample(quality, s.format.SampleRate, outRate, src)
	}
	return &voice{
		stream:     s,
		volume:     &effects.Volume{Streamer: src, Base: 2},
		paused:     paused,
		startFrame: int64(s.decoder.Position()),
		srcRate:    int64(s.format.SampleRate),
		outRate:    int64(outRate),
	}
}

// setVolume applies a linear gain.
func (v *voice) setVolume(gain float64) {
	if gain <= 0 {
		v.volume.Silent = true
		return
	}
	v.volume.Silent = false
	v.volume.Volume = math.Log2(gain)
}

// position returns the source frame being rendered.
func (v *voice) position() int64 {
	return v.startFrame + int64(v.played)*v.srcRate/v.outRate
}

// mix adds the voice's contribution for output frames [clock, clock+len(out))
// into out, using scratch for the voice's own samples.
func (v *voice) mix(out, scratch [][2]float64, clock uint64) {
	if v.done || v.invalid != nil {
		return
	}
	n := uint64(len(out))

	if v.stopClock != 0 && v.stopClock <= clock {
		v.done = true
		return
	}
	if v.paused {
		return
	}

	var from uint64
	if v.startClock > clock {
		from = v.startClock - clock
	}
	if from >= n {
		return
	}
	to := n
	if v.stopClock != 0 && v.stopClock < clock+n {
		to = v.stopClock - clock
	}
	if to <= from {
		return
	}

	buf := scratch[:to-from]
	got, ok := v.volume.Stream(buf)
	for i := 0; i < got; i++ {
		out[int(from)+i][0] += buf[i][0]
		out[int(from)+i][1] += buf[i][1]
	}
	v.played += uint64(got)

	if !ok || got < len(buf) || (v.stopClock != 0 && clock+to >= v.stopClock) {
		v.done = true
	}
}

// mixer sums all voices and counts output frames. It is the single streamer
// an Output pulls from; the clock is the number of frames pulled.
type mixer struct {
	clock   uint64
	voices  []*voice
	scratch [][2]float64
}

func newMixer(bufferSize int) *mixer {
	return &mixer{scratch: make([][2]float64, bufferSize)}
}

func (m *mixer) Stream(samples [][2]float64) (int, bool) {
	total := len(samples)
	for len(samples) > 0 {
		n := min(len(samples), len(m.scratch))
		chunk := samples[:n]
		clear(chunk)
		for _, v := range m.voices {
			v.mix(chunk, m.scratch, m.clock)
		}
		m.clock += uint64(n)
		samples = samples[n:]
	}
	return total, true
}

func (m *mixer) Err() error { return nil }

// add registers v, stealing the oldest voices beyond limit.
func (m *mixer) add(v *voice, limit int, steal error) {
	for len(m.voices) >= limit && len(m.voices) > 0 {
		oldest := m.voices[0]
		oldest.invalid = steal
		m.voices = m.voices[1:]
	}
	m.voices = append(m.voices, v)
}

// sweep drops finished voices and invalidates their handles.
func (m *mixer) sweep(invalid error) int {
	kept := m.voices[:0]
	removed := 0
	for _, v := range m.voices {
		switch {
		case v.invalid != nil:
			removed++
		case v.done:
			v.invalid = invalid
			removed++
		default:
			kept = append(kept, v)
		}
	}
	clear(m.voices[len(kept):])
	m.voices = kept
	return removed
}

// remove drops v and invalidates it.
func (m *mixer) remove(v *voice, invalid error) {
	for i, cur := range m.voices {
		if cur == v {
			m.voices = append(m.voices[:i], m.voices[i+1:]...)
			break
		}
	}
	if v.invalid == nil {
		v.invalid = invalid
	}
}
