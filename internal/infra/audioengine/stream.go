package audioengine

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/framecue/internal/domain/audio"
)

// Stream is a decoded file opened by a Context.
type Stream struct {
	ctx     *Context
	path    string
	decoder beep.StreamSeekCloser
	format  beep.Format
	file    *os.File

	voice    *voice // Guarded by the output lock
	released bool   // Guarded by the output lock
}

// SampleRate returns the native sample rate of the file.
func (s *Stream) SampleRate() (float64, error) {
	s.ctx.output.Lock()
	defer s.ctx.output.Unlock()

	if s.released {
		return 0, audio.ErrInvalidHandle
	}
	return float64(s.format.SampleRate), nil
}

// Len returns the length of the file in frames.
func (s *Stream) Len() int {
	s.ctx.output.Lock()
	defer s.ctx.output.Unlock()
	return s.decoder.Len()
}

// Release stops any voice playing the stream and closes the file.
func (s *Stream) Release() error {
	s.ctx.output.Lock()
	if s.released {
		s.ctx.output.Unlock()
		return audio.ErrInvalidHandle
	}
	s.released = true
	if s.voice != nil && s.ctx.mixer != nil {
		s.ctx.mixer.remove(s.voice, audio.ErrInvalidHandle)
	}
	s.voice = nil
	err := s.decoder.Close()
	s.ctx.output.Unlock()

	if cerr := s.file.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
		err = cerr
	}
	if err != nil {
		return audio.NewEngineError("stream.release", err)
	}

	zlog.Debug().Msgf("audio: stream released: file=%s", s.path)
	return nil
}

var _ audio.Stream = (*Stream)(nil)
