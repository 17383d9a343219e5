package audioengine

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned for files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// decodeFile opens path and decodes it in streaming mode based on its
// extension. The returned file must be closed after the decoder.
func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, nil, errors.Wrapf(err, "failed to open %s", path)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		streamer, format, err = wav.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		err = errors.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
	}
	if err != nil {
		_ = f.Close()
		return nil, beep.Format{}, nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return streamer, format, f, nil
}
