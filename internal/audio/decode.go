package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"

	"github.com/forPelevin/narrate/internal/ports"
)

// PCM is a decoded clip. Frames always carry two channels; mono sources
// have both channels equal and Channels == 1.
type PCM struct {
	Frames     [][2]float64
	SampleRate int
	Channels   int
}

var errUnsupportedFormat = errors.New("unsupported audio format")

// Decode reads a whole clip into memory. Containers without an in-process
// decoder are converted through tc when it is set.
func Decode(ctx context.Context, path string, tc ports.Transcoder) (PCM, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".mp3", ".flac", ".ogg":
		return decodeFile(path, ext)
	}
	if tc == nil {
		return PCM{}, fmt.Errorf("%s: %w (%s)", path, errUnsupportedFormat, ext)
	}

	tmp, err := os.MkdirTemp("", "narrate-transcode-")
	if err != nil {
		return PCM{}, err
	}
	defer os.RemoveAll(tmp)

	wavPath := filepath.Join(tmp, "clip.wav")
	if err := tc.ToWAV(ctx, path, wavPath); err != nil {
		return PCM{}, err
	}
	return decodeFile(wavPath, ".wav")
}

func decodeFile(path, ext string) (PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return PCM{}, err
	}
	return decodeStream(f, filepath.Base(path), ext)
}

// decodeStream takes ownership of rc and closes it exactly once.
func decodeStream(rc io.ReadCloser, name, ext string) (PCM, error) {
	var (
		s      beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch ext {
	case ".wav":
		s, format, err = wav.Decode(rc)
	case ".mp3":
		s, format, err = mp3.Decode(rc)
	case ".flac":
		s, format, err = flac.Decode(rc)
	case ".ogg":
		s, format, err = vorbis.Decode(rc)
	default:
		err = errUnsupportedFormat
	}
	if err != nil {
		rc.Close()
		return PCM{}, fmt.Errorf("decode %s: %w", name, err)
	}
	// the decoder owns rc from here
	defer s.Close()

	frames, err := drain(s)
	if err != nil {
		return PCM{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return PCM{Frames: frames, SampleRate: int(format.SampleRate), Channels: format.NumChannels}, nil
}

func drain(s beep.StreamSeekCloser) ([][2]float64, error) {
	out := make([][2]float64, 0, max(s.Len(), 0))
	buf := make([][2]float64, 4096)
	for {
		n, ok := s.Stream(buf)
		out = append(out, buf[:n]...)
		if !ok {
			break
		}
	}
	return out, s.Err()
}
