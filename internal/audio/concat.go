package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/forPelevin/narrate/internal/ports"
	"github.com/forPelevin/narrate/internal/types"
)

// ErrEmptyInput is returned when the clip directory has no audio to merge.
var ErrEmptyInput = errors.New("no audio clips to merge")

const (
	DefaultGapMs      = 200
	DefaultMergedName = "merged.wav"
)

type Concatenator struct {
	// GapMs is the silence inserted between consecutive clips.
	GapMs      int
	Transcoder ports.Transcoder
	Logf       func(format string, args ...any)
}

type Result struct {
	Path       string
	SampleRate int
	Channels   int
	Frames     int
	Placements []types.ClipPlacement
}

// GapFrames is the silence length for rate and gapMs.
func GapFrames(rate, gapMs int) int {
	if gapMs <= 0 {
		return 0
	}
	return int(math.Round(float64(rate) * float64(gapMs) / 1000))
}

// Merge concatenates every clip of dir in sequence order and writes one
// 16-bit PCM WAV at outPath (default dir/merged.wav). The first clip fixes
// the sample rate and channel count; later clips at another rate are
// resampled. Nothing is written unless every clip decoded.
func (c Concatenator) Merge(ctx context.Context, dir, outPath string) (Result, error) {
	logf := c.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if c.GapMs < 0 {
		return Result{}, fmt.Errorf("gap must be >= 0 ms, got %d", c.GapMs)
	}
	if outPath == "" {
		outPath = filepath.Join(dir, DefaultMergedName)
	}

	clips, err := ListClips(dir)
	if err != nil {
		return Result{}, fmt.Errorf("list clips: %w", err)
	}
	clips = withoutPath(clips, outPath)
	if len(clips) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrEmptyInput, dir)
	}

	var (
		merged     [][2]float64
		placements = make([]types.ClipPlacement, 0, len(clips))
		refRate    int
		channels   int
		gap        int
	)
	for i, clip := range clips {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		pcm, err := Decode(ctx, clip.Path, c.Transcoder)
		if err != nil {
			return Result{}, err
		}
		if i == 0 {
			refRate, channels = pcm.SampleRate, pcm.Channels
			gap = GapFrames(refRate, c.GapMs)
		} else if pcm.SampleRate != refRate {
			logf("resampling %s from %d Hz to %d Hz", filepath.Base(clip.Path), pcm.SampleRate, refRate)
			pcm.Frames = Resample(pcm.Frames, pcm.SampleRate, refRate)
		}

		start := len(merged)
		merged = append(merged, pcm.Frames...)
		placements = append(placements, types.ClipPlacement{
			Sequence: clip.Sequence,
			File:     filepath.Base(clip.Path),
			Start:    beep.SampleRate(refRate).D(start),
			End:      beep.SampleRate(refRate).D(len(merged)),
		})
		if i != len(clips)-1 && gap > 0 {
			merged = append(merged, make([][2]float64, gap)...)
		}
	}

	format := beep.Format{SampleRate: beep.SampleRate(refRate), NumChannels: channels, Precision: 2}
	if err := writeWAV(outPath, merged, format); err != nil {
		return Result{}, err
	}
	logf("merged %d clips (%d frames @ %d Hz, gap %d ms): %s", len(clips), len(merged), refRate, c.GapMs, outPath)

	return Result{
		Path:       outPath,
		SampleRate: refRate,
		Channels:   channels,
		Frames:     len(merged),
		Placements: placements,
	}, nil
}

// writeWAV encodes into a temp file next to path and renames it into place,
// so a failed encode never leaves a truncated output behind.
func writeWAV(path string, frames [][2]float64, format beep.Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".merge-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		return err
	}

	if err := wav.Encode(f, &frameStreamer{frames: frames}, format); err != nil {
		f.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

type frameStreamer struct {
	frames [][2]float64
}

func (s *frameStreamer) Stream(samples [][2]float64) (int, bool) {
	if len(s.frames) == 0 {
		return 0, false
	}
	n := copy(samples, s.frames)
	s.frames = s.frames[n:]
	return n, true
}

func (s *frameStreamer) Err() error { return nil }

func withoutPath(clips []Clip, path string) []Clip {
	abs, err := filepath.Abs(path)
	if err != nil {
		return clips
	}
	out := clips[:0]
	for _, c := range clips {
		if p, err := filepath.Abs(c.Path); err == nil && p == abs {
			continue
		}
		out = append(out, c)
	}
	return out
}
