package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forPelevin/narrate/internal/audio"
	"github.com/forPelevin/narrate/internal/domain/dialogue"
	"github.com/forPelevin/narrate/internal/domain/segments"
	"github.com/forPelevin/narrate/internal/ports"
	"github.com/forPelevin/narrate/internal/types"
)

// ErrNoSynthesizer is returned by the synthesis operations when no voice
// model backend could be built.
var ErrNoSynthesizer = errors.New("no synthesizer configured")

type Deps struct {
	Synth      ports.Synthesizer
	Transcoder ports.Transcoder
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

// Extract turns raw prose into a sequenced segment list. It never fails.
func (u Usecase) Extract(raw string) []types.Segment {
	return dialogue.ExtractAll(raw)
}

type SynthInput struct {
	Segments []types.Segment
	RefVoice string
	EmoAlpha float64
	// OutDir receives one clip per segment, named by segments.Label.
	OutDir string
	Logf   func(format string, args ...any)
}

// SynthesizeAll voices every segment in sequence order. It stops at the
// first failure; clips already written stay on disk.
func (u Usecase) SynthesizeAll(ctx context.Context, in SynthInput) ([]types.SynthResult, error) {
	logf := in.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if err := u.prepare(in); err != nil {
		return nil, err
	}

	results := make([]types.SynthResult, 0, len(in.Segments))
	for i, s := range in.Segments {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		logf("synthesizing %d/%d (%s)", i+1, len(in.Segments), segments.Label(s))
		r, err := u.synth(ctx, in, s)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// SynthesizeOne re-voices a single segment, overwriting its clip.
func (u Usecase) SynthesizeOne(ctx context.Context, in SynthInput, seq int) (types.SynthResult, error) {
	if err := u.prepare(in); err != nil {
		return types.SynthResult{}, err
	}
	s, err := segments.Find(in.Segments, seq)
	if err != nil {
		return types.SynthResult{}, err
	}
	return u.synth(ctx, in, s)
}

func (u Usecase) prepare(in SynthInput) error {
	if u.d.Synth == nil {
		return ErrNoSynthesizer
	}
	if in.OutDir == "" {
		return errors.New("output dir is empty")
	}
	if err := segments.Validate(in.Segments); err != nil {
		return err
	}
	if u.d.Synth.RequiresReferenceVoice() {
		if in.RefVoice == "" {
			return ports.ErrMissingReferenceVoice
		}
		if st, err := os.Stat(in.RefVoice); err != nil || st.IsDir() {
			return fmt.Errorf("%w: %s", ports.ErrMissingReferenceVoice, in.RefVoice)
		}
	}
	return os.MkdirAll(in.OutDir, 0o755)
}

func (u Usecase) synth(ctx context.Context, in SynthInput, s types.Segment) (types.SynthResult, error) {
	label := segments.Label(s)
	out := filepath.Join(in.OutDir, label+".wav")
	err := u.d.Synth.Synthesize(ctx, types.SynthRequest{
		Text:           s.Text,
		EmotionHint:    s.EmotionHint,
		EmotionAlpha:   in.EmoAlpha,
		ReferenceVoice: in.RefVoice,
		OutPath:        out,
	})
	if err != nil {
		return types.SynthResult{}, fmt.Errorf("synthesize %s: %w", label, err)
	}
	return types.SynthResult{Path: out, Sequence: s.Sequence, Label: label, Kind: s.Kind}, nil
}

type MergeInput struct {
	Dir     string
	OutPath string
	GapMs   int
	Logf    func(format string, args ...any)
}

func (u Usecase) Merge(ctx context.Context, in MergeInput) (audio.Result, error) {
	c := audio.Concatenator{
		GapMs:      in.GapMs,
		Transcoder: u.d.Transcoder,
		Logf:       in.Logf,
	}
	return c.Merge(ctx, in.Dir, in.OutPath)
}

// ResidualClips lists audio files already present in dir. A fresh run
// mixes them into the merge unless they are cleared first.
func ResidualClips(dir string) ([]string, error) {
	clips, err := audio.ListClips(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(clips))
	for _, c := range clips {
		out = append(out, c.Path)
	}
	return out, nil
}

// PartitionClips splits clip paths into dialogue and narration by the
// kind tag in their names.
func PartitionClips(paths []string) (dlg, nar []string) {
	for _, p := range paths {
		if segments.IsNarrationLabel(filepath.Base(p)) {
			nar = append(nar, p)
		} else {
			dlg = append(dlg, p)
		}
	}
	return dlg, nar
}
