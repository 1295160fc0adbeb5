package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/forPelevin/narrate/internal/audio"
	"github.com/forPelevin/narrate/internal/config"
	"github.com/forPelevin/narrate/internal/domain/segments"
	"github.com/forPelevin/narrate/internal/domain/subtitles"
	"github.com/forPelevin/narrate/internal/ports"
	"github.com/forPelevin/narrate/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/narrate/internal/ports/adapters/indextts"
	"github.com/forPelevin/narrate/internal/ports/adapters/piper"
	"github.com/forPelevin/narrate/internal/types"
	"github.com/forPelevin/narrate/internal/usecase"
)

const (
	SegmentsFileName  = "segments.json"
	ManifestFileName  = "manifest.json"
	SubtitlesFileName = "merged.ass"
	ClipsDirName      = "clips"
)

type Config struct {
	InputText string
	OutDir    string
	// RunDir reuses an existing run directory instead of creating a fresh
	// one under OutDir.
	RunDir string
	// SegmentsFile is an edited segment list that replaces extraction.
	SegmentsFile string

	RefVoice  string
	EmoAlpha  float64
	GapMs     int
	Subtitles bool
	Logf      func(format string, args ...any)

	Backend  string
	IndexTTS indextts.Config
	Piper    piper.Config
	// Synthesizer, if set, is used instead of building Backend.
	Synthesizer ports.Synthesizer

	FFmpegPath  string
	FFprobePath string
}

func (c Config) Validate() error {
	if c.InputText == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.InputText); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if c.SegmentsFile != "" {
		if _, err := os.Stat(c.SegmentsFile); err != nil {
			return fmt.Errorf("stat segments: %w", err)
		}
	}
	if c.GapMs < 0 {
		return fmt.Errorf("gap must be >= 0 ms")
	}
	if c.EmoAlpha < 0 || c.EmoAlpha > 1 {
		return fmt.Errorf("emotion alpha must be within [0, 1]")
	}
	return nil
}

// NewSynthesizer builds the voice-model adapter named by cfg.Backend.
func NewSynthesizer(cfg Config) (ports.Synthesizer, error) {
	if cfg.Synthesizer != nil {
		return cfg.Synthesizer, nil
	}
	switch cfg.Backend {
	case "", config.BackendIndexTTS:
		return indextts.New(cfg.IndexTTS)
	case config.BackendPiper:
		return piper.New(cfg.Piper), nil
	default:
		return nil, fmt.Errorf("unknown tts backend %q", cfg.Backend)
	}
}

type Result struct {
	RunDir   string
	Manifest types.Manifest
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	synth, err := NewSynthesizer(cfg)
	if err != nil {
		return Result{}, err
	}
	uc := usecase.New(usecase.Deps{
		Synth:      synth,
		Transcoder: ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath),
	})

	runOutDir := cfg.RunDir
	if runOutDir == "" {
		outDir := cfg.OutDir
		if outDir == "" {
			outDir = "radio_out"
		}
		runOutDir = buildRunOutDir(outDir, cfg.InputText, time.Now().UTC())
	}
	clipsDir := filepath.Join(runOutDir, ClipsDirName)
	logf("output run dir: %s", runOutDir)

	residual, err := usecase.ResidualClips(clipsDir)
	if err != nil {
		return Result{}, err
	}
	if len(residual) > 0 {
		logf("warning: %d clips already in %s will be overwritten or merged", len(residual), clipsDir)
	}
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return Result{}, err
	}

	segs, err := loadSegments(uc, cfg)
	if err != nil {
		return Result{}, err
	}
	logf("segments: %d", len(segs))
	if err := writeSegments(filepath.Join(runOutDir, SegmentsFileName), segs); err != nil {
		return Result{}, err
	}
	if len(segs) == 0 {
		return Result{}, fmt.Errorf("no segments extracted from %s: %w", cfg.InputText, audio.ErrEmptyInput)
	}

	if _, err := uc.SynthesizeAll(ctx, usecase.SynthInput{
		Segments: segs,
		RefVoice: cfg.RefVoice,
		EmoAlpha: cfg.EmoAlpha,
		OutDir:   clipsDir,
		Logf:     logf,
	}); err != nil {
		return Result{}, err
	}

	merged, err := uc.Merge(ctx, usecase.MergeInput{
		Dir:     clipsDir,
		OutPath: filepath.Join(runOutDir, audio.DefaultMergedName),
		GapMs:   cfg.GapMs,
		Logf:    logf,
	})
	if err != nil {
		return Result{}, err
	}

	m := buildManifest(cfg, runOutDir, merged, segs)
	if cfg.Subtitles {
		ass := subtitles.RenderASS(merged.Placements, segs)
		if err := os.WriteFile(filepath.Join(runOutDir, SubtitlesFileName), []byte(ass), 0o644); err != nil {
			return Result{}, err
		}
		m.Subtitles = SubtitlesFileName
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, ManifestFileName)
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return Result{}, err
	}
	logf("manifest written (%d clips): %s", len(m.Clips), manifestPath)
	return Result{RunDir: runOutDir, Manifest: m}, nil
}

func loadSegments(uc usecase.Usecase, cfg Config) ([]types.Segment, error) {
	if cfg.SegmentsFile != "" {
		f, err := os.Open(cfg.SegmentsFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return segments.Decode(f)
	}
	raw, err := os.ReadFile(cfg.InputText)
	if err != nil {
		return nil, err
	}
	return uc.Extract(string(raw)), nil
}

func writeSegments(path string, segs []types.Segment) error {
	var buf bytes.Buffer
	if err := segments.Encode(&buf, segs); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func buildManifest(cfg Config, runOutDir string, merged audio.Result, segs []types.Segment) types.Manifest {
	bySeq := make(map[int]types.Segment, len(segs))
	for _, s := range segs {
		bySeq[s.Sequence] = s
	}
	m := types.Manifest{
		RunID:      uuid.NewString(),
		Input:      cfg.InputText,
		Merged:     relTo(runOutDir, merged.Path),
		SampleRate: merged.SampleRate,
		Channels:   merged.Channels,
		GapMs:      cfg.GapMs,
		Segments:   segs,
	}
	for _, p := range merged.Placements {
		s := bySeq[p.Sequence]
		m.Clips = append(m.Clips, types.ManifestClip{
			Seq:      p.Sequence,
			Kind:     s.Kind,
			File:     filepath.ToSlash(filepath.Join(ClipsDirName, p.File)),
			StartSec: p.Start.Seconds(),
			EndSec:   p.End.Seconds(),
			Text:     s.Text,
		})
	}
	return m
}

func relTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.Synthesizer = (*indextts.Adapter)(nil)
var _ ports.Synthesizer = (*piper.Adapter)(nil)
var _ ports.Transcoder = (*ffmpeg.Adapter)(nil)
