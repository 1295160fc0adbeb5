package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/forPelevin/narrate/internal/audio"
	"github.com/forPelevin/narrate/internal/types"
)

type silentSynth struct{ calls int }

func (s *silentSynth) RequiresReferenceVoice() bool { return false }

func (s *silentSynth) Synthesize(_ context.Context, req types.SynthRequest) error {
	s.calls++
	f, err := os.Create(req.OutPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return wav.Encode(f, beep.Silence(8000), beep.Format{SampleRate: 16000, NumChannels: 1, Precision: 2})
}

func writeInput(t *testing.T, dir, text string) string {
	t.Helper()
	p := filepath.Join(dir, "第一章.txt")
	if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return p
}

func TestRun_WritesRunArtifacts(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	in := writeInput(t, tmp, "班长说: 集合！大家站好。")
	synth := &silentSynth{}

	var logs []string
	res, err := Run(context.Background(), Config{
		InputText:   in,
		OutDir:      filepath.Join(tmp, "out"),
		GapMs:       200,
		EmoAlpha:    0.6,
		Subtitles:   true,
		Synthesizer: synth,
		Logf:        func(f string, _ ...any) { logs = append(logs, f) },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if filepath.Dir(res.RunDir) != filepath.Join(tmp, "out") {
		t.Fatalf("unexpected run dir: %s", res.RunDir)
	}

	for _, name := range []string{SegmentsFileName, ManifestFileName, SubtitlesFileName, audio.DefaultMergedName} {
		if _, err := os.Stat(filepath.Join(res.RunDir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	m := res.Manifest
	if synth.calls != len(m.Segments) || len(m.Clips) != len(m.Segments) {
		t.Fatalf("expected one clip per segment: %d calls, %d clips, %d segments", synth.calls, len(m.Clips), len(m.Segments))
	}
	if m.RunID == "" || m.Merged != audio.DefaultMergedName || m.Subtitles != SubtitlesFileName {
		t.Fatalf("unexpected manifest header: %+v", m)
	}
	first, second := m.Clips[0], m.Clips[1]
	if first.File != "clips/00001_nar.wav" || first.Text != "班长说:" {
		t.Fatalf("unexpected first clip: %+v", first)
	}
	if second.Kind != types.KindDialogue || second.StartSec != 0.7 {
		t.Fatalf("unexpected second clip: %+v", second)
	}

	b, err := os.ReadFile(filepath.Join(res.RunDir, ManifestFileName))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var onDisk types.Manifest
	if err := json.Unmarshal(b, &onDisk); err != nil {
		t.Fatalf("manifest json: %v", err)
	}
	if onDisk.RunID != m.RunID || len(onDisk.Clips) != len(m.Clips) {
		t.Fatalf("manifest on disk differs from result")
	}
	if len(logs) == 0 {
		t.Fatalf("expected progress logs")
	}
}

func TestRun_EditedSegmentsAndResidualWarning(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	in := writeInput(t, tmp, "原文不会被使用。")
	seg := filepath.Join(tmp, "edited.json")
	edited := `[{"seq":1,"kind":"dialog","text":"改过的台词","emotion_hint":""}]`
	if err := os.WriteFile(seg, []byte(edited), 0o644); err != nil {
		t.Fatalf("write segments: %v", err)
	}

	runDir := filepath.Join(tmp, "run")
	if err := os.MkdirAll(filepath.Join(runDir, ClipsDirName), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stale := filepath.Join(runDir, ClipsDirName, "00001_dlg.wav")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale clip: %v", err)
	}

	var warned bool
	res, err := Run(context.Background(), Config{
		InputText:    in,
		RunDir:       runDir,
		SegmentsFile: seg,
		Synthesizer:  &silentSynth{},
		Logf: func(f string, _ ...any) {
			if strings.HasPrefix(f, "warning:") {
				warned = true
			}
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !warned {
		t.Fatalf("expected residual clip warning")
	}
	if res.RunDir != runDir || len(res.Manifest.Segments) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	s := res.Manifest.Segments[0]
	if s.Kind != types.KindDialogue || s.EmotionHint != "改过的台词" {
		t.Fatalf("edited segment not honored: %+v", s)
	}
}

func TestRun_EmptyText(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	_, err := Run(context.Background(), Config{
		InputText:   writeInput(t, tmp, "  \n\n"),
		OutDir:      tmp,
		Synthesizer: &silentSynth{},
	})
	if !errors.Is(err, audio.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	in := writeInput(t, t.TempDir(), "x")
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"ok", Config{InputText: in, GapMs: 200, EmoAlpha: 0.6}, true},
		{"no input", Config{}, false},
		{"missing input", Config{InputText: in + ".missing"}, false},
		{"missing segments", Config{InputText: in, SegmentsFile: in + ".json"}, false},
		{"negative gap", Config{InputText: in, GapMs: -5}, false},
		{"alpha", Config{InputText: in, EmoAlpha: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestNewSynthesizer_UnknownBackend(t *testing.T) {
	if _, err := NewSynthesizer(Config{Backend: "espeak"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if s, err := NewSynthesizer(Config{Backend: "piper"}); err != nil || s.RequiresReferenceVoice() {
		t.Fatalf("piper backend: %v", err)
	}
}

func TestBuildRunOutDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := buildRunOutDir("out", "/tmp/My Cool.Story.txt", now)
	base := filepath.Base(got)
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if !strings.HasPrefix(base, "my-cool-story-20260212-103045Z-") {
		t.Fatalf("unexpected run dir format: %s", base)
	}
	if len(base) != len("my-cool-story-20260212-103045Z-")+6 {
		t.Fatalf("unexpected run dir suffix length: %s", base)
	}
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Story  ": "my-cool-story",
		"___":               "",
		"abc123":            "abc123",
		"Name (v2)!":        "name-v2",
		"第一章":               "第一章",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizePathSegment(in); got != want {
				t.Fatalf("normalizePathSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}
