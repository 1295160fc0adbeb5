//go:build integration

package itest

import (
	"encoding/json"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/narrate/internal/pipeline"
	"github.com/forPelevin/narrate/internal/types"
)

// TestE2E_MergeMixedContainers voices three clips with espeak-ng, converts
// two of them with ffmpeg and merges the directory through the CLI.
func TestE2E_MergeMixedContainers(t *testing.T) {
	repoRoot := mustRepoRoot(t)
	dir := t.TempDir()

	lines := []string{"Once upon a time.", "Hello there!", "She said nothing."}
	var want float64
	for i, text := range lines {
		wav := filepath.Join(dir, "speech.wav")
		if b, err := exec.Command("espeak-ng", "-w", wav, text).CombinedOutput(); err != nil {
			t.Fatalf("espeak-ng failed: %v\n%s", err, string(b))
		}
		var out string
		switch i {
		case 0:
			out = filepath.Join(dir, "00001_nar.wav")
			if err := os.Rename(wav, out); err != nil {
				t.Fatalf("rename: %v", err)
			}
		case 1:
			out = filepath.Join(dir, "00002_dlg.m4a")
			ffmpeg(t, "-y", "-i", wav, "-c:a", "aac", out)
		case 2:
			// a different rate forces resampling
			out = filepath.Join(dir, "00003_nar.flac")
			ffmpeg(t, "-y", "-i", wav, "-ar", "44100", out)
		}
		sec, err := probeDurationSeconds(out)
		if err != nil {
			t.Fatalf("probe %s: %v", out, err)
		}
		want += sec
	}
	_ = os.Remove(filepath.Join(dir, "speech.wav"))
	want += 2 * 0.2

	res := runCLI(t, repoRoot, []string{"merge", dir, "--gap-ms", "200"}, nil)
	if res.exitCode != 0 {
		t.Fatalf("merge failed:\n%s", res.output)
	}
	merged := filepath.Join(dir, "merged.wav")
	if !strings.Contains(res.output, merged) {
		t.Fatalf("expected merged path in output:\n%s", res.output)
	}
	got, err := probeDurationSeconds(merged)
	if err != nil {
		t.Fatalf("probe merged: %v", err)
	}
	// aac priming adds a few tens of milliseconds
	if math.Abs(got-want) > 0.15 {
		t.Fatalf("merged duration %.3fs, want about %.3fs", got, want)
	}
}

func TestE2E_ExtractJSON(t *testing.T) {
	repoRoot := mustRepoRoot(t)
	in := writeFixture(t, "story.txt", "他说：“走吧。”她点头。\n班长说: 集合！")
	out := filepath.Join(t.TempDir(), "segments.json")

	res := runCLI(t, repoRoot, []string{"extract", in, "-o", out}, nil)
	if res.exitCode != 0 {
		t.Fatalf("extract failed:\n%s", res.output)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read segments: %v", err)
	}
	var segs []types.Segment
	if err := json.Unmarshal(b, &segs); err != nil {
		t.Fatalf("segments json: %v\n%s", err, string(b))
	}
	if len(segs) == 0 || segs[0].Sequence != 1 || segs[len(segs)-1].Sequence != len(segs) {
		t.Fatalf("unexpected segments: %+v", segs)
	}
	if !strings.Contains(string(b), "集合！") {
		t.Fatalf("expected unescaped CJK text:\n%s", string(b))
	}
}

// TestE2E_PiperRun needs a Wyoming Piper server at PIPER_ENDPOINT.
func TestE2E_PiperRun(t *testing.T) {
	endpoint := os.Getenv("PIPER_ENDPOINT")
	if endpoint == "" {
		t.Skip("PIPER_ENDPOINT is not set")
	}
	repoRoot := mustRepoRoot(t)
	in := writeFixture(t, "story.txt", "The captain said: \"Gather round!\" Everyone stood still.")
	outDir := t.TempDir()

	res := runCLI(t, repoRoot, []string{"run", in, "--backend", "piper", "--piper", endpoint, "--out", outDir}, nil)
	if res.exitCode != 0 {
		t.Fatalf("run failed:\n%s", res.output)
	}
	runDirs, err := filepath.Glob(filepath.Join(outDir, "story-*"))
	if err != nil || len(runDirs) != 1 {
		t.Fatalf("expected one run dir, got %v (%v)", runDirs, err)
	}
	b, err := os.ReadFile(filepath.Join(runDirs[0], pipeline.ManifestFileName))
	if err != nil {
		t.Fatalf("missing manifest: %v", err)
	}
	var m types.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("manifest json: %v", err)
	}
	if len(m.Clips) != len(m.Segments) || len(m.Clips) < 2 {
		t.Fatalf("expected one clip per segment, got %d clips for %d segments", len(m.Clips), len(m.Segments))
	}
	sec, err := probeDurationSeconds(filepath.Join(runDirs[0], m.Merged))
	if err != nil || sec < m.Clips[len(m.Clips)-1].EndSec-0.05 {
		t.Fatalf("merged duration %.3f shorter than timeline end %.3f (%v)", sec, m.Clips[len(m.Clips)-1].EndSec, err)
	}
}

func ffmpeg(t *testing.T, args ...string) {
	t.Helper()
	if b, err := exec.Command("ffmpeg", args...).CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
}
