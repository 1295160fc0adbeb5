package indextts

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/forPelevin/narrate/internal/ports"
	"github.com/forPelevin/narrate/internal/types"
)

// EnvCheckpoints names the directory holding config.yaml and the model weights.
const EnvCheckpoints = "INDEXTTS_CHECKPOINTS"

var ErrCheckpointsNotFound = errors.New("indextts checkpoints not found")

// driver loads indextts.infer_v2.IndexTTS2 and voices one clip. It runs via
// "python -c".
//
//go:embed driver.py
var driver string

type Config struct {
	// Python interpreter with indextts installed. Defaults to "python3".
	Python string
	// Script replaces the embedded driver. It receives the same flags.
	Script string
	// Checkpoints dir; empty falls back to $INDEXTTS_CHECKPOINTS.
	Checkpoints string
	FP16        bool
	CUDAKernel  bool
	DeepSpeed   bool
}

type Adapter struct {
	python   string
	script   string
	modelDir string
	fp16     bool
	cuda     bool
	ds       bool
}

// New resolves the checkpoint directory up front so a bad install fails
// before any clip is attempted.
func New(cfg Config) (*Adapter, error) {
	dir, err := ResolveCheckpoints(cfg.Checkpoints)
	if err != nil {
		return nil, err
	}
	py := cfg.Python
	if py == "" {
		py = "python3"
	}
	return &Adapter{
		python:   py,
		script:   cfg.Script,
		modelDir: dir,
		fp16:     cfg.FP16,
		cuda:     cfg.CUDAKernel,
		ds:       cfg.DeepSpeed,
	}, nil
}

func ResolveCheckpoints(dir string) (string, error) {
	if dir == "" {
		dir = os.Getenv(EnvCheckpoints)
	}
	if dir == "" {
		return "", fmt.Errorf("%w: set tts.indextts.checkpoints or %s", ErrCheckpointsNotFound, EnvCheckpoints)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	cfg := filepath.Join(abs, "config.yaml")
	if st, err := os.Stat(cfg); err != nil || st.IsDir() {
		return "", fmt.Errorf("%w: missing %s", ErrCheckpointsNotFound, cfg)
	}
	return abs, nil
}

func (a *Adapter) RequiresReferenceVoice() bool { return true }

func (a *Adapter) Synthesize(ctx context.Context, req types.SynthRequest) error {
	if req.ReferenceVoice == "" {
		return ports.ErrMissingReferenceVoice
	}
	if st, err := os.Stat(req.ReferenceVoice); err != nil || st.IsDir() {
		return fmt.Errorf("%w: %s", ports.ErrMissingReferenceVoice, req.ReferenceVoice)
	}
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("empty text for synthesis")
	}
	if err := os.MkdirAll(filepath.Dir(req.OutPath), 0o755); err != nil {
		return err
	}

	flags := a.flags(req)
	log.Debug().Str("out", filepath.Base(req.OutPath)).Strs("flags", flags).Msg("indextts infer")

	cmd := exec.CommandContext(ctx, a.python, append(a.entrypoint(), flags...)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("indextts failed: %w\n%s", err, string(b))
	}
	if _, err := os.Stat(req.OutPath); err != nil {
		return fmt.Errorf("indextts produced no output at %s: %w", req.OutPath, err)
	}
	return nil
}

func (a *Adapter) entrypoint() []string {
	if a.script != "" {
		return []string{a.script}
	}
	return []string{"-c", driver}
}

func (a *Adapter) flags(req types.SynthRequest) []string {
	args := []string{
		"--text", req.Text,
		"--voice", req.ReferenceVoice,
		"--output_path", req.OutPath,
		"--config", filepath.Join(a.modelDir, "config.yaml"),
		"--model_dir", a.modelDir,
	}
	if a.fp16 {
		args = append(args, "--fp16")
	}
	if a.cuda {
		args = append(args, "--cuda_kernel")
	}
	if a.ds {
		args = append(args, "--deepspeed")
	}
	if hint := strings.TrimSpace(req.EmotionHint); hint != "" {
		args = append(args,
			"--emo_text", hint,
			"--emo_alpha", strconv.FormatFloat(req.EmotionAlpha, 'f', -1, 64),
		)
	}
	return args
}
