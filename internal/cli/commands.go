package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forPelevin/narrate/internal/domain/segments"
	"github.com/forPelevin/narrate/internal/pipeline"
	"github.com/forPelevin/narrate/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/narrate/internal/ports/adapters/indextts"
	"github.com/forPelevin/narrate/internal/ports/adapters/piper"
	"github.com/forPelevin/narrate/internal/types"
	"github.com/forPelevin/narrate/internal/usecase"
)

func newExtractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <input.txt>",
		Short: "Print the segment list for a text file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			segs := usecase.New(usecase.Deps{}).Extract(string(raw))
			a.log.Info().Int("segments", len(segs)).Str("input", args[0]).Msg("extracted")

			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				return segments.Encode(cmd.OutOrStdout(), segs)
			}
			var buf bytes.Buffer
			if err := segments.Encode(&buf, segs); err != nil {
				return err
			}
			return os.WriteFile(out, buf.Bytes(), 0o644)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write JSON to this file instead of stdout")
	return cmd
}

func newSynthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth <segments.json>",
		Short: "Voice an edited segment list into the output directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			segs, err := readSegments(args[0])
			if err != nil {
				return err
			}
			uc, err := a.usecase()
			if err != nil {
				return err
			}

			residual, err := usecase.ResidualClips(a.cfg.OutDir)
			if err != nil {
				return err
			}
			seq, _ := cmd.Flags().GetInt("seq")
			if len(residual) > 0 && seq == 0 {
				a.log.Warn().Int("clips", len(residual)).Str("dir", a.cfg.OutDir).
					Msg("output dir already holds clips; clear it before merging or they will be mixed in")
			}

			in := usecase.SynthInput{
				Segments: segs,
				RefVoice: a.cfg.RefVoice,
				EmoAlpha: a.cfg.EmoAlpha,
				OutDir:   a.cfg.OutDir,
				Logf:     a.logf,
			}
			if seq > 0 {
				r, err := uc.SynthesizeOne(cmd.Context(), in, seq)
				if err != nil {
					return err
				}
				return printResults(cmd.OutOrStdout(), []types.SynthResult{r})
			}
			res, err := uc.SynthesizeAll(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Int("seq", 0, "Only voice the segment with this sequence number")
	return cmd
}

func newMergeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge [clips-dir]",
		Short: "Concatenate the clips of a directory into one WAV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.OutDir
			if len(args) == 1 {
				dir = args[0]
			}
			out, _ := cmd.Flags().GetString("output")

			uc := usecase.New(usecase.Deps{Transcoder: ffmpeg.New(a.cfg.FFmpeg, a.cfg.FFprobe)})
			res, err := uc.Merge(cmd.Context(), usecase.MergeInput{
				Dir:     dir,
				OutPath: out,
				GapMs:   a.cfg.GapMs,
				Logf:    a.logf,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Path)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Merged file path (default <clips-dir>/merged.wav)")
	return cmd
}

func (a *app) usecase() (usecase.Usecase, error) {
	synth, err := pipeline.NewSynthesizer(a.pipelineConfig())
	if err != nil {
		return usecase.Usecase{}, err
	}
	return usecase.New(usecase.Deps{
		Synth:      synth,
		Transcoder: ffmpeg.New(a.cfg.FFmpeg, a.cfg.FFprobe),
	}), nil
}

// serverUsecase is like usecase but keeps going without a voice model, so
// extraction and merging stay available while synthesis reports the error.
func (a *app) serverUsecase() usecase.Usecase {
	uc, err := a.usecase()
	if err == nil {
		return uc
	}
	a.log.Warn().Err(err).Str("backend", a.cfg.TTS.Backend).Msg("synthesis disabled")
	return usecase.New(usecase.Deps{Transcoder: ffmpeg.New(a.cfg.FFmpeg, a.cfg.FFprobe)})
}

func (a *app) pipelineConfig() pipeline.Config {
	return pipeline.Config{
		OutDir:   a.cfg.OutDir,
		RefVoice: a.cfg.RefVoice,
		EmoAlpha: a.cfg.EmoAlpha,
		GapMs:    a.cfg.GapMs,
		Logf:     a.logf,
		Backend:  a.cfg.TTS.Backend,
		IndexTTS: indextts.Config{
			Python:      a.cfg.TTS.IndexTTS.Python,
			Script:      a.cfg.TTS.IndexTTS.Script,
			Checkpoints: a.cfg.TTS.IndexTTS.Checkpoints,
			FP16:        a.cfg.TTS.IndexTTS.FP16,
			CUDAKernel:  a.cfg.TTS.IndexTTS.CUDAKernel,
			DeepSpeed:   a.cfg.TTS.IndexTTS.DeepSpeed,
		},
		Piper: piper.Config{
			Endpoint: a.cfg.TTS.Piper.Endpoint,
			Voice:    a.cfg.TTS.Piper.Voice,
		},
		FFmpegPath:  a.cfg.FFmpeg,
		FFprobePath: a.cfg.FFprobe,
	}
}

func readSegments(path string) ([]types.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	segs, err := segments.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return segs, nil
}

func printResults(w io.Writer, res []types.SynthResult) error {
	for _, r := range res {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", r.Sequence, r.Kind, r.Path); err != nil {
			return err
		}
	}
	return nil
}
