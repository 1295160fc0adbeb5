package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/narrate/internal/pipeline"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <input.txt>",
		Short: "Extract, voice and merge a text file in one go",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, a, args[0])
		},
	}
	cmd.Flags().String("segments", "", "Use this edited segment list instead of extracting")
	cmd.Flags().String("run-dir", "", "Reuse an existing run directory")
	cmd.Flags().Bool("subtitles", true, "Write an ASS subtitle track next to the merged audio")
	return cmd
}

func run(cmd *cobra.Command, a *app, input string) error {
	segFile, _ := cmd.Flags().GetString("segments")
	runDir, _ := cmd.Flags().GetString("run-dir")
	subs, _ := cmd.Flags().GetBool("subtitles")

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Hour)
	defer cancel()

	cfg := a.pipelineConfig()
	cfg.InputText = absIn
	cfg.SegmentsFile = segFile
	cfg.RunDir = runDir
	cfg.Subtitles = subs

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.RunDir)
	return nil
}
