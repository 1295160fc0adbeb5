package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/forPelevin/narrate/internal/config"
)

// app carries what PersistentPreRunE resolved for the subcommands.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

func (a *app) logf(format string, args ...any) {
	a.log.Info().Msgf(format, args...)
}

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "narrate",
		Short:        "Split prose into dialogue and narration, voice it, and merge the clips",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			a.cfg = cfg
			a.log = config.SetupLogging(cfg.Logging)
			return nil
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (default ./narrate.yaml)")
	pf.String("out", "radio_out", "Output directory")
	pf.Int("gap-ms", 200, "Silence between clips in milliseconds")
	pf.Float64("emo-alpha", 0.6, "Emotion intensity in [0, 1]")
	pf.String("ref", "", "Reference voice recording")
	pf.String("backend", "indextts", "Voice model backend: indextts or piper")
	pf.String("checkpoints", "", "IndexTTS checkpoints directory (default $INDEXTTS_CHECKPOINTS)")
	pf.String("piper", "localhost:10200", "Piper Wyoming endpoint")
	pf.String("voice", "", "Piper voice name")
	pf.String("log-level", "info", "Log level")

	// Hidden tuning flags
	pf.String("python", "python3", "Python interpreter for IndexTTS")
	pf.String("indextts-cli", "", "IndexTTS inference script")
	pf.String("ffmpeg", "ffmpeg", "ffmpeg binary")
	pf.String("log-format", "text", "Log format: text or json")
	for _, name := range []string{"python", "indextts-cli", "ffmpeg", "log-format"} {
		_ = pf.MarkHidden(name)
	}

	root.AddCommand(
		newExtractCmd(a),
		newSynthCmd(a),
		newMergeCmd(a),
		newRunCmd(a),
		newServeCmd(a),
	)
	return root
}
