// Package config loads narrate settings from defaults, an optional YAML file,
// NARRATE_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendIndexTTS = "indextts"
	BackendPiper    = "piper"
)

type Config struct {
	OutDir   string  `mapstructure:"out_dir"`
	GapMs    int     `mapstructure:"gap_ms"`
	EmoAlpha float64 `mapstructure:"emo_alpha"`
	// RefVoice is the reference recording every clip is voiced with.
	RefVoice string        `mapstructure:"ref_voice"`
	TTS      TTSConfig     `mapstructure:"tts"`
	FFmpeg   string        `mapstructure:"ffmpeg"`
	FFprobe  string        `mapstructure:"ffprobe"`
	Logging  LoggingConfig `mapstructure:"logging"`
	Server   ServerConfig  `mapstructure:"server"`
}

type TTSConfig struct {
	Backend  string         `mapstructure:"backend"` // "indextts" or "piper"
	IndexTTS IndexTTSConfig `mapstructure:"indextts"`
	Piper    PiperConfig    `mapstructure:"piper"`
}

type IndexTTSConfig struct {
	Python      string `mapstructure:"python"`
	Script      string `mapstructure:"script"`
	Checkpoints string `mapstructure:"checkpoints"`
	FP16        bool   `mapstructure:"fp16"`
	CUDAKernel  bool   `mapstructure:"cuda_kernel"`
	DeepSpeed   bool   `mapstructure:"deepspeed"`
}

// PiperConfig points at a Wyoming TCP endpoint (host:port).
type PiperConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Voice    string `mapstructure:"voice"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"out":          "out_dir",
	"gap-ms":       "gap_ms",
	"emo-alpha":    "emo_alpha",
	"ref":          "ref_voice",
	"backend":      "tts.backend",
	"checkpoints":  "tts.indextts.checkpoints",
	"piper":        "tts.piper.endpoint",
	"voice":        "tts.piper.voice",
	"ffmpeg":       "ffmpeg",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"addr":         "server.addr",
	"python":       "tts.indextts.python",
	"indextts-cli": "tts.indextts.script",
}

// indexTTSEnv keeps the model toggles readable from the variables IndexTTS
// installs already export.
var indexTTSEnv = map[string]string{
	"tts.indextts.fp16":        "INDEXTTS_USE_FP16",
	"tts.indextts.cuda_kernel": "INDEXTTS_USE_CUDA_KERNEL",
	"tts.indextts.deepspeed":   "INDEXTTS_USE_DEEPSPEED",
}

// Load reads the configuration. If configFile is empty the search order is
// ./narrate.yaml, ./configs/narrate.yaml, $HOME/.config/narrate/narrate.yaml.
// Flags in fs override everything else, but only when set explicitly.
func Load(configFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("out_dir", "radio_out")
	v.SetDefault("gap_ms", 200)
	v.SetDefault("emo_alpha", 0.6)
	v.SetDefault("ref_voice", "")
	v.SetDefault("tts.backend", BackendIndexTTS)
	v.SetDefault("tts.indextts.python", "python3")
	v.SetDefault("tts.indextts.script", "")
	v.SetDefault("tts.indextts.checkpoints", "")
	v.SetDefault("tts.indextts.fp16", true)
	v.SetDefault("tts.indextts.cuda_kernel", true)
	v.SetDefault("tts.indextts.deepspeed", true)
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("tts.piper.voice", "")
	v.SetDefault("ffmpeg", "ffmpeg")
	v.SetDefault("ffprobe", "ffprobe")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("server.addr", ":8080")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("narrate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/narrate")
		}
	}

	// NARRATE_OUT_DIR, NARRATE_TTS_BACKEND, NARRATE_TTS_PIPER_ENDPOINT, ...
	v.SetEnvPrefix("NARRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range indexTTSEnv {
		env := "NARRATE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, env, legacy); err != nil {
			return nil, fmt.Errorf("binding env %s: %w", legacy, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		log.Debug().Msg("no config file found, using defaults and environment variables")
	} else {
		log.Debug().Str("path", v.ConfigFileUsed()).Msg("loaded config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	if c.OutDir == "" {
		return errors.New("out_dir is empty")
	}
	if c.GapMs < 0 {
		return fmt.Errorf("gap_ms must be >= 0, got %d", c.GapMs)
	}
	if c.EmoAlpha < 0 || c.EmoAlpha > 1 {
		return fmt.Errorf("emo_alpha must be within [0, 1], got %g", c.EmoAlpha)
	}
	switch c.TTS.Backend {
	case BackendIndexTTS:
	case BackendPiper:
		if c.TTS.Piper.Endpoint == "" {
			return errors.New("tts.piper.endpoint is required for the piper backend")
		}
	default:
		return fmt.Errorf("unknown tts backend %q", c.TTS.Backend)
	}
	return nil
}

// NewLogger builds a zerolog logger: a console writer for "text",
// JSON lines otherwise.
func NewLogger(cfg LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if strings.ToLower(cfg.Format) == "text" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetupLogging installs NewLogger's result as the global zerolog logger.
func SetupLogging(cfg LoggingConfig) zerolog.Logger {
	l := NewLogger(cfg, os.Stderr)
	log.Logger = l
	return l
}
