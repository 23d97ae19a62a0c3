package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Training  TrainingConfig  `mapstructure:"training"`
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Server    ServerConfig    `mapstructure:"server"`
	LogLevel  string          `mapstructure:"log_level"`
}

type PathsConfig struct {
	// VocabDir holds valid_symbols.json, idx2token.json and token2idx.json.
	VocabDir string `mapstructure:"vocab_dir"`
}

type TrainingConfig struct {
	VocabSize int `mapstructure:"vocab_size"`
	// MaxSymbols caps the base alphabet to the most frequent characters. 0 keeps all.
	MaxSymbols int `mapstructure:"max_symbols"`
}

type TokenizerConfig struct {
	SubstituteUnknown bool `mapstructure:"substitute_unknown"`
	Progress          bool `mapstructure:"progress"`
	Workers           int  `mapstructure:"workers"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	Workers         int    `mapstructure:"workers"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			VocabDir: "tokenizer_data",
		},
		Training: TrainingConfig{
			VocabSize:  8000,
			MaxSymbols: 0,
		},
		Tokenizer: TokenizerConfig{
			SubstituteUnknown: true,
			Progress:          false,
			Workers:           4,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         4,
			MaxTextBytes:    65536,
			RequestTimeout:  30,
			ShutdownTimeout: 10,
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-vocab-dir", defaults.Paths.VocabDir, "Directory holding the vocabulary artifacts")
	fs.Int("training-vocab-size", defaults.Training.VocabSize, "Target vocabulary size including reserved tokens")
	fs.Int("training-max-symbols", defaults.Training.MaxSymbols, "Keep only the N most frequent characters as base symbols (0 = all)")
	fs.Bool("tokenizer-substitute-unknown", defaults.Tokenizer.SubstituteUnknown, "Replace characters outside the base alphabet with <unk>")
	fs.Bool("tokenizer-progress", defaults.Tokenizer.Progress, "Report per-word encoding progress on stderr")
	fs.Int("tokenizer-workers", defaults.Tokenizer.Workers, "Concurrent encoders for line-by-line batch encoding")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent encode/decode requests")
	fs.Int("server-max-text-bytes", defaults.Server.MaxTextBytes, "Maximum request text size in bytes")
	fs.Int("server-request-timeout", defaults.Server.RequestTimeout, "Per-request deadline in seconds")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain period in seconds")
	fs.String("log-level", defaults.LogLevel, "Log level: debug|info|warn|error")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix("WORDPIECE")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("paths.vocab_dir", "WORDPIECE_VOCAB_DIR", "WORDPIECE_PATHS_VOCAB_DIR"); err != nil {
		return Config{}, fmt.Errorf("bind vocab dir env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("wordpiece")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports every out-of-range setting at once.
func (c Config) Validate() error {
	var errs error
	if strings.TrimSpace(c.Paths.VocabDir) == "" {
		errs = multierr.Append(errs, errors.New("paths.vocab_dir must not be empty"))
	}
	if c.Training.VocabSize <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("training.vocab_size must be positive, got %d", c.Training.VocabSize))
	}
	if c.Training.MaxSymbols < 0 {
		errs = multierr.Append(errs, fmt.Errorf("training.max_symbols must not be negative, got %d", c.Training.MaxSymbols))
	}
	if c.Tokenizer.Workers < 0 {
		errs = multierr.Append(errs, fmt.Errorf("tokenizer.workers must not be negative, got %d", c.Tokenizer.Workers))
	}
	if c.Server.MaxTextBytes < 0 {
		errs = multierr.Append(errs, fmt.Errorf("server.max_text_bytes must not be negative, got %d", c.Server.MaxTextBytes))
	}
	if errs != nil {
		return fmt.Errorf("invalid config: %w", errs)
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.vocab_dir", c.Paths.VocabDir)
	v.SetDefault("training.vocab_size", c.Training.VocabSize)
	v.SetDefault("training.max_symbols", c.Training.MaxSymbols)
	v.SetDefault("tokenizer.substitute_unknown", c.Tokenizer.SubstituteUnknown)
	v.SetDefault("tokenizer.progress", c.Tokenizer.Progress)
	v.SetDefault("tokenizer.workers", c.Tokenizer.Workers)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("log_level", c.LogLevel)
}

// flagKeys maps config keys to the flag names registered by RegisterFlags.
var flagKeys = map[string]string{
	"paths.vocab_dir":              "paths-vocab-dir",
	"training.vocab_size":          "training-vocab-size",
	"training.max_symbols":         "training-max-symbols",
	"tokenizer.substitute_unknown": "tokenizer-substitute-unknown",
	"tokenizer.progress":           "tokenizer-progress",
	"tokenizer.workers":            "tokenizer-workers",
	"server.listen_addr":           "server-listen-addr",
	"server.workers":               "workers",
	"server.max_text_bytes":        "server-max-text-bytes",
	"server.request_timeout":       "server-request-timeout",
	"server.shutdown_timeout":      "server-shutdown-timeout",
	"log_level":                    "log-level",
}

// bindFlags binds each config key to its flag. Flags missing from fs are skipped,
// so subcommands may register only a subset.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
