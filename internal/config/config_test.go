package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered at their defaults.
func newFlagBinder(defaults Config) *fakeBinder {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	return &fakeBinder{fs: fs}
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Paths.VocabDir != "tokenizer_data" {
		t.Errorf("VocabDir = %q; want %q", cfg.Paths.VocabDir, "tokenizer_data")
	}

	if cfg.Training.VocabSize != 8000 {
		t.Errorf("Training.VocabSize = %d; want 8000", cfg.Training.VocabSize)
	}

	if cfg.Training.MaxSymbols != 0 {
		t.Errorf("Training.MaxSymbols = %d; want 0", cfg.Training.MaxSymbols)
	}

	if !cfg.Tokenizer.SubstituteUnknown {
		t.Error("Tokenizer.SubstituteUnknown = false; want true")
	}

	if cfg.Tokenizer.Progress {
		t.Error("Tokenizer.Progress = true; want false")
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":8080")
	}

	if cfg.Server.Workers != 4 {
		t.Errorf("Server.Workers = %d; want 4", cfg.Server.Workers)
	}

	if cfg.Server.MaxTextBytes != 65536 {
		t.Errorf("Server.MaxTextBytes = %d; want 65536", cfg.Server.MaxTextBytes)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "info")
	}
}

// --- RegisterFlags ---

func TestRegisterFlags(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	checks := []struct {
		flag string
		want string
	}{
		{"paths-vocab-dir", "tokenizer_data"},
		{"training-vocab-size", "8000"},
		{"training-max-symbols", "0"},
		{"tokenizer-substitute-unknown", "true"},
		{"server-listen-addr", ":8080"},
		{"workers", "4"},
		{"log-level", "info"},
	}

	for _, c := range checks {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}

		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}
}

func TestFlagKeys_AllRegistered(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())

	for key, name := range flagKeys {
		if fs.Lookup(name) == nil {
			t.Errorf("config key %q maps to unregistered flag %q", key, name)
		}
	}
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)

	cfg, err := Load(LoadOptions{
		Cmd:      binder,
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg != defaults {
		t.Errorf("Load() = %+v; want defaults %+v", cfg, defaults)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	t.Chdir(t.TempDir())

	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	err := fs.Parse([]string{
		"--training-vocab-size=120",
		"--training-max-symbols=40",
		"--tokenizer-substitute-unknown=false",
		"--workers=8",
		"--log-level=debug",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:      &fakeBinder{fs: fs},
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Training.VocabSize != 120 {
		t.Errorf("Training.VocabSize = %d; want 120", cfg.Training.VocabSize)
	}

	if cfg.Training.MaxSymbols != 40 {
		t.Errorf("Training.MaxSymbols = %d; want 40", cfg.Training.MaxSymbols)
	}

	if cfg.Tokenizer.SubstituteUnknown {
		t.Error("Tokenizer.SubstituteUnknown = true; want false")
	}

	if cfg.Server.Workers != 8 {
		t.Errorf("Server.Workers = %d; want 8", cfg.Server.Workers)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WORDPIECE_LOG_LEVEL", "warn")
	t.Setenv("WORDPIECE_SERVER_LISTEN_ADDR", ":9999")
	t.Setenv("WORDPIECE_VOCAB_DIR", "/srv/vocab")

	cfg, err := Load(LoadOptions{
		Defaults: DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "warn")
	}

	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":9999")
	}

	if cfg.Paths.VocabDir != "/srv/vocab" {
		t.Errorf("Paths.VocabDir = %q; want %q", cfg.Paths.VocabDir, "/srv/vocab")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "wordpiece.yaml")

	content := `
log_level: error
paths:
  vocab_dir: /data/vocab
training:
  vocab_size: 300
tokenizer:
  substitute_unknown: false
`

	err := os.WriteFile(cfgFile, []byte(content), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:        newFlagBinder(defaults),
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "error")
	}

	if cfg.Paths.VocabDir != "/data/vocab" {
		t.Errorf("Paths.VocabDir = %q; want %q", cfg.Paths.VocabDir, "/data/vocab")
	}

	if cfg.Training.VocabSize != 300 {
		t.Errorf("Training.VocabSize = %d; want 300", cfg.Training.VocabSize)
	}

	if cfg.Tokenizer.SubstituteUnknown {
		t.Error("Tokenizer.SubstituteUnknown = true; want false")
	}
}

func TestLoad_FlagBeatsConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfgFile := filepath.Join(t.TempDir(), "wordpiece.yaml")
	if err := os.WriteFile(cfgFile, []byte("training:\n  vocab_size: 300\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)
	if err := binder.fs.Parse([]string{"--training-vocab-size=500"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(LoadOptions{Cmd: binder, ConfigFile: cfgFile, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Training.VocabSize != 500 {
		t.Errorf("Training.VocabSize = %d; want 500", cfg.Training.VocabSize)
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "bad.yaml")

	err := os.WriteFile(cfgFile, []byte(":\t:bad yaml:::"), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: "/nonexistent/path/wordpiece.yaml",
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}

// --- Validate ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErrs []string
	}{
		{"defaults are valid", func(*Config) {}, nil},
		{"empty vocab dir", func(c *Config) { c.Paths.VocabDir = "  " }, []string{"paths.vocab_dir"}},
		{"zero vocab size", func(c *Config) { c.Training.VocabSize = 0 }, []string{"training.vocab_size"}},
		{"negative max symbols", func(c *Config) { c.Training.MaxSymbols = -1 }, []string{"training.max_symbols"}},
		{
			"reports every problem",
			func(c *Config) {
				c.Training.VocabSize = -3
				c.Tokenizer.Workers = -1
				c.Server.MaxTextBytes = -1
			},
			[]string{"training.vocab_size", "tokenizer.workers", "server.max_text_bytes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.wantErrs) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v; want nil", err)
				}
				return
			}

			if err == nil {
				t.Fatal("Validate() = nil; want error")
			}

			for _, want := range tt.wantErrs {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() error %q does not mention %q", err, want)
				}
			}
		})
	}
}
