package molt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when fields are absent from the config file or zero in a
// hand-built Config.
const (
	DefaultPollInterval = time.Second
	DefaultDebounce     = 100 * time.Millisecond
)

// Config controls a Reloader. The zero value is usable: platform-default
// reload mode, one-second polling, and ".go" source units.
type Config struct {
	// Mode is the restart strategy: "exec", "spawn_exit" or "spawn_wait".
	// Empty selects the platform default (spawn_wait on Windows, exec
	// elsewhere). Any other value is rejected at construction.
	Mode string `yaml:"mode"`

	// ForceExit makes spawn_exit terminate immediately instead of asking
	// the main goroutine to unwind via interrupt.
	ForceExit bool `yaml:"force_exit"`

	// ExtraPaths are individual files watched for changes regardless of
	// their suffix. A change event matching one of these exactly always
	// triggers a reload.
	ExtraPaths []string `yaml:"extra_paths"`

	// PollInterval is the sleep between watch-set reconciliation passes.
	PollInterval time.Duration `yaml:"poll_interval"`

	// SourceSuffixes are the file suffixes that qualify as source units.
	// Defaults to [".go"].
	SourceSuffixes []string `yaml:"source_suffixes"`

	// ArtifactSuffixes maps compiled-artifact suffixes to their source
	// suffix, so artifact and source count as the same logical unit.
	ArtifactSuffixes map[string]string `yaml:"artifact_suffixes"`

	// UsePTY runs the spawn_wait successor under a pseudo-terminal (no-op
	// on Windows).
	UsePTY bool `yaml:"use_pty"`

	// Debounce coalesces bursts of filesystem events per path.
	Debounce time.Duration `yaml:"debounce"`

	// MaxWatches caps the number of directories registered with the
	// notification backend.
	MaxWatches int `yaml:"max_watches"`

	// LogLevel is one of debug, info, warning, error.
	LogLevel string `yaml:"log_level"`
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if len(c.SourceSuffixes) == 0 {
		c.SourceSuffixes = []string{".go"}
	}
	return c
}

// LoadConfig reads a yaml config file. Unknown keys are rejected so typos
// fail loudly.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
