package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/mlateration/pkg/errors"
	"github.com/matzehuels/mlateration/pkg/pipeline"
)

// configEnv names a config file when --config is not given.
const configEnv = "MLAT_CONFIG"

// defaultListen is the serve address when neither flag nor config sets one.
const defaultListen = ":8080"

// Config is the optional mlat.toml file. Zero values mean "not set".
//
//	learning_rate = 0.01
//	iterations    = 3333
//	max_rounds    = 1000
//	workers       = 4
//	cache         = "redis://localhost:6379/0"
//	cache_ttl     = "24h"
//	listen        = ":8080"
type Config struct {
	LearningRate float64  `toml:"learning_rate"`
	Iterations   int      `toml:"iterations"`
	MaxRounds    int      `toml:"max_rounds"`
	Workers      int      `toml:"workers"`
	Cache        string   `toml:"cache"`
	CacheTTL     duration `toml:"cache_ttl"`
	Listen       string   `toml:"listen"`
}

// duration decodes TOML strings such as "36h".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if v < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative duration %q", text)
	}
	d.Duration = v
	return nil
}

// PipelineOptions returns the solver settings of the file as pipeline
// options; unset keys stay zero and pick up pipeline defaults.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		LearningRate: c.LearningRate,
		Iterations:   c.Iterations,
		MaxRounds:    c.MaxRounds,
		Workers:      c.Workers,
	}
}

// configCandidates lists the files looked at, in order, when no explicit
// path is given.
func configCandidates() []string {
	var paths []string
	if p := os.Getenv(configEnv); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, "mlat.toml")
	if dir, err := configDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "config.toml"))
	}
	return paths
}

// loadConfig decodes the config file. An explicit path must exist; the
// implicit candidates are optional and a missing file yields an empty
// Config. The returned path is the file that was read, if any.
func loadConfig(explicit string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := decodeConfig(explicit)
		return cfg, explicit, err
	}
	for _, p := range configCandidates() {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		cfg, err := decodeConfig(p)
		return cfg, p, err
	}
	return &Config{}, "", nil
}

func decodeConfig(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "config file %s not found", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "config file %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "config file %s: unknown key %q", path, undecoded[0].String())
	}
	return &cfg, nil
}
