// Package config contains the settings of the futurepool command.
//
// Settings come from three sources, lowest priority first: the env-default
// struct tags, an optional YAML file and FUTUREPOOL_* environment variables.
// Command-line flags are applied on top by the command itself.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Pool    Pool    `yaml:"pool"`
	Logging Logging `yaml:"logging"`
	Fetch   Fetch   `yaml:"fetch"`
	Factor  Factor  `yaml:"factor"`
}

type Pool struct {
	Workers       int `yaml:"workers" env:"FUTUREPOOL_WORKERS" env-default:"5" env-description:"number of concurrent workers, 0 for one per CPU"`
	QueueCapacity int `yaml:"queue_capacity" env:"FUTUREPOOL_QUEUE_CAPACITY" env-default:"0" env-description:"maximum number of queued tasks, 0 for unbounded"`
	Tasks         int `yaml:"tasks" env:"FUTUREPOOL_TASKS" env-default:"5" env-description:"number of tasks submitted by the counter demo"`
}

type Logging struct {
	Level  string `yaml:"level" env:"FUTUREPOOL_LOG_LEVEL" env-default:"info" env-description:"logging level such as debug, info, error"`
	Format string `yaml:"format" env:"FUTUREPOOL_LOG_FORMAT" env-default:"console" env-description:"log output format, console or json"`
}

type Fetch struct {
	Timeout time.Duration `yaml:"timeout" env:"FUTUREPOOL_HTTP_TIMEOUT" env-default:"10s" env-description:"timeout of a single HTTP request"`
}

type Factor struct {
	Products int `yaml:"products" env:"FUTUREPOOL_FACTOR_PRODUCTS" env-default:"5" env-description:"how many products of primes to factorize"`
	Primes   int `yaml:"primes" env:"FUTUREPOOL_FACTOR_PRIMES" env-default:"2" env-description:"how many primes are multiplied into each product"`
}

var logFormats = []string{"console", "json"}

// NewSettings loads the settings from configFile (skipped when empty) and the
// environment, then validates them.
func NewSettings(configFile string) (*Settings, error) {
	var cfg Settings

	if configFile == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	} else {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("no config file %s: %w", configFile, err)
		}
		if err := cleanenv.ReadConfig(configFile, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from %s: %w", configFile, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "failed to validate settings")
	}
	return &cfg, nil
}

func (s *Settings) Validate() error {
	if err := s.Pool.Validate(); err != nil {
		return errors.Wrap(err, "pool validation")
	}
	if err := s.Logging.Validate(); err != nil {
		return errors.Wrap(err, "logging validation")
	}
	if err := s.Fetch.Validate(); err != nil {
		return errors.Wrap(err, "fetch validation")
	}
	if err := s.Factor.Validate(); err != nil {
		return errors.Wrap(err, "factor validation")
	}
	return nil
}

func (p *Pool) Validate() error {
	if p.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", p.Workers)
	}
	if p.QueueCapacity < 0 {
		return errors.Errorf("queue capacity must not be negative, got %d", p.QueueCapacity)
	}
	if p.Tasks < 0 {
		return errors.Errorf("tasks must not be negative, got %d", p.Tasks)
	}
	return nil
}

func (l *Logging) Validate() error {
	if _, err := zerolog.ParseLevel(l.Level); err != nil {
		return errors.Wrapf(err, "invalid log level %q", l.Level)
	}
	if !slices.Contains(logFormats, l.Format) {
		return errors.Errorf("invalid log format %q, expected one of %v", l.Format, logFormats)
	}
	return nil
}

func (f *Fetch) Validate() error {
	if f.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

func (f *Factor) Validate() error {
	if f.Products < 0 {
		return errors.Errorf("products must not be negative, got %d", f.Products)
	}
	// Larger products overflow uint64.
	if f.Primes < 1 || f.Primes > 2 {
		return errors.Errorf("primes must be 1 or 2, got %d", f.Primes)
	}
	return nil
}

func (s *Settings) ToYAML() ([]byte, error) {
	raw, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode into yaml: %w", err)
	}
	return raw, nil
}
