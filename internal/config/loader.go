package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name searched for on the config path
	// (without extension); viper tries yaml/json/toml in turn.
	ConfigFileName = "foci"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "FOCI"
)

// Loader resolves configuration from a file, environment variables, and
// defaults, using the process-wide viper instance so cobra flag bindings
// set up by the caller take effect.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a Loader bound to the global viper instance.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load reads ConfigFileName from the standard search paths (falling back
// silently to defaults/env if no file is found), unmarshals into a
// Config, and validates it.
func (l *Loader) Load() (Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile loads a specific configuration file path instead of searching
// the standard paths.
func (l *Loader) LoadFile(path string) (Config, error) {
	if path == "" {
		return l.Load()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config file does not exist: %s", path)
	}

	l.v.SetConfigFile(path)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteProfile persists cfg as a named YAML profile under dir, supporting
// the "config profile persistence" supplemented feature: a GUI or batch
// driver can save a named parameter set and reload it by name later.
func WriteProfile(dir, name string, cfg Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling profile: %w", err)
	}
	path := filepath.Join(dir, name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing profile %s: %w", path, err)
	}
	return nil
}

// ReadProfile loads a named YAML profile previously written by
// WriteProfile, validating it before returning.
func ReadProfile(dir, name string) (Config, error) {
	path := filepath.Join(dir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading profile %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.AddConfigPath(filepath.Join(home, ".config", "foci"))
	}
	l.v.AddConfigPath("/etc/foci")
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()
	l.v.SetDefault("background_method", d.BackgroundMethod)
	l.v.SetDefault("background_parameter", d.BackgroundParameter)
	l.v.SetDefault("auto_threshold_method", d.AutoThresholdMethod)
	l.v.SetDefault("search_method", d.SearchMethod)
	l.v.SetDefault("search_parameter", d.SearchParameter)
	l.v.SetDefault("max_peaks", d.MaxPeaks)
	l.v.SetDefault("min_size", d.MinSize)
	l.v.SetDefault("peak_method", d.PeakMethod)
	l.v.SetDefault("peak_parameter", d.PeakParameter)
	l.v.SetDefault("sort_index", d.SortIndex)
	l.v.SetDefault("mask_mode", d.MaskMode)
	l.v.SetDefault("blur", d.Blur)
	l.v.SetDefault("centre_method", d.CentreMethod)
	l.v.SetDefault("centre_parameter", d.CentreParameter)
	l.v.SetDefault("fraction_parameter", d.FractionParameter)
	l.v.SetDefault("integer_image", d.IntegerImage)
	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)
	l.v.SetDefault("options.stats_inside", d.Options.StatsInside)
}

// GetViper exposes the underlying viper instance for cobra flag binding.
func (l *Loader) GetViper() *viper.Viper { return l.v }
