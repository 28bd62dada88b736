// Package config loads and validates the run configuration.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/kristyvitulova/Publication/dsp/filter/highpass"
	"github.com/kristyvitulova/Publication/dsp/whiten"
	"github.com/kristyvitulova/Publication/dsp/window"
	"github.com/kristyvitulova/Publication/internal/batch"
)

// EnvPrefix prefixes environment overrides, e.g. GWPREP_BATCH_SIZE or
// GWPREP_OUTPUT_S3_BUCKET.
const EnvPrefix = "GWPREP"

// Config is the explicit run configuration handed to the driver.
type Config struct {
	RootDir          string  `mapstructure:"root_dir" yaml:"root_dir"`
	Channel          string  `mapstructure:"channel" yaml:"channel"`
	SampleRate       float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	SegmentDuration  float64 `mapstructure:"segment_duration" yaml:"segment_duration"`
	BatchSize        int     `mapstructure:"batch_size" yaml:"batch_size"`
	OutputDir        string  `mapstructure:"output_dir" yaml:"output_dir"`
	HighpassCutoffHz float64 `mapstructure:"highpass_cutoff_hz" yaml:"highpass_cutoff_hz"`
	FilterOrder      int     `mapstructure:"filter_order" yaml:"filter_order"`
	Extension        string  `mapstructure:"extension" yaml:"extension"`

	PSD    PSDConfig    `mapstructure:"psd" yaml:"psd"`
	Whiten WhitenConfig `mapstructure:"whiten" yaml:"whiten"`
	Output OutputConfig `mapstructure:"output" yaml:"output"`

	LedgerDir string `mapstructure:"ledger_dir" yaml:"ledger_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
}

// PSDConfig tunes the Welch estimate.
type PSDConfig struct {
	FFTLength int     `mapstructure:"fft_length" yaml:"fft_length"`
	Overlap   float64 `mapstructure:"overlap" yaml:"overlap"`
	Window    string  `mapstructure:"window" yaml:"window"`
}

// WhitenConfig tunes whitening.
type WhitenConfig struct {
	Epsilon float64 `mapstructure:"epsilon" yaml:"epsilon"`
}

// OutputConfig selects the artifact encoding and destination.
type OutputConfig struct {
	Format string   `mapstructure:"format" yaml:"format"`
	Prefix string   `mapstructure:"prefix" yaml:"prefix"`
	S3     S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config routes artifacts to a bucket instead of OutputDir when Bucket
// is set.
type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	Region    string `mapstructure:"region" yaml:"region"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	PathStyle bool   `mapstructure:"path_style" yaml:"path_style"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sample_rate", 4096.0)
	v.SetDefault("segment_duration", 2.0)
	v.SetDefault("batch_size", 1000)
	v.SetDefault("output_dir", "processed_data")
	v.SetDefault("highpass_cutoff_hz", 20.0)
	v.SetDefault("filter_order", 6)
	v.SetDefault("extension", ".msgpack")
	v.SetDefault("psd.fft_length", 4096)
	v.SetDefault("psd.overlap", 0.5)
	v.SetDefault("psd.window", "hann")
	v.SetDefault("whiten.epsilon", whiten.DefaultEpsilon)
	v.SetDefault("output.format", string(batch.FormatNPY))
	v.SetDefault("output.prefix", batch.DefaultPrefix)
	v.SetDefault("output.s3.region", "us-east-1")
	v.SetDefault("log_level", "info")
}

// NewViper returns a viper instance with defaults and GWPREP_ environment
// overrides registered.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile (if not empty) into v and returns the validated
// configuration.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	cfg, err := Read(v, configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for commands that only need part of the
// configuration.
func Read(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration made of defaults only. It does not
// validate, since root_dir and channel have no defaults.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

// SegmentLength returns the number of samples per segment.
func (c *Config) SegmentLength() int {
	return int(c.SampleRate*c.SegmentDuration + 0.5)
}

// UsesS3 reports whether artifacts go to S3.
func (c *Config) UsesS3() bool { return c.Output.S3.Bucket != "" }

// Validate rejects configurations that cannot produce a run. All problems
// are reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.RootDir == "" {
		add("root_dir is required")
	}
	if c.Channel == "" {
		add("channel is required")
	}
	if !(c.SampleRate > 0) {
		add("sample_rate must be > 0: %v", c.SampleRate)
	}
	if !(c.SegmentDuration > 0) {
		add("segment_duration must be > 0: %v", c.SegmentDuration)
	} else if c.SampleRate > 0 && c.SegmentLength() < 1 {
		add("segment_duration %v s holds no samples at %v Hz", c.SegmentDuration, c.SampleRate)
	}
	if c.BatchSize <= 0 {
		add("batch_size must be > 0: %d", c.BatchSize)
	}
	if c.OutputDir == "" && !c.UsesS3() {
		add("output_dir is required when output.s3.bucket is not set")
	}
	if !(c.HighpassCutoffHz > 0) {
		add("%w: highpass_cutoff_hz must be > 0: %v", highpass.ErrInvalidFilterParameters, c.HighpassCutoffHz)
	} else if c.SampleRate > 0 && c.HighpassCutoffHz >= c.SampleRate/2 {
		add("%w: highpass_cutoff_hz %v must be below Nyquist (%v Hz)",
			highpass.ErrInvalidFilterParameters, c.HighpassCutoffHz, c.SampleRate/2)
	}
	if c.FilterOrder <= 0 {
		add("%w: filter_order must be > 0: %d", highpass.ErrInvalidFilterParameters, c.FilterOrder)
	}
	if c.Extension == "" {
		add("extension is required")
	}
	if c.PSD.FFTLength <= 0 {
		add("psd.fft_length must be > 0: %d", c.PSD.FFTLength)
	}
	if c.PSD.Overlap < 0 || c.PSD.Overlap >= 1 {
		add("psd.overlap must be in [0,1): %v", c.PSD.Overlap)
	}
	if _, err := window.Parse(c.PSD.Window); err != nil {
		add("psd.window: %v", err)
	}
	if !(c.Whiten.Epsilon > 0) {
		add("whiten.epsilon must be > 0: %v", c.Whiten.Epsilon)
	}
	if _, err := batch.ParseFormat(c.Output.Format); err != nil {
		add("output.format: %v", err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
