// Package config loads the YAML configuration of lsmctl.
package config

import (
	"os"
	"time"

	lsm "github.com/AmrMurad1/go-lsm"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	// File is the log file path. Empty logs to stderr.
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
}

type StoreConfig struct {
	WriteBufferSize    int           `yaml:"write_buffer_size"`
	L0MaxTables        int           `yaml:"l0_max_tables"`
	GrowthFactor       float64       `yaml:"growth_factor"`
	SampleStride       int           `yaml:"sample_stride"`
	FalsePositiveRate  float64       `yaml:"false_positive_rate"`
	FlushInterval      time.Duration `yaml:"flush_interval"`
	CompactionInterval time.Duration `yaml:"compaction_interval"`
	ElideTombstones    bool          `yaml:"elide_tombstones"`
}

type Config struct {
	DataDir string      `yaml:"data_dir"`
	Store   StoreConfig `yaml:"store"`
	Log     LogConfig   `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	o := lsm.DefaultOptions()
	return &Config{
		DataDir: "./data",
		Store: StoreConfig{
			WriteBufferSize:    o.WriteBufferSize,
			L0MaxTables:        o.L0MaxTables,
			GrowthFactor:       o.GrowthFactor,
			SampleStride:       o.SampleStride,
			FalsePositiveRate:  o.FalsePositiveRate,
			FlushInterval:      o.FlushInterval,
			CompactionInterval: o.CompactionInterval,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// LoadConfig reads path over the defaults. Fields missing from the file keep
// their default value.
func LoadConfig(path string, logger *zap.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config: %s", path)
	}
	logger.Info("loaded config",
		zap.String("config_path", path),
		zap.Any("config", cfg),
	)
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is empty")
	}
	if c.Log.MaxSize < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAge < 0 {
		return errors.Newf("negative log rotation setting in %+v", c.Log)
	}
	o := c.Options()
	return o.Validate()
}

// Options converts the store section into engine options.
func (c *Config) Options() lsm.Options {
	o := lsm.DefaultOptions()
	o.WriteBufferSize = c.Store.WriteBufferSize
	o.L0MaxTables = c.Store.L0MaxTables
	o.GrowthFactor = c.Store.GrowthFactor
	o.SampleStride = c.Store.SampleStride
	o.FalsePositiveRate = c.Store.FalsePositiveRate
	o.FlushInterval = c.Store.FlushInterval
	o.CompactionInterval = c.Store.CompactionInterval
	o.ElideTombstones = c.Store.ElideTombstones
	return o
}
