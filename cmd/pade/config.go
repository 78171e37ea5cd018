package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when -config is not
// given.
const DefaultConfigFile = "pade.yaml"

// Config is the optional pade.yaml file. Command-line flags override it.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// ImportPaths are directories searched for imported schemas.
	ImportPaths []string `yaml:"import_paths"`

	Generate GenerateConfig `yaml:"generate"`
}

// GenerateConfig holds defaults for the generate command.
type GenerateConfig struct {
	Out     string `yaml:"out"`
	Package string `yaml:"package"`
	Prefix  string `yaml:"prefix"`
	Suffix  string `yaml:"suffix"`

	// GoPackage maps a schema package to the Go import path its
	// generated code lives at.
	GoPackage map[string]string `yaml:"go_package"`

	// MarshalMethods is a pointer so that an absent key keeps the default.
	MarshalMethods *bool `yaml:"marshal_methods"`
}

// loadConfig reads path, or DefaultConfigFile when path is empty. A missing
// default file yields the zero Config.
func loadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// newLogger builds the CLI logger. Verbose runs use zap's development
// config at debug level; otherwise the production config at the configured
// level, warn by default.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopmentConfig().Build()
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}
