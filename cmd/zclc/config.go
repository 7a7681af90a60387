package main

import (
	"fmt"
	"go/token"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration file.
type Config struct {
	SpecDir         string `yaml:"spec_dir"`
	IncludeStandard *bool  `yaml:"include_standard"` // default true
	Output          struct {
		GoDir      string `yaml:"go_dir"`
		GoPackage  string `yaml:"go_package"`
		Table      string `yaml:"table"`
		JSON       string `yaml:"json"`
		Store      string `yaml:"store"`
		KeepBuilds int    `yaml:"keep_builds"`
	} `yaml:"output"`
	Lint struct {
		ScriptsDir string `yaml:"scripts_dir"`
		Timeout    string `yaml:"timeout"`
	} `yaml:"lint"`
	Web struct {
		Listen         string   `yaml:"listen"`
		APIKey         string   `yaml:"api_key"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"web"`
	Watch struct {
		Debounce string `yaml:"debounce"`
	} `yaml:"watch"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func (c *Config) includeStandard() bool {
	return c.IncludeStandard == nil || *c.IncludeStandard
}

func (c *Config) validate() error {
	if c.SpecDir == "" && !c.includeStandard() {
		return fmt.Errorf("spec_dir is required when include_standard is false")
	}
	if !token.IsIdentifier(c.Output.GoPackage) {
		return fmt.Errorf("output.go_package %q is not a valid package name", c.Output.GoPackage)
	}
	if c.Output.KeepBuilds < 0 {
		return fmt.Errorf("output.keep_builds must not be negative")
	}
	if _, err := parseDuration(c.Lint.Timeout); err != nil {
		return fmt.Errorf("lint.timeout: %w", err)
	}
	if _, err := parseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("watch.debounce: %w", err)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Output.GoPackage == "" {
		cfg.Output.GoPackage = "zclgen"
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8080"
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = "250ms"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "zclc"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return &cfg, nil
}

// parseDuration parses an optional duration; empty means zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
