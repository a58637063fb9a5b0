package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures everything a sochub invocation needs to locate its inputs and state.
type Config struct {
	Sources SourcesConfig `yaml:"sources"`
	Rules   RulesConfig   `yaml:"rules"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Export  ExportConfig  `yaml:"export"`
}

// SourcesConfig points at the four producer reports.
type SourcesConfig struct {
	Detection string `yaml:"detection"`
	Assets    string `yaml:"assets"`
	Intel     string `yaml:"intel"`
	Forensic  string `yaml:"forensic"`
}

// RulesConfig locates the category to technique rule table.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig selects the lifecycle store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the node-exporter textfile written after each run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// ExportConfig controls HTML and PDF report exports.
type ExportConfig struct {
	Title string `yaml:"title"`
}

// Load initialises Config from defaults, an optional YAML file, an optional
// .env file and SOCHUB_* environment overrides, in that order. Real environment
// variables win over values from the .env file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SOCHUB_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	dotenv, err := readEnvFile()
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg, func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	})
	return &cfg, nil
}

// readEnvFile reads SOCHUB_ENV_FILE, or ./.env when unset. A missing default
// file is not an error; a missing explicit one is.
func readEnvFile() (map[string]string, error) {
	envPath := os.Getenv("SOCHUB_ENV_FILE")
	explicit := envPath != ""
	if !explicit {
		envPath = ".env"
	}
	values, err := godotenv.Read(envPath)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", envPath, err)
	}
	return values, nil
}

func defaultConfig() Config {
	return Config{
		Sources: SourcesConfig{
			Detection: "reports/detection-report.json",
			Assets:    "reports/assets-report.json",
			Intel:     "reports/intel-report.json",
			Forensic:  "reports/forensic-report.json",
		},
		Rules:   RulesConfig{Path: "configs/rules/forensic_rules.yaml"},
		Store:   StoreConfig{Backend: "file", Path: "state/incidents.json"},
		Logging: LoggingConfig{Level: "info", Format: "auto"},
		Export:  ExportConfig{Title: "SOC Incident Report"},
	}
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if v := getenv("SOCHUB_DETECTION_REPORT"); v != "" {
		cfg.Sources.Detection = v
	}
	if v := getenv("SOCHUB_ASSETS_REPORT"); v != "" {
		cfg.Sources.Assets = v
	}
	if v := getenv("SOCHUB_INTEL_REPORT"); v != "" {
		cfg.Sources.Intel = v
	}
	if v := getenv("SOCHUB_FORENSIC_REPORT"); v != "" {
		cfg.Sources.Forensic = v
	}
	if v := getenv("SOCHUB_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := getenv("SOCHUB_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := getenv("SOCHUB_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := getenv("SOCHUB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getenv("SOCHUB_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := getenv("SOCHUB_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
	if v := getenv("SOCHUB_EXPORT_TITLE"); v != "" {
		cfg.Export.Title = v
	}
}
