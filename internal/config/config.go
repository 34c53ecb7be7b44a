// Package config loads csv-synth settings from a YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/vitebski/csv-synth/internal/utils"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is named
const DefaultPath = "csv-synth.yaml"

// Config is the full set of settings. Zero values mean "not set".
type Config struct {
	LogLevel string         `yaml:"log_level"`
	CSV      CSVConfig      `yaml:"csv"`
	Generate GenerateConfig `yaml:"generate"`
	Database DatabaseConfig `yaml:"database"`
	HDFS     HDFSConfig     `yaml:"hdfs"`
}

// CSVConfig controls reading and writing delimited files
type CSVConfig struct {
	Delimiter  string   `yaml:"delimiter"`
	Encoding   string   `yaml:"encoding"`
	NullValues []string `yaml:"null_values"`
}

// GenerateConfig controls synthetic data generation
type GenerateConfig struct {
	Rows          int    `yaml:"rows"`
	Seed          int64  `yaml:"seed"`
	RoundIntegers bool   `yaml:"round_integers"`
	FakeText      bool   `yaml:"fake_text"`
	Placeholder   string `yaml:"placeholder"`
}

// DatabaseConfig names the database used by --table
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// HDFSConfig is used for hdfs:// locations
type HDFSConfig struct {
	Namenode string `yaml:"namenode"`
	User     string `yaml:"user"`
}

// Default returns the settings used when nothing is configured
func Default() *Config {
	return &Config{
		LogLevel: "info",
		CSV:      CSVConfig{Delimiter: ","},
		Generate: GenerateConfig{Rows: 100},
	}
}

// Load reads path over the defaults. An empty path reads DefaultPath if it
// exists; a named file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from CSV_SYNTH_LOG_LEVEL, CSV_SYNTH_DB_DRIVER,
// CSV_SYNTH_DB_DSN, CSV_SYNTH_ROWS, HDFS_NAMENODE and HADOOP_USER_NAME
func (c *Config) ApplyEnv() {
	setFromEnv(&c.LogLevel, "CSV_SYNTH_LOG_LEVEL")
	setFromEnv(&c.Database.Driver, "CSV_SYNTH_DB_DRIVER")
	setFromEnv(&c.Database.DSN, "CSV_SYNTH_DB_DSN")
	setFromEnv(&c.HDFS.Namenode, "HDFS_NAMENODE")
	setFromEnv(&c.HDFS.User, "HADOOP_USER_NAME")

	if n := utils.GetEnvInt("CSV_SYNTH_ROWS", 0); n > 0 {
		c.Generate.Rows = n
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks values that cannot be corrected later
func (c *Config) Validate() error {
	if _, err := c.CSV.DelimiterRune(); err != nil {
		return err
	}
	if c.Generate.Rows < 0 {
		return fmt.Errorf("generate.rows must not be negative, got %d", c.Generate.Rows)
	}
	return nil
}

// DelimiterRune returns the configured delimiter as a single rune. "\t" and
// "tab" select a tab.
func (c CSVConfig) DelimiterRune() (rune, error) {
	switch c.Delimiter {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return 0, fmt.Errorf("csv.delimiter must be a single character, got %q", c.Delimiter)
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("csv.delimiter %q is not allowed", c.Delimiter)
	}
	return r, nil
}
