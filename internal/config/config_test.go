package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "csv-synth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
csv:
  delimiter: ";"
  encoding: latin1
  null_values: ["", "-"]
generate:
  rows: 250
  seed: 7
  round_integers: true
database:
  driver: sqlite
  dsn: /tmp/synth.db
hdfs:
  namenode: nn:8020
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"", "-"}, cfg.CSV.NullValues)
	assert.Equal(t, "latin1", cfg.CSV.Encoding)
	assert.Equal(t, 250, cfg.Generate.Rows)
	assert.Equal(t, int64(7), cfg.Generate.Seed)
	assert.True(t, cfg.Generate.RoundIntegers)
	assert.False(t, cfg.Generate.FakeText)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "nn:8020", cfg.HDFS.Namenode)

	r, err := cfg.CSV.DelimiterRune()
	require.NoError(t, err)
	assert.Equal(t, ';', r)
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"syntax":        "csv: [",
		"two char sep":  "csv:\n  delimiter: ';;'\n",
		"quote sep":     "csv:\n  delimiter: '\"'\n",
		"negative rows": "generate:\n  rows: -1\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestDelimiterRune(t *testing.T) {
	for in, want := range map[string]rune{"": ',', `\t`: '\t', "tab": '\t', "|": '|'} {
		got, err := CSVConfig{Delimiter: in}.DelimiterRune()
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CSV_SYNTH_LOG_LEVEL", "warn")
	t.Setenv("CSV_SYNTH_DB_DRIVER", "postgres")
	t.Setenv("CSV_SYNTH_DB_DSN", "postgres://localhost/synth")
	t.Setenv("CSV_SYNTH_ROWS", "42")
	t.Setenv("HDFS_NAMENODE", "namenode:9000")
	t.Setenv("HADOOP_USER_NAME", "etl")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/synth", cfg.Database.DSN)
	assert.Equal(t, 42, cfg.Generate.Rows)
	assert.Equal(t, "namenode:9000", cfg.HDFS.Namenode)
	assert.Equal(t, "etl", cfg.HDFS.User)

	t.Setenv("CSV_SYNTH_ROWS", "not-a-number")
	cfg.ApplyEnv()
	assert.Equal(t, 42, cfg.Generate.Rows)
}
