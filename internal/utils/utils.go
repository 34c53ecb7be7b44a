package utils

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/csv-synth/internal/connector"
)

// SetupLogging returns a logger writing timestamped text to stderr, leaving
// stdout to reports. The level comes from logLevel, then CSV_SYNTH_LOG_LEVEL,
// then defaults to info; an unknown level also means info.
func SetupLogging(logLevel string) *logrus.Logger {
	if logLevel == "" {
		logLevel = os.Getenv("CSV_SYNTH_LOG_LEVEL")
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	logger.Debugf("Log level set to %s", level)
	return logger
}

// LoadEnvironmentVariables loads envFile into the environment when it exists
// and reports whether every variable in requiredVars is set afterwards.
// Variables already set in the environment are not overridden.
func LoadEnvironmentVariables(envFile string, requiredVars []string, logger *logrus.Logger) bool {
	switch _, err := os.Stat(envFile); {
	case err == nil:
		if err := godotenv.Load(envFile); err != nil {
			logger.Warnf("Could not load %s: %v", envFile, err)
		} else {
			logger.Infof("Environment loaded from %s", envFile)
		}
	case os.IsNotExist(err):
		if _, sampleErr := os.Stat(envFile + ".sample"); sampleErr == nil {
			logger.Infof("%s not found; %s.sample can be copied to it as a starting point", envFile, envFile)
		} else {
			logger.Debugf("%s not found, using the process environment only", envFile)
		}
	default:
		logger.Warnf("Could not stat %s: %v", envFile, err)
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		logToolEnvironment(logger)
	}

	var missing []string
	for _, name := range requiredVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return true
	}

	logger.Warnf("Missing required environment variables: %s", strings.Join(missing, ", "))
	return false
}

// logToolEnvironment logs the variables csv-synth reads, masking credentials
func logToolEnvironment(logger *logrus.Logger) {
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !isToolVariable(name) {
			continue
		}
		if isSecret(name) {
			value = "********"
		}
		logger.Debugf("env %s=%s", name, value)
	}
}

func isToolVariable(name string) bool {
	for _, prefix := range []string{"CSV_SYNTH_", "MYSQL_", "HDFS_", "HADOOP_"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// DSNs carry credentials
func isSecret(name string) bool {
	return strings.Contains(name, "PASSWORD") || strings.HasSuffix(name, "_DSN")
}

// GetEnvInt returns the integer value of an environment variable, or
// defaultValue when it is unset or not an integer
func GetEnvInt(varName string, defaultValue int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(varName)))
	if err != nil {
		return defaultValue
	}
	return n
}

// ParseRowCount parses a positive row count. Integral float notation such as
// "1e3" is accepted.
func ParseRowCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("row count must be positive, got %d", n)
		}
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid row count %q", s)
	}
	if f != math.Trunc(f) || f <= 0 || f > math.MaxInt32 {
		return 0, fmt.Errorf("row count must be a positive whole number, got %q", s)
	}
	return int(f), nil
}

// ValidateConnectionParams validates database connection parameters
func ValidateConnectionParams(driver, dsn, table string, logger *logrus.Logger) bool {
	if _, err := connector.LookupDialect(driver); err != nil {
		logger.Errorf("Invalid database driver: %v", err)
		return false
	}

	if dsn == "" {
		logger.Error("Database DSN is required")
		return false
	}

	if table == "" {
		logger.Error("Table name is required")
		return false
	}

	return true
}
