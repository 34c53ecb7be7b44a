package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vitebski/csv-synth/internal/config"
	"github.com/vitebski/csv-synth/internal/connector"
	"github.com/vitebski/csv-synth/internal/csvio"
	"github.com/vitebski/csv-synth/internal/storage"
	"github.com/vitebski/csv-synth/internal/utils"
)

// app holds state shared by all subcommands
type app struct {
	configPath string
	envFile    string
	logLevel   string

	cfg    *config.Config
	logger *logrus.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "csv-synth",
		Short: "Deduce a schema from tabular data and generate synthetic data from it",
		Long: `CSV Synth

Deduces a per-column schema (numeric range, categorical proportions, date
format or free text) from a CSV file or database table, stores it as TOML and
generates synthetic rows that follow it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to YAML config file (default: "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().StringVarP(&a.envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newDeduceCmd(a))
	rootCmd.AddCommand(newGenerateCmd(a))
	rootCmd.AddCommand(newInspectCmd(a))

	return rootCmd
}

// setup resolves settings from the config file, the environment and flags
func (a *app) setup() error {
	// Setup logging
	a.logger = utils.SetupLogging(a.logLevel)

	// Load environment variables
	utils.LoadEnvironmentVariables(a.envFile, nil, a.logger)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	a.cfg = cfg

	if a.logLevel == "" {
		if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			a.logger.SetLevel(level)
		}
	}
	return nil
}

// csvFlags are shared by commands that read or write CSV
type csvFlags struct {
	delimiter  string
	encoding   string
	nullValues []string
}

func (f *csvFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", `Field delimiter, "\t" for tab (default ",")`)
	cmd.Flags().StringVar(&f.encoding, "encoding", "", "Character encoding of the CSV, e.g. latin1 (default utf-8)")
	cmd.Flags().StringSliceVar(&f.nullValues, "null-values", nil, "Cell contents read as missing (default: empty, NA, N/A, NaN, null, None, ...)")
}

func (f *csvFlags) options(cmd *cobra.Command, cfg *config.Config) (csvio.Options, error) {
	c := cfg.CSV
	if cmd.Flags().Changed("delimiter") {
		c.Delimiter = f.delimiter
	}
	if cmd.Flags().Changed("encoding") {
		c.Encoding = f.encoding
	}
	if cmd.Flags().Changed("null-values") {
		c.NullValues = f.nullValues
	}

	delim, err := c.DelimiterRune()
	if err != nil {
		return csvio.Options{}, err
	}
	return csvio.Options{Delimiter: delim, Encoding: c.Encoding, NullValues: c.NullValues}, nil
}

// dbFlags are shared by commands that read or write a database table
type dbFlags struct {
	table  string
	driver string
	dsn    string
}

func (f *dbFlags) register(cmd *cobra.Command, tableUsage string) {
	cmd.Flags().StringVarP(&f.table, "table", "t", "", tableUsage)
	cmd.Flags().StringVar(&f.driver, "driver", "", "Database driver: mysql, sqlite, postgres, sqlserver (default from config or CSV_SYNTH_DB_DRIVER)")
	cmd.Flags().StringVar(&f.dsn, "dsn", "", "Database DSN (default from config or CSV_SYNTH_DB_DSN)")
}

func (f *dbFlags) resolve(cfg *config.Config) (driver, dsn string) {
	driver, dsn = cfg.Database.Driver, cfg.Database.DSN
	if f.driver != "" {
		driver = f.driver
	}
	if f.dsn != "" {
		dsn = f.dsn
	}
	if driver == "" {
		driver = "mysql"
	}
	if dsn == "" {
		// MySQL can still be reached through the MYSQL_* variables
		dsn = connector.NewDatabaseConnector(driver, "", nil).DSN
	}
	return driver, dsn
}

func (a *app) storageOptions() storage.Options {
	return storage.Options{HDFSNamenode: a.cfg.HDFS.Namenode, HDFSUser: a.cfg.HDFS.User}
}

// textPath returns the location of the text rendering written next to a schema
func textPath(schemaPath string) string {
	if strings.HasSuffix(schemaPath, ".toml") {
		return strings.TrimSuffix(schemaPath, ".toml") + ".txt"
	}
	return schemaPath + ".txt"
}
