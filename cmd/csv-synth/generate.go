package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vitebski/csv-synth/internal/connector"
	"github.com/vitebski/csv-synth/internal/csvio"
	"github.com/vitebski/csv-synth/internal/generator"
	"github.com/vitebski/csv-synth/internal/populator"
	"github.com/vitebski/csv-synth/internal/schemafile"
	"github.com/vitebski/csv-synth/internal/storage"
	"github.com/vitebski/csv-synth/internal/utils"
	"github.com/vitebski/csv-synth/pkg/models"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		output        string
		rows          string
		seed          int64
		roundIntegers bool
		fakeText      bool
		placeholder   string
		replace       bool
		quiet         bool
		csvOpts       csvFlags
		db            dbFlags
	)

	cmd := &cobra.Command{
		Use:   "generate <schema.toml>",
		Short: "Generate synthetic rows from a TOML schema",
		Example: `  csv-synth generate people.toml -n 1000 -o synthetic.csv
  csv-synth generate people.toml -n 1e4 --seed 42 --round-integers -o s3://bucket/synthetic.csv
  csv-synth generate people.toml -n 500 --table people_synth --driver sqlite --dsn synth.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg := a.cfg

			numRows := cfg.Generate.Rows
			if cmd.Flags().Changed("rows") {
				n, err := utils.ParseRowCount(rows)
				if err != nil {
					return err
				}
				numRows = n
			}

			opts := generator.Options{
				Seed:          cfg.Generate.Seed,
				RoundIntegers: cfg.Generate.RoundIntegers,
				FakeText:      cfg.Generate.FakeText,
				Placeholder:   cfg.Generate.Placeholder,
			}
			if cmd.Flags().Changed("seed") {
				opts.Seed = seed
			}
			if cmd.Flags().Changed("round-integers") {
				opts.RoundIntegers = roundIntegers
			}
			if cmd.Flags().Changed("fake-text") {
				opts.FakeText = fakeText
			}
			if cmd.Flags().Changed("placeholder") {
				opts.Placeholder = placeholder
			}

			schema, err := schemafile.Load(ctx, args[0], a.storageOptions())
			if err != nil {
				return fmt.Errorf("failed to load schema: %w", err)
			}

			dataGenerator := generator.NewDataGenerator(opts, a.logger)
			ds, err := dataGenerator.Generate(schema, numRows)
			if err != nil {
				return err
			}

			result := models.GenerationResult{Rows: numRows, Columns: len(ds.Columns)}
			if !opts.FakeText {
				for _, c := range schema.Columns {
					if c.Type() == models.Text {
						result.Placeholder = append(result.Placeholder, c.Name)
					}
				}
			}

			// Write a CSV unless only a table was asked for
			if db.table == "" || cmd.Flags().Changed("output") {
				csvOptions, err := csvOpts.options(cmd, cfg)
				if err != nil {
					return err
				}
				if err := writeCSV(ctx, a, output, ds, csvOptions); err != nil {
					return err
				}
				result.Destination = output
			}

			var verification *models.VerificationResult
			if db.table != "" {
				driver, dsn := db.resolve(cfg)
				if !utils.ValidateConnectionParams(driver, dsn, db.table, a.logger) {
					return errors.New("invalid database connection parameters")
				}
				v, err := loadTable(a, driver, dsn, db.table, schema, ds, opts.RoundIntegers, replace)
				if err != nil {
					return err
				}
				verification = &v
				if result.Destination != "" {
					result.Destination += ", "
				}
				result.Destination += "table " + db.table
			}

			if !quiet {
				utils.PrintSummary(result)
				if verification != nil {
					utils.PrintVerificationResults(*verification)
				}
			}

			if verification != nil && !verification.Success {
				return fmt.Errorf("table %s has %d rows, expected %d", verification.Table, verification.Actual, verification.Expected)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "synthetic.csv", "CSV file to write")
	cmd.Flags().StringVarP(&rows, "rows", "n", "", "Number of rows to generate (default generate.rows from config, or 100)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for reproducible output (0 seeds from the clock)")
	cmd.Flags().BoolVar(&roundIntegers, "round-integers", false, "Sample int64 columns as whole numbers")
	cmd.Flags().BoolVar(&fakeText, "fake-text", false, "Fill text columns with generated sentences instead of a placeholder")
	cmd.Flags().StringVar(&placeholder, "placeholder", "", "Value written to text columns (default \""+generator.DefaultPlaceholder+"\")")
	cmd.Flags().BoolVar(&replace, "replace", false, "Drop the table first if it already exists")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the summary")
	csvOpts.register(cmd)
	db.register(cmd, "Create this database table and load the generated rows into it")

	return cmd
}

func writeCSV(ctx context.Context, a *app, uri string, ds *models.Dataset, opts csvio.Options) error {
	w, err := storage.Create(ctx, uri, a.storageOptions())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", uri, err)
	}

	if err := csvio.Write(w, ds, opts); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s: %w", uri, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", uri, err)
	}

	a.logger.Infof("Wrote %d rows to %s", ds.NumRows(), uri)
	return nil
}

func loadTable(a *app, driver, dsn, table string, schema *models.Schema, ds *models.Dataset, roundIntegers, replace bool) (models.VerificationResult, error) {
	db := connector.NewDatabaseConnector(driver, dsn, a.logger)
	if err := db.Connect(); err != nil {
		return models.VerificationResult{}, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Disconnect()

	tablePopulator := populator.NewTablePopulator(db, a.logger)
	tablePopulator.RoundIntegers = roundIntegers

	if err := tablePopulator.CreateTable(table, schema, replace); err != nil {
		return models.VerificationResult{}, err
	}

	a.logger.Info("Starting table population...")
	if _, err := tablePopulator.Populate(table, schema, ds); err != nil {
		return models.VerificationResult{}, err
	}

	return tablePopulator.VerifyRowCount(table, ds.NumRows())
}
