package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vitebski/csv-synth/internal/analyzer"
	"github.com/vitebski/csv-synth/internal/connector"
	"github.com/vitebski/csv-synth/internal/csvio"
	"github.com/vitebski/csv-synth/internal/schemafile"
	"github.com/vitebski/csv-synth/internal/storage"
	"github.com/vitebski/csv-synth/internal/utils"
	"github.com/vitebski/csv-synth/pkg/models"
)

func newDeduceCmd(a *app) *cobra.Command {
	var (
		output  string
		text    string
		noText  bool
		limit   int
		quiet   bool
		csvOpts csvFlags
		db      dbFlags
	)

	cmd := &cobra.Command{
		Use:   "deduce [input.csv]",
		Short: "Deduce a TOML schema from a CSV file or database table",
		Example: `  csv-synth deduce people.csv -o people.toml
  csv-synth deduce hdfs://namenode:8020/data/people.csv -o gs://bucket/people.toml
  csv-synth deduce --table people --driver postgres --dsn postgres://localhost/db -o people.toml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var (
				ds     *models.Dataset
				source string
				err    error
			)

			switch {
			case db.table != "" && len(args) > 0:
				return errors.New("give either an input file or --table, not both")
			case db.table != "":
				driver, dsn := db.resolve(a.cfg)
				if !utils.ValidateConnectionParams(driver, dsn, db.table, a.logger) {
					return errors.New("invalid database connection parameters")
				}
				source = "table " + db.table
				ds, err = readTable(a, driver, dsn, db.table, limit)
			case len(args) == 1:
				source = args[0]
				opts, optErr := csvOpts.options(cmd, a.cfg)
				if optErr != nil {
					return optErr
				}
				ds, err = readCSV(ctx, a, args[0], opts)
			default:
				return errors.New("an input file or --table is required")
			}
			if err != nil {
				return err
			}

			schemaAnalyzer := analyzer.NewSchemaAnalyzer(a.logger)
			schema := schemaAnalyzer.AnalyzeDataset(ds)

			if !quiet {
				utils.PrintSchemaAnalysis(schema, source)
			}

			if err := schemafile.Save(ctx, output, schema, a.storageOptions()); err != nil {
				return fmt.Errorf("failed to write schema: %w", err)
			}
			a.logger.Infof("Schema written to %s", output)

			if !noText {
				if text == "" {
					text = textPath(output)
				}
				if err := storage.WriteFile(ctx, text, []byte(schemafile.RenderText(schema)), a.storageOptions()); err != nil {
					return fmt.Errorf("failed to write text rendering: %w", err)
				}
				a.logger.Infof("Text rendering written to %s", text)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "schema.toml", "Schema file to write")
	cmd.Flags().StringVar(&text, "text", "", "Text rendering to write (default: schema path with .txt)")
	cmd.Flags().BoolVar(&noText, "no-text", false, "Do not write the text rendering")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of table rows to read (0 reads all)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the analysis report")
	csvOpts.register(cmd)
	db.register(cmd, "Read the dataset from this database table instead of a CSV file")

	return cmd
}

func readCSV(ctx context.Context, a *app, uri string, opts csvio.Options) (*models.Dataset, error) {
	r, err := storage.Open(ctx, uri, a.storageOptions())
	if err != nil {
		return nil, err
	}
	defer r.Close()

	ds, err := csvio.Read(r, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", uri, err)
	}
	a.logger.Infof("Read %d rows and %d columns from %s", ds.NumRows(), len(ds.Columns), uri)
	return ds, nil
}

func readTable(a *app, driver, dsn, table string, limit int) (*models.Dataset, error) {
	db := connector.NewDatabaseConnector(driver, dsn, a.logger)
	if err := db.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Disconnect()

	return db.ReadTable(table, limit)
}
