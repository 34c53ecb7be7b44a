package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vitebski/csv-synth/internal/generator"
	"github.com/vitebski/csv-synth/internal/schemafile"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <schema.toml>",
		Short: "Validate a TOML schema and print it as text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			schema, err := schemafile.Load(ctx, args[0], a.storageOptions())
			if err != nil {
				return fmt.Errorf("failed to load schema: %w", err)
			}

			if err := generator.NewDataGenerator(generator.Options{}, a.logger).Validate(schema); err != nil {
				return fmt.Errorf("schema %s is not usable for generation: %w", args[0], err)
			}

			fmt.Fprint(cmd.OutOrStdout(), schemafile.RenderText(schema))
			a.logger.Infof("Schema %s is valid (%d columns)", args[0], len(schema.Columns))
			return nil
		},
	}
}
