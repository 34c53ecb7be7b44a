package utils

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/vitebski/csv-synth/pkg/models"
	"golang.org/x/term"
)

// typeOrder fixes the order types are listed in reports
var typeOrder = []models.DeducedType{models.Int64, models.Float64, models.Categorical, models.Date, models.Text}

// isTerminal reports whether w is a terminal that accepts emoji markers
func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func marker(w io.Writer, emoji, plain string) string {
	if isTerminal(w) {
		return emoji
	}
	return plain
}

// PrintSchemaAnalysis prints a report of a deduced schema
func PrintSchemaAnalysis(schema *models.Schema, source string) {
	FprintSchemaAnalysis(os.Stdout, schema, source)
}

// FprintSchemaAnalysis writes the schema analysis report to w
func FprintSchemaAnalysis(w io.Writer, schema *models.Schema, source string) {
	counts := schema.TypeCounts()
	nullable := 0
	for _, c := range schema.Columns {
		if c.Nullable {
			nullable++
		}
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintln(w, "SCHEMA ANALYSIS REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 80))

	// Basic statistics
	fmt.Fprintln(w, "\n1. BASIC STATISTICS")
	fmt.Fprintf(w, "   Source: %s\n", source)
	fmt.Fprintf(w, "   Total columns: %d\n", len(schema.Columns))
	fmt.Fprintf(w, "   Nullable columns: %d\n", nullable)

	fmt.Fprintln(w, "\n2. COLUMN TYPES")
	for _, t := range typeOrder {
		fmt.Fprintf(w, "   %-12s %d\n", t+":", counts[t])
	}

	fmt.Fprintln(w, "\n3. COLUMNS")
	for i, c := range schema.Columns {
		null := ""
		if c.Nullable {
			null = ", nullable"
		}
		fmt.Fprintf(w, "   %3d. %s (%s%s) %s\n", i+1, c.Name, c.Type(), null, describe(c))
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
}

// describe summarises the type-specific part of a column profile
func describe(c models.ColumnProfile) string {
	switch p := c.Profile.(type) {
	case models.NumericProfile:
		return fmt.Sprintf("range [%s, %s]", formatNumber(p.Min), formatNumber(p.Max))
	case models.CategoricalProfile:
		return fmt.Sprintf("%d categories", len(p.Categories))
	case models.DateProfile:
		return fmt.Sprintf("format %s", p.Format)
	case models.TextProfile:
		return fmt.Sprintf("%d values", p.Count)
	}
	return ""
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// PrintSummary prints a summary of a generate run
func PrintSummary(result models.GenerationResult) {
	FprintSummary(os.Stdout, result)
}

// FprintSummary writes the generation summary to w
func FprintSummary(w io.Writer, result models.GenerationResult) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "SYNTHETIC DATA GENERATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Destination: %s\n", result.Destination)
	fmt.Fprintf(w, "Columns generated: %d\n", result.Columns)
	fmt.Fprintf(w, "Rows generated: %d\n", result.Rows)

	if len(result.Placeholder) > 0 {
		fmt.Fprintln(w, "\nColumns filled with a placeholder:")
		for _, c := range result.Placeholder {
			fmt.Fprintf(w, "  - %s\n", c)
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}

// PrintVerificationResults prints the result of a table row count check
func PrintVerificationResults(result models.VerificationResult) {
	FprintVerificationResults(os.Stdout, result)
}

// FprintVerificationResults writes the verification result to w
func FprintVerificationResults(w io.Writer, result models.VerificationResult) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "TABLE POPULATION VERIFICATION RESULTS")
	fmt.Fprintln(w, strings.Repeat("=", 50))

	if result.Success {
		fmt.Fprintf(w, "%s Table %s has %d record(s)\n", marker(w, "✅", "[OK]"), result.Table, result.Actual)
	} else {
		fmt.Fprintf(w, "%s Table %s has %d/%d records\n", marker(w, "❌", "[FAIL]"), result.Table, result.Actual, result.Expected)
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}
