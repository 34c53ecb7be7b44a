package analyzer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/csv-synth/pkg/models"
)

// categoricalLimit is the distinct value count at which a column stops being categorical
const categoricalLimit = 11

// maxExactInt is 2^53. Values at or above it may already have been rounded
// by float parsing, so they never narrow to int64.
const maxExactInt = 1 << 53

// typeCoercionError marks a value that could not be read as a number
type typeCoercionError struct {
	Value string
}

func (e *typeCoercionError) Error() string {
	return fmt.Sprintf("cannot coerce %q to float", e.Value)
}

// SchemaAnalyzer deduces a column-by-column schema from a dataset
type SchemaAnalyzer struct {
	Logger *logrus.Logger
}

// NewSchemaAnalyzer creates a new schema analyzer
func NewSchemaAnalyzer(logger *logrus.Logger) *SchemaAnalyzer {
	return &SchemaAnalyzer{
		Logger: logger,
	}
}

// AnalyzeDataset profiles every column of the dataset in order
func (sa *SchemaAnalyzer) AnalyzeDataset(ds *models.Dataset) *models.Schema {
	schema := &models.Schema{
		Columns: make([]models.ColumnProfile, 0, len(ds.Columns)),
	}

	for _, col := range ds.Columns {
		profile := sa.AnalyzeColumn(col)
		sa.Logger.Debugf("Column %s deduced as %s (nullable=%t)", col.Name, profile.Type(), profile.Nullable)
		schema.Columns = append(schema.Columns, profile)
	}

	sa.Logger.Infof("Analyzed %d columns", len(schema.Columns))
	return schema
}

// AnalyzeColumn deduces the profile of a single column
func (sa *SchemaAnalyzer) AnalyzeColumn(col models.Column) models.ColumnProfile {
	profile := models.ColumnProfile{
		Name:     col.Name,
		Nullable: col.NullCount() > 0,
	}

	values := col.NonNull()
	if len(values) == 0 {
		profile.Profile = models.TextProfile{Count: 0}
		return profile
	}

	// Zero-padded values look like identifiers even when they parse as numbers
	if v, ok := firstZeroPadded(values); ok {
		sa.Logger.Debugf("Column %s has zero-padded value %q, treating as non-numeric", col.Name, v)
		profile.Profile = sa.classifyNonNumeric(col.Name, values)
		return profile
	}

	nums, err := coerceFloats(values)
	if err != nil {
		var tce *typeCoercionError
		if errors.As(err, &tce) {
			sa.Logger.Debugf("Column %s is non-numeric: %v", col.Name, err)
		}
		profile.Profile = sa.classifyNonNumeric(col.Name, values)
		return profile
	}

	numeric := narrowNumeric(nums, profile.Nullable)
	if numeric.Integer {
		encoded := make([]string, len(nums))
		for i, n := range nums {
			encoded[i] = strconv.FormatInt(int64(n), 10)
		}
		if format := DetectDateFormat(encoded); format != models.Inconclusive {
			sa.Logger.Debugf("Integer column %s matches date format %s", col.Name, format)
			profile.Profile = models.DateProfile{
				Format: format,
				Dates:  dateCandidateValues(encoded, format),
			}
			return profile
		}
	}

	profile.Profile = numeric
	return profile
}

// classifyNonNumeric picks between date, categorical and text
func (sa *SchemaAnalyzer) classifyNonNumeric(name string, values []string) models.Profile {
	if format := DetectDateFormat(values); format != models.Inconclusive {
		return models.DateProfile{
			Format: format,
			Dates:  dateCandidateValues(values, format),
		}
	}

	categories := distinctValues(values, 0)
	if len(categories) >= categoricalLimit {
		sa.Logger.Debugf("Column %s has %d distinct values, treating as text", name, len(categories))
		return models.TextProfile{Count: len(values)}
	}

	counts := make(map[string]int, len(categories))
	for _, v := range values {
		counts[v]++
	}

	proportions := make(map[string]float64, len(categories))
	for _, c := range categories {
		proportions[c] = roundTo(float64(counts[c])/float64(len(values)), 2)
	}

	return models.CategoricalProfile{
		Categories:  categories,
		Proportions: proportions,
	}
}

// firstZeroPadded returns the first value that starts with 0 but is neither
// "0" itself nor a decimal fraction such as 0.5. Note the lone "0" exception:
// the bare "0 not followed by a dot" rule would make it non-numeric.
func firstZeroPadded(values []string) (string, bool) {
	for _, v := range values {
		if len(v) > 1 && v[0] == '0' && v[1] != '.' {
			return v, true
		}
	}
	return "", false
}

func coerceFloats(values []string) ([]float64, error) {
	nums := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &typeCoercionError{Value: v}
		}
		nums[i] = f
	}
	return nums, nil
}

// narrowNumeric records the bounds and narrows to integer when there are no
// nulls and every value is whole
func narrowNumeric(nums []float64, nullable bool) models.NumericProfile {
	p := models.NumericProfile{
		Integer: !nullable,
		Min:     nums[0],
		Max:     nums[0],
	}

	for _, n := range nums {
		if n < p.Min {
			p.Min = n
		}
		if n > p.Max {
			p.Max = n
		}
		if n != math.Trunc(n) || math.Abs(n) >= maxExactInt {
			p.Integer = false
		}
	}

	return p
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
