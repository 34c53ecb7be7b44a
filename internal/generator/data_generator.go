package generator

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/csv-synth/pkg/models"
)

// DefaultPlaceholder is written for columns no synthetic value is generated for
const DefaultPlaceholder = "No value"

// Options controls how synthetic values are produced
type Options struct {
	// Seed makes generation reproducible; zero seeds from the clock
	Seed int64

	// RoundIntegers samples int64 columns as whole numbers instead of floats
	RoundIntegers bool

	// FakeText fills text columns with lorem sentences instead of the placeholder
	FakeText bool

	// Placeholder replaces DefaultPlaceholder when set
	Placeholder string
}

// DataGenerator generates a synthetic dataset from a schema
type DataGenerator struct {
	Faker   faker.Faker
	Rand    *rand.Rand
	Options Options
	Logger  *logrus.Logger
}

// NewDataGenerator creates a new data generator
func NewDataGenerator(opts Options, logger *logrus.Logger) *DataGenerator {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}

	return &DataGenerator{
		Faker:   faker.NewWithSeed(rand.NewSource(seed)),
		Rand:    rand.New(rand.NewSource(seed)),
		Options: opts,
		Logger:  logger,
	}
}

// Validate checks that every column carries the fields its type requires
func (dg *DataGenerator) Validate(schema *models.Schema) error {
	if schema == nil || len(schema.Columns) == 0 {
		return &models.SchemaValidationError{Reason: "schema has no columns"}
	}

	for _, col := range schema.Columns {
		switch p := col.Profile.(type) {
		case nil:
			return &models.SchemaValidationError{Column: col.Name, Field: "Deduced_Data_Type", Reason: "is required"}
		case models.CategoricalProfile:
			if len(p.Categories) == 0 {
				return &models.SchemaValidationError{Column: col.Name, Field: "categories", Reason: "must not be empty"}
			}
			for label, w := range p.Proportions {
				if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
					return &models.SchemaValidationError{Column: col.Name, Field: "proportions", Reason: fmt.Sprintf("has invalid weight %v for %q", w, label)}
				}
			}
		case models.NumericProfile:
			if math.IsNaN(p.Min) || math.IsNaN(p.Max) || math.IsInf(p.Min, 0) || math.IsInf(p.Max, 0) {
				return &models.SchemaValidationError{Column: col.Name, Field: "Min_value/Max_value", Reason: "must be finite numbers"}
			}
			if p.Min > p.Max {
				return &models.RangeError{Column: col.Name, Min: p.Min, Max: p.Max}
			}
		case models.DateProfile:
			if len(p.Dates) == 0 {
				return &models.SchemaValidationError{Column: col.Name, Field: "dates", Reason: "is required for date columns"}
			}
		case models.TextProfile:
		default:
			return &models.SchemaValidationError{Column: col.Name, Field: "Deduced_Data_Type", Reason: fmt.Sprintf("has unsupported profile %T", p)}
		}
	}

	return nil
}

// Generate produces numRows synthetic rows. The schema is validated first and
// nothing is generated when validation fails.
func (dg *DataGenerator) Generate(schema *models.Schema, numRows int) (*models.Dataset, error) {
	if numRows <= 0 {
		return nil, fmt.Errorf("row count must be positive, got %d", numRows)
	}
	if err := dg.Validate(schema); err != nil {
		return nil, err
	}

	ds := &models.Dataset{Columns: make([]models.Column, 0, len(schema.Columns))}

	for _, col := range schema.Columns {
		values := make([]sql.NullString, numRows)
		for i := range values {
			v, err := dg.GenerateValue(col)
			if err != nil {
				return nil, err
			}
			values[i] = sql.NullString{String: v, Valid: true}
		}
		ds.Columns = append(ds.Columns, models.Column{Name: col.Name, Values: values})
		dg.Logger.Debugf("Generated %d values for column %s (%s)", numRows, col.Name, col.Type())
	}

	dg.Logger.Infof("Generated %d rows for %d columns", numRows, len(ds.Columns))
	return ds, nil
}

// GenerateValue draws a single value for a column
func (dg *DataGenerator) GenerateValue(col models.ColumnProfile) (string, error) {
	switch p := col.Profile.(type) {
	case models.CategoricalProfile:
		return dg.generateCategorical(p), nil
	case models.NumericProfile:
		return dg.generateNumeric(col.Name, p)
	case models.DateProfile:
		return p.Dates[dg.Rand.Intn(len(p.Dates))], nil
	case models.TextProfile:
		if dg.Options.FakeText {
			return dg.Faker.Lorem().Sentence(3 + dg.Rand.Intn(6)), nil
		}
		return dg.Options.Placeholder, nil
	default:
		return dg.Options.Placeholder, nil
	}
}

// generateCategorical makes a weighted choice using the stored proportions,
// falling back to uniform weights when none are usable
func (dg *DataGenerator) generateCategorical(p models.CategoricalProfile) string {
	total := 0.0
	for _, c := range p.Categories {
		total += p.Proportions[c]
	}

	if total <= 0 {
		return p.Categories[dg.Rand.Intn(len(p.Categories))]
	}

	target := dg.Rand.Float64() * total
	acc := 0.0
	for _, c := range p.Categories {
		acc += p.Proportions[c]
		if target < acc {
			return c
		}
	}

	// Floating point slack: return the last category carrying weight
	for i := len(p.Categories) - 1; i >= 0; i-- {
		if p.Proportions[p.Categories[i]] > 0 {
			return p.Categories[i]
		}
	}
	return p.Categories[len(p.Categories)-1]
}

func (dg *DataGenerator) generateNumeric(column string, p models.NumericProfile) (string, error) {
	if p.Integer && dg.Options.RoundIntegers {
		lo, hi := math.Ceil(p.Min), math.Floor(p.Max)
		if lo > hi {
			return "", &models.RangeError{Column: column, Min: p.Min, Max: p.Max}
		}
		n := int64(lo) + dg.Rand.Int63n(int64(hi)-int64(lo)+1)
		return strconv.FormatInt(n, 10), nil
	}

	v, err := Uniform(dg.Rand, p.Min, p.Max)
	if err != nil {
		var re *models.RangeError
		if errors.As(err, &re) {
			re.Column = column
		}
		return "", err
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// Uniform returns a float drawn uniformly from [lo, hi]
func Uniform(r *rand.Rand, lo, hi float64) (float64, error) {
	if lo > hi {
		return 0, &models.RangeError{Min: lo, Max: hi}
	}
	v := lo + r.Float64()*(hi-lo)
	return math.Min(math.Max(v, lo), hi), nil
}
