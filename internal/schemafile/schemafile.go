// Package schemafile reads and writes schemas as TOML, one table per column.
package schemafile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vitebski/csv-synth/internal/storage"
	"github.com/vitebski/csv-synth/pkg/models"
)

// Keys used in a column table
const (
	KeyDeducedType = "Deduced_Data_Type"
	KeyIsNumeric   = "Is_numeric"
	KeyNullable    = "Nullable"
	KeyMinValue    = "Min_value"
	KeyMaxValue    = "Max_value"
	KeyDateFormat  = "Date_Format"
	KeyDates       = "dates"
	KeyCount       = "count"
	KeyCategories  = "categories"
	KeyProportions = "proportions"
)

// section is the encoded form of a column; nil fields are not written
type section struct {
	DeducedType string             `toml:"Deduced_Data_Type"`
	IsNumeric   bool               `toml:"Is_numeric"`
	Nullable    bool               `toml:"Nullable"`
	MinValue    interface{}        `toml:"Min_value"`
	MaxValue    interface{}        `toml:"Max_value"`
	DateFormat  *string            `toml:"Date_Format"`
	Dates       []string           `toml:"dates"`
	Count       *int               `toml:"count"`
	Categories  []string           `toml:"categories"`
	Proportions map[string]float64 `toml:"proportions"`
}

// rawSection accepts hand-edited values of any scalar type
type rawSection struct {
	DeducedType string                 `toml:"Deduced_Data_Type"`
	IsNumeric   bool                   `toml:"Is_numeric"`
	Nullable    bool                   `toml:"Nullable"`
	MinValue    interface{}            `toml:"Min_value"`
	MaxValue    interface{}            `toml:"Max_value"`
	DateFormat  string                 `toml:"Date_Format"`
	Dates       []interface{}          `toml:"dates"`
	Count       int                    `toml:"count"`
	Categories  []interface{}          `toml:"categories"`
	Proportions map[string]interface{} `toml:"proportions"`
}

func toSection(c models.ColumnProfile) section {
	s := section{
		DeducedType: string(c.Type()),
		IsNumeric:   c.IsNumeric(),
		Nullable:    c.Nullable,
	}

	switch p := c.Profile.(type) {
	case models.NumericProfile:
		if p.Integer {
			s.MinValue, s.MaxValue = int64(p.Min), int64(p.Max)
		} else {
			s.MinValue, s.MaxValue = p.Min, p.Max
		}
	case models.CategoricalProfile:
		s.Categories = p.Categories
		s.Proportions = p.Proportions
	case models.DateProfile:
		format := p.Format
		s.DateFormat = &format
		s.Dates = p.Dates
	case models.TextProfile:
		count := p.Count
		s.Count = &count
	}

	return s
}

// Encode writes the schema as TOML in column order
func Encode(w io.Writer, schema *models.Schema) error {
	enc := toml.NewEncoder(w)
	enc.Indent = ""

	for _, c := range schema.Columns {
		if err := enc.Encode(map[string]section{c.Name: toSection(c)}); err != nil {
			return fmt.Errorf("encode column %q: %w", c.Name, err)
		}
	}
	return nil
}

// Decode reads a TOML schema. Column order follows the order of the tables in
// the document.
func Decode(r io.Reader) (*models.Schema, error) {
	var raw map[string]rawSection
	md, err := toml.NewDecoder(r).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	schema := &models.Schema{}
	seen := make(map[string]bool)

	for _, key := range md.Keys() {
		if len(key) != 1 || seen[key[0]] {
			continue
		}
		name := key[0]
		seen[name] = true

		profile, err := fromSection(name, raw[name], md)
		if err != nil {
			return nil, err
		}
		schema.Columns = append(schema.Columns, profile)
	}

	return schema, nil
}

// ParseType maps a serialized type name, including legacy spellings, to a
// DeducedType. Unknown names map to text.
func ParseType(s string) models.DeducedType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "categorical", "category":
		return models.Categorical
	case "int64", "int", "integer", "int32":
		return models.Int64
	case "float64", "float", "numeric", "double":
		return models.Float64
	case "date", "datetime", "timestamp":
		return models.Date
	default:
		return models.Text
	}
}

func fromSection(name string, s rawSection, md toml.MetaData) (models.ColumnProfile, error) {
	c := models.ColumnProfile{Name: name, Nullable: s.Nullable}

	if !md.IsDefined(name, KeyDeducedType) {
		return c, &models.SchemaValidationError{Column: name, Field: KeyDeducedType, Reason: "is required"}
	}

	switch ParseType(s.DeducedType) {
	case models.Int64, models.Float64:
		lo, err := requireNumber(name, KeyMinValue, s.MinValue, md)
		if err != nil {
			return c, err
		}
		hi, err := requireNumber(name, KeyMaxValue, s.MaxValue, md)
		if err != nil {
			return c, err
		}
		c.Profile = models.NumericProfile{
			Integer: ParseType(s.DeducedType) == models.Int64,
			Min:     lo,
			Max:     hi,
		}

	case models.Categorical:
		if !md.IsDefined(name, KeyCategories) {
			return c, &models.SchemaValidationError{Column: name, Field: KeyCategories, Reason: "is required for categorical columns"}
		}
		p := models.CategoricalProfile{Categories: stringify(s.Categories)}
		if len(s.Proportions) > 0 {
			p.Proportions = make(map[string]float64, len(s.Proportions))
			for label, v := range s.Proportions {
				f, ok := toFloat(v)
				if !ok {
					return c, &models.SchemaValidationError{Column: name, Field: KeyProportions, Reason: fmt.Sprintf("has non-numeric weight for %q", label)}
				}
				p.Proportions[label] = f
			}
		}
		c.Profile = p

	case models.Date:
		c.Profile = models.DateProfile{Format: s.DateFormat, Dates: stringify(s.Dates)}

	default:
		c.Profile = models.TextProfile{Count: s.Count}
	}

	return c, nil
}

func requireNumber(column, key string, v interface{}, md toml.MetaData) (float64, error) {
	if !md.IsDefined(column, key) {
		return 0, &models.SchemaValidationError{Column: column, Field: key, Reason: "is required for numeric columns"}
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, &models.SchemaValidationError{Column: column, Field: key, Reason: fmt.Sprintf("must be a number, got %v", v)}
	}
	return f, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func stringify(values []interface{}) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

// Load reads a schema from a local path or storage URI
func Load(ctx context.Context, uri string, opts storage.Options) (*models.Schema, error) {
	rc, err := storage.Open(ctx, uri, opts)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Decode(rc)
}

// Save writes a schema to a local path or storage URI
func Save(ctx context.Context, uri string, schema *models.Schema, opts storage.Options) error {
	var buf bytes.Buffer
	if err := Encode(&buf, schema); err != nil {
		return err
	}
	return storage.WriteFile(ctx, uri, buf.Bytes(), opts)
}
