package models

import "database/sql"

// Inconclusive is reported when no date format reaches the acceptance threshold
const Inconclusive = "Inconclusive"

// DeducedType is the type assigned to a column by the schema analyzer
type DeducedType string

const (
	Categorical DeducedType = "categorical"
	Int64       DeducedType = "int64"
	Float64     DeducedType = "float64"
	Date        DeducedType = "date"
	Text        DeducedType = "text"
)

// IsNumeric reports whether the type is one of the numeric types
func (t DeducedType) IsNumeric() bool {
	return t == Int64 || t == Float64
}

// Column represents a named column of raw values; invalid entries are nulls
type Column struct {
	Name   string
	Values []sql.NullString
}

// NullCount returns the number of missing values in the column
func (c Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if !v.Valid {
			n++
		}
	}
	return n
}

// NonNull returns the present values in order
func (c Column) NonNull() []string {
	out := make([]string, 0, len(c.Values))
	for _, v := range c.Values {
		if v.Valid {
			out = append(out, v.String)
		}
	}
	return out
}

// Dataset represents a tabular dataset held in memory
type Dataset struct {
	Columns []Column
}

// NumRows returns the length of the longest column
func (d *Dataset) NumRows() int {
	n := 0
	for _, c := range d.Columns {
		if len(c.Values) > n {
			n = len(c.Values)
		}
	}
	return n
}

// ColumnNames returns the column names in order
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Profile is the type-specific part of a column profile. The concrete types are
// CategoricalProfile, NumericProfile, DateProfile and TextProfile.
type Profile interface {
	Type() DeducedType
	isProfile()
}

// CategoricalProfile holds the category labels in order of first appearance
// and the observed proportion of each label
type CategoricalProfile struct {
	Categories  []string
	Proportions map[string]float64
}

// NumericProfile holds inclusive bounds of the observed data. Integer is true
// when the column was narrowed to int64.
type NumericProfile struct {
	Integer bool
	Min     float64
	Max     float64
}

// DateProfile holds the accepted strftime-style format and the literal
// candidate values the generator draws from
type DateProfile struct {
	Format string
	Dates  []string
}

// TextProfile retains only the number of present values
type TextProfile struct {
	Count int
}

func (CategoricalProfile) Type() DeducedType { return Categorical }
func (TextProfile) Type() DeducedType        { return Text }
func (DateProfile) Type() DeducedType        { return Date }

func (p NumericProfile) Type() DeducedType {
	if p.Integer {
		return Int64
	}
	return Float64
}

func (CategoricalProfile) isProfile() {}
func (NumericProfile) isProfile()     {}
func (DateProfile) isProfile()        {}
func (TextProfile) isProfile()        {}

// ColumnProfile describes a single source column
type ColumnProfile struct {
	Name     string
	Nullable bool
	Profile  Profile
}

// Type returns the deduced type of the column
func (c ColumnProfile) Type() DeducedType {
	if c.Profile == nil {
		return Text
	}
	return c.Profile.Type()
}

// IsNumeric reports whether the column was deduced as numeric
func (c ColumnProfile) IsNumeric() bool {
	return c.Type().IsNumeric()
}

// Schema is the ordered set of column profiles produced by the analyzer
type Schema struct {
	Columns []ColumnProfile
}

// Lookup returns the profile for the named column
func (s *Schema) Lookup(name string) (ColumnProfile, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnProfile{}, false
}

// TypeCounts returns the number of columns per deduced type
func (s *Schema) TypeCounts() map[DeducedType]int {
	counts := make(map[DeducedType]int)
	for _, c := range s.Columns {
		counts[c.Type()]++
	}
	return counts
}

// GenerationResult represents the outcome of a generate run
type GenerationResult struct {
	Rows        int
	Columns     int
	Destination string
	Placeholder []string
}

// VerificationResult represents the result of a row count check after loading a table
type VerificationResult struct {
	Success  bool
	Table    string
	Expected int
	Actual   int64
}
