package schemafile

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/csv-synth/internal/analyzer"
	"github.com/vitebski/csv-synth/internal/storage"
	"github.com/vitebski/csv-synth/pkg/models"
)

func sampleSchema() *models.Schema {
	return &models.Schema{Columns: []models.ColumnProfile{
		{Name: "status", Profile: models.CategoricalProfile{
			Categories:  []string{"A", "B"},
			Proportions: map[string]float64{"A": 0.6, "B": 0.4},
		}},
		{Name: "id", Profile: models.NumericProfile{Integer: true, Min: 1, Max: 5}},
		{Name: "amount", Nullable: true, Profile: models.NumericProfile{Min: -1.5, Max: 2.25}},
		{Name: "when", Profile: models.DateProfile{Format: "%Y-%m-%d", Dates: []string{"2021-01-01", "2021-01-02"}}},
		{Name: "notes", Profile: models.TextProfile{Count: 42}},
	}}
}

func TestEncodeWritesColumnTables(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleSchema()))
	out := buf.String()

	assert.Contains(t, out, "[status]")
	assert.Contains(t, out, `Deduced_Data_Type = "int64"`)
	assert.Contains(t, out, "Min_value = 1\n")
	assert.Contains(t, out, "Max_value = 2.25")
	assert.Contains(t, out, `Date_Format = "%Y-%m-%d"`)
	assert.Contains(t, out, "count = 42")

	// Tables appear in column order
	assert.Less(t, strings.Index(out, "[status]"), strings.Index(out, "[id]"))
	assert.Less(t, strings.Index(out, "[id]"), strings.Index(out, "[amount]"))
	assert.Less(t, strings.Index(out, "[when]"), strings.Index(out, "[notes]"))

	// Properties of other types are omitted
	idBlock := out[strings.Index(out, "[id]"):strings.Index(out, "[amount]")]
	assert.NotContains(t, idBlock, "categories")
	assert.NotContains(t, idBlock, "Date_Format")
}

func TestEncodeDecodeIsStable(t *testing.T) {
	var first bytes.Buffer
	require.NoError(t, Encode(&first, sampleSchema()))

	decoded, err := Decode(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, sampleSchema(), decoded)

	var second bytes.Buffer
	require.NoError(t, Encode(&second, decoded))
	assert.Equal(t, first.String(), second.String())
}

func TestDecodeDeducedSchema(t *testing.T) {
	present := func(values ...string) []sql.NullString {
		out := make([]sql.NullString, len(values))
		for i, v := range values {
			out[i] = sql.NullString{String: v, Valid: true}
		}
		return out
	}

	var notes []string
	for i := 0; i < 12; i++ {
		notes = append(notes, fmt.Sprintf("note %d", i))
	}

	ds := &models.Dataset{Columns: []models.Column{
		{Name: "label", Values: present("a.b", "a.b", "line\nbreak", "", "-0")},
		{Name: "price.usd", Values: append(present("1.5", "-2"), sql.NullString{})},
		{Name: "zero", Values: present("-0", "1", "2")},
		{Name: "joined", Values: present("2021-01-01", "2021-01-05", "2021-01-03")},
		{Name: "notes", Values: present(notes...)},
	}}

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	deduced := analyzer.NewSchemaAnalyzer(logger).AnalyzeDataset(ds)

	label, _ := deduced.Lookup("label")
	require.Equal(t, models.Categorical, label.Type())

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, deduced))

	decoded, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, deduced, decoded)
}

func TestDecodeHandEdited(t *testing.T) {
	doc := `
[zeta]
Deduced_Data_Type = "int"
Min_value = 0
Max_value = 10.5

[alpha]
Deduced_Data_Type = "categorical"
categories = [1, 2]

[alpha.proportions]
1 = 3
2 = 1

[legacy]
Deduced_Data_Type = "DateTime"
Date_Format = "%Y"
dates = ["2020", "2021"]

[other]
Deduced_Data_Type = "something-else"
`
	schema, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)

	require.Len(t, schema.Columns, 4)
	assert.Equal(t, []string{"zeta", "alpha", "legacy", "other"}, []string{
		schema.Columns[0].Name, schema.Columns[1].Name, schema.Columns[2].Name, schema.Columns[3].Name,
	})

	assert.Equal(t, models.NumericProfile{Integer: true, Min: 0, Max: 10.5}, schema.Columns[0].Profile)
	assert.Equal(t, models.CategoricalProfile{
		Categories:  []string{"1", "2"},
		Proportions: map[string]float64{"1": 3, "2": 1},
	}, schema.Columns[1].Profile)
	assert.Equal(t, models.Date, schema.Columns[2].Type())
	assert.Equal(t, models.Text, schema.Columns[3].Type())
}

func TestDecodeMissingFields(t *testing.T) {
	tests := map[string]struct {
		doc   string
		field string
	}{
		"no type":       {"[a]\nNullable = true\n", KeyDeducedType},
		"no min":        {"[a]\nDeduced_Data_Type = \"float64\"\nMax_value = 1\n", KeyMinValue},
		"string bound":  {"[a]\nDeduced_Data_Type = \"float64\"\nMin_value = \"x\"\nMax_value = 1\n", KeyMinValue},
		"no categories": {"[a]\nDeduced_Data_Type = \"categorical\"\n", KeyCategories},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			var sve *models.SchemaValidationError
			require.True(t, errors.As(err, &sve), "expected SchemaValidationError, got %v", err)
			assert.Equal(t, "a", sve.Column)
			assert.Equal(t, tt.field, sve.Field)
		})
	}
}

func TestDecodeSyntaxError(t *testing.T) {
	_, err := Decode(strings.NewReader("[a\nDeduced_Data_Type ="))
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	assert.Equal(t, models.Int64, ParseType("Int64"))
	assert.Equal(t, models.Float64, ParseType("numeric"))
	assert.Equal(t, models.Date, ParseType("DateTime"))
	assert.Equal(t, models.Categorical, ParseType("categorical"))
	assert.Equal(t, models.Text, ParseType("error"))
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	ctx := context.Background()

	require.NoError(t, Save(ctx, path, sampleSchema(), storage.Options{}))

	loaded, err := Load(ctx, path, storage.Options{})
	require.NoError(t, err)
	assert.Equal(t, sampleSchema(), loaded)

	_, err = Load(ctx, filepath.Join(t.TempDir(), "missing.toml"), storage.Options{})
	assert.ErrorIs(t, err, models.ErrInputNotFound)
}

func TestRenderText(t *testing.T) {
	out := RenderText(sampleSchema())

	assert.Contains(t, out, "status\n  Deduced_Data_Type: categorical\n")
	assert.Contains(t, out, "  proportions: {A=0.6, B=0.4}\n")
	assert.Contains(t, out, "  Min_value: 1\n")
	assert.Contains(t, out, "  Max_value: 2.25\n")
	assert.Contains(t, out, "  dates: [2021-01-01, 2021-01-02]\n")
	assert.Contains(t, out, "  count: 42\n")
}
