package populator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/csv-synth/internal/connector"
	"github.com/vitebski/csv-synth/pkg/models"
)

// DefaultBatchSize is the number of rows inserted per transaction
const DefaultBatchSize = 100

// TablePopulator creates a table from a schema and loads generated rows into it
type TablePopulator struct {
	DB        *connector.DatabaseConnector
	BatchSize int

	// RoundIntegers stores int64 columns as integers. Without it they hold
	// uniformly sampled floats and are created with the float column type.
	RoundIntegers bool

	Logger *logrus.Logger
}

// NewTablePopulator creates a new table populator
func NewTablePopulator(db *connector.DatabaseConnector, logger *logrus.Logger) *TablePopulator {
	return &TablePopulator{
		DB:        db,
		BatchSize: DefaultBatchSize,
		Logger:    logger,
	}
}

// storedType is the type a column is stored as
func (tp *TablePopulator) storedType(col models.ColumnProfile) models.DeducedType {
	t := col.Type()
	if t == models.Int64 && !tp.RoundIntegers {
		return models.Float64
	}
	return t
}

// CreateTableSQL returns the CREATE TABLE statement for schema
func (tp *TablePopulator) CreateTableSQL(table string, schema *models.Schema) string {
	d := tp.DB.Dialect

	defs := make([]string, 0, len(schema.Columns))
	for _, col := range schema.Columns {
		def := fmt.Sprintf("%s %s", d.Quote(col.Name), d.ColumnType(tp.storedType(col)))
		if !col.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(table), strings.Join(defs, ", "))
}

// CreateTable creates table with one column per schema column. With replace,
// an existing table of the same name is dropped first.
func (tp *TablePopulator) CreateTable(table string, schema *models.Schema, replace bool) error {
	if len(schema.Columns) == 0 {
		return fmt.Errorf("cannot create table %s without columns", table)
	}

	if replace {
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", tp.DB.Dialect.Quote(table))
		if _, err := tp.DB.ExecuteStatement(dropSQL); err != nil {
			return fmt.Errorf("could not drop table %s: %w", table, err)
		}
	}

	if _, err := tp.DB.ExecuteStatement(tp.CreateTableSQL(table, schema)); err != nil {
		return fmt.Errorf("could not create table %s: %w", table, err)
	}

	tp.Logger.Infof("Created table %s with %d columns", table, len(schema.Columns))
	return nil
}

// InsertSQL returns the parameterised INSERT statement for one row
func (tp *TablePopulator) InsertSQL(table string, columns []string) string {
	d := tp.DB.Dialect

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table),
		strings.Join(quoted, ", "),
		strings.Join(d.Placeholders(len(columns)), ", "),
	)
}

// Populate inserts every row of ds into table in batches, converting values
// of numeric columns to numbers. It returns the number of rows inserted.
func (tp *TablePopulator) Populate(table string, schema *models.Schema, ds *models.Dataset) (int, error) {
	tp.Logger.Infof("Populating table: %s", table)

	if len(ds.Columns) == 0 {
		tp.Logger.Warningf("No columns to insert for table: %s", table)
		return 0, nil
	}

	types := make([]models.DeducedType, len(ds.Columns))
	for i, c := range ds.Columns {
		types[i] = models.Text
		if col, ok := schema.Lookup(c.Name); ok {
			types[i] = tp.storedType(col)
		}
	}

	batchSize := tp.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	insertSQL := tp.InsertSQL(table, ds.ColumnNames())
	numRows := ds.NumRows()
	inserted := 0

	var paramsList [][]interface{}
	for row := 0; row < numRows; row++ {
		params := make([]interface{}, len(ds.Columns))
		for i, c := range ds.Columns {
			params[i] = convertValue(c, row, types[i])
		}
		paramsList = append(paramsList, params)

		// Insert in batches
		if len(paramsList) >= batchSize || row == numRows-1 {
			if _, err := tp.DB.ExecuteMany(insertSQL, paramsList); err != nil {
				tp.Logger.Errorf("Error inserting data into table %s: %v", table, err)
				return inserted, fmt.Errorf("insert into %s: %w", table, err)
			}
			inserted += len(paramsList)
			tp.Logger.Debugf("Inserted %d/%d rows into %s", inserted, numRows, table)
			paramsList = nil
		}
	}

	tp.Logger.Infof("Successfully populated table %s with %d records", table, inserted)
	return inserted, nil
}

func convertValue(c models.Column, row int, t models.DeducedType) interface{} {
	if row >= len(c.Values) || !c.Values[row].Valid {
		return nil
	}
	s := c.Values[row].String

	switch t {
	case models.Int64:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case models.Float64:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// VerifyRowCount compares the number of rows in table with expected
func (tp *TablePopulator) VerifyRowCount(table string, expected int) (models.VerificationResult, error) {
	result := models.VerificationResult{Table: table, Expected: expected}

	rows, err := tp.DB.ExecuteQuery(fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", tp.DB.Dialect.Quote(table)))
	if err != nil {
		return result, fmt.Errorf("count rows in %s: %w", table, err)
	}
	if len(rows) != 1 {
		return result, fmt.Errorf("count rows in %s: expected one result row, got %d", table, len(rows))
	}

	n, err := toInt64(rows[0]["n"])
	if err != nil {
		return result, fmt.Errorf("count rows in %s: %w", table, err)
	}

	result.Actual = n
	result.Success = n == int64(expected)
	if result.Success {
		tp.Logger.Infof("Table %s has the expected %d rows", table, expected)
	} else {
		tp.Logger.Warningf("Table %s has %d rows, expected %d", table, n, expected)
	}
	return result, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count value %v (%T)", v, v)
	}
}
