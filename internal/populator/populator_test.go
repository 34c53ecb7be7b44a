package populator

import (
	"database/sql"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/csv-synth/internal/connector"
	"github.com/vitebski/csv-synth/pkg/models"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func testSchema() *models.Schema {
	return &models.Schema{Columns: []models.ColumnProfile{
		{Name: "id", Profile: models.NumericProfile{Integer: true, Min: 1, Max: 500}},
		{Name: "status", Nullable: true, Profile: models.CategoricalProfile{Categories: []string{"A", "B"}}},
		{Name: "notes", Profile: models.TextProfile{Count: 3}},
	}}
}

func testDataset(rows int) *models.Dataset {
	ds := &models.Dataset{Columns: []models.Column{{Name: "id"}, {Name: "status"}, {Name: "notes"}}}
	for i := 0; i < rows; i++ {
		ds.Columns[0].Values = append(ds.Columns[0].Values, sql.NullString{String: strconv.Itoa(i + 1), Valid: true})
		status := sql.NullString{String: "A", Valid: true}
		if i%10 == 0 {
			status = sql.NullString{}
		}
		ds.Columns[1].Values = append(ds.Columns[1].Values, status)
		ds.Columns[2].Values = append(ds.Columns[2].Values, sql.NullString{String: "No value", Valid: true})
	}
	return ds
}

func newSQLitePopulator(t *testing.T) *TablePopulator {
	t.Helper()
	db := connector.NewDatabaseConnector("sqlite", filepath.Join(t.TempDir(), "populate.db"), createTestLogger())
	require.NoError(t, db.Connect())
	t.Cleanup(db.Disconnect)
	return NewTablePopulator(db, createTestLogger())
}

func TestNewTablePopulator(t *testing.T) {
	tp := NewTablePopulator(nil, createTestLogger())
	if tp.BatchSize != DefaultBatchSize {
		t.Errorf("Expected batch size %d, got %d", DefaultBatchSize, tp.BatchSize)
	}
}

func TestCreateTableSQL(t *testing.T) {
	dialect, err := connector.LookupDialect("mysql")
	require.NoError(t, err)
	tp := NewTablePopulator(&connector.DatabaseConnector{Dialect: dialect}, createTestLogger())

	assert.Equal(t,
		"CREATE TABLE `synth` (`id` DOUBLE NOT NULL, `status` VARCHAR(255), `notes` TEXT NOT NULL)",
		tp.CreateTableSQL("synth", testSchema()))

	tp.RoundIntegers = true
	assert.Contains(t, tp.CreateTableSQL("synth", testSchema()), "`id` BIGINT NOT NULL")

	assert.Equal(t, "INSERT INTO `synth` (`id`, `status`) VALUES (?, ?)", tp.InsertSQL("synth", []string{"id", "status"}))
}

func TestPopulateBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dialect, err := connector.LookupDialect("mysql")
	require.NoError(t, err)
	tp := NewTablePopulator(&connector.DatabaseConnector{Dialect: dialect, DB: db, Logger: createTestLogger()}, createTestLogger())
	tp.BatchSize = 2

	for _, batch := range []int{2, 1} {
		mock.ExpectBegin()
		prep := mock.ExpectPrepare("INSERT INTO")
		for i := 0; i < batch; i++ {
			prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectCommit()
	}

	n, err := tp.Populate("synth", testSchema(), testDataset(3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPopulateSQLite(t *testing.T) {
	tp := newSQLitePopulator(t)
	tp.RoundIntegers = true

	require.NoError(t, tp.CreateTable("synth", testSchema(), false))

	n, err := tp.Populate("synth", testSchema(), testDataset(250))
	require.NoError(t, err)
	assert.Equal(t, 250, n)

	result, err := tp.VerifyRowCount("synth", 250)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(250), result.Actual)

	rows, err := tp.DB.ExecuteQuery(`SELECT MAX("id") AS m, COUNT("status") AS s FROM "synth"`)
	require.NoError(t, err)
	assert.Equal(t, int64(250), rows[0]["m"])
	assert.Equal(t, int64(225), rows[0]["s"])

	// Creating again fails unless the table is replaced
	assert.Error(t, tp.CreateTable("synth", testSchema(), false))
	require.NoError(t, tp.CreateTable("synth", testSchema(), true))

	result, err = tp.VerifyRowCount("synth", 250)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, int64(0), result.Actual)
}

func TestPopulateRejectsNotNullViolation(t *testing.T) {
	tp := newSQLitePopulator(t)

	schema := &models.Schema{Columns: []models.ColumnProfile{
		{Name: "v", Profile: models.NumericProfile{Min: 0, Max: 1}},
	}}
	require.NoError(t, tp.CreateTable("strict", schema, false))

	ds := &models.Dataset{Columns: []models.Column{{Name: "v", Values: []sql.NullString{{String: "0.5", Valid: true}, {}}}}}
	_, err := tp.Populate("strict", schema, ds)
	assert.Error(t, err)

	// The failed batch is rolled back as a whole
	result, err := tp.VerifyRowCount("strict", 0)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestConvertValue(t *testing.T) {
	col := models.Column{Values: []sql.NullString{{String: "42", Valid: true}, {String: "1.5", Valid: true}, {}}}

	assert.Equal(t, int64(42), convertValue(col, 0, models.Int64))
	assert.Equal(t, "1.5", convertValue(col, 1, models.Int64))
	assert.Equal(t, 1.5, convertValue(col, 1, models.Float64))
	assert.Equal(t, "42", convertValue(col, 0, models.Categorical))
	assert.Nil(t, convertValue(col, 2, models.Float64))
	assert.Nil(t, convertValue(col, 5, models.Text))
}
