package connector

import (
	"database/sql"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/csv-synth/pkg/models"
	_ "modernc.org/sqlite"
)

// DatabaseConnector handles database connection and query execution
type DatabaseConnector struct {
	Driver  string
	DSN     string
	Dialect Dialect
	DB      *sql.DB
	Logger  *logrus.Logger
}

// NewDatabaseConnector creates a new database connector. Empty arguments fall
// back to CSV_SYNTH_DB_DRIVER and CSV_SYNTH_DB_DSN; a MySQL DSN can also be
// assembled from the MYSQL_* variables.
func NewDatabaseConnector(driver, dsn string, logger *logrus.Logger) *DatabaseConnector {
	if driver == "" {
		driver = getEnvOrDefault("CSV_SYNTH_DB_DRIVER", "mysql")
	}
	if dsn == "" {
		dsn = getEnvOrDefault("CSV_SYNTH_DB_DSN", "")
	}

	dialect, err := LookupDialect(driver)
	if err == nil && dialect.Name == "mysql" && dsn == "" {
		dsn = mysqlDSNFromEnv()
	}

	return &DatabaseConnector{
		Driver:  driver,
		DSN:     dsn,
		Dialect: dialect,
		Logger:  logger,
	}
}

// mysqlDSNFromEnv builds a DSN from MYSQL_HOST, MYSQL_PORT, MYSQL_USER,
// MYSQL_PASSWORD and MYSQL_DATABASE. It returns "" when no database is named.
func mysqlDSNFromEnv() string {
	database := getEnvOrDefault("MYSQL_DATABASE", "")
	if database == "" {
		return ""
	}

	cfg := mysql.NewConfig()
	cfg.User = getEnvOrDefault("MYSQL_USER", "root")
	cfg.Passwd = getEnvOrDefault("MYSQL_PASSWORD", "")
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(getEnvOrDefault("MYSQL_HOST", "localhost"), getEnvOrDefault("MYSQL_PORT", "3306"))
	cfg.DBName = database
	return cfg.FormatDSN()
}

// Connect opens and pings the database
func (dc *DatabaseConnector) Connect() error {
	if dc.Dialect.Name == "" {
		dialect, err := LookupDialect(dc.Driver)
		if err != nil {
			return err
		}
		dc.Dialect = dialect
	}
	if dc.DSN == "" {
		return fmt.Errorf("a DSN must be provided either with --dsn or as CSV_SYNTH_DB_DSN environment variable")
	}

	db, err := sql.Open(dc.Dialect.Name, dc.DSN)
	if err != nil {
		dc.Logger.Errorf("Error connecting to %s database: %v", dc.Dialect.Name, err)
		return err
	}

	// SQLite allows a single writer
	if dc.Dialect.Name == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	// Test the connection
	err = db.Ping()
	if err != nil {
		dc.Logger.Errorf("Error pinging %s database: %v", dc.Dialect.Name, err)
		db.Close()
		return err
	}

	dc.DB = db
	dc.Logger.Infof("Connected to %s database", dc.Dialect.Name)
	return nil
}

// Disconnect closes the database connection
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB != nil {
		err := dc.DB.Close()
		if err != nil {
			dc.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			dc.Logger.Infof("%s connection closed", dc.Dialect.Name)
		}
		dc.DB = nil
	}
}

func (dc *DatabaseConnector) ensureConnected() error {
	if dc.DB == nil {
		return dc.Connect()
	}
	return nil
}

// scanAll runs query and hands the result column names to prepare, which
// returns the function called for every row, positioned for Scan.
func (dc *DatabaseConnector) scanAll(query string, params []interface{}, prepare func(columns []string) func(rows *sql.Rows) error) error {
	if err := dc.ensureConnected(); err != nil {
		return err
	}

	rows, err := dc.DB.Query(query, params...)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("reading result columns: %w", err)
	}

	onRow := prepare(columns)
	for rows.Next() {
		if err := onRow(rows); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}
	}
	return rows.Err()
}

// ExecuteQuery executes a SQL query and returns each row as a map keyed by
// column name. Byte slices are returned as strings.
func (dc *DatabaseConnector) ExecuteQuery(query string, params ...interface{}) ([]map[string]interface{}, error) {
	var results []map[string]interface{}

	err := dc.scanAll(query, params, func(columns []string) func(*sql.Rows) error {
		return func(rows *sql.Rows) error {
			cells := make([]interface{}, len(columns))
			targets := make([]interface{}, len(columns))
			for i := range cells {
				targets[i] = &cells[i]
			}
			if err := rows.Scan(targets...); err != nil {
				return err
			}

			record := make(map[string]interface{}, len(columns))
			for i, name := range columns {
				if b, ok := cells[i].([]byte); ok {
					record[name] = string(b)
					continue
				}
				record[name] = cells[i]
			}
			results = append(results, record)
			return nil
		}
	})
	if err != nil {
		dc.Logger.Errorf("Error executing query: %v", err)
		return nil, err
	}

	return results, nil
}

// ReadTable reads a table into a dataset, keeping the column order of the
// table. Every value is read in its string form (see cellString) and SQL NULL
// becomes a missing value. A positive limit caps the number of rows read.
func (dc *DatabaseConnector) ReadTable(table string, limit int) (*models.Dataset, error) {
	ds := &models.Dataset{}

	err := dc.scanAll(dc.Dialect.SelectAll(table, limit), nil, func(columns []string) func(*sql.Rows) error {
		ds.Columns = make([]models.Column, len(columns))
		cells := make([]interface{}, len(columns))
		targets := make([]interface{}, len(columns))
		for i, name := range columns {
			ds.Columns[i].Name = name
			targets[i] = &cells[i]
		}

		return func(rows *sql.Rows) error {
			if err := rows.Scan(targets...); err != nil {
				return err
			}
			for i := range cells {
				ds.Columns[i].Values = append(ds.Columns[i].Values, cellString(cells[i]))
			}
			return nil
		}
	})
	if err != nil {
		dc.Logger.Errorf("Error reading table %s: %v", table, err)
		return nil, err
	}

	dc.Logger.Infof("Read %d rows from table %s", ds.NumRows(), table)
	return ds, nil
}

// cellString renders a scanned value the way it would appear in a CSV export.
// Dates and timestamps use "2006-01-02" when the time of day is zero and
// "2006-01-02 15:04:05" otherwise, so they match the analyzer's date formats.
func cellString(v interface{}) sql.NullString {
	var s string
	switch x := v.(type) {
	case nil:
		return sql.NullString{}
	case string:
		s = x
	case []byte:
		s = string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			s = x.Format("2006-01-02")
		} else {
			s = x.Format("2006-01-02 15:04:05")
		}
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		s = strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		s = strconv.FormatBool(x)
	default:
		s = fmt.Sprint(x)
	}
	return sql.NullString{String: s, Valid: true}
}

// ExecuteStatement executes a SQL statement and returns the number of affected rows
func (dc *DatabaseConnector) ExecuteStatement(query string, params ...interface{}) (int64, error) {
	if err := dc.ensureConnected(); err != nil {
		return 0, err
	}

	result, err := dc.DB.Exec(query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing statement: %v", err)
		return 0, err
	}

	return result.RowsAffected()
}

// ExecuteMany runs one prepared statement per parameter set inside a single
// transaction. Any failure rolls back the whole set.
func (dc *DatabaseConnector) ExecuteMany(query string, paramsList [][]interface{}) (int64, error) {
	if err := dc.ensureConnected(); err != nil {
		return 0, err
	}

	tx, err := dc.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	affected, err := execPrepared(tx, query, paramsList)
	if err != nil {
		dc.Logger.Errorf("Error executing batch, rolling back: %v", err)
		if rbErr := tx.Rollback(); rbErr != nil {
			dc.Logger.Warnf("Rollback failed: %v", rbErr)
		}
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return affected, nil
}

func execPrepared(tx *sql.Tx, query string, paramsList [][]interface{}) (int64, error) {
	stmt, err := tx.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	var total int64
	for i, params := range paramsList {
		result, err := stmt.Exec(params...)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
