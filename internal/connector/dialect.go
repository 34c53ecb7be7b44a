package connector

import (
	"fmt"
	"strings"

	"github.com/vitebski/csv-synth/pkg/models"
)

// Dialect holds the SQL differences between the supported databases
type Dialect struct {
	// Name is the driver name passed to sql.Open
	Name string

	placeholder func(i int) string
	quote       func(ident string) string
	types       map[models.DeducedType]string
}

var dialects = map[string]Dialect{
	"mysql": {
		Name:        "mysql",
		placeholder: func(int) string { return "?" },
		quote:       func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" },
		types: map[models.DeducedType]string{
			models.Int64:       "BIGINT",
			models.Float64:     "DOUBLE",
			models.Categorical: "VARCHAR(255)",
			models.Date:        "VARCHAR(64)",
			models.Text:        "TEXT",
		},
	},
	"sqlite": {
		Name:        "sqlite",
		placeholder: func(int) string { return "?" },
		quote:       doubleQuote,
		types: map[models.DeducedType]string{
			models.Int64:       "INTEGER",
			models.Float64:     "REAL",
			models.Categorical: "TEXT",
			models.Date:        "TEXT",
			models.Text:        "TEXT",
		},
	},
	"pgx": {
		Name:        "pgx",
		placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
		quote:       doubleQuote,
		types: map[models.DeducedType]string{
			models.Int64:       "BIGINT",
			models.Float64:     "DOUBLE PRECISION",
			models.Categorical: "VARCHAR(255)",
			models.Date:        "VARCHAR(64)",
			models.Text:        "TEXT",
		},
	},
	"sqlserver": {
		Name:        "sqlserver",
		placeholder: func(i int) string { return fmt.Sprintf("@p%d", i) },
		quote:       func(s string) string { return "[" + strings.ReplaceAll(s, "]", "]]") + "]" },
		types: map[models.DeducedType]string{
			models.Int64:       "BIGINT",
			models.Float64:     "FLOAT",
			models.Categorical: "NVARCHAR(255)",
			models.Date:        "NVARCHAR(64)",
			models.Text:        "NVARCHAR(MAX)",
		},
	},
}

var driverAliases = map[string]string{
	"mysql":      "mysql",
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
	"pgx":        "pgx",
	"postgres":   "pgx",
	"postgresql": "pgx",
	"sqlserver":  "sqlserver",
	"mssql":      "sqlserver",
}

func doubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// LookupDialect resolves a driver name or alias
func LookupDialect(driver string) (Dialect, error) {
	name, ok := driverAliases[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
	return dialects[name], nil
}

// Quote quotes an identifier
func (d Dialect) Quote(ident string) string {
	return d.quote(ident)
}

// Placeholders returns n bind parameters starting at position 1
func (d Dialect) Placeholders(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = d.placeholder(i + 1)
	}
	return out
}

// ColumnType returns the SQL column type used to store values of t
func (d Dialect) ColumnType(t models.DeducedType) string {
	if s, ok := d.types[t]; ok {
		return s
	}
	return d.types[models.Text]
}

// SelectAll returns a query reading every column of table, limited to limit
// rows when limit is positive
func (d Dialect) SelectAll(table string, limit int) string {
	if limit <= 0 {
		return fmt.Sprintf("SELECT * FROM %s", d.Quote(table))
	}
	if d.Name == "sqlserver" {
		return fmt.Sprintf("SELECT TOP (%d) * FROM %s", limit, d.Quote(table))
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", d.Quote(table), limit)
}
