package sqlstore

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Dialect captures what differs between the supported SQL engines.
type Dialect struct {
	Name         string
	Driver       string
	GooseDialect string
	Placeholder  sq.PlaceholderFormat
	// LockRows appends FOR UPDATE to reads made inside a commit.
	LockRows bool
}

var (
	Postgres = Dialect{
		Name:         "postgres",
		Driver:       "pgx",
		GooseDialect: "pgx",
		Placeholder:  sq.Dollar,
		LockRows:     true,
	}
	SQLite = Dialect{
		Name:         "sqlite",
		Driver:       "sqlite",
		GooseDialect: "sqlite3",
		Placeholder:  sq.Question,
	}
)

// DialectByName maps a configured backend name to its dialect.
func DialectByName(name string) (Dialect, error) {
	switch name {
	case Postgres.Name:
		return Postgres, nil
	case SQLite.Name:
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unknown sql dialect %q", name)
}

func (d Dialect) migrationsDir() string {
	return d.Name
}

// fieldEquals is a predicate comparing a top-level JSON string field.
func (d Dialect) fieldEquals(field, value string) sq.Sqlizer {
	if d.Name == Postgres.Name {
		return sq.Expr("data->>? = ?", field, value)
	}
	return sq.Expr("json_extract(data, ?) = ?", "$."+field, value)
}

// jsonValue wraps encoded document data for insertion.
func (d Dialect) jsonValue(text string) any {
	if d.Name == Postgres.Name {
		return sq.Expr("CAST(? AS JSONB)", text)
	}
	return text
}
