package authdb

import (
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported authority database drivers.
const (
	DriverOracle   = "oracle"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// dialect carries the database/sql driver name and the lookup queries in the
// driver's placeholder style. "offset" is a keyword in SQLite and PostgreSQL
// and is quoted there.
type dialect struct {
	driverName  string
	defaultPort int
	idQuery     string
	uriQuery    string
}

var dialects = map[string]dialect{
	DriverOracle: {
		driverName:  "oracle",
		defaultPort: 1521,
		idQuery:     `SELECT authority_id FROM authority WHERE authority_key = :1`,
		uriQuery: `SELECT authorved.tag FROM authorved
			LEFT JOIN authority ON authorved.offset = authority.ved_offset
			WHERE authority.authority_id = :1 AND authorved.tag_number = :2`,
	},
	DriverPostgres: {
		driverName:  "pgx",
		defaultPort: 5432,
		idQuery:     `SELECT authority_id FROM authority WHERE authority_key = $1`,
		uriQuery: `SELECT authorved.tag FROM authorved
			LEFT JOIN authority ON authorved."offset" = authority.ved_offset
			WHERE authority.authority_id = $1 AND authorved.tag_number = $2`,
	},
	DriverSQLite: {
		driverName: "sqlite3",
		idQuery:    `SELECT authority_id FROM authority WHERE authority_key = ?`,
		uriQuery: `SELECT authorved.tag FROM authorved
			LEFT JOIN authority ON authorved."offset" = authority.ved_offset
			WHERE authority.authority_id = ? AND authorved.tag_number = ?`,
	},
}

// Drivers lists the supported driver names.
func Drivers() []string {
	return []string{DriverOracle, DriverPostgres, DriverSQLite}
}
