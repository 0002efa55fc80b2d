// Package db manages the lotkeeper PostgreSQL connection. Unlike the
// usual module-scoped singleton, the handle is constructed once by the
// process bootstrap and injected into whatever needs it.
package db

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	sqlmock "gopkg.in/DATA-DOG/go-sqlmock.v1"

	"github.com/templestuart/lotkeeper/env"
	"github.com/templestuart/lotkeeper/log"
)

// ForUpdate is passed as a gorm query option to take row locks on the
// rows a transaction is about to rewrite.
const ForUpdate = "FOR UPDATE"

/*
New opens the database connection using PG* environment variables.
Optionally pass in a map of options, such as:

	[PGHOST]localhost
	[PGUSER]postgres
	[PGDATABASE]testdb

These will override the settings made via environment variables.
*/
func New(optionsList ...map[string]string) (*gorm.DB, error) {
	sslmode := env.GetVar("PGSSLMODE")
	host := env.GetVar("PGHOST")
	user := env.GetVar("PGUSER")
	dbname := env.GetVar("PGDATABASE")
	password := env.GetVar("PGPASSWORD")
	logDBString := env.GetVar("LOG_DB")
	maxOpenConns := env.GetVar("DB_MAX_OPEN_CONNS")
	maxIdleConns := env.GetVar("DB_MAX_IDLE_CONNS")

	if len(optionsList) != 0 {
		for key, val := range optionsList[0] {
			switch key {
			case "PGHOST":
				host = val
			case "PGUSER":
				user = val
			case "PGDATABASE":
				dbname = val
			case "PGPASSWORD":
				password = val
			case "SSLMODE":
				sslmode = val
			case "LOG_DB":
				logDBString = val
			case "DB_MAX_OPEN_CONNS":
				maxOpenConns = val
			case "DB_MAX_IDLE_CONNS":
				maxIdleConns = val
			}
		}
	}

	if sslmode == "" {
		sslmode = "disable"
	}

	params := fmt.Sprintf(
		"host=%v user=%v dbname=%v sslmode=%v password=%v",
		host, user, dbname, sslmode, password,
	)

	conn, err := gorm.Open("postgres", params)
	if err != nil {
		return nil, errors.Wrap(err, "database connection failure")
	}

	// default = 20 (Go's default is 0 == unlimited)
	conn.DB().SetMaxOpenConns(20)
	if maxOpenConns != "" {
		n, err := strconv.Atoi(maxOpenConns)
		if err != nil {
			log.Warn("parse error DB_MAX_OPEN_CONNS", "error", err)
		} else {
			conn.DB().SetMaxOpenConns(n)
		}
	}

	if maxIdleConns != "" {
		n, err := strconv.Atoi(maxIdleConns)
		if err != nil {
			log.Warn("parse error DB_MAX_IDLE_CONNS", "error", err)
		} else {
			conn.DB().SetMaxIdleConns(n)
		}
	}

	// so it doesn't reuse stale connections
	conn.DB().SetConnMaxLifetime(30 * time.Minute)

	logDB, _ := strconv.ParseBool(logDBString)
	conn.LogMode(logDB)

	return conn, nil
}

// Mock opens a sqlmock-backed connection.
// Used for testing only.
func Mock() (*gorm.DB, sqlmock.Sqlmock) {
	_, mock, err := sqlmock.NewWithDSN("sqlmock_db_0")
	if err != nil {
		panic("failed to mock db")
	}
	conn, err := gorm.Open("sqlmock", "sqlmock_db_0")
	if err != nil {
		panic("failed to open mocked db")
	}
	return conn, mock
}

// IsConnectionError returns true if the supplied error
// is a connection related error based on PostgreSQL
// connection exceptions class. See:
// http://www.postgresql.org/docs/9.4/static/errcodes-appendix.html#ERRCODES-TABLE
// for details.
func IsConnectionError(err error) bool {
	return pqErrorCode(err) == "08"
}

func InsufficientResources(err error) bool {
	return pqErrorCode(err) == "53"
}

func pqErrorCode(err error) pq.ErrorCode {
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return pqErr.Code[0:2]
		}
	}
	return ""
}
