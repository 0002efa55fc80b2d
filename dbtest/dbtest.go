// Package dbtest provides a testify suite that provisions a throwaway
// PostgreSQL database per suite run and migrates it to the current
// schema.
package dbtest

import (
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/suite"

	"github.com/templestuart/lotkeeper/db"
	"github.com/templestuart/lotkeeper/env"
	"github.com/templestuart/lotkeeper/migration"
)

type Suite struct {
	suite.Suite
	Conn       *gorm.DB
	DatabaseID *uuid.UUID
}

func (s *Suite) SetDatabaseID(id uuid.UUID) {
	if s.DatabaseID != nil {
		s.FailNowf("testing database ID already set", "database_id: %s", s.DatabaseID.String())
	}

	s.DatabaseID = &id
}

func (s *Suite) SetupDB() {
	id, conn := setup()
	s.SetDatabaseID(id)
	s.Conn = conn
}

func (s *Suite) TeardownDB() {
	s.Conn.Close()
	if err := dropTestDB(*s.DatabaseID); err != nil {
		panic(err)
	}
}

func setup() (uuid.UUID, *gorm.DB) {
	env.RegisterDefault("PGHOST", "127.0.0.1")
	env.RegisterDefault("PGUSER", "postgres")
	env.RegisterDefault("PGPASSWORD", "postgres")

	id := uuid.Must(uuid.NewV4())
	database := fmt.Sprintf("lktest_%s", id.String())

	if err := createTestDB(id); err != nil {
		panic(err)
	}

	conn, err := db.New(map[string]string{"PGDATABASE": database})
	if err != nil {
		panic(err)
	}

	if err := migration.Migration(conn).Migrate(); err != nil {
		panic(err)
	}

	return id, conn
}

func adminConn() (*gorm.DB, error) {
	params := fmt.Sprintf(
		"host=%v user=%v password=%v dbname=postgres sslmode=disable",
		env.GetVar("PGHOST"),
		env.GetVar("PGUSER"),
		env.GetVar("PGPASSWORD"),
	)

	return gorm.Open("postgres", params)
}

func createTestDB(id uuid.UUID) error {
	pgdb, err := adminConn()
	if err != nil {
		return err
	}

	defer func() {
		pgdb.Close()
	}()

	pgdb.Exec(fmt.Sprintf(`DROP DATABASE IF EXISTS "lktest_%s"`, id.String()))

	return pgdb.Exec(fmt.Sprintf(`CREATE DATABASE "lktest_%s"`, id.String())).Error
}

func dropTestDB(id uuid.UUID) error {
	pgdb, err := adminConn()
	if err != nil {
		return err
	}

	defer func() {
		pgdb.Close()
	}()

	return pgdb.Exec(fmt.Sprintf(`DROP DATABASE IF EXISTS "lktest_%s"`, id.String())).Error
}
