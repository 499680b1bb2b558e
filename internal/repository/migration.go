// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/wontakkang/xgtcore/pkg/log"
)

const supportedVersion uint = 1

//go:embed migrations/*
var migrationFiles embed.FS

func newMigrate(backend string, db *sql.DB) (*migrate.Migrate, error) {
	switch backend {
	case "sqlite3":
		driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
		if err != nil {
			return nil, err
		}
		d, err := iofs.New(migrationFiles, "migrations/sqlite3")
		if err != nil {
			return nil, err
		}
		return migrate.NewWithInstance("iofs", d, "sqlite3", driver)
	case "mysql":
		driver, err := mysql.WithInstance(db, &mysql.Config{})
		if err != nil {
			return nil, err
		}
		d, err := iofs.New(migrationFiles, "migrations/mysql")
		if err != nil {
			return nil, err
		}
		return migrate.NewWithInstance("iofs", d, "mysql", driver)
	default:
		return nil, fmt.Errorf("repository: unsupported backend %q", backend)
	}
}

func checkDBVersion(backend string, db *sql.DB) {
	m, err := newMigrate(backend, db)
	if err != nil {
		log.Fatal(err)
	}

	v, _, err := m.Version()
	if err != nil {
		if err == migrate.ErrNilVersion {
			log.Warn("repository: database has no migrations applied yet")
			return
		}
		log.Fatal(err)
	}

	if v < supportedVersion {
		log.Warnf("repository: database version %d behind supported %d, run with -migrate-db", v, supportedVersion)
	}
}

// MigrateDB applies every pending migration for backend.
func MigrateDB(backend string, dsn string) error {
	var m *migrate.Migrate
	var err error

	switch backend {
	case "sqlite3":
		d, ierr := iofs.New(migrationFiles, "migrations/sqlite3")
		if ierr != nil {
			return ierr
		}
		m, err = migrate.NewWithSourceInstance("iofs", d, fmt.Sprintf("sqlite3://%s?_foreign_keys=on", dsn))
	case "mysql":
		d, ierr := iofs.New(migrationFiles, "migrations/mysql")
		if ierr != nil {
			return ierr
		}
		m, err = migrate.NewWithSourceInstance("iofs", d, fmt.Sprintf("mysql://%s?multiStatements=true", dsn))
	default:
		return fmt.Errorf("repository: unsupported backend %q", backend)
	}
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
