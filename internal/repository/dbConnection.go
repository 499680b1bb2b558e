// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package repository is the sqlx-backed persistence layer: the four
// aggregate bucket tables, the command/status log and control-value
// history, and SocketClientConfig storage.
package repository

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/wontakkang/xgtcore/pkg/log"
)

var (
	dbConnOnce     sync.Once
	dbConnInstance *DBConnection
)

// DBConnection wraps the sqlx handle plus the driver name, needed by
// callers that build driver-specific upsert SQL (sqlite3 and mysql use
// different ON CONFLICT / ON DUPLICATE KEY syntax).
type DBConnection struct {
	DB     *sqlx.DB
	Driver string
}

// Connect opens the database exactly once per process; GetConnection
// hands out the same handle afterwards.
func Connect(driver string, dsn string) {
	var err error
	var dbHandle *sqlx.DB

	dbConnOnce.Do(func() {
		switch driver {
		case "sqlite3":
			sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &Hooks{}))
			dbHandle, err = sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", dsn))
			if err != nil {
				log.Fatal(err)
			}
			// sqlite3 does not multithread; more than one connection just
			// waits on the same lock.
			dbHandle.SetMaxOpenConns(1)
		case "mysql":
			dbHandle, err = sqlx.Open("mysql", fmt.Sprintf("%s?multiStatements=true", dsn))
			if err != nil {
				log.Fatalf("sqlx.Open() error: %v", err)
			}
			dbHandle.SetConnMaxLifetime(3 * time.Minute)
			dbHandle.SetMaxOpenConns(10)
			dbHandle.SetMaxIdleConns(10)
		default:
			log.Fatalf("unsupported database driver: %s", driver)
		}

		dbConnInstance = &DBConnection{DB: dbHandle, Driver: driver}
		checkDBVersion(driver, dbHandle.DB)
	})
}

// GetConnection returns the process-wide connection established by
// Connect. Callers must call Connect first.
func GetConnection() *DBConnection {
	if dbConnInstance == nil {
		log.Fatal("repository: database connection not initialized")
	}
	return dbConnInstance
}
