// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"encoding/json"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/schema"
)

// ClientConfigRepository persists SocketClientConfig as a row keyed by
// id with the variable parts of it (blocks, cron, memory_groups) folded
// into one JSON column, a structured-but-schemaless column idiom for
// nested config shapes that don't warrant their own tables.
type ClientConfigRepository struct {
	DB        *sqlx.DB
	stmtCache *sq.StmtCache
}

var (
	clientConfigRepoOnce     sync.Once
	clientConfigRepoInstance *ClientConfigRepository
)

func GetClientConfigRepository() *ClientConfigRepository {
	clientConfigRepoOnce.Do(func() {
		db := GetConnection()
		clientConfigRepoInstance = &ClientConfigRepository{
			DB:        db.DB,
			stmtCache: sq.NewStmtCache(db.DB),
		}
	})
	return clientConfigRepoInstance
}

type clientConfigRow struct {
	ID         int64  `db:"id"`
	Host       string `db:"host"`
	Port       int    `db:"port"`
	IsUsed     bool   `db:"is_used"`
	ConfigJSON string `db:"config_json"`
}

func toRow(cfg *schema.SocketClientConfig) (clientConfigRow, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return clientConfigRow{}, err
	}
	return clientConfigRow{ID: cfg.ID, Host: cfg.Host, Port: cfg.Port, IsUsed: cfg.IsUsed, ConfigJSON: string(raw)}, nil
}

func fromRow(row clientConfigRow) (*schema.SocketClientConfig, error) {
	cfg := &schema.SocketClientConfig{}
	if err := json.Unmarshal([]byte(row.ConfigJSON), cfg); err != nil {
		return nil, err
	}
	cfg.ID = row.ID
	cfg.Host = row.Host
	cfg.Port = row.Port
	cfg.IsUsed = row.IsUsed
	return cfg, nil
}

// Save inserts or replaces cfg keyed by cfg.ID.
func (r *ClientConfigRepository) Save(cfg *schema.SocketClientConfig) error {
	row, err := toRow(cfg)
	if err != nil {
		return err
	}
	_, err = r.DB.NamedExec(`
		INSERT INTO socket_client_config (id, host, port, is_used, config_json)
		VALUES (:id, :host, :port, :is_used, :config_json)
		ON CONFLICT(id) DO UPDATE SET host = excluded.host, port = excluded.port,
			is_used = excluded.is_used, config_json = excluded.config_json`, row)
	if err != nil {
		log.Errorf("repository: saving client config %d failed: %v", cfg.ID, err)
	}
	return err
}

// Get loads one SocketClientConfig by id.
func (r *ClientConfigRepository) Get(id int64) (*schema.SocketClientConfig, error) {
	var row clientConfigRow
	if err := sq.Select("id", "host", "port", "is_used", "config_json").
		From("socket_client_config").Where(sq.Eq{"id": id}).
		RunWith(r.stmtCache).QueryRow().Scan(&row.ID, &row.Host, &row.Port, &row.IsUsed, &row.ConfigJSON); err != nil {
		return nil, err
	}
	return fromRow(row)
}

// ListUsed returns every SocketClientConfig with is_used = true, the
// set the scheduler registers a polling job for at startup.
func (r *ClientConfigRepository) ListUsed() ([]*schema.SocketClientConfig, error) {
	rows, err := sq.Select("id", "host", "port", "is_used", "config_json").
		From("socket_client_config").Where(sq.Eq{"is_used": true}).
		RunWith(r.DB).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*schema.SocketClientConfig
	for rows.Next() {
		var row clientConfigRow
		if err := rows.Scan(&row.ID, &row.Host, &row.Port, &row.IsUsed, &row.ConfigJSON); err != nil {
			return nil, err
		}
		cfg, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}
