// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/schema"
	"github.com/wontakkang/xgtcore/pkg/xgterrors"
)

// BucketRepository persists the four resolution tables with upsert
// semantics on (timestamp, var_id), using a NamedExec idiom and a
// StmtCache-backed squirrel query builder.
type BucketRepository struct {
	DB        *sqlx.DB
	driver    string
	stmtCache *sq.StmtCache
	mu        sync.Mutex
}

var (
	bucketRepoOnce     sync.Once
	bucketRepoInstance *BucketRepository
)

// GetBucketRepository returns the process-wide BucketRepository, built
// from the connection established via Connect.
func GetBucketRepository() *BucketRepository {
	bucketRepoOnce.Do(func() {
		db := GetConnection()
		bucketRepoInstance = &BucketRepository{
			DB:        db.DB,
			driver:    db.Driver,
			stmtCache: sq.NewStmtCache(db.DB),
		}
	})
	return bucketRepoInstance
}

// Upsert writes row to table(resolution) with ON DUPLICATE KEY UPDATE /
// ON CONFLICT semantics keyed on (timestamp, var_id). A failure here is
// a ConsistencyError: logged and the row is skipped, it never aborts the
// aggregation job.
func (r *BucketRepository) Upsert(ctx context.Context, resolution schema.Resolution, row *schema.BucketRow) error {
	table := resolution.Table()
	if table == "" {
		return xgterrors.NewValidation("repository.Upsert", fmt.Sprintf("unknown resolution %q", resolution))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	builder := sq.Insert(table).
		Columns("timestamp", "client_id", "group_id", "var_id", "value", "value_type",
			"min_value", "max_value", "avg_value", "sum_value", "count", "created_at", "updated_at").
		Values(row.Timestamp, row.ClientID, row.GroupID, row.VarID, row.Value, row.ValueType,
			row.MinValue, row.MaxValue, row.AvgValue, row.SumValue, row.Count, row.CreatedAt, row.UpdatedAt)

	switch r.driver {
	case "mysql":
		builder = builder.Suffix(`ON DUPLICATE KEY UPDATE
			client_id = VALUES(client_id), group_id = VALUES(group_id), value = VALUES(value),
			value_type = VALUES(value_type), min_value = VALUES(min_value), max_value = VALUES(max_value),
			avg_value = VALUES(avg_value), sum_value = VALUES(sum_value), count = VALUES(count),
			updated_at = VALUES(updated_at)`)
	default: // sqlite3
		builder = builder.Suffix(`ON CONFLICT(timestamp, var_id) DO UPDATE SET
			client_id = excluded.client_id, group_id = excluded.group_id, value = excluded.value,
			value_type = excluded.value_type, min_value = excluded.min_value, max_value = excluded.max_value,
			avg_value = excluded.avg_value, sum_value = excluded.sum_value, count = excluded.count,
			updated_at = excluded.updated_at`)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return xgterrors.NewConsistency(fmt.Sprintf("building upsert for %s: %v", table, err))
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Errorf("repository: upsert into %s failed: %v", table, err)
		return xgterrors.NewConsistency(fmt.Sprintf("upsert into %s: %v", table, err))
	}
	return nil
}

// ReadRange returns every row of table(resolution) with timestamp in
// [from, to), used by the 10-min/hourly/daily jobs to fold a
// lower-resolution table into their own bucket.
func (r *BucketRepository) ReadRange(ctx context.Context, resolution schema.Resolution, from, to int64) ([]schema.BucketRow, error) {
	table := resolution.Table()
	if table == "" {
		return nil, xgterrors.NewValidation("repository.ReadRange", fmt.Sprintf("unknown resolution %q", resolution))
	}

	query, args, err := sq.Select("timestamp", "client_id", "group_id", "var_id", "value", "value_type",
		"min_value", "max_value", "avg_value", "sum_value", "count", "created_at", "updated_at").
		From(table).
		Where(sq.GtOrEq{"timestamp": from}).
		Where(sq.Lt{"timestamp": to}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []schema.BucketRow
	if err := r.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("repository.ReadRange(%s): %w", table, err)
	}
	return rows, nil
}
