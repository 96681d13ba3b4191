// Package warehouse is the gateway to the tabular event store that checks
// query. It runs SQL, introspects the target table, and nothing else: no
// retries and no interpretation of driver errors.
package warehouse

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/vigil/am"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/logger"
)

// Driver names as registered with database/sql
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Store executes queries and describes the target table.
type Store interface {
	Query(ctx context.Context, sql string) (ResultSet, error)
	DescribeSchema(ctx context.Context) ([]Column, error)
	TableRef() TableRef
}

// TableInfo is metadata about the target table used as classifier context.
type TableInfo struct {
	RowCount int64    `json:"row_count"`
	Schema   []Column `json:"schema"`
}

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	ref     TableRef
	logger  *zap.SugaredLogger
}

// New wraps an open database. driver selects the SQL dialect.
func New(db *sql.DB, driver string, ref TableRef) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, errors.NewConfigError("unsupported warehouse driver %q", driver)
	}
	return &SQLStore{
		db:      db,
		dialect: d,
		ref:     ref,
		logger:  logger.ComponentLogger("warehouse"),
	}, nil
}

// Open connects to the store described by cfg and pings it.
func Open(ctx context.Context, cfg am.WarehouseConfig) (*SQLStore, error) {
	if _, ok := dialects[cfg.Driver]; !ok {
		return nil, errors.NewConfigError("unsupported warehouse driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.WrapQuery(err, "open warehouse")
	}

	if cfg.Driver == DriverSQLite {
		// Checks only read; one connection avoids lock contention on the file
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.WrapQuery(err, "ping warehouse")
	}

	store, err := New(db, cfg.Driver, TableRefFromConfig(cfg))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.logger.Debugw("Warehouse opened", logger.FieldDriver, cfg.Driver, logger.FieldTable, store.ref.String())
	return store, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// TableRef returns the target table reference.
func (s *SQLStore) TableRef() TableRef {
	return s.ref
}

// Query runs sql and returns every row in driver order. Any driver failure is
// a query error carrying the driver's message unchanged.
func (s *SQLStore) Query(ctx context.Context, query string) (ResultSet, error) {
	start := time.Now()
	rs, err := s.query(ctx, query)
	if err != nil {
		return nil, err
	}
	s.logger.Debugw("Query executed",
		logger.FieldRowCount, len(rs),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return rs, nil
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryError(ctx, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, queryError(ctx, err)
	}

	rs := ResultSet{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, queryError(ctx, err)
		}
		for i := range values {
			values[i] = normalizeValue(values[i])
		}
		rs = append(rs, Row{Columns: cols, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, err)
	}
	return rs, nil
}

func queryError(ctx context.Context, err error) error {
	wrapped := errors.WrapQuery(err, "execute query")
	if ctx.Err() == context.DeadlineExceeded {
		wrapped = errors.Mark(wrapped, errors.ErrTimeout)
	}
	return wrapped
}

// DescribeSchema returns the target table's columns in declared order.
// A missing table is a schema error.
func (s *SQLStore) DescribeSchema(ctx context.Context) ([]Column, error) {
	query, args := s.dialect.describe(s.ref)
	rs, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapSchema(err, "describe "+s.ref.String())
	}

	cols := make([]Column, 0, len(rs))
	for _, row := range rs {
		name, _ := row.Get("name")
		typ, _ := row.Get("type")
		cols = append(cols, Column{Name: toString(name), Type: toString(typ)})
	}
	if len(cols) == 0 {
		return nil, errors.NewSchemaError("table %s not found", s.ref.String())
	}
	return cols, nil
}

// TableInfo returns the row count and schema of the target table.
func (s *SQLStore) TableInfo(ctx context.Context) (*TableInfo, error) {
	schema, err := s.DescribeSchema(ctx)
	if err != nil {
		return nil, err
	}

	rs, err := s.query(ctx, "SELECT COUNT(*) AS row_count FROM "+s.ref.quoted())
	if err != nil {
		return nil, err
	}

	var count int64
	if len(rs) == 1 {
		count = toInt64(rs[0].Values[0])
	}
	return &TableInfo{RowCount: count, Schema: schema}, nil
}

// EventVolume returns per-day event and unique user counts over the last
// lookbackDays. The table must carry event_date (YYYYMMDD text) and
// user_pseudo_id columns.
func (s *SQLStore) EventVolume(ctx context.Context, lookbackDays int) (ResultSet, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays).Format("20060102")
	query := "SELECT event_date, COUNT(*) AS event_count, COUNT(DISTINCT user_pseudo_id) AS unique_users" +
		" FROM " + s.ref.quoted() +
		" WHERE event_date >= " + s.dialect.placeholder(1) +
		" GROUP BY event_date ORDER BY event_date"
	return s.query(ctx, query, cutoff)
}
