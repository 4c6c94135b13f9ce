package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-session-auth"
)

// Open connects to the sqlite database at dsn. With a logger every query is
// logged at Debug level.
func Open(dsn string, logger auth.Logger) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; one connection also keeps an
	// in-memory database alive and shared
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if logger != nil {
		db.AddQueryHook(queryLogger{logger: logger})
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

type queryLogger struct {
	logger auth.Logger
}

func (q queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (q queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil && event.Err != sql.ErrNoRows {
		q.logger.Warn("query failed after %s: %s: %v", time.Since(event.StartTime), event.Query, event.Err)
		return
	}
	q.logger.Debug("query %s: %s", time.Since(event.StartTime), event.Query)
}
