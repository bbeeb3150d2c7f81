// Package postgres opens a field set cache in a PostgreSQL database.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/neoscript99/go-gql-domain/pkg/fieldcache"
)

// Open connects to dsn and prepares the cache table.
func Open(ctx context.Context, dsn, endpoint string, maxAge time.Duration) (*fieldcache.SQL, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := fieldcache.NewSQL(ctx, db, fieldcache.PlaceholderDollar, endpoint, maxAge)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}
