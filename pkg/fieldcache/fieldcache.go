// Package fieldcache persists resolved field sets so a process can skip
// introspection for domains it has already resolved against an endpoint.
package fieldcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neoscript99/go-gql-domain/pkg/schema"
)

// PlaceholderStyle is the bind parameter syntax of a SQL dialect.
type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota // ?
	PlaceholderDollar                           // $1
)

// Memory is an in-process cache keyed by domain.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	maxAge  time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	fields  schema.FieldSet
	updated time.Time
}

// NewMemory returns a Memory cache. Entries older than maxAge are ignored;
// zero keeps them forever.
func NewMemory(maxAge time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Load implements schema.Cache.
func (m *Memory) Load(_ context.Context, domain string) (schema.FieldSet, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[domain]
	if !ok || expired(e.updated, m.maxAge, m.now()) {
		return "", false, nil
	}
	return e.fields, true, nil
}

// Store implements schema.Cache.
func (m *Memory) Store(_ context.Context, domain string, fields schema.FieldSet) error {
	m.mu.Lock()
	m.entries[domain] = memoryEntry{fields: fields, updated: m.now()}
	m.mu.Unlock()
	return nil
}

func expired(updated time.Time, maxAge time.Duration, now time.Time) bool {
	return maxAge > 0 && now.Sub(updated) > maxAge
}

// SQL is a cache stored in a relational table, namespaced by endpoint.
type SQL struct {
	db       *sql.DB
	endpoint string
	maxAge   time.Duration
	now      func() time.Time

	loadSQL  string
	storeSQL string
}

const ddl = `CREATE TABLE IF NOT EXISTS gqldomain_field_sets (
	endpoint   TEXT NOT NULL,
	domain     TEXT NOT NULL,
	fields     TEXT NOT NULL,
	updated_at BIGINT NOT NULL,
	PRIMARY KEY (endpoint, domain)
)`

// NewSQL wraps db, creating the cache table if needed. Entries older than
// maxAge are ignored; zero keeps them forever.
func NewSQL(ctx context.Context, db *sql.DB, style PlaceholderStyle, endpoint string, maxAge time.Duration) (*SQL, error) {
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create field set table: %w", err)
	}
	p := placeholders(style, 4)
	return &SQL{
		db:       db,
		endpoint: endpoint,
		maxAge:   maxAge,
		now:      time.Now,
		loadSQL: fmt.Sprintf(
			`SELECT fields, updated_at FROM gqldomain_field_sets WHERE endpoint = %s AND domain = %s`,
			p[0], p[1]),
		storeSQL: fmt.Sprintf(
			`INSERT INTO gqldomain_field_sets (endpoint, domain, fields, updated_at) VALUES (%s, %s, %s, %s)
ON CONFLICT (endpoint, domain) DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at`,
			p[0], p[1], p[2], p[3]),
	}, nil
}

func placeholders(style PlaceholderStyle, n int) []string {
	out := make([]string, n)
	for i := range out {
		if style == PlaceholderDollar {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}
	return out
}

// Load implements schema.Cache.
func (c *SQL) Load(ctx context.Context, domain string) (schema.FieldSet, bool, error) {
	var (
		fields  string
		updated int64
	)
	err := c.db.QueryRowContext(ctx, c.loadSQL, c.endpoint, domain).Scan(&fields, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load field set of %s: %w", domain, err)
	}
	if expired(time.Unix(updated, 0), c.maxAge, c.now()) {
		return "", false, nil
	}
	return schema.FieldSet(fields), true, nil
}

// Store implements schema.Cache.
func (c *SQL) Store(ctx context.Context, domain string, fields schema.FieldSet) error {
	if _, err := c.db.ExecContext(ctx, c.storeSQL, c.endpoint, domain, string(fields), c.now().Unix()); err != nil {
		return fmt.Errorf("store field set of %s: %w", domain, err)
	}
	return nil
}

// Close closes the underlying database.
func (c *SQL) Close() error {
	return c.db.Close()
}
