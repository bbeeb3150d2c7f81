package fieldcache

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/neoscript99/go-gql-domain/pkg/schema"
)

var (
	_ schema.Cache = (*Memory)(nil)
	_ schema.Cache = (*SQL)(nil)
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }

	_, ok, err := m.Load(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Store(ctx, "user", "id,name"))
	got, ok, err := m.Load(ctx, "user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, schema.FieldSet("id,name"), got)

	now = now.Add(2 * time.Minute)
	_, ok, err = m.Load(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries are ignored")
}

func TestMemory_noMaxAge(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	start := time.Unix(0, 0)
	m.now = func() time.Time { return start }
	require.NoError(t, m.Store(ctx, "user", "id"))

	m.now = func() time.Time { return start.Add(24 * 365 * time.Hour) }
	_, ok, err := m.Load(ctx, "user")
	require.NoError(t, err)
	assert.True(t, ok)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQL(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	c, err := NewSQL(ctx, db, PlaceholderQuestion, "http://a/graphql", time.Hour)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	_, ok, err := c.Load(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Store(ctx, "user", "id"))
	require.NoError(t, c.Store(ctx, "user", "id,name"))
	got, ok, err := c.Load(ctx, "user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, schema.FieldSet("id,name"), got)

	// entries are namespaced by endpoint
	other, err := NewSQL(ctx, db, PlaceholderQuestion, "http://b/graphql", time.Hour)
	require.NoError(t, err)
	_, ok, err = other.Load(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(2 * time.Hour)
	_, ok, err = c.Load(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries are ignored")
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"?", "?"}, placeholders(PlaceholderQuestion, 2))
	assert.Equal(t, []string{"$1", "$2", "$3"}, placeholders(PlaceholderDollar, 3))
}
