package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenForTesting(t *testing.T) {
	db, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	assert.NoError(t, db.Ping())
}

func TestMigrationsApply(t *testing.T) {
	db, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	var tableName string

	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='projects'").Scan(&tableName)
	assert.NoError(t, err)
	assert.Equal(t, "projects", tableName)

	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='generations'").Scan(&tableName)
	assert.NoError(t, err)
	assert.Equal(t, "generations", tableName)

	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='generated_furniture'").Scan(&tableName)
	assert.NoError(t, err)
	assert.Equal(t, "generated_furniture", tableName)
}

func TestOpenIsIdempotentOnExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dreamspace.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, second.Close()) })

	var version int
	require.NoError(t, second.QueryRow("SELECT version FROM schema_migrations").Scan(&version))
	assert.Equal(t, 3, version)
}

func TestOpenForTestingIsolated(t *testing.T) {
	a, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	b, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	_, err = a.Exec(`INSERT INTO projects (id, name, created_at, updated_at) VALUES ('p1', 'x', datetime('now'), datetime('now'))`)
	require.NoError(t, err)

	var n int
	require.NoError(t, b.QueryRow("SELECT COUNT(*) FROM projects").Scan(&n))
	assert.Zero(t, n)
}
