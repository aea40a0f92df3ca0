package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSQLiteMemoryRunsMigrations(t *testing.T) {
	database, err := Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	defer database.Close()

	var count int
	require.NoError(t, database.Get(&count, `SELECT COUNT(*) FROM client_session`))
	assert.Equal(t, 0, count)
}

func TestConnectSQLiteCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "nested", "session.db")

	database, err := Connect("sqlite3", dsn)
	require.NoError(t, err)
	defer database.Close()

	assert.DirExists(t, filepath.Join(dir, "nested"))
}

func TestConnectUnknownDriver(t *testing.T) {
	_, err := Connect("nope", "whatever")
	assert.Error(t, err)
}
