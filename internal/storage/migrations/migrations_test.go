package migrations

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRun(t *testing.T) {
	db := openDB(t)

	require.NoError(t, Run(db))

	version, err := Version(db)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	for _, table := range []string{"ask_cache", "_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}

	var index string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_ask_cache_identity'").Scan(&index)
	assert.NoError(t, err)
}

func TestRun_Idempotent(t *testing.T) {
	db := openDB(t)

	require.NoError(t, Run(db))
	require.NoError(t, Run(db))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestPending(t *testing.T) {
	db := openDB(t)

	pending, err := Pending(db)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, pending)

	version, err := Version(db)
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, Run(db))

	pending, err = Pending(db)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunFS_OrderAndSkips(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"m/010_second.sql": {Data: []byte("INSERT INTO t (v) VALUES ('second');")},
		"m/002_first.sql":  {Data: []byte("CREATE TABLE t (v TEXT); INSERT INTO t (v) VALUES ('first');")},
		"m/README.md":      {Data: []byte("ignored")},
		"m/notes.sql":      {Data: []byte("this is not sql")},
	}

	require.NoError(t, RunFS(db, fsys, "m"))

	rows, err := db.Query("SELECT v FROM t ORDER BY rowid")
	require.NoError(t, err)
	defer rows.Close()
	var got []string
	for rows.Next() {
		var v string
		require.NoError(t, rows.Scan(&v))
		got = append(got, v)
	}
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestRunFS_FailureRollsBack(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"m/001_ok.sql":  {Data: []byte("CREATE TABLE a (x INTEGER);")},
		"m/002_bad.sql": {Data: []byte("CREATE TABLE b (x INTEGER); SELEC nonsense;")},
	}

	err := RunFS(db, fsys, "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_bad.sql")

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count))
	assert.Equal(t, 1, count)

	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='b'").Scan(new(string))
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRunFS_DuplicateVersion(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"m/001_a.sql": {Data: []byte("SELECT 1;")},
		"m/001_b.sql": {Data: []byte("SELECT 1;")},
	}
	assert.ErrorContains(t, RunFS(db, fsys, "m"), "duplicate version 1")
}
