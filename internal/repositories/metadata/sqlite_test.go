package metadata

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)
	return db
}

func TestSetGetAndOverwrite(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
}

func TestGet_Missing_ReturnsNilNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSet_NilValueStoresEmpty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "empty", nil))
	v, err := r.Get(ctx, "empty")
	require.NoError(t, err)
	assert.NotNil(t, v)
	assert.Empty(t, v)
}

func TestDelete(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "keep"} {
		require.NoError(t, r.Set(ctx, k, []byte(k)))
	}

	require.NoError(t, r.Delete(ctx))
	require.NoError(t, r.Delete(ctx, "a", "b", "never-set"))
	require.NoError(t, r.Delete(ctx, "a"))

	for _, k := range []string{"a", "b"} {
		v, err := r.Get(ctx, k)
		require.NoError(t, err)
		assert.Nil(t, v, k)
	}
	v, err := r.Get(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), v)
}

func TestFlagsAndJSON(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	on, err := GetFlag(ctx, r, "setup_complete")
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, SetFlag(ctx, r, "setup_complete", true))
	on, err = GetFlag(ctx, r, "setup_complete")
	require.NoError(t, err)
	assert.True(t, on)

	var p models.Permissions
	found, err := GetJSON(ctx, r, "permissions", &p)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, r, "permissions", models.Permissions{SystemUsage: true}))
	found, err = GetJSON(ctx, r, "permissions", &p)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, p.SystemUsage)
	assert.False(t, p.Notifications)

	require.NoError(t, r.Set(ctx, "permissions", []byte("{broken")))
	_, err = GetJSON(ctx, r, "permissions", &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to decode metadata key "permissions"`)
}

func TestDriverErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	r := NewSQLiteRepository(db)

	mock.ExpectQuery(`SELECT value FROM metadata`).WithArgs("k").WillReturnError(boom)
	_, err = r.Get(ctx, "k")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `failed to read metadata key "k"`)

	mock.ExpectExec(`INSERT INTO metadata`).WillReturnError(boom)
	err = r.Set(ctx, "k", []byte("v"))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `failed to write metadata key "k"`)

	mock.ExpectExec(`DELETE FROM metadata WHERE key IN \(\?, \?\)`).WithArgs("a", "b").WillReturnError(boom)
	err = r.Delete(ctx, "a", "b")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to delete metadata keys [a b]")

	require.NoError(t, mock.ExpectationsWereMet())
}
