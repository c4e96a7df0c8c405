package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runDatabaseSuite(t *testing.T, db Database) {
	t.Helper()

	_, err := db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, db.Put([]byte("alpha"), []byte("one")))
	value, err := db.Get([]byte("alpha"))
	require.NoError(t, err)
	require.Equal(t, []byte("one"), value)

	has, err := db.Has([]byte("alpha"))
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, db.Put([]byte("alpha"), []byte("two")))
	value, err = db.Get([]byte("alpha"))
	require.NoError(t, err)
	require.Equal(t, []byte("two"), value)

	require.NoError(t, db.Delete([]byte("alpha")))
	has, err = db.Has([]byte("alpha"))
	require.NoError(t, err)
	require.False(t, has)

	_, err = db.Get([]byte("alpha"))
	require.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting an absent key is not an error.
	require.NoError(t, db.Delete([]byte("alpha")))
}

func TestMemDB(t *testing.T) {
	db := NewMemDB()
	defer db.Close()
	runDatabaseSuite(t, db)
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	value := []byte("original")
	require.NoError(t, db.Put([]byte("key"), value))
	value[0] = 'X'

	stored, err := db.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), stored)

	stored[0] = 'Y'
	again, err := db.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), again)
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	defer db.Close()
	runDatabaseSuite(t, db)
}
