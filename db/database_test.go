package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTursoDSN(t *testing.T) {
	assert.Equal(t, "libsql://db.turso.io", TursoDSN("libsql://db.turso.io", ""))
	assert.Equal(t, "libsql://db.turso.io?authToken=tok", TursoDSN("libsql://db.turso.io", "tok"))
}

func TestInitializeLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	require.NoError(t, Initialize(Options{Path: path, Environment: "production"}))
	defer Close()

	type probe struct {
		ID   uint
		Name string
	}
	require.NoError(t, AutoMigrate(&probe{}))
	assert.NoError(t, DB.Create(&probe{Name: "ok"}).Error)
}

func TestAutoMigrateWithoutConnection(t *testing.T) {
	saved := DB
	DB = nil
	defer func() { DB = saved }()

	assert.Error(t, AutoMigrate())
	assert.NoError(t, Close())
}
