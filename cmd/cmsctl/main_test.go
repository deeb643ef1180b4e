package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes cmsctl with args against the SQLite database at dbPath
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Setenv("APP_STORE_DRIVER", "sqlite")
	t.Setenv("APP_SQLITE_PATH", dbPath)
	t.Setenv("APP_STORAGE_DIR", filepath.Join(filepath.Dir(dbPath), "storage"))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAdminCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cms.db")

	out, err := run(t, dbPath, "user", "add", "--email", "Editor@Example.com", "--password", "hunter22")
	require.NoError(t, err)
	assert.Contains(t, out, "created user editor@example.com")

	_, err = run(t, dbPath, "user", "add", "--email", "editor@example.com", "--password", "x")
	assert.ErrorContains(t, err, "already exists")

	out, err = run(t, dbPath, "admin", "grant", "--email", "editor@example.com", "--username", "ed")
	require.NoError(t, err)
	assert.Contains(t, out, "granted admin access to editor@example.com")

	out, err = run(t, dbPath, "admin", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "editor@example.com")

	out, err = run(t, dbPath, "admin", "revoke", "--email", "editor@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "revoked")

	_, err = run(t, dbPath, "admin", "revoke", "--email", "editor@example.com")
	assert.ErrorContains(t, err, "is not an admin")

	_, err = run(t, dbPath, "admin", "grant", "--email", "new@example.com")
	assert.ErrorContains(t, err, "password is required")
}

func TestSeedAndCleanupCommands(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cms.db")

	_, err := run(t, dbPath, "seed", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = run(t, dbPath, "cleanup", "sessions")
	assert.NoError(t, err)

	_, err = run(t, dbPath, "cleanup", "orphans")
	assert.NoError(t, err)
}
