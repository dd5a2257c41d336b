// Package testutil provides shared test helpers for setting up vaults and history logs.
package testutil

import (
	"os"
	"testing"

	"github.com/funkpopo/notevault/internal/history"
	"github.com/funkpopo/notevault/internal/vault"
)

// Log creates a temporary SQLite version log that is automatically cleaned up.
func Log(t *testing.T, keep int) *history.Log {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notevault-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	log, err := history.Open(dbFile.Name(), keep)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

// Vault creates a temporary vault directory.
func Vault(t *testing.T) (string, *vault.Vault) {
	t.Helper()
	dir := t.TempDir()
	v, err := vault.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, v
}
