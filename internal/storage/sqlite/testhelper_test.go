package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/bobmcallan/stockfolio/internal/common"
)

// testManager opens a fresh database file under t.TempDir().
func testManager(t *testing.T) *Manager {
	t.Helper()

	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "stockfolio.db")

	m, err := NewManager(testLogger(), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		m.Close()
	})
	return m
}

// testLogger returns a silent logger for tests.
func testLogger() *common.Logger {
	return common.NewSilentLogger()
}
