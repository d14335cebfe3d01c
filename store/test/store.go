// Package test exercises the store facade against a real SQLite database.
package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/postpilot/postpilot/internal/profile"
	"github.com/postpilot/postpilot/store"
	"github.com/postpilot/postpilot/store/db/sqlite"
)

// NewTestingStore opens a migrated SQLite-backed store in a temp directory.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	p := &profile.Profile{
		Mode:                 "dev",
		Driver:               "sqlite",
		DSN:                  t.TempDir() + "/postpilot_test.db",
		PromotionThreshold:   0.7,
		MinSampleForStrategy: 5,
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)

	s := store.New(driver, p)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
