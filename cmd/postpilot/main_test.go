package main

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The consolidate and audit commands both define an org flag. Each command
// must see its own value, and neither may leak into viper's shared key space
// where one binding would shadow the other.
func TestOrgFlagScopedPerCommand(t *testing.T) {
	t.Cleanup(func() {
		require.NoError(t, consolidateCmd.Flags().Set("org", ""))
		require.NoError(t, auditCmd.Flags().Set("org", ""))
	})

	require.NoError(t, consolidateCmd.Flags().Set("org", "acme"))
	require.NoError(t, auditCmd.Flags().Set("org", "globex"))

	got, err := consolidateCmd.Flags().GetString("org")
	require.NoError(t, err)
	assert.Equal(t, "acme", got)

	got, err = auditCmd.Flags().GetString("org")
	require.NoError(t, err)
	assert.Equal(t, "globex", got)

	assert.Empty(t, viper.GetString("org"))
}

func TestAuditFlagDefaults(t *testing.T) {
	limit, err := auditCmd.Flags().GetInt("limit")
	require.NoError(t, err)
	assert.Equal(t, 100, limit)

	sinceDays, err := auditCmd.Flags().GetInt("since-days")
	require.NoError(t, err)
	assert.Zero(t, sinceDays)

	action, err := auditCmd.Flags().GetString("action")
	require.NoError(t, err)
	assert.Empty(t, action)
}
