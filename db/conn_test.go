package db

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestNewSqlite(t *testing.T) {
	viper.Set("db.driver", "sqlite")
	viper.Set("db.dsn", filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() {
		viper.Set("db.driver", nil)
		viper.Set("db.dsn", nil)
	})

	conn, err := New()
	require.NoError(t, err)

	for _, table := range []string{"users", "auth_profiles", "verification_tokens", "sessions", "signers"} {
		require.True(t, conn.Migrator().HasTable(table), table)
	}
}
