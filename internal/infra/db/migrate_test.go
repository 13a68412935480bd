package db

import (
	"context"
	"testing"
	"time"

	"assetguard/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNamesSorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
}

func TestNoDatabaseMode(t *testing.T) {
	store, err := NewStore(config.Config{}, nil)
	require.NoError(t, err)
	assert.False(t, store.Enabled())
	assert.NoError(t, store.Close())

	_, err = Migrate(context.Background(), nil)
	assert.ErrorIs(t, err, errDBUnavailable)

	repo := NewTokenRepository(nil)
	_, err = repo.MarkUsed(context.Background(), "t", "s", time.Now())
	assert.ErrorIs(t, err, errDBUnavailable)
}
