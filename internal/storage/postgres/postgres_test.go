package postgres

import (
	"testing"

	"github.com/RedUtils/botcore/internal/logging"
	"github.com/RedUtils/botcore/internal/storage"
	"github.com/RedUtils/botcore/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestNew(t *testing.T) {
	b := New(logging.NewSlogManager())
	require.NotNil(t, b)
	require.NotNil(t, b.Backend)
	assert.Nil(t, b.DB(), "connection is opened lazily")
}

func TestInit_Unreachable(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")
	viper.Set("db.username", "postgres")
	viper.Set("db.password", "postgres")
	viper.Set("db.database", "botcore")

	b := New(logging.NewSlogManager())
	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to postgres")
	require.NoError(t, b.Close())

	// no match row could be created
	assert.ErrorIs(t, b.RecordTick(&core.TickRecord{}), storage.ErrNoMatch)
}
