package sqlitestorage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RedUtils/botcore/internal/database"
	"github.com/RedUtils/botcore/internal/logging"
	"github.com/RedUtils/botcore/internal/model"
	"github.com/RedUtils/botcore/internal/storage"
	"github.com/RedUtils/botcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.Backend    = (*Backend)(nil)
	_ storage.Uploadable = (*Backend)(nil)
)

// memDSN gives every test its own shared-cache in-memory database.
func memDSN(t *testing.T) string {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return "file:" + name + "?mode=memory&cache=shared"
}

func newTestBackend(t *testing.T, cfg Config) *Backend {
	t.Helper()
	cfg.DSN = memDSN(t)
	b, err := New(cfg, logging.NewSlogManager())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	return b
}

func TestInit_MigratesWithoutPredictionPaths(t *testing.T) {
	b := newTestBackend(t, Config{})
	defer func() { require.NoError(t, b.Close()) }()

	assert.True(t, b.db.Migrator().HasTable(&model.TickState{}))
	assert.False(t, b.db.Migrator().HasTable(&model.PredictionPath{}))
}

func TestRecordPrediction_IsNoOp(t *testing.T) {
	b := newTestBackend(t, Config{})
	defer func() { require.NoError(t, b.Close()) }()

	require.NoError(t, b.StartMatch(&core.Match{Name: "np"}))
	require.NoError(t, b.RecordPrediction(&core.PredictionRecord{
		Slices: []core.BallSlice{{Time: 1}, {Time: 2}},
	}))
	assert.Equal(t, 0, b.QueueLengths()["predictions"])
}

func TestEndMatch_DumpsToDisk(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "nested", "botcore.db")
	b := newTestBackend(t, Config{DumpPath: dumpPath})
	defer func() { require.NoError(t, b.Close()) }()

	m := &core.Match{Name: "dumped", StartTime: time.Now()}
	require.NoError(t, b.StartMatch(m))
	require.NoError(t, b.RecordTick(&core.TickRecord{Tick: 1}))
	require.NoError(t, b.RecordTouch(&core.BallTouch{Time: 1.5}))
	require.NoError(t, b.EndMatch())

	assert.Equal(t, dumpPath, b.GetExportedFilePath())

	disk, err := database.GetSqliteDB(dumpPath)
	require.NoError(t, err)
	var ticks, matches int64
	require.NoError(t, disk.Model(&model.TickState{}).Count(&ticks).Error)
	require.NoError(t, disk.Model(&model.Match{}).Count(&matches).Error)
	assert.Equal(t, int64(1), ticks)
	assert.Equal(t, int64(1), matches)
}

func TestEndMatch_NoMatch(t *testing.T) {
	b := newTestBackend(t, Config{})
	defer func() { require.NoError(t, b.Close()) }()

	assert.ErrorIs(t, b.EndMatch(), storage.ErrNoMatch)
}

func TestDumpLoop_WritesPeriodically(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "periodic.db")
	b := newTestBackend(t, Config{DumpPath: dumpPath, DumpInterval: 20 * time.Millisecond})
	defer func() { require.NoError(t, b.Close()) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(dumpPath)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestClose_Twice(t *testing.T) {
	b := newTestBackend(t, Config{})
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestClose_WithoutInit(t *testing.T) {
	b, err := New(Config{DSN: memDSN(t)}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Close())
}
