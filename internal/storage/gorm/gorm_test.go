package gormstorage

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RedUtils/botcore/internal/logging"
	"github.com/RedUtils/botcore/internal/model"
	"github.com/RedUtils/botcore/internal/queue"
	"github.com/RedUtils/botcore/internal/storage"
	"github.com/RedUtils/botcore/pkg/core"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestBackend creates a Backend with no DB (queue-only mode for unit testing).
func newTestBackend() *Backend {
	return New(Dependencies{
		DB:         nil,
		LogManager: logging.NewSlogManager(),
	})
}

// newTestDB creates an in-memory SQLite DB with auto-migrated tables.
// MaxOpenConns=1 keeps every query on the same connection, since each
// connection to file::memory: sees its own empty database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.DatabaseModels...))
	return db
}

func newDBBackend(t *testing.T, db *gorm.DB) *Backend {
	t.Helper()
	b := New(Dependencies{
		DB:            db,
		LogManager:    logging.NewSlogManager(),
		FlushInterval: time.Hour,
	})
	require.NoError(t, b.Init())
	t.Cleanup(func() { require.NoError(t, b.Close()) })
	return b
}

func noopLog(_, _, _ string) {}

func count[T any](t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(new(T)).Count(&n).Error)
	return n
}

// Compile-time interface checks
var (
	_ storage.Backend        = (*Backend)(nil)
	_ storage.QueueReporter  = (*Backend)(nil)
	_ storage.StatusRecorder = (*Backend)(nil)
)

func TestNew_Defaults(t *testing.T) {
	b := New(Dependencies{})
	require.NotNil(t, b)
	assert.NotNil(t, b.deps.LogManager)
	assert.Equal(t, DefaultFlushInterval, b.deps.FlushInterval)
	assert.Len(t, b.deps.Models, len(model.DatabaseModels))
}

func TestInitClose_QueueOnly(t *testing.T) {
	b := newTestBackend()

	require.NoError(t, b.Init())
	require.NotNil(t, b.queues)
	require.NotNil(t, b.stopChan)
	assert.Nil(t, b.DB())

	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "second close is a no-op")
}

func TestInit_ConnectError(t *testing.T) {
	b := New(Dependencies{
		Connect: func() (*gorm.DB, error) { return nil, errors.New("refused") },
	})

	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
	require.NoError(t, b.Close())
}

func TestInit_UsesConnect(t *testing.T) {
	db := newTestDB(t)
	called := false
	b := New(Dependencies{
		Connect: func() (*gorm.DB, error) {
			called = true
			return db, nil
		},
	})

	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	assert.True(t, called)
	assert.Same(t, db, b.DB())
}

func TestRecord_BeforeStartMatch(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	assert.ErrorIs(t, b.RecordTick(&core.TickRecord{}), storage.ErrNoMatch)
	assert.ErrorIs(t, b.RecordAction(&core.ActionEvent{}), storage.ErrNoMatch)
	assert.ErrorIs(t, b.RecordTouch(&core.BallTouch{}), storage.ErrNoMatch)
	assert.ErrorIs(t, b.RecordPrediction(&core.PredictionRecord{}), storage.ErrNoMatch)
	assert.ErrorIs(t, b.EndMatch(), storage.ErrNoMatch)
}

func TestStartMatch_QueueOnly_AssignsIDs(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	m1 := &core.Match{Name: "first"}
	m2 := &core.Match{Name: "second"}
	require.NoError(t, b.StartMatch(m1))
	require.NoError(t, b.StartMatch(m2))

	assert.Equal(t, uint(1), m1.ID)
	assert.Equal(t, uint(2), m2.ID)
	assert.Equal(t, uint(2), b.MatchID())
}

func TestRecord_QueuesToInternalQueues(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()
	require.NoError(t, b.StartMatch(&core.Match{Name: "queued"}))

	require.NoError(t, b.RecordTick(&core.TickRecord{Tick: 1}))
	require.NoError(t, b.RecordTick(&core.TickRecord{Tick: 2}))
	require.NoError(t, b.RecordAction(&core.ActionEvent{Action: "kickoff", Kind: core.ActionAssigned}))
	require.NoError(t, b.RecordTouch(&core.BallTouch{Time: 3}))
	require.NoError(t, b.RecordPrediction(&core.PredictionRecord{Tick: 2}))

	assert.Equal(t, map[string]int{
		"ticks":       2,
		"actions":     1,
		"touches":     1,
		"predictions": 1,
		"statuses":    0,
	}, b.QueueLengths())
}

func TestQueueLengths_BeforeInit(t *testing.T) {
	assert.Empty(t, newTestBackend().QueueLengths())
}

func TestSetMatchID(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	assert.Equal(t, uint(0), b.MatchID())
	b.SetMatchID(42)
	assert.Equal(t, uint(42), b.MatchID())
	assert.NoError(t, b.RecordTick(&core.TickRecord{}))
}

func TestSetupDB_CreatesBotInfo(t *testing.T) {
	// raw DB without prior AutoMigrate so setupDB creates everything
	rawDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := rawDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	newDBBackend(t, rawDB)

	var info model.BotInfo
	require.NoError(t, rawDB.First(&info).Error)
	assert.Equal(t, "botcore", info.BotName)
	assert.True(t, rawDB.Migrator().HasTable(&model.Match{}))
	assert.True(t, rawDB.Migrator().HasTable(&model.TickState{}))
	assert.True(t, rawDB.Migrator().HasTable(&model.PredictionPath{}))
}

func TestSetupDB_CustomModels(t *testing.T) {
	rawDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := rawDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	b := New(Dependencies{DB: rawDB, Models: model.DatabaseModelsSQLite, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	assert.True(t, rawDB.Migrator().HasTable(&model.TouchEvent{}))
	assert.False(t, rawDB.Migrator().HasTable(&model.PredictionPath{}))
}

func TestStartMatch_WithDB(t *testing.T) {
	db := newTestDB(t)
	b := newDBBackend(t, db)

	m := &core.Match{
		Name:      "Exhibition",
		AgentName: "botcore",
		Team:      core.TeamOrange,
		StartTime: time.Now(),
	}
	require.NoError(t, b.StartMatch(m))

	assert.NotZero(t, m.ID, "match should get DB-assigned ID")
	assert.Equal(t, m.ID, b.MatchID())

	var stored model.Match
	require.NoError(t, db.First(&stored, m.ID).Error)
	assert.Equal(t, "Exhibition", stored.Name)
	assert.Equal(t, "orange", stored.Team)
}

func TestEndMatch_FlushesEveryQueue(t *testing.T) {
	db := newTestDB(t)
	b := newDBBackend(t, db)

	m := &core.Match{Name: "flush"}
	require.NoError(t, b.StartMatch(m))

	require.NoError(t, b.RecordTick(&core.TickRecord{Tick: 1, Phase: core.PhaseKickoff, Ball: core.Vec3{Z: 92}}))
	require.NoError(t, b.RecordAction(&core.ActionEvent{Tick: 1, Action: "kickoff", Kind: core.ActionAssigned}))
	require.NoError(t, b.RecordTouch(&core.BallTouch{Time: 2.5, PlayerName: "botcore"}))
	require.NoError(t, b.RecordPrediction(&core.PredictionRecord{
		Tick:   1,
		Slices: []core.BallSlice{{Time: 1}, {Time: 1.5, Location: core.Vec3{Z: 200}}},
	}))

	require.NoError(t, b.EndMatch())

	assert.Equal(t, int64(1), count[model.TickState](t, db))
	assert.Equal(t, int64(1), count[model.ActionEvent](t, db))
	assert.Equal(t, int64(1), count[model.TouchEvent](t, db))
	assert.Equal(t, int64(1), count[model.PredictionPath](t, db))

	require.NoError(t, b.RecordStatus(&core.AgentStatus{Ticks: 1, Clears: map[string]uint64{"kickoff": 1}}))
	require.NoError(t, b.EndMatch())

	var perf model.AgentPerformance
	require.NoError(t, db.First(&perf).Error)
	assert.Equal(t, m.ID, perf.MatchID)
	assert.Equal(t, uint64(1), perf.Ticks)

	var tick model.TickState
	require.NoError(t, db.First(&tick).Error)
	assert.Equal(t, m.ID, tick.MatchID)
	assert.Equal(t, "kickoff", tick.Phase)

	for _, n := range b.QueueLengths() {
		assert.Zero(t, n)
	}
}

func TestStartMatch_FlushesPreviousMatch(t *testing.T) {
	db := newTestDB(t)
	b := newDBBackend(t, db)

	first := &core.Match{Name: "first"}
	require.NoError(t, b.StartMatch(first))
	require.NoError(t, b.RecordTick(&core.TickRecord{Tick: 10}))

	second := &core.Match{Name: "second"}
	require.NoError(t, b.StartMatch(second))
	require.NotEqual(t, first.ID, second.ID)

	var tick model.TickState
	require.NoError(t, db.Where("tick = ?", 10).First(&tick).Error)
	assert.Equal(t, first.ID, tick.MatchID)
}

func TestClose_FlushesRemaining(t *testing.T) {
	db := newTestDB(t)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	require.NoError(t, b.StartMatch(&core.Match{Name: "closing"}))
	require.NoError(t, b.RecordTick(&core.TickRecord{Tick: 1}))
	require.NoError(t, b.Close())

	assert.Equal(t, int64(1), count[model.TickState](t, db))
}

func TestStartDBWriters_DrainsQueues(t *testing.T) {
	db := newTestDB(t)
	b := New(Dependencies{DB: db, FlushInterval: 20 * time.Millisecond})
	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	require.NoError(t, b.StartMatch(&core.Match{Name: "background"}))
	require.NoError(t, b.RecordTick(&core.TickRecord{Tick: 1}))
	require.NoError(t, b.RecordTouch(&core.BallTouch{Time: 1}))

	require.Eventually(t, func() bool {
		return count[model.TickState](t, db) == 1 && count[model.TouchEvent](t, db) == 1
	}, 5*time.Second, 20*time.Millisecond, "writer should drain the queues")

	assert.Equal(t, 0, b.QueueLengths()["ticks"])
}

func TestWriteQueue_Success(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&model.Match{Name: "m"}).Error)
	q := queue.New[model.ActionEvent]()
	q.Push(model.ActionEvent{MatchID: 1, Action: "a"}, model.ActionEvent{MatchID: 1, Action: "b"})

	require.NoError(t, writeQueue(db, q, "action events", noopLog, nil))

	assert.True(t, q.Empty(), "queue should be drained after successful write")
	assert.Equal(t, int64(2), count[model.ActionEvent](t, db))
}

func TestWriteQueue_EmptyQueue(t *testing.T) {
	db := newTestDB(t)
	q := queue.New[model.ActionEvent]()

	require.NoError(t, writeQueue(db, q, "action events", noopLog, nil))
	assert.Equal(t, int64(0), count[model.ActionEvent](t, db))
}

func TestWriteQueue_PrepareStampsMatch(t *testing.T) {
	db := newTestDB(t)
	q := queue.New[model.TouchEvent]()
	q.Push(model.TouchEvent{PlayerName: "Alpha"})

	prepare := stamp(99, func(e *model.TouchEvent) *uint { return &e.MatchID })
	require.NoError(t, writeQueue(db, q, "touch events", noopLog, prepare))

	var e model.TouchEvent
	require.NoError(t, db.First(&e).Error)
	assert.Equal(t, uint(99), e.MatchID)
}

func TestWriteQueue_FailureRequeues(t *testing.T) {
	db := newTestDB(t)
	// drop the table so the insert fails
	require.NoError(t, db.Migrator().DropTable(&model.ActionEvent{}))

	q := queue.New[model.ActionEvent]()
	q.Push(model.ActionEvent{Action: "first"})

	var logged atomic.Bool
	logFn := func(_, _, _ string) { logged.Store(true) }

	err := writeQueue(db, q, "action events", logFn, nil)

	assert.ErrorIs(t, err, errWriteFailed)
	assert.True(t, logged.Load(), "error should be logged")
	require.Equal(t, 1, q.Len(), "failed items should be re-queued")
	assert.Equal(t, "first", q.GetAndEmpty()[0].Action)
}
