// Package gormstorage implements the storage.Backend interface on GORM with
// internal queues drained by a background writer goroutine. The postgres and
// sqlite backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RedUtils/botcore/internal/logging"
	"github.com/RedUtils/botcore/internal/model"
	"github.com/RedUtils/botcore/internal/model/convert"
	"github.com/RedUtils/botcore/internal/queue"
	"github.com/RedUtils/botcore/internal/storage"
	"github.com/RedUtils/botcore/pkg/core"

	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued records are written.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager

	// Connect opens the database when DB is nil. Without either the backend
	// runs in queue-only mode.
	Connect func() (*gorm.DB, error)

	// Models to migrate. Defaults to model.DatabaseModels.
	Models        []any
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	TickStates      *queue.Queue[model.TickState]
	ActionEvents    *queue.Queue[model.ActionEvent]
	TouchEvents     *queue.Queue[model.TouchEvent]
	PredictionPaths *queue.Queue[model.PredictionPath]
	Performances    *queue.Queue[model.AgentPerformance]
}

func newQueues() *queues {
	return &queues{
		TickStates:      queue.New[model.TickState](),
		ActionEvents:    queue.New[model.ActionEvent](),
		TouchEvents:     queue.New[model.TouchEvent](),
		PredictionPaths: queue.New[model.PredictionPath](),
		Performances:    queue.New[model.AgentPerformance](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps    Dependencies
	queues  *queues
	matchID atomic.Uint64
	started atomic.Bool

	// serializes flush cycles between the writer and StartMatch/EndMatch
	writeMu sync.Mutex

	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	dbReady   bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Models == nil {
		deps.Models = model.DatabaseModels
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration, and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB == nil && b.deps.Connect != nil {
		db, err := b.deps.Connect()
		if err != nil {
			close(b.done)
			return fmt.Errorf("failed to connect: %w", err)
		}
		b.deps.DB = db
	}

	if b.deps.DB == nil {
		close(b.done)
		return nil
	}

	if err := b.setupDB(); err != nil {
		close(b.done)
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true

	b.startDBWriters()
	return nil
}

// DB returns the underlying connection, nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// setupDB migrates tables and creates the instance info row if it doesn't exist.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.LogManager

	if !db.Migrator().HasTable(&model.BotInfo{}) {
		if err := db.AutoMigrate(&model.BotInfo{}); err != nil {
			log.WriteLog("setupDB", fmt.Sprintf("Failed to create bot_infos table: %s", err), "ERROR")
			return fmt.Errorf("failed to auto-migrate BotInfo: %w", err)
		}
		if err := db.Create(&model.BotInfo{
			BotName:     "botcore",
			Description: "botcore match recordings",
			Website:     "https://github.com/RedUtils/botcore",
		}).Error; err != nil {
			return fmt.Errorf("failed to create bot_infos entry: %w", err)
		}
	}

	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE Extension IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS Extension: %w", err)
		}
		log.WriteLog("setupDB", "PostGIS Extension created", "INFO")
	}

	log.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := db.AutoMigrate(b.deps.Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.WriteLog("setupDB", "Database setup complete", "INFO")
	return nil
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			<-b.done
		}
		if b.dbReady {
			b.flush()
		}
	})
	return nil
}

// StartMatch inserts the match row and points the writer at it. Records
// still queued for the previous match are written first.
func (b *Backend) StartMatch(m *core.Match) error {
	if b.deps.DB == nil {
		m.ID = uint(b.matchID.Add(1))
		b.started.Store(true)
		return nil
	}

	b.flush()

	gormMatch := convert.CoreToMatch(*m)
	if err := b.deps.DB.Create(&gormMatch).Error; err != nil {
		return fmt.Errorf("failed to insert new match: %w", err)
	}

	m.ID = gormMatch.ID
	b.matchID.Store(uint64(gormMatch.ID))
	b.started.Store(true)
	return nil
}

// SetMatchID sets the current match ID for the DB writer.
func (b *Backend) SetMatchID(id uint) {
	b.matchID.Store(uint64(id))
	b.started.Store(id != 0)
}

// MatchID returns the match rows are currently stamped with.
func (b *Backend) MatchID() uint {
	return uint(b.matchID.Load())
}

// EndMatch writes everything queued so far.
func (b *Backend) EndMatch() error {
	if !b.started.Load() {
		return storage.ErrNoMatch
	}
	if b.dbReady {
		b.flush()
	}
	return nil
}

// RecordTick converts a tick summary to GORM and pushes it to the write queue.
func (b *Backend) RecordTick(t *core.TickRecord) error {
	if !b.started.Load() {
		return storage.ErrNoMatch
	}
	b.queues.TickStates.Push(convert.CoreToTickState(*t))
	return nil
}

// RecordAction converts an action transition to GORM and pushes it to the write queue.
func (b *Backend) RecordAction(e *core.ActionEvent) error {
	if !b.started.Load() {
		return storage.ErrNoMatch
	}
	b.queues.ActionEvents.Push(convert.CoreToActionEvent(*e))
	return nil
}

// RecordTouch converts a ball touch to GORM and pushes it to the write queue.
func (b *Backend) RecordTouch(t *core.BallTouch) error {
	if !b.started.Load() {
		return storage.ErrNoMatch
	}
	b.queues.TouchEvents.Push(convert.CoreToTouchEvent(*t))
	return nil
}

// RecordPrediction converts a prediction path to GORM and pushes it to the write queue.
func (b *Backend) RecordPrediction(p *core.PredictionRecord) error {
	if !b.started.Load() {
		return storage.ErrNoMatch
	}
	b.queues.PredictionPaths.Push(convert.CoreToPredictionPath(*p))
	return nil
}

// RecordStatus converts an agent status sample to GORM and pushes it to the write queue.
func (b *Backend) RecordStatus(s *core.AgentStatus) error {
	if !b.started.Load() {
		return storage.ErrNoMatch
	}
	b.queues.Performances.Push(convert.CoreToAgentPerformance(*s))
	return nil
}

// QueueLengths reports how many records wait for the writer.
func (b *Backend) QueueLengths() map[string]int {
	if b.queues == nil {
		return map[string]int{}
	}
	return map[string]int{
		"ticks":       b.queues.TickStates.Len(),
		"actions":     b.queues.ActionEvents.Len(),
		"touches":     b.queues.TouchEvents.Len(),
		"predictions": b.queues.PredictionPaths.Len(),
		"statuses":    b.queues.Performances.Len(),
	}
}

// errWriteFailed marks a batch that was put back on its queue.
var errWriteFailed = errors.New("batch write failed")

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back to the head of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T)) error {
	if q.Empty() {
		return nil
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Requeue(items...)
		return fmt.Errorf("%s: %w", name, errWriteFailed)
	}

	if err := tx.Commit().Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error committing %s: %v", name, err), "ERROR")
		q.Requeue(items...)
		return fmt.Errorf("%s: %w", name, errWriteFailed)
	}
	return nil
}

// stamp returns a prepare func setting the match foreign key on every item.
func stamp[T any](matchID uint, field func(*T) *uint) func([]T) {
	return func(items []T) {
		for i := range items {
			*field(&items[i]) = matchID
		}
	}
}

// flush drains every queue once. Nothing is written before a match exists.
func (b *Backend) flush() {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	matchID := uint(b.matchID.Load())
	if matchID == 0 {
		return
	}

	db := b.deps.DB
	log := b.deps.LogManager.WriteLog

	_ = writeQueue(db, b.queues.TickStates, "tick states", log,
		stamp(matchID, func(t *model.TickState) *uint { return &t.MatchID }))
	_ = writeQueue(db, b.queues.ActionEvents, "action events", log,
		stamp(matchID, func(e *model.ActionEvent) *uint { return &e.MatchID }))
	_ = writeQueue(db, b.queues.TouchEvents, "touch events", log,
		stamp(matchID, func(e *model.TouchEvent) *uint { return &e.MatchID }))
	_ = writeQueue(db, b.queues.PredictionPaths, "prediction paths", log,
		stamp(matchID, func(p *model.PredictionPath) *uint { return &p.MatchID }))
	_ = writeQueue(db, b.queues.Performances, "agent performances", log,
		stamp(matchID, func(p *model.AgentPerformance) *uint { return &p.MatchID }))
}

// startDBWriters starts the background goroutine that periodically drains queues into the DB.
func (b *Backend) startDBWriters() {
	go func() {
		defer close(b.done)

		ticker := time.NewTicker(b.deps.FlushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				b.flush()
			}
		}
	}()
}
