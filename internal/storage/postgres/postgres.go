// Package postgres implements the storage.Backend interface on PostgreSQL
// with PostGIS, through the shared GORM backend.
package postgres

import (
	"fmt"

	"github.com/RedUtils/botcore/internal/database"
	"github.com/RedUtils/botcore/internal/logging"
	"github.com/RedUtils/botcore/internal/model"
	gormstorage "github.com/RedUtils/botcore/internal/storage/gorm"

	"gorm.io/gorm"
)

// MaxOpenConns caps the connection pool used by the writer.
const MaxOpenConns = 10

// Backend records matches into Postgres.
type Backend struct {
	*gormstorage.Backend
}

// New creates a Postgres backend. The connection is opened on Init from the
// db.* config keys.
func New(logManager *logging.SlogManager) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			LogManager: logManager,
			Connect:    connect,
			Models:     model.DatabaseModels,
		}),
	}
}

func connect() (*gorm.DB, error) {
	db, err := database.GetPostgresDB()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(MaxOpenConns)
	return db, nil
}
