// Package directory opens the account and fiscal stores selected by
// directory.mode.
package directory

import (
	"context"
	"fmt"

	"github.com/sanisidro/fiscal-api/internal/config"
	"github.com/sanisidro/fiscal-api/internal/database"
	"github.com/sanisidro/fiscal-api/internal/firebase"
	"github.com/sanisidro/fiscal-api/internal/repository"
	"github.com/sanisidro/fiscal-api/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ModeSQL      = "sql"
	ModeFirebase = "firebase"
)

// Directory bundles the stores the import service writes to
type Directory struct {
	Accounts service.AccountCreator
	Fiscales service.FiscalWriter
	// DB is set in sql mode so readiness probes can ping it
	DB    *gorm.DB
	close func() error
}

// Open connects to the configured directory. SQLite databases are migrated
// on open; PostgreSQL schemas are managed by cmd/migrate.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Directory, error) {
	switch cfg.Directory.Mode {
	case "", ModeSQL:
		db, err := database.NewDatabase(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if cfg.Database.Driver == "sqlite" {
			if err := database.AutoMigrate(db); err != nil {
				return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
			}
		}

		logger.Info("SQL directory connected",
			zap.String("driver", cfg.Database.Driver),
		)

		return &Directory{
			Accounts: repository.NewAccountRepository(db),
			Fiscales: repository.NewFiscalRepository(db),
			DB:       db,
			close: func() error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		}, nil

	case ModeFirebase:
		fb, err := firebase.NewDirectory(ctx, &cfg.Directory, cfg.Import.Collection, logger)
		if err != nil {
			return nil, err
		}
		return &Directory{
			Accounts: fb,
			Fiscales: fb,
			close:    fb.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported directory mode: %s", cfg.Directory.Mode)
	}
}

// Close releases the underlying connections
func (d *Directory) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}
