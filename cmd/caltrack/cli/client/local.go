package client

import (
	"context"
	"fmt"

	config "github.com/mwantia/caltrack/internal/config/server"
	"github.com/mwantia/caltrack/pkg/calibrations"
	"github.com/mwantia/caltrack/pkg/db/store"
	"github.com/mwantia/caltrack/pkg/identity"
	"github.com/mwantia/caltrack/pkg/log"
	"github.com/mwantia/caltrack/pkg/tagging"
)

// openLocalService builds the calibration service against the locally
// configured store. The returned closer must be called when done.
func openLocalService(ctx context.Context) (*calibrations.Service, func() error, error) {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path: cfg.Metadata.SQLite.Path,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create calibration store: %w", err)
	}

	if err := st.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect calibration store: %w", err)
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to migrate calibration store: %w", err)
	}

	generator, err := identity.NewGenerator(cfg.Identity.DatacenterID, cfg.Identity.WorkerID)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to create identity generator: %w", err)
	}

	logger := log.NewLoggerService("caltrack", cfg.Log)
	engine := tagging.NewEngine(st, logger.Named("tagging"))
	service := calibrations.NewService(st, engine, generator, logger.Named("calibrations"))

	return service, st.Close, nil
}
