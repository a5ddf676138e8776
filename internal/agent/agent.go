package agent

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/mwantia/fabric/pkg/container"

	config "github.com/mwantia/caltrack/internal/config/server"
	"github.com/mwantia/caltrack/pkg/calibrations"
	"github.com/mwantia/caltrack/pkg/db/store"
	"github.com/mwantia/caltrack/pkg/identity"
	"github.com/mwantia/caltrack/pkg/log"
	"github.com/mwantia/caltrack/pkg/tagging"
)

// CaltrackAgent is the long-running process owning the calibration store and
// the services built on top of it.
type CaltrackAgent struct {
	mutex sync.RWMutex
	wait  sync.WaitGroup

	cfg *config.BaseServerConfig
	sc  *container.ServiceContainer
	log log.LoggerService

	store   store.CalibrationStore
	service *calibrations.Service
}

func NewAgent(cfg *config.BaseServerConfig) *CaltrackAgent {
	return &CaltrackAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: log.NewLoggerService("caltrack", cfg.Log),
	}
}

func (ca *CaltrackAgent) setupStore(ctx context.Context) error {
	st, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path: ca.cfg.Metadata.SQLite.Path,
	})
	if err != nil {
		return fmt.Errorf("failed to create calibration store: %w", err)
	}

	if err := st.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect calibration store: %w", err)
	}

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate calibration store: %w", err)
	}

	ca.store = st
	return nil
}

func (ca *CaltrackAgent) setupServices() error {
	generator, err := identity.NewGenerator(ca.cfg.Identity.DatacenterID, ca.cfg.Identity.WorkerID)
	if err != nil {
		return fmt.Errorf("failed to create identity generator: %w", err)
	}

	engine := tagging.NewEngine(ca.store, ca.log.Named("tagging"))
	ca.service = calibrations.NewService(ca.store, engine, generator, ca.log.Named("calibrations"))

	errs := container.Errors{}

	ca.log.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](ca.sc,
		container.With[log.LoggerService](),
		container.WithInstance(ca.log)))

	ca.log.Debug("Registering 'CalibrationStore'...")
	errs.Add(container.Register[store.SQLiteStore](ca.sc,
		container.With[store.CalibrationStore](),
		container.WithInstance(ca.store)))

	ca.log.Debug("Registering 'Engine'...")
	errs.Add(container.Register[tagging.Engine](ca.sc,
		container.WithInstance(engine)))

	ca.log.Debug("Registering 'Service'...")
	errs.Add(container.Register[calibrations.Service](ca.sc,
		container.WithInstance(ca.service)))

	return errs.Errors()
}

// Serve runs the agent until interrupted, then shuts down within the
// configured timeout.
func (ca *CaltrackAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	ca.mutex.Lock()

	if err := ca.setupStore(ctx); err != nil {
		ca.mutex.Unlock()
		return err
	}

	if err := ca.setupServices(); err != nil {
		ca.mutex.Unlock()
		return err
	}

	ca.mutex.Unlock()

	ca.log.Info("Agent ready (store: %s)", ca.cfg.Metadata.SQLite.Path)
	<-ctx.Done()

	timeout, err := time.ParseDuration(ca.cfg.ShutdownTimeout)
	if err != nil {
		// Set default of 60 seconds if error
		timeout = 60 * time.Second
	}

	shutdown, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := ca.sc.Cleanup(shutdown); err != nil {
		return fmt.Errorf("failed to complete service container cleanup: %w", err)
	}

	if err := ca.store.Close(); err != nil {
		return fmt.Errorf("failed to close calibration store: %w", err)
	}

	ca.wait.Wait()
	return nil
}
