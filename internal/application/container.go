// Package application provides application-level services and dependency
// injection.
package application

import (
	"context"
	"fmt"
	"os"

	"github.com/jbctechsolutions/clawsync/internal/adapters/channel"
	"github.com/jbctechsolutions/clawsync/internal/adapters/executor"
	"github.com/jbctechsolutions/clawsync/internal/adapters/store"
	"github.com/jbctechsolutions/clawsync/internal/application/ports"
	appsync "github.com/jbctechsolutions/clawsync/internal/application/sync"
	"github.com/jbctechsolutions/clawsync/internal/domain/state"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/config"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/logging"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/process"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/storage"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/tracing"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/watcher"
	"github.com/jbctechsolutions/clawsync/internal/presentation/api"
)

// Container holds all application dependencies and provides a central point
// for dependency injection. It manages the lifecycle of services and ensures
// proper initialization order.
type Container struct {
	config  *config.Config
	verbose bool

	tree state.Tree

	// Infrastructure
	logger *logging.Logger
	tracer *tracing.Tracer
	dbConn *storage.Connection

	// Adapters
	remoteStore *store.R2Store
	registry    *channel.Registry

	// Application services
	dispatcher *appsync.Dispatcher
	restorer   *appsync.Restorer
	scheduler  *appsync.Scheduler
	history    *storage.HistoryRepository

	// Long-running infrastructure
	stateWatcher *watcher.Watcher
	supervisor   *process.Supervisor
	apiServer    *api.Server
}

// NewContainer creates a new dependency injection container with all services
// initialized based on the provided configuration.
func NewContainer(ctx context.Context, cfg *config.Config, verbose bool) (*Container, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	c := &Container{
		config: cfg,
		tree:   state.NewTree(cfg.State.Dir),
	}

	c.initObservability(ctx, verbose)

	if err := c.initRemoteStore(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize remote store: %w", err)
	}

	c.initChannels()
	c.initServices()

	if err := c.initHistory(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize history: %w", err)
	}

	if err := c.initWatcher(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize watcher: %w", err)
	}

	c.initScheduler()
	c.initSupervisor()
	c.initAPI()

	return c, nil
}

func (c *Container) initObservability(ctx context.Context, verbose bool) {
	level := logging.Level(c.config.Logging.Level)
	if verbose {
		level = logging.LevelDebug
	}
	c.logger = logging.Init(logging.Config{
		Level:  level,
		Format: logging.Format(c.config.Logging.Format),
		Output: os.Stderr,
	})

	tc := c.config.Observability.Tracing
	tracer, err := tracing.Init(ctx, tracing.Config{
		Enabled:      tc.Enabled,
		ExporterType: tracing.ExporterType(tc.ExporterType),
		OTLPEndpoint: tc.OTLPEndpoint,
		ServiceName:  tc.ServiceName,
		SampleRate:   tc.SampleRate,
	})
	if err != nil {
		c.logger.Warn("tracing disabled", "error", err)
		tracer = tracing.Default()
	}
	c.tracer = tracer
}

func (c *Container) initRemoteStore(ctx context.Context) error {
	remoteStore, err := store.NewR2Store(ctx, c.config.Remote)
	if err != nil {
		return err
	}
	c.remoteStore = remoteStore
	return nil
}

// initChannels builds the push channels in priority order: archive first,
// mirror as its fallback.
func (c *Container) initChannels() {
	exec := executor.NewSandboxExecutor(c.config.Sync.Shell, c.tree.Root)

	c.registry = channel.NewRegistry()
	c.registry.Register(channel.NewArchiveChannel(
		c.remoteStore,
		exec,
		c.tree,
		c.logger,
		c.config.Sync.ExecTimeout,
		c.config.Sync.MinArchive,
	))
	c.registry.Register(channel.NewMirrorChannel(
		exec,
		c.tree,
		c.logger,
		c.config.Mirror.MountPath,
		c.config.Mirror.MountCommand,
		c.config.Sync.ExecTimeout,
	))
}

func (c *Container) initServices() {
	c.dispatcher = appsync.NewDispatcher(c.remoteStore, c.registry, c.logger, c.tracer)
	c.restorer = appsync.NewRestorer(c.remoteStore, c.tree, c.logger, c.tracer)
}

func (c *Container) initHistory() error {
	if !c.config.History.Enabled {
		return nil
	}

	c.dbConn = storage.NewConnection(c.config.History.Path)
	if err := c.dbConn.Open(); err != nil {
		return err
	}

	db, err := c.dbConn.DB()
	if err != nil {
		return err
	}
	c.history = storage.NewHistoryRepository(db, c.config.History.Keep)
	return nil
}

func (c *Container) initWatcher() error {
	if !c.config.Watcher.Enabled {
		return nil
	}

	w, err := watcher.NewWatcher(watcher.Config{Debounce: c.config.Watcher.Debounce})
	if err != nil {
		return err
	}
	c.stateWatcher = w
	return nil
}

func (c *Container) initScheduler() {
	schedCfg := appsync.SchedulerConfig{
		Interval:     c.config.Sync.Interval,
		InitialDelay: c.config.Sync.InitialDelay,
	}
	if c.stateWatcher != nil {
		schedCfg.Dirty = c.stateWatcher.Dirty()
	}

	var history appsync.HistoryStore
	if c.history != nil {
		history = c.history
	}
	c.scheduler = appsync.NewScheduler(c.dispatcher, c.tree, history, c.logger, schedCfg)
}

func (c *Container) initSupervisor() {
	c.supervisor = process.NewSupervisor(c.config.Agent, c.logger, os.Stdout)
}

func (c *Container) initAPI() {
	var history api.HistoryReader
	if c.history != nil {
		history = c.history
	}
	c.apiServer = api.NewServer(c.config.API, c.scheduler, history, c.tree, c.logger)
}

// Config returns the loaded configuration.
func (c *Container) Config() *config.Config { return c.config }

// Tree returns the local state tree.
func (c *Container) Tree() state.Tree { return c.tree }

// Logger returns the application logger.
func (c *Container) Logger() *logging.Logger { return c.logger }

// RemoteStore returns the durable blob store adapter.
func (c *Container) RemoteStore() ports.RemoteStorePort { return c.remoteStore }

// Dispatcher returns the push dispatcher.
func (c *Container) Dispatcher() *appsync.Dispatcher { return c.dispatcher }

// Restorer returns the cold-start restore coordinator.
func (c *Container) Restorer() *appsync.Restorer { return c.restorer }

// Scheduler returns the backup scheduler.
func (c *Container) Scheduler() *appsync.Scheduler { return c.scheduler }

// History returns the attempt history repository, or nil when disabled.
func (c *Container) History() *storage.HistoryRepository { return c.history }

// Serve runs the full long-lived stack: restore, then watcher, scheduler,
// diagnostics endpoint, and agent. It blocks until the context is cancelled.
func (c *Container) Serve(ctx context.Context) error {
	if err := c.restorer.Run(ctx); err != nil {
		// Restore failures are advisory: a fresh container starts empty.
		c.logger.Warn("restore did not complete", "error", err)
	}

	if c.stateWatcher != nil {
		if err := c.stateWatcher.Watch(c.tree); err != nil {
			c.logger.Warn("state watcher failed to start", "error", err)
		}
	}

	if err := c.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if err := c.apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start diagnostics endpoint: %w", err)
	}

	if err := c.supervisor.Start(ctx); err != nil {
		c.logger.Warn("agent supervisor failed to start", "error", err)
	}

	<-ctx.Done()
	return nil
}

// Close releases all resources in reverse initialization order.
func (c *Container) Close() error {
	var firstErr error

	shutdownCtx := context.Background()

	if c.supervisor != nil {
		c.supervisor.Stop()
	}
	if c.apiServer != nil {
		if err := c.apiServer.Stop(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.scheduler != nil {
		c.scheduler.Stop()
	}
	if c.stateWatcher != nil {
		if err := c.stateWatcher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.dbConn != nil {
		if err := c.dbConn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.tracer != nil {
		if err := c.tracer.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
