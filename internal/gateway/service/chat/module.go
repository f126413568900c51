package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/repo"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/service"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/service/runtime"
	boltdbStore "github.com/clinicore/clinicore/internal/gateway/service/chat/store/boltdb"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/store/inmemory"
	sqliteStore "github.com/clinicore/clinicore/internal/gateway/service/chat/store/sqlite"
	"github.com/clinicore/clinicore/internal/gateway/service/toolexec"
	"github.com/clinicore/clinicore/pkg/logger"
)

// Config holds the configuration for the Chat module.
// Follows K8S-style: Config → Complete() → New(ctx, deps).
type Config struct {
	// StoreType selects the persistence backend: "inmemory", "boltdb", or
	// "sqlite". Default: "inmemory".
	StoreType string `json:"store_type,omitempty"`

	// DBPath is the database file path for the boltdb and sqlite backends.
	// Default: "data/clinicore.db".
	DBPath string `json:"db_path,omitempty"`

	// WorkerConcurrency caps the number of turns executing at once.
	WorkerConcurrency int `json:"worker_concurrency,omitempty"`

	// SoftDeadline is when a running turn starts graceful wind-down.
	SoftDeadline time.Duration `json:"soft_deadline,omitempty"`

	// HardDeadline is when a running turn is forcibly killed.
	HardDeadline time.Duration `json:"hard_deadline,omitempty"`

	// QueueCapacity bounds the in-memory task buffer.
	QueueCapacity int `json:"queue_capacity,omitempty"`

	// MaxRetries caps redeliveries of one task unit (default: 3).
	MaxRetries int `json:"max_retries,omitempty"`

	// RetryBackoff is the fixed delay before a redelivery (default: 2s).
	RetryBackoff time.Duration `json:"retry_backoff,omitempty"`

	// ConsultTimeout bounds one specialist consultation (default: 60s).
	ConsultTimeout time.Duration `json:"consult_timeout,omitempty"`

	// ToolTimeout bounds one tool run, sandboxed or remote (default: 30s).
	ToolTimeout time.Duration `json:"tool_timeout,omitempty"`

	// PythonBin is the interpreter for sandboxed function tools.
	PythonBin string `json:"python_bin,omitempty"`

	// StaleAfter is how long a streaming message may go without a write
	// before the reconciler marks it interrupted (default: 2m).
	StaleAfter time.Duration `json:"stale_after,omitempty"`

	// ReconcileInterval is the sweep period (default: 30s).
	ReconcileInterval time.Duration `json:"reconcile_interval,omitempty"`
}

// CompletedConfig is the validated and completed configuration.
type CompletedConfig struct {
	*Config
}

// Complete validates and fills defaults.
func (c *Config) Complete() CompletedConfig {
	if c.StoreType == "" {
		c.StoreType = "inmemory"
	}
	if c.DBPath == "" {
		c.DBPath = "data/clinicore.db"
	}
	if c.WorkerConcurrency <= 0 {
		c.WorkerConcurrency = 4
	}
	if c.SoftDeadline <= 0 {
		c.SoftDeadline = 4 * time.Minute
	}
	if c.HardDeadline <= c.SoftDeadline {
		c.HardDeadline = c.SoftDeadline + time.Minute
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 1024
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 2 * time.Second
	}
	if c.ConsultTimeout <= 0 {
		c.ConsultTimeout = 60 * time.Second
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = 30 * time.Second
	}
	if c.PythonBin == "" {
		c.PythonBin = "python3"
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 2 * time.Minute
	}
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = 30 * time.Second
	}
	return CompletedConfig{c}
}

// Dependencies holds the optional collaborators injected by the host. Nil
// fields select the built-in model-free implementations.
type Dependencies struct {
	// TurnRunner produces assistant turns.
	TurnRunner runtime.TurnRunner
	// SpecialistRuntime answers consultations.
	SpecialistRuntime runtime.SpecialistRuntime
}

// Module is the top-level Chat module, holding all domain services.
type Module struct {
	Service     service.ChatService
	Gate        *service.ToolGate
	Specialists *service.SpecialistService
	Relay       *runtime.Relay
	Queue       *runtime.TaskQueue
	Pool        *runtime.Pool
	Reconciler  *runtime.Reconciler

	boltDB   *boltdbStore.DB
	sqliteDB *sqliteStore.DB
}

// Start recovers persisted work and launches the workers and the
// reconciler. Call once after New.
func (m *Module) Start(ctx context.Context) error {
	if err := m.Queue.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover task queue: %w", err)
	}
	m.Pool.Start(ctx)
	m.Reconciler.Start(ctx)
	return nil
}

// Close releases resources held by the module.
func (m *Module) Close() error {
	m.Queue.Close()
	if m.boltDB != nil {
		return m.boltDB.Close()
	}
	if m.sqliteDB != nil {
		return m.sqliteDB.Close()
	}
	return nil
}

// New creates and initializes the Chat module from a completed config.
func (c CompletedConfig) New(_ context.Context, deps Dependencies) (*Module, error) {
	logger.Info("[Chat] creating Chat module...")

	// Infrastructure layer: select store backend.
	var (
		msgStore     repo.MessageRepository
		sessionStore repo.SessionRepository
		toolStore    repo.ToolRepository
		spStore      repo.SpecialistRepository
		queueStore   runtime.QueueBackend
		boltDB       *boltdbStore.DB
		sqliteDB     *sqliteStore.DB
	)

	switch c.StoreType {
	case "boltdb":
		var err error
		boltDB, err = boltdbStore.Open(c.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open boltdb at %s: %w", c.DBPath, err)
		}
		msgStore = boltdbStore.NewMessageStore(boltDB)
		sessionStore = boltdbStore.NewSessionStore(boltDB)
		toolStore = boltdbStore.NewToolStore(boltDB)
		spStore = boltdbStore.NewSpecialistStore(boltDB)
		queueStore = boltdbStore.NewQueueStore(boltDB)
		logger.Info("[Chat] using BoltDB store at %s", c.DBPath)
	case "sqlite":
		var err error
		sqliteDB, err = sqliteStore.Open(c.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite at %s: %w", c.DBPath, err)
		}
		msgStore = sqliteStore.NewMessageStore(sqliteDB)
		sessionStore = sqliteStore.NewSessionStore(sqliteDB)
		toolStore = sqliteStore.NewToolStore(sqliteDB)
		spStore = sqliteStore.NewSpecialistStore(sqliteDB)
		queueStore = sqliteStore.NewQueueStore(sqliteDB)
		logger.Info("[Chat] using sqlite store at %s", c.DBPath)
	default:
		msgStore = inmemory.NewMessageStore()
		sessionStore = inmemory.NewSessionStore()
		toolStore = inmemory.NewToolStore()
		spStore = inmemory.NewSpecialistStore()
		queueStore = inmemory.NewQueueStore()
		logger.Info("[Chat] using in-memory store")
	}

	// Execution plumbing.
	executor := toolexec.New(&toolexec.Options{
		FunctionTimeout: c.ToolTimeout,
		APITimeout:      c.ToolTimeout,
		PythonBin:       c.PythonBin,
	})
	invoker := runtime.NewToolInvoker(toolStore, executor)

	spRuntime := deps.SpecialistRuntime
	if spRuntime == nil {
		spRuntime = runtime.NewLocalSpecialistRuntime()
	}
	coordinator := runtime.NewCoordinator(spRuntime, spStore, c.ConsultTimeout)

	runner := deps.TurnRunner
	if runner == nil {
		runner = runtime.NewLocalTurnRunner()
	}

	relay := runtime.NewRelay()
	queue := runtime.NewTaskQueue(queueStore, runtime.QueueConfig{
		Capacity:     c.QueueCapacity,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
	})
	pool := runtime.NewPool(
		runtime.PoolConfig{
			Concurrency:  c.WorkerConcurrency,
			SoftDeadline: c.SoftDeadline,
			HardDeadline: c.HardDeadline,
		},
		queue, msgStore, sessionStore, relay, runner, coordinator, invoker,
	)
	reconciler := runtime.NewReconciler(msgStore, relay, c.StaleAfter, c.ReconcileInterval)
	dispatcher := runtime.NewDispatcher(sessionStore, msgStore, queue)

	// Application service layer.
	gate := service.NewToolGate(toolStore)
	specialists := service.NewSpecialistService(spStore)
	svc := service.NewChatService(dispatcher, relay, msgStore, sessionStore, gate, executor)

	logger.Info("[Chat] Chat module initialized (store=%s, workers=%d, soft=%s, hard=%s, retries=%d)",
		c.StoreType, c.WorkerConcurrency, c.SoftDeadline, c.HardDeadline, c.MaxRetries)

	return &Module{
		Service:     svc,
		Gate:        gate,
		Specialists: specialists,
		Relay:       relay,
		Queue:       queue,
		Pool:        pool,
		Reconciler:  reconciler,
		boltDB:      boltDB,
		sqliteDB:    sqliteDB,
	}, nil
}
