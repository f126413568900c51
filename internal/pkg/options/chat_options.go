package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// ChatOptions configures the chat module: persistence, worker pool,
// deadlines, and the tool sandbox.
type ChatOptions struct {
	// StoreType selects the persistence backend: inmemory, boltdb, sqlite.
	StoreType string `json:"store_type" mapstructure:"store_type"`

	// DBPath is the database file for the boltdb and sqlite backends.
	DBPath string `json:"db_path" mapstructure:"db_path"`

	// WorkerConcurrency caps simultaneously executing turns.
	WorkerConcurrency int `json:"worker_concurrency" mapstructure:"worker_concurrency"`

	// SoftDeadline is when a running turn starts graceful wind-down.
	SoftDeadline time.Duration `json:"soft_deadline" mapstructure:"soft_deadline"`

	// HardDeadline is when a running turn is forcibly killed.
	HardDeadline time.Duration `json:"hard_deadline" mapstructure:"hard_deadline"`

	// QueueCapacity bounds the in-memory task buffer.
	QueueCapacity int `json:"queue_capacity" mapstructure:"queue_capacity"`

	// MaxRetries caps redeliveries of one task unit.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// RetryBackoff is the fixed delay before a redelivery.
	RetryBackoff time.Duration `json:"retry_backoff" mapstructure:"retry_backoff"`

	// ConsultTimeout bounds one specialist consultation.
	ConsultTimeout time.Duration `json:"consult_timeout" mapstructure:"consult_timeout"`

	// ToolTimeout bounds one tool run, sandboxed or remote.
	ToolTimeout time.Duration `json:"tool_timeout" mapstructure:"tool_timeout"`

	// PythonBin is the interpreter for sandboxed function tools.
	PythonBin string `json:"python_bin" mapstructure:"python_bin"`

	// StaleAfter is the streaming staleness threshold of the reconciler.
	StaleAfter time.Duration `json:"stale_after" mapstructure:"stale_after"`

	// ReconcileInterval is the reconciler sweep period.
	ReconcileInterval time.Duration `json:"reconcile_interval" mapstructure:"reconcile_interval"`
}

// NewChatOptions returns the defaults.
func NewChatOptions() *ChatOptions {
	return &ChatOptions{
		StoreType:         "boltdb",
		DBPath:            "data/clinicore.db",
		WorkerConcurrency: 4,
		SoftDeadline:      4 * time.Minute,
		HardDeadline:      5 * time.Minute,
		QueueCapacity:     1024,
		MaxRetries:        3,
		RetryBackoff:      2 * time.Second,
		ConsultTimeout:    60 * time.Second,
		ToolTimeout:       30 * time.Second,
		PythonBin:         "python3",
		StaleAfter:        2 * time.Minute,
		ReconcileInterval: 30 * time.Second,
	}
}

// AddFlags registers the chat flags.
func (o *ChatOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.StoreType, "chat.store-type", o.StoreType, "Persistence backend: inmemory, boltdb, or sqlite.")
	fs.StringVar(&o.DBPath, "chat.db-path", o.DBPath, "Database file path for the boltdb and sqlite backends.")
	fs.IntVar(&o.WorkerConcurrency, "chat.worker-concurrency", o.WorkerConcurrency, "Number of turns executing at once.")
	fs.DurationVar(&o.SoftDeadline, "chat.soft-deadline", o.SoftDeadline, "Graceful wind-down point of one turn.")
	fs.DurationVar(&o.HardDeadline, "chat.hard-deadline", o.HardDeadline, "Forced-kill point of one turn.")
	fs.IntVar(&o.QueueCapacity, "chat.queue-capacity", o.QueueCapacity, "In-memory task buffer size.")
	fs.IntVar(&o.MaxRetries, "chat.max-retries", o.MaxRetries, "Maximum redeliveries of one task unit.")
	fs.DurationVar(&o.RetryBackoff, "chat.retry-backoff", o.RetryBackoff, "Fixed delay before a task redelivery.")
	fs.DurationVar(&o.ConsultTimeout, "chat.consult-timeout", o.ConsultTimeout, "Bound on one specialist consultation.")
	fs.DurationVar(&o.ToolTimeout, "chat.tool-timeout", o.ToolTimeout, "Bound on one tool run.")
	fs.StringVar(&o.PythonBin, "chat.python-bin", o.PythonBin, "Interpreter for sandboxed function tools.")
	fs.DurationVar(&o.StaleAfter, "chat.stale-after", o.StaleAfter, "Streaming staleness threshold of the reconciler.")
	fs.DurationVar(&o.ReconcileInterval, "chat.reconcile-interval", o.ReconcileInterval, "Reconciler sweep period.")
}

// Validate checks the chat options.
func (o *ChatOptions) Validate() []error {
	var errs []error
	switch o.StoreType {
	case "inmemory", "boltdb", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("chat.store-type %q is not one of inmemory, boltdb, sqlite", o.StoreType))
	}
	if o.HardDeadline <= o.SoftDeadline {
		errs = append(errs, fmt.Errorf("chat.hard-deadline %s must exceed chat.soft-deadline %s", o.HardDeadline, o.SoftDeadline))
	}
	if o.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("chat.max-retries %d must be at least 1", o.MaxRetries))
	}
	return errs
}
