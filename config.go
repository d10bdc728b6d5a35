package threadpool

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MaxThreads is the upper bound on workers per pool.
	MaxThreads = 64
	// MaxQueue is the upper bound on a single worker's queue capacity.
	MaxQueue = 65536
)

// Config describes a pool. Threads and QueueCapacity are fixed for the
// lifetime of the pool; everything else only tunes worker behaviour.
type Config struct {
	// Threads is the number of workers, each bound to its own OS thread.
	Threads int
	// QueueCapacity is the size of every worker's private queue.
	QueueCapacity int

	// SpinCount is how many empty polls (each followed by a yield) a worker
	// does before parking.
	SpinCount int
	// MaxParkTime bounds a single park. Zero means DefaultMaxParkTime.
	MaxParkTime time.Duration

	// CPUAffinity optionally pins worker i to CPUAffinity[i%len(CPUAffinity)].
	// Honoured on Linux only.
	CPUAffinity []int

	LogAllErrors bool
	Logger       *slog.Logger

	// PanicHandler receives the recovered value of a panicking task.
	PanicHandler func(workerID int, v any)
	// OnWorkerStart runs on the worker's thread before it polls. A non-nil
	// error aborts pool creation.
	OnWorkerStart func(workerID int) error
	// OnWorkerStop runs on the worker's thread after its loop exits.
	OnWorkerStop func(workerID int)
}

const (
	DefaultQueueCapacity = 1024
	DefaultSpinCount     = 30
	DefaultMaxParkTime   = 10 * time.Millisecond
)

// DefaultConfig returns one worker per CPU (capped at MaxThreads) with
// task panics logged.
func DefaultConfig() Config {
	return Config{
		Threads:       min(runtime.NumCPU(), MaxThreads),
		QueueCapacity: DefaultQueueCapacity,
		SpinCount:     DefaultSpinCount,
		MaxParkTime:   DefaultMaxParkTime,
		LogAllErrors:  true,
	}
}

// Validate reports the first out-of-range field as an ErrInvalidArgument.
func (c *Config) Validate() error {
	if c.Threads < 1 || c.Threads > MaxThreads {
		return fmt.Errorf("%w: threads must be in [1, %d], got %d", ErrInvalidArgument, MaxThreads, c.Threads)
	}
	if c.QueueCapacity < 1 || c.QueueCapacity > MaxQueue {
		return fmt.Errorf("%w: queue capacity must be in [1, %d], got %d", ErrInvalidArgument, MaxQueue, c.QueueCapacity)
	}
	if c.SpinCount < 0 {
		return fmt.Errorf("%w: spin count must be >= 0, got %d", ErrInvalidArgument, c.SpinCount)
	}
	if c.MaxParkTime < 0 {
		return fmt.Errorf("%w: max park time must be >= 0, got %s", ErrInvalidArgument, c.MaxParkTime)
	}
	for _, cpu := range c.CPUAffinity {
		if cpu < 0 {
			return fmt.Errorf("%w: negative cpu %d in affinity", ErrInvalidArgument, cpu)
		}
	}
	return nil
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Config) maxParkTime() time.Duration {
	if c.MaxParkTime <= 0 {
		return DefaultMaxParkTime
	}
	return c.MaxParkTime
}

// fileConfig is the on-disk form of Config.
type fileConfig struct {
	Threads       *int   `yaml:"threads" json:"threads"`
	QueueCapacity *int   `yaml:"queue_capacity" json:"queue_capacity"`
	SpinCount     *int   `yaml:"spin_count" json:"spin_count"`
	MaxParkTime   string `yaml:"max_park_time" json:"max_park_time"`
	CPUAffinity   []int  `yaml:"cpu_affinity" json:"cpu_affinity"`
	LogAllErrors  *bool  `yaml:"log_all_errors" json:"log_all_errors"`
}

// LoadConfig reads a YAML (.yaml, .yml) or JSON (.json) file. Fields the
// file leaves out keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// ParseConfig decodes data in the given format ("yaml", "yml" or "json")
// on top of DefaultConfig and validates the result.
func ParseConfig(data []byte, format string) (Config, error) {
	var fc fileConfig

	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format: %q", format)
	}

	cfg := DefaultConfig()
	if fc.Threads != nil {
		cfg.Threads = *fc.Threads
	}
	if fc.QueueCapacity != nil {
		cfg.QueueCapacity = *fc.QueueCapacity
	}
	if fc.SpinCount != nil {
		cfg.SpinCount = *fc.SpinCount
	}
	if fc.MaxParkTime != "" {
		d, err := time.ParseDuration(fc.MaxParkTime)
		if err != nil {
			return Config{}, fmt.Errorf("%w: max_park_time: %v", ErrInvalidArgument, err)
		}
		cfg.MaxParkTime = d
	}
	cfg.CPUAffinity = fc.CPUAffinity
	if fc.LogAllErrors != nil {
		cfg.LogAllErrors = *fc.LogAllErrors
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
