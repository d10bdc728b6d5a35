package threadpool

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Threads < 1 || cfg.Threads > MaxThreads {
		t.Fatalf("unexpected default threads %d", cfg.Threads)
	}
	if !cfg.LogAllErrors {
		t.Error("expected task panics to be logged by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero threads", func(c *Config) { c.Threads = 0 }},
		{"too many threads", func(c *Config) { c.Threads = MaxThreads + 1 }},
		{"zero capacity", func(c *Config) { c.QueueCapacity = 0 }},
		{"capacity too large", func(c *Config) { c.QueueCapacity = MaxQueue + 1 }},
		{"negative spin", func(c *Config) { c.SpinCount = -1 }},
		{"negative park", func(c *Config) { c.MaxParkTime = -time.Second }},
		{"negative cpu", func(c *Config) { c.CPUAffinity = []int{0, -2} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestLoadConfigYAML(t *testing.T) {
	content := `
threads: 3
queue_capacity: 100
spin_count: 0
max_park_time: 5ms
cpu_affinity: [0, 1]
log_all_errors: true
`
	path := filepath.Join(t.TempDir(), "pool.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Threads != 3 || cfg.QueueCapacity != 100 {
		t.Errorf("unexpected sizes %d/%d", cfg.Threads, cfg.QueueCapacity)
	}
	if cfg.SpinCount != 0 {
		t.Errorf("expected spin_count 0, got %d", cfg.SpinCount)
	}
	if cfg.MaxParkTime != 5*time.Millisecond {
		t.Errorf("expected 5ms, got %s", cfg.MaxParkTime)
	}
	if len(cfg.CPUAffinity) != 2 || !cfg.LogAllErrors {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadConfigJSONKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.json")
	if err := os.WriteFile(path, []byte(`{"queue_capacity": 8}`), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	def := DefaultConfig()
	if cfg.Threads != def.Threads || cfg.SpinCount != def.SpinCount || cfg.MaxParkTime != def.MaxParkTime {
		t.Errorf("defaults not kept: %+v", cfg)
	}
	if cfg.QueueCapacity != 8 {
		t.Errorf("expected queue_capacity 8, got %d", cfg.QueueCapacity)
	}
	if !cfg.LogAllErrors {
		t.Error("expected log_all_errors to keep its default")
	}
}

func TestParseConfigExplicitZeroIsRejected(t *testing.T) {
	tests := []struct {
		name, data, format string
	}{
		{"yaml threads", "threads: 0", "yaml"},
		{"yaml capacity", "queue_capacity: 0", "yaml"},
		{"json threads", `{"threads": 0}`, "json"},
		{"json capacity", `{"queue_capacity": 0}`, "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.data), tt.format); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestParseConfigDisablesErrorLogging(t *testing.T) {
	cfg, err := ParseConfig([]byte("log_all_errors: false"), "yaml")
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	if cfg.LogAllErrors {
		t.Error("expected log_all_errors false to override the default")
	}
}

func TestParseConfigErrors(t *testing.T) {
	if _, err := ParseConfig([]byte("threads: 1"), "toml"); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := ParseConfig([]byte("threads: [1"), "yaml"); err == nil {
		t.Error("expected error for malformed YAML")
	}
	if _, err := ParseConfig([]byte("max_park_time: soon"), "yaml"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for bad duration, got %v", err)
	}
	if _, err := ParseConfig([]byte("threads: 65"), "yml"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for too many threads, got %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
