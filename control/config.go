// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Bring-up configuration: file loading (YAML or TOML), defaults, validation and a
// thread-safe store with reload propagation.

package control

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"go.yaml.in/yaml/v3"

	"github.com/momentics/hioload-nic/api"
)

// Config describes one NIC bring-up.
type Config struct {
	Pool    PoolConfig    `yaml:"pool" toml:"pool"`
	Rx      QueueConfig   `yaml:"rx" toml:"rx"`
	Tx      QueueConfig   `yaml:"tx" toml:"tx"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Stats   StatsConfig   `yaml:"stats" toml:"stats"`
	Memory  MemoryConfig  `yaml:"memory" toml:"memory"`
}

// PoolConfig sizes the shared receive buffer pool.
type PoolConfig struct {
	Name     string `yaml:"name" toml:"name"`
	Capacity int    `yaml:"capacity" toml:"capacity"`
	// Prefill is the number of buffers mapped before the rings. Zero fills the pool.
	Prefill    int `yaml:"prefill" toml:"prefill"`
	BufferSize int `yaml:"buffer_size" toml:"buffer_size"`
}

// QueueConfig sizes one direction of the device.
type QueueConfig struct {
	Queues      int `yaml:"queues" toml:"queues"`
	Descriptors int `yaml:"descriptors" toml:"descriptors"`
	// CPUs are assigned to queues round robin; queue bring-up runs pinned to its CPU.
	CPUs []int `yaml:"cpus" toml:"cpus"`
}

type LoggingConfig struct {
	Level            string `yaml:"level" toml:"level"`
	Format           string `yaml:"format" toml:"format"`
	DisableTimestamp bool   `yaml:"disable_timestamp" toml:"disable_timestamp"`
	TimestampFormat  string `yaml:"timestamp_format" toml:"timestamp_format"`
}

type StatsConfig struct {
	// Type is "none" or "prometheus".
	Type      string        `yaml:"type" toml:"type"`
	Listen    string        `yaml:"listen" toml:"listen"`
	Path      string        `yaml:"path" toml:"path"`
	Namespace string        `yaml:"namespace" toml:"namespace"`
	Subsystem string        `yaml:"subsystem" toml:"subsystem"`
	Interval  time.Duration `yaml:"interval" toml:"interval"`
}

type MemoryConfig struct {
	// Backend is "arena" (simulated physical memory) or "device" (locked host pages).
	Backend    string `yaml:"backend" toml:"backend"`
	ArenaBase  uint64 `yaml:"arena_base" toml:"arena_base"`
	ArenaLimit int    `yaml:"arena_limit" toml:"arena_limit"`
}

// DefaultConfig returns the settings used for every field a file leaves empty.
func DefaultConfig() Config {
	return Config{
		Pool:    PoolConfig{Name: "rx", Capacity: 1024, BufferSize: 2048},
		Rx:      QueueConfig{Queues: 1, Descriptors: 512},
		Tx:      QueueConfig{Queues: 1, Descriptors: 512},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Stats:   StatsConfig{Type: "none", Path: "/metrics", Namespace: "nic", Interval: 10 * time.Second},
		Memory:  MemoryConfig{Backend: "arena", ArenaBase: 0x1_0000_0000},
	}
}

// LoadConfig reads path, choosing the decoder by extension (.yml, .yaml or .toml),
// and fills unset fields from DefaultConfig. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yml", ".yaml":
			err = yaml.Unmarshal(data, cfg)
		case ".toml":
			_, err = toml.Decode(string(data), cfg)
		default:
			return nil, fmt.Errorf("%w: unknown config format %q", api.ErrInvalidArgument, ext)
		}
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := mergo.Merge(cfg, DefaultConfig()); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if cfg.Pool.Prefill == 0 {
		cfg.Pool.Prefill = cfg.Pool.Capacity
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the bounds the initializers and the hardware impose.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", api.ErrInvalidArgument, fmt.Sprintf(format, args...))
	}
	if c.Pool.Capacity < 1 {
		return invalid("pool.capacity must be at least 1, got %d", c.Pool.Capacity)
	}
	// the descriptor length field is 16 bits wide
	if c.Pool.BufferSize <= 0 || c.Pool.BufferSize > math.MaxUint16 {
		return invalid("pool.buffer_size must be in (0, %d], got %d", math.MaxUint16, c.Pool.BufferSize)
	}
	if c.Pool.Prefill < 0 || c.Pool.Prefill > c.Pool.Capacity {
		return invalid("pool.prefill %d exceeds pool.capacity %d", c.Pool.Prefill, c.Pool.Capacity)
	}
	for _, q := range []struct {
		name string
		QueueConfig
	}{{"rx", c.Rx}, {"tx", c.Tx}} {
		if q.Queues < 1 {
			return invalid("%s.queues must be at least 1, got %d", q.name, q.Queues)
		}
		// ring length registers take multiples of 128 bytes
		if q.Descriptors < 0 || q.Descriptors%8 != 0 {
			return invalid("%s.descriptors must be a multiple of 8, got %d", q.name, q.Descriptors)
		}
		for _, cpu := range q.CPUs {
			if cpu < 0 {
				return invalid("%s.cpus has negative cpu %d", q.name, cpu)
			}
		}
	}
	switch c.Memory.Backend {
	case "arena", "device":
	default:
		return invalid("memory.backend %q not understood", c.Memory.Backend)
	}
	switch c.Stats.Type {
	case "", "none", "prometheus":
	default:
		return invalid("stats.type %q not understood", c.Stats.Type)
	}
	return nil
}

// ConfigStore holds the active configuration with snapshot reads and listeners.
type ConfigStore struct {
	mu        sync.RWMutex
	config    Config
	gen       uint64
	listeners []func(Config)

	// dispatchMu serializes listener runs; delivered is the newest generation run.
	dispatchMu sync.Mutex
	delivered  uint64
}

// NewConfigStore initializes a store with cfg.
func NewConfigStore(cfg Config) *ConfigStore {
	return &ConfigStore{config: cfg}
}

// GetSnapshot returns a copy of the active configuration.
func (cs *ConfigStore) GetSnapshot() Config {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config
}

// SetConfig validates and installs cfg, then dispatches reload listeners
// asynchronously. Listeners never run concurrently with each other, and a
// configuration superseded before its dispatch started is skipped, so the last
// installed configuration is always the last one listeners see.
func (cs *ConfigStore) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.config = cfg
	cs.gen++
	gen := cs.gen
	listeners := append([]func(Config){}, cs.listeners...)
	cs.mu.Unlock()
	go cs.dispatchReload(gen, cfg, listeners)
	return nil
}

// dispatchReload invokes listeners in registration order unless a newer
// generation was already delivered.
func (cs *ConfigStore) dispatchReload(gen uint64, cfg Config, listeners []func(Config)) {
	cs.dispatchMu.Lock()
	defer cs.dispatchMu.Unlock()
	if gen <= cs.delivered {
		return
	}
	cs.delivered = gen
	for _, fn := range listeners {
		fn(cfg)
	}
}

// OnReload registers a listener called with every installed configuration.
func (cs *ConfigStore) OnReload(fn func(Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
