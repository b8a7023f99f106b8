package config

import (
	"fmt"
	"sort"
	"time"

	rperrors "github.com/randalmurphal/respool/pkg/respool/errors"
)

// Keys read by PoolConfigFrom.
const (
	KeyName        = "name"
	KeyCapacity    = "capacity"
	KeyInitialSize = "initial_size"
	KeyMaxWait     = "max_wait"
)

// PoolConfig holds the settings of one bounded pool.
// Capacity and InitialSize are fixed once the pool is built.
type PoolConfig struct {
	// Name labels the pool in logs and metrics.
	Name        string
	Capacity    int
	InitialSize int
	// MaxWait bounds pool.AcquireWait. Zero keeps its default.
	MaxWait time.Duration
}

// DefaultPoolConfig matches the classic small connection pool: three
// connections, one built up front.
var DefaultPoolConfig = PoolConfig{
	Capacity:    3,
	InitialSize: 1,
}

// PoolConfigFrom reads name, capacity, initial_size and max_wait from c,
// falling back to DefaultPoolConfig for missing keys, and validates the
// result.
func PoolConfigFrom(c Config) (PoolConfig, error) {
	pc := PoolConfig{
		Name:        c.String(KeyName, DefaultPoolConfig.Name),
		Capacity:    c.Int(KeyCapacity, DefaultPoolConfig.Capacity),
		InitialSize: c.Int(KeyInitialSize, DefaultPoolConfig.InitialSize),
		MaxWait:     c.Duration(KeyMaxWait, DefaultPoolConfig.MaxWait),
	}
	if err := pc.Validate(); err != nil {
		return PoolConfig{}, err
	}
	return pc, nil
}

// PoolConfigs reads every named section under key, e.g.
//
//	pools:
//	  db:
//	    capacity: 3
//	    initial_size: 1
//	    max_wait: 2s
//
// A section without a name is named by its key. The first invalid section,
// by name order, fails the whole call.
func PoolConfigs(c Config, key string) (map[string]PoolConfig, error) {
	section := c.Sub(key)
	names := section.Keys()
	sort.Strings(names)

	out := make(map[string]PoolConfig, len(names))
	for _, name := range names {
		pc, err := PoolConfigFrom(section.Sub(name))
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", name, err)
		}
		if pc.Name == "" {
			pc.Name = name
		}
		out[name] = pc
	}
	return out, nil
}

// Validate checks 1 <= Capacity, 0 <= InitialSize <= Capacity and
// MaxWait >= 0.
func (pc PoolConfig) Validate() error {
	if pc.Capacity < 1 {
		return fmt.Errorf("%w: capacity %d must be at least 1", rperrors.ErrInvalidConfig, pc.Capacity)
	}
	if pc.InitialSize < 0 || pc.InitialSize > pc.Capacity {
		return fmt.Errorf("%w: initial size %d must be between 0 and capacity %d",
			rperrors.ErrInvalidConfig, pc.InitialSize, pc.Capacity)
	}
	if pc.MaxWait < 0 {
		return fmt.Errorf("%w: max wait %s must not be negative", rperrors.ErrInvalidConfig, pc.MaxWait)
	}
	return nil
}
