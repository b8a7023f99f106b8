/*
Package config provides type-safe configuration extraction from map[string]any
and the pool settings read from it.

# Overview

config wraps a map[string]any and provides typed accessor methods that handle
missing keys and type mismatches gracefully by returning default values.

	cfg := config.New(map[string]any{
	    "capacity":     3,
	    "initial_size": 1,
	})

	capacity := cfg.Int("capacity", 10) // 3

# Pool Settings

A pool recognizes exactly two options, capacity and initial_size:

	pc, err := config.PoolConfigFrom(cfg)
	if err != nil {
	    // errors.Is(err, errors.ErrInvalidConfig)
	}
	p, err := pool.New(pc.Capacity, pc.InitialSize, dial)

Several pools can be described under one section and read with PoolConfigs.

# File Loading

Load configuration from YAML or JSON files:

	cfg, err := config.FromFile("pools.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	// Or load from bytes
	cfg, err = config.FromYAML(yamlBytes)
	cfg, err = config.FromJSON(jsonBytes)

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
