// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// LoadConfig reads a Config from the process environment, optionally
// preloading a .env.local file if one is present in the working directory.
// Unset fields fall back to DefaultConfig's values, then a zap-backed
// Logger is built at the configured LogLevel.
func LoadConfig(ctx context.Context) (*Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, err
	}

	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 9481
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}

	sink, err := NewZapSink(ParseLevel(cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	cfg.Logger = sink

	return cfg, nil
}
