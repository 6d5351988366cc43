// Package main is the entry point for the interactive grid viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/gridmesh/internal/config"
	"github.com/Faultbox/gridmesh/internal/logger"
	"github.com/Faultbox/gridmesh/internal/viewer"
	"github.com/Faultbox/gridmesh/internal/workspace"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.InitWithFileConfig(cfg.Logging.Level, cfg.Logging.File, true); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== gridmesh viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ws, err := workspace.New(cfg, logger.Named("workspace"), nil)
	if err != nil {
		logger.Error("failed to create workspace", zap.Error(err))
		os.Exit(1)
	}
	if n, err := ws.Fill(); err != nil {
		logger.Error("fill failed", zap.Error(err))
		os.Exit(1)
	} else {
		logger.Info("grid filled", zap.Int("cells", n))
	}

	v, err := viewer.New(ws)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		os.Exit(1)
	}
	defer v.Close()

	if err := v.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}
