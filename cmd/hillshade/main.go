// Package main is the entry point for the hillshade renderer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/relief/internal/config"
	"github.com/Faultbox/relief/internal/logger"
	"github.com/Faultbox/relief/internal/relief"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if config.SaveRequested() {
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved %s\n", config.SavePath())
		return
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	res, err := relief.Run(cfg)
	if err != nil {
		logger.Error("render failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("done",
		zap.String("source", res.Source),
		zap.String("output", res.Output),
		zap.Duration("elapsed", res.Elapsed))
}
