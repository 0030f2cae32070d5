/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(cfg *Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.verbose {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	// The terminal owns stdout.
	zc.OutputPaths = []string{"stderr"}

	log, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	return log.With(zap.String("version", releaseVersion)), nil
}

// syncLogger flushes buffered entries. Syncing a terminal fails on some
// platforms, which is not worth reporting.
func syncLogger(log *zap.Logger) {
	if err := log.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
		fmt.Printf("ERROR: flushing log: %v\n", err)
	}
}
