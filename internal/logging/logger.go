// Package logging provides config-driven categorized logging for soundtrip.
// Each category is a named zap logger. Logs are written to <home>/logs/ only
// when debug_mode is on in config.yaml; otherwise every logger is a no-op so
// command output stays clean.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"soundtrip/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Boot/initialization
	CategoryConfig  Category = "config"  // Config loading and watching
	CategoryAPI     Category = "api"     // Story service calls
	CategoryStore   Category = "store"   // Key-value storage
	CategoryHistory Category = "history" // Saved stories, theme preference
	CategorySession Category = "session" // Application state transitions
	CategoryUI      Category = "ui"      // Interactive terminal UI
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	logCfg  config.LoggingConfig
	loggers = make(map[Category]*zap.Logger)
)

// Initialize builds the root logger from cfg. Should be called once at
// startup with the home directory. With debug mode off it is a no-op.
func Initialize(home string, cfg config.LoggingConfig) error {
	if !cfg.DebugMode {
		Set(zap.NewNop(), cfg)
		return nil
	}

	path := cfg.FilePath(home)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = "json"
	if cfg.Format == "console" || cfg.Format == "text" {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{path}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.Sampling = nil

	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	Set(l, cfg)

	boot := Get(CategoryBoot)
	boot.Info("logging initialized",
		zap.String("home", home),
		zap.String("file", path),
		zap.String("level", level.String()))
	return nil
}

// Set replaces the root logger. Used by -v to log to stderr and by tests.
// Categories only log when cfg.DebugMode is on.
func Set(l *zap.Logger, cfg config.LoggingConfig) {
	mu.Lock()
	defer mu.Unlock()

	_ = root.Sync()
	root = l
	logCfg = cfg
	loggers = make(map[Category]*zap.Logger)
}

// Get returns (or creates) the named logger for a category. Disabled
// categories get a no-op logger.
func Get(category Category) *zap.Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	l := zap.NewNop()
	if logCfg.IsCategoryEnabled(string(category)) {
		l = root.Named(string(category))
	}
	loggers[category] = l
	return l
}

// Sync flushes buffered entries (call at shutdown).
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer starts timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("operation completed",
		zap.String("op", t.op),
		zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("slow operation",
			zap.String("op", t.op),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold))
	} else {
		Get(t.category).Debug("operation completed",
			zap.String("op", t.op),
			zap.Duration("elapsed", elapsed))
	}
	return elapsed
}
