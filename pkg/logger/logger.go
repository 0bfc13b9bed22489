// pkg/logger/logger.go

package logger

import (
	"os"
	"path/filepath"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var log *zap.Logger

// Initialize builds the logger from the default config and installs it as the
// zap and otelzap global. File output is dropped when the log path is not
// writable (e.g. not running as root).
func Initialize() error {
	cfg := defaultConfig()

	for _, path := range cfg.OutputPaths {
		if path == "stdout" || path == "stderr" {
			continue
		}
		if err := ensureLogPermissions(path); err != nil {
			cfg.OutputPaths = []string{"stdout"}
			break
		}
	}

	built, err := cfg.Build()
	if err != nil {
		cfg.OutputPaths = []string{"stdout"}
		built, err = cfg.Build()
		if err != nil {
			return err
		}
	}

	installGlobals(built)
	return nil
}

// InitializeWithFallback never fails: it falls back to a console-only logger.
func InitializeWithFallback() {
	if err := Initialize(); err != nil {
		InitFallback()
	}
}

// InitFallback installs a minimal console logger. Safe to call repeatedly.
func InitFallback() {
	if log != nil {
		return
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	built, err := cfg.Build()
	if err != nil {
		built = zap.NewNop()
	}
	installGlobals(built)
}

// L returns the global logger, or nil if uninitialized.
func L() *zap.Logger {
	return log
}

// GetLogger returns the global logger, initializing a fallback if needed.
func GetLogger() *zap.Logger {
	if log == nil {
		InitFallback()
	}
	return log
}

// SafeSync flushes buffered log entries, ignoring the spurious EINVAL that
// syncing stdout produces on Linux.
func SafeSync() {
	if log != nil {
		_ = log.Sync()
	}
}

func installGlobals(l *zap.Logger) {
	log = l
	zap.ReplaceGlobals(l)
	otelzap.ReplaceGlobals(otelzap.New(l))
}

func ensureLogPermissions(logFilePath string) error {
	dir := filepath.Dir(logFilePath)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	} else {
		if err := os.Chmod(dir, 0700); err != nil {
			return err
		}
	}

	if _, err := os.Stat(logFilePath); os.IsNotExist(err) {
		file, err := os.Create(logFilePath)
		if err != nil {
			return err
		}
		file.Close()
	}

	// Read/write for owner only
	return os.Chmod(logFilePath, 0600)
}
