// pkg/provision/helpers.go

package provision

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CommandRunner provides a consistent interface for running external commands.
type CommandRunner struct {
	rc      *hestia_io.RuntimeContext
	logger  otelzap.LoggerWithCtx
	dryRun  bool
	retries int
}

// NewCommandRunner creates a command runner. In dry-run mode commands are
// logged instead of executed.
func NewCommandRunner(rc *hestia_io.RuntimeContext, dryRun bool) *CommandRunner {
	return &CommandRunner{
		rc:      rc,
		logger:  otelzap.Ctx(rc.Ctx),
		dryRun:  dryRun,
		retries: 3,
	}
}

// DryRun reports whether the runner is in dry-run mode.
func (r *CommandRunner) DryRun() bool {
	return r.dryRun
}

// Run executes a command with retry logic and proper error handling.
func (r *CommandRunner) Run(name string, args ...string) error {
	return r.RunWithRetries(name, args, r.retries)
}

// RunOnce executes a command without retries.
func (r *CommandRunner) RunOnce(name string, args ...string) error {
	return r.RunWithRetries(name, args, 1)
}

// RunWithRetries executes a command with a custom retry count.
func (r *CommandRunner) RunWithRetries(name string, args []string, maxRetries int) error {
	r.logger.Debug("Executing command",
		zap.String("command", name),
		zap.Strings("args", args))

	if r.dryRun {
		r.logger.Info("DRY RUN: Would execute",
			zap.String("command", name),
			zap.Strings("args", args))
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		output, err := execute.Run(r.rc.Ctx, execute.Options{
			Command: name,
			Args:    args,
			Capture: true,
		})

		if err == nil {
			r.logger.Debug("Command succeeded",
				zap.String("command", name),
				zap.Int("attempt", attempt))
			return nil
		}

		lastErr = err
		r.logger.Warn("Command failed, retrying",
			zap.String("command", name),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.String("output", output))

		if attempt < maxRetries {
			backoff := time.Duration(attempt) * time.Second
			time.Sleep(backoff)
		}
	}

	return fmt.Errorf("command failed after %d attempts: %w", maxRetries, lastErr)
}

// RunOutput executes a command and returns its trimmed output.
func (r *CommandRunner) RunOutput(name string, args ...string) (string, error) {
	if r.dryRun {
		r.logger.Info("DRY RUN: Would execute for output",
			zap.String("command", name),
			zap.Strings("args", args))
		return "", nil
	}

	output, err := execute.Run(r.rc.Ctx, execute.Options{
		Command: name,
		Args:    args,
		Capture: true,
	})
	if err != nil {
		return "", fmt.Errorf("command failed: %w", err)
	}
	return strings.TrimSpace(output), nil
}

// RunQuiet executes a command without logging output (for existence checks).
func (r *CommandRunner) RunQuiet(name string, args ...string) error {
	if r.dryRun {
		return nil
	}
	_, err := execute.Run(r.rc.Ctx, execute.Options{
		Command: name,
		Args:    args,
		Capture: true,
	})
	return err
}

// RunWithExitCode runs a command and returns output and exit code. A non-zero
// exit code is not an error.
func (r *CommandRunner) RunWithExitCode(name string, args ...string) (string, int, error) {
	if r.dryRun {
		return "", 0, nil
	}
	return execute.RunWithExitCode(r.rc.Ctx, name, args...)
}

// SystemdService provides consistent systemd operations for one unit.
type SystemdService struct {
	runner *CommandRunner
	name   string
}

// NewSystemdService creates a systemd service manager.
func NewSystemdService(runner *CommandRunner, serviceName string) *SystemdService {
	return &SystemdService{runner: runner, name: serviceName}
}

func (s *SystemdService) ReloadDaemon() error {
	return s.runner.Run("systemctl", "daemon-reload")
}

func (s *SystemdService) Enable() error {
	return s.runner.Run("systemctl", "enable", s.name)
}

func (s *SystemdService) Start() error {
	return s.runner.RunWithRetries("systemctl", []string{"start", s.name}, 3)
}

func (s *SystemdService) Restart() error {
	return s.runner.Run("systemctl", "restart", s.name)
}

// IsActive checks if the service is active.
func (s *SystemdService) IsActive() bool {
	output, err := s.runner.RunOutput("systemctl", "is-active", s.name)
	return err == nil && output == "active"
}

// GetStatus returns the service status text.
func (s *SystemdService) GetStatus() (string, error) {
	return s.runner.RunOutput("systemctl", "status", s.name, "--no-pager")
}

// DirectoryManager handles directory provisioning consistently.
type DirectoryManager struct {
	runner *CommandRunner
	logger otelzap.LoggerWithCtx
}

// NewDirectoryManager creates a directory manager.
func NewDirectoryManager(runner *CommandRunner) *DirectoryManager {
	return &DirectoryManager{runner: runner, logger: runner.logger}
}

// EnsureWithOwnership creates a directory if absent and re-asserts ownership
// and mode even when it already exists, self-healing drift between runs.
func (d *DirectoryManager) EnsureWithOwnership(path, user, group string, mode os.FileMode) error {
	if d.runner.dryRun {
		d.logger.Info("DRY RUN: Would ensure directory",
			zap.String("path", path),
			zap.String("owner", user+":"+group),
			zap.String("mode", fmt.Sprintf("%04o", mode)))
		return nil
	}

	if err := os.MkdirAll(path, mode); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	if err := d.runner.Run("chown", "-R", fmt.Sprintf("%s:%s", user, group), path); err != nil {
		return fmt.Errorf("failed to set ownership for %s: %w", path, err)
	}

	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("failed to set permissions for %s: %w", path, err)
	}

	return nil
}

// FileManager handles file writes and backups.
type FileManager struct {
	runner *CommandRunner
	logger otelzap.LoggerWithCtx
}

// NewFileManager creates a file manager.
func NewFileManager(runner *CommandRunner) *FileManager {
	return &FileManager{runner: runner, logger: runner.logger}
}

// WriteWithOwnership writes a file with the given mode and ownership.
func (f *FileManager) WriteWithOwnership(path string, content []byte, mode os.FileMode, user, group string) error {
	if f.runner.dryRun {
		f.logger.Info("DRY RUN: Would write file",
			zap.String("path", path),
			zap.Int("bytes", len(content)),
			zap.String("owner", user+":"+group))
		return nil
	}

	if err := os.WriteFile(path, content, mode); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	// WriteFile honors umask; re-assert the exact mode.
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("failed to set permissions for %s: %w", path, err)
	}

	if err := f.runner.Run("chown", fmt.Sprintf("%s:%s", user, group), path); err != nil {
		return fmt.Errorf("failed to set ownership for %s: %w", path, err)
	}

	return nil
}

// BackupFile copies an existing file aside to a path suffixed with the
// current unix timestamp. The original is never deleted. Returns the backup
// path, or "" when no file existed.
func (f *FileManager) BackupFile(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", nil // File doesn't exist, no backup needed
	}

	ts := time.Now().Unix()
	backupPath := fmt.Sprintf("%s.backup.%d", path, ts)
	// Two backups in the same second must not overwrite each other.
	for n := 1; f.Exists(backupPath); n++ {
		backupPath = fmt.Sprintf("%s.backup.%d.%d", path, ts, n)
	}
	if f.runner.dryRun {
		f.logger.Info("DRY RUN: Would back up file",
			zap.String("original", path),
			zap.String("backup", backupPath))
		return backupPath, nil
	}

	if err := f.runner.Run("cp", "-p", path, backupPath); err != nil {
		return "", fmt.Errorf("failed to backup file %s: %w", path, err)
	}

	f.logger.Info("Created backup", zap.String("original", path), zap.String("backup", backupPath))
	return backupPath, nil
}

// Exists reports whether a path exists.
func (f *FileManager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ProgressReporter emits operator-facing progress lines.
type ProgressReporter struct {
	logger      otelzap.LoggerWithCtx
	taskName    string
	totalSteps  int
	currentStep int
}

// NewProgressReporter creates a progress reporter.
func NewProgressReporter(logger otelzap.LoggerWithCtx, taskName string, totalSteps int) *ProgressReporter {
	return &ProgressReporter{
		logger:     logger,
		taskName:   taskName,
		totalSteps: totalSteps,
	}
}

// Update reports progress.
func (p *ProgressReporter) Update(message string) {
	p.currentStep++
	percentage := (p.currentStep * 100) / p.totalSteps
	p.logger.Info(fmt.Sprintf("terminal prompt: %s", message),
		zap.Int("step", p.currentStep),
		zap.Int("total", p.totalSteps),
		zap.Int("percentage", percentage))
}

// Complete marks the task as complete.
func (p *ProgressReporter) Complete(message string) {
	p.logger.Info(fmt.Sprintf("terminal prompt: %s", message))
}

// UserHelper manages system accounts.
type UserHelper struct {
	runner *CommandRunner
}

// NewUserHelper creates a user helper.
func NewUserHelper(runner *CommandRunner) *UserHelper {
	return &UserHelper{runner: runner}
}

// EnsureSystemUser creates a dedicated, unprivileged, non-interactive system
// account if it does not already exist. Never errors when present.
func (u *UserHelper) EnsureSystemUser(username, homedir string) error {
	if err := u.runner.RunQuiet("id", username); err == nil {
		// User already exists
		return nil
	}

	args := []string{
		"--system",
		"--group",
		"--home", homedir,
		"--no-create-home",
		"--shell", "/bin/false",
		username,
	}

	if err := u.runner.RunOnce("useradd", args...); err != nil {
		// Check if the user was created by a concurrent process
		if err := u.runner.RunQuiet("id", username); err == nil {
			return nil
		}
		return fmt.Errorf("failed to create user %s: %w", username, err)
	}

	return nil
}
