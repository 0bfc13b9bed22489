// pkg/provision/provisioner.go

package provision

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/platform"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/telemetry"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// minFreeDiskBytes below this the preflight warns about the data directory's
// filesystem. Vault's raft snapshots need headroom.
const minFreeDiskBytes = 1 << 30 // 1 GiB

// Provisioner installs and configures a single-node Vault service following
// the Assess -> Intervene -> Evaluate pattern. It is idempotent: running it
// on an already-provisioned host re-asserts state without breaking it.
type Provisioner struct {
	rc     *hestia_io.RuntimeContext
	config *Config
	logger otelzap.LoggerWithCtx

	runner   *CommandRunner
	systemd  *SystemdService
	dirs     *DirectoryManager
	files    *FileManager
	progress *ProgressReporter
	users    *UserHelper

	report *Report
}

// NewProvisioner wires up a Provisioner from a validated Config.
func NewProvisioner(rc *hestia_io.RuntimeContext, config *Config) (*Provisioner, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		// Bad flag values are the operator's to fix, not an internal failure.
		return nil, hestia_err.NewExpectedError(err)
	}

	logger := otelzap.Ctx(rc.Ctx)
	runner := NewCommandRunner(rc, config.DryRun)

	return &Provisioner{
		rc:       rc,
		config:   config,
		logger:   logger,
		runner:   runner,
		systemd:  NewSystemdService(runner, config.ServiceName),
		dirs:     NewDirectoryManager(runner),
		files:    NewFileManager(runner),
		progress: NewProgressReporter(logger, "Vault provisioning", 8),
		users:    NewUserHelper(runner),
		report:   NewReport(telemetry.RunID()),
	}, nil
}

// Provision executes the full provisioning sequence. Fatal steps abort with
// a classified error; advisory steps record warnings in the report and keep
// going. The returned report is valid even on error, describing how far the
// run got.
func (p *Provisioner) Provision() (*Report, error) {
	p.report.DryRun = p.config.DryRun
	p.report.TLSEnabled = p.config.TLSEnabled
	p.report.APIAddr = p.config.APIAddr
	p.report.ConfigPath = p.config.ConfigFilePath()
	defer p.report.Complete()

	// ASSESS
	if err := p.checkPrivileges(); err != nil {
		return p.report, err
	}
	p.preflight()

	// INTERVENE
	p.progress.Update("[1/8] Installing Vault package")
	if err := InstallPackage(p.rc, p.runner); err != nil {
		return p.report, hestia_err.NewDependencyError("vault package installation failed", err,
			"check network access to releases.hashicorp.com")
	}
	p.report.AddStep(StepPackage, OutcomeApplied, "")

	p.progress.Update("[2/8] Ensuring service account")
	if err := p.ensureUser(); err != nil {
		return p.report, hestia_err.NewSystemError("create service account", err)
	}
	p.report.AddStep(StepUser, OutcomeApplied, p.config.ServiceUser)

	p.progress.Update("[3/8] Creating directories")
	if err := p.ensureDirectories(); err != nil {
		return p.report, hestia_err.NewSystemError("create directories", err)
	}
	p.report.AddStep(StepDirectories, OutcomeApplied, "")

	p.progress.Update("[4/8] Ensuring TLS material")
	if err := p.ensureTLS(); err != nil {
		return p.report, err
	}

	p.progress.Update("[5/8] Rendering configuration")
	if err := p.renderConfig(); err != nil {
		return p.report, hestia_err.NewSystemError("write configuration", err)
	}

	p.progress.Update("[6/8] Activating service")
	if err := p.activateService(); err != nil {
		return p.report, err
	}

	p.progress.Update("[7/8] Configuring firewall")
	if p.config.OpenFirewall {
		p.report.Add(OpenFirewallPort(p.rc, p.runner, p.config.Port))
	} else {
		p.report.AddStep(StepFirewall, OutcomeSkipped, "disabled by operator")
	}

	p.progress.Update("[8/8] Registering with Consul")
	if p.config.ConsulRegister {
		p.report.Add(RegisterWithConsul(p.rc, p.config))
	} else {
		p.report.AddStep(StepConsul, OutcomeSkipped, "disabled by operator")
	}

	// EVALUATE
	p.verify()
	p.printSummary()

	return p.report, nil
}

// checkPrivileges refuses to run without root. Everything downstream writes
// to /etc and talks to systemd.
func (p *Provisioner) checkPrivileges() error {
	if p.config.DryRun {
		return nil
	}
	if os.Geteuid() != 0 {
		return hestia_err.NewPermissionError("provision vault",
			"run with sudo or as root")
	}
	return nil
}

// preflight runs advisory host checks. None of them abort the run.
func (p *Provisioner) preflight() {
	p.logger.Info("Assessing host",
		zap.String("os", platform.GetOSPlatform()),
		zap.String("arch", platform.GetArch()))
	platform.CheckSupportedPlatform(p.logger.ZapLogger())

	detail := ""
	outcome := OutcomeApplied

	var stat unix.Statfs_t
	if err := unix.Statfs("/var/lib", &stat); err == nil {
		free := stat.Bavail * uint64(stat.Bsize)
		if free < minFreeDiskBytes {
			p.logger.Warn("Low disk space for data directory",
				zap.Uint64("free_bytes", free),
				zap.Uint64("wanted_bytes", minFreeDiskBytes))
			outcome = OutcomeWarning
			detail = fmt.Sprintf("only %d MiB free under /var/lib", free>>20)
		}
	}

	if !p.systemd.IsActive() && !p.config.DryRun {
		if ln, err := net.Listen("tcp", p.config.ListenerAddress()); err != nil {
			p.logger.Warn("Listener port appears to be in use",
				zap.String("address", p.config.ListenerAddress()),
				zap.Error(err))
			outcome = OutcomeWarning
			detail = fmt.Sprintf("port %d already in use", p.config.Port)
		} else {
			_ = ln.Close()
		}
	}

	p.report.AddStep(StepPreflight, outcome, detail)
}

func (p *Provisioner) ensureUser() error {
	return p.users.EnsureSystemUser(p.config.ServiceUser, p.config.DataDir)
}

func (p *Provisioner) ensureDirectories() error {
	dirs := []string{
		p.config.ConfigDir,
		p.config.DataDir,
	}
	if p.config.TLSEnabled {
		dirs = append(dirs, p.config.TLSDir())
	}
	for _, dir := range dirs {
		if err := p.dirs.EnsureWithOwnership(dir, p.config.ServiceUser, p.config.ServiceGroup, DirPerm); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) ensureTLS() error {
	if !p.config.TLSEnabled {
		p.report.AddStep(StepTLS, OutcomeSkipped, "tls disabled")
		return nil
	}

	outcome, err := EnsureTLSMaterial(p.rc, p.runner, p.config)
	if err != nil {
		return hestia_err.NewTLSError("ensure tls material", err)
	}

	switch outcome {
	case TLSGenerated:
		p.report.AddStep(StepTLS, OutcomeApplied, "self-signed certificate generated")
	case TLSReused:
		p.report.AddStep(StepTLS, OutcomeApplied, "existing material reused")
	case TLSSkippedDryRun:
		p.report.AddStep(StepTLS, OutcomeSkipped, "dry run")
	}
	return nil
}

// renderConfig builds the HCL document and rewrites it every run. An
// existing file is backed up first, even when the new render is identical.
func (p *Provisioner) renderConfig() error {
	doc, backendKnown := BuildDocument(p.config)
	if !backendKnown {
		p.logger.Warn("Unrecognized storage backend, using file storage",
			zap.String("requested", p.config.StorageBackend))
		p.report.AddStep(StepConfig, OutcomeWarning,
			fmt.Sprintf("unknown backend %q, fell back to file", p.config.StorageBackend))
	}

	rendered := doc.Render()
	path := p.config.ConfigFilePath()

	// The prior version is always preserved before rewriting, even when the
	// new render is identical.
	if existing, err := os.ReadFile(path); err == nil {
		backupPath, backupErr := p.files.BackupFile(path)
		if backupErr != nil {
			return fmt.Errorf("backup existing config: %w", backupErr)
		}
		p.report.BackupPath = backupPath
		if bytes.Equal(existing, rendered) {
			p.logger.Info("Re-rendered configuration is identical to the previous one",
				zap.String("path", path))
		}
	}

	if err := p.files.WriteWithOwnership(path, rendered, ConfigFilePerm,
		p.config.ServiceUser, p.config.ServiceGroup); err != nil {
		return err
	}
	p.logger.Info("Configuration written",
		zap.String("path", path),
		zap.String("backend", string(doc.Storage.Backend)),
		zap.Bool("tls", p.config.TLSEnabled))

	if backendKnown {
		p.report.AddStep(StepConfig, OutcomeApplied, path)
	}
	return p.writeUnitFiles()
}

// writeUnitFiles installs the systemd unit and environment file. Package
// installs usually ship a unit; ours overrides it so the config path and
// hardening directives are under our control.
func (p *Provisioner) writeUnitFiles() error {
	unit := renderUnitFile(p.config)
	unitPath := fmt.Sprintf("/etc/systemd/system/%s.service", p.config.ServiceName)
	if err := p.files.WriteWithOwnership(unitPath, []byte(unit), UnitFilePerm, "root", "root"); err != nil {
		return fmt.Errorf("write unit file: %w", err)
	}

	env := fmt.Sprintf("VAULT_ADDR=%s\n", localAPIAddr(p.config))
	if err := p.files.WriteWithOwnership(p.config.EnvFilePath(), []byte(env), ConfigFilePerm,
		p.config.ServiceUser, p.config.ServiceGroup); err != nil {
		return fmt.Errorf("write environment file: %w", err)
	}
	return nil
}

func (p *Provisioner) activateService() error {
	if err := p.systemd.ReloadDaemon(); err != nil {
		return hestia_err.NewSystemError("systemd daemon-reload", err)
	}
	if err := p.systemd.Enable(); err != nil {
		return hestia_err.NewSystemError("enable service", err)
	}
	// An already-running service is restarted so it picks up the rendered
	// config; a fresh install gets a retried start.
	if p.systemd.IsActive() {
		if err := p.systemd.Restart(); err != nil {
			return hestia_err.NewSystemError("restart service", err)
		}
	} else if err := p.systemd.Start(); err != nil {
		return hestia_err.NewSystemError("start service", err)
	}

	if p.config.DryRun {
		p.report.AddStep(StepService, OutcomeSkipped, "dry run")
		return nil
	}

	// Give the daemon a moment to bind before checking state.
	select {
	case <-time.After(3 * time.Second):
	case <-p.rc.Ctx.Done():
		return p.rc.Ctx.Err()
	}

	if !p.systemd.IsActive() {
		status, _ := p.systemd.GetStatus()
		p.logger.Warn("Service did not report active after start",
			zap.String("status", status))
		p.report.AddStep(StepService, OutcomeWarning, "service not active yet")
		return nil
	}

	p.report.AddStep(StepService, OutcomeApplied, "active")
	return nil
}

// verify performs a read-only post-check and records the result.
func (p *Provisioner) verify() {
	if p.config.DryRun {
		p.report.AddStep(StepVerify, OutcomeSkipped, "dry run")
		return
	}

	output, code, err := p.runner.RunWithExitCode(BinaryName, "status", "-address="+localAPIAddr(p.config))
	if err != nil {
		p.report.AddStep(StepVerify, OutcomeWarning, "vault status unavailable")
		return
	}
	// Exit code 2 means sealed, which is the expected state after a fresh
	// install. 0 means unsealed, 1 means connection error.
	switch code {
	case 0, 2:
		p.report.AddStep(StepVerify, OutcomeApplied, "vault responding")
	default:
		p.logger.Warn("Vault status check failed",
			zap.Int("exit_code", code),
			zap.String("output", output))
		p.report.AddStep(StepVerify, OutcomeWarning, fmt.Sprintf("status exit code %d", code))
	}
}

func (p *Provisioner) printSummary() {
	p.progress.Complete("Vault provisioning finished")
	for _, line := range p.report.Summary() {
		p.logger.Info("terminal prompt: " + line)
	}

	p.logger.Info("terminal prompt: ")
	p.logger.Info("terminal prompt: Next steps:")
	p.logger.Info(fmt.Sprintf("terminal prompt:   1. export VAULT_ADDR=%s", localAPIAddr(p.config)))
	p.logger.Info("terminal prompt:   2. vault operator init")
	p.logger.Info("terminal prompt:   3. vault operator unseal (three key shares)")
	p.logger.Info("terminal prompt:   4. vault login <initial-root-token>")
	if p.config.TLSEnabled && p.config.SelfSigned {
		p.logger.Info("terminal prompt: ")
		p.logger.Info("terminal prompt: The certificate is self-signed. Clients need VAULT_CACERT=" + p.config.CertPath)
	}
	if p.config.StorageBackend == string(BackendRaft) {
		p.logger.Info("terminal prompt: ")
		p.logger.Info("terminal prompt: Raft storage is single-node until peers join via 'vault operator raft join'.")
	}
}

// localAPIAddr is the loopback address used for on-host checks, as opposed
// to the advertised api_addr which may carry the routable IP.
func localAPIAddr(cfg *Config) string {
	return fmt.Sprintf("%s://127.0.0.1:%d", cfg.Scheme(), cfg.Port)
}

func renderUnitFile(cfg *Config) string {
	return fmt.Sprintf(`[Unit]
Description=HashiCorp Vault secrets management service
Documentation=https://developer.hashicorp.com/vault/docs
Requires=network-online.target
After=network-online.target
ConditionFileNotEmpty=%s

[Service]
Type=notify
User=%s
Group=%s
EnvironmentFile=-%s
ProtectSystem=full
ProtectHome=read-only
PrivateTmp=yes
PrivateDevices=yes
SecureBits=keep-caps
AmbientCapabilities=CAP_IPC_LOCK
CapabilityBoundingSet=CAP_SYSLOG CAP_IPC_LOCK
NoNewPrivileges=yes
ExecStart=/usr/bin/%s server -config=%s
ExecReload=/bin/kill --signal HUP $MAINPID
KillMode=process
KillSignal=SIGINT
Restart=on-failure
RestartSec=5
TimeoutStopSec=30
LimitNOFILE=65536
LimitMEMLOCK=infinity

[Install]
WantedBy=multi-user.target
`,
		cfg.ConfigFilePath(),
		cfg.ServiceUser,
		cfg.ServiceGroup,
		cfg.EnvFilePath(),
		BinaryName,
		cfg.ConfigFilePath())
}
