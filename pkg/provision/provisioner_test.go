// pkg/provision/provisioner_test.go
package provision

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dryRunConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.Set("dry_run", true)

	cfg := LoadConfig(v)
	cfg.ConfigDir = t.TempDir()
	return cfg
}

func stepOutcome(t *testing.T, r *Report, name string) Outcome {
	t.Helper()
	for _, s := range r.Steps {
		if s.Name == name {
			return s.Outcome
		}
	}
	t.Fatalf("step %q not found in report: %+v", name, r.Steps)
	return ""
}

func TestNewProvisionerRejectsInvalidConfig(t *testing.T) {
	rc := newTestContext(t)
	cfg := dryRunConfig(t)
	cfg.Port = -1

	_, err := NewProvisioner(rc, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
	assert.True(t, hestia_err.IsExpectedUserError(err),
		"a bad flag value is reported softly, not as an internal failure")
	assert.Equal(t, 2, hestia_err.GetExitCode(err))
}

// Re-running with an unchanged config must rewrite the same bytes and leave
// exactly one backup of the previous file.
func TestRenderConfigRerunBacksUpOnce(t *testing.T) {
	rc := newTestContext(t)
	cur, err := user.Current()
	require.NoError(t, err)
	grp, err := user.LookupGroupId(cur.Gid)
	require.NoError(t, err)

	cfg := dryRunConfig(t)
	cfg.DryRun = false
	cfg.ServiceUser = cur.Username
	cfg.ServiceGroup = grp.Name
	cfg.ServiceName = "vault-render-check"

	p, err := NewProvisioner(rc, cfg)
	require.NoError(t, err)
	unitPath := fmt.Sprintf("/etc/systemd/system/%s.service", cfg.ServiceName)
	t.Cleanup(func() { _ = os.Remove(unitPath) })

	require.NoError(t, p.renderConfig())
	first, err := os.ReadFile(cfg.ConfigFilePath())
	require.NoError(t, err)
	assert.Empty(t, p.report.BackupPath, "nothing to back up on the first render")

	require.NoError(t, p.renderConfig())
	second, err := os.ReadFile(cfg.ConfigFilePath())
	require.NoError(t, err)
	assert.Equal(t, first, second, "re-render of the same config must be byte-identical")

	backups, err := filepath.Glob(cfg.ConfigFilePath() + ".backup.*")
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, backups[0], p.report.BackupPath)

	preserved, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, first, preserved, "backup preserves the previous render")
}

func TestNewProvisionerRejectsNilConfig(t *testing.T) {
	rc := newTestContext(t)
	_, err := NewProvisioner(rc, nil)
	require.Error(t, err)
}

func TestProvisionDryRunSequence(t *testing.T) {
	rc := newTestContext(t)
	cfg := dryRunConfig(t)

	p, err := NewProvisioner(rc, cfg)
	require.NoError(t, err)

	report, err := p.Provision()
	require.NoError(t, err, "a dry run must succeed without privileges")
	require.NotNil(t, report)

	assert.True(t, report.DryRun)
	assert.False(t, report.CompletedAt.IsZero())

	// Every step is accounted for, in pipeline order.
	wantOrder := []string{
		StepPreflight, StepPackage, StepUser, StepDirectories,
		StepTLS, StepConfig, StepService, StepFirewall, StepConsul, StepVerify,
	}
	var gotOrder []string
	for _, s := range report.Steps {
		gotOrder = append(gotOrder, s.Name)
	}
	assert.Equal(t, wantOrder, gotOrder)

	// TLS is off by default, mutation steps are skipped in dry-run mode.
	assert.Equal(t, OutcomeSkipped, stepOutcome(t, report, StepTLS))
	assert.Equal(t, OutcomeSkipped, stepOutcome(t, report, StepService))
	assert.Equal(t, OutcomeSkipped, stepOutcome(t, report, StepFirewall))
	assert.Equal(t, OutcomeSkipped, stepOutcome(t, report, StepConsul))
	assert.Equal(t, OutcomeSkipped, stepOutcome(t, report, StepVerify))
}

func TestProvisionDryRunTouchesNothing(t *testing.T) {
	rc := newTestContext(t)
	cfg := dryRunConfig(t)
	cfg.TLSEnabled = true
	cfg.CertPath = cfg.TLSDir() + "/vault.crt"
	cfg.KeyPath = cfg.TLSDir() + "/vault.key"

	p, err := NewProvisioner(rc, cfg)
	require.NoError(t, err)

	_, err = p.Provision()
	require.NoError(t, err)

	assert.NoFileExists(t, cfg.ConfigFilePath())
	assert.NoFileExists(t, cfg.CertPath)
	assert.NoFileExists(t, cfg.KeyPath)
}

func TestProvisionDryRunAdvisoryTogglesOff(t *testing.T) {
	rc := newTestContext(t)
	cfg := dryRunConfig(t)
	cfg.OpenFirewall = false
	cfg.ConsulRegister = false

	p, err := NewProvisioner(rc, cfg)
	require.NoError(t, err)

	report, err := p.Provision()
	require.NoError(t, err)

	for _, s := range report.Steps {
		if s.Name == StepFirewall || s.Name == StepConsul {
			assert.Equal(t, OutcomeSkipped, s.Outcome)
			assert.Equal(t, "disabled by operator", s.Detail)
		}
	}
}

func TestProvisionReportCarriesAddresses(t *testing.T) {
	rc := newTestContext(t)
	cfg := dryRunConfig(t)

	p, err := NewProvisioner(rc, cfg)
	require.NoError(t, err)

	report, err := p.Provision()
	require.NoError(t, err)

	assert.Equal(t, cfg.APIAddr, report.APIAddr)
	assert.Equal(t, cfg.ConfigFilePath(), report.ConfigPath)
	assert.Empty(t, report.BackupPath, "no backup on a fresh dry run")
}

func TestRenderUnitFile(t *testing.T) {
	cfg := testConfig()
	cfg.ConfigDir = "/etc/vault.d"
	cfg.ServiceUser = "vault"
	cfg.ServiceGroup = "vault"

	unit := renderUnitFile(cfg)

	assert.Contains(t, unit, "User=vault")
	assert.Contains(t, unit, "Group=vault")
	assert.Contains(t, unit, "ExecStart=/usr/bin/vault server -config=/etc/vault.d/vault.hcl")
	assert.Contains(t, unit, "EnvironmentFile=-/etc/vault.d/vault.env")
	assert.Contains(t, unit, "ConditionFileNotEmpty=/etc/vault.d/vault.hcl")
	assert.Contains(t, unit, "CAP_IPC_LOCK")
	assert.Contains(t, unit, "WantedBy=multi-user.target")
}

func TestLocalAPIAddr(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "http://127.0.0.1:8200", localAPIAddr(cfg))
	cfg.TLSEnabled = true
	assert.Equal(t, "https://127.0.0.1:8200", localAPIAddr(cfg))
}
