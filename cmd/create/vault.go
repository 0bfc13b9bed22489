// cmd/create/vault.go

package create

import (
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_cli"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/platform"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/provision"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CreateVaultCmd installs and configures HashiCorp Vault on the local host.
var CreateVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Install and configure HashiCorp Vault on this host",
	Long: `Installs the Vault package from the HashiCorp repository, creates the
vault service account and directories, optionally generates self-signed TLS
material, renders /etc/vault.d/vault.hcl, and activates the systemd service.

Re-running is safe: existing TLS material is reused, and the previous config
is backed up before the file is rewritten.

All flags can also be set via HESTIA_* environment variables, for example
HESTIA_TLS_ENABLED=true or HESTIA_STORAGE_BACKEND=raft.`,
	RunE: hestia_cli.Wrap(func(rc *hestia_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		if platform.GetOSPlatform() != "linux" {
			return hestia_err.NewExpectedError(hestia_err.NewValidationError(
				"vault provisioning is only supported on Linux",
				"run hestia on a Debian or RHEL family host"))
		}

		v := newVaultViper(cmd)
		cfg := provision.LoadConfig(v)

		p, err := provision.NewProvisioner(rc, cfg)
		if err != nil {
			return err
		}

		report, err := p.Provision()
		if err != nil {
			rc.Log.Error("Provisioning failed",
				zap.String("run_id", report.RunID),
				zap.Error(err))
			return err
		}

		if warnings := report.Warnings(); len(warnings) > 0 {
			rc.Log.Warn("Provisioning completed with warnings",
				zap.Int("warning_count", len(warnings)))
		}
		return nil
	}),
}

// Config keys mapped to their command flags. Keys use underscores so that
// HESTIA_* environment variables line up; flags use dashes per CLI convention.
var vaultFlagKeys = map[string]string{
	"bind_addr":        "bind-addr",
	"port":             "port",
	"tls_enabled":      "tls-enabled",
	"tls_cert_file":    "tls-cert-file",
	"tls_key_file":     "tls-key-file",
	"self_signed":      "self-signed",
	"self_signed_cn":   "self-signed-cn",
	"self_signed_days": "self-signed-days",
	"storage_backend":  "storage-backend",
	"data_dir":         "data-dir",
	"ui_enabled":       "ui-enabled",
	"open_firewall":    "open-firewall",
	"api_addr":         "api-addr",
	"cluster_addr":     "cluster-addr",
	"consul_register":  "consul-register",
	"dry_run":          "dry-run",
}

// newVaultViper builds the layered config: defaults, HESTIA_* environment,
// then explicit flags on top.
func newVaultViper(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	provision.SetDefaults(v)
	v.SetEnvPrefix("HESTIA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, flag := range vaultFlagKeys {
		_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
	return v
}

func init() {
	flags := CreateVaultCmd.Flags()

	flags.String("bind-addr", provision.DefaultBindAddr, "Address the tcp listener binds")
	flags.Int("port", provision.PortVault, "API listener port")
	flags.Bool("tls-enabled", false, "Enable TLS on the listener")
	flags.String("tls-cert-file", provision.DefaultCertPath, "Path to the TLS certificate")
	flags.String("tls-key-file", provision.DefaultKeyPath, "Path to the TLS private key")
	flags.Bool("self-signed", true, "Generate self-signed TLS material when missing")
	flags.String("self-signed-cn", provision.DefaultSelfSignedCN, "Common name for self-signed certificates")
	flags.Int("self-signed-days", provision.DefaultSelfSignedDays, "Validity of self-signed certificates in days")
	flags.String("storage-backend", "file", "Storage backend: file or raft")
	flags.String("data-dir", provision.FileStoragePath, "Data directory for the storage backend")
	flags.Bool("ui-enabled", true, "Enable the web UI")
	flags.Bool("open-firewall", true, "Open the API port in the host firewall")
	flags.String("api-addr", "", "Advertised API address (derived from the primary IP when empty)")
	flags.String("cluster-addr", "", "Advertised cluster address (derived when empty)")
	flags.Bool("consul-register", false, "Register the service with a local Consul agent")
	flags.Bool("dry-run", false, "Log intended actions without changing the system")
}
