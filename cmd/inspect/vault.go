// cmd/inspect/vault.go

package inspect

import (
	"fmt"
	"os"
	"time"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_cli"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/platform"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/provision"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// InspectVaultCmd reports the on-disk and runtime state of the local Vault
// installation. Read-only: it never modifies the host.
var InspectVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Report the state of the local Vault installation",
	RunE: hestia_cli.Wrap(func(rc *hestia_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		log := rc.Log

		binaryInstalled := platform.IsCommandAvailable(provision.BinaryName)
		report(rc, "Binary installed", binaryInstalled)

		configPath := provision.ConfigDir + "/" + provision.ConfigFileName
		configExists := fileExists(configPath)
		report(rc, fmt.Sprintf("Config present (%s)", configPath), configExists)

		certExists := fileExists(provision.DefaultCertPath)
		report(rc, "TLS certificate present", certExists)
		if certExists {
			if cert, err := provision.ParseCertificate(provision.DefaultCertPath); err == nil {
				remaining := time.Until(cert.NotAfter)
				log.Info(fmt.Sprintf("terminal prompt:   subject CN=%s, expires %s (%d days)",
					cert.Subject.CommonName,
					cert.NotAfter.Format("2006-01-02"),
					int(remaining.Hours()/24)))
				if remaining < 30*24*time.Hour {
					log.Warn("TLS certificate expires soon",
						zap.Time("not_after", cert.NotAfter))
				}
			} else {
				log.Warn("Failed to parse TLS certificate", zap.Error(err))
			}
		}

		runner := provision.NewCommandRunner(rc, false)
		service := provision.NewSystemdService(runner, provision.ServiceName)
		report(rc, "Service active", service.IsActive())

		if output, code, err := runner.RunWithExitCode(provision.BinaryName, "status"); err == nil {
			switch code {
			case 0:
				log.Info("terminal prompt: Vault status: unsealed")
			case 2:
				log.Info("terminal prompt: Vault status: sealed")
			default:
				log.Info("terminal prompt: Vault status: unreachable",
					zap.Int("exit_code", code), zap.String("output", output))
			}
		}

		return nil
	}),
}

func report(rc *hestia_io.RuntimeContext, label string, ok bool) {
	mark := "no"
	if ok {
		mark = "yes"
	}
	rc.Log.Info(fmt.Sprintf("terminal prompt: %-40s %s", label, mark))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
