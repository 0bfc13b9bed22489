// pkg/provision/packages.go

package provision

import (
	"fmt"
	"os"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/platform"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	aptKeyringPath = "/usr/share/keyrings/hashicorp-archive-keyring.gpg"
	aptRepoPath    = "/etc/apt/sources.list.d/hashicorp.list"
	dnfRepoPath    = "/etc/yum.repos.d/hashicorp.repo"
)

// InstallPackage installs the Vault package from the HashiCorp repository,
// picking apt or dnf based on the detected distro family. A binary already
// on PATH short-circuits the install (re-runs stay idempotent).
func InstallPackage(rc *hestia_io.RuntimeContext, runner *CommandRunner) error {
	log := otelzap.Ctx(rc.Ctx)

	if platform.IsCommandAvailable(BinaryName) {
		log.Info("Vault binary already present, skipping package install")
		return nil
	}

	distro := platform.DetectLinuxDistro()
	switch distro {
	case "debian":
		return installViaApt(rc, runner)
	case "rhel":
		return installViaDnf(rc, runner)
	default:
		log.Warn("Unknown distro family, attempting apt install", zap.String("distro", distro))
		return installViaApt(rc, runner)
	}
}

func installViaApt(rc *hestia_io.RuntimeContext, runner *CommandRunner) error {
	log := otelzap.Ctx(rc.Ctx)
	log.Info("Installing Vault via HashiCorp APT repository")

	if !fileExists(aptKeyringPath) {
		log.Info("Adding HashiCorp GPG key")
		if output, err := runner.RunOutput("sh", "-c",
			"wget -O- https://apt.releases.hashicorp.com/gpg | gpg --dearmor -o "+aptKeyringPath); err != nil {
			return fmt.Errorf("failed to add GPG key: %w (output: %s)", err, output)
		}
	}

	log.Info("Adding HashiCorp repository")
	repoLine := fmt.Sprintf("deb [signed-by=%s] https://apt.releases.hashicorp.com %s main\n",
		aptKeyringPath, platform.UbuntuCodename())
	if err := writeRepoFile(runner, aptRepoPath, repoLine); err != nil {
		return fmt.Errorf("failed to add repository: %w", err)
	}

	log.Info("Updating package list")
	if err := runner.Run("apt-get", "update"); err != nil {
		return fmt.Errorf("failed to update package list: %w", err)
	}

	log.Info("Installing Vault package")
	if err := runner.Run("apt-get", "install", "-y", BinaryName); err != nil {
		return fmt.Errorf("failed to install Vault package: %w", err)
	}

	return nil
}

func installViaDnf(rc *hestia_io.RuntimeContext, runner *CommandRunner) error {
	log := otelzap.Ctx(rc.Ctx)
	log.Info("Installing Vault via HashiCorp DNF repository")

	repoContent := `[hashicorp]
name=HashiCorp Stable - $basearch
baseurl=https://rpm.releases.hashicorp.com/RHEL/$releasever/$basearch/stable
enabled=1
gpgcheck=1
gpgkey=https://rpm.releases.hashicorp.com/gpg
`
	if err := writeRepoFile(runner, dnfRepoPath, repoContent); err != nil {
		return fmt.Errorf("failed to add repository: %w", err)
	}

	log.Info("Installing Vault package")
	if err := runner.Run("dnf", "install", "-y", BinaryName); err != nil {
		return fmt.Errorf("failed to install Vault package: %w", err)
	}

	return nil
}

func writeRepoFile(runner *CommandRunner, path, content string) error {
	if runner.DryRun() {
		return nil
	}
	return os.WriteFile(path, []byte(content), 0644)
}
