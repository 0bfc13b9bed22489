/* pkg/platform/context.go */

package platform

import (
	"bufio"
	"os"
	"os/exec"
	"runtime"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

//
//---------------------------- OPERATING SYSTEMS ---------------------------- //
//

// GetOSPlatform returns a string representing the OS platform.
func GetOSPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	case "linux":
		return "linux"
	case "windows":
		return "windows"
	default:
		return "unknown"
	}
}

// OSRelease holds the fields we care about from /etc/os-release.
type OSRelease struct {
	ID         string
	VersionID  string
	PrettyName string
}

// ReadOSRelease parses /etc/os-release. Missing file yields zero values.
func ReadOSRelease() OSRelease {
	return readOSReleaseFile("/etc/os-release")
}

func readOSReleaseFile(path string) OSRelease {
	var rel OSRelease

	file, err := os.Open(path)
	if err != nil {
		return rel
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"`)
		switch key {
		case "ID":
			rel.ID = value
		case "VERSION_ID":
			rel.VersionID = value
		case "PRETTY_NAME":
			rel.PrettyName = value
		}
	}
	return rel
}

// DetectLinuxDistro returns "debian", "rhel", or "unknown".
func DetectLinuxDistro() string {
	switch ReadOSRelease().ID {
	case "debian", "ubuntu":
		return "debian"
	case "rhel", "centos", "rocky", "almalinux", "fedora":
		return "rhel"
	default:
		return "unknown"
	}
}

// Supported version floors per distro family. Older hosts get a warning, not
// a failure.
var supportedFloors = map[string]string{
	"ubuntu": "22.04",
	"debian": "12",
	"rhel":   "9",
}

// CheckSupportedPlatform logs an advisory warning when the host does not
// match the expected target distribution/version. Never fails the run.
func CheckSupportedPlatform(log *zap.Logger) {
	if GetOSPlatform() != "linux" {
		log.Warn("Unsupported platform - provisioning is designed for Linux hosts",
			zap.String("platform", GetOSPlatform()))
		return
	}

	rel := ReadOSRelease()
	if DetectLinuxDistro() == "unknown" {
		log.Warn("Unrecognized Linux distribution - proceeding anyway",
			zap.String("id", rel.ID),
			zap.String("pretty_name", rel.PrettyName))
		return
	}

	floor, ok := supportedFloors[rel.ID]
	if !ok || rel.VersionID == "" {
		return
	}

	have, err := goversion.NewVersion(rel.VersionID)
	if err != nil {
		log.Warn("Could not parse OS version", zap.String("version_id", rel.VersionID), zap.Error(err))
		return
	}
	want, err := goversion.NewVersion(floor)
	if err != nil {
		return
	}

	if have.LessThan(want) {
		log.Warn("Host OS version is below the supported floor",
			zap.String("distro", rel.ID),
			zap.String("version", rel.VersionID),
			zap.String("supported_floor", floor))
	}
}

// GetArch returns the runtime architecture.
func GetArch() string {
	return runtime.GOARCH
}

// IsCommandAvailable checks if a command exists in the system PATH.
func IsCommandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// UbuntuCodename returns the apt codename for repository configuration.
func UbuntuCodename() string {
	out, err := exec.Command("lsb_release", "-cs").Output()
	if err != nil {
		return "noble" // Default to latest LTS
	}
	return strings.TrimSpace(string(out))
}
