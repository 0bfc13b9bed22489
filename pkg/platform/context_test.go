// pkg/platform/context_test.go
package platform

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOSRelease(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "os-release")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadOSReleaseFile(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected OSRelease
	}{
		{
			name: "ubuntu",
			content: `PRETTY_NAME="Ubuntu 24.04.1 LTS"
NAME="Ubuntu"
VERSION_ID="24.04"
ID=ubuntu
ID_LIKE=debian
`,
			expected: OSRelease{ID: "ubuntu", VersionID: "24.04", PrettyName: "Ubuntu 24.04.1 LTS"},
		},
		{
			name: "rocky",
			content: `NAME="Rocky Linux"
VERSION_ID="9.4"
ID="rocky"
PRETTY_NAME="Rocky Linux 9.4 (Blue Onyx)"
`,
			expected: OSRelease{ID: "rocky", VersionID: "9.4", PrettyName: "Rocky Linux 9.4 (Blue Onyx)"},
		},
		{
			name:     "garbage lines ignored",
			content:  "not a key value line\nID=debian\n",
			expected: OSRelease{ID: "debian"},
		},
		{
			name:     "empty file",
			content:  "",
			expected: OSRelease{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeOSRelease(t, tt.content)
			assert.Equal(t, tt.expected, readOSReleaseFile(path))
		})
	}
}

func TestReadOSReleaseFileMissing(t *testing.T) {
	rel := readOSReleaseFile("/nonexistent/os-release")
	assert.Equal(t, OSRelease{}, rel)
}

func TestIsCommandAvailable(t *testing.T) {
	assert.True(t, IsCommandAvailable("sh"))
	assert.False(t, IsCommandAvailable("definitely-not-a-real-command-xyz"))
}

func TestPrimaryIPIsParsable(t *testing.T) {
	ip := PrimaryIP()
	require.NotEmpty(t, ip)
	assert.NotNil(t, net.ParseIP(ip), "PrimaryIP returned %q", ip)
}

func TestShortHostnameHasNoDots(t *testing.T) {
	short := ShortHostname()
	require.NotEmpty(t, short)
	assert.NotContains(t, short, ".")
}

func TestGetOSPlatform(t *testing.T) {
	platform := GetOSPlatform()
	assert.Contains(t, []string{"linux", "macos", "windows", "unknown"}, platform)
}

func TestGetArch(t *testing.T) {
	assert.Equal(t, runtime.GOARCH, GetArch())
}
