// pkg/provision/config.go

package provision

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/platform"
	"github.com/spf13/viper"
)

// Config is the immutable snapshot of all provisioning tunables. It is
// constructed once per run from defaults overridden by HESTIA_* environment
// variables and command flags, and never mutated afterward.
type Config struct {
	// Listener
	BindAddr string
	Port     int

	// TLS
	TLSEnabled     bool
	CertPath       string
	KeyPath        string
	SelfSigned     bool
	SelfSignedCN   string
	SelfSignedDays int

	// Storage
	StorageBackend string
	DataDir        string
	NodeID         string

	// Toggles
	UIEnabled    bool
	OpenFirewall bool

	// Advertised addresses. Derived from the primary IP when not overridden.
	APIAddr     string
	ClusterAddr string

	// Service identity
	ConfigDir    string
	ServiceName  string
	ServiceUser  string
	ServiceGroup string

	// Behavior
	ConsulRegister bool
	DryRun         bool
}

// SetDefaults registers every tunable with its default value so that
// HESTIA_* environment variables are picked up even without flags.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bind_addr", DefaultBindAddr)
	v.SetDefault("port", PortVault)
	v.SetDefault("tls_enabled", false)
	v.SetDefault("tls_cert_file", DefaultCertPath)
	v.SetDefault("tls_key_file", DefaultKeyPath)
	v.SetDefault("self_signed", true)
	v.SetDefault("self_signed_cn", DefaultSelfSignedCN)
	v.SetDefault("self_signed_days", DefaultSelfSignedDays)
	v.SetDefault("storage_backend", "file")
	v.SetDefault("data_dir", FileStoragePath)
	v.SetDefault("ui_enabled", true)
	v.SetDefault("open_firewall", true)
	v.SetDefault("api_addr", "")
	v.SetDefault("cluster_addr", "")
	v.SetDefault("consul_register", false)
	v.SetDefault("dry_run", false)
}

// LoadConfig snapshots viper state into a Config and fills derived fields.
func LoadConfig(v *viper.Viper) *Config {
	cfg := &Config{
		BindAddr:       v.GetString("bind_addr"),
		Port:           v.GetInt("port"),
		TLSEnabled:     v.GetBool("tls_enabled"),
		CertPath:       v.GetString("tls_cert_file"),
		KeyPath:        v.GetString("tls_key_file"),
		SelfSigned:     v.GetBool("self_signed"),
		SelfSignedCN:   v.GetString("self_signed_cn"),
		SelfSignedDays: v.GetInt("self_signed_days"),
		StorageBackend: v.GetString("storage_backend"),
		DataDir:        v.GetString("data_dir"),
		UIEnabled:      v.GetBool("ui_enabled"),
		OpenFirewall:   v.GetBool("open_firewall"),
		APIAddr:        v.GetString("api_addr"),
		ClusterAddr:    v.GetString("cluster_addr"),
		ConsulRegister: v.GetBool("consul_register"),
		DryRun:         v.GetBool("dry_run"),
	}
	cfg.applyDerived()
	return cfg
}

// applyDerived fills fields that are computed from the host unless the
// operator overrode them explicitly.
func (c *Config) applyDerived() {
	if c.ConfigDir == "" {
		c.ConfigDir = ConfigDir
	}
	if c.ServiceName == "" {
		c.ServiceName = ServiceName
	}
	if c.ServiceUser == "" {
		c.ServiceUser = ServiceUser
	}
	if c.ServiceGroup == "" {
		c.ServiceGroup = ServiceGroup
	}
	if c.NodeID == "" {
		c.NodeID = platform.ShortHostname()
	}
	if c.APIAddr == "" {
		c.APIAddr = fmt.Sprintf("%s://%s:%d", c.Scheme(), platform.PrimaryIP(), c.Port)
	}
	if c.ClusterAddr == "" {
		c.ClusterAddr = fmt.Sprintf("%s://%s:%d", c.Scheme(), platform.PrimaryIP(), PortVaultCluster)
	}
}

// Scheme returns the advertised URL scheme: https iff TLS is enabled.
func (c *Config) Scheme() string {
	if c.TLSEnabled {
		return "https"
	}
	return "http"
}

// ListenerAddress is the address:port the tcp listener binds.
func (c *Config) ListenerAddress() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}

// ConfigFilePath is the rendered document's destination.
func (c *Config) ConfigFilePath() string {
	return filepath.Join(c.ConfigDir, ConfigFileName)
}

// EnvFilePath is the systemd environment file destination.
func (c *Config) EnvFilePath() string {
	return filepath.Join(c.ConfigDir, EnvFileName)
}

// TLSDir is the directory holding cert and key.
func (c *Config) TLSDir() string {
	return filepath.Join(c.ConfigDir, TLSDirName)
}

// Validate rejects structurally unusable input. The storage backend enum is
// deliberately left open: unrecognized values fall back to the file backend
// at render time with a warning.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return hestia_err.NewValidationError(
			fmt.Sprintf("invalid port: %d", c.Port),
			"choose a port between 1 and 65535")
	}
	if strings.TrimSpace(c.BindAddr) == "" {
		return hestia_err.NewValidationError("bind address must not be empty")
	}
	if c.TLSEnabled {
		if c.CertPath == "" || c.KeyPath == "" {
			return hestia_err.NewValidationError(
				"TLS enabled but certificate or key path is empty",
				"set --tls-cert and --tls-key, or use the defaults")
		}
		if c.SelfSigned {
			if strings.TrimSpace(c.SelfSignedCN) == "" {
				return hestia_err.NewValidationError(
					"self-signed generation enabled but common name is empty",
					"set --self-signed-cn")
			}
			if c.SelfSignedDays < 1 {
				return hestia_err.NewValidationError(
					fmt.Sprintf("invalid certificate validity: %d days", c.SelfSignedDays))
			}
		}
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return hestia_err.NewValidationError("data directory must not be empty")
	}
	return nil
}
