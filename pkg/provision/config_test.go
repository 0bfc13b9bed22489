// pkg/provision/config_test.go
package provision

import (
	"strings"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg := LoadConfig(v)

	assert.Equal(t, DefaultBindAddr, cfg.BindAddr)
	assert.Equal(t, PortVault, cfg.Port)
	assert.False(t, cfg.TLSEnabled)
	assert.True(t, cfg.SelfSigned)
	assert.Equal(t, DefaultSelfSignedCN, cfg.SelfSignedCN)
	assert.Equal(t, DefaultSelfSignedDays, cfg.SelfSignedDays)
	assert.Equal(t, "file", cfg.StorageBackend)
	assert.True(t, cfg.UIEnabled)
	assert.True(t, cfg.OpenFirewall)
	assert.False(t, cfg.ConsulRegister)
	assert.False(t, cfg.DryRun)
}

func TestLoadConfigDerivedFields(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg := LoadConfig(v)

	assert.NotEmpty(t, cfg.NodeID, "node id should derive from the hostname")
	assert.True(t, strings.HasPrefix(cfg.APIAddr, "http://"),
		"api_addr should be http when TLS is off, got %q", cfg.APIAddr)
	assert.True(t, strings.HasSuffix(cfg.APIAddr, ":8200"))
	assert.True(t, strings.HasSuffix(cfg.ClusterAddr, ":8201"))
	assert.Equal(t, ConfigDir, cfg.ConfigDir)
	assert.Equal(t, ServiceUser, cfg.ServiceUser)
}

func TestLoadConfigDerivedSchemeWithTLS(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("tls_enabled", true)

	cfg := LoadConfig(v)

	assert.True(t, strings.HasPrefix(cfg.APIAddr, "https://"))
	assert.True(t, strings.HasPrefix(cfg.ClusterAddr, "https://"))
}

func TestLoadConfigExplicitAddrNotOverridden(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("api_addr", "https://vault.example.com:8200")

	cfg := LoadConfig(v)

	assert.Equal(t, "https://vault.example.com:8200", cfg.APIAddr)
}

func TestConfigScheme(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "http", cfg.Scheme())
	cfg.TLSEnabled = true
	assert.Equal(t, "https", cfg.Scheme())
}

func TestConfigPaths(t *testing.T) {
	cfg := testConfig()
	cfg.ConfigDir = "/etc/vault.d"

	assert.Equal(t, "/etc/vault.d/vault.hcl", cfg.ConfigFilePath())
	assert.Equal(t, "/etc/vault.d/vault.env", cfg.EnvFilePath())
	assert.Equal(t, "/etc/vault.d/tls", cfg.TLSDir())
	assert.Equal(t, "0.0.0.0:8200", cfg.ListenerAddress())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: "invalid port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: "invalid port",
		},
		{
			name:    "empty bind address",
			mutate:  func(c *Config) { c.BindAddr = "  " },
			wantErr: "bind address",
		},
		{
			name: "tls without cert path",
			mutate: func(c *Config) {
				c.TLSEnabled = true
				c.CertPath = ""
				c.KeyPath = "/some/key"
			},
			wantErr: "certificate or key path",
		},
		{
			name: "self signed without common name",
			mutate: func(c *Config) {
				c.TLSEnabled = true
				c.CertPath = "/some/cert"
				c.KeyPath = "/some/key"
				c.SelfSigned = true
				c.SelfSignedCN = ""
			},
			wantErr: "common name",
		},
		{
			name: "self signed with zero validity",
			mutate: func(c *Config) {
				c.TLSEnabled = true
				c.CertPath = "/some/cert"
				c.KeyPath = "/some/key"
				c.SelfSigned = true
				c.SelfSignedCN = "vault.local"
				c.SelfSignedDays = 0
			},
			wantErr: "validity",
		},
		{
			name:    "empty data dir",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: "data directory",
		},
		{
			name: "unknown storage backend passes validation",
			mutate: func(c *Config) {
				c.StorageBackend = "zookeeper"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, 2, hestia_err.GetExitCode(err),
				"validation failures use the usage exit code")
		})
	}
}
