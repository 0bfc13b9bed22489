// pkg/provision/constants.go

package provision

import "os"

const (
	// PortVault is Vault's default API port.
	PortVault = 8200
	// PortVaultCluster is Vault's default cluster/replication port.
	PortVaultCluster = 8201

	// ConfigDir holds vault.hcl, the environment file, and TLS material.
	ConfigDir      = "/etc/vault.d"
	ConfigFileName = "vault.hcl"
	EnvFileName    = "vault.env"
	TLSDirName     = "tls"

	DefaultCertPath = ConfigDir + "/" + TLSDirName + "/vault.crt"
	DefaultKeyPath  = ConfigDir + "/" + TLSDirName + "/vault.key"

	// FileStoragePath is the fixed data path the file backend always uses.
	FileStoragePath = "/var/lib/vault"

	ServiceName  = "vault"
	ServiceUser  = "vault"
	ServiceGroup = "vault"

	BinaryName = "vault"
)

const (
	// Owner-only: the service account reads its own config and data.
	DirPerm os.FileMode = 0700
	// Rendered configuration and the private key are owner read/write only.
	ConfigFilePerm os.FileMode = 0600
	TLSKeyPerm     os.FileMode = 0600
	// Certificates are public material.
	TLSCertPerm os.FileMode = 0644
	// Unit files are root-owned and world-readable by convention.
	UnitFilePerm os.FileMode = 0644
)

const (
	DefaultBindAddr       = "0.0.0.0"
	DefaultSelfSignedCN   = "vault.local"
	DefaultSelfSignedDays = 825
	// MinTLSKeyBits is the smallest RSA key this tool will generate.
	MinTLSKeyBits = 4096
)
