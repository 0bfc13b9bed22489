// pkg/provision/tls.go

package provision

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CertificateConfig contains configuration for self-signed TLS generation.
type CertificateConfig struct {
	CommonName   string
	ValidityDays int
	KeySize      int

	// Subject Alternative Names
	DNSNames    []string
	IPAddresses []net.IP

	CertPath string
	KeyPath  string
}

// TLSOutcome describes what the ensure step did.
type TLSOutcome int

const (
	// TLSReused - both files already existed, ownership/permissions re-asserted
	TLSReused TLSOutcome = iota
	// TLSGenerated - fresh self-signed material was written
	TLSGenerated
	// TLSSkippedDryRun - dry-run mode, nothing touched
	TLSSkippedDryRun
)

// EnsureTLSMaterial makes the TLS invariant hold: if TLS is enabled, both the
// certificate and key exist, are owned by the service account, and the key is
// not world-readable. Existing material is reused, never regenerated. When
// material is absent and self-signed generation is disabled, the caller gets
// an error and must treat it as fatal.
func EnsureTLSMaterial(rc *hestia_io.RuntimeContext, runner *CommandRunner, cfg *Config) (TLSOutcome, error) {
	log := otelzap.Ctx(rc.Ctx)

	if runner.DryRun() {
		log.Info("DRY RUN: Would ensure TLS material",
			zap.String("cert", cfg.CertPath),
			zap.String("key", cfg.KeyPath))
		return TLSSkippedDryRun, nil
	}

	certExists := fileExists(cfg.CertPath)
	keyExists := fileExists(cfg.KeyPath)

	if certExists && keyExists {
		log.Info("TLS material already exists, reusing",
			zap.String("cert", cfg.CertPath),
			zap.String("key", cfg.KeyPath))
		if err := reassertTLSOwnership(runner, cfg); err != nil {
			return TLSReused, err
		}
		return TLSReused, nil
	}

	if !cfg.SelfSigned {
		return TLSReused, fmt.Errorf(
			"TLS is enabled but material is missing (cert: %s exists=%t, key: %s exists=%t) and self-signed generation is disabled",
			cfg.CertPath, certExists, cfg.KeyPath, keyExists)
	}

	certCfg := &CertificateConfig{
		CommonName:   cfg.SelfSignedCN,
		ValidityDays: cfg.SelfSignedDays,
		KeySize:      MinTLSKeyBits,
		CertPath:     cfg.CertPath,
		KeyPath:      cfg.KeyPath,
		DNSNames:     certificateSANs(cfg.SelfSignedCN),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	if err := GenerateSelfSignedCertificate(rc, certCfg); err != nil {
		return TLSGenerated, err
	}

	if err := reassertTLSOwnership(runner, cfg); err != nil {
		return TLSGenerated, err
	}
	return TLSGenerated, nil
}

// GenerateSelfSignedCertificate generates an RSA key and self-signed X.509
// certificate, writing both as PEM to the configured paths.
func GenerateSelfSignedCertificate(rc *hestia_io.RuntimeContext, config *CertificateConfig) error {
	log := otelzap.Ctx(rc.Ctx)
	log.Info("Generating self-signed TLS certificate",
		zap.String("common_name", config.CommonName),
		zap.Int("key_size", config.KeySize),
		zap.Int("validity_days", config.ValidityDays))

	if err := validateCertificateConfig(config); err != nil {
		return fmt.Errorf("validate tls config: %w", err)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, config.KeySize)
	if err != nil {
		return fmt.Errorf("generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generate serial number: %w", err)
	}

	notBefore := time.Now()
	notAfter := notBefore.Add(time.Duration(config.ValidityDays) * 24 * time.Hour)

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Code Monkey Cybersecurity"},
			CommonName:   config.CommonName,
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              config.DNSNames,
		IPAddresses:           config.IPAddresses,
	}

	certBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}

	certDir := filepath.Dir(config.CertPath)
	if err := os.MkdirAll(certDir, DirPerm); err != nil {
		return fmt.Errorf("create cert directory: %w", err)
	}

	log.Info("Writing certificate", zap.String("path", config.CertPath))
	certFile, err := os.Create(config.CertPath)
	if err != nil {
		return fmt.Errorf("create cert file: %w", err)
	}
	defer func() { _ = certFile.Close() }()

	if err := pem.Encode(certFile, &pem.Block{Type: "CERTIFICATE", Bytes: certBytes}); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}

	if err := os.Chmod(config.CertPath, TLSCertPerm); err != nil {
		log.Warn("Failed to set certificate permissions", zap.Error(err))
	}

	log.Info("Writing private key", zap.String("path", config.KeyPath))
	keyFile, err := os.OpenFile(config.KeyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, TLSKeyPerm)
	if err != nil {
		return fmt.Errorf("create key file: %w", err)
	}
	defer func() { _ = keyFile.Close() }()

	privateKeyBytes := x509.MarshalPKCS1PrivateKey(privateKey)
	if err := pem.Encode(keyFile, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: privateKeyBytes}); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}

	// Re-assert in case the file pre-existed with looser bits
	if err := os.Chmod(config.KeyPath, TLSKeyPerm); err != nil {
		return fmt.Errorf("set key permissions: %w", err)
	}

	log.Info("TLS certificate generated successfully",
		zap.String("cert", config.CertPath),
		zap.String("key", config.KeyPath),
		zap.Time("not_after", notAfter))

	return nil
}

// ParseCertificate reads and parses a PEM certificate from disk.
func ParseCertificate(certPath string) (*x509.Certificate, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block from %s", certPath)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	return cert, nil
}

func reassertTLSOwnership(runner *CommandRunner, cfg *Config) error {
	owner := cfg.ServiceUser + ":" + cfg.ServiceGroup
	if err := runner.Run("chown", owner, cfg.CertPath); err != nil {
		return fmt.Errorf("failed to set certificate ownership: %w", err)
	}
	if err := runner.Run("chown", owner, cfg.KeyPath); err != nil {
		return fmt.Errorf("failed to set key ownership: %w", err)
	}
	if err := os.Chmod(cfg.CertPath, TLSCertPerm); err != nil {
		return fmt.Errorf("failed to set certificate permissions: %w", err)
	}
	if err := os.Chmod(cfg.KeyPath, TLSKeyPerm); err != nil {
		return fmt.Errorf("failed to set key permissions: %w", err)
	}
	return nil
}

func certificateSANs(cn string) []string {
	names := []string{cn, "localhost"}
	if hostname, err := os.Hostname(); err == nil && hostname != cn {
		names = append(names, hostname)
	}
	return names
}

func validateCertificateConfig(config *CertificateConfig) error {
	if config.CommonName == "" {
		return fmt.Errorf("common_name is required")
	}
	if config.ValidityDays <= 0 {
		return fmt.Errorf("validity_days must be positive")
	}
	if config.KeySize < MinTLSKeyBits {
		return fmt.Errorf("key_size must be at least %d bits", MinTLSKeyBits)
	}
	if config.CertPath == "" || config.KeyPath == "" {
		return fmt.Errorf("cert_path and key_path are required")
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
