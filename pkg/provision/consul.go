// pkg/provision/consul.go

package provision

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/platform"
	consulapi "github.com/hashicorp/consul/api"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const certMetadataKey = "vault/tls/certificate/metadata"

// RegisterWithConsul registers the freshly provisioned service with a local
// Consul agent and stores certificate metadata in KV. The whole step is
// advisory: no agent, no problem.
func RegisterWithConsul(rc *hestia_io.RuntimeContext, cfg *Config) StepResult {
	log := otelzap.Ctx(rc.Ctx)

	if cfg.DryRun {
		log.Info("DRY RUN: Would register service with Consul")
		return StepResult{Name: StepConsul, Outcome: OutcomeSkipped, Detail: "dry run"}
	}

	client, err := newConsulClient()
	if err != nil {
		log.Warn("Failed to create Consul client, skipping registration", zap.Error(err))
		return StepResult{Name: StepConsul, Outcome: OutcomeWarning, Detail: err.Error()}
	}

	// A wildcard bind address is not routable for other agents.
	address := cfg.BindAddr
	if address == "0.0.0.0" || address == "::" {
		address = platform.PrimaryIP()
	}

	registration := &consulapi.AgentServiceRegistration{
		ID:      ServiceName + "-" + cfg.NodeID,
		Name:    ServiceName,
		Address: address,
		Port:    cfg.Port,
		Tags:    []string{"secrets", "hestia-managed", cfg.StorageBackend},
		Check: &consulapi.AgentServiceCheck{
			TCP:      fmt.Sprintf("%s:%d", address, cfg.Port),
			Interval: "10s",
			Timeout:  "3s",
		},
	}

	if err := client.Agent().ServiceRegister(registration); err != nil {
		log.Warn("Consul service registration failed, continuing",
			zap.String("service_id", registration.ID),
			zap.Error(err))
		return StepResult{Name: StepConsul, Outcome: OutcomeWarning, Detail: err.Error()}
	}

	log.Info("Service registered with Consul",
		zap.String("service_id", registration.ID),
		zap.Int("port", cfg.Port))

	if cfg.TLSEnabled {
		if err := storeCertMetadata(client, cfg); err != nil {
			log.Warn("Failed to store certificate metadata in Consul KV", zap.Error(err))
			return StepResult{Name: StepConsul, Outcome: OutcomeWarning, Detail: "registered, KV write failed"}
		}
	}

	return StepResult{Name: StepConsul, Outcome: OutcomeApplied, Detail: registration.ID}
}

func newConsulClient() (*consulapi.Client, error) {
	consulAddr := os.Getenv("CONSUL_HTTP_ADDR")
	if consulAddr == "" {
		consulAddr = "127.0.0.1:8500"
	}

	consulConfig := consulapi.DefaultConfig()
	consulConfig.Address = consulAddr
	client, err := consulapi.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %w", err)
	}
	return client, nil
}

// storeCertMetadata records TLS certificate details in Consul KV so other
// hosts can discover when the certificate needs rotation.
func storeCertMetadata(client *consulapi.Client, cfg *Config) error {
	var expiry string
	if cert, err := ParseCertificate(cfg.CertPath); err == nil {
		expiry = cert.NotAfter.Format(time.RFC3339)
	}

	metadata := map[string]interface{}{
		"service":      ServiceName,
		"cert_path":    cfg.CertPath,
		"key_path":     cfg.KeyPath,
		"expiry":       expiry,
		"generated_at": time.Now().Format(time.RFC3339),
		"generated_by": "hestia",
		"node_id":      cfg.NodeID,
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	p := &consulapi.KVPair{
		Key:   certMetadataKey,
		Value: metadataJSON,
	}
	if _, err := client.KV().Put(p, nil); err != nil {
		return fmt.Errorf("failed to write to Consul KV: %w", err)
	}
	return nil
}
