// pkg/platform/firewall.go

package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/execute"
	"go.uber.org/zap"
)

// FirewallBackend identifies the host's firewall manager.
type FirewallBackend string

const (
	FirewallUFW       FirewallBackend = "ufw"
	FirewallFirewalld FirewallBackend = "firewalld"
	FirewallNone      FirewallBackend = "none"
)

// DetectFirewallBackend returns the first supported firewall manager found in
// PATH, or FirewallNone.
func DetectFirewallBackend() FirewallBackend {
	if IsCommandAvailable("ufw") {
		return FirewallUFW
	}
	if IsCommandAvailable("firewall-cmd") {
		return FirewallFirewalld
	}
	return FirewallNone
}

// FirewallActive reports whether the detected backend is currently running.
func FirewallActive(ctx context.Context, backend FirewallBackend) bool {
	switch backend {
	case FirewallUFW:
		out, err := execute.Run(ctx, execute.Options{
			Command: "ufw",
			Args:    []string{"status"},
			Capture: true,
		})
		return err == nil && strings.Contains(out, "Status: active")
	case FirewallFirewalld:
		return execute.RunSimple(ctx, "firewall-cmd", "--state") == nil
	default:
		return false
	}
}

// AllowPortTCP opens a TCP port permanently and reloads the backend.
func AllowPortTCP(ctx context.Context, log *zap.Logger, backend FirewallBackend, port int) error {
	switch backend {
	case FirewallUFW:
		log.Info("Opening port via UFW", zap.Int("port", port))
		if err := execute.RunSimple(ctx, "ufw", "allow", fmt.Sprintf("%d/tcp", port)); err != nil {
			return err
		}
		return execute.RunSimple(ctx, "ufw", "reload")
	case FirewallFirewalld:
		log.Info("Opening port via firewalld", zap.Int("port", port))
		if err := execute.RunSimple(ctx, "firewall-cmd", "--permanent", fmt.Sprintf("--add-port=%d/tcp", port)); err != nil {
			return err
		}
		return execute.RunSimple(ctx, "firewall-cmd", "--reload")
	default:
		return fmt.Errorf("no supported firewall backend (ufw, firewalld)")
	}
}
