// pkg/provision/firewall.go

package provision

import (
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/platform"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// OpenFirewallPort opens the API port in the host firewall. Failures are
// advisory: the service still runs without the rule, so the step reports a
// warning rather than aborting the run.
func OpenFirewallPort(rc *hestia_io.RuntimeContext, runner *CommandRunner, port int) StepResult {
	log := otelzap.Ctx(rc.Ctx)

	if runner.DryRun() {
		log.Info("DRY RUN: Would open firewall port", zap.Int("port", port))
		return StepResult{Name: StepFirewall, Outcome: OutcomeSkipped, Detail: "dry run"}
	}

	backend := platform.DetectFirewallBackend()
	if backend == platform.FirewallNone {
		log.Info("No supported firewall detected, skipping port rule")
		return StepResult{Name: StepFirewall, Outcome: OutcomeSkipped, Detail: "no firewall tool found"}
	}

	if !platform.FirewallActive(rc.Ctx, backend) {
		log.Info("Firewall installed but not active, skipping port rule",
			zap.String("backend", string(backend)))
		return StepResult{Name: StepFirewall, Outcome: OutcomeSkipped, Detail: string(backend) + " inactive"}
	}

	if err := platform.AllowPortTCP(rc.Ctx, log.ZapLogger(), backend, port); err != nil {
		log.Warn("Failed to open firewall port, continuing",
			zap.Int("port", port),
			zap.String("backend", string(backend)),
			zap.Error(err))
		return StepResult{Name: StepFirewall, Outcome: OutcomeWarning, Detail: err.Error()}
	}

	log.Info("Firewall port opened",
		zap.Int("port", port),
		zap.String("backend", string(backend)))
	return StepResult{Name: StepFirewall, Outcome: OutcomeApplied, Detail: string(backend)}
}
