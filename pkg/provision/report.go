// pkg/provision/report.go

package provision

import (
	"fmt"
	"strings"
	"time"
)

// Outcome classifies how a provisioning step ended. Steps that fail fatally
// abort the run instead of recording OutcomeFailed, so a populated report
// normally carries only applied, skipped, and warning entries.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeWarning Outcome = "warning"
	OutcomeFailed  Outcome = "failed"
)

// Step names as they appear in the report and logs.
const (
	StepPreflight   = "preflight"
	StepPackage     = "package-install"
	StepUser        = "system-user"
	StepDirectories = "directories"
	StepTLS         = "tls-material"
	StepConfig      = "config-render"
	StepService     = "service-activation"
	StepFirewall    = "firewall"
	StepConsul      = "consul-register"
	StepVerify      = "verify"
)

// StepResult records one step's outcome for the final summary.
type StepResult struct {
	Name    string
	Outcome Outcome
	Detail  string
}

// Report accumulates what a provisioning run did. One report per run.
type Report struct {
	RunID       string
	StartedAt   time.Time
	CompletedAt time.Time
	Steps       []StepResult

	ConfigPath string
	BackupPath string
	APIAddr    string
	TLSEnabled bool
	DryRun     bool
}

func NewReport(runID string) *Report {
	return &Report{
		RunID:     runID,
		StartedAt: time.Now(),
	}
}

// AddStep records a step outcome.
func (r *Report) AddStep(name string, outcome Outcome, detail string) {
	r.Steps = append(r.Steps, StepResult{Name: name, Outcome: outcome, Detail: detail})
}

// Add records a pre-built step result.
func (r *Report) Add(result StepResult) {
	r.Steps = append(r.Steps, result)
}

// Complete stamps the end time.
func (r *Report) Complete() {
	r.CompletedAt = time.Now()
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Warnings returns the steps that ended in a warning.
func (r *Report) Warnings() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Outcome == OutcomeWarning {
			out = append(out, s)
		}
	}
	return out
}

// Summary renders the report as operator-facing text lines.
func (r *Report) Summary() []string {
	lines := []string{
		fmt.Sprintf("Provisioning completed in %s (run %s)", r.Duration().Round(time.Millisecond), r.RunID),
	}
	for _, s := range r.Steps {
		line := fmt.Sprintf("  %-20s %s", s.Name, s.Outcome)
		if s.Detail != "" {
			line += " (" + s.Detail + ")"
		}
		lines = append(lines, line)
	}
	if r.ConfigPath != "" {
		lines = append(lines, "Config: "+r.ConfigPath)
	}
	if r.BackupPath != "" {
		lines = append(lines, "Previous config backed up to: "+r.BackupPath)
	}
	if r.APIAddr != "" {
		lines = append(lines, "API address: "+r.APIAddr)
	}
	return lines
}

func (r *Report) String() string {
	return strings.Join(r.Summary(), "\n")
}
