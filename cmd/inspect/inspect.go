// cmd/inspect/inspect.go

package inspect

import (
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_cli"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/spf13/cobra"
)

// InspectCmd is the root command for read-only inspection.
var InspectCmd = &cobra.Command{
	Use:     "inspect",
	Short:   "Inspect provisioned services without changing them",
	Aliases: []string{"read", "get", "status"},
	RunE: hestia_cli.Wrap(func(rc *hestia_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		rc.Log.Warn("No subcommand specified for 'inspect'")
		return cmd.Help()
	}),
}

func init() {
	InspectCmd.AddCommand(InspectVaultCmd)
}
