// cmd/create/create.go

package create

import (
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_cli"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/spf13/cobra"
)

// CreateCmd is the root command for create operations.
var CreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Create and provision services on this host",
	Long:    `The create command provisions services such as Vault onto the local machine.`,
	Aliases: []string{"deploy", "install"},
	RunE: hestia_cli.Wrap(func(rc *hestia_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		rc.Log.Warn("No subcommand specified for 'create'")
		return cmd.Help()
	}),
}

func init() {
	CreateCmd.AddCommand(CreateVaultCmd)
}
