// pkg/hestia_cli/wrap.go

package hestia_cli

import (
	"context"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/logger"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Wrap adapts a RuntimeContext handler into a cobra RunE, adding panic
// recovery, telemetry span lifecycle, and logging.
func Wrap(fn func(rc *hestia_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		logger.InitFallback()

		rc := hestia_io.NewContext(context.Background(), cmd.Name())
		defer rc.End(&err)

		defer func() {
			if r := recover(); r != nil {
				err = cerr.AssertionFailedf("panic: %v", r)
				rc.Log.Error("Panic recovered", zap.Any("panic", r))
			}
		}()

		rc.LogRuntimeExecutionContext()

		err = fn(rc, cmd, args)
		if err != nil && !hestia_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}
