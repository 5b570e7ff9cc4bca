package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"leadpulse/internal/app"
	apierrors "leadpulse/internal/errors"
	"leadpulse/internal/infrastructure"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo records build metadata injected by the linker.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	if version != "dev" {
		app.Version = version
	}
	if date != "unknown" {
		app.BuildTime = date
	}
}

// NewRootCmd builds the leadpulse command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "leadpulse",
		Short:         "Summarize lead exports by source, campaign and join date",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "path to a YAML config file")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.String("attribution-column", "", "column holding the attribution dictionary")
	pf.String("deposit-column", "", "column holding the total deposit")
	pf.String("join-column", "", "column holding the join timestamp")

	root.AddCommand(
		newReportCmd(),
		newOptionsCmd(),
		newExportCmd(),
		newServeCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs the CLI and prints a failure to stderr.
func Execute() error {
	root := NewRootCmd()
	if err := root.ExecuteContext(infrastructure.EnsureTraceID(context.Background())); err != nil {
		p := paletteFor(root.ErrOrStderr())
		_, _ = fmt.Fprintln(root.ErrOrStderr(), p.error("Error: "+describeError(err)))
		return err
	}
	return nil
}

// describeError turns service errors into one line a terminal user can act on.
func describeError(err error) string {
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch details := apiErr.Details.(type) {
	case apierrors.ValidationError:
		return fmt.Sprintf("%s: %s", details.Field, details.Message)
	case apierrors.ValidationErrors:
		parts := make([]string, len(details.Errors))
		for i, e := range details.Errors {
			parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
		}
		return strings.Join(parts, "; ")
	case string:
		return fmt.Sprintf("%s: %s", apiErr.Message, details)
	}
	return apiErr.Message
}
