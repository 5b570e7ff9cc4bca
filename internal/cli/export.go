package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		filters filterFlags
		format  string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered leads and their summary as csv, xlsx or pdf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newLeadService(cmd)
			if err != nil {
				return err
			}

			ds, err := loadDataset(cmd, svc, filters.in)
			if err != nil {
				return err
			}

			result, err := svc.Query(cmd.Context(), ds.Table, filters.request(cmd))
			if err != nil {
				return err
			}

			artifact, err := svc.Export(cmd.Context(), result, format)
			if err != nil {
				return err
			}

			path := outputPath(out, artifact.Name)
			if err := svc.Files().ValidateOutputDirectory(filepath.Dir(path)); err != nil {
				return err
			}
			if err := artifact.Save(path); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d leads to %s\n", result.Filtered.Len(), path)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&format, "format", "", "csv, xlsx or pdf (default from config)")
	cmd.Flags().StringVar(&out, "out", "", "output file or directory (default: suggested name in the working directory)")
	return cmd
}

// outputPath resolves --out against the artifact's suggested name. A
// directory, or a path ending in a separator, receives the suggested name.
func outputPath(out, suggested string) string {
	if out == "" {
		return suggested
	}
	if strings.HasSuffix(out, string(os.PathSeparator)) || strings.HasSuffix(out, "/") {
		return filepath.Join(out, suggested)
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, suggested)
	}
	return out
}
