package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"leadpulse/internal/services"
)

func newReportCmd() *cobra.Command {
	var (
		filters filterFlags
		details bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print lead counts and deposit sums per group",
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

			out := cmd.OutOrStdout()
			p := paletteFor(out)
			_, _ = fmt.Fprint(out, summaryTable(result).render(p))

			if details {
				_, _ = fmt.Fprintf(out, "\n%s\n", p.header(fmt.Sprintf("%d matching leads", result.Filtered.Len())))
				if result.Filtered.Len() > 0 {
					_, _ = fmt.Fprint(out, recordsTable(result.Filtered).render(p))
				}
			}
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().BoolVar(&details, "details", false, "also print the filtered rows")
	return cmd
}

func warnDegraded(w io.Writer, ds *services.Dataset) {
	n := ds.Stats.Degraded()
	if n == 0 {
		return
	}
	p := paletteFor(w)
	_, _ = fmt.Fprintln(w, p.warning(fmt.Sprintf(
		"%s: %d malformed cells replaced by defaults (attribution %d, deposits %d, dates %d)",
		ds.Name, n, ds.Stats.AttributionDegraded, ds.Stats.DepositsCoerced, ds.Stats.DatesDropped)))
}
