package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"leadpulse/pkg/contracts/domain"
)

func newOptionsCmd() *cobra.Command {
	var (
		in     string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "options",
		Short: "List the sources, campaigns, dates and deposit range of a lead export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newLeadService(cmd)
			if err != nil {
				return err
			}

			ds, err := loadDataset(cmd, svc, in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ds.Options)
			}

			p := paletteFor(out)
			lines := [][2]string{
				{"File", fmt.Sprintf("%s (%d rows)", ds.Name, ds.Table.Len())},
				{"Sources", joinOrNone(ds.Options.Sources)},
				{"Campaigns", joinOrNone(ds.Options.Campaigns)},
				{"Dates", joinOrNone(ds.Options.Dates)},
				{"Deposits", fmt.Sprintf("%s to %s",
					domain.FormatAmount(ds.Options.Deposit.Min),
					domain.FormatAmount(ds.Options.Deposit.Max))},
			}
			for _, l := range lines {
				_, _ = fmt.Fprintf(out, "%s %s\n", p.header(padRight(l[0]+":", 10)), l[1])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", inputUsage)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the options as JSON")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}
