package cli

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"leadpulse/internal/config"
	"leadpulse/internal/files"
	"leadpulse/internal/infrastructure"
	"leadpulse/internal/services"
)

// loadConfig reads the config file named by --config, or the default
// location, and applies the schema override flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"attribution-column": &cfg.Schema.AttributionColumn,
		"deposit-column":     &cfg.Schema.DepositColumn,
		"join-column":        &cfg.Schema.JoinColumn,
	}
	for flag, field := range overrides {
		if cmd.Flags().Changed(flag) {
			*field, _ = cmd.Flags().GetString(flag)
		}
	}
	if cmd.Flags().Changed("attribution-column") {
		cfg.Schema.AttributionPrefix = cfg.Schema.AttributionColumn + "_"
	}

	return cfg, nil
}

func commandLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return infrastructure.NewLogger(cmd.ErrOrStderr(), level)
}

// newLeadService builds a lead service without telemetry. Logs go to stderr
// so stdout carries only the report.
func newLeadService(cmd *cobra.Command) (*services.LeadService, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger := commandLogger(cmd)
	svc, err := services.NewLeadService(cfg, infrastructure.NoopProviders(logger), logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

// loadDataset reads in, or the newest lead export inside it when in is a
// directory, and reports degraded cells on stderr.
func loadDataset(cmd *cobra.Command, svc *services.LeadService, in string) (*services.Dataset, error) {
	path, err := files.NewDiscovery("", svc.Files()).ResolveInput(in)
	if err != nil {
		return nil, err
	}

	ds, err := svc.LoadFile(cmd.Context(), path)
	if err != nil {
		return nil, err
	}
	warnDegraded(cmd.ErrOrStderr(), ds)
	return ds, nil
}

// filterFlags are the selection flags shared by report and export. List
// flags repeat rather than split on commas so values may contain commas.
type filterFlags struct {
	in        string
	sources   []string
	campaigns []string
	dates     []string
	min       float64
	max       float64
	groupBy   string
}

const inputUsage = "lead export to read (.csv, .txt, .xlsx), or a directory to read the newest one from"

func (f *filterFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.in, "in", "", inputUsage)
	fl.StringArrayVar(&f.sources, "source", nil, "keep only this source (repeatable)")
	fl.StringArrayVar(&f.campaigns, "campaign", nil, "keep only this campaign (repeatable)")
	fl.StringArrayVar(&f.dates, "date", nil, "keep only leads that joined on this day, YYYY-MM-DD (repeatable)")
	fl.Float64Var(&f.min, "min", 0, "minimum total deposit, inclusive (default: lowest in file)")
	fl.Float64Var(&f.max, "max", 0, "maximum total deposit, inclusive (default: highest in file)")
	fl.StringVar(&f.groupBy, "group-by", "source,campaign", "comma-separated grouping of date, source, campaign")
	_ = cmd.MarkFlagRequired("in")
}

func (f *filterFlags) request(cmd *cobra.Command) services.QueryRequest {
	req := services.QueryRequest{
		Sources:   trimValues(f.sources),
		Campaigns: trimValues(f.campaigns),
		Dates:     trimValues(f.dates),
		GroupBy:   strings.TrimSpace(f.groupBy),
	}
	if cmd.Flags().Changed("min") {
		v := f.min
		req.DepositMin = &v
	}
	if cmd.Flags().Changed("max") {
		v := f.max
		req.DepositMax = &v
	}
	return req
}

// trimValues drops surrounding whitespace and blank entries, as the HTTP
// form parser does.
func trimValues(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
