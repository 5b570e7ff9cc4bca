package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "leadpulse/internal/errors"
	"leadpulse/internal/shared/testutil"
	"leadpulse/pkg/contracts/domain"
)

func writeLeads(t *testing.T, content string) string {
	t.Helper()
	return testutil.WriteFile(t, "users.csv", content)
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootHasSubcommands(t *testing.T) {
	var names []string
	for _, cmd := range NewRootCmd().Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"report", "options", "export", "serve", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestReport(t *testing.T) {
	in := writeLeads(t, testutil.LeadsCSV)

	tests := []struct {
		name    string
		args    []string
		want    []string
		exclude []string
	}{
		{
			name: "defaults group by source and campaign",
			args: nil,
			want: []string{
				"Source | Campaign | Leads | Deposits",
				"fb     | sale     |     2 |   150.00",
				"ig     | promo    |     1 |     0.00",
				"TOTAL  | TOTAL    |     3 |   150.00",
			},
		},
		{
			name: "single date grouped by date first",
			args: []string{"--date", "2024-01-16", "--group-by", "date,source"},
			want: []string{
				"Date       | Source | Leads | Deposits",
				"2024-01-16 | fb     |     1 |    50.00",
				"TOTAL      | TOTAL  |     1 |    50.00",
			},
			exclude: []string{"2024-01-15"},
		},
		{
			name: "deposit floor",
			args: []string{"--min", "60"},
			want: []string{
				"fb     | sale     |     1 |   100.00",
				"TOTAL  | TOTAL    |     1 |   100.00",
			},
			exclude: []string{"ig "},
		},
		{
			name: "source filter",
			args: []string{"--source", "ig"},
			want: []string{
				"ig     | promo    |     1 |     0.00",
				"TOTAL  | TOTAL    |     1 |     0.00",
			},
			exclude: []string{"fb "},
		},
		{
			name: "padded values are trimmed",
			args: []string{"--source", " fb ", "--campaign", "sale  ", "--source", " "},
			want: []string{
				"fb     | sale     |     2 |   150.00",
				"TOTAL  | TOTAL    |     2 |   150.00",
			},
			exclude: []string{"ig "},
		},
		{
			name: "no match leaves only the total",
			args: []string{"--source", "tiktok"},
			want: []string{"TOTAL  | TOTAL    |     0 |     0.00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := run(t, append([]string{"report", "--in", in}, tt.args...)...)
			require.NoError(t, err)

			lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
			for _, want := range tt.want {
				assert.Contains(t, lines, want)
			}
			for _, ex := range tt.exclude {
				assert.NotContains(t, stdout, ex)
			}
			assert.True(t, strings.HasPrefix(lines[len(lines)-1], "TOTAL"), "grand total is the last row")
		})
	}
}

func TestReport_Details(t *testing.T) {
	in := writeLeads(t, testutil.LeadsCSV)

	stdout, _, err := run(t, "report", "--in", in, "--details", "--source", "fb")
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 matching leads")
	assert.Contains(t, stdout, "2024-01-16")
}

func TestReport_Errors(t *testing.T) {
	in := writeLeads(t, testutil.LeadsCSV)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing input flag", args: []string{"report"}, want: `"in"`},
		{name: "bad date", args: []string{"report", "--in", in, "--date", "15/01/2024"}, want: "date[0]"},
		{name: "inverted range", args: []string{"report", "--in", in, "--min", "100", "--max", "10"}, want: "deposit_min"},
		{name: "unknown dimension", args: []string{"report", "--in", in, "--group-by", "country"}, want: "group_by"},
		{name: "missing file", args: []string{"report", "--in", filepath.Join(t.TempDir(), "nope.csv")}, want: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, describeError(err), tt.want)
		})
	}
}

func TestReport_WarnsAboutDegradedCells(t *testing.T) {
	in := writeLeads(t, `id,utm_hit,deposits_total_in_usd,created_at
1,not a dictionary,abc,2024-01-15
`)

	stdout, stderr, err := run(t, "report", "--in", in)
	require.NoError(t, err)
	assert.Contains(t, stderr, "malformed cells replaced by defaults")
	assert.Contains(t, stdout, "UNKNOWN")
}

func TestReport_SchemaOverride(t *testing.T) {
	in := writeLeads(t, `id,utm_hit,deposit,joined
1,"{'utmsource': 'fb', 'utmcampaign': 'sale'}",100,2024-01-15
2,"{'utmsource': 'fb', 'utmcampaign': 'sale'}",50,2024-01-16
`)

	stdout, _, err := run(t, "report", "--in", in, "--deposit-column", "deposit", "--join-column", "joined", "--group-by", "date")
	require.NoError(t, err)
	assert.Contains(t, stdout, "2024-01-15 |     1 |   100.00")
	assert.Contains(t, stdout, "TOTAL      |     2 |   150.00")
}

func TestOptions(t *testing.T) {
	in := writeLeads(t, testutil.LeadsCSV)

	t.Run("text", func(t *testing.T) {
		stdout, _, err := run(t, "options", "--in", in)
		require.NoError(t, err)
		assert.Contains(t, stdout, "File:      users.csv (3 rows)")
		assert.Contains(t, stdout, "Sources:   fb, ig")
		assert.Contains(t, stdout, "Campaigns: promo, sale")
		assert.Contains(t, stdout, "Dates:     2024-01-15, 2024-01-16")
		assert.Contains(t, stdout, "Deposits:  0 to 100")
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := run(t, "options", "--in", in, "--json")
		require.NoError(t, err)

		var opts domain.FilterOptions
		require.NoError(t, json.Unmarshal([]byte(stdout), &opts))
		assert.Equal(t, []string{"fb", "ig"}, opts.Sources)
		assert.Equal(t, domain.DepositRange{Min: 0, Max: 100}, opts.Deposit)
	})
}

func TestExport(t *testing.T) {
	in := writeLeads(t, testutil.LeadsCSV)

	t.Run("csv into a directory", func(t *testing.T) {
		dir := t.TempDir()
		stdout, _, err := run(t, "export", "--in", in, "--format", "csv", "--out", dir, "--source", "fb")
		require.NoError(t, err)

		path := filepath.Join(dir, "filtered_campaign_data.csv")
		assert.Contains(t, stdout, "Exported 2 leads to "+path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\xEF\xBB\xBF")), "csv starts with a BOM")
	})

	t.Run("xlsx to an explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "leads.xlsx")
		_, _, err := run(t, "export", "--in", in, "--format", "xlsx", "--out", path)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("PK")))
	})

	t.Run("pdf", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "leads.pdf")
		_, _, err := run(t, "export", "--in", in, "--format", "pdf", "--out", path)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := run(t, "export", "--in", in, "--format", "docx", "--out", t.TempDir())
		require.Error(t, err)
		assert.Contains(t, describeError(err), "format")
	})
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2024-01-15")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "leadpulse 1.2.3 (commit: abc123, built: 2024-01-15)\n", stdout)
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "single field",
			err:  apierrors.ErrValidation("format", "unsupported"),
			want: "format: unsupported",
		},
		{
			name: "several fields",
			err: apierrors.NewValidationErrors([]apierrors.ValidationError{
				{Field: "date[0]", Message: "bad"},
				{Field: "source[1]", Message: "empty"},
			}),
			want: "date[0]: bad; source[1]: empty",
		},
		{
			name: "app error",
			err:  apierrors.NewNotFoundError("users.csv"),
			want: "[NOT_FOUND] users.csv not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeError(tt.err))
		})
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, "report.csv", outputPath("", "report.csv"))
	assert.Equal(t, filepath.Join(dir, "report.csv"), outputPath(dir, "report.csv"))
	assert.Equal(t, filepath.Join("out", "report.csv"), outputPath("out/", "report.csv"))
	assert.Equal(t, filepath.Join(dir, "mine.csv"), outputPath(filepath.Join(dir, "mine.csv"), "report.csv"))
}

func TestReport_DirectoryInput(t *testing.T) {
	in := writeLeads(t, testutil.LeadsCSV)

	stdout, _, err := run(t, "options", "--in", filepath.Dir(in))
	require.NoError(t, err)
	assert.Contains(t, stdout, "users.csv (3 rows)")
}
