package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// LeadsCSV is a small user export in the default schema: two fb/sale leads
// with deposits of 100 and 50 joining on 2024-01-15 and 2024-01-16, and one
// ig/promo lead with no deposit and no join date.
const LeadsCSV = `id,utm_hit,deposits_total_in_usd,created_at
1,"{'utmsource': 'fb', 'utmcampaign': 'sale'}",100,2024-01-15
2,"{'utmsource': 'fb', 'utmcampaign': 'sale'}",50,2024-01-16 10:30:00
3,"{'utmsource': 'ig', 'utmcampaign': 'promo'}",,
`

// WriteFile writes content to name inside a fresh temporary directory and
// returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
