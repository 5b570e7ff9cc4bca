// Package cli implements the leadpulse command line.
//
//	leadpulse report  --in users.csv [--source S]... [--campaign C]... [--date YYYY-MM-DD]...
//	                  [--min N] [--max N] [--group-by source,campaign] [--details]
//	leadpulse options --in users.csv [--json]
//	leadpulse export  --in users.csv --format csv|xlsx|pdf [--out PATH] [filters]
//	leadpulse serve   [--port N]
//	leadpulse version
//
// Tables are styled with lipgloss only when stdout is a terminal.
package cli
