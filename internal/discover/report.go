package discover

import (
	"fmt"
	"strings"

	"github.com/econgraph/econcrawl/internal/database"
)

// StrategyOutcome is the per-strategy summary kept for the run report.
type StrategyOutcome struct {
	Name  string
	Found int
	Err   error
}

// buildReport renders the run summary as markdown. The status server
// renders this to HTML; the CLI prints the counters directly.
func buildReport(sourceName string, run *database.DiscoveryRun, outcomes []StrategyOutcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Discovery run %s\n\n", run.ID)
	fmt.Fprintf(&b, "Source: **%s**\n\n", sourceName)
	if run.TimedOut {
		b.WriteString("**Run hit its time limit; results below are partial.**\n\n")
	}

	b.WriteString("## Strategies\n\n")
	b.WriteString("| Strategy | Indicators | Result |\n")
	b.WriteString("|----------|-----------:|--------|\n")
	for _, o := range outcomes {
		result := "ok"
		if o.Err != nil {
			result = "failed: " + o.Err.Error()
		}
		fmt.Fprintf(&b, "| %s | %d | %s |\n", o.Name, o.Found, result)
	}

	b.WriteString("\n## Totals\n\n")
	fmt.Fprintf(&b, "- Requests sent: %d\n", run.Requests)
	fmt.Fprintf(&b, "- Classified economic: %d\n", run.Classified)
	fmt.Fprintf(&b, "- Malformed records dropped: %d\n", run.Dropped)
	fmt.Fprintf(&b, "- Duplicates merged: %d\n", run.Duplicates)
	fmt.Fprintf(&b, "- Series created: %d\n", run.Created)
	fmt.Fprintf(&b, "- Series updated: %d\n", run.Updated)
	if run.FailedUpserts > 0 {
		fmt.Fprintf(&b, "- Failed upserts: %d\n", run.FailedUpserts)
	}
	if run.StrategyFailures > 0 {
		fmt.Fprintf(&b, "- Strategy failures: %d\n", run.StrategyFailures)
	}

	return b.String()
}
