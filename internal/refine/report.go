package refine

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.yaml.in/yaml/v3"
)

// Report is the YAML form of a run summary.
type Report struct {
	Total   int            `yaml:"total"`
	Updated int            `yaml:"updated"`
	Failed  int            `yaml:"failed"`
	Records []ReportRecord `yaml:"records"`
}

// ReportRecord is one record's line in the report.
type ReportRecord struct {
	Key          string  `yaml:"key"`
	Status       Status  `yaml:"status"`
	Title        string  `yaml:"title,omitempty"`
	MatchedTitle string  `yaml:"matched_title,omitempty"`
	MatchedURL   string  `yaml:"matched_url,omitempty"`
	Score        float64 `yaml:"score"`
	Error        string  `yaml:"error,omitempty"`
}

// NewReport builds the report for a summary.
func NewReport(sum Summary) Report {
	rep := Report{
		Total:   sum.Total(),
		Updated: sum.Updated(),
		Failed:  sum.Failed(),
		Records: make([]ReportRecord, 0, len(sum.Results)),
	}
	for _, r := range sum.Results {
		rr := ReportRecord{
			Key:          r.Key,
			Status:       r.Status,
			Title:        r.Title,
			MatchedTitle: r.MatchedTitle,
			MatchedURL:   r.MatchedURL,
			Score:        r.Score,
		}
		if r.Err != nil {
			rr.Error = r.Err.Error()
		}
		rep.Records = append(rep.Records, rr)
	}
	return rep
}

// WriteReport writes the YAML report for sum to path.
func WriteReport(path string, sum Summary) error {
	data, err := yaml.Marshal(NewReport(sum))
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// PrintSummary writes the end-of-run counts and failed keys. With asTable set
// the failures are rendered as a table with their reasons.
func PrintSummary(w io.Writer, sum Summary, asTable bool) {
	fmt.Fprintf(w, "\nTotal entries: %d\n", sum.Total())
	fmt.Fprintf(w, "Successfully updated: %d\n", sum.Updated())
	fmt.Fprintf(w, "Failed: %d\n", sum.Failed())
	if !sum.HasFailures() {
		return
	}

	fmt.Fprintln(w, "\nFailed entries:")
	if !asTable {
		for _, key := range sum.FailedKeys() {
			fmt.Fprintf(w, "  - %s\n", key)
		}
		return
	}
	fmt.Fprintln(w, renderFailures(sum))
}

func renderFailures(sum Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Key", "Status", "Reason"})
	for _, r := range sum.Results {
		if !r.Failed() {
			continue
		}
		reason := ""
		if r.Err != nil {
			reason = r.Err.Error()
		}
		tw.AppendRow(table.Row{r.Key, string(r.Status), reason})
	}
	return tw.Render()
}
