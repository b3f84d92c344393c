// Package summary prints a lint pass outcome to the terminal.
package summary

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"eslintinsights/internal/bitbucket"
	"eslintinsights/internal/insights"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#5d5d5d")).
		PaddingLeft(1).
		PaddingRight(1)

	cellStyle = lipgloss.NewStyle().
		PaddingLeft(1).
		PaddingRight(1)

	pathStyle = cellStyle.
		Foreground(lipgloss.Color("#d75f00"))

	ruleStyle = cellStyle.
		Foreground(lipgloss.Color("#878787"))

	highStyle = cellStyle.
		Foreground(lipgloss.Color("#ff0000"))

	mediumStyle = cellStyle.
		Foreground(lipgloss.Color("#ffff00"))

	lowStyle = cellStyle.
		Foreground(lipgloss.Color("#00afff"))
)

var severityRank = map[bitbucket.Severity]int{
	bitbucket.SeverityHigh:   0,
	bitbucket.SeverityMedium: 1,
	bitbucket.SeverityLow:    2,
}

func severityStyle(severity bitbucket.Severity) lipgloss.Style {
	switch severity {
	case bitbucket.SeverityHigh:
		return highStyle
	case bitbucket.SeverityMedium:
		return mediumStyle
	default:
		return lowStyle
	}
}

// ResultLine renders the one line verdict, e.g. "FAIL 2 errors, 1 warning in 3 files".
func ResultLine(s insights.Summary) string {
	verdict := color.GreenString("PASS")
	if s.Result == bitbucket.ResultFail {
		verdict = color.RedString("FAIL")
	}
	return fmt.Sprintf("%s %s, %s in %s",
		verdict,
		plural(s.Errors, "error"),
		plural(s.Warnings, "warning"),
		plural(s.Files, "file"))
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Print writes the report metrics followed by at most topN annotations, most
// severe first.
func Print(w io.Writer, outcome *insights.Outcome, topN int) {
	fmt.Fprintln(w, titleStyle.Render(outcome.Report.Title))
	fmt.Fprintln(w, cellStyle.Render(ResultLine(outcome.Summary)))

	for _, item := range outcome.Report.Data {
		fmt.Fprintf(w, "%s%s\n", cellStyle.Render(fmt.Sprintf("%-22s", item.Title)), cellStyle.Render(fmt.Sprintf("%d", item.Value)))
	}

	if len(outcome.Annotations) == 0 {
		return
	}

	annotations := make([]bitbucket.Annotation, len(outcome.Annotations))
	copy(annotations, outcome.Annotations)
	sort.SliceStable(annotations, func(i, j int) bool {
		return severityRank[annotations[i].Severity] < severityRank[annotations[j].Severity]
	})

	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Annotations"))

	maxEntries := topN
	if maxEntries <= 0 || len(annotations) < maxEntries {
		maxEntries = len(annotations)
	}

	for _, annotation := range annotations[:maxEntries] {
		location := fmt.Sprintf("%s:%d", annotation.Path, annotation.Line)
		fmt.Fprintf(w, "%s%s%s %s\n",
			severityStyle(annotation.Severity).Render(fmt.Sprintf("%-6s", annotation.Severity)),
			pathStyle.Render(location),
			ruleStyle.Render(ruleOf(annotation)),
			annotation.Message)
	}

	if rest := len(annotations) - maxEntries; rest > 0 {
		fmt.Fprintln(w, cellStyle.Render(fmt.Sprintf("... and %d more", rest)))
	}
}

// ruleOf recovers the rule id from the annotation's external id.
func ruleOf(annotation bitbucket.Annotation) string {
	prefix := fmt.Sprintf("%s-%d-", annotation.Path, annotation.Line)
	rest, ok := strings.CutPrefix(annotation.ExternalID, prefix)
	if !ok {
		return ""
	}
	_, rule, _ := strings.Cut(rest, "-")
	return rule
}
