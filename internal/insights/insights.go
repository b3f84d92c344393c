// Package insights turns ESLint results into a Bitbucket Code Insights report.
package insights

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eslintinsights/internal/bitbucket"
	"eslintinsights/internal/types"
)

const (
	DefaultReportKey = "oeph.code-insights.eslint"

	ReportTitle   = "ESLint Report"
	ReporterName  = "ESLint Code Insight"
	ReportLogoURL = "https://eslint.org/img/logo.svg"
	errorSeverity = 2
)

// Linter is the lint capability the reporter drives.
type Linter interface {
	LintFiles(ctx context.Context, files []string) ([]types.LintResult, error)
	CalculateConfigForFile(ctx context.Context, filePath string) (map[string]any, error)
}

// Submitter publishes a report. A nil annotations slice means none are sent.
type Submitter interface {
	CreateReport(ctx context.Context, report bitbucket.Report, annotations []bitbucket.Annotation) error
}

type Summary struct {
	Result          bitbucket.Result
	Files           int
	Messages        int
	Errors          int
	FixableErrors   int
	Warnings        int
	FixableWarnings int
}

// Outcome is everything derived from one lint pass.
type Outcome struct {
	Summary     Summary
	Report      bitbucket.Report
	Annotations []bitbucket.Annotation
}

type Reporter struct {
	linter    Linter
	submitter Submitter
	root      string
	now       func() time.Time
}

// New returns a Reporter that strips repositoryRootPath from linted file paths.
func New(linter Linter, submitter Submitter, repositoryRootPath string) *Reporter {
	return &Reporter{
		linter:    linter,
		submitter: submitter,
		root:      repositoryRootPath,
		now:       time.Now,
	}
}

// WithClock overrides the time source used for the report's created date.
func (r *Reporter) WithClock(now func() time.Time) *Reporter {
	r.now = now
	return r
}

// ComputeEffectiveConfig returns the ESLint configuration that applies to filePath.
func (r *Reporter) ComputeEffectiveConfig(ctx context.Context, filePath string) (map[string]any, error) {
	return r.linter.CalculateConfigForFile(ctx, filePath)
}

// Evaluate lints files and builds the report without submitting it.
func (r *Reporter) Evaluate(ctx context.Context, files []string) (*Outcome, error) {
	results, err := r.linter.LintFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	outcome := BuildReport(results, r.root, r.now())
	return &outcome, nil
}

// Submit sends a previously built outcome.
func (r *Reporter) Submit(ctx context.Context, outcome *Outcome) error {
	return r.submitter.CreateReport(ctx, outcome.Report, outcome.Annotations)
}

// SubmitLintInsights lints files and publishes the resulting report.
func (r *Reporter) SubmitLintInsights(ctx context.Context, files []string) (*Outcome, error) {
	outcome, err := r.Evaluate(ctx, files)
	if err != nil {
		return nil, err
	}
	if err := r.Submit(ctx, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// BuildReport aggregates results into a PASS or FAIL report. Annotations are
// only returned for FAIL.
func BuildReport(results []types.LintResult, root string, now time.Time) Outcome {
	var summary Summary
	var annotations []bitbucket.Annotation

	for _, result := range results {
		summary.Files++
		summary.Errors += result.ErrorCount
		summary.FixableErrors += result.FixableErrorCount
		summary.Warnings += result.WarningCount
		summary.FixableWarnings += result.FixableWarningCount

		path := RelativePath(result.FilePath, root)
		for _, message := range result.Messages {
			summary.Messages++
			annotations = append(annotations, bitbucket.Annotation{
				Path:       path,
				Line:       message.Line,
				Message:    message.Message,
				Severity:   SeverityOf(message),
				ExternalID: ExternalID(path, message),
			})
		}
	}

	report := bitbucket.Report{
		Title:       ReportTitle,
		Reporter:    ReporterName,
		LogoURL:     ReportLogoURL,
		CreatedDate: now.UnixMilli(),
	}

	if len(results) == 0 || summary.Errors == 0 {
		summary.Result = bitbucket.ResultPass
		report.Result = bitbucket.ResultPass
		report.Data = []bitbucket.DataItem{
			bitbucket.Number("Warning Count", summary.Warnings),
			bitbucket.Number("Fixable Warning Count", summary.FixableWarnings),
		}
		return Outcome{Summary: summary, Report: report}
	}

	summary.Result = bitbucket.ResultFail
	report.Result = bitbucket.ResultFail
	report.Data = []bitbucket.DataItem{
		bitbucket.Number("Error Count", summary.Errors),
		bitbucket.Number("Warning Count", summary.Warnings),
		bitbucket.Number("Fixable Error Count", summary.FixableErrors),
		bitbucket.Number("Fixable Warning Count", summary.FixableWarnings),
	}
	if annotations == nil {
		annotations = []bitbucket.Annotation{}
	}
	return Outcome{Summary: summary, Report: report, Annotations: annotations}
}

// RelativePath removes the first occurrence of root from filePath. No other
// normalisation is done.
func RelativePath(filePath, root string) string {
	if root == "" {
		return filePath
	}
	return strings.Replace(filePath, root, "", 1)
}

// SeverityOf maps a lint message to an annotation severity. Anything fatal or
// without an autofix is HIGH.
func SeverityOf(message types.LintMessage) bitbucket.Severity {
	switch {
	case message.Fatal || message.Fix == nil:
		return bitbucket.SeverityHigh
	case message.Severity == errorSeverity:
		return bitbucket.SeverityMedium
	default:
		return bitbucket.SeverityLow
	}
}

func ExternalID(path string, message types.LintMessage) string {
	return fmt.Sprintf("%s-%d-%d-%s", path, message.Line, message.Column, message.Rule())
}
