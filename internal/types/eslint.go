package types

// Fix is the autofix ESLint attaches to a message when one is available.
type Fix struct {
	Range []int  `json:"range"`
	Text  string `json:"text"`
}

type LintMessage struct {
	RuleID    *string `json:"ruleId"`
	Severity  int     `json:"severity"`
	Message   string  `json:"message"`
	Line      int     `json:"line"`
	Column    int     `json:"column"`
	EndLine   int     `json:"endLine,omitempty"`
	EndColumn int     `json:"endColumn,omitempty"`
	Fatal     bool    `json:"fatal,omitempty"`
	Fix       *Fix    `json:"fix,omitempty"`
}

// Rule returns the rule id, or "null" for messages without one (parse errors).
func (m LintMessage) Rule() string {
	if m.RuleID == nil {
		return "null"
	}
	return *m.RuleID
}

type LintResult struct {
	FilePath            string        `json:"filePath"`
	Messages            []LintMessage `json:"messages"`
	ErrorCount          int           `json:"errorCount"`
	FatalErrorCount     int           `json:"fatalErrorCount"`
	WarningCount        int           `json:"warningCount"`
	FixableErrorCount   int           `json:"fixableErrorCount"`
	FixableWarningCount int           `json:"fixableWarningCount"`
}
