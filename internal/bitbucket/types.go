package bitbucket

// Result is the overall outcome shown on a Code Insights report.
type Result string

const (
	ResultPass Result = "PASS"
	ResultFail Result = "FAIL"
)

// Severity of a single annotation.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// DataItem is one metric row of a report.
type DataItem struct {
	Title string `json:"title"`
	Type  string `json:"type"`
	Value int    `json:"value"`
}

// Number builds a NUMBER typed metric.
func Number(title string, value int) DataItem {
	return DataItem{Title: title, Type: "NUMBER", Value: value}
}

type Report struct {
	Title       string     `json:"title"`
	Details     string     `json:"details,omitempty"`
	Reporter    string     `json:"reporter,omitempty"`
	Link        string     `json:"link,omitempty"`
	LogoURL     string     `json:"logoUrl,omitempty"`
	Result      Result     `json:"result,omitempty"`
	CreatedDate int64      `json:"createdDate,omitempty"`
	Data        []DataItem `json:"data,omitempty"`
}

type Annotation struct {
	Path       string   `json:"path"`
	Line       int      `json:"line"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
	ExternalID string   `json:"externalId,omitempty"`
	Link       string   `json:"link,omitempty"`
	Type       string   `json:"type,omitempty"`
}

type annotationsRequest struct {
	Annotations []Annotation `json:"annotations"`
}
