// Package bitbucket publishes Code Insights reports to Bitbucket Server.
package bitbucket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxAnnotationsPerRequest is the number of annotations Bitbucket Server accepts in one call.
const MaxAnnotationsPerRequest = 1000

// Server identifies the Bitbucket Server instance and the credentials used for it.
type Server struct {
	URL         string
	AccessToken string
}

// Target is the commit a report is attached to.
type Target struct {
	Project   string
	Repo      string
	CommitID  string
	ReportKey string
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bitbucket: %s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("bitbucket: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client talks to the insights REST resources of a single report.
type Client struct {
	server Server
	target Target
	client *http.Client

	// OnBatch is called after each annotation batch is accepted.
	OnBatch func(sent, total int)
}

func NewClient(server Server, target Target) *Client {
	return &Client{
		server: server,
		target: target,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.client = hc
}

func (c *Client) reportURL() string {
	return fmt.Sprintf("%s/rest/insights/1.0/projects/%s/repos/%s/commits/%s/reports/%s",
		strings.TrimRight(c.server.URL, "/"),
		url.PathEscape(c.target.Project),
		url.PathEscape(c.target.Repo),
		url.PathEscape(c.target.CommitID),
		url.PathEscape(c.target.ReportKey),
	)
}

// CreateReport creates or replaces the report. When annotations is non-nil the
// report's previous annotations are removed and the new ones uploaded.
func (c *Client) CreateReport(ctx context.Context, report Report, annotations []Annotation) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := c.do(ctx, http.MethodPut, c.reportURL(), body); err != nil {
		return err
	}

	if annotations == nil {
		return nil
	}

	annotationsURL := c.reportURL() + "/annotations"
	if err := c.do(ctx, http.MethodDelete, annotationsURL, nil); err != nil {
		return err
	}

	total := len(annotations)
	for start := 0; start < total; start += MaxAnnotationsPerRequest {
		end := start + MaxAnnotationsPerRequest
		if end > total {
			end = total
		}

		body, err := json.Marshal(annotationsRequest{Annotations: annotations[start:end]})
		if err != nil {
			return fmt.Errorf("failed to marshal annotations: %w", err)
		}
		if err := c.do(ctx, http.MethodPost, annotationsURL, body); err != nil {
			return err
		}
		if c.OnBatch != nil {
			c.OnBatch(end, total)
		}
	}

	return nil
}

// DeleteReport removes the report and its annotations from the commit.
func (c *Client) DeleteReport(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, c.reportURL(), nil)
}

func (c *Client) do(ctx context.Context, method, apiURL string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.server.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", method, apiURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			Method:     method,
			URL:        apiURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
