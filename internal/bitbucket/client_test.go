package bitbucket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportPath = "/rest/insights/1.0/projects/PRJ/repos/my-repo/commits/e69494baf07d6277393051cabece2ba56bad2a3a/reports/oeph.code-insights.eslint"

type recorded struct {
	method string
	path   string
	auth   string
	body   []byte
}

type recorder struct {
	mu       sync.Mutex
	requests []recorded
	status   int
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rec.mu.Lock()
	rec.requests = append(rec.requests, recorded{
		method: r.Method,
		path:   r.URL.EscapedPath(),
		auth:   r.Header.Get("Authorization"),
		body:   body,
	})
	status := rec.status
	rec.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if status >= 400 {
		fmt.Fprint(w, `{"errors":[{"message":"nope"}]}`)
	}
}

func newTestClient(t *testing.T, rec *recorder) *Client {
	t.Helper()
	server := httptest.NewServer(rec)
	t.Cleanup(server.Close)

	client := NewClient(Server{
		URL:         server.URL + "/",
		AccessToken: "super-secret-token",
	}, Target{
		Project:   "PRJ",
		Repo:      "my-repo",
		CommitID:  "e69494baf07d6277393051cabece2ba56bad2a3a",
		ReportKey: "oeph.code-insights.eslint",
	})
	client.SetHTTPClient(server.Client())
	return client
}

func TestCreateReportWithoutAnnotations(t *testing.T) {
	rec := &recorder{}
	client := newTestClient(t, rec)

	report := Report{
		Title:       "ESLint Report",
		Reporter:    "ESLint Code Insight",
		Result:      ResultPass,
		CreatedDate: 1700000000000,
		Data:        []DataItem{Number("Warning Count", 0)},
	}
	require.NoError(t, client.CreateReport(context.Background(), report, nil))

	require.Len(t, rec.requests, 1)
	req := rec.requests[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, reportPath, req.path)
	assert.Equal(t, "Bearer super-secret-token", req.auth)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(req.body, &sent))
	assert.Equal(t, "PASS", sent["result"])
	assert.Equal(t, float64(1700000000000), sent["createdDate"])
	assert.Equal(t, []any{map[string]any{"title": "Warning Count", "type": "NUMBER", "value": float64(0)}}, sent["data"])
}

func TestCreateReportBatchesAnnotations(t *testing.T) {
	rec := &recorder{}
	client := newTestClient(t, rec)

	var batches [][2]int
	client.OnBatch = func(sent, total int) {
		batches = append(batches, [2]int{sent, total})
	}

	annotations := make([]Annotation, MaxAnnotationsPerRequest+5)
	for i := range annotations {
		annotations[i] = Annotation{Path: "a.js", Line: i + 1, Message: "m", Severity: SeverityLow}
	}

	require.NoError(t, client.CreateReport(context.Background(), Report{Title: "ESLint Report", Result: ResultFail}, annotations))

	require.Len(t, rec.requests, 4)
	assert.Equal(t, http.MethodPut, rec.requests[0].method)
	assert.Equal(t, http.MethodDelete, rec.requests[1].method)
	assert.Equal(t, reportPath+"/annotations", rec.requests[1].path)

	var first, second annotationsRequest
	require.NoError(t, json.Unmarshal(rec.requests[2].body, &first))
	require.NoError(t, json.Unmarshal(rec.requests[3].body, &second))
	assert.Len(t, first.Annotations, MaxAnnotationsPerRequest)
	assert.Len(t, second.Annotations, 5)
	assert.Equal(t, MaxAnnotationsPerRequest+1, second.Annotations[0].Line)

	assert.Equal(t, [][2]int{{1000, 1005}, {1005, 1005}}, batches)
}

func TestCreateReportEmptyAnnotationsStillClears(t *testing.T) {
	rec := &recorder{}
	client := newTestClient(t, rec)

	require.NoError(t, client.CreateReport(context.Background(), Report{Title: "ESLint Report"}, []Annotation{}))

	require.Len(t, rec.requests, 2)
	assert.Equal(t, http.MethodDelete, rec.requests[1].method)
}

func TestCreateReportAPIError(t *testing.T) {
	rec := &recorder{status: http.StatusUnauthorized}
	client := newTestClient(t, rec)

	err := client.CreateReport(context.Background(), Report{Title: "ESLint Report"}, []Annotation{{Path: "a.js"}})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, http.MethodPut, apiErr.Method)
	assert.Contains(t, apiErr.Error(), "nope")
	assert.Len(t, rec.requests, 1)
}

func TestDeleteReport(t *testing.T) {
	rec := &recorder{status: http.StatusNoContent}
	client := newTestClient(t, rec)

	require.NoError(t, client.DeleteReport(context.Background()))
	require.Len(t, rec.requests, 1)
	assert.Equal(t, http.MethodDelete, rec.requests[0].method)
	assert.Equal(t, reportPath, rec.requests[0].path)
}

func TestCreateReportCanceledContext(t *testing.T) {
	client := newTestClient(t, &recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.CreateReport(ctx, Report{Title: "ESLint Report"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestSetHTTPClient(t *testing.T) {
	client := newTestClient(t, &recorder{})

	var seen []string
	client.SetHTTPClient(&http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		return &http.Response{
			StatusCode: http.StatusTeapot,
			Body:       io.NopCloser(strings.NewReader("short and stout")),
			Request:    r,
		}, nil
	})})

	err := client.DeleteReport(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTeapot, apiErr.StatusCode)
	assert.Equal(t, []string{http.MethodDelete + " " + reportPath}, seen)
}
