package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// statusCompleted is the report status that carries a definitive verdict.
// Anything else means the analysis is still running.
const statusCompleted = "completed"

// Client talks to a VirusTotal-compatible URL scanning API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ReportStats is the detection tally of a finished analysis.
type ReportStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
	Undetected int `json:"undetected"`
}

// Report is the state of an analysis at fetch time.
type Report struct {
	Status string      `json:"status"`
	Stats  ReportStats `json:"stats"`
}

// Done reports whether the analysis has reached a definitive verdict.
func (r *Report) Done() bool {
	return r.Status == statusCompleted
}

// Malicious reports whether any engine flagged the file.
func (r *Report) Malicious() bool {
	return r.Stats.Malicious > 0
}

type submitResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type reportResponse struct {
	Data struct {
		Attributes Report `json:"attributes"`
	} `json:"data"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Submit sends a publicly fetchable file URL for scanning and returns the
// opaque analysis id the report is keyed by.
func (c *Client) Submit(ctx context.Context, fileURL string) (string, error) {
	endpoint := fmt.Sprintf("%s/urls", c.baseURL)

	form := url.Values{}
	form.Set("url", fileURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("x-apikey", c.apiKey)

	body, err := c.do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to submit url for scanning: %w", err)
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal scan submission response: %w", err)
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("scan submission response missing analysis id")
	}

	return resp.Data.ID, nil
}

// FetchReport retrieves the analysis report for a previously submitted scan.
// The returned report may not be Done yet; the caller decides whether to poll.
func (c *Client) FetchReport(ctx context.Context, analysisID string) (*Report, error) {
	endpoint := fmt.Sprintf("%s/analyses/%s", c.baseURL, url.PathEscape(analysisID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-apikey", c.apiKey)

	body, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scan report: %w", err)
	}

	var resp reportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan report: %w", err)
	}

	return &resp.Data.Attributes, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Code != "" {
			return nil, fmt.Errorf("API error (status %d): %s - %s", resp.StatusCode, errResp.Error.Code, errResp.Error.Message)
		}
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
