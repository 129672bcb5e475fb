package billcastsdk

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

// Client is a minimal Billcast HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "api/v1",
		Timeout:  30 * time.Second,
	}
}

// Forecast mirrors the API forecast model (partial).
type Forecast struct {
	ComputationID string `json:"computation_id"`
	BillID        struct {
		Kind   string `json:"kind"`
		Number string `json:"number"`
		Year   string `json:"year"`
	} `json:"bill_id"`
	ComputedAt string `json:"computed_at"`
	Title      string `json:"title"`
	Risk       struct {
		Score   float64 `json:"score"`
		Level   string  `json:"level"`
		Factors []struct {
			Name        string  `json:"name"`
			Description string  `json:"description"`
			Impact      string  `json:"impact"`
			Delta       float64 `json:"delta"`
		} `json:"factors"`
	} `json:"risk"`
	Timeline struct {
		NotApplicable bool   `json:"not_applicable"`
		Estimate      string `json:"estimate"`
	} `json:"timeline"`
	NextSteps []struct {
		Step        string `json:"step"`
		Probability string `json:"probability"`
		Observation string `json:"observation"`
	} `json:"next_steps"`
	Context struct {
		Urgency          string `json:"urgency"`
		Controversy      string `json:"controversy"`
		PoliticalContext string `json:"political_context"`
		SectorImpact     string `json:"sector_impact"`
	} `json:"context"`
	Degraded bool `json:"degraded"`
	NotFound bool `json:"not_found"`
}

// SectorOverview mirrors the API aggregate model (partial).
type SectorOverview struct {
	ComputedAt   string  `json:"computed_at"`
	BillCount    int     `json:"bill_count"`
	AverageScore float64 `json:"average_score"`
	AverageLevel string  `json:"average_level"`
	Distribution struct {
		High   int `json:"high"`
		Medium int `json:"medium"`
		Low    int `json:"low"`
	} `json:"distribution"`
}

// Event is one audit log entry.
type Event struct {
	ID      int64          `json:"id"`
	TS      string         `json:"ts"`
	Type    string         `json:"type"`
	BillKey string         `json:"bill_key"`
	Payload map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Forecast fetches the forecast for one bill.
func (c *Client) Forecast(ctx context.Context, kind, number, year string, force bool) (Forecast, error) {
	endpoint := fmt.Sprintf("bills/%s/%s/%s/forecast",
		url.PathEscape(kind), url.PathEscape(number), url.PathEscape(year))
	if force {
		endpoint += "?force=true"
	}
	var resp Forecast
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// SectorOverview aggregates forecasts over the given bill ids. An empty
// list uses the server's configured watchlist.
func (c *Client) SectorOverview(ctx context.Context, ids []string, force bool) (SectorOverview, error) {
	body := map[string]any{"ids": ids, "force": force}
	var resp SectorOverview
	err := c.do(ctx, http.MethodPost, "sector/overview", body, &resp)
	return resp, err
}

// Events returns recent audit events.
func (c *Client) Events(ctx context.Context, evtType, billKey string, limit int) ([]Event, error) {
	q := url.Values{}
	if evtType != "" {
		q.Set("type", evtType)
	}
	if billKey != "" {
		q.Set("bill", billKey)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	endpoint := "events"
	if enc := q.Encode(); enc != "" {
		endpoint += "?" + enc
	}
	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.Trim(c.BasePath, "/") + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
