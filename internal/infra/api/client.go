// Package api is the HTTP client for the racing scrape/persistence service.
// Every call is plain request/response JSON; transport failures and non-2xx
// statuses surface as errors so the retry layer can classify them.
package api

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

	"github.com/mfenwick/racecollect/internal/collect/metrics"
)

// Client talks to one racing API deployment.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL, e.g.
// "http://localhost:8000/api/racing-post".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// RacecardScrapeRequest asks the service to scrape racecards for one
// region/day. Stats and profile fetching ride along with the cards.
type RacecardScrapeRequest struct {
	Day           string `json:"day"`
	Region        string `json:"region"`
	FetchStats    bool   `json:"fetch_stats"`
	FetchProfiles bool   `json:"fetch_profiles"`
}

// RacecardScrapeResponse carries the scraped payload. Data is forwarded to
// the sync call verbatim; its internal structure is the service's business.
type RacecardScrapeResponse struct {
	Races int             `json:"races"`
	Date  string          `json:"date"`
	Data  json.RawMessage `json:"data"`
}

// RacecardSyncRequest persists a previously scraped payload.
type RacecardSyncRequest struct {
	Data       json.RawMessage `json:"data"`
	ScrapeDate string          `json:"scrape_date"`
}

// RacecardSyncResponse reports the persistence outcome.
type RacecardSyncResponse struct {
	EntriesCreated int `json:"entries_created"`
	EntriesUpdated int `json:"entries_updated"`
}

// ResultsScrapeRequest scrapes and persists one region/date of results
// server-side in a single call.
type ResultsScrapeRequest struct {
	Date     string `json:"date"`
	Region   string `json:"region"`
	RaceType string `json:"race_type"`
	Betfair  bool   `json:"betfair"`
}

// ResultsScrapeResponse reports what the import created or touched.
type ResultsScrapeResponse struct {
	RacesCreated   int `json:"races_created"`
	RacesUpdated   int `json:"races_updated"`
	RunsCreated    int `json:"runs_created"`
	RunsUpdated    int `json:"runs_updated"`
	BSPRowsFetched int `json:"bsp_rows_fetched"`
}

// ScrapeRacecards issues the racecard scrape call and returns the raw body.
func (c *Client) ScrapeRacecards(ctx context.Context, req RacecardScrapeRequest) ([]byte, error) {
	return c.post(ctx, "/racecards/scrape/", req)
}

// SyncRacecards issues the racecard persistence call and returns the raw body.
func (c *Client) SyncRacecards(ctx context.Context, req RacecardSyncRequest) ([]byte, error) {
	return c.post(ctx, "/racecards/sync/", req)
}

// ScrapeResults issues the combined results scrape+persist call.
func (c *Client) ScrapeResults(ctx context.Context, req ResultsScrapeRequest) ([]byte, error) {
	return c.post(ctx, "/scrape/", req)
}

// Count returns the row count of a paginated resource such as "races" or
// "runs". Used by the health job only.
func (c *Client) Count(ctx context.Context, resource string) (int, error) {
	body, err := c.get(ctx, "/"+resource+"/", url.Values{"page_size": {"1"}})
	if err != nil {
		return 0, err
	}
	var page struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return 0, fmt.Errorf("decode %s count: %w", resource, err)
	}
	return page.Count, nil
}

// RacesOn returns how many races are stored for a date. The list endpoints
// take dashed dates, unlike the scrape endpoints.
func (c *Client) RacesOn(ctx context.Context, date string) (int, error) {
	dashed := strings.ReplaceAll(date, "/", "-")
	body, err := c.get(ctx, "/races/", url.Values{"date": {dashed}, "page_size": {"1"}})
	if err != nil {
		return 0, err
	}
	var page struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return 0, fmt.Errorf("decode races count: %w", err)
	}
	return page.Count, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	call := callName(path)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, call)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.do(req, callName(path))
}

func (c *Client) do(req *http.Request, call string) ([]byte, error) {
	metrics.APICalls.WithLabelValues(call).Inc()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIErrors.WithLabelValues(call, "network").Inc()
		return nil, fmt.Errorf("%s: %w", call, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.APIErrors.WithLabelValues(call, "read").Inc()
		return nil, fmt.Errorf("%s: read response: %w", call, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.APIErrors.WithLabelValues(call, fmt.Sprintf("http_%d", resp.StatusCode)).Inc()
		return nil, fmt.Errorf("%s: http %d: %s", call, resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

func callName(path string) string {
	return strings.Trim(path, "/")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
