package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"timeclock/internal/attendance"
	"timeclock/internal/config"
)

const (
	defaultWorkersTable = "Workers"
	defaultHoursTable   = "TimeclockHours"
	defaultHTTPTimeout  = 10 * time.Second
	defaultScanType     = "Scan"
)

var (
	// ErrUnauthorized marks responses rejected for bad or missing credentials.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrUnavailable marks transport failures and server-side errors.
	ErrUnavailable = errors.New("backend: unavailable")
)

// HTTPDoer executes HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes the Grist client configuration.
type Config struct {
	BaseURL      string
	APIKey       string
	DocumentID   string
	WorkersTable string
	HoursTable   string
	HTTPClient   HTTPDoer
	Timeout      time.Duration
}

// Client wraps the Grist REST API for one document.
type Client struct {
	baseURL      *url.URL
	apiKey       string
	documentID   string
	workersTable string
	hoursTable   string
	http         HTTPDoer
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("backend: base url is required")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if !baseURL.IsAbs() {
		return nil, fmt.Errorf("backend: base url %q must be absolute", base)
	}
	documentID := strings.TrimSpace(cfg.DocumentID)
	if documentID == "" {
		return nil, errors.New("backend: document id is required")
	}
	workers := strings.TrimSpace(cfg.WorkersTable)
	if workers == "" {
		workers = defaultWorkersTable
	}
	hours := strings.TrimSpace(cfg.HoursTable)
	if hours == "" {
		hours = defaultHoursTable
	}
	doer := cfg.HTTPClient
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		doer = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:      baseURL,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		documentID:   documentID,
		workersTable: workers,
		hoursTable:   hours,
		http:         doer,
	}, nil
}

// NewFromConfig builds a client from the [backend] section. It returns nil
// without error when no backend is configured.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil || !cfg.BackendConfigured() {
		return nil, nil
	}
	return New(Config{
		BaseURL:      cfg.Backend.BaseURL,
		APIKey:       cfg.Backend.APIKey,
		DocumentID:   cfg.Backend.DocumentID,
		WorkersTable: cfg.Backend.WorkersTable,
		HoursTable:   cfg.Backend.HoursTable,
		Timeout:      cfg.BackendTimeout(),
	})
}

// FetchWorkers loads the active roster. Workers without an identifier are skipped.
func (c *Client) FetchWorkers(ctx context.Context) ([]attendance.Worker, error) {
	if c == nil {
		return nil, errors.New("backend: client is nil")
	}
	query := fmt.Sprintf(`SELECT * FROM %s WHERE start_date > end_date OR end_date IS NULL`, quoteIdent(c.workersTable))
	rows, err := c.sql(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("backend: fetch workers: %w", err)
	}
	workers := make([]attendance.Worker, 0, len(rows))
	for _, fields := range rows {
		worker := decodeWorker(fields)
		if worker.ID == "" {
			continue
		}
		workers = append(workers, worker)
	}
	return workers, nil
}

// FetchScanHistory loads scan records at or after since. Rows with an unknown
// status or no worker are dropped.
func (c *Client) FetchScanHistory(ctx context.Context, since time.Time) ([]attendance.ScanRecord, error) {
	if c == nil {
		return nil, errors.New("backend: client is nil")
	}
	query := fmt.Sprintf(`SELECT * FROM %s WHERE scan_datetime >= %s`,
		quoteIdent(c.hoursTable), strconv.FormatInt(since.Unix(), 10))
	rows, err := c.sql(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("backend: fetch scan history: %w", err)
	}
	records := make([]attendance.ScanRecord, 0, len(rows))
	for _, fields := range rows {
		rec, ok := decodeScanRecord(fields)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// SubmitScanRecord appends one record to the hours table.
func (c *Client) SubmitScanRecord(ctx context.Context, rec attendance.ScanRecord) error {
	if c == nil {
		return errors.New("backend: client is nil")
	}
	if rec.WorkerID == "" || !rec.Status.Valid() {
		return fmt.Errorf("backend: refusing to submit malformed record for %q", rec.WorkerID)
	}
	payload, err := json.Marshal(recordsPayload{Records: []recordEnvelope{{Fields: encodeScanRecord(rec)}}})
	if err != nil {
		return fmt.Errorf("backend: encode scan record: %w", err)
	}
	endpoint := c.docURL().JoinPath("tables", c.hoursTable, "records")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("backend: build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("backend: submit scan record: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) sql(ctx context.Context, query string) ([]map[string]any, error) {
	endpoint := c.docURL().JoinPath("sql")
	endpoint.RawQuery = url.Values{"q": []string{query}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build sql request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload recordsResponse
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode sql response: %w", err)
	}
	rows := make([]map[string]any, 0, len(payload.Records))
	for _, record := range payload.Records {
		if record.Fields == nil {
			continue
		}
		rows = append(rows, record.Fields)
	}
	return rows, nil
}

// do applies auth headers and maps failing statuses to sentinel errors. The
// caller owns the body of a successful response.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 300 {
		return resp, nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	detail := strings.TrimSpace(string(body))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w (%s): %s", ErrUnauthorized, resp.Status, detail)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w (%s): %s", ErrUnavailable, resp.Status, detail)
	default:
		return nil, fmt.Errorf("request failed (%s): %s", resp.Status, detail)
	}
}

func (c *Client) docURL() *url.URL {
	return c.baseURL.JoinPath("api", "docs", c.documentID)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type recordsResponse struct {
	Records []struct {
		Fields map[string]any `json:"fields"`
	} `json:"records"`
}

type recordsPayload struct {
	Records []recordEnvelope `json:"records"`
}

type recordEnvelope struct {
	Fields map[string]any `json:"fields"`
}
