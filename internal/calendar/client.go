package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const defaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// BaseURL is the deployed calendar web app endpoint.
	BaseURL string
	// Token is an optional bearer token sent with every request.
	Token string
	// Tag prefixes shift titles. DefaultTag is used when empty.
	Tag string
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client fetches tagged events from the calendar web app.
type Client struct {
	baseURL    string
	tag        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a calendar client. A missing BaseURL is reported by
// FetchEvents so the rest of the process can still start.
func NewClient(ctx context.Context, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if token := strings.TrimSpace(opts.Token); token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		authed := oauth2.NewClient(ctx, src)
		authed.Timeout = httpClient.Timeout
		httpClient = authed
	}
	tag := opts.Tag
	if tag == "" {
		tag = DefaultTag
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimSpace(opts.BaseURL),
		tag:        tag,
		httpClient: httpClient,
		logger:     logger.With("component", "calendar"),
	}
}

// FetchEvents returns every tagged event of year.
func (c *Client) FetchEvents(ctx context.Context, year int) ([]Event, error) {
	if c == nil || c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	query := url.Values{}
	query.Set("path", "events")
	query.Set("year", strconv.Itoa(year))

	var payload eventsResponse
	if err := c.get(ctx, query, year, &payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		return nil, &FetchError{Year: year, Message: payload.Error}
	}

	events := make([]Event, 0, len(payload.Events))
	for _, raw := range payload.Events {
		event, ok, err := c.normalize(raw)
		if err != nil {
			return nil, &FetchError{Year: year, Message: "invalid event " + raw.ID, Err: err}
		}
		if !ok {
			continue
		}
		events = append(events, event)
	}

	c.logger.DebugContext(ctx, "calendar events fetched", "year", year, "count", len(events), "reported_count", payload.Count)
	return events, nil
}

// Health calls the web app health endpoint.
func (c *Client) Health(ctx context.Context) error {
	if c == nil || c.baseURL == "" {
		return ErrNotConfigured
	}
	query := url.Values{}
	query.Set("path", "health")

	var payload struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := c.get(ctx, query, 0, &payload); err != nil {
		return err
	}
	if payload.Status != "ok" {
		message := payload.Error
		if message == "" {
			message = "unexpected health status " + strconv.Quote(payload.Status)
		}
		return &FetchError{Message: message}
	}
	return nil
}

func (c *Client) get(ctx context.Context, query url.Values, year int, out any) error {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	merged := endpoint.Query()
	for key, values := range query {
		merged[key] = values
	}
	endpoint.RawQuery = merged.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Year: year, Err: err}
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return &FetchError{Year: year, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &FetchError{
			Year:       year,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Message:    strings.TrimSpace(string(body)),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Year: year, Err: fmt.Errorf("decoding calendar response: %w", err)}
	}
	return nil
}

func (c *Client) normalize(raw eventPayload) (Event, bool, error) {
	if !strings.HasPrefix(raw.Title, c.tag) {
		return Event{}, false, nil
	}
	start, err := time.Parse(time.RFC3339, raw.StartTime)
	if err != nil {
		return Event{}, false, fmt.Errorf("parsing startTime: %w", err)
	}
	end, err := time.Parse(time.RFC3339, raw.EndTime)
	if err != nil {
		return Event{}, false, fmt.Errorf("parsing endTime: %w", err)
	}

	jobName := raw.JobName
	if jobName != nil {
		trimmed := strings.TrimSpace(*jobName)
		jobName = &trimmed
		if trimmed == "" {
			jobName = nil
		}
	}
	if jobName == nil {
		jobName = ParseJobName(c.tag, raw.Title)
	}

	return Event{
		ID:          raw.ID,
		Title:       raw.Title,
		JobName:     jobName,
		Start:       start.UTC(),
		End:         end.UTC(),
		Description: raw.Description,
		AllDay:      raw.IsAllDay,
	}, true, nil
}
