package sunrise

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"activity-planner/internal/observability"
)

const (
	DefaultEndpoint       = "https://api.sunrise-sunset.org/json"
	DefaultTimezone       = "America/Sao_Paulo"
	DefaultTimeout        = 10 * time.Second
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = time.Second

	statusOK     = "OK"
	userAgent    = "ActivityPlanner/1.0"
	maxBodyBytes = 1 << 20
)

type ClientConfig struct {
	Endpoint       string
	Timezone       string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	// HTTPClient is optional; its own Timeout is left alone, the per-attempt
	// deadline is carried by the request context.
	HTTPClient *http.Client
}

// Client talks to the sunrise-sunset.org JSON API.
type Client struct {
	endpoint       *url.URL
	timezone       string
	timeout        time.Duration
	maxAttempts    int
	initialBackoff time.Duration
	client         *http.Client
	sleep          func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}

	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("sunrise endpoint: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("sunrise endpoint: unsupported scheme %q", endpoint.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		endpoint:       endpoint,
		timezone:       cfg.Timezone,
		timeout:        cfg.Timeout,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		client:         httpClient,
		sleep:          sleepContext,
	}, nil
}

type apiResponse struct {
	Status  string          `json:"status"`
	Results json.RawMessage `json:"results"`
}

// Fetch queries the provider for the given day. Transport failures are
// retried with exponential backoff; an answer that arrives but is unusable
// fails straight away with a *DomainError.
func (c *Client) Fetch(ctx context.Context, latitude, longitude float64, date time.Time) (*Data, error) {
	endpoint := c.requestURL(latitude, longitude, date)
	logger := slog.With(
		"component", "sunrise",
		"lat", latitude,
		"lng", longitude,
		"date", date.Format(time.DateOnly),
		"tzid", c.timezone,
	)

	backoff := c.initialBackoff
	var (
		last  *TransportError
		cause error
	)
	attempts := 0

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		attempts = attempt
		started := time.Now()
		body, terr := c.get(ctx, endpoint, attempt)
		if terr == nil {
			data, err := decode(body)
			if err != nil {
				observability.RecordSunriseAttempt(observability.AttemptDomainError, time.Since(started))
				observability.RecordSunriseFetch(observability.FetchDomainFailure)
				logger.Error("sunrise-sunset returned an unusable payload",
					"attempt", attempt, "error", err)
				return nil, err
			}
			observability.RecordSunriseAttempt(observability.AttemptSuccess, time.Since(started))
			observability.RecordSunriseFetch(observability.FetchOK)
			logger.Debug("sun data fetched", "attempt", attempt)
			return data, nil
		}

		observability.RecordSunriseAttempt(observability.AttemptTransportError, time.Since(started))
		last = terr
		logger.Warn("sunrise-sunset request failed",
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"status_code", terr.StatusCode,
			"error", terr.Err)

		if attempt == c.maxAttempts {
			break
		}
		if err := c.sleep(ctx, backoff); err != nil {
			cause = err
			break
		}
		backoff *= 2
	}

	observability.RecordSunriseFetch(observability.FetchUnreachable)
	err := &UnreachableError{Attempts: attempts, Last: last, Cause: cause}
	logger.Error("sunrise-sunset unreachable", "attempts", attempts, "error", err)
	return nil, err
}

func (c *Client) requestURL(latitude, longitude float64, date time.Time) string {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	query.Set("lng", strconv.FormatFloat(longitude, 'f', -1, 64))
	query.Set("date", date.Format(time.DateOnly))
	query.Set("tzid", c.timezone)
	query.Set("formatted", "1")

	endpoint := *c.endpoint
	endpoint.RawQuery = query.Encode()
	return endpoint.String()
}

// get performs one attempt under its own deadline and returns the body of
// a 2xx response.
func (c *Client) get(ctx context.Context, endpoint string, attempt int) ([]byte, *TransportError) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, &TransportError{Attempt: attempt, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Attempt: attempt, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{
			Attempt:    attempt,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("bad status: %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Attempt: attempt, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

func decode(body []byte) (*Data, error) {
	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &DomainError{Reason: "payload is not valid JSON", Err: err}
	}

	if payload.Status != statusOK {
		return nil, &DomainError{Status: payload.Status, Reason: "provider reported an error"}
	}

	if isEmptyJSON(payload.Results) {
		return nil, &DomainError{Status: payload.Status, Reason: "results missing from response"}
	}

	var results map[string]any
	if err := json.Unmarshal(payload.Results, &results); err != nil {
		return nil, &DomainError{Status: payload.Status, Reason: "results is not an object", Err: err}
	}

	sunrise, ok1 := stringField(results, "sunrise")
	sunset, ok2 := stringField(results, "sunset")
	dayLength, ok3 := stringField(results, "day_length")
	if !ok1 || !ok2 || !ok3 {
		return nil, &DomainError{Status: payload.Status, Reason: "incomplete results: sunrise, sunset and day_length are required"}
	}

	return &Data{
		Sunrise:   sunrise,
		Sunset:    sunset,
		DayLength: dayLength,
	}, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "{}", "[]", `""`, "false", "0":
		return true
	}
	return false
}

func stringField(results map[string]any, key string) (string, bool) {
	value, ok := results[key].(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
