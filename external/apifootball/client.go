package apifootball

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/pitchdata/footystats/internal/domain/league"
	"github.com/pitchdata/footystats/internal/domain/match"
	"github.com/pitchdata/footystats/internal/platform/logging"
	"github.com/pitchdata/footystats/internal/platform/resilience"
	"github.com/pitchdata/footystats/internal/usecase"
)

const (
	defaultBaseURL = "https://apiv3.apifootball.com/"
	dateFormat     = "2006-01-02"
	maxBodyBytes   = 6 << 20
)

var apiKeyParamRegex = regexp.MustCompile(`APIkey=[^&\s"']+`)
var errProviderTransient = crerr.New("football data provider transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the apifootball.com v3 endpoint. Every call is a GET with
// an action query parameter; payloads that are not JSON arrays are treated as
// empty result sets, which is how the provider reports "no data" and errors
// alike.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = strings.TrimRight(defaultBaseURL, "/")
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) FetchLeagues(ctx context.Context) ([]league.League, error) {
	raw, err := c.getJSON(ctx, map[string]string{"action": "get_leagues"})
	if err != nil {
		return nil, fmt.Errorf("fetch leagues: %w", err)
	}
	return decodeArray[league.League](raw), nil
}

func (c *Client) FetchTeams(ctx context.Context, leagueID string) ([]league.Team, error) {
	if strings.TrimSpace(leagueID) == "" {
		return nil, fmt.Errorf("%w: league id is required", usecase.ErrInvalidInput)
	}

	raw, err := c.getJSON(ctx, map[string]string{
		"action":    "get_teams",
		"league_id": leagueID,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch teams league_id=%s: %w", leagueID, err)
	}
	return decodeArray[league.Team](raw), nil
}

func (c *Client) FetchEvents(ctx context.Context, filter usecase.EventQuery) ([]match.Match, error) {
	query := map[string]string{"action": "get_events"}
	if filter.MatchID != "" {
		query["match_id"] = filter.MatchID
	}
	if filter.LeagueID != "" {
		query["league_id"] = filter.LeagueID
	}
	if filter.TeamID != "" {
		query["team_id"] = filter.TeamID
	}
	if !filter.From.IsZero() {
		query["from"] = filter.From.UTC().Format(dateFormat)
	}
	if !filter.To.IsZero() {
		query["to"] = filter.To.UTC().Format(dateFormat)
	}

	raw, err := c.getJSON(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	return decodeArray[match.Match](raw), nil
}

// FetchMatchByID re-fetches a single match. The second return is false when
// the provider has no row for the id.
func (c *Client) FetchMatchByID(ctx context.Context, matchID string) (match.Match, bool, error) {
	if strings.TrimSpace(matchID) == "" {
		return match.Match{}, false, fmt.Errorf("%w: match id is required", usecase.ErrInvalidInput)
	}

	items, err := c.FetchEvents(ctx, usecase.EventQuery{MatchID: matchID})
	if err != nil {
		return match.Match{}, false, err
	}
	if len(items) == 0 {
		return match.Match{}, false, nil
	}
	return items[0], true, nil
}

func (c *Client) getJSON(ctx context.Context, query map[string]string) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "football api circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: football data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	values.Set("APIkey", c.apiKey)

	fullURL := c.baseURL + "/?" + values.Encode()

	key := values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}

	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errProviderTransient, sanitizeSensitiveText(err.Error(), c.apiKey))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errProviderTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errProviderTransient, resp.StatusCode, abbreviateBody(raw))
			} else {
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "football api request failed", "url", redactAPIURL(fullURL), "error", lastErr)
	return nil, lastErr
}

// decodeArray decodes a provider payload that should be a JSON array. Object
// payloads (the provider's error envelope) and malformed bodies decode to an
// empty slice.
func decodeArray[T any](raw []byte) []T {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []T{}
	}

	var out []T
	if err := sonic.Unmarshal(trimmed, &out); err != nil {
		return []T{}
	}
	return out
}

func isCircuitFailure(err error) bool {
	return stderrors.Is(err, errProviderTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func sanitizeSensitiveText(value, apiKey string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if apiKey != "" {
		value = strings.ReplaceAll(value, apiKey, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "APIkey=REDACTED")
}

func redactAPIURL(rawURL string) string {
	return apiKeyParamRegex.ReplaceAllString(rawURL, "APIkey=REDACTED")
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 256 {
		return text[:256] + "..."
	}
	return text
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
