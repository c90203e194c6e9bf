// Package matchlogs reads the container logs of played matches from the log service.
package matchlogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	matchservice "github.com/42core-team/arena/app/modules/match/application"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
)

const maxBodyBytes = 8 << 20

// Client implements matchservice.LogSource over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
}

var _ matchservice.LogSource = (*Client)(nil)

// NewClient returns a client for the log service at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid log service url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid log service url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

type logResponse struct {
	Container string   `json:"container"`
	Team      string   `json:"team"`
	Lines     []string `json:"lines"`
}

// FetchLogs returns every stream recorded for the match. A match the log
// service does not know about has no logs.
func (c *Client) FetchLogs(ctx context.Context, matchID sharedtypes.MatchID) ([]matchservice.LogStream, error) {
	endpoint := c.baseURL.JoinPath("matches", matchID.String(), "logs")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build log request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query log service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.logger.DebugContext(ctx, "No logs recorded", slog.String("match_id", matchID.String()))
		return []matchservice.LogStream{}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("log service answered %s for match %s", resp.Status, matchID)
	}

	var body []logResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode logs of match %s: %w", matchID, err)
	}

	streams := make([]matchservice.LogStream, 0, len(body))
	for _, b := range body {
		streams = append(streams, matchservice.LogStream{
			Container: b.Container,
			TeamName:  b.Team,
			Lines:     b.Lines,
		})
	}
	return streams, nil
}
