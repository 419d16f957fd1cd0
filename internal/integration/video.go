package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/account-academy/backoffice-api/pkg/config"
)

// VideoProvider resolves metadata for hosted lecture videos.
type VideoProvider interface {
	FetchMetadata(ctx context.Context, videoLink string) (json.RawMessage, error)
}

// VideoClient talks to the video host over HTTP.
type VideoClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewVideoClient constructs a video client from configuration.
func NewVideoClient(cfg config.VideoConfig, logger *zap.Logger) *VideoClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// FetchMetadata looks up the hosted video referenced by the lecture link and
// returns the raw provider payload for storage alongside the lecture.
func (c *VideoClient) FetchMetadata(ctx context.Context, videoLink string) (json.RawMessage, error) {
	videoID := extractVideoID(videoLink)
	if videoID == "" {
		return nil, fmt.Errorf("unrecognized video link %q", videoLink)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/videos/"+videoID, nil)
	if err != nil {
		return nil, fmt.Errorf("build video request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch video metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch video metadata: provider returned status %d", resp.StatusCode)
	}
	var payload json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode video metadata: %w", err)
	}
	return payload, nil
}

// extractVideoID pulls the numeric id out of a hosted video URL. The link
// may be the bare id, a full watch URL or a player embed URL.
func extractVideoID(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if !strings.Contains(link, "/") {
		return link
	}
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// NopVideo is used when no video host is configured.
type NopVideo struct{}

func (NopVideo) FetchMetadata(context.Context, string) (json.RawMessage, error) { return nil, nil }
