package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/account-academy/backoffice-api/pkg/config"
)

// Meeting describes a conferencing room created for an online event.
type Meeting struct {
	ID       string    `json:"id,omitempty"`
	Topic    string    `json:"topic"`
	StartsAt time.Time `json:"start_time"`
	Duration int       `json:"duration"`
	JoinURL  string    `json:"join_url,omitempty"`
}

// MeetingProvider creates join links for online events.
type MeetingProvider interface {
	CreateMeeting(ctx context.Context, meeting Meeting) (*Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
}

// ConferencingClient talks to the conferencing provider over HTTP.
type ConferencingClient struct {
	baseURL   string
	accountID string
	token     string
	client    *http.Client
	logger    *zap.Logger
}

// NewConferencingClient constructs a conferencing client from configuration.
func NewConferencingClient(cfg config.ConferencingConfig, logger *zap.Logger) *ConferencingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConferencingClient{
		baseURL:   cfg.BaseURL,
		accountID: cfg.AccountID,
		token:     cfg.Token,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

// CreateMeeting provisions a room and returns it with the join link filled.
func (c *ConferencingClient) CreateMeeting(ctx context.Context, meeting Meeting) (*Meeting, error) {
	raw, err := json.Marshal(meeting)
	if err != nil {
		return nil, fmt.Errorf("marshal meeting: %w", err)
	}
	path := fmt.Sprintf("%s/users/%s/meetings", c.baseURL, c.accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build meeting request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("create meeting: provider returned status %d", resp.StatusCode)
	}
	var created Meeting
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decode meeting: %w", err)
	}
	return &created, nil
}

// DeleteMeeting tears down the room.
func (c *ConferencingClient) DeleteMeeting(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/meetings/"+id, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delete meeting: provider returned status %d", resp.StatusCode)
	}
	return nil
}

// NopConferencing is used when no conferencing provider is configured.
type NopConferencing struct{}

func (NopConferencing) CreateMeeting(_ context.Context, meeting Meeting) (*Meeting, error) {
	return &meeting, nil
}
func (NopConferencing) DeleteMeeting(context.Context, string) error { return nil }
