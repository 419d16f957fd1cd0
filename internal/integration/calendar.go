// Package integration holds thin clients for the external providers the
// back office talks to: the calendar, the conferencing service and the
// video host. Each client sits behind a small interface so services can be
// tested without network access.
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

// CalendarEvent is the provider-side representation of a scheduled event.
type CalendarEvent struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

// CalendarProvider mirrors events to an external calendar.
type CalendarProvider interface {
	CreateEvent(ctx context.Context, event CalendarEvent) (string, error)
	UpdateEvent(ctx context.Context, id string, event CalendarEvent) error
	DeleteEvent(ctx context.Context, id string) error
}

// CalendarClient talks to the calendar provider over HTTP.
type CalendarClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewCalendarClient constructs a calendar client from configuration.
func NewCalendarClient(cfg config.CalendarConfig, logger *zap.Logger) *CalendarClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// CreateEvent mirrors the event to the provider and returns the remote id.
func (c *CalendarClient) CreateEvent(ctx context.Context, event CalendarEvent) (string, error) {
	var created CalendarEvent
	if err := c.do(ctx, http.MethodPost, "/events", event, &created); err != nil {
		return "", fmt.Errorf("create calendar event: %w", err)
	}
	return created.ID, nil
}

// UpdateEvent pushes changed fields to the provider copy.
func (c *CalendarClient) UpdateEvent(ctx context.Context, id string, event CalendarEvent) error {
	if err := c.do(ctx, http.MethodPut, "/events/"+id, event, nil); err != nil {
		return fmt.Errorf("update calendar event: %w", err)
	}
	return nil
}

// DeleteEvent removes the provider copy.
func (c *CalendarClient) DeleteEvent(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/events/"+id, nil, nil); err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

func (c *CalendarClient) do(ctx context.Context, method, path string, body, dest interface{}) error {
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// NopCalendar is used when no calendar provider is configured. Event writes
// succeed locally without a remote mirror.
type NopCalendar struct{}

func (NopCalendar) CreateEvent(context.Context, CalendarEvent) (string, error) { return "", nil }
func (NopCalendar) UpdateEvent(context.Context, string, CalendarEvent) error  { return nil }
func (NopCalendar) DeleteEvent(context.Context, string) error                 { return nil }
