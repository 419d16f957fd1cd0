package models

import "time"

// EventType classifies scheduled events.
type EventType string

const (
	EventTypeOnline   EventType = "ONLINE"
	EventTypeOnsite   EventType = "ONSITE"
	EventTypeOneOnOne EventType = "ONE_ON_ONE"
)

// Event is a scheduled session mirrored to the external calendar provider.
// CalendarEventID references the remote copy so deletion can cascade.
type Event struct {
	ID              string    `db:"id" json:"id"`
	OwnerID         string    `db:"owner_id" json:"owner_id"`
	Name            string    `db:"name" json:"name"`
	Description     string    `db:"description" json:"description"`
	EventType       EventType `db:"event_type" json:"event_type"`
	StartsAt        time.Time `db:"starts_at" json:"starts_at"`
	EndsAt          time.Time `db:"ends_at" json:"ends_at"`
	Location        string    `db:"location" json:"location"`
	MeetingLink     string    `db:"meeting_link" json:"meeting_link"`
	CalendarEventID string    `db:"calendar_event_id" json:"calendar_event_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// EventFilter captures list filters for events.
type EventFilter struct {
	OwnerID  string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
