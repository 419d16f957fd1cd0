package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/account-academy/backoffice-api/internal/integration"
	"github.com/account-academy/backoffice-api/internal/models"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
}

// CreateEventRequest holds payload for scheduling events.
type CreateEventRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	EventType   models.EventType `json:"event_type" validate:"required,oneof=ONLINE ONSITE ONE_ON_ONE"`
	StartsAt    time.Time        `json:"starts_at" validate:"required"`
	EndsAt      time.Time        `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Location    string           `json:"location"`
	OwnerID     string           `json:"-"`
}

// UpdateEventRequest holds payload for rescheduling events.
type UpdateEventRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	EventType   models.EventType `json:"event_type" validate:"required,oneof=ONLINE ONSITE ONE_ON_ONE"`
	StartsAt    time.Time        `json:"starts_at" validate:"required"`
	EndsAt      time.Time        `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Location    string           `json:"location"`
}

// EventService handles event scheduling and mirrors events to the external
// calendar and conferencing providers.
type EventService struct {
	repo      eventRepository
	calendar  integration.CalendarProvider
	meetings  integration.MeetingProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs the event service.
func NewEventService(repo eventRepository, calendar integration.CalendarProvider, meetings integration.MeetingProvider, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if calendar == nil {
		calendar = integration.NopCalendar{}
	}
	if meetings == nil {
		meetings = integration.NopConferencing{}
	}
	return &EventService{repo: repo, calendar: calendar, meetings: meetings, validator: validate, logger: logger}
}

// List returns events and pagination metadata.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return events, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an event by id.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Create schedules an event. Online and one-on-one events get a meeting
// room, every event is mirrored to the calendar. Provider failures degrade
// to a local-only event rather than failing the request.
func (s *EventService) Create(ctx context.Context, req CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	event := &models.Event{
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		Description: req.Description,
		EventType:   req.EventType,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Location:    req.Location,
	}

	if req.EventType == models.EventTypeOnline || req.EventType == models.EventTypeOneOnOne {
		meeting, err := s.meetings.CreateMeeting(ctx, integration.Meeting{
			Topic:    req.Name,
			StartsAt: req.StartsAt,
			Duration: int(req.EndsAt.Sub(req.StartsAt).Minutes()),
		})
		if err != nil {
			s.logger.Warn("failed to create meeting room", zap.Error(err))
		} else {
			event.MeetingLink = meeting.JoinURL
		}
	}

	remoteID, err := s.calendar.CreateEvent(ctx, calendarEventFrom(event))
	if err != nil {
		s.logger.Warn("failed to mirror event to calendar", zap.Error(err))
	} else {
		event.CalendarEventID = remoteID
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.logger.Info("event created", zap.String("event_id", event.ID))
	return event, nil
}

// Update reschedules an event and pushes the change to the calendar mirror.
func (s *EventService) Update(ctx context.Context, id string, req UpdateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	event.Name = req.Name
	event.Description = req.Description
	event.EventType = req.EventType
	event.StartsAt = req.StartsAt
	event.EndsAt = req.EndsAt
	event.Location = req.Location

	if event.CalendarEventID != "" {
		if err := s.calendar.UpdateEvent(ctx, event.CalendarEventID, calendarEventFrom(event)); err != nil {
			s.logger.Warn("failed to update calendar mirror", zap.Error(err))
		}
	}
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return event, nil
}

// Delete removes an event and its calendar mirror.
func (s *EventService) Delete(ctx context.Context, id string) error {
	event, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if event.CalendarEventID != "" {
		if err := s.calendar.DeleteEvent(ctx, event.CalendarEventID); err != nil {
			s.logger.Warn("failed to delete calendar mirror", zap.Error(err))
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	s.logger.Info("event deleted", zap.String("event_id", id))
	return nil
}

func calendarEventFrom(event *models.Event) integration.CalendarEvent {
	return integration.CalendarEvent{
		Summary:     event.Name,
		Description: event.Description,
		Location:    event.Location,
		StartsAt:    event.StartsAt,
		EndsAt:      event.EndsAt,
	}
}
