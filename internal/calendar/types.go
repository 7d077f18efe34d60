package calendar

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
)

// Provider is the narrow calendar interface consumed by the booking engine.
type Provider interface {
	// ListEvents returns single (expanded) events intersecting [timeMin, timeMax).
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error)
	InsertEvent(ctx context.Context, calendarID string, input EventInput) (*Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// Factory builds a Provider authorized by a token source.
type Factory interface {
	NewProvider(ctx context.Context, ts oauth2.TokenSource) (Provider, error)
}

// Event is a calendar event as seen by the engine.
type Event struct {
	ID      string
	Summary string
	// Start and End are set for timed events.
	Start time.Time
	End   time.Time
	// AllDay events carry dates instead of instants.
	AllDay    bool
	StartDate string // YYYY-MM-DD, all-day only
	EndDate   string // YYYY-MM-DD (exclusive), all-day only
}

// EventInput describes an event to insert.
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []string
	// Private is stored as private extended properties on the event.
	Private map[string]string
}

func toEvent(e *gcal.Event, loc *time.Location) Event {
	if e == nil {
		return Event{}
	}
	ev := Event{ID: e.Id, Summary: e.Summary}
	if e.Start != nil {
		if e.Start.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, e.Start.DateTime); err == nil {
				ev.Start = t.In(loc)
			}
		} else if e.Start.Date != "" {
			ev.AllDay = true
			ev.StartDate = e.Start.Date
			if t, err := time.ParseInLocation("2006-01-02", e.Start.Date, loc); err == nil {
				ev.Start = t
			}
		}
	}
	if e.End != nil {
		if e.End.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, e.End.DateTime); err == nil {
				ev.End = t.In(loc)
			}
		} else if e.End.Date != "" {
			ev.EndDate = e.End.Date
			if t, err := time.ParseInLocation("2006-01-02", e.End.Date, loc); err == nil {
				ev.End = t
			}
		}
	}
	return ev
}

func toGoogleEvent(input EventInput) *gcal.Event {
	tz := input.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	event := &gcal.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start:       &gcal.EventDateTime{DateTime: input.Start.Format(time.RFC3339), TimeZone: tz},
		End:         &gcal.EventDateTime{DateTime: input.End.Format(time.RFC3339), TimeZone: tz},
	}
	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
	}
	if len(input.Private) > 0 {
		event.ExtendedProperties = &gcal.EventExtendedProperties{Private: input.Private}
	}
	return event
}
