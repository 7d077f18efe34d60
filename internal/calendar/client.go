package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/agendabot/internal/instrumentation"
)

const defaultPageSize = 250

// Client is a Provider backed by the Google Calendar v3 API.
type Client struct {
	svc     *gcal.Service
	loc     *time.Location
	metrics *instrumentation.Metrics
}

// NewClient wraps an existing Calendar service. Events are reported in loc;
// a nil loc means UTC. metrics may be nil.
func NewClient(svc *gcal.Service, loc *time.Location, metrics *instrumentation.Metrics) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{svc: svc, loc: loc, metrics: metrics}
}

// ListEvents lists expanded single events ordered by start time, following
// every result page.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) (events []Event, err error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationList, calendarID)
	defer span.End()
	start := time.Now()
	defer func() { c.record(ctx, instrumentation.OperationList, start, err) }()

	call := c.svc.Events.List(calendarID).
		Context(ctx).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		TimeZone(c.loc.String()).
		MaxResults(defaultPageSize)

	err = call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			events = append(events, toEvent(item, c.loc))
		}
		return nil
	})
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	instrumentation.SetSpanSuccess(span)
	return events, nil
}

// InsertEvent creates a timed event.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, input EventInput) (ev *Event, err error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationInsert, calendarID)
	defer span.End()
	start := time.Now()
	defer func() { c.record(ctx, instrumentation.OperationInsert, start, err) }()

	created, err := c.svc.Events.Insert(calendarID, toGoogleEvent(input)).Context(ctx).Do()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}
	instrumentation.SetSpanSuccess(span)
	out := toEvent(created, c.loc)
	return &out, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) (err error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationDelete, calendarID)
	defer span.End()
	start := time.Now()
	defer func() { c.record(ctx, instrumentation.OperationDelete, start, err) }()

	if err = c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		instrumentation.SetSpanError(span, err)
		return fmt.Errorf("failed to delete event %s: %w", eventID, err)
	}
	instrumentation.SetSpanSuccess(span)
	return nil
}

func (c *Client) record(ctx context.Context, operation string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordCalendarOperation(ctx, operation, status, time.Since(start))
}

// GoogleFactory builds Google Calendar clients from token sources.
type GoogleFactory struct {
	Location *time.Location
	Metrics  *instrumentation.Metrics
	// Options are appended to the client options, e.g. a custom endpoint.
	Options []option.ClientOption
}

// NewProvider implements Factory.
func (f *GoogleFactory) NewProvider(ctx context.Context, ts oauth2.TokenSource) (Provider, error) {
	opts := append([]option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}, f.Options...)
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return NewClient(svc, f.Location, f.Metrics), nil
}
