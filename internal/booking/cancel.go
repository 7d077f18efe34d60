package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/teemow/agendabot/internal/calendar"
	"github.com/teemow/agendabot/internal/logging"
	"github.com/teemow/agendabot/internal/store"
)

// mockPrefix marks simulated bookings created by older deployments.
const mockPrefix = "mock-"

// Cancellation is the outcome of DeleteEvent.
type Cancellation struct {
	Message    string
	EventID    string
	DBID       string
	Simulation bool
}

// DeleteEvent cancels a booking referenced by local record id (a UUID) or
// by external event id. The calendar event is deleted before the local
// record is marked canceled, so a provider failure leaves the record as is.
func (e *Engine) DeleteEvent(ctx context.Context, businessID, eventID string) (*Cancellation, error) {
	eventID = strings.TrimSpace(eventID)
	if businessID == "" || eventID == "" {
		return nil, ValidationError("missing_fields", "businessId and eventId are required")
	}
	logger := logging.WithBusiness(e.logger, businessID)

	record, err := e.findRecord(ctx, businessID, eventID)
	if err != nil {
		return nil, err
	}

	externalID := eventID
	if record != nil {
		externalID = record.EventID
	}
	simulation := isSimulated(record, externalID)
	result := &Cancellation{EventID: externalID, Simulation: simulation}
	if record != nil {
		result.DBID = record.ID
		if record.Canceled {
			result.Message = "Appointment was already canceled"
			return result, nil
		}
	}

	if !simulation {
		cred, err := e.ResolveCredential(ctx, businessID)
		if err != nil {
			return nil, err
		}
		provider, err := e.provider(ctx, cred)
		if err != nil {
			return nil, err
		}
		if err := provider.DeleteEvent(ctx, cred.CalendarID, externalID); err != nil {
			if !calendar.IsGone(err) {
				return nil, e.providerFailure(ctx, businessID, "event delete", err)
			}
			logger.Info("calendar event already gone", "event_id", externalID)
		}
	}

	if record != nil {
		e.retireRecord(ctx, logger, record)
	}

	result.Message = "Appointment canceled successfully"
	if simulation {
		result.Message = "Simulated appointment canceled successfully"
	}
	logger.Info("appointment canceled", "event_id", externalID, "simulation", simulation)
	return result, nil
}

// findRecord resolves the local record for a UUID-shaped local id or an
// external id. An unknown local id is an error; an unknown external id is not.
func (e *Engine) findRecord(ctx context.Context, businessID, eventID string) (*store.CalendarEvent, error) {
	if _, err := uuid.Parse(eventID); err == nil && len(eventID) == 36 {
		rec, err := e.store.GetCalendarEvent(ctx, businessID, eventID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ValidationError("event_not_found", "appointment %s not found", eventID)
		}
		if err != nil {
			return nil, PersistenceError("read_failed", err, "failed to load appointment")
		}
		return rec, nil
	}

	rec, err := e.store.FindCalendarEventByExternalID(ctx, businessID, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, PersistenceError("read_failed", err, "failed to load appointment")
	}
	return rec, nil
}

// retireRecord marks the record canceled, hard-deleting it when the flag
// cannot be written.
func (e *Engine) retireRecord(ctx context.Context, logger *slog.Logger, record *store.CalendarEvent) {
	err := e.store.CancelCalendarEvent(ctx, record.BusinessID, record.ID, e.now())
	if err == nil {
		return
	}
	logger.Warn("failed to mark appointment canceled, deleting record", "db_id", record.ID, logging.Err(err))
	if err := e.store.DeleteCalendarEvent(ctx, record.BusinessID, record.ID); err != nil {
		e.metrics.RecordPersistenceFailure(ctx, "cancel_calendar_event")
		logger.Error("failed to remove canceled appointment record", "db_id", record.ID, logging.Err(err))
	}
}

func isSimulated(record *store.CalendarEvent, externalID string) bool {
	if record != nil && record.Simulation {
		return true
	}
	return externalID == "" || strings.HasPrefix(externalID, SimulationPrefix) || strings.HasPrefix(externalID, mockPrefix)
}
