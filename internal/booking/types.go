package booking

import (
	"context"
	"errors"
	"strings"

	"github.com/teemow/agendabot/internal/logging"
	"github.com/teemow/agendabot/internal/store"
)

// Appointment type duration bounds, in minutes.
const (
	MinAppointmentDuration = 5
	MaxAppointmentDuration = 480
)

// DurationSource names the rule that chose a booking's duration.
type DurationSource string

const (
	DurationFromTypeID DurationSource = "appointment_type_id"
	DurationFromTitle  DurationSource = "title_match"
	DurationFirstType  DurationSource = "first_configured"
	DurationDefault    DurationSource = "default"
)

// resolvedDuration is the outcome of duration resolution.
type resolvedDuration struct {
	Minutes int
	Type    *store.AppointmentType
	Source  DurationSource
}

// matchScore rates how well a booking title names an appointment type:
// 3 for an exact case-insensitive match, 2 when the type name contains the
// title, 1 when the title contains the type name, 0 otherwise.
func matchScore(typeName, title string) int {
	name := strings.ToLower(strings.TrimSpace(typeName))
	t := strings.ToLower(strings.TrimSpace(title))
	switch {
	case name == "" || t == "":
		return 0
	case name == t:
		return 3
	case strings.Contains(name, t):
		return 2
	case strings.Contains(t, name):
		return 1
	}
	return 0
}

// resolveDuration picks the booking duration: by type id, then by best
// title match (earliest configured type wins ties), then the first
// configured type, then DefaultAppointmentDuration. types must be in
// configured order.
func resolveDuration(types []store.AppointmentType, typeID, title string) resolvedDuration {
	pick := func(t store.AppointmentType, source DurationSource) resolvedDuration {
		minutes := t.Duration
		if minutes <= 0 {
			minutes = DefaultAppointmentDuration
		}
		return resolvedDuration{Minutes: minutes, Type: &t, Source: source}
	}

	if typeID != "" {
		for _, t := range types {
			if t.ID == typeID {
				return pick(t, DurationFromTypeID)
			}
		}
	}

	best, bestScore := -1, 0
	for i, t := range types {
		if s := matchScore(t.Name, title); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best >= 0 {
		return pick(types[best], DurationFromTitle)
	}

	if len(types) > 0 {
		return pick(types[0], DurationFirstType)
	}
	return resolvedDuration{Minutes: DefaultAppointmentDuration, Source: DurationDefault}
}

// ListAppointmentTypes returns the business's types in configured order.
func (e *Engine) ListAppointmentTypes(ctx context.Context, businessID string) ([]store.AppointmentType, error) {
	if businessID == "" {
		return nil, ValidationError("missing_business_id", "businessId is required")
	}
	types, err := e.store.ListAppointmentTypes(ctx, businessID)
	if err != nil {
		return nil, PersistenceError("read_failed", err, "failed to list appointment types")
	}
	return types, nil
}

// SaveAppointmentType creates a type, or updates it when t.ID is set.
func (e *Engine) SaveAppointmentType(ctx context.Context, t store.AppointmentType) (*store.AppointmentType, error) {
	t.Name = strings.TrimSpace(t.Name)
	switch {
	case t.BusinessID == "":
		return nil, ValidationError("missing_business_id", "businessId is required")
	case t.Name == "":
		return nil, ValidationError("missing_name", "appointment type name is required")
	case t.Duration < MinAppointmentDuration || t.Duration > MaxAppointmentDuration:
		return nil, ValidationError("invalid_duration", "duration must be between %d and %d minutes",
			MinAppointmentDuration, MaxAppointmentDuration)
	}
	if t.ID != "" {
		if _, err := e.store.GetAppointmentType(ctx, t.BusinessID, t.ID); errors.Is(err, store.ErrNotFound) {
			return nil, NotFoundError("appointment_type_not_found", "appointment type %s not found", t.ID)
		} else if err != nil {
			return nil, PersistenceError("read_failed", err, "failed to load appointment type")
		}
	}
	saved, err := e.store.SaveAppointmentType(ctx, t)
	if err != nil {
		return nil, PersistenceError("write_failed", err, "failed to save appointment type")
	}
	e.logger.Info("appointment type saved", logging.Business(t.BusinessID), "type_id", saved.ID)
	return saved, nil
}

// DeleteAppointmentType removes a type.
func (e *Engine) DeleteAppointmentType(ctx context.Context, businessID, id string) error {
	if businessID == "" || id == "" {
		return ValidationError("missing_fields", "businessId and appointmentTypeId are required")
	}
	err := e.store.DeleteAppointmentType(ctx, businessID, id)
	if errors.Is(err, store.ErrNotFound) {
		return NotFoundError("appointment_type_not_found", "appointment type %s not found", id)
	}
	if err != nil {
		return PersistenceError("write_failed", err, "failed to delete appointment type")
	}
	return nil
}
