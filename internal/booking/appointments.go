package booking

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/teemow/agendabot/internal/logging"
)

// Appointment is an upcoming booking of a customer.
type Appointment struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	CreatedAt  time.Time `json:"created_at"`
	Simulation bool      `json:"simulation"`
}

// NormalizePhone removes whitespace and a leading "+".
func NormalizePhone(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, phone)
	return strings.TrimPrefix(cleaned, "+")
}

// FindCustomerAppointments lists the customer's non-canceled bookings that
// start after now, ordered by date and time.
func (e *Engine) FindCustomerAppointments(ctx context.Context, businessID, phone string) ([]Appointment, error) {
	phone = NormalizePhone(phone)
	if businessID == "" || phone == "" {
		return nil, ValidationError("missing_fields", "businessId and phoneNumber are required")
	}

	records, err := e.store.ListActiveCalendarEvents(ctx, businessID, phone)
	if err != nil {
		return nil, PersistenceError("read_failed", err, "failed to list appointments")
	}

	now := e.now().In(operatingLocation)
	today, clock := now.Format(dateLayout), now.Format("15:04")
	out := make([]Appointment, 0, len(records))
	for _, r := range records {
		if r.EventDate < today || (r.EventDate == today && r.EventTime <= clock) {
			continue
		}
		out = append(out, Appointment{
			ID:         r.ID,
			EventID:    r.EventID,
			Date:       r.EventDate,
			Time:       r.EventTime,
			CreatedAt:  r.CreatedAt,
			Simulation: r.Simulation,
		})
	}
	logging.WithBusiness(e.logger, businessID).Debug("customer appointments listed",
		logging.PhoneHash(phone), "count", len(out))
	return out, nil
}
