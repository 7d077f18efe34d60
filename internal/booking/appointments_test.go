package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agendabot/internal/store"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5215550001234", NormalizePhone("+52 1 555 000 1234"))
	assert.Equal(t, "5215550001234", NormalizePhone("5215550001234"))
	assert.Equal(t, "", NormalizePhone("  "))
}

func TestFindCustomerAppointments(t *testing.T) {
	f := newFixture(t)
	phone := "5215550001234"
	// testNow is 2025-05-14 08:00.
	insertRecord(t, f, store.CalendarEvent{EventID: "past-day", CustomerPhone: phone, EventDate: "2025-05-13", EventTime: "10:00"})
	insertRecord(t, f, store.CalendarEvent{EventID: "earlier-today", CustomerPhone: phone, EventDate: "2025-05-14", EventTime: "07:00"})
	later := insertRecord(t, f, store.CalendarEvent{EventID: "later-today", CustomerPhone: phone, EventDate: "2025-05-14", EventTime: "09:00"})
	next := insertRecord(t, f, store.CalendarEvent{EventID: "sim-next-week", CustomerPhone: phone, EventDate: "2025-05-20", EventTime: "11:00", Simulation: true})
	canceled := insertRecord(t, f, store.CalendarEvent{EventID: "canceled", CustomerPhone: phone, EventDate: "2025-05-21", EventTime: "11:00"})
	insertRecord(t, f, store.CalendarEvent{EventID: "someone-else", CustomerPhone: "5215559999999", EventDate: "2025-05-20", EventTime: "11:00"})
	require.NoError(t, f.store.CancelCalendarEvent(context.Background(), testBusiness, canceled.ID, testNow))

	got, err := f.engine.FindCustomerAppointments(context.Background(), testBusiness, "+52 1 555 000 1234")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, later.ID, got[0].ID)
	assert.Equal(t, "later-today", got[0].EventID)
	assert.Equal(t, next.ID, got[1].ID)
	assert.True(t, got[1].Simulation)

	_, err = f.engine.FindCustomerAppointments(context.Background(), testBusiness, "")
	assert.Equal(t, KindValidation, KindOf(err))
}
