package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agendabot/internal/store"
)

const monday = "2025-05-19"

func slotTimes(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Time)
	}
	return out
}

func TestCheckAvailabilityMorningRange(t *testing.T) {
	f := newFixture(t)
	f.saveHours(t, store.WeeklyHours{"monday": {{Start: "09:00", End: "12:00"}}}, false, 1)

	got, err := f.engine.CheckAvailability(context.Background(), testBusiness, monday)
	require.NoError(t, err)

	// The 11:00 slot ends exactly at closing and is offered.
	assert.Equal(t, []string{"9:00", "10:00", "11:00"}, slotTimes(got.Slots))
	assert.Equal(t, "9:00 AM", got.Slots[0].Display)
	assert.Equal(t, "monday", got.DayOfWeek)
	assert.Equal(t, OperatingTimezone, got.Timezone)
	assert.Equal(t, "09:00 - 12:00", got.BusinessHours)
	assert.False(t, got.Closed)
}

func TestCheckAvailabilitySkipsPartialSlots(t *testing.T) {
	f := newFixture(t)
	f.saveHours(t, store.WeeklyHours{"monday": {
		{Start: "09:00", End: "11:30"},
		{Start: "14:00", End: "16:00"},
	}}, false, 1)

	got, err := f.engine.CheckAvailability(context.Background(), testBusiness, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"9:00", "10:00", "14:00", "15:00"}, slotTimes(got.Slots))
	assert.Equal(t, "2:00 PM", got.Slots[2].Display)
	assert.Equal(t, "09:00 - 11:30, 14:00 - 16:00", got.BusinessHours)
}

func TestCheckAvailabilityOverlapPolicy(t *testing.T) {
	tests := []struct {
		name     string
		allow    bool
		max      int
		existing int
		want     []string
	}{
		{"no overlap, one booking", false, 1, 1, []string{"9:00", "11:00"}},
		{"overlap below max", true, 2, 1, []string{"9:00", "10:00", "11:00"}},
		{"overlap at max", true, 2, 2, []string{"9:00", "11:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.saveHours(t, store.WeeklyHours{"monday": {{Start: "09:00", End: "12:00"}}}, tt.allow, tt.max)
			for i := 0; i < tt.existing; i++ {
				f.provider.addEvent(at(monday, 10, 0), time.Hour)
			}

			got, err := f.engine.CheckAvailability(context.Background(), testBusiness, monday)
			require.NoError(t, err)
			assert.Equal(t, tt.want, slotTimes(got.Slots))
		})
	}
}

func TestCheckAvailabilityBucketsByStartHour(t *testing.T) {
	f := newFixture(t)
	f.saveHours(t, store.WeeklyHours{"monday": {{Start: "09:00", End: "13:00"}}}, false, 1)

	// Occupies the 10:00 bucket.
	f.provider.addEvent(at(monday, 10, 30), 30*time.Minute)
	// No start hour, never bucketed.
	f.provider.addAllDay(monday, "2025-05-20")
	// Started the day before.
	f.provider.addEvent(at("2025-05-18", 23, 0), 11*time.Hour)

	got, err := f.engine.CheckAvailability(context.Background(), testBusiness, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"9:00", "11:00", "12:00"}, slotTimes(got.Slots))
}

func TestCheckAvailabilityClosedDay(t *testing.T) {
	f := newFixture(t)
	f.saveHours(t, weekdays(store.TimeRange{Start: "09:00", End: "18:00"}), false, 1)

	got, err := f.engine.CheckAvailability(context.Background(), testBusiness, "2025-05-18")
	require.NoError(t, err)
	assert.True(t, got.Closed)
	assert.Empty(t, got.Slots)
	assert.NotNil(t, got.Slots)
	assert.Contains(t, got.Message, "closed")
	assert.Equal(t, "sunday", got.DayOfWeek)
	assert.Zero(t, f.provider.listCalls, "closed days do not query the calendar")
}

func TestCheckAvailabilityFailures(t *testing.T) {
	t.Run("calendar disabled", func(t *testing.T) {
		f := newFixture(t)
		f.saveHours(t, weekdays(store.TimeRange{Start: "09:00", End: "18:00"}), false, 1)
		f.setConfig(t, func(c *store.BusinessConfig) { c.CalendarEnabled = false })

		_, err := f.engine.CheckAvailability(context.Background(), testBusiness, monday)
		assert.Equal(t, KindCredential, KindOf(err))
		assert.Equal(t, CodeCalendarDisabled, CodeOf(err))
	})

	t.Run("hours not configured", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.CheckAvailability(context.Background(), testBusiness, monday)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("bad date", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.CheckAvailability(context.Background(), testBusiness, "19/05/2025")
		assert.Equal(t, "invalid_date", CodeOf(err))
	})

	t.Run("placeholder oauth settings", func(t *testing.T) {
		f := newFixture(t, func(c *Config) { c.OAuth.ClientID = "YOUR_CLIENT_ID" })
		f.saveHours(t, weekdays(store.TimeRange{Start: "09:00", End: "18:00"}), false, 1)
		_, err := f.engine.CheckAvailability(context.Background(), testBusiness, monday)
		assert.Equal(t, KindConfiguration, KindOf(err))
	})
}
