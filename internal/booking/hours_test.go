package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agendabot/internal/store"
)

func TestBusinessHoursReadAfterWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.GetBusinessHours(ctx, testBusiness)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, CodeHoursNotConfigured, CodeOf(err))

	hours := store.WeeklyHours{
		"Monday":  {{Start: "9:00", End: "12:00"}, {Start: "14:00", End: "18:00"}},
		"tuesday": {{Start: "10:00", End: "16:00"}},
	}
	saved, err := f.engine.SaveBusinessHours(ctx, testBusiness, hours, true, 3)
	require.NoError(t, err)

	got, err := f.engine.GetBusinessHours(ctx, testBusiness)
	require.NoError(t, err)
	assert.Equal(t, saved.Hours, got.Hours)
	assert.Equal(t, []store.TimeRange{{Start: "09:00", End: "12:00"}, {Start: "14:00", End: "18:00"}}, got.Hours["monday"])
	assert.True(t, got.AllowOverlapping)
	assert.Equal(t, 3, got.MaxOverlapping)
}

func TestSaveBusinessHoursForcesSingleBookingWithoutOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.engine.SaveBusinessHours(ctx, testBusiness, weekdays(store.TimeRange{Start: "09:00", End: "18:00"}), false, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.MaxOverlapping)

	got, err := f.engine.GetBusinessHours(ctx, testBusiness)
	require.NoError(t, err)
	assert.False(t, got.AllowOverlapping)
	assert.Equal(t, 1, got.MaxOverlapping)
}

func TestSaveBusinessHoursValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		hours store.WeeklyHours
		allow bool
		max   int
		code  string
	}{
		{"unknown weekday", store.WeeklyHours{"someday": {{Start: "09:00", End: "10:00"}}}, false, 1, "invalid_weekday"},
		{"end before start", store.WeeklyHours{"monday": {{Start: "12:00", End: "09:00"}}}, false, 1, "invalid_range"},
		{"bad clock", store.WeeklyHours{"monday": {{Start: "9am", End: "10:00"}}}, false, 1, "invalid_time"},
		{"zero max with overlap", store.WeeklyHours{}, true, 0, "invalid_max_overlapping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.SaveBusinessHours(ctx, testBusiness, tt.hours, tt.allow, tt.max)
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}

	_, err := f.engine.GetBusinessHours(ctx, testBusiness)
	assert.Equal(t, KindNotFound, KindOf(err), "invalid input must not be stored")
}
