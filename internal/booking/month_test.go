package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agendabot/internal/store"
)

func TestMonthAvailability(t *testing.T) {
	f := newFixture(t)
	f.provider.addAllDay("2025-05-02", "2025-05-03")
	for i := 0; i < DaySaturationThreshold; i++ {
		f.provider.addEvent(at("2025-05-03", 9+i, 0), 30*time.Minute)
	}
	f.provider.addEvent(at("2025-05-04", 10, 0), time.Hour)

	view, err := f.engine.MonthAvailability(context.Background(), testBusiness, "2025-05-01", "2025-05-04")
	require.NoError(t, err)
	require.Len(t, view.Days, 4)
	assert.Equal(t, testBusiness, view.BusinessID)

	assert.Equal(t, "2025-05-01", view.Days[0].Date)
	assert.True(t, view.Days[0].Available)
	assert.Equal(t, "thursday", view.Days[0].DayOfWeek)
	assert.Empty(t, view.Days[0].Events)

	assert.False(t, view.Days[1].Available, "all-day event blocks the day")
	require.Len(t, view.Days[1].Events, 1)
	assert.True(t, view.Days[1].Events[0].IsAllDay)

	assert.False(t, view.Days[2].Available, "saturated day")
	assert.Len(t, view.Days[2].Events, DaySaturationThreshold)

	assert.True(t, view.Days[3].Available)
	require.Len(t, view.Days[3].Events, 1)
	assert.Equal(t, "2025-05-04T10:00:00-06:00", view.Days[3].Events[0].Start)
}

func TestMonthAvailabilityMultiDayAllDayEvent(t *testing.T) {
	f := newFixture(t)
	f.provider.addAllDay("2025-05-01", "2025-05-03")

	view, err := f.engine.MonthAvailability(context.Background(), testBusiness, "2025-05-01", "2025-05-03")
	require.NoError(t, err)
	assert.False(t, view.Days[0].Available)
	assert.False(t, view.Days[1].Available)
	assert.True(t, view.Days[2].Available)
}

func TestMonthAvailabilityRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.MonthAvailability(context.Background(), testBusiness, "2025-05-10", "2025-05-01")
	assert.Equal(t, "invalid_range", CodeOf(err))

	_, err = f.engine.MonthAvailability(context.Background(), testBusiness, "2025-05-01", "2025-07-15")
	assert.Equal(t, "range_too_long", CodeOf(err))
}

func TestMonthAvailabilityAuth(t *testing.T) {
	t.Run("missing refresh token flags reauth", func(t *testing.T) {
		f := newFixture(t)
		f.setConfig(t, func(c *store.BusinessConfig) { c.RefreshToken = "" })

		_, err := f.engine.MonthAvailability(context.Background(), testBusiness, "2025-05-01", "2025-05-31")
		var bookingErr *Error
		require.ErrorAs(t, err, &bookingErr)
		assert.True(t, bookingErr.AuthRequired())

		cfg, err := f.store.GetBusinessConfig(context.Background(), testBusiness)
		require.NoError(t, err)
		assert.True(t, cfg.NeedsReauth)
	})

	t.Run("invalid grant from provider flags reauth", func(t *testing.T) {
		f := newFixture(t)
		f.provider.listErr = errors.New(`oauth2: "invalid_grant" "Token has been expired or revoked."`)

		_, err := f.engine.MonthAvailability(context.Background(), testBusiness, "2025-05-01", "2025-05-31")
		var bookingErr *Error
		require.ErrorAs(t, err, &bookingErr)
		assert.Equal(t, CodeAuthRejected, bookingErr.Code)
		assert.True(t, bookingErr.AuthRequired())

		cfg, err := f.store.GetBusinessConfig(context.Background(), testBusiness)
		require.NoError(t, err)
		assert.True(t, cfg.NeedsReauth)

		// Flagged credentials are refused before the provider is called.
		calls := f.provider.listCalls
		_, err = f.engine.MonthAvailability(context.Background(), testBusiness, "2025-05-01", "2025-05-31")
		assert.Equal(t, CodeNeedsReauth, CodeOf(err))
		assert.Equal(t, calls, f.provider.listCalls)
	})
}
