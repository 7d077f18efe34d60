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

func TestListCalendarEvents(t *testing.T) {
	f := newFixture(t)
	f.provider.addEvent(at("2025-05-14", 10, 0), time.Hour)
	f.provider.addEvent(at("2025-05-16", 12, 0), 30*time.Minute)
	f.provider.addAllDay("2025-05-20", "2025-05-21")
	ctx := context.Background()

	today, err := f.engine.ListCalendarEvents(ctx, testBusiness, "", "")
	require.NoError(t, err)
	require.Len(t, today, 1, "defaults to today")
	assert.Equal(t, "2025-05-14T10:00:00-06:00", today[0].Start)

	week, err := f.engine.ListCalendarEvents(ctx, testBusiness, "2025-05-14", "2025-05-20")
	require.NoError(t, err)
	require.Len(t, week, 3)
	assert.True(t, week[2].IsAllDay)
	assert.Equal(t, "2025-05-20", week[2].Start)
}

func TestListCalendarEventsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.ListCalendarEvents(ctx, "", "", "")
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.engine.ListCalendarEvents(ctx, testBusiness, "2025-05-10", "2025-05-01")
	assert.Equal(t, "invalid_range", CodeOf(err))

	_, err = f.engine.ListCalendarEvents(ctx, testBusiness, "2025-01-01", "2025-06-01")
	assert.Equal(t, "range_too_long", CodeOf(err))

	f.provider.listErr = errors.New("backend error")
	_, err = f.engine.ListCalendarEvents(ctx, testBusiness, "2025-05-14", "")
	assert.Equal(t, KindExternalProvider, KindOf(err))

	f.setConfig(t, func(c *store.BusinessConfig) { c.RefreshToken = "" })
	_, err = f.engine.ListCalendarEvents(ctx, testBusiness, "2025-05-14", "")
	assert.Equal(t, KindCredential, KindOf(err))
}
