package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"9:30", 570, false},
		{"14", 840, false},
		{"18:00:00", 1080, false},
		{"24:00", 1440, false},
		{"24:30", 0, true},
		{"9:60", 0, true},
		{"", 0, true},
		{"nine", 0, true},
		{"10:00 AM", 0, true},
		{"1:2:3:4", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindValidation, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDateUsesOperatingZone(t *testing.T) {
	d, err := ParseDate("2025-05-15")
	require.NoError(t, err)
	assert.Equal(t, OperatingTimezone, d.Location().String())
	assert.Equal(t, 0, d.Hour())
	assert.Equal(t, "thursday", WeekdayName(d))

	// 03:00 UTC on Friday is still Thursday evening in the operating zone.
	assert.Equal(t, "thursday", WeekdayName(time.Date(2025, 5, 16, 3, 0, 0, 0, time.UTC)))

	_, err = ParseDate("15/05/2025")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestClockFormatting(t *testing.T) {
	assert.Equal(t, "9:00", slotKey(540))
	assert.Equal(t, "14:30", slotKey(870))
	assert.Equal(t, "09:00", formatClock(540))
	assert.Equal(t, "9:00 AM", displayClock(540))
	assert.Equal(t, "12:00 PM", displayClock(720))
	assert.Equal(t, "2:00 PM", displayClock(840))
	assert.Equal(t, "12:00 AM", displayClock(0))
}
