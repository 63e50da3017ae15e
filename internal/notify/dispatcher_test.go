package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	staffrepo "github.com/verawork/vera-backend/internal/staff/repository"
)

func berlinTime(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, berlin)
}

func quietEmployee(start, end string) *staffrepo.Employee {
	return &staffrepo.Employee{
		FirstName:       "Anna",
		QuietHoursStart: start,
		QuietHoursEnd:   end,
	}
}

func TestInQuietHours_WrapAroundWindow(t *testing.T) {
	e := quietEmployee("21:00:00", "07:00:00")

	tests := []struct {
		hour, minute int
		want         bool
	}{
		{20, 59, false},
		{21, 0, true},
		{23, 30, true},
		{2, 0, true},
		{7, 0, true},
		{7, 1, false},
		{12, 0, false},
	}

	for _, tt := range tests {
		got := inQuietHours(e, berlinTime(tt.hour, tt.minute))
		assert.Equal(t, tt.want, got, "%02d:%02d", tt.hour, tt.minute)
	}
}

func TestInQuietHours_DaytimeWindow(t *testing.T) {
	e := quietEmployee("12:00:00", "14:00:00")

	assert.False(t, inQuietHours(e, berlinTime(11, 59)))
	assert.True(t, inQuietHours(e, berlinTime(12, 0)))
	assert.True(t, inQuietHours(e, berlinTime(13, 0)))
	assert.True(t, inQuietHours(e, berlinTime(14, 0)))
	assert.False(t, inQuietHours(e, berlinTime(14, 1)))
}

func TestInQuietHours_DefaultsOnMalformedTimes(t *testing.T) {
	e := quietEmployee("", "bad")

	// Falls back to 21:00-07:00.
	assert.True(t, inQuietHours(e, berlinTime(22, 0)))
	assert.False(t, inQuietHours(e, berlinTime(12, 0)))
}

func TestParsePrefs_Defaults(t *testing.T) {
	p := parsePrefs(nil)

	assert.True(t, p.channelEnabled(ChannelEmail))
	assert.False(t, p.channelEnabled(ChannelTelegram))
	assert.False(t, p.channelEnabled(ChannelPush))
	assert.True(t, p.eventEnabled(EventShiftAssigned))
	assert.True(t, p.eventEnabled(EventShiftReminder))
}

func TestParsePrefs_ExplicitSettings(t *testing.T) {
	raw := json.RawMessage(`{
		"channels": {"email": false, "telegram": true},
		"events": {"shift_reminder": false}
	}`)
	p := parsePrefs(raw)

	assert.False(t, p.channelEnabled(ChannelEmail))
	assert.True(t, p.channelEnabled(ChannelTelegram))
	assert.False(t, p.channelEnabled(ChannelPush))
	assert.False(t, p.eventEnabled(EventShiftReminder))
	assert.True(t, p.eventEnabled(EventShiftChanged))
}

func TestClockMinutes(t *testing.T) {
	assert.Equal(t, 21*60, clockMinutes("21:00:00", 0))
	assert.Equal(t, 7*60+30, clockMinutes("07:30", 0))
	assert.Equal(t, 99, clockMinutes("", 99))
	assert.Equal(t, 99, clockMinutes("25:00", 99))
}
