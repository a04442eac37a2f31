package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/pkg/errors"
)

func cairoInstant(t *testing.T, date, hhmm string) time.Time {
	t.Helper()
	cairo, err := Location("Africa/Cairo")
	require.NoError(t, err)
	instant, err := InstantFromWallClock(date, hhmm, cairo)
	require.NoError(t, err)
	return instant
}

func TestCheckWorkingHours_InsideWindow(t *testing.T) {
	clinic := sundayMorningClinic()

	assert.NoError(t, CheckWorkingHours(clinic, cairoInstant(t, "2026-01-11", "09:00")))
	assert.NoError(t, CheckWorkingHours(clinic, cairoInstant(t, "2026-01-11", "10:30")))
}

func TestCheckWorkingHours_BeforeOpening(t *testing.T) {
	clinic := sundayMorningClinic()

	err := CheckWorkingHours(clinic, cairoInstant(t, "2026-01-11", "08:00"))
	require.Error(t, err)
	assert.True(t, errors.IsOutOfHours(err))
	assert.Contains(t, err.Error(), "Sunday")
	assert.Contains(t, err.Error(), "09:00 am")
	assert.Contains(t, err.Error(), "11:00 am")
}

func TestCheckWorkingHours_WindowEndIsExcluded(t *testing.T) {
	clinic := sundayMorningClinic()

	err := CheckWorkingHours(clinic, cairoInstant(t, "2026-01-11", "11:00"))
	assert.True(t, errors.IsOutOfHours(err))
}

func TestCheckWorkingHours_DisabledWeekday(t *testing.T) {
	clinic := sundayMorningClinic()

	// 2026-01-16 is a Friday.
	err := CheckWorkingHours(clinic, cairoInstant(t, "2026-01-16", "10:00"))
	require.Error(t, err)
	assert.True(t, errors.IsOutOfHours(err))
	assert.Contains(t, err.Error(), "Clinic is closed on Friday")
}

func TestCheckWorkingHours_ClosedException(t *testing.T) {
	clinic := sundayMorningClinic()
	clinic.Exceptions = model.ScheduleExceptions{
		{Date: "2026-01-11", Type: model.ExceptionClosed},
	}

	err := CheckWorkingHours(clinic, cairoInstant(t, "2026-01-11", "09:30"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed on this date")
}

func TestCheckWorkingHours_CustomException(t *testing.T) {
	clinic := sundayMorningClinic()
	clinic.Exceptions = model.ScheduleExceptions{
		{Date: "2026-01-11", Type: model.ExceptionCustom, From: "14:00", To: "16:00"},
	}

	assert.NoError(t, CheckWorkingHours(clinic, cairoInstant(t, "2026-01-11", "14:30")))

	// The weekly window no longer applies on the exception date.
	err := CheckWorkingHours(clinic, cairoInstant(t, "2026-01-11", "09:30"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom working hours")
}

func TestCheckWorkingHours_OvernightWindow(t *testing.T) {
	weekly := make(model.WeeklySchedule, 0, 7)
	for _, day := range model.WeekdayCodes {
		weekly = append(weekly, model.WeeklyHours{
			Day:     day,
			Enabled: true,
			From:    "22:00",
			To:      "02:00",
		})
	}
	clinic := &model.Clinic{
		Timezone:            "Africa/Cairo",
		SlotDurationMinutes: 30,
		Weekly:              weekly,
	}

	assert.NoError(t, CheckWorkingHours(clinic, cairoInstant(t, "2026-01-10", "23:00")))
	assert.NoError(t, CheckWorkingHours(clinic, cairoInstant(t, "2026-01-11", "01:30")))

	err := CheckWorkingHours(clinic, cairoInstant(t, "2026-01-11", "02:00"))
	assert.True(t, errors.IsOutOfHours(err), "window end is excluded")

	err = CheckWorkingHours(clinic, cairoInstant(t, "2026-01-11", "12:00"))
	assert.True(t, errors.IsOutOfHours(err))
}

func TestCheckWorkingHours_UsesLocalDateForLookup(t *testing.T) {
	// Saturday 23:30 UTC is Sunday 01:30 in Cairo; the validator must
	// consult Sunday's configuration, not Saturday's.
	weekly := make(model.WeeklySchedule, 0, 7)
	for _, day := range model.WeekdayCodes {
		weekly = append(weekly, model.WeeklyHours{
			Day:     day,
			Enabled: day == "sun",
			From:    "00:00",
			To:      "03:00",
		})
	}
	clinic := &model.Clinic{Timezone: "Africa/Cairo", SlotDurationMinutes: 30, Weekly: weekly}

	instant := time.Date(2026, 1, 10, 23, 30, 0, 0, time.UTC)
	assert.NoError(t, CheckWorkingHours(clinic, instant))
}
