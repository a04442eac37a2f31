package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/pkg/errors"
)

// Layouts for the wall-clock string formats used across the schedule.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

const minutesPerDay = 24 * 60

var weekdayCodes = map[time.Weekday]string{
	time.Sunday:    "sun",
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
}

// WallClock is the local calendar representation of an instant in a clinic's
// timezone.
type WallClock struct {
	Date    string
	Time    string
	Weekday string
}

// Location resolves an IANA timezone identifier, falling back to the default
// clinic timezone when empty. An unknown identifier is a validation error;
// it should be rejected when the schedule is configured, not at booking time.
func Location(tz string) (*time.Location, error) {
	if tz == "" {
		tz = model.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.ValidationWrap(fmt.Sprintf("unknown timezone %q", tz), err)
	}
	return loc, nil
}

// InstantFromWallClock resolves a clinic-local (date, HH:MM) pair to the
// absolute instant whose local representation in loc matches it. Resolution
// goes through the zone's actual rules for that date, so the offset in
// effect on the target day is applied, never a fixed one.
func InstantFromWallClock(date, hhmm string, loc *time.Location) (time.Time, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, errors.Validation("date must be in YYYY-MM-DD format")
	}
	mins, err := MinutesOfDay(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	local := time.Date(day.Year(), day.Month(), day.Day(), mins/60, mins%60, 0, 0, loc)
	return local.UTC(), nil
}

// WallClockFromInstant converts an absolute instant to the clinic-local wall
// clock. The weekday is derived from the local date, which can differ from
// the instant's UTC date.
func WallClockFromInstant(t time.Time, loc *time.Location) WallClock {
	local := t.In(loc)
	return WallClock{
		Date:    local.Format(DateLayout),
		Time:    local.Format(TimeLayout),
		Weekday: weekdayCodes[local.Weekday()],
	}
}

// WeekdayCode returns the 3-letter lowercase code for a weekday.
func WeekdayCode(d time.Weekday) string {
	return weekdayCodes[d]
}

// MinutesOfDay parses a zero-padded "HH:MM" string into minutes since local
// midnight.
func MinutesOfDay(hhmm string) (int, error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, errors.Validation(fmt.Sprintf("time %q must be in HH:MM format", hhmm))
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, errors.Validation(fmt.Sprintf("time %q has an invalid hour", hhmm))
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, errors.Validation(fmt.Sprintf("time %q has an invalid minute", hhmm))
	}
	return h*60 + m, nil
}

// FormatMinutes renders minutes since midnight as "HH:MM". The argument must
// already be normalized into [0, 1440).
func FormatMinutes(mins int) string {
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// Format12Hour renders "HH:MM" in 12-hour clock form for user-facing
// messages, e.g. "09:00" -> "09:00 am".
func Format12Hour(hhmm string) string {
	mins, err := MinutesOfDay(hhmm)
	if err != nil {
		return hhmm
	}
	h := mins / 60
	ampm := "am"
	if h >= 12 {
		ampm = "pm"
	}
	h = h % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h, mins%60, ampm)
}
