package schedule

import (
	"fmt"
	"time"

	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/pkg/errors"
)

var fullDayNames = map[string]string{
	"sat": "Saturday",
	"sun": "Sunday",
	"mon": "Monday",
	"tue": "Tuesday",
	"wed": "Wednesday",
	"thu": "Thursday",
	"fri": "Friday",
}

// CheckWorkingHours decides whether an instant lies inside the clinic's
// configured hours. The local date and weekday are derived from the instant
// in the clinic's timezone, so exception and weekly lookups stay correct
// even when the instant's UTC date differs from its local date. Returns nil
// when valid, or an out-of-hours error carrying a user-facing reason.
func CheckWorkingHours(clinic *model.Clinic, instant time.Time) error {
	loc, err := Location(clinic.Timezone)
	if err != nil {
		return err
	}

	wc := WallClockFromInstant(instant, loc)

	if ex, ok := clinic.Exceptions.For(wc.Date); ok {
		if ex.Type == model.ExceptionClosed {
			return errors.OutOfHours("Clinic is closed on this date")
		}
		if !withinWindow(wc.Time, ex.From, ex.To) {
			return errors.OutOfHours("Slot is outside custom working hours for this date")
		}
		return nil
	}

	dayName := fullDayNames[wc.Weekday]
	hours, ok := clinic.Weekly.For(wc.Weekday)
	if !ok || !hours.Enabled {
		return errors.OutOfHours(fmt.Sprintf("Clinic is closed on %s", dayName))
	}

	if !withinWindow(wc.Time, hours.From, hours.To) {
		return errors.OutOfHours(fmt.Sprintf(
			"working hours on %s from %s to %s only",
			dayName, Format12Hour(hours.From), Format12Hour(hours.To),
		))
	}
	return nil
}

// withinWindow compares zero-padded HH:MM strings over a half-open window.
// A window whose start exceeds its end spans local midnight: the time is
// valid after the start or before the end.
func withinWindow(t, from, to string) bool {
	if from > to {
		return t >= from || t < to
	}
	return t >= from && t < to
}
