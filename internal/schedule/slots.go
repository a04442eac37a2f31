package schedule

import (
	"time"

	"github.com/clinexa/booking-api/internal/model"
)

// GenerateSlots produces the ordered sequence of bookable instants for one
// local calendar date. A dated exception takes precedence over the weekly
// template; a disabled weekday or a closed exception yields no slots. The
// window boundary is half-open: a slot starting exactly at the closing time
// is excluded. Windows whose end does not exceed their start wrap past local
// midnight into the next calendar day.
func GenerateSlots(clinic *model.Clinic, date string) ([]time.Time, error) {
	loc, err := Location(clinic.Timezone)
	if err != nil {
		return nil, err
	}

	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, err
	}

	var from, to string
	if ex, ok := clinic.Exceptions.For(date); ok {
		if ex.Type == model.ExceptionClosed {
			return nil, nil
		}
		from, to = ex.From, ex.To
	} else {
		hours, ok := clinic.Weekly.For(WeekdayCode(day.Weekday()))
		if !ok || !hours.Enabled {
			return nil, nil
		}
		from, to = hours.From, hours.To
	}

	startMins, err := MinutesOfDay(from)
	if err != nil {
		return nil, err
	}
	endMins, err := MinutesOfDay(to)
	if err != nil {
		return nil, err
	}
	if endMins <= startMins {
		endMins += minutesPerDay
	}

	step := clinic.SlotDurationMinutes
	if step <= 0 {
		step = model.DefaultSlotDuration
	}

	var slots []time.Time
	for mins := startMins; mins < endMins; mins += step {
		slotDay := day
		timeMins := mins
		if timeMins >= minutesPerDay {
			slotDay = day.AddDate(0, 0, 1)
			timeMins -= minutesPerDay
		}

		instant, err := InstantFromWallClock(slotDay.Format(DateLayout), FormatMinutes(timeMins), loc)
		if err != nil {
			return nil, err
		}
		slots = append(slots, instant)
	}
	return slots, nil
}
