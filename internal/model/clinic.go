package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Schedule configuration defaults and bounds.
const (
	DefaultTimezone     = "Africa/Cairo"
	DefaultSlotDuration = 30
	MinSlotDuration     = 10
	MaxSlotDuration     = 120
)

// Weekday codes used throughout the schedule, in clinic display order.
var WeekdayCodes = []string{"sat", "sun", "mon", "tue", "wed", "thu", "fri"}

// Schedule exception types.
const (
	ExceptionClosed = "closed"
	ExceptionCustom = "custom"
)

// WeeklyHours is one weekday entry of the recurring template. From/To are
// clinic-local "HH:MM". From numerically greater than To means the window
// wraps past local midnight (overnight shift).
type WeeklyHours struct {
	Day     string `json:"day" binding:"required,weekdaycode"`
	Enabled bool   `json:"enabled"`
	From    string `json:"from" binding:"omitempty,hhmm"`
	To      string `json:"to" binding:"omitempty,hhmm"`
}

// WeeklySchedule holds exactly one entry per weekday code. Stored as JSONB.
type WeeklySchedule []WeeklyHours

func (w WeeklySchedule) Value() (driver.Value, error) {
	return json.Marshal(w)
}

func (w *WeeklySchedule) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported weekly schedule type %T", src)
	}
	return json.Unmarshal(b, w)
}

// For returns the entry for a weekday code.
func (w WeeklySchedule) For(day string) (WeeklyHours, bool) {
	for _, h := range w {
		if h.Day == day {
			return h, true
		}
	}
	return WeeklyHours{}, false
}

// ScheduleException overrides the weekly template for one local calendar
// date ("YYYY-MM-DD"). From/To are set only for the custom type.
type ScheduleException struct {
	Date string `json:"date" binding:"required,dateonly"`
	Type string `json:"type" binding:"required,oneof=closed custom"`
	From string `json:"from,omitempty" binding:"omitempty,hhmm"`
	To   string `json:"to,omitempty" binding:"omitempty,hhmm"`
}

// ScheduleExceptions is keyed by date, at most one entry per date. Stored as JSONB.
type ScheduleExceptions []ScheduleException

func (e ScheduleExceptions) Value() (driver.Value, error) {
	if e == nil {
		e = ScheduleExceptions{}
	}
	return json.Marshal(e)
}

func (e *ScheduleExceptions) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported schedule exceptions type %T", src)
	}
	return json.Unmarshal(b, e)
}

// For returns the exception for a local date, if any.
func (e ScheduleExceptions) For(date string) (ScheduleException, bool) {
	for _, ex := range e {
		if ex.Date == date {
			return ex, true
		}
	}
	return ScheduleException{}, false
}

// DefaultWeeklySchedule mirrors the clinic's standard opening week:
// open sat-thu 09:00-17:00, closed fri.
func DefaultWeeklySchedule() WeeklySchedule {
	week := make(WeeklySchedule, 0, len(WeekdayCodes))
	for _, day := range WeekdayCodes {
		week = append(week, WeeklyHours{
			Day:     day,
			Enabled: day != "fri",
			From:    "09:00",
			To:      "17:00",
		})
	}
	return week
}

// Clinic holds one clinic's profile and its schedule configuration.
type Clinic struct {
	Base
	DoctorID            uuid.UUID          `json:"doctor_id" db:"doctor_id"`
	Name                string             `json:"name" db:"name"`
	Address             string             `json:"address" db:"address"`
	City                string             `json:"city" db:"city"`
	Phone               string             `json:"phone" db:"phone"`
	LocationLink        string             `json:"location_link" db:"location_link"`
	Timezone            string             `json:"timezone" db:"timezone"`
	SlotDurationMinutes int                `json:"slot_duration_minutes" db:"slot_duration_minutes"`
	Weekly              WeeklySchedule     `json:"weekly" db:"weekly"`
	Exceptions          ScheduleExceptions `json:"exceptions" db:"exceptions"`
}

type UpsertClinicRequest struct {
	Name         string `json:"name" binding:"required"`
	Address      string `json:"address" binding:"required"`
	City         string `json:"city"`
	Phone        string `json:"phone" binding:"required"`
	LocationLink string `json:"location_link"`
}

// ScheduleResponse is the schedule portion of a clinic, exposed without the
// profile fields.
type ScheduleResponse struct {
	Timezone            string             `json:"timezone"`
	SlotDurationMinutes int                `json:"slot_duration_minutes"`
	Weekly              WeeklySchedule     `json:"weekly"`
	Exceptions          ScheduleExceptions `json:"exceptions"`
}

type UpdateScheduleRequest struct {
	Timezone            string             `json:"timezone" binding:"omitempty,timezone_name"`
	SlotDurationMinutes int                `json:"slot_duration_minutes" binding:"required"`
	Weekly              WeeklySchedule     `json:"weekly" binding:"required,dive"`
	Exceptions          ScheduleExceptions `json:"exceptions" binding:"omitempty,dive"`
}
