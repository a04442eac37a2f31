package validator

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/clinexa/booking-api/internal/model"
)

// RegisterCustom installs the schedule-specific validations on gin's binding
// engine. Call once at startup, before routes are registered.
func RegisterCustom() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	if err := v.RegisterValidation("hhmm", validHHMM); err != nil {
		return err
	}
	if err := v.RegisterValidation("dateonly", validDateOnly); err != nil {
		return err
	}
	if err := v.RegisterValidation("weekdaycode", validWeekdayCode); err != nil {
		return err
	}
	if err := v.RegisterValidation("timezone_name", validTimezone); err != nil {
		return err
	}
	return nil
}

// validHHMM accepts zero-padded 24-hour "HH:MM" strings only.
func validHHMM(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

func validDateOnly(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.DateOnly, fl.Field().String())
	return err == nil
}

func validWeekdayCode(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, code := range model.WeekdayCodes {
		if s == code {
			return true
		}
	}
	return false
}

func validTimezone(fl validator.FieldLevel) bool {
	_, err := time.LoadLocation(fl.Field().String())
	return err == nil
}
