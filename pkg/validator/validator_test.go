package validator

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinexa/booking-api/internal/model"
)

func init() {
	if err := RegisterCustom(); err != nil {
		panic(err)
	}
}

func validRequest() *model.UpdateScheduleRequest {
	return &model.UpdateScheduleRequest{
		Timezone:            "Africa/Cairo",
		SlotDurationMinutes: 30,
		Weekly:              model.DefaultWeeklySchedule(),
	}
}

func TestScheduleRequestBinding(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.UpdateScheduleRequest)
		wantErr bool
	}{
		{
			name:   "valid request passes",
			mutate: func(r *model.UpdateScheduleRequest) {},
		},
		{
			name: "valid exception passes",
			mutate: func(r *model.UpdateScheduleRequest) {
				r.Exceptions = model.ScheduleExceptions{
					{Date: "2026-02-01", Type: model.ExceptionCustom, From: "10:00", To: "14:00"},
				}
			},
		},
		{
			name:    "unknown timezone",
			mutate:  func(r *model.UpdateScheduleRequest) { r.Timezone = "Mars/Olympus_Mons" },
			wantErr: true,
		},
		{
			name:    "unpadded weekly time",
			mutate:  func(r *model.UpdateScheduleRequest) { r.Weekly[0].From = "9:00" },
			wantErr: true,
		},
		{
			name:    "out of range weekly time",
			mutate:  func(r *model.UpdateScheduleRequest) { r.Weekly[0].To = "24:00" },
			wantErr: true,
		},
		{
			name:    "unknown weekday code",
			mutate:  func(r *model.UpdateScheduleRequest) { r.Weekly[0].Day = "monday" },
			wantErr: true,
		},
		{
			name: "malformed exception date",
			mutate: func(r *model.UpdateScheduleRequest) {
				r.Exceptions = model.ScheduleExceptions{{Date: "01-02-2026", Type: model.ExceptionClosed}}
			},
			wantErr: true,
		},
		{
			name: "unknown exception type",
			mutate: func(r *model.UpdateScheduleRequest) {
				r.Exceptions = model.ScheduleExceptions{{Date: "2026-02-01", Type: "holiday"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := binding.Validator.ValidateStruct(req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAppointmentRequestBinding(t *testing.T) {
	good := &model.CreateAppointmentRequest{Date: "2026-01-12", Time: "10:00"}
	require.NoError(t, binding.Validator.ValidateStruct(good))

	badTime := &model.CreateAppointmentRequest{Date: "2026-01-12", Time: "10:5"}
	assert.Error(t, binding.Validator.ValidateStruct(badTime))

	badDate := &model.RescheduleAppointmentRequest{Date: "12/01/2026", Time: "10:00"}
	assert.Error(t, binding.Validator.ValidateStruct(badDate))
}
