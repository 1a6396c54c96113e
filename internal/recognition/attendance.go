package recognition

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/registry"
)

// Attendance is the payload of the dashboard "attendance" event.
type Attendance struct {
	RollNumber string `json:"rollNumber"`
	Name       string `json:"name"`
	Date       string `json:"date"` // local time, YYYY-MM-DDTHH:MM:SS
}

// NewAttendance builds the event for identity observed at t.
func NewAttendance(identity registry.Identity, t time.Time) Attendance {
	return Attendance{
		RollNumber: identity.ExternalReference,
		Name:       identity.DisplayName,
		Date:       t.Local().Format(constants.AttendanceDateLayout),
	}
}
