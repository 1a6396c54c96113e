// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Enrollment constants
const (
	// SampleQuota is the number of face samples captured per identity during enrollment
	SampleQuota = 20

	// SampleSize is the width and height of every stored face sample in pixels
	SampleSize = 150
)

// Recognition constants
const (
	// DefaultDistanceThreshold is the exclusive upper bound on classifier distance for a match.
	// Lower values = stricter matching
	DefaultDistanceThreshold = 70.0

	// DefaultSessionDuration is how long a recognition session scans before finishing
	DefaultSessionDuration = 10 * time.Second

	// AttendanceEvent is the event name emitted to the dashboard for a recognized person
	AttendanceEvent = "attendance"

	// AttendanceDateLayout is the local timestamp layout of AttendanceRecord.date
	AttendanceDateLayout = "2006-01-02T15:04:05"
)

// Storage constants
const (
	// UnknownBucket is the sample store bucket reserved for unknown face captures.
	// It is never enumerated for training.
	UnknownBucket = "unknown"

	// SampleExt is the file extension of stored samples
	SampleExt = ".jpg"

	// SampleJPEGQuality is the JPEG quality used for stored samples
	SampleJPEGQuality = 95

	DefaultDataDir      = "data"
	DefaultRegistryPath = "persons.csv"
	DefaultModelPath    = "model.yml"
)

// Dashboard constants
const (
	DefaultDashboardURL = "http://localhost:5000"

	// DefaultConnectTimeout bounds the initial dashboard connection attempt
	DefaultConnectTimeout = 5 * time.Second
)
