package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckinsRecorded counts attendance records created, by method.
	CheckinsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_checkins_recorded_total",
		Help: "Attendance records created, labelled by check-in method.",
	}, []string{"method"})

	// CheckinsDuplicate counts idempotent repeat check-ins.
	CheckinsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_checkins_duplicate_total",
		Help: "Check-in attempts that matched an existing record.",
	})

	// TokensIssued counts attendance tokens handed to teachers.
	TokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_attendance_tokens_issued_total",
		Help: "Attendance tokens issued.",
	})

	// TokenRejections counts failed token verifications.
	TokenRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_attendance_token_rejections_total",
		Help: "Attendance tokens rejected as invalid or expired.",
	})
)
