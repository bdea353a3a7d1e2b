package helpbot

import (
	"strings"

	"classtrack/internal/users"
)

// Intent is a coarse bucket for what the user is asking about.
type Intent string

const (
	IntentGreeting   Intent = "greeting"
	IntentSubjects   Intent = "subjects"
	IntentEnroll     Intent = "enroll"
	IntentAttendance Intent = "attendance"
	IntentClasses    Intent = "classes"
	IntentOther      Intent = "other"
)

// DetectIntent picks an intent by keyword matching; first match wins.
func DetectIntent(text string) Intent {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case containsAny(t, "subject", "subjects"):
		return IntentSubjects
	case containsAny(t, "enroll", "enrolment", "enrollment", "sign up"):
		return IntentEnroll
	case containsAny(t, "attendance", "present", "absent", "late"):
		return IntentAttendance
	case containsAny(t, "class", "qr", "scan", "token"):
		return IntentClasses
	case containsAny(t, "hello", "hi", "hey"):
		return IntentGreeting
	default:
		return IntentOther
	}
}

// Reply returns a canned answer for the caller's role and intent.
func Reply(role users.Role, intent Intent) string {
	switch role {
	case users.RoleAdministrator:
		switch intent {
		case IntentGreeting:
			return "Hello! What do you need help with today?"
		case IntentSubjects:
			return "Manage subjects under Subjects: create, edit, delete and assign teachers."
		case IntentEnroll:
			return "To enroll students, open a subject and use the enroll action."
		case IntentClasses:
			return "Under Classes you can schedule sessions and generate check-in QR codes."
		case IntentAttendance:
			return "Full attendance reports live under Attendance Reports."
		}
		return "I can help with subjects, users, classes and attendance. What are you after?"

	case users.RoleTeacher:
		switch intent {
		case IntentGreeting:
			return "Hi! Ask me about your classes or attendance."
		case IntentSubjects:
			return "Your assigned subjects are listed under Classes."
		case IntentClasses:
			return "Under Classes you can schedule sessions, generate a QR code and take attendance."
		case IntentAttendance:
			return "The attendance view shows present, late and absent students per class."
		}
		return "Try asking about classes, QR codes, attendance or your subjects."

	case users.RoleStudent:
		switch intent {
		case IntentGreeting:
			return "Hi! Need help with your subjects or scanning the QR code?"
		case IntentSubjects:
			return "Your enrolled subjects are under Subjects; that is where you scan the QR code."
		case IntentClasses:
			return "To check in, open Scan QR and point at the code your teacher shows."
		case IntentAttendance:
			return "Attendance is recorded when you scan the QR; see History for your record."
		}
		return "I can help with subjects, attendance and QR scanning."
	}
	return "I can help with subjects, classes and attendance."
}

func containsAny(t string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}
