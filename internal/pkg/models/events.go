package models

import "time"

type EventKind int

const (
	SectionUpdated EventKind = iota + 1
	SectionAdded
	SessionError
)

func (k EventKind) String() string {
	switch k {
	case SectionUpdated:
		return "section_updated"
	case SectionAdded:
		return "section_added"
	case SessionError:
		return "error"
	default:
		return "unknown"
	}
}

// ChangeEvent is produced by the diff for a single section.
type ChangeEvent struct {
	Kind    EventKind
	Course  Course
	Section Section
}

// Notification is what gets handed to a notifier. Section is set for change
// events, Err for SessionError.
type Notification struct {
	Kind    EventKind
	Course  Course
	Section *Section
	Err     error
	At      time.Time
}

func NotificationFromEvent(ev ChangeEvent, at time.Time) Notification {
	sec := ev.Section
	return Notification{Kind: ev.Kind, Course: ev.Course, Section: &sec, At: at}
}

func ErrorNotification(course Course, err error, at time.Time) Notification {
	return Notification{Kind: SessionError, Course: course, Err: err, At: at}
}
