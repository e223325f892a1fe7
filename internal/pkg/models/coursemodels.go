package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidCourse    = errors.New("invalid course identifier")
	ErrMalformedSection = errors.New("malformed section")
)

var courseRegex = regexp.MustCompile(`^([A-Za-z]+)\s*([0-9]+)$`)

// Course identifies a watched course, e.g. CS 1332.
type Course struct {
	Subject string `json:"subject" bson:"subject"`
	Number  string `json:"number" bson:"number"`
}

// ParseCourse accepts "CS1332" or "CS 1332". The subject is upper-cased,
// the number is kept as written.
func ParseCourse(raw string) (Course, error) {
	m := courseRegex.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Course{}, fmt.Errorf("%w: %q", ErrInvalidCourse, raw)
	}
	return Course{Subject: strings.ToUpper(m[1]), Number: m[2]}, nil
}

func (c Course) String() string {
	return c.Subject + c.Number
}

func (c Course) IsZero() bool {
	return c.Subject == "" && c.Number == ""
}

type MeetingTime struct {
	BeginTime           *string `json:"beginTime"`
	EndTime             *string `json:"endTime"`
	Building            string  `json:"building"`
	Room                string  `json:"room"`
	MeetingScheduleType string  `json:"meetingScheduleType"`
	Sunday              bool    `json:"sunday"`
	Monday              bool    `json:"monday"`
	Tuesday             bool    `json:"tuesday"`
	Wednesday           bool    `json:"wednesday"`
	Thursday            bool    `json:"thursday"`
	Friday              bool    `json:"friday"`
	Saturday            bool    `json:"saturday"`
}

type MeetingFaculty struct {
	CourseReferenceNumber string      `json:"courseReferenceNumber"`
	MeetingTime           MeetingTime `json:"meetingTime"`
}

// Section is one offered section as returned by the registration search.
// The four seat counters are pointers so a payload missing them can be told
// apart from a legitimate zero.
type Section struct {
	CourseReferenceNumber   string           `json:"courseReferenceNumber"`
	Term                    string           `json:"term"`
	Subject                 string           `json:"subject"`
	CourseNumber            string           `json:"courseNumber"`
	SubjectCourse           string           `json:"subjectCourse"`
	SequenceNumber          string           `json:"sequenceNumber"`
	CourseTitle             string           `json:"courseTitle"`
	CreditHours             *float64         `json:"creditHours"`
	CreditHourLow           *float64         `json:"creditHourLow"`
	ScheduleTypeDescription string           `json:"scheduleTypeDescription"`
	Enrollment              *int             `json:"enrollment"`
	MaximumEnrollment       *int             `json:"maximumEnrollment"`
	SeatsAvailable          *int             `json:"seatsAvailable"`
	WaitCount               *int             `json:"waitCount"`
	WaitCapacity            *int             `json:"waitCapacity"`
	WaitAvailable           *int             `json:"waitAvailable"`
	MeetingsFaculty         []MeetingFaculty `json:"meetingsFaculty"`
}

// Validate checks the fields the diff relies on.
func (s Section) Validate() error {
	if strings.TrimSpace(s.CourseReferenceNumber) == "" {
		return fmt.Errorf("%w: missing courseReferenceNumber", ErrMalformedSection)
	}
	counters := []struct {
		name string
		v    *int
	}{
		{"enrollment", s.Enrollment},
		{"maximumEnrollment", s.MaximumEnrollment},
		{"waitCount", s.WaitCount},
		{"waitCapacity", s.WaitCapacity},
	}
	for _, c := range counters {
		if c.v == nil {
			return fmt.Errorf("%w: crn %s missing %s", ErrMalformedSection, s.CourseReferenceNumber, c.name)
		}
		if *c.v < 0 {
			return fmt.Errorf("%w: crn %s has negative %s", ErrMalformedSection, s.CourseReferenceNumber, c.name)
		}
	}
	return nil
}

func (s Section) EnrollmentCount() int        { return deref(s.Enrollment) }
func (s Section) MaximumEnrollmentCount() int { return deref(s.MaximumEnrollment) }
func (s Section) WaitCountValue() int         { return deref(s.WaitCount) }
func (s Section) WaitCapacityValue() int      { return deref(s.WaitCapacity) }

// Credits prefers creditHours and falls back to creditHourLow, which is what
// Banner fills in for variable credit sections.
func (s Section) Credits() float64 {
	if s.CreditHours != nil {
		return *s.CreditHours
	}
	if s.CreditHourLow != nil {
		return *s.CreditHourLow
	}
	return 0
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// SearchResponse is the envelope of searchResults/searchResults.
type SearchResponse struct {
	Success              bool      `json:"success"`
	TotalCount           int       `json:"totalCount"`
	PageOffset           int       `json:"pageOffset"`
	PageMaxSize          int       `json:"pageMaxSize"`
	SectionsFetchedCount int       `json:"sectionsFetchedCount"`
	Data                 []Section `json:"data"`
}
