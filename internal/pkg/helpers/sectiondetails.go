package helpers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/endeavored/sectionwatch/internal/pkg/models"
)

// Description renders "**CS1332** - Data Structures (3 Credits)".
func Description(sec models.Section) string {
	credits := sec.Credits()
	plural := ""
	if credits > 1 {
		plural = "s"
	}
	return fmt.Sprintf("**%s** - %s (%s Credit%s)", sec.SubjectCourse, sec.CourseTitle, strconv.FormatFloat(credits, 'f', -1, 64), plural)
}

// MeetingDays lists the days of the first meeting, e.g. "Tuesday & Thursday".
func MeetingDays(sec models.Section) string {
	if len(sec.MeetingsFaculty) == 0 {
		return "TBA"
	}
	mt := sec.MeetingsFaculty[0].MeetingTime
	days := []struct {
		name string
		on   bool
	}{
		{"Sunday", mt.Sunday},
		{"Monday", mt.Monday},
		{"Tuesday", mt.Tuesday},
		{"Wednesday", mt.Wednesday},
		{"Thursday", mt.Thursday},
		{"Friday", mt.Friday},
		{"Saturday", mt.Saturday},
	}
	var out []string
	for _, d := range days {
		if d.on {
			out = append(out, d.name)
		}
	}
	if len(out) == 0 {
		return "TBA"
	}
	return strings.Join(out, " & ")
}

// MeetingTimeRange renders "09:30 AM - 10:45 AM" from Banner's HHMM fields.
func MeetingTimeRange(sec models.Section) string {
	if len(sec.MeetingsFaculty) == 0 {
		return "TBA"
	}
	mt := sec.MeetingsFaculty[0].MeetingTime
	begin, ok1 := clock(mt.BeginTime)
	end, ok2 := clock(mt.EndTime)
	if !ok1 || !ok2 {
		return "TBA"
	}
	return begin + " - " + end
}

func clock(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	t, err := time.Parse("1504", strings.TrimSpace(*v))
	if err != nil {
		return "", false
	}
	return t.Format("03:04 PM"), true
}

func MeetingSummary(sec models.Section) string {
	return MeetingDays(sec) + "\n" + MeetingTimeRange(sec)
}

// Status renders seat counts, plus waitlist counts when the section has a
// waitlist at all.
func Status(sec models.Section) string {
	status := fmt.Sprintf("%d/%d Seats", sec.EnrollmentCount(), sec.MaximumEnrollmentCount())
	if sec.WaitCapacityValue() > 0 {
		status += fmt.Sprintf("\n%d/%d Waitlist Seats", sec.WaitCountValue(), sec.WaitCapacityValue())
	}
	return status
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
