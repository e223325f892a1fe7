package jobs

import (
	"github.com/endeavored/sectionwatch/internal/pkg/models"
)

// DiffSections compares the stored snapshot of a course against a fresh fetch.
//
// A nil before means the course has never been observed: no events, and the
// fetch becomes the baseline. Otherwise two checks run in order:
//
//  1. every CRN present in both is reported as SectionUpdated when a seat or
//     waitlist slot opened up, or capacity was raised;
//  2. if the section count differs, every CRN new in after is reported as
//     SectionAdded.
//
// Removed sections are never reported. The baseline advances to after only
// when at least one event fired; otherwise before is returned unchanged.
func DiffSections(course models.Course, before, after *models.Snapshot) ([]models.ChangeEvent, *models.Snapshot) {
	if before == nil {
		return nil, after
	}

	var events []models.ChangeEvent
	for _, sec := range after.Sections() {
		prev, ok := before.Get(sec.CourseReferenceNumber)
		if !ok {
			continue
		}
		if seatsOpened(prev, sec) {
			events = append(events, models.ChangeEvent{Kind: models.SectionUpdated, Course: course, Section: sec})
		}
	}

	if after.Len() != before.Len() {
		for _, sec := range after.Sections() {
			if !before.Has(sec.CourseReferenceNumber) {
				events = append(events, models.ChangeEvent{Kind: models.SectionAdded, Course: course, Section: sec})
			}
		}
	}

	if len(events) == 0 {
		return nil, before
	}
	return events, after
}

func seatsOpened(before, after models.Section) bool {
	return after.EnrollmentCount() < before.EnrollmentCount() ||
		after.MaximumEnrollmentCount() > before.MaximumEnrollmentCount() ||
		after.WaitCountValue() < before.WaitCountValue() ||
		after.WaitCapacityValue() > before.WaitCapacityValue()
}
