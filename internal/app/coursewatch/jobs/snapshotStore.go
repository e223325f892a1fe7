package jobs

import (
	"github.com/endeavored/sectionwatch/internal/pkg/models"
)

// SnapshotStore holds the last baseline per course. It is owned by a single
// SectionPollJob and is not safe for concurrent use.
type SnapshotStore struct {
	snapshots map[models.Course]*models.Snapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[models.Course]*models.Snapshot)}
}

// Get returns nil when the course has not been observed yet.
func (s *SnapshotStore) Get(course models.Course) *models.Snapshot {
	return s.snapshots[course]
}

// Put replaces the baseline. Snapshots are immutable so no copy is taken.
func (s *SnapshotStore) Put(course models.Course, snap *models.Snapshot) {
	if snap == nil {
		return
	}
	s.snapshots[course] = snap
}

// Retain drops the baseline of every course not in courses, so a course that
// leaves the watch list starts over silently if it is added back.
func (s *SnapshotStore) Retain(courses []models.Course) {
	keep := make(map[models.Course]struct{}, len(courses))
	for _, c := range courses {
		keep[c] = struct{}{}
	}
	for c := range s.snapshots {
		if _, ok := keep[c]; !ok {
			delete(s.snapshots, c)
		}
	}
}

func (s *SnapshotStore) Len() int { return len(s.snapshots) }

// Reset drops every baseline; used when the poll loop restarts.
func (s *SnapshotStore) Reset() {
	s.snapshots = make(map[models.Course]*models.Snapshot)
}
