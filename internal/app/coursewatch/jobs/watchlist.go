package jobs

import (
	"sync"

	"github.com/endeavored/sectionwatch/internal/pkg/models"
)

// Watchlist is the ordered set of courses to poll. Slack commands edit it
// while the poll loop reads a copy once per course pass.
type Watchlist struct {
	mu      sync.Mutex
	courses []models.Course
}

func NewWatchlist(courses ...models.Course) *Watchlist {
	w := &Watchlist{}
	for _, c := range courses {
		w.Add(c)
	}
	return w
}

// Add appends course and reports whether it was new.
func (w *Watchlist) Add(course models.Course) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.courses {
		if c == course {
			return false
		}
	}
	w.courses = append(w.courses, course)
	return true
}

// Remove reports whether course was being watched.
func (w *Watchlist) Remove(course models.Course) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, c := range w.courses {
		if c == course {
			w.courses = append(w.courses[:i], w.courses[i+1:]...)
			return true
		}
	}
	return false
}

func (w *Watchlist) Courses() []models.Course {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Course(nil), w.courses...)
}

// Strings returns the identifiers in the form they are persisted.
func (w *Watchlist) Strings() []string {
	courses := w.Courses()
	out := make([]string, 0, len(courses))
	for _, c := range courses {
		out = append(out, c.String())
	}
	return out
}
