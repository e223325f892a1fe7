package jobs

import (
	"sync"
	"time"
)

// Stats is read by the status endpoint while the poll loop writes it.
type Stats struct {
	mu sync.Mutex
	s  StatsSnapshot
}

type StatsSnapshot struct {
	Sessions       uint64    `json:"sessions"`
	Cycles         uint64    `json:"cycles"`
	Restarts       uint64    `json:"restarts"`
	Events         uint64    `json:"events"`
	NotifyFailures uint64    `json:"notifyFailures"`
	LastCycle      time.Time `json:"lastCycle"`
	LastError      string    `json:"lastError,omitempty"`
	LastErrorAt    time.Time `json:"lastErrorAt"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s
}

func (s *Stats) sessionOpened() {
	s.mu.Lock()
	s.s.Sessions++
	s.mu.Unlock()
}

func (s *Stats) cycleDone(at time.Time) {
	s.mu.Lock()
	s.s.Cycles++
	s.s.LastCycle = at
	s.mu.Unlock()
}

func (s *Stats) eventSeen() {
	s.mu.Lock()
	s.s.Events++
	s.mu.Unlock()
}

func (s *Stats) notifyFailed() {
	s.mu.Lock()
	s.s.NotifyFailures++
	s.mu.Unlock()
}

func (s *Stats) restarted(err error, at time.Time) {
	s.mu.Lock()
	s.s.Restarts++
	if err != nil {
		s.s.LastError = err.Error()
		s.s.LastErrorAt = at
	}
	s.mu.Unlock()
}
