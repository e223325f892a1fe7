package models

import (
	"errors"
	"fmt"
)

var ErrDuplicateSection = errors.New("duplicate section reference number")

// Snapshot is an immutable set of sections keyed by CRN that remembers the
// order the sections were returned in.
type Snapshot struct {
	crns     []string
	sections map[string]Section
}

// NewSnapshot validates every section and rejects duplicate CRNs.
func NewSnapshot(sections []Section) (*Snapshot, error) {
	s := &Snapshot{
		crns:     make([]string, 0, len(sections)),
		sections: make(map[string]Section, len(sections)),
	}
	for _, sec := range sections {
		if err := sec.Validate(); err != nil {
			return nil, err
		}
		crn := sec.CourseReferenceNumber
		if _, ok := s.sections[crn]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSection, crn)
		}
		s.crns = append(s.crns, crn)
		s.sections[crn] = sec
	}
	return s, nil
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.crns)
}

func (s *Snapshot) Get(crn string) (Section, bool) {
	if s == nil {
		return Section{}, false
	}
	sec, ok := s.sections[crn]
	return sec, ok
}

func (s *Snapshot) Has(crn string) bool {
	_, ok := s.Get(crn)
	return ok
}

// Sections returns the sections in fetch order.
func (s *Snapshot) Sections() []Section {
	if s == nil {
		return nil
	}
	out := make([]Section, 0, len(s.crns))
	for _, crn := range s.crns {
		out = append(out, s.sections[crn])
	}
	return out
}
