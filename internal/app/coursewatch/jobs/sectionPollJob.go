package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/endeavored/sectionwatch/internal/pkg/models"
	"github.com/rs/zerolog"
)

// Session searches sections within one bootstrapped remote session.
type Session interface {
	Search(ctx context.Context, course models.Course) ([]models.Section, error)
}

// Fetcher bootstraps a new Session. It is called at start and after every
// restart.
type Fetcher interface {
	Open(ctx context.Context) (Session, error)
}

type FetcherFunc func(ctx context.Context) (Session, error)

func (f FetcherFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

type CourseSource interface {
	Courses() []models.Course
}

// FetchError is a failure of the fetch step for one course, or of the
// session bootstrap when Course is zero.
type FetchError struct {
	Course models.Course
	Err    error
}

func (e *FetchError) Error() string {
	if e.Course.IsZero() {
		return "open session: " + e.Err.Error()
	}
	return fmt.Sprintf("fetch %s: %v", e.Course, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type PollConfig struct {
	Interval     time.Duration
	RestartDelay time.Duration
}

// SectionPollJob drives open -> (fetch -> diff -> notify -> store)* -> sleep.
// Any fetch failure sends one error notification, drops every snapshot and
// starts over with a fresh session. Restarts are unlimited.
type SectionPollJob struct {
	cfg      PollConfig
	fetcher  Fetcher
	notifier Notifier
	courses  CourseSource
	store    *SnapshotStore
	stats    *Stats
	log      zerolog.Logger
	now      func() time.Time
}

func NewSectionPollJob(cfg PollConfig, fetcher Fetcher, notifier Notifier, courses CourseSource, log zerolog.Logger) *SectionPollJob {
	return &SectionPollJob{
		cfg:      cfg,
		fetcher:  fetcher,
		notifier: notifier,
		courses:  courses,
		store:    NewSnapshotStore(),
		stats:    &Stats{},
		log:      log,
		now:      time.Now,
	}
}

func (j *SectionPollJob) Stats() *Stats { return j.stats }

// Run blocks until ctx is cancelled and returns ctx.Err().
func (j *SectionPollJob) Run(ctx context.Context) error {
	for {
		err := j.runSession(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		j.stats.restarted(err, j.now())
		j.store.Reset()
		j.log.Warn().Err(err).Dur("delay", j.cfg.RestartDelay).Msg("restarting poll loop")
		if err := sleepCtx(ctx, j.cfg.RestartDelay); err != nil {
			return err
		}
	}
}

// runSession only returns on failure or cancellation.
func (j *SectionPollJob) runSession(ctx context.Context) error {
	sess, err := j.fetcher.Open(ctx)
	if err != nil {
		return j.fail(ctx, &FetchError{Err: err})
	}
	j.stats.sessionOpened()
	j.log.Info().Msg("registration session opened")

	for {
		if err := j.runCycle(ctx, sess); err != nil {
			return j.fail(ctx, err)
		}
		if err := sleepCtx(ctx, j.cfg.Interval); err != nil {
			return err
		}
	}
}

func (j *SectionPollJob) runCycle(ctx context.Context, sess Session) error {
	courses := j.courses.Courses()
	j.store.Retain(courses)
	for _, course := range courses {
		if err := j.pollCourse(ctx, sess, course); err != nil {
			return err
		}
	}
	j.stats.cycleDone(j.now())
	return nil
}

func (j *SectionPollJob) pollCourse(ctx context.Context, sess Session, course models.Course) error {
	sections, err := sess.Search(ctx, course)
	if err != nil {
		return &FetchError{Course: course, Err: err}
	}
	after, err := models.NewSnapshot(sections)
	if err != nil {
		return &FetchError{Course: course, Err: err}
	}

	before := j.store.Get(course)
	events, next := DiffSections(course, before, after)
	if before == nil {
		j.log.Info().Str("course", course.String()).Int("sections", after.Len()).Msg("course initialized")
	}
	for _, ev := range events {
		j.stats.eventSeen()
		j.log.Info().
			Str("course", course.String()).
			Str("crn", ev.Section.CourseReferenceNumber).
			Str("kind", ev.Kind.String()).
			Msg("section change detected")
		j.notify(ctx, models.NotificationFromEvent(ev, j.now()))
	}
	j.store.Put(course, next)
	return nil
}

// fail reports err unless the loop is shutting down, and returns it.
func (j *SectionPollJob) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	var course models.Course
	var fe *FetchError
	if errors.As(err, &fe) {
		course = fe.Course
	}
	j.log.Error().Err(err).Str("course", course.String()).Msg("poll failed")
	j.notify(ctx, models.ErrorNotification(course, err, j.now()))
	return err
}

// notify never fails the loop; delivery problems are only logged.
func (j *SectionPollJob) notify(ctx context.Context, n models.Notification) {
	if err := j.notifier.Notify(ctx, n); err != nil {
		j.stats.notifyFailed()
		j.log.Warn().Err(err).Str("kind", n.Kind.String()).Str("course", n.Course.String()).Msg("notification failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
