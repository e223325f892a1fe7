package helpers

import (
	"context"
	"errors"
	"fmt"

	"github.com/endeavored/sectionwatch/internal/pkg/models"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Sink delivers one notification to one external channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, n models.Notification) error
}

// Dispatcher fans a notification out to every sink. Deliveries are paced by
// a token bucket so a burst of section changes stays under webhook limits.
type Dispatcher struct {
	sinks   []Sink
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewDispatcher(ratePerSec int, log zerolog.Logger, sinks ...Sink) *Dispatcher {
	rps := max(1, ratePerSec)
	return &Dispatcher{
		sinks:   sinks,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}
}

func (d *Dispatcher) Sinks() int { return len(d.sinks) }

// Notify sends to all sinks even if some fail; the failures are joined.
func (d *Dispatcher) Notify(ctx context.Context, n models.Notification) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	var errs []error
	for _, s := range d.sinks {
		if err := s.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		d.log.Debug().
			Str("sink", s.Name()).
			Str("kind", n.Kind.String()).
			Str("course", n.Course.String()).
			Msg("notification delivered")
	}
	return errors.Join(errs...)
}
