package jobs

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Start runs the poll job in the background. The returned channel yields the
// job's terminal error once, after ctx is cancelled.
func Start(ctx context.Context, job *SectionPollJob, log zerolog.Logger) <-chan error {
	done := make(chan error, 1)
	go func() {
		err := job.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("poll job stopped")
		}
		done <- err
		close(done)
	}()
	return done
}
