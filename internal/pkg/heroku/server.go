package heroku

import (
	"context"
	"encoding/json"

	"github.com/endeavored/sectionwatch/internal/app/coursewatch/jobs"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// StatusSource is satisfied by *jobs.Stats.
type StatusSource interface {
	Snapshot() jobs.StatsSnapshot
}

// Handler serves "ok" on / for the platform router and poll statistics on
// /status.
func Handler(stats StatusSource) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/status":
			body, err := json.Marshal(stats.Snapshot())
			if err != nil {
				ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
				return
			}
			ctx.SetContentType("application/json")
			ctx.SetBody(body)
		default:
			ctx.SetContentType("text/plain; charset=utf-8")
			ctx.SetBodyString("ok")
		}
	}
}

// Serve listens on :port until ctx is cancelled.
func Serve(ctx context.Context, port string, stats StatusSource, log zerolog.Logger) error {
	srv := &fasthttp.Server{
		Handler:               Handler(stats),
		NoDefaultServerHeader: true,
	}
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Warn().Err(err).Msg("status server shutdown")
		}
	}()
	log.Info().Str("port", port).Msg("status server listening")
	return srv.ListenAndServe(":" + port)
}
