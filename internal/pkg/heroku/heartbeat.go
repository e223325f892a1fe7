package heroku

import (
	"context"
	"time"

	"github.com/endeavored/sectionwatch/internal/pkg/requests"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// StartHeartbeat pings url every interval so the dyno is not idled. It
// returns when ctx is cancelled.
func StartHeartbeat(ctx context.Context, cli requests.HTTPClient, url string, every time.Duration, log zerolog.Logger) {
	if url == "" || every <= 0 {
		return
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(5 * time.Second):
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		makeHeartbeat(cli, url, log)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func makeHeartbeat(cli requests.HTTPClient, url string, log zerolog.Logger) bool {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI(url)

	if err := cli.DoTimeout(req, resp, 30*time.Second); err != nil {
		log.Warn().Err(err).Msg("heartbeat failed")
		return false
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		log.Warn().Int("status", resp.StatusCode()).Msg("heartbeat received bad status")
		return false
	}
	log.Debug().Str("body", string(resp.Body())).Msg("heartbeat ok")
	return true
}
