package heroku

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/endeavored/sectionwatch/internal/app/coursewatch/jobs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type fixedStats jobs.StatsSnapshot

func (f fixedStats) Snapshot() jobs.StatsSnapshot { return jobs.StatsSnapshot(f) }

func serve(t *testing.T, h fasthttp.RequestHandler) *fasthttp.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
}

func TestHandler(t *testing.T) {
	cli := serve(t, Handler(fixedStats{Cycles: 7, Restarts: 1, LastError: "fetch CS1332: boom"}))

	code, body, err := cli.Get(nil, "http://status.test/")
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusOK, code)
	assert.Equal(t, "ok", string(body))

	code, body, err = cli.Get(nil, "http://status.test/status")
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusOK, code)
	var got jobs.StatsSnapshot
	require.NoError(t, json.Unmarshal(body, &got))
	assert.EqualValues(t, 7, got.Cycles)
	assert.Equal(t, "fetch CS1332: boom", got.LastError)
}

func TestMakeHeartbeat(t *testing.T) {
	cli := serve(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == "/down" {
			ctx.SetStatusCode(fasthttp.StatusBadGateway)
			return
		}
		ctx.SetBodyString("ok")
	})
	assert.True(t, makeHeartbeat(cli, "http://app.test/", zerolog.Nop()))
	assert.False(t, makeHeartbeat(cli, "http://app.test/down", zerolog.Nop()))
}

func TestStartHeartbeatDisabled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan struct{})
	go func() {
		StartHeartbeat(ctx, nil, "", time.Minute, zerolog.Nop())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("heartbeat without url should return immediately")
	}
}
