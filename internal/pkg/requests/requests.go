package requests

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"

var ErrBadStatus = errors.New("unexpected status code")

// HTTPClient is the subset of *fasthttp.Client used here.
type HTTPClient interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

func NewHTTPClient() *fasthttp.Client {
	return &fasthttp.Client{
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxResponseBodySize: 32 << 20,
	}
}

// cookieJar keeps the cookies handed out during the bootstrap so every later
// request belongs to the same server-side session.
type cookieJar struct {
	mu      sync.Mutex
	cookies map[string]string
}

func newCookieJar() *cookieJar {
	return &cookieJar{cookies: make(map[string]string)}
}

func (j *cookieJar) apply(req *fasthttp.Request) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for k, v := range j.cookies {
		req.Header.SetCookie(k, v)
	}
}

func (j *cookieJar) store(resp *fasthttp.Response) {
	j.mu.Lock()
	defer j.mu.Unlock()
	resp.Header.VisitAllCookie(func(key, value []byte) {
		c := fasthttp.AcquireCookie()
		defer fasthttp.ReleaseCookie(c)
		if err := c.ParseBytes(value); err != nil {
			return
		}
		j.cookies[string(c.Key())] = string(c.Value())
	})
}

func (j *cookieJar) len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.cookies)
}

type request struct {
	method  string
	url     string
	form    map[string]string
	headers map[string]string
}

// do performs one request and returns the decoded (gunzipped) body. Any non
// 200 response is an error.
func do(ctx context.Context, cli HTTPClient, jar *cookieJar, timeout time.Duration, r request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(r.url)
	req.Header.SetMethod(r.method)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.SetUserAgent(userAgent)
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if r.form != nil {
		args := fasthttp.AcquireArgs()
		for k, v := range r.form {
			args.Set(k, v)
		}
		req.Header.SetContentType("application/x-www-form-urlencoded; charset=UTF-8")
		req.SetBody(args.QueryString())
		fasthttp.ReleaseArgs(args)
	}
	if jar != nil {
		jar.apply(req)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	timeout = effectiveTimeout(ctx, timeout)
	if err := cli.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.url, err)
	}
	if jar != nil {
		jar.store(resp)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: %d from %s", ErrBadStatus, resp.StatusCode(), r.url)
	}

	contentEncoding := resp.Header.Peek("Content-Encoding")
	if bytes.EqualFold(contentEncoding, []byte("gzip")) {
		body, err := resp.BodyGunzip()
		if err != nil {
			return nil, fmt.Errorf("gunzip %s: %w", r.url, err)
		}
		return body, nil
	}
	return append([]byte(nil), resp.Body()...), nil
}

// effectiveTimeout shortens the timeout to the context deadline, if any.
func effectiveTimeout(ctx context.Context, timeout time.Duration) time.Duration {
	if timeout <= 0 {
		timeout = time.Minute
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			if left <= 0 {
				left = time.Millisecond
			}
			return left
		}
	}
	return timeout
}

// PostJSON posts body to uri and returns the response body.
func PostJSON(ctx context.Context, cli HTTPClient, uri string, body []byte, headers map[string]string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	for k, v := range headers {
		if strings.EqualFold(k, "content-type") {
			req.Header.SetContentType(v)
			continue
		}
		req.Header.Set(k, v)
	}
	req.SetBody(body)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if err := cli.DoTimeout(req, resp, effectiveTimeout(ctx, 30*time.Second)); err != nil {
		return nil, err
	}
	// Discord answers 204 on success.
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, fmt.Errorf("%w: %d: %s", ErrBadStatus, code, strings.TrimSpace(string(resp.Body())))
	}
	return append([]byte(nil), resp.Body()...), nil
}
