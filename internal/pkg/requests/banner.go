package requests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/endeavored/sectionwatch/internal/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

var ErrSearchFailed = errors.New("section search failed")

const (
	registrationPath = "/StudentRegistrationSsb/ssb/registration/registration"
	termSearchPath   = "/StudentRegistrationSsb/ssb/term/search"
	searchPath       = "/StudentRegistrationSsb/ssb/searchResults/searchResults"
	pageMaxSize      = 100
	maxPages         = 20
)

// BannerClient talks to the StudentRegistrationSsb search pages of one
// registration host for one term.
type BannerClient struct {
	cli     HTTPClient
	baseURL string
	term    string
	timeout time.Duration
	log     zerolog.Logger
}

// NewBannerClient accepts a bare host ("registration.banner.gatech.edu") or a
// full base URL.
func NewBannerClient(cli HTTPClient, domain, term string, timeout time.Duration, log zerolog.Logger) *BannerClient {
	base := strings.TrimRight(strings.TrimSpace(domain), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &BannerClient{cli: cli, baseURL: base, term: term, timeout: timeout, log: log}
}

// Session is a bootstrapped search session. Searches need the cookies and
// term selection established by Open.
type Session struct {
	ID    string
	c     *BannerClient
	jar   *cookieJar
	token string
}

// Open runs the bootstrap: load the registration page, then select the term
// in search mode.
func (c *BannerClient) Open(ctx context.Context) (*Session, error) {
	s := &Session{ID: uuid.NewString(), c: c, jar: newCookieJar()}

	page, err := do(ctx, c.cli, s.jar, c.timeout, request{
		method:  "GET",
		url:     c.baseURL + registrationPath,
		headers: map[string]string{"X-Requested-With": "XMLHttpRequest"},
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap registration page: %w", err)
	}
	s.token = parseSynchronizerToken(page)

	_, err = do(ctx, c.cli, s.jar, c.timeout, request{
		method:  "POST",
		url:     c.baseURL + termSearchPath + "?mode=search",
		headers: s.headers(),
		form: map[string]string{
			"term":            c.term,
			"studyPath":       "",
			"studyPathText":   "",
			"startDatepicker": "",
			"endDatepicker":   "",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap term selection: %w", err)
	}

	c.log.Debug().
		Str("session", s.ID).
		Int("cookies", s.jar.len()).
		Bool("token", s.token != "").
		Msg("banner session opened")
	return s, nil
}

func (s *Session) headers() map[string]string {
	h := map[string]string{"X-Requested-With": "XMLHttpRequest"}
	if s.token != "" {
		h["X-Synchronizer-Token"] = s.token
	}
	return h
}

// Search returns every section of course for the session's term, in the
// order the server listed them. Results larger than one page are fetched
// page by page; a result that ends short of totalCount is an error.
func (s *Session) Search(ctx context.Context, course models.Course) ([]models.Section, error) {
	var sections []models.Section
	for page := 0; ; page++ {
		if page == maxPages {
			return nil, fmt.Errorf("%w: %s has more than %d pages", ErrSearchFailed, course, maxPages)
		}
		data, total, err := s.searchPage(ctx, course, len(sections))
		if err != nil {
			return nil, err
		}
		sections = append(sections, data...)
		if len(sections) >= total {
			if sections == nil {
				sections = []models.Section{}
			}
			return sections, nil
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: %s returned %d of %d sections", ErrSearchFailed, course, len(sections), total)
		}
	}
}

func (s *Session) searchPage(ctx context.Context, course models.Course, offset int) ([]models.Section, int, error) {
	q := url.Values{}
	q.Set("txt_subject", course.Subject)
	q.Set("txt_courseNumber", course.Number)
	q.Set("txt_term", s.c.term)
	q.Set("startDatepicker", "")
	q.Set("endDatepicker", "")
	q.Set("pageOffset", strconv.Itoa(offset))
	q.Set("pageMaxSize", strconv.Itoa(pageMaxSize))
	q.Set("sortColumn", "subjectDescription")
	q.Set("sortDirection", "asc")

	body, err := do(ctx, s.c.cli, s.jar, s.c.timeout, request{
		method:  "GET",
		url:     s.c.baseURL + searchPath + "?" + q.Encode(),
		headers: s.headers(),
	})
	if err != nil {
		return nil, 0, err
	}
	return DecodeSearchResponse(body)
}

// DecodeSearchResponse parses one page of the search envelope and returns its
// sections along with the server's totalCount. A null data array is an empty
// page; success=false is an error.
func DecodeSearchResponse(body []byte) ([]models.Section, int, error) {
	var res models.SearchResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, 0, fmt.Errorf("%w: decode: %v", ErrSearchFailed, err)
	}
	if !res.Success {
		return nil, 0, fmt.Errorf("%w: server reported success=false", ErrSearchFailed)
	}
	if res.TotalCount < 0 {
		return nil, 0, fmt.Errorf("%w: negative totalCount %d", ErrSearchFailed, res.TotalCount)
	}
	if res.Data == nil {
		return []models.Section{}, res.TotalCount, nil
	}
	for _, sec := range res.Data {
		if err := sec.Validate(); err != nil {
			return nil, 0, err
		}
	}
	return res.Data, res.TotalCount, nil
}

// parseSynchronizerToken pulls <meta name="synchronizerToken" content="..."> out
// of the registration page. Hosts that do not render it get an empty token.
func parseSynchronizerToken(page []byte) string {
	tkn := html.NewTokenizer(bytes.NewReader(page))
	for {
		tt := tkn.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a tokenizer error, either way there is no token.
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := tkn.Token()
			if tok.Data != "meta" {
				continue
			}
			var name, content string
			for _, a := range tok.Attr {
				switch a.Key {
				case "name":
					name = a.Val
				case "content":
					content = a.Val
				}
			}
			if name == "synchronizerToken" {
				return strings.TrimSpace(content)
			}
		}
	}
}
