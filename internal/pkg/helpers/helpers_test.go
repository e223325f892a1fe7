package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/endeavored/sectionwatch/internal/pkg/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func intp(v int) *int           { return &v }
func strp(v string) *string     { return &v }
func floatp(v float64) *float64 { return &v }

func lecture() models.Section {
	return models.Section{
		CourseReferenceNumber:   "81234",
		SubjectCourse:           "CS1332",
		CourseTitle:             "Data Struct & Algorithms",
		SequenceNumber:          "A",
		ScheduleTypeDescription: "Lecture*",
		CreditHours:             floatp(3),
		Enrollment:              intp(149),
		MaximumEnrollment:       intp(150),
		WaitCount:               intp(4),
		WaitCapacity:            intp(20),
		MeetingsFaculty: []models.MeetingFaculty{{
			MeetingTime: models.MeetingTime{BeginTime: strp("0930"), EndTime: strp("1345"), Tuesday: true, Thursday: true},
		}},
	}
}

func TestDescription(t *testing.T) {
	assert.Equal(t, "**CS1332** - Data Struct & Algorithms (3 Credits)", Description(lecture()))

	one := lecture()
	one.CreditHours = nil
	one.CreditHourLow = floatp(1)
	assert.Equal(t, "**CS1332** - Data Struct & Algorithms (1 Credit)", Description(one))
}

func TestMeetingFormatting(t *testing.T) {
	sec := lecture()
	assert.Equal(t, "Tuesday & Thursday", MeetingDays(sec))
	assert.Equal(t, "09:30 AM - 01:45 PM", MeetingTimeRange(sec))

	sec.MeetingsFaculty = nil
	assert.Equal(t, "TBA\nTBA", MeetingSummary(sec))

	online := lecture()
	online.MeetingsFaculty[0].MeetingTime = models.MeetingTime{}
	assert.Equal(t, "TBA", MeetingDays(online))
	assert.Equal(t, "TBA", MeetingTimeRange(online))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "149/150 Seats\n4/20 Waitlist Seats", Status(lecture()))

	noWait := lecture()
	noWait.WaitCapacity = intp(0)
	assert.Equal(t, "149/150 Seats", Status(noWait))
}

func TestBuildDiscordWebhookForSection(t *testing.T) {
	sec := lecture()
	at := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	msg := BuildDiscordWebhook(models.Notification{Kind: models.SectionAdded, Section: &sec, At: at}, Footer{Text: "footer"})

	require.Len(t, msg.Embeds, 1)
	e := msg.Embeds[0]
	assert.Equal(t, "Course Section Added", e.Title)
	assert.Equal(t, models.DiscordColorGreen, e.Color)
	assert.Equal(t, "2025-08-01T12:00:00Z", e.Timestamp)
	require.NotNil(t, e.Footer)
	assert.Equal(t, "footer", e.Footer.Text)
	require.Len(t, e.Fields, 5)
	assert.Equal(t, "CRN", e.Fields[1].Name)
	assert.Equal(t, "81234", e.Fields[1].Value)
	assert.True(t, e.Fields[0].Inline)
	assert.False(t, e.Fields[4].Inline)

	upd := BuildDiscordWebhook(models.Notification{Kind: models.SectionUpdated, Section: &sec}, Footer{})
	assert.Equal(t, "Course Section Updated", upd.Embeds[0].Title)
	assert.Equal(t, models.DiscordColorOrange, upd.Embeds[0].Color)
	assert.Nil(t, upd.Embeds[0].Footer)
}

func TestBuildDiscordWebhookForError(t *testing.T) {
	course := models.Course{Subject: "CS", Number: "1332"}
	msg := BuildDiscordWebhook(models.ErrorNotification(course, errors.New("boom"), time.Now()), Footer{})
	e := msg.Embeds[0]
	assert.Equal(t, "Session Error", e.Title)
	assert.Equal(t, models.DiscordColorRed, e.Color)
	assert.Contains(t, e.Description, "CS1332")
	assert.Equal(t, "```boom```", e.Fields[0].Value)

	long := BuildDiscordWebhook(models.ErrorNotification(models.Course{}, errors.New(strings.Repeat("x", 5000)), time.Now()), Footer{})
	assert.LessOrEqual(t, len([]rune(long.Embeds[0].Fields[0].Value)), discordFieldLimit)
	assert.Contains(t, long.Embeds[0].Description, "opening a registration session")
}

func TestBuildSlackWebhook(t *testing.T) {
	sec := lecture()
	msg := BuildSlackWebhook(models.Notification{Kind: models.SectionUpdated, Section: &sec})
	assert.Equal(t, "(A) CS1332 - Data Struct & Algorithms section updated", msg.Text)
	require.Len(t, msg.Blocks, 3)
	assert.Equal(t, "header", msg.Blocks[0].Type)
	require.NotNil(t, msg.Blocks[2].Fields)
	assert.Equal(t, "*Enrollment Actual*\n149", (*msg.Blocks[2].Fields)[0].Text)

	errMsg := BuildSlackWebhook(models.ErrorNotification(models.Course{Subject: "CS", Number: "1332"}, errors.New("boom"), time.Now()))
	assert.Contains(t, errMsg.Text, "CS1332")
	require.Len(t, errMsg.Blocks, 2)
}

type recordingSink struct {
	mu   sync.Mutex
	name string
	got  []models.Notification
	err  error
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Send(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.err
}

func TestDispatcherFansOutAndJoinsErrors(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	bad := &recordingSink{name: "bad", err: errors.New("down")}
	d := NewDispatcher(100, zerolog.Nop(), bad, ok)

	err := d.Notify(context.Background(), models.Notification{Kind: models.SectionAdded})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: down")
	assert.Len(t, ok.got, 1)
	assert.Len(t, bad.got, 1)
	assert.Equal(t, 2, d.Sinks())
}

func TestDispatcherStopsOnCancelledContext(t *testing.T) {
	s := &recordingSink{name: "s"}
	d := NewDispatcher(1, zerolog.Nop(), s)
	require.NoError(t, d.Notify(context.Background(), models.Notification{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, d.Notify(ctx, models.Notification{}))
	assert.Len(t, s.got, 1)
}

func TestWebhookSinksPostJSON(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies = map[string][]byte{}
	)
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		mu.Lock()
		bodies[string(ctx.Path())] = append([]byte(nil), ctx.PostBody()...)
		mu.Unlock()
		if string(ctx.Path()) == "/broken" {
			ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	cli := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}

	sec := lecture()
	n := models.Notification{Kind: models.SectionUpdated, Section: &sec}

	require.NoError(t, NewDiscordSink(cli, "http://hooks.test/discord", Footer{Text: "f"}).Send(context.Background(), n))
	var discordMsg models.DiscordWebhookData
	require.NoError(t, json.Unmarshal(bodies["/discord"], &discordMsg))
	assert.Equal(t, "Course Section Updated", discordMsg.Embeds[0].Title)

	err := NewSlackSink(cli, []string{"http://hooks.test/slack", "http://hooks.test/broken"}).Send(context.Background(), n)
	require.Error(t, err)
	var slackMsg models.SlackWebhookData
	require.NoError(t, json.Unmarshal(bodies["/slack"], &slackMsg))
	assert.Contains(t, slackMsg.Text, "section updated")
}
