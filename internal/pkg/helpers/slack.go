package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/endeavored/sectionwatch/internal/pkg/models"
	"github.com/endeavored/sectionwatch/internal/pkg/requests"
)

// SlackSink posts block messages to every configured incoming webhook.
type SlackSink struct {
	cli      requests.HTTPClient
	webhooks []string
}

func NewSlackSink(cli requests.HTTPClient, webhooks []string) *SlackSink {
	return &SlackSink{cli: cli, webhooks: webhooks}
}

func (s *SlackSink) Name() string { return "slack" }

func (s *SlackSink) Send(ctx context.Context, n models.Notification) error {
	postData, err := json.Marshal(BuildSlackWebhook(n))
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}
	var errs []error
	for _, webhook := range s.webhooks {
		if _, err := requests.PostJSON(ctx, s.cli, webhook, postData, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func BuildSlackWebhook(n models.Notification) models.SlackWebhookData {
	if n.Kind == models.SessionError {
		msg := "Session error, restarting session"
		if !n.Course.IsZero() {
			msg = fmt.Sprintf("Session error while fetching %s, restarting session", n.Course)
		}
		detail := "unknown error"
		if n.Err != nil {
			detail = n.Err.Error()
		}
		return models.SlackWebhookData{
			Text: msg,
			Blocks: []models.SlackBlock{
				headerBlock(msg),
				{
					Type: "section",
					Text: &models.SlackText{Type: "mrkdwn", Text: "```" + truncate(detail, 2900) + "```"},
				},
			},
		}
	}

	var sec models.Section
	if n.Section != nil {
		sec = *n.Section
	}
	verb := "updated"
	if n.Kind == models.SectionAdded {
		verb = "added"
	}
	msg := fmt.Sprintf("(%s) %s - %s section %s", sec.SequenceNumber, sec.SubjectCourse, sec.CourseTitle, verb)
	var blocks []models.SlackBlock = make([]models.SlackBlock, 0, 3)
	blocks = append(blocks, headerBlock(msg))
	blocks = append(blocks, models.SlackBlock{
		Type: "section",
		Text: &models.SlackText{
			Type: "plain_text",
			Text: fmt.Sprintf("CRN %s", sec.CourseReferenceNumber),
		},
	})
	fields := []models.SlackText{
		{Type: "mrkdwn", Text: "*Enrollment Actual*\n" + fmt.Sprint(sec.EnrollmentCount())},
		{Type: "mrkdwn", Text: "*Enrollment Maximum*\n" + fmt.Sprint(sec.MaximumEnrollmentCount())},
		{Type: "mrkdwn", Text: "*Waitlist Actual*\n" + fmt.Sprint(sec.WaitCountValue())},
		{Type: "mrkdwn", Text: "*Waitlist Maximum*\n" + fmt.Sprint(sec.WaitCapacityValue())},
		{Type: "mrkdwn", Text: "*Meeting Times*\n" + MeetingSummary(sec)},
		{Type: "mrkdwn", Text: "*Schedule Type*\n" + orDash(sec.ScheduleTypeDescription)},
	}
	blocks = append(blocks, models.SlackBlock{Type: "section", Fields: &fields})
	return models.SlackWebhookData{Text: msg, Blocks: blocks}
}

// Slack caps header text at 150 characters.
func headerBlock(text string) models.SlackBlock {
	return models.SlackBlock{
		Type: "header",
		Text: &models.SlackText{Type: "plain_text", Text: truncate(text, 150)},
	}
}
