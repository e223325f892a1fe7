package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/endeavored/sectionwatch/internal/pkg/models"
	"github.com/endeavored/sectionwatch/internal/pkg/requests"
)

// Discord rejects embeds above these sizes.
const (
	discordFieldLimit       = 1024
	discordDescriptionLimit = 4096
)

type Footer struct {
	Text    string
	IconUrl string
}

// DiscordSink posts embeds to a Discord webhook.
type DiscordSink struct {
	cli     requests.HTTPClient
	webhook string
	footer  Footer
}

func NewDiscordSink(cli requests.HTTPClient, webhook string, footer Footer) *DiscordSink {
	return &DiscordSink{cli: cli, webhook: webhook, footer: footer}
}

func (d *DiscordSink) Name() string { return "discord" }

func (d *DiscordSink) Send(ctx context.Context, n models.Notification) error {
	postData, err := json.Marshal(BuildDiscordWebhook(n, d.footer))
	if err != nil {
		return fmt.Errorf("marshal discord message: %w", err)
	}
	_, err = requests.PostJSON(ctx, d.cli, d.webhook, postData, nil)
	return err
}

func BuildDiscordWebhook(n models.Notification, footer Footer) models.DiscordWebhookData {
	at := n.At
	if at.IsZero() {
		at = time.Now()
	}
	embed := models.DiscordEmbed{Timestamp: at.UTC().Format(time.RFC3339)}
	if footer.Text != "" || footer.IconUrl != "" {
		embed.Footer = &models.DiscordEmbedFooter{Text: footer.Text, IconUrl: footer.IconUrl}
	}

	switch n.Kind {
	case models.SessionError:
		embed.Title = "Session Error"
		embed.Color = models.DiscordColorRed
		if n.Course.IsZero() {
			embed.Description = "An error occurred while opening a registration session. Restarting session..."
		} else {
			embed.Description = fmt.Sprintf("An error occurred while fetching data for course %s. Restarting session...", n.Course)
		}
		detail := "unknown error"
		if n.Err != nil {
			detail = n.Err.Error()
		}
		embed.Fields = []models.DiscordEmbedField{
			{Name: "Traceback", Value: "```" + truncate(detail, discordFieldLimit-6) + "```"},
		}
	default:
		if n.Kind == models.SectionAdded {
			embed.Title = "Course Section Added"
			embed.Color = models.DiscordColorGreen
		} else {
			embed.Title = "Course Section Updated"
			embed.Color = models.DiscordColorOrange
		}
		if n.Section == nil {
			break
		}
		sec := *n.Section
		embed.Description = truncate(Description(sec), discordDescriptionLimit)
		embed.Fields = []models.DiscordEmbedField{
			{Name: "Schedule Type", Value: orDash(sec.ScheduleTypeDescription), Inline: true},
			{Name: "CRN", Value: orDash(sec.CourseReferenceNumber), Inline: true},
			{Name: "Section", Value: orDash(sec.SequenceNumber), Inline: true},
			{Name: "Meeting Times", Value: MeetingSummary(sec)},
			{Name: "Status", Value: Status(sec)},
		}
	}
	return models.DiscordWebhookData{Embeds: []models.DiscordEmbed{embed}}
}

// Discord drops fields with empty values.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
