package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/endeavored/sectionwatch/internal/app/coursewatch/jobs"
	"github.com/endeavored/sectionwatch/internal/pkg/models"
	"github.com/endeavored/sectionwatch/internal/pkg/requests"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const connectionsOpenEndpoint = "https://slack.com/api/apps.connections.open"

// socketCommands answers the slash commands delivered over Slack socket mode.
type socketCommands struct {
	watchlist *jobs.Watchlist
	persist   func(ctx context.Context, courses []string) error
	log       zerolog.Logger
}

func (s *socketCommands) handle(ctx context.Context, p models.SlackSocketPayload) string {
	text := strings.TrimSpace(p.Text)
	switch p.Command {
	case "/watch-course", "/unwatch-course":
		course, err := models.ParseCourse(text)
		if err != nil {
			return "Course must look like CS1332"
		}
		var changed bool
		var reply string
		if p.Command == "/watch-course" {
			changed = s.watchlist.Add(course)
			reply = fmt.Sprintf("%s has been added", course)
			if !changed {
				reply = fmt.Sprintf("%s is already being watched", course)
			}
		} else {
			changed = s.watchlist.Remove(course)
			reply = fmt.Sprintf("%s has been removed", course)
			if !changed {
				reply = fmt.Sprintf("%s is not being watched", course)
			}
		}
		if changed {
			s.log.Info().Str("command", p.Command).Str("course", course.String()).Str("user", p.UserName).Msg("watchlist changed")
			if s.persist != nil {
				if err := s.persist(ctx, s.watchlist.Strings()); err != nil {
					s.log.Warn().Err(err).Msg("watchlist save")
				}
			}
		}
		return reply
	case "/watching":
		courses := s.watchlist.Strings()
		if len(courses) == 0 {
			return "No courses are being watched"
		}
		return "Watching " + strings.Join(courses, ", ")
	default:
		return "Unknown command " + p.Command
	}
}

// runSocketMode keeps a socket-mode connection open until ctx is cancelled,
// fetching a fresh URL before every reconnect.
func runSocketMode(ctx context.Context, cli requests.HTTPClient, token string, cmds *socketCommands, log zerolog.Logger) {
	for ctx.Err() == nil {
		socketUrl, err := getSocketUrl(ctx, cli, token)
		if err != nil {
			log.Warn().Err(err).Msg("socket url")
			if !pause(ctx, 3*time.Second) {
				return
			}
			continue
		}
		if err := connectToWebsocket(ctx, socketUrl, cmds, log); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("socket closed unexpectedly")
		}
		if !pause(ctx, 5*time.Second) {
			return
		}
		log.Info().Msg("attempting reconnect to socket")
	}
}

func getSocketUrl(ctx context.Context, cli requests.HTTPClient, token string) (string, error) {
	body, err := requests.PostJSON(ctx, cli, connectionsOpenEndpoint, nil, map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/x-www-form-urlencoded",
	})
	if err != nil {
		return "", err
	}
	var result models.SlackConnectionsOpen
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if !result.Ok || result.Url == "" {
		return "", fmt.Errorf("apps.connections.open: %s", result.Error)
	}
	return result.Url, nil
}

func connectToWebsocket(ctx context.Context, socketUrl string, cmds *socketCommands, log zerolog.Logger) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, socketUrl, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()
	return receiveHandler(ctx, conn, cmds, log)
}

// receiveHandler acknowledges every envelope; slash command envelopes carry
// the reply in the ack payload. It returns nil when Slack asks to disconnect.
func receiveHandler(ctx context.Context, conn *websocket.Conn, cmds *socketCommands, log zerolog.Logger) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var receivedData models.SlackSocketData
		if err := json.Unmarshal(msg, &receivedData); err != nil {
			log.Debug().Err(err).Msg("ignoring socket message")
			continue
		}
		switch receivedData.Type {
		case "hello":
			log.Info().Msg("socket connected")
			continue
		case "disconnect":
			return nil
		}
		if receivedData.EnvelopeId == "" {
			continue
		}
		ack := models.SlackSocketAck{EnvelopeId: receivedData.EnvelopeId}
		if receivedData.Payload.Command != "" {
			ack.Payload = &models.SlackSocketResponse{Text: cmds.handle(ctx, receivedData.Payload)}
		}
		if err := conn.WriteJSON(ack); err != nil {
			return err
		}
	}
}

func pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
