package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/endeavored/sectionwatch/internal/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestReadDocumentJSON(t *testing.T) {
	p := writeFile(t, "config.json", `{
		"term": "202508",
		"signup_domain_api": "registration.banner.gatech.edu",
		"courses": ["CS1332", "math 1554"],
		"webhook_url": "https://discord.test/hook",
		"footer_text": "watcher"
	}`)

	doc, err := ReadDocument(p)
	require.NoError(t, err)
	cfg, err := Build(doc, nil)
	require.NoError(t, err)

	assert.Equal(t, "202508", cfg.Term)
	assert.Equal(t, []models.Course{{Subject: "CS", Number: "1332"}, {Subject: "MATH", Number: "1554"}}, cfg.Courses)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultRestartDelay, cfg.RestartDelay)
	assert.Equal(t, DefaultNotifyRatePerSec, cfg.NotifyRatePerSec)
	assert.Equal(t, DefaultMongoDatabase, cfg.MongoDatabase)
	require.NoError(t, cfg.RequireNotifier())
}

func TestReadDocumentYAML(t *testing.T) {
	p := writeFile(t, "config.yaml", `
term: "202508"
signup_domain_api: registration.example.edu
courses:
  - CS1332
poll_interval: 3s
slack_webhooks:
  - https://hooks.slack.test/a
`)
	doc, err := ReadDocument(p)
	require.NoError(t, err)
	cfg, err := Build(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, []string{"https://hooks.slack.test/a"}, cfg.SlackWebhooks)
}

func TestReadDocumentRejectsUnknownFields(t *testing.T) {
	p := writeFile(t, "config.json", `{"term": "1", "bogus": true}`)
	_, err := ReadDocument(p)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestReadDocumentRejectsTrailingData(t *testing.T) {
	p := writeFile(t, "config.json", `{"term": "1"}{"term": "2"}`)
	_, err := ReadDocument(p)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuildEnvOverrides(t *testing.T) {
	doc := &Document{
		Term:            "202502",
		SignupDomainApi: "registration.example.edu",
		Courses:         []string{"CS1332", "CS1332"},
		SlackWebhooks:   []string{"https://hooks.slack.test/a", " "},
	}
	cfg, err := Build(doc, envMap(map[string]string{
		"TERM_CODE":             "202508",
		"DISCORD_WEBHOOK":       "https://discord.test/env",
		"SLACK_WEBHOOK":         "https://hooks.slack.test/b",
		"SLACK_SOCKET_TOKEN":    "xapp-1",
		"mongoConnectionString": "mongodb://localhost",
		"PORT":                  "8080",
	}))
	require.NoError(t, err)

	assert.Equal(t, "202508", cfg.Term)
	assert.Equal(t, "https://discord.test/env", cfg.DiscordWebhook)
	assert.Equal(t, []string{"https://hooks.slack.test/a", "https://hooks.slack.test/b"}, cfg.SlackWebhooks)
	assert.Equal(t, "xapp-1", cfg.SlackSocketToken)
	assert.Equal(t, "mongodb://localhost", cfg.MongoURI)
	assert.Equal(t, "8080", cfg.Port)
	assert.Len(t, cfg.Courses, 1)
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		env  map[string]string
	}{
		{name: "missing term", doc: Document{SignupDomainApi: "x", Courses: []string{"CS1332"}}},
		{name: "missing domain", doc: Document{Term: "1", Courses: []string{"CS1332"}}},
		{name: "no courses", doc: Document{Term: "1", SignupDomainApi: "x"}},
		{name: "bad course", doc: Document{Term: "1", SignupDomainApi: "x", Courses: []string{"1332CS"}}},
		{name: "bad duration", doc: Document{Term: "1", SignupDomainApi: "x", Courses: []string{"CS1332"}, PollInterval: "soon"}},
		{name: "zero poll interval", doc: Document{Term: "1", SignupDomainApi: "x", Courses: []string{"CS1332"}, PollInterval: "0s"}},
		{name: "negative duration", doc: Document{Term: "1", SignupDomainApi: "x", Courses: []string{"CS1332"}, RestartDelay: "-1s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tt.doc
			_, err := Build(&doc, envMap(tt.env))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestBuildAllowsEmptyCoursesWithMongo(t *testing.T) {
	cfg, err := Build(&Document{Term: "1", SignupDomainApi: "x"}, envMap(map[string]string{
		"mongoConnectionString": "mongodb://localhost",
	}))
	require.NoError(t, err)
	assert.Empty(t, cfg.Courses)
	require.ErrorIs(t, cfg.RequireNotifier(), ErrInvalidConfig)
}

func TestLoadSkipsMissingEnvFile(t *testing.T) {
	p := writeFile(t, "config.json", `{"term": "1", "signup_domain_api": "x", "courses": ["CS1332"]}`)
	cfg, err := Load(p, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.SignupDomain)
}
