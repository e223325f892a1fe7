// Package config loads the watcher configuration document and applies
// environment overrides on top of it.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/endeavored/sectionwatch/internal/pkg/models"
	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	DefaultPollInterval     = 1 * time.Second
	DefaultRestartDelay     = 5 * time.Second
	DefaultRequestTimeout   = 1 * time.Minute
	DefaultHeartbeatEvery   = 15 * time.Minute
	DefaultNotifyRatePerSec = 2
	DefaultMongoDatabase    = "monitor-data"
	DefaultMongoCollection  = "courses"
)

// Document mirrors the on-disk config.json / config.yaml.
type Document struct {
	Term             string   `json:"term"`
	SignupDomainApi  string   `json:"signup_domain_api"`
	Courses          []string `json:"courses"`
	WebhookUrl       string   `json:"webhook_url"`
	FooterText       string   `json:"footer_text"`
	FooterIconUrl    string   `json:"footer_icon_url"`
	SlackWebhooks    []string `json:"slack_webhooks"`
	PollInterval     string   `json:"poll_interval"`
	RestartDelay     string   `json:"restart_delay"`
	RequestTimeout   string   `json:"request_timeout"`
	NotifyRatePerSec int      `json:"notify_rate_per_sec"`
	LogLevel         string   `json:"log_level"`
	MongoDatabase    string   `json:"mongo_database"`
	MongoCollection  string   `json:"mongo_collection"`
	HeartbeatUrl     string   `json:"heartbeat_url"`
	HeartbeatEvery   string   `json:"heartbeat_every"`
}

// Config is built once at startup and handed to constructors explicitly.
type Config struct {
	Term             string
	SignupDomain     string
	Courses          []models.Course
	DiscordWebhook   string
	FooterText       string
	FooterIconUrl    string
	SlackWebhooks    []string
	SlackSocketToken string
	MongoURI         string
	MongoDatabase    string
	MongoCollection  string
	Port             string
	HeartbeatUrl     string
	HeartbeatEvery   time.Duration
	PollInterval     time.Duration
	RestartDelay     time.Duration
	RequestTimeout   time.Duration
	NotifyRatePerSec int
	LogLevel         string
}

// Load reads the env files (missing ones are skipped), parses the document at
// path and applies environment overrides.
func Load(path string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return Build(doc, os.Getenv)
}

// ReadDocument decodes a JSON or YAML document, rejecting unknown keys.
func ReadDocument(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jb, err := coerceToJSON(path, b)
	if err != nil {
		return nil, err
	}
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: %s: trailing data", ErrInvalidConfig, path)
	}
	return &doc, nil
}

// Build turns a document into a Config. getenv supplies the overrides.
func Build(doc *Document, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	cfg := &Config{
		Term:             strings.TrimSpace(doc.Term),
		SignupDomain:     strings.TrimSpace(doc.SignupDomainApi),
		DiscordWebhook:   strings.TrimSpace(doc.WebhookUrl),
		FooterText:       doc.FooterText,
		FooterIconUrl:    doc.FooterIconUrl,
		SlackWebhooks:    nonEmpty(doc.SlackWebhooks),
		NotifyRatePerSec: doc.NotifyRatePerSec,
		LogLevel:         doc.LogLevel,
		MongoDatabase:    orDefault(doc.MongoDatabase, DefaultMongoDatabase),
		MongoCollection:  orDefault(doc.MongoCollection, DefaultMongoCollection),
		HeartbeatUrl:     strings.TrimSpace(doc.HeartbeatUrl),
	}
	if cfg.NotifyRatePerSec <= 0 {
		cfg.NotifyRatePerSec = DefaultNotifyRatePerSec
	}

	var err error
	if cfg.PollInterval, err = parseDuration("poll_interval", doc.PollInterval, DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.RestartDelay, err = parseDuration("restart_delay", doc.RestartDelay, DefaultRestartDelay); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = parseDuration("request_timeout", doc.RequestTimeout, DefaultRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.HeartbeatEvery, err = parseDuration("heartbeat_every", doc.HeartbeatEvery, DefaultHeartbeatEvery); err != nil {
		return nil, err
	}

	// Secrets live in the environment, same names the deployment already uses.
	if v := strings.TrimSpace(getenv("TERM_CODE")); v != "" {
		cfg.Term = v
	}
	if v := strings.TrimSpace(getenv("DISCORD_WEBHOOK")); v != "" {
		cfg.DiscordWebhook = v
	}
	if v := strings.TrimSpace(getenv("SLACK_WEBHOOK")); v != "" {
		cfg.SlackWebhooks = append(cfg.SlackWebhooks, v)
	}
	cfg.SlackSocketToken = strings.TrimSpace(getenv("SLACK_SOCKET_TOKEN"))
	cfg.MongoURI = strings.TrimSpace(getenv("mongoConnectionString"))
	cfg.Port = strings.TrimSpace(getenv("PORT"))

	seen := make(map[models.Course]bool, len(doc.Courses))
	for _, raw := range doc.Courses {
		c, err := models.ParseCourse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: courses: %v", ErrInvalidConfig, err)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		cfg.Courses = append(cfg.Courses, c)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Term == "" {
		return fmt.Errorf("%w: term is required", ErrInvalidConfig)
	}
	if c.SignupDomain == "" {
		return fmt.Errorf("%w: signup_domain_api is required", ErrInvalidConfig)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be > 0", ErrInvalidConfig)
	}
	if len(c.Courses) == 0 && c.MongoURI == "" {
		return fmt.Errorf("%w: no courses configured", ErrInvalidConfig)
	}
	return nil
}

// RequireNotifier is checked by commands that deliver notifications.
func (c *Config) RequireNotifier() error {
	if c.DiscordWebhook == "" && len(c.SlackWebhooks) == 0 {
		return fmt.Errorf("%w: set webhook_url, slack_webhooks, DISCORD_WEBHOOK or SLACK_WEBHOOK", ErrInvalidConfig)
	}
	return nil
}

func parseDuration(field, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: invalid duration %q", ErrInvalidConfig, field, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s: duration must be >= 0", ErrInvalidConfig, field)
	}
	return d, nil
}

// coerceToJSON converts YAML documents to JSON so both formats share the
// strict decoder.
func coerceToJSON(path string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, nil
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", ErrInvalidConfig, err)
	}
	j, err := json.Marshal(normalizeYAML(v))
	if err != nil {
		return nil, fmt.Errorf("%w: yaml to json: %v", ErrInvalidConfig, err)
	}
	return j, nil
}

func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = normalizeYAML(v)
		}
		return x
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
