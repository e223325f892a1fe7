package models

const (
	DiscordColorOrange = 0xE67E22
	DiscordColorGreen  = 0x2ECC71
	DiscordColorRed    = 0xE74C3C
)

type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}
type DiscordEmbedFooter struct {
	Text    string `json:"text"`
	IconUrl string `json:"icon_url,omitempty"`
}
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
}
type DiscordWebhookData struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds"`
}
