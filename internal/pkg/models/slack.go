package models

type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
type SlackBlock struct {
	Type   string       `json:"type"`
	Text   *SlackText   `json:"text,omitempty"`
	Fields *[]SlackText `json:"fields,omitempty"`
}
type SlackWebhookData struct {
	Text   string       `json:"text,omitempty"`
	Blocks []SlackBlock `json:"blocks"`
}
type SlackConnectionsOpen struct {
	Ok    bool   `json:"ok"`
	Url   string `json:"url"`
	Error string `json:"error"`
}
type SlackSocketData struct {
	EnvelopeId             string             `json:"envelope_id"`
	Payload                SlackSocketPayload `json:"payload"`
	Type                   string             `json:"type"`
	AcceptsResponsePayload bool               `json:"accepts_response_payload"`
}
type SlackSocketPayload struct {
	Token       string `json:"token"`
	TeamId      string `json:"team_id"`
	ChannelId   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	UserId      string `json:"user_id"`
	UserName    string `json:"user_name"`
	Command     string `json:"command"`
	Text        string `json:"text"`
	ResponseUrl string `json:"response_url"`
	TriggerId   string `json:"trigger_id"`
}
type SlackSocketAck struct {
	EnvelopeId string               `json:"envelope_id"`
	Payload    *SlackSocketResponse `json:"payload,omitempty"`
}
type SlackSocketResponse struct {
	Text string `json:"text"`
}
