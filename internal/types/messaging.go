package types

// Level is the severity attached to a notification. It selects the Slack
// channel the message is posted to.
type Level string

const (
	LevelError Level = "error"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// NotificationEvent is the payload accepted by the announce function. Both
// fields are optional; a missing level routes to the debug channel.
type NotificationEvent struct {
	Level   Level  `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
}

// ChatMessage is the body posted to Slack's chat.postMessage method.
type ChatMessage struct {
	IconEmoji string `json:"icon_emoji"`
	Channel   string `json:"channel"`
	Text      string `json:"text,omitempty"`
}
