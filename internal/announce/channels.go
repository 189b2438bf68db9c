// Package announce implements the Notifier: it posts a message to the Slack
// channel selected by the message's severity level.
package announce

import (
	"deploynotify/internal/config"
	"deploynotify/internal/types"
)

// ChannelMap routes severity levels to Slack channel names. It is built once
// at cold start and never modified.
type ChannelMap struct {
	Error string
	Info  string
	Debug string
}

// NewChannelMap builds a ChannelMap from the loaded channel configuration.
func NewChannelMap(cfg config.ChannelConfig) ChannelMap {
	return ChannelMap{
		Error: cfg.Error,
		Info:  cfg.Info,
		Debug: cfg.Debug,
	}
}

// Resolve returns the channel for level. Unknown and empty levels go to the
// debug channel.
func (m ChannelMap) Resolve(level types.Level) string {
	switch level {
	case types.LevelError:
		return m.Error
	case types.LevelInfo:
		return m.Info
	default:
		return m.Debug
	}
}
