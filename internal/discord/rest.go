package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// REST posts bot replies through the session's REST client.
type REST struct {
	session *discordgo.Session
}

// NewREST wraps session.
func NewREST(session *discordgo.Session) (*REST, error) {
	if session == nil {
		return nil, errors.New("discord: session is required")
	}
	return &REST{session: session}, nil
}

// CreateMessage posts msg to a channel. Non-2xx answers surface as *discordgo.RESTError.
func (r *REST) CreateMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) error {
	if _, err := r.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: create message in %s: %w", channelID, err)
	}
	return nil
}
