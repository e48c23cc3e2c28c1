package app

import (
	"errors"
	"strings"

	"github.com/charlesng35/issuerelay/internal/bot"
	"github.com/charlesng35/issuerelay/internal/discord"
	"github.com/charlesng35/issuerelay/internal/github"
)

// ClientConfig converts the GitHub section into client settings.
func (c GitHubConfig) ClientConfig() github.Config {
	return github.Config{
		Token:     strings.TrimSpace(c.Token),
		BaseURL:   strings.TrimSpace(c.BaseURL),
		Timeout:   c.Timeout,
		UserAgent: strings.TrimSpace(c.UserAgent),
	}
}

// Validate reports missing credentials when the integration is enabled.
func (c DiscordConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	var missing []string
	if strings.TrimSpace(c.BotToken) == "" {
		missing = append(missing, "discord.bot_token")
	}
	if strings.TrimSpace(c.PublicKey) == "" {
		missing = append(missing, "discord.public_key")
	}
	if len(missing) > 0 {
		return errors.New("config: discord enabled but missing " + strings.Join(missing, ", "))
	}
	return nil
}

// SessionConfig returns settings for the shared Discord session used by both the REST
// sender and the gateway.
func (c DiscordConfig) SessionConfig() discord.SessionConfig {
	return discord.SessionConfig{
		Token:      strings.TrimSpace(c.BotToken),
		APIBaseURL: strings.TrimSpace(c.APIBaseURL),
		Intents:    c.Intents,
		Timeout:    c.Timeout,
	}
}

// Options converts the bot section into bot options.
func (c BotConfig) Options() bot.Options {
	return bot.Options{
		MaxReferences:     c.MaxReferences,
		DefaultRepository: strings.TrimSpace(c.DefaultRepository),
		BodyPreviewLength: c.BodyPreviewLength,
	}
}
