// Package discord connects the relay to Discord through discordgo: the bot session that
// carries the gateway and message replies, and the signed interactions endpoint.
package discord

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/charlesng35/issuerelay/pkg/logger"
)

// DefaultIntents subscribes to guild and direct messages with their content.
const DefaultIntents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

const (
	defaultRESTTimeout = 10 * time.Second
	userAgent          = "DiscordBot (https://github.com/charlesng35/issuerelay, 1.0)"
)

// SessionConfig configures the bot session.
type SessionConfig struct {
	Token string
	// APIBaseURL re-points REST calls, including gateway discovery, at another host.
	APIBaseURL string
	Intents    int
	Timeout    time.Duration
}

// NewSession builds a bot session without connecting it. Gateway.Run opens it.
func NewSession(cfg SessionConfig) (*discordgo.Session, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("discord: bot token is required")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}

	intents := discordgo.Intent(cfg.Intents)
	if intents == 0 {
		intents = DefaultIntents
	}
	session.Identify.Intents = intents
	session.UserAgent = userAgent
	session.StateEnabled = false
	session.LogLevel = discordgo.LogWarning

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRESTTimeout
	}
	var transport http.RoundTripper = http.DefaultTransport
	if base := strings.TrimSpace(cfg.APIBaseURL); base != "" {
		target, err := url.Parse(strings.TrimRight(base, "/") + "/")
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("discord: invalid api base url %q", cfg.APIBaseURL)
		}
		transport = &rebaseTransport{target: target, next: transport}
	}
	session.Client = &http.Client{Timeout: timeout, Transport: transport}

	routeLibraryLogs()
	return session, nil
}

// rebaseTransport rewrites requests aimed at discordgo's API endpoint onto target.
type rebaseTransport struct {
	target *url.URL
	next   http.RoundTripper
}

func (t *rebaseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rest, ok := strings.CutPrefix(req.URL.String(), discordgo.EndpointAPI)
	if !ok {
		return t.next.RoundTrip(req)
	}
	rebased, err := t.target.Parse(rest)
	if err != nil {
		return nil, fmt.Errorf("discord: rebase %s: %w", req.URL, err)
	}
	out := req.Clone(req.Context())
	out.URL = rebased
	out.Host = rebased.Host
	return t.next.RoundTrip(out)
}

var routeLogsOnce sync.Once

// routeLibraryLogs sends discordgo's package logger through zap.
func routeLibraryLogs() {
	routeLogsOnce.Do(func() {
		discordgo.Logger = func(level, _ int, format string, args ...interface{}) {
			log := logger.WithModule("discordgo")
			msg := fmt.Sprintf(format, args...)
			switch level {
			case discordgo.LogError:
				log.Error(msg)
			case discordgo.LogWarning:
				log.Warn(msg)
			case discordgo.LogInformational:
				log.Info(msg)
			default:
				log.Debug(msg, zap.Int("level", level))
			}
		}
	})
}
