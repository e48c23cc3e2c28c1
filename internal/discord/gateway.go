package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/charlesng35/issuerelay/internal/monitoring"
	"github.com/charlesng35/issuerelay/pkg/logger"
)

const (
	defaultMinBackoff = time.Second
	defaultMaxBackoff = time.Minute
)

// MessageHandler receives messages created in channels the bot can read.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *discordgo.Message)
}

// GatewayOptions bounds the retry delay for the initial connection.
type GatewayOptions struct {
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Gateway runs the bot session's gateway connection and forwards messages from human
// authors to a MessageHandler. Once connected, discordgo keeps the session alive with
// heartbeats and resumes; Gateway only retries the first connection.
type Gateway struct {
	session   *discordgo.Session
	handler   MessageHandler
	opts      GatewayOptions
	log       *zap.Logger
	connected atomic.Bool
	inflight  sync.WaitGroup

	mu     sync.RWMutex
	runCtx context.Context
}

// NewGateway subscribes to session events. The session is opened by Run.
func NewGateway(session *discordgo.Session, handler MessageHandler, opts GatewayOptions) (*Gateway, error) {
	if session == nil {
		return nil, errors.New("discord: session is required")
	}
	if handler == nil {
		return nil, errors.New("discord: message handler is required")
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = defaultMinBackoff
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = max(defaultMaxBackoff, opts.MinBackoff)
	}

	g := &Gateway{
		session: session,
		handler: handler,
		opts:    opts,
		log:     logger.WithModule("discord"),
		runCtx:  context.Background(),
	}
	session.AddHandler(g.onConnect)
	session.AddHandler(g.onDisconnect)
	session.AddHandler(g.onMessageCreate)
	return g, nil
}

// Connected reports whether the gateway session is established.
func (g *Gateway) Connected() bool {
	return g.connected.Load()
}

// Run opens the session, retrying with capped exponential backoff, and holds it until
// ctx is cancelled. It returns nil on cancellation.
func (g *Gateway) Run(ctx context.Context) error {
	g.mu.Lock()
	g.runCtx = ctx
	g.mu.Unlock()

	backoff := g.opts.MinBackoff
	for {
		err := g.session.Open()
		if err == nil || errors.Is(err, discordgo.ErrWSAlreadyOpen) {
			break
		}
		monitoring.RecordGatewayFailure("open", err.Error())
		g.log.Warn("gateway connection failed", zap.Duration("retry_in", backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, g.opts.MaxBackoff)
	}

	<-ctx.Done()
	err := g.session.Close()
	g.markDisconnected()
	g.inflight.Wait()
	if err != nil {
		return fmt.Errorf("discord: close gateway: %w", err)
	}
	return nil
}

func (g *Gateway) baseContext() context.Context {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.runCtx
}

func (g *Gateway) onConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	if !g.connected.Swap(true) {
		monitoring.RecordGatewayConnection(1)
		g.log.Info("gateway connected")
	}
}

func (g *Gateway) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	if !g.markDisconnected() {
		return
	}
	if g.baseContext().Err() == nil {
		monitoring.RecordGatewayFailure("disconnect", "gateway connection lost")
		g.log.Warn("gateway disconnected, waiting for discordgo to reconnect")
	}
}

func (g *Gateway) markDisconnected() bool {
	if g.connected.Swap(false) {
		monitoring.RecordGatewayConnection(-1)
		return true
	}
	return false
}

func (g *Gateway) onMessageCreate(_ *discordgo.Session, event *discordgo.MessageCreate) {
	if event == nil || event.Message == nil || event.Author == nil || event.Author.Bot {
		return
	}
	g.inflight.Add(1)
	defer g.inflight.Done()
	g.handler.HandleMessage(g.baseContext(), event.Message)
}
