package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/charlesng35/issuerelay/internal/discord"
	"github.com/charlesng35/issuerelay/internal/issue"
	"github.com/charlesng35/issuerelay/internal/monitoring"
	"github.com/charlesng35/issuerelay/pkg/logger"
)

// CommandName is the slash command answered by HandleCommand.
const CommandName = "issue"

const (
	optionRepository = "repository"
	optionNumber     = "number"

	// Discord drops interactions not answered within three seconds.
	commandTimeout = 2500 * time.Millisecond
	messageTimeout = 15 * time.Second
)

// Options configures the chat bot.
type Options struct {
	MaxReferences int
	// DefaultRepository is "owner/repo"; it enables bare #123 references.
	DefaultRepository string
	BodyPreviewLength int
}

// MessageSender posts a message to a channel.
type MessageSender interface {
	CreateMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) error
}

// Bot answers chat messages and the issue slash command.
type Bot struct {
	resolver     *Resolver
	sender       MessageSender
	opts         Options
	defaultOwner string
	defaultRepo  string
	log          *zap.Logger
}

// New validates opts and builds a bot. sender may be nil when only slash commands are served.
func New(resolver *Resolver, sender MessageSender, opts Options) (*Bot, error) {
	if resolver == nil {
		return nil, errors.New("bot: resolver is required")
	}
	if opts.MaxReferences <= 0 {
		opts.MaxReferences = DefaultMaxReferences
	}
	if opts.BodyPreviewLength <= 0 {
		opts.BodyPreviewLength = DefaultBodyPreviewLength
	}

	b := &Bot{resolver: resolver, sender: sender, opts: opts, log: logger.WithModule("bot")}
	if strings.TrimSpace(opts.DefaultRepository) != "" {
		owner, repo, err := ParseRepository(opts.DefaultRepository)
		if err != nil {
			return nil, fmt.Errorf("bot: default repository: %w", err)
		}
		b.defaultOwner, b.defaultRepo = owner, repo
	}
	return b, nil
}

// Lookup resolves ref and renders it.
func (b *Bot) Lookup(ctx context.Context, ref Reference) (*issue.Issue, *discordgo.MessageEmbed, Source, error) {
	ref = ref.Normalize()
	found, source, err := b.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, nil, "", err
	}
	return found, RenderIssue(ref, found, RenderOptions{BodyPreviewLength: b.opts.BodyPreviewLength}), source, nil
}

// HandleMessage replies to a message that mentions issues with one embed per issue.
func (b *Bot) HandleMessage(ctx context.Context, msg *discordgo.Message) {
	if msg == nil || msg.Author == nil || msg.Author.Bot || b.sender == nil {
		return
	}
	refs := DetectReferences(msg.Content, DetectOptions{
		DefaultOwner:  b.defaultOwner,
		DefaultRepo:   b.defaultRepo,
		MaxReferences: b.opts.MaxReferences,
	})
	if len(refs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, messageTimeout)
	defer cancel()

	var (
		embeds   []*discordgo.MessageEmbed
		failures []string
	)
	for _, ref := range refs {
		_, embed, source, err := b.Lookup(ctx, ref)
		if err != nil {
			b.log.Debug("reference lookup failed", zap.String("ref", ref.String()), zap.Error(err))
			failures = append(failures, RenderFetchError(err))
			continue
		}
		b.log.Debug("reference resolved", zap.String("ref", ref.String()), zap.String("source", string(source)))
		embeds = append(embeds, embed)
	}

	reply := &discordgo.MessageSend{
		Content:         strings.Join(failures, "\n"),
		Embeds:          embeds,
		Reference:       &discordgo.MessageReference{MessageID: msg.ID, ChannelID: msg.ChannelID, GuildID: msg.GuildID},
		AllowedMentions: discord.NoMentions(),
	}
	if err := b.sender.CreateMessage(ctx, msg.ChannelID, reply); err != nil {
		monitoring.RecordChatEvent("message", monitoring.ResultFailure)
		b.log.Warn("failed to send reply", zap.String("channel_id", msg.ChannelID), zap.Error(err))
		return
	}
	result := monitoring.ResultSuccess
	if len(embeds) == 0 {
		result = monitoring.ResultFailure
	}
	monitoring.RecordChatEvent("message", result)
}

// HandleCommand answers the issue slash command.
func (b *Bot) HandleCommand(ctx context.Context, interaction *discordgo.Interaction) *discordgo.InteractionResponse {
	data, ok := discord.CommandData(interaction)
	if !ok || data.Name != CommandName {
		monitoring.RecordChatEvent("command", monitoring.ResultFailure)
		return discord.EphemeralReply("Unknown command.")
	}

	ref, err := b.commandReference(data)
	if err != nil {
		monitoring.RecordChatEvent("command", monitoring.ResultFailure)
		return discord.EphemeralReply(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	_, embed, source, err := b.Lookup(ctx, ref)
	if err != nil {
		monitoring.RecordChatEvent("command", monitoring.ResultFailure)
		return discord.EphemeralReply(RenderFetchError(err))
	}

	if user := discord.Invoker(interaction); user != nil {
		b.log.Debug("issue command answered",
			zap.String("user_id", user.ID),
			zap.String("ref", ref.String()),
			zap.String("source", string(source)),
		)
	}
	monitoring.RecordChatEvent("command", monitoring.ResultSuccess)
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:          []*discordgo.MessageEmbed{embed},
			AllowedMentions: discord.NoMentions(),
		},
	}
}

func (b *Bot) commandReference(data discordgo.ApplicationCommandInteractionData) (Reference, error) {
	owner, repo := b.defaultOwner, b.defaultRepo
	if value, ok := discord.OptionString(data, optionRepository); ok && strings.TrimSpace(value) != "" {
		var err error
		owner, repo, err = ParseRepository(value)
		if err != nil {
			return Reference{}, errors.New("Repository must look like owner/repo.")
		}
	}
	if owner == "" || repo == "" {
		return Reference{}, errors.New("Specify a repository as owner/repo.")
	}

	number, err := discord.OptionInt(data, optionNumber)
	if err != nil || number < 1 {
		return Reference{}, errors.New("Specify a valid issue number.")
	}
	return Reference{Owner: owner, Repo: repo, Number: number}, nil
}

var (
	_ discord.MessageHandler = (*Bot)(nil)
	_ discord.CommandHandler = (*Bot)(nil)
)
