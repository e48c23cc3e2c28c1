package discord

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/issuerelay/internal/monitoring"
	"github.com/charlesng35/issuerelay/pkg/logger"
)

const maxInteractionBody = 1 << 20

// CommandHandler answers application commands.
type CommandHandler interface {
	HandleCommand(ctx context.Context, interaction *discordgo.Interaction) *discordgo.InteractionResponse
}

// InteractionHandler serves the interactions endpoint. Every request must carry a valid
// Ed25519 signature from the application's public key.
type InteractionHandler struct {
	publicKey ed25519.PublicKey
	commands  CommandHandler
	log       *zap.Logger
}

// NewInteractionHandler parses the hex encoded application public key.
func NewInteractionHandler(publicKeyHex string, commands CommandHandler) (*InteractionHandler, error) {
	key, err := hex.DecodeString(strings.TrimSpace(publicKeyHex))
	if err != nil {
		return nil, fmt.Errorf("discord: decode public key: %w", err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("discord: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(key))
	}
	if commands == nil {
		return nil, errors.New("discord: command handler is required")
	}
	return &InteractionHandler{
		publicKey: ed25519.PublicKey(key),
		commands:  commands,
		log:       logger.WithModule("discord"),
	}, nil
}

// Handle is the gin handler for POST /interactions.
func (h *InteractionHandler) Handle(c *gin.Context) {
	if c.Request.Body == nil {
		c.Request.Body = http.NoBody
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxInteractionBody)

	if !discordgo.VerifyInteraction(c.Request, h.publicKey) {
		monitoring.RecordChatEvent("interaction", "unauthorized")
		c.String(http.StatusUnauthorized, "invalid request signature")
		return
	}

	var interaction discordgo.Interaction
	if err := json.NewDecoder(c.Request.Body).Decode(&interaction); err != nil {
		c.String(http.StatusBadRequest, "malformed interaction")
		return
	}

	switch interaction.Type {
	case discordgo.InteractionPing:
		c.JSON(http.StatusOK, discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong})
	case discordgo.InteractionApplicationCommand:
		resp := h.commands.HandleCommand(c.Request.Context(), &interaction)
		if resp == nil {
			resp = EphemeralReply("Something went wrong.")
		}
		c.JSON(http.StatusOK, resp)
	default:
		h.log.Debug("unsupported interaction type", zap.Int("type", int(interaction.Type)))
		c.String(http.StatusBadRequest, "unsupported interaction type")
	}
}
