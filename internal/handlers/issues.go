package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/issuerelay/internal/bot"
	"github.com/charlesng35/issuerelay/internal/issue"
	appErrors "github.com/charlesng35/issuerelay/pkg/errors"
	"github.com/charlesng35/issuerelay/pkg/response"
)

// IssueLookup resolves and renders an issue; bot.Bot satisfies it.
type IssueLookup interface {
	Lookup(ctx context.Context, ref bot.Reference) (*issue.Issue, *discordgo.MessageEmbed, bot.Source, error)
}

// IssueHandler serves issues through the cache with GitHub as fallback.
type IssueHandler struct {
	lookup IssueLookup
}

func NewIssueHandler(lookup IssueLookup) (*IssueHandler, error) {
	if lookup == nil {
		return nil, errors.New("issue handler: lookup is required")
	}
	return &IssueHandler{lookup: lookup}, nil
}

type issueResponse struct {
	Reference string                  `json:"reference"`
	Source    bot.Source              `json:"source"`
	Issue     *issue.Issue            `json:"issue"`
	Embed     *discordgo.MessageEmbed `json:"embed"`
}

// GET /api/issues/:owner/:repo/:number
func (h *IssueHandler) Get(c *gin.Context) {
	ref, ok := bindIssuePath(c)
	if !ok {
		return
	}

	found, embed, source, err := h.lookup.Lookup(requestContext(c), ref)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			response.Error(c, appErrors.ErrUpstreamUnavailable.WithInternal(err))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, issueResponse{
		Reference: ref.String(),
		Source:    source,
		Issue:     found,
		Embed:     embed,
	})
}
