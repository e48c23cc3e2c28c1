package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/charlesng35/issuerelay/internal/github"
	"github.com/charlesng35/issuerelay/internal/issue"
)

// Embed colors.
const (
	ColorOpen   = 0x238636
	ColorClosed = 0x8957E5
	ColorDraft  = 0x6E7681
)

const (
	DefaultBodyPreviewLength = 300

	maxEmbedTitle      = 256
	maxEmbedFieldValue = 1024
)

// RenderOptions tunes RenderIssue.
type RenderOptions struct {
	BodyPreviewLength int
}

// RenderIssue builds the embed shown for an issue.
func RenderIssue(ref Reference, is *issue.Issue, opts RenderOptions) *discordgo.MessageEmbed {
	preview := opts.BodyPreviewLength
	if preview <= 0 {
		preview = DefaultBodyPreviewLength
	}

	link := is.HTMLURL
	if link == "" {
		link = ref.URL()
	}

	embed := &discordgo.MessageEmbed{
		Title:       truncate(fmt.Sprintf("#%d %s", is.Number, is.Title), maxEmbedTitle),
		URL:         link,
		Description: truncate(strings.TrimSpace(is.BodyText()), preview),
		Color:       issueColor(is),
		Footer:      &discordgo.MessageEmbedFooter{Text: ref.Owner + "/" + ref.Repo},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "State", Value: stateLabel(is), Inline: true},
			{Name: "Comments", Value: strconv.Itoa(is.Comments), Inline: true},
		},
	}
	if is.Author.Login != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    is.Author.Login,
			URL:     "https://" + githubHost + "/" + is.Author.Login,
			IconURL: is.Author.AvatarURL,
		}
	}
	if names := is.LabelNames(); len(names) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Labels",
			Value: truncate(strings.Join(names, ", "), maxEmbedFieldValue),
		})
	}
	if !is.UpdatedAt.IsZero() {
		embed.Timestamp = is.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return embed
}

func issueColor(is *issue.Issue) int {
	switch {
	case !is.IsOpen():
		return ColorClosed
	case is.Draft:
		return ColorDraft
	default:
		return ColorOpen
	}
}

func stateLabel(is *issue.Issue) string {
	switch {
	case !is.IsOpen():
		return "Closed"
	case is.Draft:
		return "Draft"
	default:
		return "Open"
	}
}

// RenderFetchError turns a resolve failure into text safe to show in chat.
func RenderFetchError(err error) string {
	var fetchErr *github.FetchError
	if !errors.As(err, &fetchErr) {
		return "Something went wrong while looking up that issue."
	}
	ref := fmt.Sprintf("%s/%s#%d", fetchErr.Owner, fetchErr.Repo, fetchErr.Number)
	switch fetchErr.Kind {
	case github.KindNotFound:
		return fmt.Sprintf("Issue %s was not found.", ref)
	case github.KindForbidden:
		return fmt.Sprintf("I don't have access to %s.", ref)
	case github.KindRateLimited:
		return "GitHub rate limit reached, try again in a few minutes."
	default:
		return fmt.Sprintf("Couldn't reach GitHub to fetch %s, try again later.", ref)
	}
}

// truncate cuts s to at most limit runes, ending in an ellipsis when shortened.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}
