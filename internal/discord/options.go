package discord

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// CommandData returns the application command payload of interaction.
func CommandData(interaction *discordgo.Interaction) (discordgo.ApplicationCommandInteractionData, bool) {
	if interaction == nil || interaction.Type != discordgo.InteractionApplicationCommand {
		return discordgo.ApplicationCommandInteractionData{}, false
	}
	data, ok := interaction.Data.(discordgo.ApplicationCommandInteractionData)
	return data, ok
}

// OptionString returns the named option as a string. Unlike the discordgo accessors it
// does not panic on a type mismatch.
func OptionString(data discordgo.ApplicationCommandInteractionData, name string) (string, bool) {
	opt := findOption(data, name)
	if opt == nil {
		return "", false
	}
	switch v := opt.Value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// OptionInt returns the named option as an integer. Integer options arrive as JSON
// numbers; string values holding a number, optionally prefixed with "#", are accepted.
func OptionInt(data discordgo.ApplicationCommandInteractionData, name string) (int, error) {
	opt := findOption(data, name)
	if opt == nil {
		return 0, fmt.Errorf("option %q missing", name)
	}
	switch v := opt.Value.(type) {
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return 0, fmt.Errorf("option %q is not a number", name)
		}
		return int(v), nil
	case string:
		number, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(v), "#"))
		if err != nil {
			return 0, fmt.Errorf("option %q is not a number", name)
		}
		return number, nil
	default:
		return 0, fmt.Errorf("option %q is not a number", name)
	}
}

func findOption(data discordgo.ApplicationCommandInteractionData, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range data.Options {
		if opt != nil && opt.Name == name && opt.Value != nil {
			return opt
		}
	}
	return nil
}

// Invoker returns the user who triggered the interaction.
func Invoker(interaction *discordgo.Interaction) *discordgo.User {
	if interaction == nil {
		return nil
	}
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User
	}
	return interaction.User
}

// EphemeralReply builds a text reply only the invoking user can see.
func EphemeralReply(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         content,
			Flags:           discordgo.MessageFlagsEphemeral,
			AllowedMentions: NoMentions(),
		},
	}
}

// NoMentions keeps relayed text from pinging anyone.
func NoMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
}
