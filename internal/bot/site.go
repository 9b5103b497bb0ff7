package bot

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bwmarrin/discordgo"

	"luhack/hub/internal/auth"
	"luhack/hub/internal/sqlcgen"
)

// handleSite services /site token: record the user, mint a signed login
// token and DM the login link.
func (b *Bot) handleSite(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if data.Options[0].Name != "token" {
		return
	}
	if !b.isVerified(i) {
		b.reply(s, i, "You need to be verified to use the writeup site.", true)
		return
	}

	user := interactionUser(i)
	discordID, err := parseSnowflake(user.ID)
	if err != nil {
		b.reply(s, i, "Something went wrong, try again later.", true)
		return
	}

	_, err = b.queries.UpsertUser(ctx, sqlcgen.UpsertUserParams{
		DiscordID: discordID,
		Username:  user.Username,
	})
	if err != nil {
		b.log.Error().Err(err).Int64("discord_id", discordID).Msg("user upsert failed")
		b.reply(s, i, "Something went wrong, try again later.", true)
		return
	}

	token, err := b.tokens.Mint(auth.Identity{
		DiscordID: discordID,
		Username:  user.Username,
		Admin:     isAdmin(i),
	})
	if err != nil {
		b.log.Error().Err(err).Msg("token mint failed")
		b.reply(s, i, "Something went wrong, try again later.", true)
		return
	}

	link := fmt.Sprintf("%s/auth?token=%s", b.siteURL, url.QueryEscape(token))
	channel, err := s.UserChannelCreate(user.ID)
	if err != nil {
		b.log.Error().Err(err).Msg("dm channel create failed")
		b.reply(s, i, "Couldn't DM you, check your privacy settings.", true)
		return
	}
	msg := fmt.Sprintf("Log in to the writeup site here (link is valid for a limited time):\n%s", link)
	if _, err := s.ChannelMessageSend(channel.ID, msg); err != nil {
		b.log.Error().Err(err).Msg("dm send failed")
		b.reply(s, i, "Couldn't DM you, check your privacy settings.", true)
		return
	}
	b.reply(s, i, "Check your DMs for a login link.", true)
}
