package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5"

	"luhack/hub/internal/devcache"
	"luhack/hub/internal/sqlcgen"
	"luhack/hub/internal/tailscale"
)

func (b *Bot) handleInfra(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	sub := data.Options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "join":
		b.handleJoin(ctx, s, i, opts["name"].StringValue())
	case "display":
		b.handleDisplay(ctx, s, i, opts["name"].StringValue())
	case "describe":
		b.handleDescribe(ctx, s, i, opts["hostname"].StringValue(), opts["description"].StringValue())
	case "delete_description":
		b.handleDeleteDescription(ctx, s, i, opts["hostname"].StringValue())
	case "clear_cache":
		b.handleClearCache(s, i)
	}
}

func (b *Bot) handleJoin(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, name string) {
	if !b.isVerified(i) {
		b.reply(s, i, "You need to be verified to join lab machines.", true)
		return
	}
	if !b.deferEphemeral(s, i) {
		return
	}

	dev, err := b.cache.DeviceByName(ctx, name)
	if errors.Is(err, devcache.ErrUnknownDevice) {
		b.editResponse(s, i, fmt.Sprintf("No machine named `%s`.", name))
		return
	}
	if err != nil {
		b.log.Error().Err(err).Str("name", name).Msg("device lookup failed")
		b.editResponse(s, i, "Couldn't reach the lab network, try again later.")
		return
	}

	b.issueInvite(ctx, s, i, dev)
}

// handleJoinButton services the persistent join button on machine cards. The
// card's message id maps to a hostname; a hostname shared by several devices
// is resolved to the first match with a warning.
func (b *Bot) handleJoinButton(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isVerified(i) {
		b.reply(s, i, "You need to be verified to join lab machines.", true)
		return
	}
	if !b.deferEphemeral(s, i) {
		return
	}

	messageID, err := parseSnowflake(i.Message.ID)
	if err != nil {
		b.editResponse(s, i, "This machine card is broken, ask an admin to repost it.")
		return
	}
	display, err := b.queries.GetMachineDisplay(ctx, messageID)
	if errors.Is(err, pgx.ErrNoRows) {
		b.editResponse(s, i, "This machine card is no longer tracked, ask an admin to repost it.")
		return
	}
	if err != nil {
		b.log.Error().Err(err).Int64("message_id", messageID).Msg("machine display lookup failed")
		b.editResponse(s, i, "Something went wrong, try again later.")
		return
	}

	devs, err := b.cache.DevicesByHostname(ctx, display.MachineHostname)
	if err != nil {
		b.log.Error().Err(err).Str("hostname", display.MachineHostname).Msg("device lookup failed")
		b.editResponse(s, i, "Couldn't reach the lab network, try again later.")
		return
	}
	if len(devs) == 0 {
		b.editResponse(s, i, fmt.Sprintf("No machine with hostname `%s` is online right now.", display.MachineHostname))
		return
	}
	if len(devs) > 1 {
		b.log.Warn().Str("hostname", display.MachineHostname).Int("matches", len(devs)).
			Msg("hostname resolves to multiple devices, using first")
	}

	b.issueInvite(ctx, s, i, devs[0])
}

// issueInvite runs the rate limit, audit log and invite flow shared by the
// join command and the join button. The response must already be deferred.
func (b *Bot) issueInvite(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, dev tailscale.Device) {
	user := interactionUser(i)
	if !b.limiter.Allow(ctx, user.ID) {
		b.editResponse(s, i, "You're requesting invites too quickly, try again in a few minutes.")
		return
	}

	if b.cfg.LogChannelID != "" {
		msg := fmt.Sprintf("%s requested access to node %s", user.Username, dev.Name)
		if _, err := s.ChannelMessageSend(b.cfg.LogChannelID, msg); err != nil {
			b.log.Error().Err(err).Msg("audit log message failed")
		}
	}

	code, err := b.invites.Issue(ctx, dev.ID)
	if err != nil {
		b.log.Error().Err(err).Str("node", dev.Name).Msg("invite issue failed")
		b.editResponse(s, i, "Couldn't create an invite right now, try again later.")
		return
	}

	addr := "unknown"
	if len(dev.Addresses) > 0 {
		addr = dev.Addresses[0]
	}
	b.editResponse(s, i, fmt.Sprintf("Invite for **%s** (`%s`):\n%s", dev.Name, addr, b.ts.InviteURL(code)))
}

func (b *Bot) handleDisplay(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, name string) {
	if !isAdmin(i) {
		b.reply(s, i, "Only admins can post machine cards.", true)
		return
	}

	dev, err := b.cache.DeviceByName(ctx, name)
	if errors.Is(err, devcache.ErrUnknownDevice) {
		b.reply(s, i, fmt.Sprintf("No machine named `%s`.", name), true)
		return
	}
	if err != nil {
		b.log.Error().Err(err).Str("name", name).Msg("device lookup failed")
		b.reply(s, i, "Couldn't reach the lab network, try again later.", true)
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{machineEmbed(ctx, b.queries, dev)},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{Label: "Join", Style: discordgo.PrimaryButton, CustomID: joinButtonID},
				}},
			},
		},
	})
	if err != nil {
		b.log.Error().Err(err).Msg("machine card respond failed")
		return
	}

	msg, err := s.InteractionResponse(i.Interaction)
	if err != nil {
		b.log.Error().Err(err).Msg("machine card fetch failed")
		return
	}
	messageID, err := parseSnowflake(msg.ID)
	if err != nil {
		b.log.Error().Err(err).Str("message_id", msg.ID).Msg("bad message id")
		return
	}
	err = b.queries.CreateMachineDisplay(ctx, sqlcgen.CreateMachineDisplayParams{
		DiscordMessageID: messageID,
		MachineHostname:  dev.Hostname,
	})
	if err != nil {
		b.log.Error().Err(err).Int64("message_id", messageID).Msg("machine display persist failed")
	}
}

func machineEmbed(ctx context.Context, q Queries, dev tailscale.Device) *discordgo.MessageEmbed {
	desc := "No description set."
	if m, err := q.GetMachineByHostname(ctx, dev.Hostname); err == nil && m.Description != "" {
		desc = m.Description
	}

	status := "offline"
	if dev.Connected {
		status = "online"
	}
	return &discordgo.MessageEmbed{
		Title:       dev.Name,
		Description: desc,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Hostname", Value: dev.Hostname, Inline: true},
			{Name: "Address", Value: strings.Join(dev.Addresses, ", "), Inline: true},
			{Name: "Status", Value: status, Inline: true},
		},
	}
}

func (b *Bot) handleDescribe(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, hostname, description string) {
	if !isAdmin(i) {
		b.reply(s, i, "Only admins can describe machines.", true)
		return
	}

	_, err := b.queries.UpsertMachine(ctx, sqlcgen.UpsertMachineParams{
		Hostname:    hostname,
		Description: description,
	})
	if err != nil {
		b.log.Error().Err(err).Str("hostname", hostname).Msg("machine upsert failed")
		b.reply(s, i, "Couldn't save the description, try again later.", true)
		return
	}
	b.cache.Invalidate()
	b.reply(s, i, fmt.Sprintf("Description for `%s` updated.", hostname), true)
}

func (b *Bot) handleDeleteDescription(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, hostname string) {
	if !isAdmin(i) {
		b.reply(s, i, "Only admins can delete machine descriptions.", true)
		return
	}

	deleted, err := b.queries.DeleteMachineByHostname(ctx, hostname)
	if err != nil {
		b.log.Error().Err(err).Str("hostname", hostname).Msg("machine delete failed")
		b.reply(s, i, "Couldn't delete the description, try again later.", true)
		return
	}
	if deleted == 0 {
		b.reply(s, i, fmt.Sprintf("`%s` had no description.", hostname), true)
		return
	}
	b.cache.Invalidate()
	b.reply(s, i, fmt.Sprintf("Description for `%s` deleted.", hostname), true)
}

func (b *Bot) handleClearCache(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !isAdmin(i) {
		b.reply(s, i, "Only admins can clear the device cache.", true)
		return
	}
	b.cache.Invalidate()
	b.reply(s, i, "Device cache cleared.", true)
}

// handleAutocomplete completes machine name and hostname options from the
// device cache's fuzzy search.
func (b *Bot) handleAutocomplete(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != "infra" || len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]

	var focused *discordgo.ApplicationCommandInteractionDataOption
	for _, opt := range sub.Options {
		if opt.Focused {
			focused = opt
			break
		}
	}
	if focused == nil {
		return
	}

	results, err := b.cache.Search(ctx, focused.StringValue())
	if err != nil {
		b.log.Error().Err(err).Msg("autocomplete search failed")
		results = nil
	}

	byHostname := focused.Name == "hostname"
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, res := range results {
		value := res.Device.Name
		if byHostname {
			value = res.Device.Hostname
		}
		if seen[value] {
			continue
		}
		seen[value] = true
		label := value
		if !byHostname && res.Description != "" {
			label = fmt.Sprintf("%s (%s)", res.Description, res.Device.Name)
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: label, Value: value})
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		b.log.Error().Err(err).Msg("autocomplete respond failed")
	}
}
