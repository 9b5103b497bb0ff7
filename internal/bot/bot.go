// Package bot exposes the infrastructure, todo and site commands over a
// Discord gateway session.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"luhack/hub/internal/auth"
	"luhack/hub/internal/config"
	"luhack/hub/internal/devcache"
	"luhack/hub/internal/ratelimit"
	"luhack/hub/internal/sqlcgen"
	"luhack/hub/internal/tailscale"
)

// interactionTimeout bounds the work done for a single interaction. Deferred
// responses give us far longer than this, but nothing we do should take it.
const interactionTimeout = 10 * time.Second

// joinButtonID is the component id of the persistent join button attached to
// machine cards. It must stay stable across restarts so old cards keep
// working.
const joinButtonID = "machine_info_join"

// Queries is the subset of the generated query layer the bot uses.
type Queries interface {
	UpsertUser(ctx context.Context, arg sqlcgen.UpsertUserParams) (sqlcgen.User, error)
	GetMachineByHostname(ctx context.Context, hostname string) (sqlcgen.Machine, error)
	UpsertMachine(ctx context.Context, arg sqlcgen.UpsertMachineParams) (sqlcgen.Machine, error)
	DeleteMachineByHostname(ctx context.Context, hostname string) (int64, error)
	CreateMachineDisplay(ctx context.Context, arg sqlcgen.CreateMachineDisplayParams) error
	GetMachineDisplay(ctx context.Context, discordMessageID int64) (sqlcgen.MachineDisplay, error)
	CreateTodo(ctx context.Context, arg sqlcgen.CreateTodoParams) (sqlcgen.Todo, error)
	GetTodo(ctx context.Context, id int32) (sqlcgen.Todo, error)
	ListOpenTodos(ctx context.Context) ([]sqlcgen.Todo, error)
	ListOpenTodosByAssignee(ctx context.Context, assigned int64) ([]sqlcgen.Todo, error)
	CompleteTodo(ctx context.Context, arg sqlcgen.CompleteTodoParams) (sqlcgen.Todo, error)
	AssignTodo(ctx context.Context, arg sqlcgen.AssignTodoParams) (sqlcgen.Todo, error)
	UpdateTodoContent(ctx context.Context, arg sqlcgen.UpdateTodoContentParams) (sqlcgen.Todo, error)
	UpdateTodoDeadline(ctx context.Context, arg sqlcgen.UpdateTodoDeadlineParams) (sqlcgen.Todo, error)
	DeleteTodo(ctx context.Context, id int32) (int64, error)
}

// Inviter issues tailnet invite codes for a node.
type Inviter interface {
	Issue(ctx context.Context, nodeID string) (string, error)
}

// Bot wires the device cache, invite issuer and persistence to the Discord
// command surface.
type Bot struct {
	log     zerolog.Logger
	cfg     config.Discord
	siteURL string

	session *discordgo.Session
	cache   *devcache.Cache
	invites Inviter
	ts      *tailscale.Client
	queries Queries
	tokens  *auth.Tokens
	limiter *ratelimit.InviteLimiter
}

// New builds a Bot and its gateway session. The session is not opened until
// Run is called.
func New(log zerolog.Logger, cfg config.Discord, siteURL string, cache *devcache.Cache, invites Inviter, ts *tailscale.Client, queries Queries, tokens *auth.Tokens, limiter *ratelimit.InviteLimiter) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("bot: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	return &Bot{
		log:     log.With().Str("component", "bot").Logger(),
		cfg:     cfg,
		siteURL: siteURL,
		session: session,
		cache:   cache,
		invites: invites,
		ts:      ts,
		queries: queries,
		tokens:  tokens,
		limiter: limiter,
	}, nil
}

// Run opens the gateway session, registers the guild commands and blocks
// until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("bot: open gateway: %w", err)
	}
	defer b.session.Close()

	appID := b.session.State.User.ID
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, commands()); err != nil {
		return fmt.Errorf("bot: register commands: %w", err)
	}
	b.log.Info().Str("guild", b.cfg.GuildID).Msg("bot ready")

	<-ctx.Done()
	return nil
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		switch data.Name {
		case "infra":
			b.handleInfra(ctx, s, i, data)
		case "todo":
			b.handleTodo(ctx, s, i, data)
		case "site":
			b.handleSite(ctx, s, i, data)
		}
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(ctx, s, i)
	case discordgo.InteractionMessageComponent:
		if i.MessageComponentData().CustomID == joinButtonID {
			b.handleJoinButton(ctx, s, i)
		}
	}
}

// isAdmin reports whether the interaction comes from a member with the
// administrator permission.
func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

// isVerified reports whether the member carries the verified role. An empty
// role id disables the check.
func (b *Bot) isVerified(i *discordgo.InteractionCreate) bool {
	if b.cfg.VerifiedRoleID == "" {
		return true
	}
	if i.Member == nil {
		return false
	}
	for _, role := range i.Member.Roles {
		if role == b.cfg.VerifiedRoleID {
			return true
		}
	}
	return false
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func parseSnowflake(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}

// reply sends the initial interaction response.
func (b *Bot) reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
	})
	if err != nil {
		b.log.Error().Err(err).Msg("interaction respond failed")
	}
}

// deferEphemeral acknowledges the interaction so a slow handler can edit the
// response in later.
func (b *Bot) deferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		b.log.Error().Err(err).Msg("interaction defer failed")
		return false
	}
	return true
}

func (b *Bot) editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
	if err != nil {
		b.log.Error().Err(err).Msg("interaction edit failed")
	}
}

// optionMap indexes subcommand options by name.
func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}
