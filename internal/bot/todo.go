package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5"

	"luhack/hub/internal/sqlcgen"
)

const deadlineLayout = "2006-01-02"

func (b *Bot) handleTodo(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !isAdmin(i) {
		b.reply(s, i, "Only admins can manage todos.", true)
		return
	}

	sub := data.Options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "add":
		b.todoAdd(ctx, s, i, opts)
	case "view":
		b.todoView(ctx, s, i, opts)
	case "list":
		b.todoList(ctx, s, i, opts)
	case "complete":
		b.todoClose(ctx, s, i, opts, false)
	case "cancel":
		b.todoClose(ctx, s, i, opts, true)
	case "assign":
		b.todoAssign(ctx, s, i, opts)
	case "unassign":
		b.todoUnassign(ctx, s, i, opts)
	case "edit":
		b.todoEdit(ctx, s, i, opts)
	case "delete":
		b.todoDelete(ctx, s, i, opts)
	}
}

func (b *Bot) todoAdd(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	params := sqlcgen.CreateTodoParams{Content: opts["content"].StringValue()}
	if opt, ok := opts["deadline"]; ok {
		deadline, err := time.Parse(deadlineLayout, opt.StringValue())
		if err != nil {
			b.reply(s, i, "Deadline must be YYYY-MM-DD.", true)
			return
		}
		params.Deadline = &deadline
	}

	todo, err := b.queries.CreateTodo(ctx, params)
	if err != nil {
		b.log.Error().Err(err).Msg("todo create failed")
		b.reply(s, i, "Couldn't create the todo, try again later.", true)
		return
	}
	b.reply(s, i, "Created: "+formatTodo(todo), false)
}

func (b *Bot) todoView(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	id := int32(opts["id"].IntValue())
	todo, err := b.queries.GetTodo(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		b.reply(s, i, fmt.Sprintf("No todo #%d.", id), true)
		return
	}
	if err != nil {
		b.log.Error().Err(err).Int32("id", id).Msg("todo fetch failed")
		b.reply(s, i, "Couldn't fetch the todo, try again later.", true)
		return
	}
	b.reply(s, i, formatTodo(todo), true)
}

func (b *Bot) todoList(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	var (
		todos []sqlcgen.Todo
		err   error
	)
	if opt, ok := opts["assignee"]; ok {
		var assignee int64
		assignee, err = parseSnowflake(opt.UserValue(nil).ID)
		if err == nil {
			todos, err = b.queries.ListOpenTodosByAssignee(ctx, assignee)
		}
	} else {
		todos, err = b.queries.ListOpenTodos(ctx)
	}
	if err != nil {
		b.log.Error().Err(err).Msg("todo list failed")
		b.reply(s, i, "Couldn't list todos, try again later.", true)
		return
	}
	if len(todos) == 0 {
		b.reply(s, i, "No open todos.", true)
		return
	}

	lines := make([]string, len(todos))
	for idx, todo := range todos {
		lines[idx] = formatTodo(todo)
	}
	b.reply(s, i, strings.Join(lines, "\n"), true)
}

func (b *Bot) todoClose(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption, cancelled bool) {
	id := int32(opts["id"].IntValue())
	todo, err := b.queries.CompleteTodo(ctx, sqlcgen.CompleteTodoParams{ID: id, Cancelled: cancelled})
	if errors.Is(err, pgx.ErrNoRows) {
		b.reply(s, i, fmt.Sprintf("No todo #%d.", id), true)
		return
	}
	if err != nil {
		b.log.Error().Err(err).Int32("id", id).Msg("todo close failed")
		b.reply(s, i, "Couldn't update the todo, try again later.", true)
		return
	}
	verb := "Completed"
	if cancelled {
		verb = "Cancelled"
	}
	b.reply(s, i, verb+": "+formatTodo(todo), false)
}

func (b *Bot) todoAssign(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	id := int32(opts["id"].IntValue())
	assignee, err := parseSnowflake(opts["user"].UserValue(nil).ID)
	if err != nil {
		b.reply(s, i, "Bad user.", true)
		return
	}
	b.setAssignee(ctx, s, i, id, &assignee)
}

func (b *Bot) todoUnassign(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	id := int32(opts["id"].IntValue())
	b.setAssignee(ctx, s, i, id, nil)
}

func (b *Bot) setAssignee(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, id int32, assignee *int64) {
	todo, err := b.queries.AssignTodo(ctx, sqlcgen.AssignTodoParams{ID: id, Assigned: assignee})
	if errors.Is(err, pgx.ErrNoRows) {
		b.reply(s, i, fmt.Sprintf("No todo #%d.", id), true)
		return
	}
	if err != nil {
		b.log.Error().Err(err).Int32("id", id).Msg("todo assign failed")
		b.reply(s, i, "Couldn't update the todo, try again later.", true)
		return
	}
	b.reply(s, i, "Updated: "+formatTodo(todo), false)
}

func (b *Bot) todoEdit(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	id := int32(opts["id"].IntValue())

	var (
		todo    sqlcgen.Todo
		err     error
		changed bool
	)
	if opt, ok := opts["content"]; ok {
		todo, err = b.queries.UpdateTodoContent(ctx, sqlcgen.UpdateTodoContentParams{ID: id, Content: opt.StringValue()})
		changed = true
	}
	if opt, ok := opts["deadline"]; ok && err == nil {
		var deadline time.Time
		deadline, err = time.Parse(deadlineLayout, opt.StringValue())
		if err != nil {
			b.reply(s, i, "Deadline must be YYYY-MM-DD.", true)
			return
		}
		todo, err = b.queries.UpdateTodoDeadline(ctx, sqlcgen.UpdateTodoDeadlineParams{ID: id, Deadline: &deadline})
		changed = true
	}

	if !changed {
		b.reply(s, i, "Nothing to change.", true)
		return
	}
	if errors.Is(err, pgx.ErrNoRows) {
		b.reply(s, i, fmt.Sprintf("No todo #%d.", id), true)
		return
	}
	if err != nil {
		b.log.Error().Err(err).Int32("id", id).Msg("todo edit failed")
		b.reply(s, i, "Couldn't update the todo, try again later.", true)
		return
	}
	b.reply(s, i, "Updated: "+formatTodo(todo), false)
}

func (b *Bot) todoDelete(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	id := int32(opts["id"].IntValue())
	deleted, err := b.queries.DeleteTodo(ctx, id)
	if err != nil {
		b.log.Error().Err(err).Int32("id", id).Msg("todo delete failed")
		b.reply(s, i, "Couldn't delete the todo, try again later.", true)
		return
	}
	if deleted == 0 {
		b.reply(s, i, fmt.Sprintf("No todo #%d.", id), true)
		return
	}
	b.reply(s, i, fmt.Sprintf("Deleted todo #%d.", id), false)
}

func formatTodo(t sqlcgen.Todo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**#%d** %s", t.ID, t.Content)
	if t.Assigned != nil {
		fmt.Fprintf(&sb, " <@%d>", *t.Assigned)
	}
	if t.Deadline != nil {
		fmt.Fprintf(&sb, " (due %s)", t.Deadline.Format(deadlineLayout))
	}
	switch {
	case t.Cancelled:
		sb.WriteString(" [cancelled]")
	case t.Completed != nil:
		sb.WriteString(" [done]")
	}
	return sb.String()
}
