package bot

import "github.com/bwmarrin/discordgo"

// commands returns the guild command set registered on startup.
func commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "infra",
			Description: "Lab infrastructure commands",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "join",
					Description: "Get an invite link for a lab machine",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionString,
							Name:         "name",
							Description:  "Machine name",
							Required:     true,
							Autocomplete: true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "display",
					Description: "Post a machine card with a join button",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionString,
							Name:         "name",
							Description:  "Machine name",
							Required:     true,
							Autocomplete: true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "describe",
					Description: "Set the description shown for a machine",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionString,
							Name:         "hostname",
							Description:  "Machine hostname",
							Required:     true,
							Autocomplete: true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "description",
							Description: "Description text",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete_description",
					Description: "Remove the description for a machine",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionString,
							Name:         "hostname",
							Description:  "Machine hostname",
							Required:     true,
							Autocomplete: true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "clear_cache",
					Description: "Drop the cached device list",
				},
			},
		},
		{
			Name:        "todo",
			Description: "Infrastructure todo list",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add a todo",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "content",
							Description: "What needs doing",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "deadline",
							Description: "Deadline (YYYY-MM-DD)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "view",
					Description: "Show a todo",
					Options:     []*discordgo.ApplicationCommandOption{todoIDOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List open todos",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "assignee",
							Description: "Only todos assigned to this user",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "complete",
					Description: "Mark a todo as done",
					Options:     []*discordgo.ApplicationCommandOption{todoIDOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cancel",
					Description: "Cancel a todo",
					Options:     []*discordgo.ApplicationCommandOption{todoIDOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "assign",
					Description: "Assign a todo to a user",
					Options: []*discordgo.ApplicationCommandOption{
						todoIDOption(),
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "Assignee",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "unassign",
					Description: "Clear a todo's assignee",
					Options:     []*discordgo.ApplicationCommandOption{todoIDOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "edit",
					Description: "Edit a todo",
					Options: []*discordgo.ApplicationCommandOption{
						todoIDOption(),
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "content",
							Description: "New content",
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "deadline",
							Description: "New deadline (YYYY-MM-DD)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Delete a todo",
					Options:     []*discordgo.ApplicationCommandOption{todoIDOption()},
				},
			},
		},
		{
			Name:        "site",
			Description: "Writeup site commands",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "token",
					Description: "DM yourself a login link for the writeup site",
				},
			},
		},
	}
}

func todoIDOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "id",
		Description: "Todo id",
		Required:    true,
	}
}
