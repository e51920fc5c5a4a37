package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(*CommandContext) error { return nil }

func TestCommandBuilder(t *testing.T) {
	option := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "usuario",
		Description: "Miembro",
		Required:    true,
	}
	cmd := NewCommand("ban", "Banea a un miembro", "mod", noop).
		WithOptions(option).
		WithUserPermissions(discordgo.PermissionBanMembers).
		WithBotPermissions(discordgo.PermissionBanMembers).
		WithQuota("ban")

	assert.Equal(t, "ban", cmd.Name)
	assert.Equal(t, "mod", cmd.Category)
	assert.Equal(t, int64(discordgo.PermissionBanMembers), cmd.UserPermissions)
	assert.Equal(t, int64(discordgo.PermissionBanMembers), cmd.BotPermissions)
	assert.Equal(t, "ban", cmd.Quota)
	require.Len(t, cmd.Options, 1)
	assert.Equal(t, "usuario", cmd.Options[0].Name)
}

func TestCommandName(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{Name: "security"}
	assert.Equal(t, "security", commandName(data))

	data.Options = []*discordgo.ApplicationCommandInteractionDataOption{{
		Type: discordgo.ApplicationCommandOptionSubCommand, Name: "view",
	}}
	assert.Equal(t, "security.view", commandName(data))

	data.Options = []*discordgo.ApplicationCommandInteractionDataOption{{
		Type: discordgo.ApplicationCommandOptionSubCommandGroup, Name: "whitelist",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "add"}},
	}}
	assert.Equal(t, "security.whitelist.add", commandName(data))
}

func TestFindOptionDescendsIntoSubcommands(t *testing.T) {
	options := []*discordgo.ApplicationCommandInteractionDataOption{{
		Name: "whitelist",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name:    "add",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{Name: "categoria", Value: "ban"}},
		}},
	}}
	opt := findOption(options, "categoria")
	require.NotNil(t, opt)
	assert.Equal(t, "ban", opt.Value)
	assert.Nil(t, findOption(options, "missing"))
}

func TestBuildCommandGroupRoutesSubcommands(t *testing.T) {
	c := &ExtendedClient{Commands: NewCommandCollection()}
	h := NewCommandHandler(c)

	add := NewCommand("add", "Añadir", "security", noop)
	remove := NewCommand("remove", "Quitar", "security", noop)
	view := NewCommand("view", "Ver", "security", noop)
	group := h.BuildSubcommandGroup("security", "whitelist", "Lista blanca", add, remove)
	appCmd := h.BuildCommandGroup("security", "Anti-nuke", discordgo.PermissionAdministrator, []*Command{view}, group)

	require.Len(t, appCmd.Options, 2)
	assert.Equal(t, int64(discordgo.PermissionAdministrator), *appCmd.DefaultMemberPermissions)
	for _, name := range []string{"security.view", "security.whitelist.add", "security.whitelist.remove"} {
		_, ok := c.Commands.Get(name)
		assert.True(t, ok, name)
	}
	assert.Equal(t, 3, c.Commands.Size())
}

func TestHasPermissions(t *testing.T) {
	assert.False(t, hasPermissions(nil, discordgo.PermissionBanMembers))
	assert.True(t, hasPermissions(&discordgo.Member{Permissions: discordgo.PermissionAdministrator}, discordgo.PermissionBanMembers))
	assert.True(t, hasPermissions(&discordgo.Member{Permissions: discordgo.PermissionBanMembers | discordgo.PermissionKickMembers}, discordgo.PermissionBanMembers))
	assert.False(t, hasPermissions(&discordgo.Member{Permissions: discordgo.PermissionKickMembers}, discordgo.PermissionBanMembers))
}

func TestPermsCoverAppPermissions(t *testing.T) {
	manage := int64(discordgo.PermissionManageRoles)
	assert.True(t, permsCover(manage|discordgo.PermissionBanMembers, manage))
	assert.True(t, permsCover(discordgo.PermissionAdministrator, manage|discordgo.PermissionBanMembers))
	assert.False(t, permsCover(discordgo.PermissionBanMembers, manage))
	assert.False(t, permsCover(0, manage))
}
