package antinuke

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

func TestCategoryChoicesCoverEveryCategory(t *testing.T) {
	choices := categoryChoices()
	require.Len(t, choices, len(models.Categories))
	for i, c := range models.Categories {
		assert.Equal(t, string(c), choices[i].Value)
		assert.NotEmpty(t, choices[i].Name)
	}
	assert.Equal(t, "Baneo", choices[0].Name)
}

func TestPunishmentNames(t *testing.T) {
	for _, p := range []models.PunishmentType{models.PunishmentClearRoles, models.PunishmentKick, models.PunishmentBan, models.PunishmentTimeout} {
		assert.NotEmpty(t, punishmentNames[p], p)
	}
}

func TestConfigEmbed(t *testing.T) {
	cfg := models.DefaultConfig("g1", models.CategoryRoleDelete)
	cfg.Enabled = true
	cfg.WhitelistedMembers = []string{"u1", "u2"}
	cfg.LogSink = "c1"

	e := configEmbed(&cfg)
	assert.Equal(t, "🛡️ Eliminación de rol", e.Title)
	require.Len(t, e.Fields, 6)
	assert.Equal(t, "🟢", e.Fields[0].Value)
	assert.Equal(t, "Quitar roles", e.Fields[1].Value)
	assert.Equal(t, "3", e.Fields[2].Value)
	assert.Equal(t, "<@u1>, <@u2>", e.Fields[3].Value)
	assert.Equal(t, "Ninguno", e.Fields[4].Value)
	assert.Equal(t, "<#c1>", e.Fields[5].Value)
}

func TestSummaryEmbed(t *testing.T) {
	assert.Contains(t, summaryEmbed(nil).Description, "/security setup")

	ban := models.DefaultConfig("g1", models.CategoryBan)
	kick := models.DefaultConfig("g1", models.CategoryKick)
	kick.Enabled = true
	kick.Punishment = models.PunishmentBan
	e := summaryEmbed([]models.SecurityConfig{ban, kick})
	assert.Equal(t, "🔴 **Baneo** · `clear_roles` · máx. 3\n🟢 **Expulsión** · `ban` · máx. 3", e.Description)
}

func TestRegisterSecurityCommands(t *testing.T) {
	client, err := discord.NewClient("token")
	require.NoError(t, err)
	RegisterSecurityCommands(client, nil)

	for _, name := range []string{"setup", "enable", "disable", "punishment", "max", "logchannel", "view", "violations", "reset", "whitelist.add", "whitelist.remove"} {
		cmd, ok := client.Commands.Get("security." + name)
		require.True(t, ok, name)
		assert.Equal(t, int64(discordgo.PermissionAdministrator), cmd.UserPermissions, name)
	}

	global := client.CommandHandler.Definitions()
	require.Len(t, global, 1)
	require.NotNil(t, global[0].DefaultMemberPermissions)
	assert.Equal(t, int64(discordgo.PermissionAdministrator), *global[0].DefaultMemberPermissions)
	assert.Len(t, global[0].Options, 10)
}
