package utils

import (
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
)

// createHelpCommand creates the /utils help subcommand
func createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"Muestra información de ayuda",
		"utils",
		helpHandler,
	)
}

const helpText = "📖 **Ayuda de PancyGuard**\n\n" +
	"**Seguridad** (administradores)\n" +
	"• `/security setup` - Crea la configuración de todas las categorías\n" +
	"• `/security enable|disable <categoría>` - Activa o desactiva una protección\n" +
	"• `/security punishment <categoría> <castigo>` - Cambia el castigo\n" +
	"• `/security max <categoría> <cantidad>` - Cambia el máximo de infracciones\n" +
	"• `/security whitelist add|remove <categoría> [usuario] [rol]` - Gestiona excepciones\n" +
	"• `/security logchannel <canal>` - Canal de alertas\n" +
	"• `/security view [categoría]` - Muestra la configuración\n" +
	"• `/security violations|reset <usuario> <categoría>` - Consulta o reinicia infracciones\n\n" +
	"**Moderación**\n" +
	"• `/mod ban|kick <usuario> [razón]`\n" +
	"• `/mod timeout <usuario> <minutos> [razón]`\n" +
	"• `/mod jail|unjail <usuario>`\n" +
	"• `/mod restore-roles <usuario>` - Devuelve los roles quitados por un castigo\n\n" +
	"**Advertencias**\n" +
	"• `/warn setup` - Configura los roles de cada nivel\n" +
	"• `/warn add <usuario> <razón>` - Advierte a un usuario\n" +
	"• `/warn remove|clear <usuario>` - Quita la última o todas las advertencias\n" +
	"• `/warn list [usuario]` - Lista las advertencias\n\n" +
	"Las acciones de moderación tienen un límite diario por moderador."

func helpHandler(ctx *discord.CommandContext) error {
	return ctx.ReplyEphemeral(helpText)
}
