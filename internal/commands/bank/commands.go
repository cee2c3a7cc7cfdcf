package bank

import (
	"fmt"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

var minValue = 0.0

// Register adds the /bank group to the client
func (c *Cog) Register(client *discord.ExtendedClient) {
	c.isMember = client.IsMember

	client.CommandHandler.RegisterGroup(
		"bank",
		"Tu cuenta de créditos",
		c.command("status", "Muestra tu página del banco", c.statusHandler).WithOptions(
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "usuario",
				Description: "Usuario a consultar (solo administradores)",
			},
		),
		c.command("free", "Reclama tus créditos gratis diarios", c.freeHandler),
		c.command("add", "Añade créditos a un usuario", c.addHandler).WithOptions(userValueOptions()...).OwnerOnly(),
		c.command("remove", "Quita créditos a un usuario", c.removeHandler).WithOptions(userValueOptions()...).OwnerOnly(),
		c.command("move", "Envía créditos a otro usuario", c.moveHandler).WithOptions(userValueOptions()...),
		c.command("cleanup", "Elimina las cuentas de usuarios que ya no están", c.cleanupHandler).OwnerOnly(),
		c.command("reset", "Borra todas las cuentas", c.resetHandler).OwnerOnly(),
	)
}

func (c *Cog) command(name, description string, run discord.CommandRunFunc) *discord.Command {
	return discord.NewCommand(name, description, "bank", run).WithErrorHandler(c.onError)
}

func userValueOptions() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "usuario",
			Description: "Usuario",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "valor",
			Description: "Cantidad de créditos",
			Required:    true,
			MinValue:    &minValue,
		},
	}
}

func (c *Cog) onError(ctx *discord.CommandContext, err error) bool {
	msg, ok := userMessage(err)
	if !ok {
		return false
	}
	_ = ctx.Send(msg)
	return true
}

// statusHandler handles /bank status
func (c *Cog) statusHandler(ctx *discord.CommandContext) error {
	user := ctx.User()
	if target := ctx.GetUserOption("usuario"); target != nil && ctx.HasPermission(discordgo.PermissionAdministrator) {
		user = target
	}

	account, err := c.accounts.GetUser(ctx.Ctx, user.ID)
	if err != nil {
		return err
	}

	freeText := "Usa `/bank free` para reclamar tus créditos gratis diarios"
	if ok, elapsed := c.canClaim(account.LastFreeCredits); !ok {
		freeText = waitMessage(elapsed)
	}

	return ctx.SendEmbed(&discordgo.MessageEmbed{
		Title:       "🏦 Estado del banco",
		Description: "Estado del banco de " + user.Mention(),
		Color:       0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Créditos", Value: fmt.Sprintf("`%d`", account.Balance)},
			{Name: "Créditos gratis", Value: freeText},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// freeHandler handles /bank free
func (c *Cog) freeHandler(ctx *discord.CommandContext) error {
	amount, wait, err := c.claimFree(ctx.Ctx, ctx.User().ID)
	if err != nil {
		return err
	}
	if wait != "" {
		return ctx.Send(wait)
	}
	return ctx.Send(fmt.Sprintf("💰 Se añadieron %d créditos a tu cuenta", amount))
}

// addHandler handles /bank add
func (c *Cog) addHandler(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("usuario")
	value := ctx.GetIntOption("valor")

	acc, err := c.accounts.Deposit(ctx.Ctx, user.ID, value)
	if err != nil {
		return err
	}
	c.publish("deposit", Event{User: user.ID, Value: value, Balance: acc.Balance})
	return ctx.Send(fmt.Sprintf("➕ Se añadieron %d créditos a %s", value, user.Mention()))
}

// removeHandler handles /bank remove
func (c *Cog) removeHandler(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("usuario")
	value := ctx.GetIntOption("valor")

	acc, err := c.accounts.Withdraw(ctx.Ctx, user.ID, value)
	if err != nil {
		return err
	}
	c.publish("withdraw", Event{User: user.ID, Value: value, Balance: acc.Balance})
	return ctx.Send(fmt.Sprintf("➖ Se quitaron %d créditos a %s", value, user.Mention()))
}

// moveHandler handles /bank move
func (c *Cog) moveHandler(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("usuario")

	moved, err := c.transfer(ctx.Ctx, ctx.User().ID, user.ID, ctx.GetIntOption("valor"))
	if err != nil {
		return err
	}
	return ctx.Send(fmt.Sprintf("💸 Se enviaron %d créditos a %s", moved, user.Mention()))
}

// cleanupHandler handles /bank cleanup
func (c *Cog) cleanupHandler(ctx *discord.CommandContext) error {
	if err := ctx.Defer(); err != nil {
		return err
	}

	removed, err := c.cleanup(ctx.Ctx)
	if err != nil {
		return err
	}
	return ctx.Send(fmt.Sprintf("🧹 Base de datos del banco limpiada: %d usuarios eliminados", removed))
}

// resetHandler handles /bank reset
func (c *Cog) resetHandler(ctx *discord.CommandContext) error {
	if err := c.accounts.Clear(ctx.Ctx); err != nil {
		return err
	}
	c.publish("reset", Event{})
	return ctx.Send("🗑️ Base de datos del banco borrada")
}
