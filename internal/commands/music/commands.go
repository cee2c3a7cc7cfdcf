// Package music provides the music commands. Each guild has a player whose
// queue supports loop and repeat modes.
package music

import (
	"errors"
	"fmt"

	"github.com/PancyStudios/UselessBotGo/pkg/discord"
	"github.com/PancyStudios/UselessBotGo/pkg/lavalink"
	"github.com/bwmarrin/discordgo"
)

// Client is what the commands need from Lavalink
type Client interface {
	loader
	GetPlayer(guildID string) *lavalink.Player
	Join(guildID, voiceChannelID, textChannelID string) (*lavalink.Player, error)
	Leave(guildID string)
}

// Cog holds the music commands' dependencies
type Cog struct {
	client Client
}

// New creates the music cog. A nil client makes every command reply that
// music is unavailable.
func New(client Client) *Cog {
	return &Cog{client: client}
}

var (
	minPosition = 1.0
	minVolume   = float64(lavalink.MinVolume)
)

// Register adds the music commands to the client
func (c *Cog) Register(client *discord.ExtendedClient) {
	commands := []*discord.Command{
		c.command("play", "Reproduce una canción o playlist, o la añade a la cola", c.playHandler).WithOptions(
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "Nombre de la canción o URL",
				Required:    true,
			},
		),
		c.command("skip", "Salta a la siguiente canción", c.skipHandler).RequiresVoice(),
		c.command("queue", "Muestra la cola de reproducción", c.queueHandler),
		c.command("remove", "Quita una canción de la cola", c.removeHandler).WithOptions(
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "posicion",
				Description: "Posición en la cola (empieza en 1)",
				Required:    true,
				MinValue:    &minPosition,
			},
		).RequiresVoice(),
		c.command("loop", "Activa o desactiva el loop de la cola", c.loopHandler).RequiresVoice(),
		c.command("repeat", "Activa o desactiva la repetición de la canción", c.repeatHandler).RequiresVoice(),
		c.command("pause", "Pausa o resume la reproducción", c.pauseHandler).RequiresVoice(),
		c.command("stop", "Detiene la reproducción, limpia la cola y sale del canal", c.stopHandler).RequiresVoice(),
		c.command("volume", "Ajusta el volumen de reproducción", c.volumeHandler).WithOptions(
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "nivel",
				Description: fmt.Sprintf("Nivel de volumen (%d-%d)", lavalink.MinVolume, lavalink.MaxVolume),
				Required:    true,
				MinValue:    &minVolume,
				MaxValue:    lavalink.MaxVolume,
			},
		).RequiresVoice(),
		c.command("nowplaying", "Muestra la canción que se está reproduciendo", c.nowPlayingHandler),
	}

	for _, cmd := range commands {
		client.CommandHandler.RegisterCommand(cmd)
	}
}

func (c *Cog) command(name, description string, run discord.CommandRunFunc) *discord.Command {
	return discord.NewCommand(name, description, "music", run).WithErrorHandler(c.onError)
}

func (c *Cog) onError(ctx *discord.CommandContext, err error) bool {
	msg, ok := userMessage(err)
	if !ok {
		return false
	}
	_ = ctx.Send(msg)
	return true
}

// player returns the guild's player or ErrNotPlaying
func (c *Cog) player(guildID string) (*lavalink.Player, error) {
	if c.client == nil {
		return nil, ErrUnavailable
	}
	p := c.client.GetPlayer(guildID)
	if p == nil {
		return nil, ErrNotPlaying
	}
	return p, nil
}

func trackEmbed(title string, t *lavalink.Track) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       0x5865F2,
		Title:       title,
		Description: fmt.Sprintf("[%s](%s)", t.Info.Title, t.Info.URI),
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: t.Info.ArtworkURL},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Artista", Value: t.Info.Author, Inline: true},
			{Name: "Duración", Value: formatDuration(t.Info.Length), Inline: true},
		},
	}
}

// playHandler handles the /play command
func (c *Cog) playHandler(ctx *discord.CommandContext) error {
	if c.client == nil {
		return ErrUnavailable
	}

	voiceChannelID := ctx.VoiceChannelID()
	if voiceChannelID == "" {
		return ErrAuthorNotConnected
	}

	// Searching can take longer than the interaction deadline
	if err := ctx.Defer(); err != nil {
		return err
	}

	name, tracks, err := resolve(ctx.Ctx, c.client, ctx.GetStringOption("query"), ctx.User().ID)
	if err != nil {
		return err
	}

	player, err := c.client.Join(ctx.Interaction.GuildID, voiceChannelID, ctx.Interaction.ChannelID)
	if err != nil {
		return err
	}
	if err := player.Enqueue(tracks...); err != nil {
		return err
	}

	if name != "" {
		return ctx.SendEmbed(&discordgo.MessageEmbed{
			Color:       0x5865F2,
			Title:       "📃 Playlist añadida a la cola",
			Description: fmt.Sprintf("**%s** (%d canciones)", name, len(tracks)),
		})
	}
	return ctx.SendEmbed(trackEmbed("🎵 Añadido a la cola", tracks[0]))
}

// skipHandler handles the /skip command
func (c *Cog) skipHandler(ctx *discord.CommandContext) error {
	player, err := c.player(ctx.Interaction.GuildID)
	if err != nil {
		return err
	}

	skipped, err := player.Skip()
	if err != nil {
		return err
	}
	if skipped == nil {
		return ErrNotPlaying
	}
	return ctx.Send(fmt.Sprintf("⏭️ Saltada: **%s**", skipped.Info.Title))
}

// queueHandler handles the /queue command
func (c *Cog) queueHandler(ctx *discord.CommandContext) error {
	player, err := c.player(ctx.Interaction.GuildID)
	if err != nil {
		if errors.Is(err, ErrNotPlaying) {
			return ctx.Send(formatQueue(nil, nil, false, false))
		}
		return err
	}

	q := player.Queue()
	return ctx.Send(formatQueue(player.Current(), q.ToList(), q.Loop(), q.Repeat()))
}

// removeHandler handles the /remove command
func (c *Cog) removeHandler(ctx *discord.CommandContext) error {
	player, err := c.player(ctx.Interaction.GuildID)
	if err != nil {
		return err
	}

	removed, err := player.Queue().RemoveAt(int(ctx.GetIntOption("posicion")) - 1)
	if err != nil {
		return err
	}
	return ctx.Send(fmt.Sprintf("🗑️ Eliminada de la cola: **%s**", removed.Info.Title))
}

// toggleLoop flips loop mode and returns the new value
func toggleLoop(p *lavalink.Player) bool {
	q := p.Queue()
	enabled := !q.Loop()
	q.SetLoop(enabled)
	return enabled
}

// toggleRepeat flips repeat mode and returns the new value
func toggleRepeat(p *lavalink.Player) bool {
	q := p.Queue()
	enabled := !q.Repeat()
	q.SetRepeat(enabled)
	return enabled
}

// loopHandler handles the /loop command
func (c *Cog) loopHandler(ctx *discord.CommandContext) error {
	player, err := c.player(ctx.Interaction.GuildID)
	if err != nil {
		return err
	}
	return ctx.Send("🔁 Loop " + onOff(toggleLoop(player)))
}

// repeatHandler handles the /repeat command
func (c *Cog) repeatHandler(ctx *discord.CommandContext) error {
	player, err := c.player(ctx.Interaction.GuildID)
	if err != nil {
		return err
	}
	return ctx.Send("🔂 Repeat " + onOff(toggleRepeat(player)))
}

// pauseHandler handles the /pause command
func (c *Cog) pauseHandler(ctx *discord.CommandContext) error {
	player, err := c.player(ctx.Interaction.GuildID)
	if err != nil {
		return err
	}

	paused := !player.IsPaused()
	if err := player.Pause(paused); err != nil {
		return err
	}
	if paused {
		return ctx.Send("⏸️ Reproducción pausada.")
	}
	return ctx.Send("▶️ Reproducción resumida.")
}

// stopHandler handles the /stop command
func (c *Cog) stopHandler(ctx *discord.CommandContext) error {
	if c.client == nil {
		return ErrUnavailable
	}
	c.client.Leave(ctx.Interaction.GuildID)
	return ctx.Send("⏹️ Reproducción detenida y cola limpiada.")
}

// volumeHandler handles the /volume command
func (c *Cog) volumeHandler(ctx *discord.CommandContext) error {
	player, err := c.player(ctx.Interaction.GuildID)
	if err != nil {
		return err
	}

	volume, err := player.SetVolume(int(ctx.GetIntOption("nivel")))
	if err != nil {
		return err
	}
	return ctx.Send(fmt.Sprintf("🔊 Volumen ajustado a %d%%", volume))
}

// nowPlayingHandler handles the /nowplaying command
func (c *Cog) nowPlayingHandler(ctx *discord.CommandContext) error {
	player, err := c.player(ctx.Interaction.GuildID)
	if err != nil {
		return err
	}

	track := player.Current()
	if track == nil {
		return ErrNotPlaying
	}

	state := player.State()
	position := player.Position()

	embed := trackEmbed("🎵 Reproduciendo ahora", track)
	progress := formatDuration(position) + " / " + formatDuration(track.Info.Length)
	if track.Info.Length > 0 && !track.Info.IsStream {
		progress += fmt.Sprintf(" (%.1f%%)", float64(position)/float64(track.Info.Length)*100)
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Progreso", Value: progress, Inline: true},
		&discordgo.MessageEmbedField{Name: "Volumen", Value: fmt.Sprintf("%d%%", state.Volume), Inline: true},
		&discordgo.MessageEmbedField{Name: "Modo", Value: fmt.Sprintf("🔁 %s | 🔂 %s", onOff(state.Loop), onOff(state.Repeat)), Inline: true},
	)
	if track.Requester != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Pedida por", Value: "<@" + track.Requester + ">", Inline: true})
	}

	return ctx.SendEmbed(embed)
}
