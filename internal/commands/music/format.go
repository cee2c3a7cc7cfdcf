package music

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/UselessBotGo/pkg/lavalink"
)

// queuePreview is how many upcoming tracks /queue lists
const queuePreview = 10

// formatDuration formats milliseconds as m:ss, or h:mm:ss past an hour
func formatDuration(ms int64) string {
	seconds := ms / 1000
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	seconds = seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func trackLine(t *lavalink.Track) string {
	if t.Info.IsStream {
		return fmt.Sprintf("%s - 🔴 En vivo", t.Info.Title)
	}
	return fmt.Sprintf("%s - %s", t.Info.Title, formatDuration(t.Info.Length))
}

func onOff(enabled bool) string {
	if enabled {
		return "activado"
	}
	return "desactivado"
}

// formatQueue renders the current track and the first tracks of the queue
func formatQueue(current *lavalink.Track, upcoming []*lavalink.Track, loop, repeat bool) string {
	if current == nil && len(upcoming) == 0 {
		return "📭 La cola está vacía."
	}

	var sb strings.Builder
	sb.WriteString("📋 **Cola de reproducción**\n\n")

	if current != nil {
		sb.WriteString(fmt.Sprintf("🎵 **Reproduciendo:** %s\n\n", trackLine(current)))
	}

	if len(upcoming) > 0 {
		sb.WriteString("**Siguiente:**\n")
		for i, t := range upcoming {
			if i >= queuePreview {
				sb.WriteString(fmt.Sprintf("... y %d más\n", len(upcoming)-queuePreview))
				break
			}
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, trackLine(t)))
		}
	}

	sb.WriteString(fmt.Sprintf("\n🔁 Loop: %s | 🔂 Repeat: %s", onOff(loop), onOff(repeat)))
	return sb.String()
}
