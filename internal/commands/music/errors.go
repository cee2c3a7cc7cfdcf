package music

import (
	"errors"
	"fmt"

	boterrors "github.com/PancyStudios/UselessBotGo/pkg/errors"
	"github.com/PancyStudios/UselessBotGo/pkg/lavalink"
	"github.com/PancyStudios/UselessBotGo/pkg/queue"
)

var (
	ErrNotFound           = errors.New("no tracks found")
	ErrAuthorNotConnected = fmt.Errorf("author not connected: %w", boterrors.ErrNotInVoice)
	ErrURLNotSupported    = errors.New("url not supported")
	ErrPlaylistIsEmpty    = errors.New("playlist is empty")
	ErrNotPlaying         = errors.New("nothing is playing")
	ErrUnavailable        = errors.New("music unavailable")
)

// userMessage maps music errors to replies
func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrNotFound):
		return "❌ No se encontraron resultados.", true
	case errors.Is(err, ErrAuthorNotConnected):
		return "🔇 Debes estar conectado a un canal de voz.", true
	case errors.Is(err, ErrURLNotSupported):
		return "❌ Ese enlace no está soportado.", true
	case errors.Is(err, ErrPlaylistIsEmpty):
		return "📭 La playlist está vacía.", true
	case errors.Is(err, ErrNotPlaying):
		return "🔇 No hay nada reproduciéndose.", true
	case errors.Is(err, ErrUnavailable):
		return "❌ El sistema de música no está disponible.", true
	case errors.Is(err, lavalink.ErrPlayerDestroyed):
		return "⏹️ La reproducción se detuvo mientras se buscaba la canción. Usa /play de nuevo.", true
	case errors.Is(err, queue.ErrIndexOutOfRange):
		return "❌ No hay ninguna canción en esa posición.", true
	}
	return "", false
}
