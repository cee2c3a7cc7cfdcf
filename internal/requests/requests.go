// Package requests answers MQTT requests from the dashboard with music and
// bank state.
package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/bank"
	"github.com/PancyStudios/UselessBotGo/pkg/lavalink"
	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/PancyStudios/UselessBotGo/pkg/mqtt"
)

const requestTimeout = 5 * time.Second

var (
	ErrMissingField = errors.New("missing field")
	ErrNoPlayer     = errors.New("no active player")
	ErrUnavailable  = errors.New("service unavailable")
)

// Router registers request handlers
type Router interface {
	On(pattern string, callback mqtt.RequestHandler)
}

// Players is the Lavalink client as seen by the handlers
type Players interface {
	GetPlayer(guildID string) *lavalink.Player
	Players() []string
}

// Deps are the services behind the handlers. Either may be nil.
type Deps struct {
	Music Players
	Bank  bank.Core
}

// Register adds the music and bank request handlers
func Register(r Router, deps Deps) {
	r.On("music/players", playersHandler(deps.Music))
	r.On("music/state", stateHandler(deps.Music))
	r.On("bank/balance", balanceHandler(deps.Bank))
	logger.System("Handlers MQTT registrados", "Requests")
}

func stringField(payload map[string]interface{}, key string) (string, error) {
	v, ok := payload[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	return v, nil
}

func playersHandler(music Players) mqtt.RequestHandler {
	return func(_ map[string]interface{}) (interface{}, error) {
		if music == nil {
			return nil, ErrUnavailable
		}
		return map[string]interface{}{"guilds": music.Players()}, nil
	}
}

func stateHandler(music Players) mqtt.RequestHandler {
	return func(payload map[string]interface{}) (interface{}, error) {
		if music == nil {
			return nil, ErrUnavailable
		}
		guildID, err := stringField(payload, "guildId")
		if err != nil {
			return nil, err
		}
		player := music.GetPlayer(guildID)
		if player == nil {
			return nil, ErrNoPlayer
		}
		return player.State(), nil
	}
}

func balanceHandler(accounts bank.Core) mqtt.RequestHandler {
	return func(payload map[string]interface{}) (interface{}, error) {
		if accounts == nil {
			return nil, ErrUnavailable
		}
		userID, err := stringField(payload, "userId")
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return accounts.FindUser(ctx, userID)
	}
}
