package requests

import (
	"context"
	"testing"

	"github.com/PancyStudios/UselessBotGo/pkg/bank"
	"github.com/PancyStudios/UselessBotGo/pkg/lavalink"
	"github.com/PancyStudios/UselessBotGo/pkg/models"
	"github.com/PancyStudios/UselessBotGo/pkg/mqtt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRouter map[string]mqtt.RequestHandler

func (f fakeRouter) On(pattern string, callback mqtt.RequestHandler) {
	f[pattern] = callback
}

type fakePlayers map[string]*lavalink.Player

func (f fakePlayers) GetPlayer(guildID string) *lavalink.Player {
	return f[guildID]
}

func (f fakePlayers) Players() []string {
	ids := make([]string, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	return ids
}

func TestRegister(t *testing.T) {
	r := fakeRouter{}
	Register(r, Deps{})
	assert.Contains(t, r, "music/players")
	assert.Contains(t, r, "music/state")
	assert.Contains(t, r, "bank/balance")
}

func TestHandlersWithoutServices(t *testing.T) {
	r := fakeRouter{}
	Register(r, Deps{})
	for pattern, h := range r {
		_, err := h(map[string]interface{}{"guildId": "g", "userId": "u"})
		assert.ErrorIs(t, err, ErrUnavailable, pattern)
	}
}

func TestStateHandler(t *testing.T) {
	p := lavalink.NewPlayer("g1", nil, nil)
	p.Queue().SetRepeat(true)
	h := stateHandler(fakePlayers{"g1": p})

	_, err := h(map[string]interface{}{})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = h(map[string]interface{}{"guildId": "g2"})
	assert.ErrorIs(t, err, ErrNoPlayer)

	data, err := h(map[string]interface{}{"guildId": "g1"})
	require.NoError(t, err)
	state, ok := data.(lavalink.MusicState)
	require.True(t, ok)
	assert.Equal(t, "g1", state.GuildID)
	assert.True(t, state.Repeat)
}

func TestPlayersHandler(t *testing.T) {
	h := playersHandler(fakePlayers{"g1": lavalink.NewPlayer("g1", nil, nil)})
	data, err := h(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"guilds": []string{"g1"}}, data)
}

func TestBalanceHandler(t *testing.T) {
	core := bank.NewMemoryCore(0)
	_, err := core.GetUser(context.Background(), "42")
	require.NoError(t, err)
	_, err = core.Deposit(context.Background(), "42", 150)
	require.NoError(t, err)
	h := balanceHandler(core)

	data, err := h(map[string]interface{}{"userId": "42"})
	require.NoError(t, err)
	account, ok := data.(*models.Account)
	require.True(t, ok)
	assert.Equal(t, int64(150), account.Balance)

	_, err = h(map[string]interface{}{"userId": "7"})
	assert.ErrorIs(t, err, bank.ErrAccountNotFound)

	users, err := core.Users(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, users)
}
