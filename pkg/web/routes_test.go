package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PancyStudios/UselessBotGo/pkg/bank"
	"github.com/PancyStudios/UselessBotGo/pkg/lavalink"
	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	ready bool
	user  *discordgo.User
}

func (b *fakeBot) IsReady() bool            { return b.ready }
func (b *fakeBot) GuildCount() int          { return 3 }
func (b *fakeBot) BotUser() *discordgo.User { return b.user }

type fakeDB struct{}

func (fakeDB) GetStatus() (string, bool) { return "Conectado", true }

type fakeMusic map[string]*lavalink.Player

func (m fakeMusic) GetPlayer(guildID string) *lavalink.Player { return m[guildID] }

func newTestServer(t *testing.T, pattern string, deps Deps) *Server {
	t.Helper()
	s, err := NewServer("", pattern)
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)
	SetupAPIRoutes(s, deps)
	return s
}

func do(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestNewServerRejectsBadPattern(t *testing.T) {
	_, err := NewServer("", "([")
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "", Deps{})

	w := do(s, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestHostFilter(t *testing.T) {
	s := newTestServer(t, `^api\.uselessbot\.dev$`, Deps{})

	w := do(s, "/api/health")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, "", Deps{})

	w := do(s, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, "", Deps{Bot: &fakeBot{ready: true}, Database: fakeDB{}})

	w := do(s, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["database"].(map[string]interface{})["isOnline"])
	assert.Equal(t, true, body["bot"].(map[string]interface{})["isOnline"])
}

func TestStatusWithoutServices(t *testing.T) {
	s := newTestServer(t, "", Deps{})

	body := decode(t, do(s, "/api/status"))
	assert.Equal(t, false, body["database"].(map[string]interface{})["isOnline"])
}

func TestBotInfo(t *testing.T) {
	offline := newTestServer(t, "", Deps{Bot: &fakeBot{}})
	assert.Equal(t, http.StatusServiceUnavailable, do(offline, "/api/bot").Code)

	online := newTestServer(t, "", Deps{Bot: &fakeBot{ready: true, user: &discordgo.User{ID: "1", Username: "UselessBot"}}})
	w := do(online, "/api/bot")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "UselessBot", body["username"])
	assert.Equal(t, float64(3), body["guilds"])
}

func TestMusicQueue(t *testing.T) {
	player := lavalink.NewPlayer("g1", nil, nil)
	player.Queue().Enqueue(&lavalink.Track{Info: lavalink.TrackInfo{Title: "Uno", Length: 60000}})
	player.Queue().Enqueue(&lavalink.Track{Info: lavalink.TrackInfo{Title: "Dos", Length: 30000}})
	player.Queue().SetLoop(true)

	s := newTestServer(t, "", Deps{Music: fakeMusic{"g1": player}})

	w := do(s, "/api/music/g1/queue")
	require.Equal(t, http.StatusOK, w.Code)

	var state lavalink.MusicState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, "g1", state.GuildID)
	assert.True(t, state.Loop)
	require.Len(t, state.Queue, 2)
	assert.Equal(t, "Uno", state.Queue[0].Title)
	assert.Equal(t, "Dos", state.Queue[1].Title)

	assert.Equal(t, http.StatusNotFound, do(s, "/api/music/other/queue").Code)
}

func TestMusicUnavailable(t *testing.T) {
	s := newTestServer(t, "", Deps{})
	assert.Equal(t, http.StatusServiceUnavailable, do(s, "/api/music/g1/queue").Code)
}

func TestBankAccount(t *testing.T) {
	core := bank.NewMemoryCore(0)
	_, err := core.GetUser(context.Background(), "42")
	require.NoError(t, err)
	_, err = core.Deposit(context.Background(), "42", 150)
	require.NoError(t, err)

	s := newTestServer(t, "", Deps{Bank: core})

	w := do(s, "/api/bank/42")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "42", body["user"])
	assert.Equal(t, float64(150), body["balance"])

	assert.Equal(t, http.StatusNotFound, do(s, "/api/bank/7").Code)

	users, err := core.Users(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, users, "lookups must not create accounts")
}
