package music

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	boterrors "github.com/PancyStudios/UselessBotGo/pkg/errors"
	"github.com/PancyStudios/UselessBotGo/pkg/lavalink"
	"github.com/PancyStudios/UselessBotGo/pkg/queue"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	result  *lavalink.LoadResult
	err     error
	queries []string
}

func (f *fakeLoader) Load(_ context.Context, query string) (*lavalink.LoadResult, error) {
	f.queries = append(f.queries, query)
	return f.result, f.err
}

func track(title string) *lavalink.Track {
	return &lavalink.Track{Encoded: "enc-" + title, Info: lavalink.TrackInfo{Title: title, Length: 61000}}
}

func result(t *testing.T, loadType string, data interface{}) *lavalink.LoadResult {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &lavalink.LoadResult{LoadType: loadType, Data: raw}
}

func TestCheckURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", true},
		{"http://soundcloud.com/artist/song", true},
		{"https://music.youtube.com/playlist?list=x", true},
		{"https://artist.bandcamp.com/track/x", true},
		{"https://www.twitch.tv/somebody", true},
		{"https://vimeo.com/123", true},
		{"https://www.deezer.com/track/1", true},
		{"ftp://youtube.com/video", false},
		{"https://example.com/song.mp3", false},
		{"https://notyoutube.com/watch", false},
		{"https://youtube.com.evil.net/watch", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := checkURL(tt.url)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrURLNotSupported)
		})
	}
}

func TestResolveSearchKeepsFirstTrack(t *testing.T) {
	l := &fakeLoader{result: result(t, lavalink.LoadTypeSearch, []*lavalink.Track{track("a"), track("b")})}

	name, tracks, err := resolve(context.Background(), l, "  never gonna give you up ", "user1")
	require.NoError(t, err)
	assert.Empty(t, name)
	require.Len(t, tracks, 1)
	assert.Equal(t, "a", tracks[0].Info.Title)
	assert.Equal(t, "user1", tracks[0].Requester)
	assert.Equal(t, []string{"never gonna give you up"}, l.queries)
}

func TestResolvePlaylist(t *testing.T) {
	data := map[string]interface{}{
		"info":   map[string]interface{}{"name": "Mix"},
		"tracks": []*lavalink.Track{track("a"), track("b"), track("c")},
	}
	l := &fakeLoader{result: result(t, lavalink.LoadTypePlaylist, data)}

	name, tracks, err := resolve(context.Background(), l, "https://www.youtube.com/playlist?list=x", "user1")
	require.NoError(t, err)
	assert.Equal(t, "Mix", name)
	require.Len(t, tracks, 3)
	for _, tr := range tracks {
		assert.Equal(t, "user1", tr.Requester)
	}
}

func TestResolveErrors(t *testing.T) {
	emptyPlaylist := map[string]interface{}{
		"info":   map[string]interface{}{"name": "Nada"},
		"tracks": []*lavalink.Track{},
	}
	errBackend := errors.New("node down")

	tests := []struct {
		name   string
		loader *fakeLoader
		query  string
		want   error
	}{
		{"blank query", &fakeLoader{}, "   ", ErrNotFound},
		{"unsupported url", &fakeLoader{}, "https://example.com/a.mp3", ErrURLNotSupported},
		{"empty result", &fakeLoader{result: &lavalink.LoadResult{LoadType: lavalink.LoadTypeEmpty}}, "nothing", ErrNotFound},
		{"empty search", &fakeLoader{result: result(t, lavalink.LoadTypeSearch, []*lavalink.Track{})}, "nothing", ErrNotFound},
		{"empty playlist", &fakeLoader{result: result(t, lavalink.LoadTypePlaylist, emptyPlaylist)}, "https://youtube.com/playlist?list=y", ErrPlaylistIsEmpty},
		{"backend error", &fakeLoader{err: errBackend}, "song", errBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := resolve(context.Background(), tt.loader, tt.query, "u")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolveUnsupportedURLSkipsLoader(t *testing.T) {
	l := &fakeLoader{}
	_, _, err := resolve(context.Background(), l, "https://example.com/a.mp3", "u")
	assert.Error(t, err)
	assert.Empty(t, l.queries)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00", formatDuration(0))
	assert.Equal(t, "1:01", formatDuration(61000))
	assert.Equal(t, "59:59", formatDuration(3599000))
	assert.Equal(t, "1:00:05", formatDuration(3605000))
}

func TestFormatQueue(t *testing.T) {
	assert.Equal(t, "📭 La cola está vacía.", formatQueue(nil, nil, false, false))

	upcoming := make([]*lavalink.Track, 0, 13)
	for i := 1; i <= 13; i++ {
		upcoming = append(upcoming, track(fmt.Sprintf("t%d", i)))
	}

	out := formatQueue(track("now"), upcoming, true, false)
	assert.Contains(t, out, "**Reproduciendo:** now - 1:01")
	assert.Contains(t, out, "1. t1 - 1:01")
	assert.Contains(t, out, "10. t10 - 1:01")
	assert.NotContains(t, out, "t11")
	assert.Contains(t, out, "... y 3 más")
	assert.Contains(t, out, "Loop: activado")
	assert.Contains(t, out, "Repeat: desactivado")
}

func TestToggleModes(t *testing.T) {
	p := lavalink.NewPlayer("g", nil, nil)

	assert.True(t, toggleLoop(p))
	assert.True(t, p.Queue().Loop())
	assert.False(t, toggleLoop(p))

	assert.True(t, toggleRepeat(p))
	assert.True(t, p.Queue().Repeat())
	assert.False(t, toggleRepeat(p))
}

func TestPlayerLookup(t *testing.T) {
	_, err := New(nil).player("g")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    string
		handled bool
	}{
		{"not found", ErrNotFound, "resultados", true},
		{"author", ErrAuthorNotConnected, "canal de voz", true},
		{"url", fmt.Errorf("%w: example.com", ErrURLNotSupported), "soportado", true},
		{"playlist", ErrPlaylistIsEmpty, "vacía", true},
		{"index", fmt.Errorf("remove: %w", queue.ErrIndexOutOfRange), "posición", true},
		{"player destroyed", lavalink.ErrPlayerDestroyed, "/play", true},
		{"other", errors.New("boom"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, handled := userMessage(tt.err)
			assert.Equal(t, tt.handled, handled)
			assert.True(t, strings.Contains(msg, tt.want))
		})
	}
}

func TestAuthorNotConnectedIsVoiceError(t *testing.T) {
	assert.ErrorIs(t, ErrAuthorNotConnected, boterrors.ErrNotInVoice)
}
