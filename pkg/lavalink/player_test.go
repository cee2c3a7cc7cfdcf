package lavalink

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records calls. Stop ends the track like Lavalink does.
type fakeBackend struct {
	mu        sync.Mutex
	played    []string
	stops     int
	destroyed int
	paused    bool
	volume    int
	failPlay  bool
	player    *Player
}

func (f *fakeBackend) PlayTrack(_ string, track *Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPlay {
		return errors.New("node down")
	}
	f.played = append(f.played, track.Info.Title)
	return nil
}

func (f *fakeBackend) StopTrack(string) error {
	f.mu.Lock()
	f.stops++
	p := f.player
	f.mu.Unlock()
	if p != nil {
		p.TrackEnded()
	}
	return nil
}

func (f *fakeBackend) SetPaused(_ string, paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = paused
	return nil
}

func (f *fakeBackend) SetVolume(_ string, volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = volume
	return nil
}

func (f *fakeBackend) DestroyPlayer(string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed++
	return nil
}

func (f *fakeBackend) playedTitles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakePublisher) Publish(topic string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakePublisher) has(suffix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.topics {
		if strings.HasSuffix(t, suffix) {
			return true
		}
	}
	return false
}

func track(title string) *Track {
	return &Track{Encoded: "enc-" + title, Info: TrackInfo{Title: title, Length: 1000}}
}

func newTestPlayer() (*Player, *fakeBackend, *fakePublisher) {
	backend := &fakeBackend{}
	pub := &fakePublisher{}
	p := NewPlayer("g1", backend, pub)
	backend.player = p
	return p, backend, pub
}

func waitPlayed(t *testing.T, b *fakeBackend, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(b.playedTitles()) >= n }, time.Second, time.Millisecond)
}

func TestPlayerDrainsQueueInOrder(t *testing.T) {
	p, backend, pub := newTestPlayer()
	defer p.Destroy()

	require.NoError(t, p.Enqueue(track("T1"), track("T2"), track("T3")))

	for i := 1; i <= 3; i++ {
		waitPlayed(t, backend, i)
		require.Eventually(t, p.IsPlaying, time.Second, time.Millisecond)
		p.TrackEnded()
	}

	require.Eventually(t, func() bool { return !p.IsPlaying() }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"T1", "T2", "T3"}, backend.playedTitles())
	assert.True(t, p.Queue().IsEmpty())
	assert.True(t, pub.has("/g1/playing"))
	assert.True(t, pub.has("/g1/stopped"))
}

func TestPlayerWaitsForMoreTracks(t *testing.T) {
	p, backend, _ := newTestPlayer()
	defer p.Destroy()

	require.NoError(t, p.Enqueue(track("T1")))
	waitPlayed(t, backend, 1)
	p.TrackEnded()

	require.Eventually(t, func() bool { return p.Queue().Waiting() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, p.Enqueue(track("T2")))
	waitPlayed(t, backend, 2)
	assert.Equal(t, "T2", p.Current().Info.Title)
}

func TestPlayerRepeat(t *testing.T) {
	p, backend, _ := newTestPlayer()
	defer p.Destroy()

	p.Queue().SetRepeat(true)
	require.NoError(t, p.Enqueue(track("T1"), track("T2")))

	for i := 1; i <= 3; i++ {
		waitPlayed(t, backend, i)
		p.TrackEnded()
	}
	waitPlayed(t, backend, 3)
	assert.Equal(t, []string{"T1", "T1", "T1"}, backend.playedTitles()[:3])
}

func TestPlayerLoop(t *testing.T) {
	p, backend, _ := newTestPlayer()
	defer p.Destroy()

	p.Queue().SetLoop(true)
	require.NoError(t, p.Enqueue(track("T1"), track("T2"), track("T3")))

	for i := 1; i <= 4; i++ {
		waitPlayed(t, backend, i)
		p.TrackEnded()
	}
	waitPlayed(t, backend, 4)
	assert.Equal(t, []string{"T2", "T3", "T1", "T2"}, backend.playedTitles()[:4])
}

func TestPlayerSkip(t *testing.T) {
	p, backend, _ := newTestPlayer()
	defer p.Destroy()

	skipped, err := p.Skip()
	require.NoError(t, err)
	assert.Nil(t, skipped, "nothing to skip while idle")

	require.NoError(t, p.Enqueue(track("T1"), track("T2")))
	waitPlayed(t, backend, 1)
	require.Eventually(t, p.IsPlaying, time.Second, time.Millisecond)

	skipped, err = p.Skip()
	require.NoError(t, err)
	assert.Equal(t, "T1", skipped.Info.Title)

	waitPlayed(t, backend, 2)
	assert.Equal(t, []string{"T1", "T2"}, backend.playedTitles())
}

func TestPlayerDestroy(t *testing.T) {
	p, backend, pub := newTestPlayer()

	p.Queue().SetLoop(true)
	p.Queue().SetRepeat(true)
	require.NoError(t, p.Enqueue(track("T1"), track("T2")))
	waitPlayed(t, backend, 1)

	p.Destroy()

	assert.True(t, p.Queue().IsEmpty())
	assert.False(t, p.Queue().Loop())
	assert.False(t, p.Queue().Repeat())
	assert.Nil(t, p.Current())
	assert.Equal(t, 1, backend.destroyed)
	assert.True(t, pub.has("/g1/destroyed"))

	// a destroyed player never starts playing again
	played := len(backend.playedTitles())
	assert.ErrorIs(t, p.Enqueue(track("T3")), ErrPlayerDestroyed)
	assert.True(t, p.Queue().IsEmpty())
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, backend.playedTitles(), played)
}

func TestPlayerVoiceChannel(t *testing.T) {
	p, _, _ := newTestPlayer()
	assert.Empty(t, p.VoiceChannel())

	p.mu.Lock()
	p.VoiceChannelID = "vc1"
	p.mu.Unlock()
	assert.Equal(t, "vc1", p.VoiceChannel())
}

func TestPlayerDestroyWhileIdle(t *testing.T) {
	p, backend, _ := newTestPlayer()
	p.Destroy()
	assert.Equal(t, 1, backend.destroyed)
}

func TestPlayerPlayFailureMovesOn(t *testing.T) {
	p, backend, _ := newTestPlayer()
	p.retryDelay = time.Millisecond
	defer p.Destroy()

	backend.failPlay = true
	require.NoError(t, p.Enqueue(track("broken")))
	require.Eventually(t, func() bool { return p.Queue().Waiting() == 1 }, time.Second, time.Millisecond)

	backend.mu.Lock()
	backend.failPlay = false
	backend.mu.Unlock()

	require.NoError(t, p.Enqueue(track("ok")))
	waitPlayed(t, backend, 1)
	assert.Equal(t, []string{"ok"}, backend.playedTitles())
}

func TestPlayerPauseAndVolume(t *testing.T) {
	p, backend, _ := newTestPlayer()

	require.NoError(t, p.Pause(true))
	assert.True(t, p.IsPaused())
	assert.True(t, backend.paused)

	v, err := p.SetVolume(5000)
	require.NoError(t, err)
	assert.Equal(t, MaxVolume, v)

	v, err = p.SetVolume(-3)
	require.NoError(t, err)
	assert.Equal(t, MinVolume, v)
	assert.Equal(t, MinVolume, p.State().Volume)
}

func TestPlayerState(t *testing.T) {
	p, _, _ := newTestPlayer()
	p.Queue().Enqueue(track("A"))
	p.Queue().Enqueue(track("B"))
	p.Queue().SetLoop(true)

	state := p.State()
	assert.Equal(t, "g1", state.GuildID)
	assert.False(t, state.IsPlaying)
	assert.True(t, state.Loop)
	require.Len(t, state.Queue, 2)
	assert.Equal(t, "A", state.Queue[0].Title)
	assert.Equal(t, 1.0, state.Queue[0].Duration)
}
