package lavalink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/PancyStudios/UselessBotGo/pkg/mqtt"
	"github.com/PancyStudios/UselessBotGo/pkg/queue"
)

// ErrPlayerDestroyed is returned when tracks are added to a player that was
// already torn down
var ErrPlayerDestroyed = errors.New("player destroyed")

// Backend is what a Player needs from a Lavalink node
type Backend interface {
	PlayTrack(guildID string, track *Track) error
	StopTrack(guildID string) error
	SetPaused(guildID string, paused bool) error
	SetVolume(guildID string, volume int) error
	DestroyPlayer(guildID string) error
}

// Player plays one guild's queue. A single goroutine dequeues tracks, asks
// the backend to play them and waits for the track end event before
// taking the next one.
type Player struct {
	GuildID        string
	TextChannelID  string
	VoiceChannelID string

	queue     *queue.SongQueue[*Track]
	backend   Backend
	publisher mqtt.Publisher

	mu        sync.RWMutex
	current   *Track
	paused    bool
	volume    int
	position  int64
	destroyed bool

	trackEnd chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}

	progressInterval time.Duration
	retryDelay       time.Duration
}

// NewPlayer creates an idle player. Playback starts with the first Enqueue.
func NewPlayer(guildID string, backend Backend, publisher mqtt.Publisher) *Player {
	return &Player{
		GuildID:          guildID,
		queue:            queue.New[*Track](),
		backend:          backend,
		publisher:        publisher,
		volume:           DefaultVolume,
		trackEnd:         make(chan struct{}, 1),
		progressInterval: 5 * time.Second,
		retryDelay:       time.Second,
	}
}

// Queue exposes the pending tracks, loop and repeat flags
func (p *Player) Queue() *queue.SongQueue[*Track] {
	return p.queue
}

// VoiceChannel returns the voice channel the player was joined to
func (p *Player) VoiceChannel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.VoiceChannelID
}

// Enqueue appends tracks and makes sure the playback goroutine is running.
// A destroyed player takes no tracks.
func (p *Player) Enqueue(tracks ...*Track) error {
	p.mu.RLock()
	destroyed := p.destroyed
	p.mu.RUnlock()
	if destroyed {
		return ErrPlayerDestroyed
	}

	for _, t := range tracks {
		p.queue.Enqueue(t)
	}
	return p.start()
}

func (p *Player) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		p.queue.Clear()
		return ErrPlayerDestroyed
	}
	if p.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
	return nil
}

func (p *Player) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		track, err := p.queue.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrCancelled) {
				logger.Error(fmt.Sprintf("Error obteniendo la siguiente canción en %s: %v", p.GuildID, err), "Player")
			}
			return
		}

		p.setCurrent(track)

		if err := p.backend.PlayTrack(p.GuildID, track); err != nil {
			logger.Error(fmt.Sprintf("No se pudo reproducir '%s' en %s: %v", track.Info.Title, p.GuildID, err), "Player")
			p.setCurrent(nil)
			select {
			case <-time.After(p.retryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		logger.Info(fmt.Sprintf("Reproduciendo: %s en guild %s", track.Info.Title, p.GuildID), "Player")
		p.publish("playing")

		if !p.waitTrackEnd(ctx) {
			return
		}

		p.setCurrent(nil)
		p.publish("stopped")

		if p.queue.IsEmpty() {
			logger.Info(fmt.Sprintf("Cola finalizada en guild %s", p.GuildID), "Player")
		}
	}
}

// waitTrackEnd blocks until the current track ends, publishing progress
// meanwhile. It returns false when the player was destroyed.
func (p *Player) waitTrackEnd(ctx context.Context) bool {
	ticker := time.NewTicker(p.progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.trackEnd:
			return true
		case <-ticker.C:
			p.publish("progress")
		case <-ctx.Done():
			return false
		}
	}
}

func (p *Player) setCurrent(track *Track) {
	p.mu.Lock()
	p.current = track
	p.position = 0
	p.mu.Unlock()

	if track != nil {
		// drop a stale end signal from a previous track
		select {
		case <-p.trackEnd:
		default:
		}
	}
}

// TrackEnded tells the playback goroutine that the current track finished
func (p *Player) TrackEnded() {
	select {
	case p.trackEnd <- struct{}{}:
	default:
	}
}

// Current returns the track being played, or nil
func (p *Player) Current() *Track {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// IsPlaying reports whether a track is loaded
func (p *Player) IsPlaying() bool {
	return p.Current() != nil
}

// Position returns the last reported position in milliseconds
func (p *Player) Position() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

func (p *Player) setPosition(ms int64) {
	p.mu.Lock()
	p.position = ms
	p.mu.Unlock()
}

// Skip stops the current track. The playback goroutine then moves on.
func (p *Player) Skip() (*Track, error) {
	current := p.Current()
	if current == nil {
		return nil, nil
	}
	if err := p.backend.StopTrack(p.GuildID); err != nil {
		return nil, err
	}
	return current, nil
}

// Pause pauses or resumes playback
func (p *Player) Pause(paused bool) error {
	if err := p.backend.SetPaused(p.GuildID, paused); err != nil {
		return err
	}
	p.mu.Lock()
	p.paused = paused
	p.mu.Unlock()
	p.publish("paused")
	return nil
}

// IsPaused reports whether playback is paused
func (p *Player) IsPaused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

// SetVolume clamps and applies the volume, returning the applied value
func (p *Player) SetVolume(volume int) (int, error) {
	volume = ClampVolume(volume)
	if err := p.backend.SetVolume(p.GuildID, volume); err != nil {
		return 0, err
	}
	p.mu.Lock()
	p.volume = volume
	p.mu.Unlock()
	return volume, nil
}

// ClampVolume limits a volume to [MinVolume, MaxVolume]
func ClampVolume(volume int) int {
	if volume < MinVolume {
		return MinVolume
	}
	if volume > MaxVolume {
		return MaxVolume
	}
	return volume
}

// Destroy stops the playback goroutine, drops the queue and resets loop
// and repeat. The player can not be started again.
func (p *Player) Destroy() {
	p.mu.Lock()
	p.destroyed = true
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	p.queue.Clear()
	p.queue.SetLoop(false)
	p.queue.SetRepeat(false)
	p.setCurrent(nil)

	if err := p.backend.DestroyPlayer(p.GuildID); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo destruir el player de %s: %v", p.GuildID, err), "Player")
	}
	p.publish("destroyed")
}

// State returns a snapshot for MQTT and the web API
func (p *Player) State() MusicState {
	p.mu.RLock()
	state := MusicState{
		GuildID:   p.GuildID,
		IsPlaying: p.current != nil,
		IsPaused:  p.paused,
		Loop:      p.queue.Loop(),
		Repeat:    p.queue.Repeat(),
		Progress:  float64(p.position) / 1000,
		Volume:    p.volume,
		Timestamp: time.Now().UnixMilli(),
	}
	if p.current != nil {
		state.CurrentTrack = trackState(p.current)
	}
	p.mu.RUnlock()

	for _, t := range p.queue.ToList() {
		state.Queue = append(state.Queue, trackState(t))
	}
	return state
}

func (p *Player) publish(event string) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(mqtt.MusicTopic(p.GuildID, event), p.State()); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
		logger.Debug(fmt.Sprintf("No se pudo publicar %s: %v", event, err), "Player")
	}
}
