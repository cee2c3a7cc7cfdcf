package lavalink

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Volume constants
const (
	MinVolume     = 0
	MaxVolume     = 1000
	DefaultVolume = 100
)

// Load types returned by /v4/loadtracks
const (
	LoadTypeTrack    = "track"
	LoadTypePlaylist = "playlist"
	LoadTypeSearch   = "search"
	LoadTypeEmpty    = "empty"
	LoadTypeError    = "error"
)

// NodeConfig holds configuration for a Lavalink node
type NodeConfig struct {
	Name     string
	Host     string
	Port     int
	Password string
	Secure   bool
}

// TrackInfo contains information about a track
type TrackInfo struct {
	Identifier string `json:"identifier"`
	IsSeekable bool   `json:"isSeekable"`
	Author     string `json:"author"`
	Length     int64  `json:"length"`
	IsStream   bool   `json:"isStream"`
	Position   int64  `json:"position"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	ArtworkURL string `json:"artworkUrl"`
	SourceName string `json:"sourceName"`
}

// Track represents a playable track. Requester is set by the bot, not by
// Lavalink.
type Track struct {
	Encoded   string    `json:"encoded"`
	Info      TrackInfo `json:"info"`
	Requester string    `json:"-"`
}

// LoadResult is the raw /v4/loadtracks response. Data depends on LoadType.
type LoadResult struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

// LoadException is the data of an "error" load result
type LoadException struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
}

type playlistData struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Tracks []*Track `json:"tracks"`
}

// Tracks decodes the result. name is the playlist name for playlists and
// empty otherwise. Search results return every match; callers usually keep
// the first one.
func (r *LoadResult) Tracks() (name string, tracks []*Track, err error) {
	switch r.LoadType {
	case LoadTypeTrack:
		var t Track
		if err := json.Unmarshal(r.Data, &t); err != nil {
			return "", nil, fmt.Errorf("decode track: %w", err)
		}
		return "", []*Track{&t}, nil
	case LoadTypeSearch:
		if err := json.Unmarshal(r.Data, &tracks); err != nil {
			return "", nil, fmt.Errorf("decode search: %w", err)
		}
		return "", tracks, nil
	case LoadTypePlaylist:
		var p playlistData
		if err := json.Unmarshal(r.Data, &p); err != nil {
			return "", nil, fmt.Errorf("decode playlist: %w", err)
		}
		return p.Info.Name, p.Tracks, nil
	case LoadTypeEmpty:
		return "", nil, nil
	case LoadTypeError:
		var e LoadException
		_ = json.Unmarshal(r.Data, &e)
		return "", nil, fmt.Errorf("lavalink: %s (%s)", e.Message, e.Severity)
	}
	return "", nil, fmt.Errorf("lavalink: unknown load type %q", r.LoadType)
}

// IsPlaylist reports whether the result is a playlist
func (r *LoadResult) IsPlaylist() bool {
	return r.LoadType == LoadTypePlaylist
}

// MusicState represents the current music state for MQTT publishing and
// the web API
type MusicState struct {
	GuildID      string        `json:"guildId"`
	IsPlaying    bool          `json:"isPlaying"`
	IsPaused     bool          `json:"isPaused"`
	Loop         bool          `json:"loop"`
	Repeat       bool          `json:"repeat"`
	CurrentTrack *TrackState   `json:"currentTrack"`
	Progress     float64       `json:"progress"`
	Volume       int           `json:"volume"`
	Queue        []*TrackState `json:"queue"`
	Timestamp    int64         `json:"timestamp"`
}

// TrackState represents a track in the music state
type TrackState struct {
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Duration  float64 `json:"duration"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	URL       string  `json:"url,omitempty"`
	Requester string  `json:"requester,omitempty"`
}

func trackState(t *Track) *TrackState {
	return &TrackState{
		Title:     t.Info.Title,
		Artist:    t.Info.Author,
		Duration:  float64(t.Info.Length) / 1000,
		Thumbnail: t.Info.ArtworkURL,
		URL:       t.Info.URI,
		Requester: t.Requester,
	}
}

// playerUpdate is the body of PATCH /v4/sessions/{session}/players/{guild}
type playerUpdate struct {
	Track  *trackUpdate `json:"track,omitempty"`
	Paused *bool        `json:"paused,omitempty"`
	Volume *int         `json:"volume,omitempty"`
	Voice  *voiceUpdate `json:"voice,omitempty"`
}

// trackUpdate carries a null encoded value to stop playback
type trackUpdate struct {
	Encoded *string `json:"encoded"`
}

type voiceUpdate struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
}

// wsMessage is any frame received on the node websocket
type wsMessage struct {
	Op        string `json:"op"`
	SessionID string `json:"sessionId"`
	Resumed   bool   `json:"resumed"`
	GuildID   string `json:"guildId"`
	Type      string `json:"type"`
	Reason    string `json:"reason"`
	State     struct {
		Position  int64 `json:"position"`
		Connected bool  `json:"connected"`
	} `json:"state"`
	Exception *LoadException `json:"exception"`
}
