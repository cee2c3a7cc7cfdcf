package music

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PancyStudios/UselessBotGo/pkg/lavalink"
)

// supportedHosts are the sources Lavalink can play from a link. Subdomains
// are accepted.
var supportedHosts = []string{
	"youtube.com",
	"youtu.be",
	"soundcloud.com",
	"deezer.com",
	"bandcamp.com",
	"twitch.tv",
	"vimeo.com",
}

// loader resolves queries into tracks
type loader interface {
	Load(ctx context.Context, query string) (*lavalink.LoadResult, error)
}

// isURL reports whether the query should be treated as a link rather than
// a search
func isURL(query string) bool {
	return strings.Contains(query, "://")
}

// checkURL accepts http(s) links to a supported host
func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrURLNotSupported, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrURLNotSupported, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	for _, h := range supportedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrURLNotSupported, host)
}

// resolve loads a query. Playlists return every track with the playlist
// name; links and searches return a single track.
func resolve(ctx context.Context, l loader, query, requester string) (string, []*lavalink.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil, ErrNotFound
	}
	if isURL(query) {
		if err := checkURL(query); err != nil {
			return "", nil, err
		}
	}

	result, err := l.Load(ctx, query)
	if err != nil {
		return "", nil, err
	}

	name, tracks, err := result.Tracks()
	if err != nil {
		return "", nil, err
	}

	if result.IsPlaylist() {
		if len(tracks) == 0 {
			return "", nil, ErrPlaylistIsEmpty
		}
	} else {
		if len(tracks) == 0 {
			return "", nil, ErrNotFound
		}
		tracks = tracks[:1]
	}

	for _, t := range tracks {
		t.Requester = requester
	}
	return name, tracks, nil
}
