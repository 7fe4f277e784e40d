package catalog

import (
	"context"
	"errors"
	"net/url"
	"time"
)

// ErrNotFound is returned by stores when no entry exists for a playlist id.
var ErrNotFound = errors.New("playlist not cached")

// Track is one playable item of a playlist.
type Track struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Position     int64  `json:"position"`
	Thumbnail    string `json:"thumbnail,omitempty"`
	ChannelTitle string `json:"channelTitle,omitempty"`
}

// Entry is a cached playlist fetch.
type Entry struct {
	PlaylistID string    `json:"playlistId"`
	FetchedAt  time.Time `json:"fetchedAt"`
	Items      []Track   `json:"items"`
}

// Result is what a lookup returns to the HTTP layer.
type Result struct {
	Entry     *Entry
	FromCache bool
	Stale     bool
}

// Store persists playlist entries. Entries are kept past their freshness
// window so a stale copy can still be served when the upstream fails.
type Store interface {
	Get(ctx context.Context, id string) (*Entry, error)
	Put(ctx context.Context, id string, entry *Entry) error
	All(ctx context.Context) (map[string]*Entry, error)
}

// Fetcher retrieves a playlist from the upstream API.
type Fetcher interface {
	FetchPlaylist(ctx context.Context, id string) ([]Track, error)
}

// ResolvePlaylistID accepts either a bare playlist id or a full share URL and
// returns the id. Unparsable input is passed through as-is.
func ResolvePlaylistID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if list := u.Query().Get("list"); list != "" {
		return list
	}
	return raw
}
