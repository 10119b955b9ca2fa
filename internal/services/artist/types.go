package artist

import (
	"context"

	"github.com/vibecheck/api/internal/services/spotify"
)

// Catalog is the slice of the Spotify Web API the resolver needs.
type Catalog interface {
	ServiceToken(ctx context.Context) (string, error)
	Me(ctx context.Context, token string) (*spotify.User, error)
	SearchArtists(ctx context.Context, token, query string, limit int) ([]*spotify.Artist, error)
	SearchTracks(ctx context.Context, token, query string, limit int, market string) ([]*spotify.Track, error)
	Track(ctx context.Context, token, id string) (*spotify.Track, error)
	Artist(ctx context.Context, token, id string) (*spotify.Artist, error)
}

// Artist is one recommendation. The JSON shape is shared with track results so the
// frontend can render both with one card: "artist" carries the genre tag and "album"
// is always empty.
type Artist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	GenreTag   string `json:"artist"`
	Album      string `json:"album"`
	ImageURL   string `json:"imageUrl"`
	Popularity int    `json:"popularity"`
}

// Track is a track search hit.
type Track struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	ImageURL    string `json:"imageUrl"`
	Popularity  int    `json:"popularity"`
	ExternalURL string `json:"externalUrl"`
}

// TrackInfo is the summary returned for a single track lookup.
type TrackInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	ImageURL string `json:"imageUrl"`
}

// Status tags a resolver Result.
type Status int

const (
	StatusFound Status = iota
	StatusEmpty
	StatusUpstreamError
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusEmpty:
		return "empty"
	case StatusUpstreamError:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of Resolve.
type Result struct {
	Status  Status
	Artists []Artist
	Err     error // cause when Status == StatusUpstreamError
}

// SeedResult is the outcome of SimilarToTrack. Message is the client-facing reason
// when Status is not StatusFound.
type SeedResult struct {
	Status  Status
	Genre   string
	Artists []Artist
	Message string
	Err     error
}
