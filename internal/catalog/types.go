package catalog

import "errors"

var ErrNotFound = errors.New("not found in catalog")

type Album struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	CoverURL   string `json:"cover_url"`
	TrackCount int    `json:"track_count"`
}

type Artist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PictureURL string `json:"picture_url"`
	AlbumCount int    `json:"album_count"`
}

// SearchType selects what a search returns.
type SearchType string

const (
	SearchTracks  SearchType = "track"
	SearchAlbums  SearchType = "album"
	SearchArtists SearchType = "artist"
)

// ParseSearchType maps an empty or unknown value to track search.
func ParseSearchType(s string) SearchType {
	switch SearchType(s) {
	case SearchAlbums:
		return SearchAlbums
	case SearchArtists:
		return SearchArtists
	default:
		return SearchTracks
	}
}
