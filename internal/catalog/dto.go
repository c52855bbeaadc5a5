package catalog

import (
	"encoding/json"
	"fmt"
)

// APIError is the error object returned with a 200 status.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog error %d (%s): %s", e.Code, e.Type, e.Message)
}

type APIArtistRef struct {
	Name string `json:"name"`
}

type APIAlbumRef struct {
	Title   string `json:"title"`
	CoverXL string `json:"cover_xl"`
}

type APITrack struct {
	Artist        *APIArtistRef `json:"artist"`
	Album         *APIAlbumRef  `json:"album"`
	TrackPosition *uint32       `json:"track_position"`
	Title         string        `json:"title"`
	Duration      float64       `json:"duration"`
}

type APIAlbum struct {
	Artist   *APIArtistRef `json:"artist"`
	ID       json.Number   `json:"id"`
	Title    string        `json:"title"`
	CoverXL  string        `json:"cover_xl"`
	NbTracks int           `json:"nb_tracks"`
}

type APIArtist struct {
	ID        json.Number `json:"id"`
	Name      string      `json:"name"`
	PictureXL string      `json:"picture_xl"`
	NbAlbum   int         `json:"nb_album"`
}

type APITrackList struct {
	Error *APIError  `json:"error"`
	Data  []APITrack `json:"data"`
}

type APIAlbumList struct {
	Error *APIError  `json:"error"`
	Data  []APIAlbum `json:"data"`
}

type APIArtistList struct {
	Error *APIError   `json:"error"`
	Data  []APIArtist `json:"data"`
}

type APIAlbumResponse struct {
	Error *APIError `json:"error"`
	APIAlbum
}
