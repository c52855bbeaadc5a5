package catalog

import "github.com/cesargomez89/musicdl/internal/domain"

// ToItem converts a catalog track. The album title and cover fall back to
// the given values when the track carries none.
func (t APITrack) ToItem(albumFallback, coverFallback string) domain.Item {
	item := domain.Item{
		Title:    t.Title,
		Duration: t.Duration,
		Album:    albumFallback,
		CoverURL: coverFallback,
	}
	if t.Artist != nil {
		item.Artist = t.Artist.Name
	}
	if t.Album != nil {
		item.Album = t.Album.Title
		if t.Album.CoverXL != "" {
			item.CoverURL = t.Album.CoverXL
		}
	}
	if t.TrackPosition != nil {
		item.TrackPosition = *t.TrackPosition
	}
	return item
}

func (a APIAlbum) ToDomain() Album {
	album := Album{
		ID:         a.ID.String(),
		Title:      a.Title,
		CoverURL:   a.CoverXL,
		TrackCount: a.NbTracks,
	}
	if a.Artist != nil {
		album.Artist = a.Artist.Name
	}
	return album
}

func (a APIArtist) ToDomain() Artist {
	return Artist{
		ID:         a.ID.String(),
		Name:       a.Name,
		PictureURL: a.PictureXL,
		AlbumCount: a.NbAlbum,
	}
}

func (l APITrackList) ToItems() []domain.Item {
	items := make([]domain.Item, 0, len(l.Data))
	for _, t := range l.Data {
		items = append(items, t.ToItem("", ""))
	}
	return items
}

func (l APIAlbumList) ToAlbums() []Album {
	albums := make([]Album, 0, len(l.Data))
	for _, a := range l.Data {
		albums = append(albums, a.ToDomain())
	}
	return albums
}

func (l APIArtistList) ToArtists() []Artist {
	artists := make([]Artist, 0, len(l.Data))
	for _, a := range l.Data {
		artists = append(artists, a.ToDomain())
	}
	return artists
}
