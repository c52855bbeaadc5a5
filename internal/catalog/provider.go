// Package catalog looks up tracks and albums in a music metadata service and
// turns them into download items.
package catalog

import (
	"context"

	"github.com/cesargomez89/musicdl/internal/domain"
)

type Provider interface {
	SearchTracks(ctx context.Context, query string) ([]domain.Item, error)
	SearchAlbums(ctx context.Context, query string) ([]Album, error)
	SearchArtists(ctx context.Context, query string) ([]Artist, error)
	GetAlbum(ctx context.Context, id string) (*Album, error)
	AlbumTracks(ctx context.Context, album *Album) ([]domain.Item, error)
	ArtistAlbums(ctx context.Context, artistID string) ([]Album, error)
}

// AlbumItems resolves an album id to its download items.
func AlbumItems(ctx context.Context, p Provider, albumID string) ([]domain.Item, error) {
	album, err := p.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}
	return p.AlbumTracks(ctx, album)
}
