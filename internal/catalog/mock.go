package catalog

import (
	"context"

	"github.com/cesargomez89/musicdl/internal/domain"
)

// MockProvider serves a fixed catalog. It is used for offline runs and tests.
type MockProvider struct {
	Tracks []domain.Item
	Albums map[string]*Album
	// AlbumItems maps album ids to their tracks.
	AlbumItems map[string][]domain.Item
}

func NewMockProvider() *MockProvider {
	album := &Album{ID: "1", Title: "Mock Album", Artist: "Mock Artist", CoverURL: "https://example.com/cover.jpg", TrackCount: 2}
	return &MockProvider{
		Tracks: []domain.Item{
			{Title: "Mock Track", Artist: "Mock Artist", Album: "Mock Album", Duration: 180, CoverURL: album.CoverURL},
		},
		Albums: map[string]*Album{album.ID: album},
		AlbumItems: map[string][]domain.Item{
			album.ID: {
				{Title: "Mock Track", Artist: "Mock Artist", Album: "Mock Album", TrackPosition: 1, CoverURL: album.CoverURL, AlbumMember: true},
				{Title: "Second Track", Artist: "Mock Artist", Album: "Mock Album", TrackPosition: 2, CoverURL: album.CoverURL, AlbumMember: true},
			},
		},
	}
}

func (p *MockProvider) SearchTracks(ctx context.Context, query string) ([]domain.Item, error) {
	return p.Tracks, nil
}

func (p *MockProvider) SearchAlbums(ctx context.Context, query string) ([]Album, error) {
	albums := make([]Album, 0, len(p.Albums))
	for _, a := range p.Albums {
		albums = append(albums, *a)
	}
	return albums, nil
}

func (p *MockProvider) SearchArtists(ctx context.Context, query string) ([]Artist, error) {
	return []Artist{{ID: "1", Name: "Mock Artist", AlbumCount: len(p.Albums)}}, nil
}

func (p *MockProvider) GetAlbum(ctx context.Context, id string) (*Album, error) {
	album, ok := p.Albums[id]
	if !ok {
		return nil, ErrNotFound
	}
	return album, nil
}

func (p *MockProvider) AlbumTracks(ctx context.Context, album *Album) ([]domain.Item, error) {
	items, ok := p.AlbumItems[album.ID]
	if !ok {
		return nil, ErrNotFound
	}
	return items, nil
}

func (p *MockProvider) ArtistAlbums(ctx context.Context, artistID string) ([]Album, error) {
	return p.SearchAlbums(ctx, "")
}
