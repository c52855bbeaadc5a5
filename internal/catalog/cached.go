package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cesargomez89/musicdl/internal/domain"
)

type Cache interface {
	GetCache(key string) ([]byte, error)
	SetCache(key string, data []byte, ttl time.Duration) error
}

// CachedProvider memoizes lookups of another provider in a Cache.
type CachedProvider struct {
	provider Provider
	cache    Cache
	cacheTTL time.Duration
}

func NewCachedProvider(provider Provider, cache Cache, cacheTTL time.Duration) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

func (c *CachedProvider) SearchTracks(ctx context.Context, query string) ([]domain.Item, error) {
	return cached(c, fmt.Sprintf("search:track:%s", query), func() ([]domain.Item, error) {
		return c.provider.SearchTracks(ctx, query)
	})
}

func (c *CachedProvider) SearchAlbums(ctx context.Context, query string) ([]Album, error) {
	return cached(c, fmt.Sprintf("search:album:%s", query), func() ([]Album, error) {
		return c.provider.SearchAlbums(ctx, query)
	})
}

func (c *CachedProvider) SearchArtists(ctx context.Context, query string) ([]Artist, error) {
	return cached(c, fmt.Sprintf("search:artist:%s", query), func() ([]Artist, error) {
		return c.provider.SearchArtists(ctx, query)
	})
}

func (c *CachedProvider) GetAlbum(ctx context.Context, id string) (*Album, error) {
	return cached(c, fmt.Sprintf("album:%s", id), func() (*Album, error) {
		return c.provider.GetAlbum(ctx, id)
	})
}

func (c *CachedProvider) AlbumTracks(ctx context.Context, album *Album) ([]domain.Item, error) {
	return cached(c, fmt.Sprintf("album_tracks:%s", album.ID), func() ([]domain.Item, error) {
		return c.provider.AlbumTracks(ctx, album)
	})
}

func (c *CachedProvider) ArtistAlbums(ctx context.Context, artistID string) ([]Album, error) {
	return cached(c, fmt.Sprintf("artist_albums:%s", artistID), func() ([]Album, error) {
		return c.provider.ArtistAlbums(ctx, artistID)
	})
}

func cached[T any](c *CachedProvider, key string, fetch func() (T, error)) (T, error) {
	if data, err := c.cache.GetCache(key); err == nil && data != nil {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
	}

	v, err := fetch()
	if err != nil {
		return v, err
	}

	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.SetCache(key, data, c.cacheTTL)
	}
	return v, nil
}
