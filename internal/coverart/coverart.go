// Package coverart downloads album cover images.
package coverart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cesargomez89/musicdl/internal/constants"
	"github.com/cesargomez89/musicdl/internal/httpclient"
)

const maxImageBytes = 20 << 20

var ErrInvalidURL = errors.New("cover url must be http or https")

// Source returns the raw bytes of the image at url.
type Source interface {
	FetchCover(ctx context.Context, url string) ([]byte, error)
}

type Client struct {
	http *httpclient.Client
}

func NewClient(hc *httpclient.Client) *Client {
	if hc == nil {
		hc = httpclient.NewClient(nil, 0)
	}
	return &Client{http: hc}
}

func (c *Client) FetchCover(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, ErrInvalidURL
	}

	data, err := c.http.Get(ctx, url, maxImageBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to download cover: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty cover image")
	}
	return data, nil
}

// Cache stores cover bytes with an expiry.
type Cache interface {
	GetCache(key string) ([]byte, error)
	SetCache(key string, data []byte, ttl time.Duration) error
}

// CachedSource serves repeated covers from cache. Album members share one
// cover URL, so a batch fetches each image once.
type CachedSource struct {
	source Source
	cache  Cache
	ttl    time.Duration
}

func NewCachedSource(source Source, cache Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, cache: cache, ttl: ttl}
}

func (c *CachedSource) FetchCover(ctx context.Context, url string) ([]byte, error) {
	key := cacheKey(url)

	if data, err := c.cache.GetCache(key); err == nil && len(data) > 0 {
		return data, nil
	}

	data, err := c.source.FetchCover(ctx, url)
	if err != nil {
		return nil, err
	}
	_ = c.cache.SetCache(key, data, c.ttl)
	return data, nil
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return constants.CoverCacheKeyBase + hex.EncodeToString(sum[:])
}
