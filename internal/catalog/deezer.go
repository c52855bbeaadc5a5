package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cesargomez89/musicdl/internal/constants"
	"github.com/cesargomez89/musicdl/internal/domain"
	"github.com/cesargomez89/musicdl/internal/httpclient"
)

const maxResponseBytes = 8 << 20

// DeezerProvider talks to the public Deezer API.
type DeezerProvider struct {
	client  *httpclient.Client
	baseURL string
}

func NewDeezerProvider(baseURL string, client *httpclient.Client) *DeezerProvider {
	if baseURL == "" {
		baseURL = constants.DefaultCatalogURL
	}
	if client == nil {
		client = httpclient.NewClient(nil, constants.CatalogMinInterval)
	}
	return &DeezerProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (p *DeezerProvider) SearchTracks(ctx context.Context, query string) ([]domain.Item, error) {
	var res APITrackList
	if err := p.get(ctx, p.searchURL("track", query), &res, func() *APIError { return res.Error }); err != nil {
		return nil, err
	}
	return res.ToItems(), nil
}

func (p *DeezerProvider) SearchAlbums(ctx context.Context, query string) ([]Album, error) {
	var res APIAlbumList
	if err := p.get(ctx, p.searchURL("album", query), &res, func() *APIError { return res.Error }); err != nil {
		return nil, err
	}
	return res.ToAlbums(), nil
}

func (p *DeezerProvider) SearchArtists(ctx context.Context, query string) ([]Artist, error) {
	var res APIArtistList
	if err := p.get(ctx, p.searchURL("artist", query), &res, func() *APIError { return res.Error }); err != nil {
		return nil, err
	}
	return res.ToArtists(), nil
}

func (p *DeezerProvider) GetAlbum(ctx context.Context, id string) (*Album, error) {
	var res APIAlbumResponse
	u := fmt.Sprintf("%s/album/%s", p.baseURL, url.PathEscape(id))
	if err := p.get(ctx, u, &res, func() *APIError { return res.Error }); err != nil {
		return nil, err
	}
	album := res.ToDomain()
	return &album, nil
}

// AlbumTracks lists the tracks of album as album members, filling in the
// album title and cover where the track listing omits them.
func (p *DeezerProvider) AlbumTracks(ctx context.Context, album *Album) ([]domain.Item, error) {
	var res APITrackList
	u := fmt.Sprintf("%s/album/%s/tracks?limit=%d", p.baseURL, url.PathEscape(album.ID), constants.CatalogListLimit)
	if err := p.get(ctx, u, &res, func() *APIError { return res.Error }); err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(res.Data))
	for _, t := range res.Data {
		item := t.ToItem(album.Title, album.CoverURL)
		if item.Artist == "" {
			item.Artist = album.Artist
		}
		item.AlbumMember = true
		items = append(items, item)
	}
	return items, nil
}

func (p *DeezerProvider) ArtistAlbums(ctx context.Context, artistID string) ([]Album, error) {
	var res APIAlbumList
	u := fmt.Sprintf("%s/artist/%s/albums?limit=%d", p.baseURL, url.PathEscape(artistID), constants.CatalogListLimit)
	if err := p.get(ctx, u, &res, func() *APIError { return res.Error }); err != nil {
		return nil, err
	}
	return res.ToAlbums(), nil
}

func (p *DeezerProvider) searchURL(kind, query string) string {
	return fmt.Sprintf("%s/search/%s?q=%s&limit=%d", p.baseURL, kind, url.QueryEscape(query), constants.CatalogSearchLimit)
}

// get decodes the JSON body at u into out. apiErr is consulted after
// decoding for errors reported in the body.
func (p *DeezerProvider) get(ctx context.Context, u string, out any, apiErr func() *APIError) error {
	data, err := p.client.Get(ctx, u, maxResponseBytes)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("catalog request failed: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse catalog response: %w", err)
	}
	if e := apiErr(); e != nil {
		if e.Code == 800 {
			return fmt.Errorf("%w: %s", ErrNotFound, e.Message)
		}
		return e
	}
	return nil
}
