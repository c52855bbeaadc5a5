package dto

import (
	"fmt"

	"github.com/cesargomez89/musicdl/internal/catalog"
	"github.com/cesargomez89/musicdl/internal/domain"
)

// MaxBatchSize caps the number of items in one submission.
const MaxBatchSize = 500

type ItemRequest struct {
	Title         string  `json:"title" yaml:"title"`
	Artist        string  `json:"artist" yaml:"artist"`
	Album         string  `json:"album" yaml:"album"`
	CoverURL      string  `json:"cover_url" yaml:"cover_url"`
	Duration      float64 `json:"duration" yaml:"duration"`
	TrackPosition uint32  `json:"track_position" yaml:"track_position"`
	AlbumMember   bool    `json:"album_member" yaml:"album_member"`
}

func (r ItemRequest) Validate(prefix string) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateRequired(prefix+"title", r.Title)...)
	errs = append(errs, validateRequired(prefix+"artist", r.Artist)...)
	errs = append(errs, validateHTTPURL(prefix+"cover_url", r.CoverURL)...)
	errs = append(errs, validateDuration(prefix+"duration", r.Duration)...)
	return errs
}

func (r ItemRequest) ToDomain() domain.Item {
	return domain.Item{
		Title:         r.Title,
		Artist:        r.Artist,
		Album:         r.Album,
		Duration:      r.Duration,
		TrackPosition: r.TrackPosition,
		CoverURL:      r.CoverURL,
		AlbumMember:   r.AlbumMember,
	}
}

type SubmitRequest struct {
	Items []ItemRequest `json:"items" yaml:"items"`
}

func (r SubmitRequest) Validate() []ValidationError {
	if len(r.Items) == 0 {
		return []ValidationError{{Field: "items", Message: "must contain at least one item"}}
	}
	if len(r.Items) > MaxBatchSize {
		return []ValidationError{{Field: "items", Message: fmt.Sprintf("must contain at most %d items", MaxBatchSize)}}
	}
	var errs []ValidationError
	for i, item := range r.Items {
		errs = append(errs, item.Validate(fmt.Sprintf("items[%d].", i))...)
	}
	return errs
}

func (r SubmitRequest) ToDomain() []domain.Item {
	items := make([]domain.Item, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, item.ToDomain())
	}
	return items
}

type SubmitResponse struct {
	BatchID string          `json:"batch_id"`
	ItemIDs []domain.ItemID `json:"item_ids"`
}

type DownloadDirRequest struct {
	Path string `json:"path"`
}

func (r DownloadDirRequest) Validate() []ValidationError {
	return validateRequired("path", r.Path)
}

type DownloadDirResponse struct {
	Path string `json:"path"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type AlbumResponse struct {
	Album  catalog.Album `json:"album"`
	Tracks []domain.Item `json:"tracks"`
}

type BatchResponse struct {
	Batch     *domain.Batch      `json:"batch"`
	Downloads []*domain.Download `json:"downloads"`
	Logs      []*domain.LogEntry `json:"logs"`
}

func NewBatchResponse(batch *domain.Batch, downloads []*domain.Download, logs []*domain.LogEntry) BatchResponse {
	if downloads == nil {
		downloads = []*domain.Download{}
	}
	if logs == nil {
		logs = []*domain.LogEntry{}
	}
	return BatchResponse{Batch: batch, Downloads: downloads, Logs: logs}
}
