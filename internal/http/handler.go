package httpapp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/musicdl/internal/catalog"
	"github.com/cesargomez89/musicdl/internal/constants"
	"github.com/cesargomez89/musicdl/internal/domain"
	"github.com/cesargomez89/musicdl/internal/http/dto"
	"github.com/cesargomez89/musicdl/internal/logger"
	"github.com/cesargomez89/musicdl/internal/progress"
)

// Downloads is the part of the download manager the API drives.
type Downloads interface {
	Submit(ctx context.Context, items []domain.Item) (domain.BatchHandle, error)
	Snapshot(ctx context.Context) (progress.Snapshot, error)
	Logs(ctx context.Context) ([]domain.LogEntry, error)
	ClearLogs(ctx context.Context) error
	Subscribe() (<-chan progress.Snapshot, func())
	BaseDir() string
	SetBaseDir(dir string)
}

// History is the persisted record of past batches.
type History interface {
	ListDownloads(limit int) ([]*domain.Download, error)
	ListDownloadsByBatch(batchID string) ([]*domain.Download, error)
	ClearDownloads() error
	ListBatches(limit int) ([]*domain.Batch, error)
	GetBatch(id string) (*domain.Batch, error)
	ListLogsByBatch(batchID string) ([]*domain.LogEntry, error)
}

type Settings interface {
	Set(key, value string) error
	Delete(key string) error
}

type Handler struct {
	Downloads Downloads
	Provider  catalog.Provider
	History   History
	Settings  Settings
	Logger    *logger.Logger
	// DefaultDownloadDir is restored when the saved directory is reset.
	DefaultDownloadDir string
}

func NewHandler(downloads Downloads, provider catalog.Provider, history History, settings Settings) *Handler {
	return &Handler{
		Downloads:          downloads,
		Provider:           provider,
		History:            history,
		Settings:           settings,
		Logger:             logger.Default().WithComponent("http"),
		DefaultDownloadDir: downloads.BaseDir(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/downloads", h.SubmitDownloads)
		r.Get("/downloads", h.GetSnapshot)
		r.Get("/downloads/events", h.StreamSnapshots)
		r.Get("/logs", h.GetLogs)
		r.Delete("/logs", h.ClearLogs)
		r.Get("/history", h.GetHistory)
		r.Delete("/history", h.ClearHistory)
		r.Get("/batches", h.ListBatches)
		r.Get("/batches/{id}", h.GetBatch)

		r.Get("/search", h.Search)
		r.Get("/albums/{id}", h.GetAlbum)
		r.Post("/albums/{id}/download", h.DownloadAlbum)
		r.Get("/artists/{id}/albums", h.ArtistAlbums)

		r.Get("/settings/download-dir", h.GetDownloadDir)
		r.Put("/settings/download-dir", h.SetDownloadDir)
		r.Delete("/settings/download-dir", h.ResetDownloadDir)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, dto.ErrorResponse{Error: err.Error()})
}

func (h *Handler) writeValidation(w http.ResponseWriter, errs []dto.ValidationError) {
	h.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error:  dto.ToResponse(errs),
		Fields: dto.ToMap(errs),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, constants.MaxRequestBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
