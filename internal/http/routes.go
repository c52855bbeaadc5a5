package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/musicdl/internal/catalog"
	"github.com/cesargomez89/musicdl/internal/constants"
	"github.com/cesargomez89/musicdl/internal/domain"
	"github.com/cesargomez89/musicdl/internal/http/dto"
	"github.com/cesargomez89/musicdl/internal/storage"
	"github.com/cesargomez89/musicdl/internal/store"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) SubmitDownloads(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}
	h.submit(w, r, req.ToDomain())
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, items []domain.Item) {
	handle, err := h.Downloads.Submit(r.Context(), items)
	switch {
	case errors.Is(err, domain.ErrEmptyBatch):
		h.writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, domain.ErrManagerStopped):
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, dto.SubmitResponse{
		BatchID: handle.BatchID,
		ItemIDs: handle.ItemIDs,
	})
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Downloads.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// StreamSnapshots sends the current snapshot and then every change as
// server-sent events until the client goes away.
func (h *Handler) StreamSnapshots(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	updates, unsubscribe := h.Downloads.Subscribe()
	defer unsubscribe()

	snap, err := h.Downloads.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(v any) bool {
		data, err := json.Marshal(v)
		if err != nil {
			h.Logger.Error("Failed to encode snapshot", "error", err)
			return false
		}
		if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(snap) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok || !send(snap) {
				return
			}
		}
	}
}

func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Downloads.Logs(r.Context())
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, entry := range logs {
			fmt.Fprintf(w, "%s\n\n", entry.Text())
		}
		return
	}
	if logs == nil {
		logs = []domain.LogEntry{}
	}
	h.writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	if err := h.Downloads.ClearLogs(r.Context()); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	var (
		downloads []*domain.Download
		err       error
	)
	if batchID := r.URL.Query().Get("batch"); batchID != "" {
		downloads, err = h.History.ListDownloadsByBatch(batchID)
	} else {
		limit, ok := h.parseLimit(w, r)
		if !ok {
			return
		}
		downloads, err = h.History.ListDownloads(limit)
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if downloads == nil {
		downloads = []*domain.Download{}
	}
	h.writeJSON(w, http.StatusOK, downloads)
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.History.ClearDownloads(); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}
	batches, err := h.History.ListBatches(limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if batches == nil {
		batches = []*domain.Batch{}
	}
	h.writeJSON(w, http.StatusOK, batches)
}

func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	batch, err := h.History.GetBatch(id)
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	downloads, err := h.History.ListDownloadsByBatch(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	logs, err := h.History.ListLogsByBatch(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewBatchResponse(batch, downloads, logs))
}

// parseLimit reads ?limit=, defaulting to MaxHistoryItems. It writes the
// validation error itself and reports false on bad input.
func (h *Handler) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return constants.MaxHistoryItems, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		h.writeValidation(w, []dto.ValidationError{{Field: "limit", Message: "must be a positive integer"}})
		return 0, false
	}
	return n, true
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeValidation(w, []dto.ValidationError{{Field: "q", Message: "is required"}})
		return
	}

	var (
		results any
		err     error
	)
	switch catalog.ParseSearchType(r.URL.Query().Get("type")) {
	case catalog.SearchAlbums:
		results, err = h.Provider.SearchAlbums(r.Context(), query)
	case catalog.SearchArtists:
		results, err = h.Provider.SearchArtists(r.Context(), query)
	default:
		results, err = h.Provider.SearchTracks(r.Context(), query)
	}
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

func (h *Handler) GetAlbum(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	album, err := h.Provider.GetAlbum(r.Context(), id)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	tracks, err := h.Provider.AlbumTracks(r.Context(), album)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.AlbumResponse{Album: *album, Tracks: tracks})
}

func (h *Handler) DownloadAlbum(w http.ResponseWriter, r *http.Request) {
	items, err := catalog.AlbumItems(r.Context(), h.Provider, chi.URLParam(r, "id"))
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.submit(w, r, items)
}

func (h *Handler) ArtistAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := h.Provider.ArtistAlbums(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, albums)
}

func (h *Handler) writeCatalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, err)
		return
	}
	h.writeError(w, http.StatusBadGateway, err)
}

func (h *Handler) GetDownloadDir(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, dto.DownloadDirResponse{Path: h.Downloads.BaseDir()})
}

func (h *Handler) SetDownloadDir(w http.ResponseWriter, r *http.Request) {
	var req dto.DownloadDirRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}
	if err := storage.EnsureDir(req.Path); err != nil {
		h.writeValidation(w, []dto.ValidationError{{Field: "path", Message: err.Error()}})
		return
	}
	if err := h.Settings.Set(store.SettingDownloadDir, req.Path); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.Downloads.SetBaseDir(req.Path)
	h.Logger.Info("Download directory changed", "path", req.Path)
	h.writeJSON(w, http.StatusOK, dto.DownloadDirResponse{Path: req.Path})
}

// ResetDownloadDir forgets the saved directory and returns to the configured
// default.
func (h *Handler) ResetDownloadDir(w http.ResponseWriter, r *http.Request) {
	if err := h.Settings.Delete(store.SettingDownloadDir); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.Downloads.SetBaseDir(h.DefaultDownloadDir)
	h.Logger.Info("Download directory reset", "path", h.DefaultDownloadDir)
	h.writeJSON(w, http.StatusOK, dto.DownloadDirResponse{Path: h.DefaultDownloadDir})
}
