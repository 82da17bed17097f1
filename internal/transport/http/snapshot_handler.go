package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/rahul-epicap/valuation-agent/internal/errors"
	"github.com/rahul-epicap/valuation-agent/internal/services"
	"github.com/rahul-epicap/valuation-agent/internal/store"
)

// SnapshotHandler serves workbook upload and snapshot lifecycle endpoints.
type SnapshotHandler struct {
	snapshots      *services.SnapshotService
	valuations     *services.ValuationService
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(snapshots *services.SnapshotService, valuations *services.ValuationService, maxUploadBytes int64, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		snapshots:      snapshots,
		valuations:     valuations,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
		errorHandler:   apierrors.NewErrorHandler(logger, false),
	}
}

// RegisterRoutes registers the upload, snapshot, and dashboard-data routes
func (h *SnapshotHandler) RegisterRoutes(r chi.Router) {
	r.Post("/upload", h.Upload)
	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", h.List)
		r.Delete("/{id}", h.Delete)
	})
	r.Get("/dashboard-data", h.LatestDataset)
	r.Get("/dashboard-data/{id}", h.DatasetByID)
}

// uploadResponse echoes the stored snapshot metadata back to the uploader.
type uploadResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	CreatedAt      string `json:"created_at"`
	SourceFilename string `json:"source_filename"`
	TickerCount    int    `json:"ticker_count"`
	DateCount      int    `json:"date_count"`
	IndustryCount  int    `json:"industry_count"`
}

// Upload ingests a multipart workbook upload and creates a new snapshot.
// Form fields: file (required), name (optional).
func (h *SnapshotHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "a workbook file is required"))
		return
	}
	defer file.Close()

	name := r.FormValue("name")

	snap, err := h.snapshots.Upload(ctx, header.Filename, name, file)
	if err != nil {
		h.handleUploadError(w, r, err)
		return
	}

	// A new snapshot changes what "latest" means
	h.valuations.InvalidateCache()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, uploadResponse{
		ID:             snap.ID,
		Name:           snap.Name,
		CreatedAt:      snap.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		SourceFilename: snap.SourceFilename,
		TickerCount:    snap.TickerCount,
		DateCount:      snap.DateCount,
		IndustryCount:  snap.IndustryCount,
	})
}

// List returns snapshot metadata, newest first.
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	metas, err := h.snapshots.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list snapshots",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrStorage)
		return
	}

	render.JSON(w, r, metas)
}

// Delete removes a snapshot by ID.
func (h *SnapshotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := snapshotID(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "snapshot id must be an integer"))
		return
	}

	if err := h.snapshots.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.ErrSnapshotNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to delete snapshot",
			slog.Int64("snapshot_id", id),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrStorage)
		return
	}

	h.valuations.InvalidateCache()

	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

// LatestDataset returns the latest snapshot's dataset JSON.
func (h *SnapshotHandler) LatestDataset(w http.ResponseWriter, r *http.Request) {
	h.writeDataset(w, r, nil)
}

// DatasetByID returns a specific snapshot's dataset JSON.
func (h *SnapshotHandler) DatasetByID(w http.ResponseWriter, r *http.Request) {
	id, err := snapshotID(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "snapshot id must be an integer"))
		return
	}
	h.writeDataset(w, r, &id)
}

func (h *SnapshotHandler) writeDataset(w http.ResponseWriter, r *http.Request, id *int64) {
	ctx := r.Context()

	dataset, err := h.valuations.Dataset(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.ErrSnapshotNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to load dataset",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrStorage)
		return
	}

	render.JSON(w, r, dataset)
}

func (h *SnapshotHandler) handleUploadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidUpload):
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest, "INVALID_FILE_TYPE",
			"Invalid file type. Please upload an Excel workbook (.xlsx or .xls)", err.Error()))
	case errors.Is(err, services.ErrWorkbookParse):
		h.errorHandler.HandleError(w, r, apierrors.ParseFailedError(err))
	default:
		h.logger.ErrorContext(r.Context(), "snapshot upload failed",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrStorage)
	}
}

func snapshotID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
