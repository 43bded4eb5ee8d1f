package handler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/portfolioweb/internal/cv"
	"github.com/hitoshi/portfolioweb/internal/middleware"
	"github.com/hitoshi/portfolioweb/internal/model"
)

// CVExporter はプロフィールからCVを生成するインターフェース。
type CVExporter interface {
	Export(ctx context.Context, p *model.Profile) (*cv.Document, error)
}

// CVHandler はCVダウンロードのHTTPハンドラー。
type CVHandler struct {
	profiles ProfileServiceInterface
	exporter CVExporter
	metrics  Metrics
}

// NewCVHandler はCVHandlerを生成する。
func NewCVHandler(profiles ProfileServiceInterface, exporter CVExporter, metrics Metrics) *CVHandler {
	return &CVHandler{
		profiles: profiles,
		exporter: exporter,
		metrics:  orNoopMetrics(metrics),
	}
}

// DownloadOwn はサインイン中のユーザー自身のCVを返す。
// POST /api/cv/download
func (h *CVHandler) DownloadOwn(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	p, err := h.profiles.GetByID(r.Context(), profileID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.export(w, r, p)
}

// DownloadPublic は公開ポートフォリオの訪問者向けにCVを返す。
// GET /api/portfolio/download/{username}
func (h *CVHandler) DownloadPublic(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.export(w, r, p)
}

func (h *CVHandler) export(w http.ResponseWriter, r *http.Request, p *model.Profile) {
	start := time.Now()
	doc, err := h.exporter.Export(r.Context(), p)
	h.metrics.RecordExport(err == nil, time.Since(start))
	if err != nil {
		slog.Error("failed to generate CV",
			slog.String("profile_id", p.ID),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		middleware.WriteAPIError(w, model.NewCVGenerationFailedError())
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Data)
}
