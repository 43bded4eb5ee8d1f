package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/portfolioweb/internal/middleware"
	"github.com/hitoshi/portfolioweb/internal/model"
)

// PageRenderer は公開ポートフォリオページを描画するインターフェース。
type PageRenderer interface {
	Render(w io.Writer, p *model.Profile) error
	RenderNotFound(w io.Writer, username string) error
}

// PortfolioHandler は公開ポートフォリオページのHTTPハンドラー。
// サブドメインでのアクセスはedgeで /portfolio/{username} に書き換えられてから届く。
type PortfolioHandler struct {
	profiles ProfileServiceInterface
	renderer PageRenderer
	metrics  Metrics
}

// NewPortfolioHandler はPortfolioHandlerを生成する。
func NewPortfolioHandler(profiles ProfileServiceInterface, renderer PageRenderer, metrics Metrics) *PortfolioHandler {
	return &PortfolioHandler{
		profiles: profiles,
		renderer: renderer,
		metrics:  orNoopMetrics(metrics),
	}
}

// Show はユーザー名に対応するポートフォリオページを返す。
// GET /portfolio/{username}
func (h *PortfolioHandler) Show(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	p, err := h.profiles.GetByUsername(r.Context(), username)
	if err != nil {
		if isNotFound(err) {
			h.writeNotFound(w, username)
			return
		}
		handleServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, p); err != nil {
		slog.Error("failed to render portfolio",
			slog.String("username", username),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	h.metrics.RecordPageRender(string(model.ParseThemeID(string(p.ThemeSettings.ThemeID))))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *PortfolioHandler) writeNotFound(w http.ResponseWriter, username string) {
	var buf bytes.Buffer
	if err := h.renderer.RenderNotFound(&buf, username); err != nil {
		slog.Error("failed to render not found page", slog.String("error", err.Error()))
		http.NotFound(w, nil)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write(buf.Bytes())
}
