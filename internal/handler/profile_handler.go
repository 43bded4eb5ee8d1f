package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/portfolioweb/internal/middleware"
	"github.com/hitoshi/portfolioweb/internal/model"
	"github.com/hitoshi/portfolioweb/internal/profile"
)

// ProfileServiceInterface はプロフィール関連ハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByUsername(ctx context.Context, username string) (*model.Profile, error)
	Upsert(ctx context.Context, email string, in profile.Input) (*model.Profile, error)
}

// themeSettingsDTO はテーマ設定のJSON表現。
// 旧クライアントが送るbgcolorも背景トークンとして受け付ける。
type themeSettingsDTO struct {
	Background string `json:"background"`
	BgColor    string `json:"bgcolor,omitempty"`
	ThemeID    string `json:"themeId"`
}

// profileRequest はPOST /api/profileのリクエストボディ。
// 旧クライアントが送るfullNameもnameとして受け付ける。
type profileRequest struct {
	Username        string                 `json:"username"`
	Name            string                 `json:"name"`
	FullName        string                 `json:"fullName,omitempty"`
	Specialization  string                 `json:"specialization"`
	About           string                 `json:"about"`
	Country         string                 `json:"country"`
	Phone           string                 `json:"phone"`
	Image           string                 `json:"image"`
	CVURL           string                 `json:"cvUrl"`
	Language        string                 `json:"language"`
	Skills          []string               `json:"skills"`
	Services        []model.Service        `json:"services"`
	Education       []model.Education      `json:"education"`
	Experience      []model.Experience     `json:"experience"`
	Projects        []model.Project        `json:"projects"`
	Certificates    []model.Certificate    `json:"certificates"`
	SpokenLanguages []model.SpokenLanguage `json:"spokenLanguages"`
	Socials         map[string]string      `json:"socials"`
	SectionOrder    []string               `json:"sectionOrder"`
	ThemeSettings   themeSettingsDTO       `json:"themeSettings"`
}

func (req profileRequest) toInput() profile.Input {
	background := req.ThemeSettings.Background
	if background == "" {
		background = req.ThemeSettings.BgColor
	}
	name := req.Name
	if name == "" {
		name = req.FullName
	}
	return profile.Input{
		Username:        req.Username,
		Name:            name,
		Specialization:  req.Specialization,
		About:           req.About,
		Country:         req.Country,
		Phone:           req.Phone,
		ImageURL:        req.Image,
		CVURL:           req.CVURL,
		Language:        req.Language,
		Skills:          req.Skills,
		Services:        req.Services,
		Education:       req.Education,
		Experience:      req.Experience,
		Projects:        req.Projects,
		Certificates:    req.Certificates,
		SpokenLanguages: req.SpokenLanguages,
		Socials:         req.Socials,
		SectionOrder:    req.SectionOrder,
		ThemeBackground: background,
		ThemeID:         req.ThemeSettings.ThemeID,
	}
}

// profileResponse はプロフィールのJSON表現。
type profileResponse struct {
	ID                 string                 `json:"id"`
	Email              string                 `json:"email"`
	Username           string                 `json:"username"`
	Name               string                 `json:"name"`
	Specialization     string                 `json:"specialization"`
	About              string                 `json:"about"`
	Country            string                 `json:"country"`
	Phone              string                 `json:"phone"`
	Image              string                 `json:"image"`
	CVURL              string                 `json:"cvUrl"`
	Language           string                 `json:"language"`
	Skills             []string               `json:"skills"`
	Services           []model.Service        `json:"services"`
	Education          []model.Education      `json:"education"`
	Experience         []model.Experience     `json:"experience"`
	Projects           []model.Project        `json:"projects"`
	Certificates       []model.Certificate    `json:"certificates"`
	SpokenLanguages    []model.SpokenLanguage `json:"spokenLanguages"`
	Socials            map[string]string      `json:"socials"`
	SectionOrder       []string               `json:"sectionOrder"`
	ThemeSettings      themeSettingsDTO       `json:"themeSettings"`
	SubscriptionStatus string                 `json:"subscriptionStatus"`
	TrialEndsAt        time.Time              `json:"trialEndsAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

func toProfileResponse(p *model.Profile) profileResponse {
	order := make([]string, len(p.SectionOrder))
	for i, s := range p.SectionOrder {
		order[i] = string(s)
	}
	socials := make(map[string]string, len(p.Socials))
	for k, v := range p.Socials {
		socials[k] = v
	}

	return profileResponse{
		ID:                 p.ID,
		Email:              p.Email,
		Username:           p.Username,
		Name:               p.Name,
		Specialization:     p.Specialization,
		About:              p.About,
		Country:            p.Country,
		Phone:              p.Phone,
		Image:              p.ImageURL,
		CVURL:              p.CVURL,
		Language:           p.Language,
		Skills:             nonNil(p.Skills),
		Services:           nonNil(p.Services),
		Education:          nonNil(p.Education),
		Experience:         nonNil(p.Experience),
		Projects:           nonNil(p.Projects),
		Certificates:       nonNil(p.Certificates),
		SpokenLanguages:    nonNil(p.SpokenLanguages),
		Socials:            socials,
		SectionOrder:       order,
		ThemeSettings:      themeSettingsDTO{Background: p.ThemeSettings.Background, ThemeID: string(p.ThemeSettings.ThemeID)},
		SubscriptionStatus: string(p.SubscriptionStatus),
		TrialEndsAt:        p.TrialEndsAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// nonNil はJSONでnullではなく空配列を返すために使う。
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ProfileHandler はサインイン中のユーザー自身のプロフィールを扱うHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
	metrics Metrics
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface, metrics Metrics) *ProfileHandler {
	return &ProfileHandler{service: service, metrics: orNoopMetrics(metrics)}
}

// Get は自分のプロフィールを返す。
// GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	p, err := h.service.GetByID(r.Context(), profileID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// Save は自分のプロフィールを入力内容で置き換える。
// POST /api/profile
func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	var req profileRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	current, err := h.service.GetByID(r.Context(), profileID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	saved, err := h.service.Upsert(r.Context(), current.Email, req.toInput())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.metrics.RecordProfileUpsert()

	writeJSON(w, http.StatusOK, toProfileResponse(saved))
}
