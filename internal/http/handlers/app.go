package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/domain"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/infra"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/jobs"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/middleware"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/storage"
)

// Dispatcher schedules background processing of a created job.
type Dispatcher interface {
	Dispatch(job domain.Job) bool
}

// ModelResolver validates the optional model profile of a new job.
type ModelResolver interface {
	Resolve(name string) (string, error)
	Names() []string
}

// App holds the dependencies shared by the HTTP handlers.
type App struct {
	Jobs       *jobs.Manager
	Dispatcher Dispatcher
	Assets     storage.AssetStore
	Models     ModelResolver
	Logger     infra.Logger

	MaxUploadBytes int64
	AssetBaseURL   string
}

func NewApp(cfg *infra.Config, manager *jobs.Manager, dispatcher Dispatcher, assets storage.AssetStore, models ModelResolver, logger infra.Logger) *App {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &App{
		Jobs:           manager,
		Dispatcher:     dispatcher,
		Assets:         assets,
		Models:         models,
		Logger:         logger,
		MaxUploadBytes: maxUpload,
		AssetBaseURL:   strings.TrimRight(cfg.StorageBaseURL, "/"),
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorResponse{Error: errCode, Message: message})
}

// internal logs the cause and answers with a generic 500.
func (a *App) internal(w http.ResponseWriter, r *http.Request, err error, message string) {
	a.Logger.Error().
		Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("path", r.URL.Path).
		Msg(message)
	a.error(w, http.StatusInternalServerError, "internal", message)
}

func (a *App) assetURL(key string) string {
	if key == "" {
		return ""
	}
	if a.AssetBaseURL == "" {
		return "/uploads/" + key
	}
	return a.AssetBaseURL + "/" + key
}
