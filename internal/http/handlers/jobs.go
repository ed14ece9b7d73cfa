package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/unicode/norm"

	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/domain"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/imagegen"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/jobs"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/providers/image"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/storage"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500

	// multipartOverhead leaves room for the form fields and boundaries
	// around the image part.
	multipartOverhead = 1 << 20
)

type jobResponse struct {
	ID               string    `json:"id"`
	Prompt           string    `json:"prompt"`
	Model            string    `json:"model"`
	OriginalImageRef string    `json:"original_image_ref"`
	OriginalImageURL string    `json:"original_image_url"`
	ResultImageRef   *string   `json:"result_image_ref"`
	Status           string    `json:"status"`
	ErrorMessage     *string   `json:"error_message"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type jobListResponse struct {
	Items []jobResponse `json:"items"`
	Total int           `json:"total"`
}

func (a *App) toResponse(job *domain.Job) jobResponse {
	resp := jobResponse{
		ID:               job.ID,
		Prompt:           job.Prompt,
		Model:            job.Model,
		OriginalImageRef: job.OriginalImageRef,
		OriginalImageURL: a.assetURL(job.OriginalImageRef),
		Status:           string(job.Status),
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
	}
	if job.ResultImageRef != "" {
		ref := job.ResultImageRef
		resp.ResultImageRef = &ref
	}
	if job.ErrorMessage != "" {
		msg := job.ErrorMessage
		resp.ErrorMessage = &msg
	}
	return resp
}

// CreateJob accepts a multipart upload ("image", "prompt", optional "model"),
// stores the source image, persists a pending job and schedules it.
func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if isTooLarge(err) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("image exceeds %d bytes", a.MaxUploadBytes))
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "image file is required")
		return
	}
	defer file.Close()

	ext := imagegen.ExtensionForContentType(mediaType(header.Header.Get("Content-Type")))
	if ext == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "file must be an image (JPEG, PNG, or WebP)")
		return
	}
	prompt := norm.NFC.String(strings.TrimSpace(r.FormValue("prompt")))
	if prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	model, err := a.Models.Resolve(r.FormValue("model"))
	if err != nil {
		if errors.Is(err, image.ErrUnknownProfile) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.internal(w, r, err, "failed to resolve model")
		return
	}
	if header.Size > a.MaxUploadBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("image exceeds %d bytes", a.MaxUploadBytes))
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, a.MaxUploadBytes+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read image")
		return
	}
	if int64(len(data)) > a.MaxUploadBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("image exceeds %d bytes", a.MaxUploadBytes))
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "image file is empty")
		return
	}

	ctx := r.Context()
	id := jobs.NewID()
	key, err := a.Assets.Write(ctx, id+ext, data)
	if err != nil {
		a.internal(w, r, err, "failed to store image")
		return
	}
	job, err := a.Jobs.Create(ctx, jobs.CreateParams{ID: id, Prompt: prompt, Model: model, ImageRef: key})
	if err != nil {
		if derr := a.Assets.Delete(ctx, key); derr != nil {
			a.Logger.Warn().Err(derr).Str("key", key).Msg("create job: orphaned source image")
		}
		a.internal(w, r, err, "failed to create job")
		return
	}
	if !a.Dispatcher.Dispatch(*job) {
		a.Logger.Warn().Str("job_id", job.ID).Msg("create job: not dispatched")
	}
	a.json(w, http.StatusOK, a.toResponse(job))
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.internal(w, r, err, "failed to load job")
		return
	}
	a.json(w, http.StatusOK, a.toResponse(job))
}

// ListJobs returns jobs newest first. skip and limit default to 0 and 100;
// limit is capped at 500.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	page, err := a.Jobs.List(r.Context(), skip, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.internal(w, r, err, "failed to list jobs")
		return
	}
	resp := jobListResponse{Items: make([]jobResponse, 0, len(page.Items)), Total: page.Total}
	for i := range page.Items {
		resp.Items = append(resp.Items, a.toResponse(&page.Items[i]))
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Jobs.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.internal(w, r, err, "failed to delete job")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"message": "Job deleted successfully", "job_id": id})
}

// ServeUpload streams a stored source image.
func (a *App) ServeUpload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	data, err := a.Assets.Read(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			a.error(w, http.StatusNotFound, "not_found", "file not found")
			return
		}
		a.internal(w, r, err, "failed to read file")
		return
	}
	w.Header().Set("Content-Type", imagegen.MIMETypeForExt(filepath.Ext(key)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}
