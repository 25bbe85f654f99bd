package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xilidan/automator/gateways/automator/middleware"
	"github.com/xilidan/automator/gateways/automator/view"
	"github.com/xilidan/automator/pkg/json"
	"github.com/xilidan/automator/services/automator/consts"
	"github.com/xilidan/automator/services/automator/entity"
	"github.com/xilidan/automator/services/automator/storage"
	"github.com/xilidan/automator/services/automator/usecase"
)

// multipart overhead allowed on top of the audio itself
const formOverhead = 1 << 20

type Handler struct {
	usecase usecase.Usecase
	storage storage.Storage
	formats []string
	log     *slog.Logger
}

func New(uc usecase.Usecase, st storage.Storage, formats []string, log *slog.Logger) *Handler {
	log.Debug("creating new handler", slog.Any("formats", formats))
	return &Handler{
		usecase: uc,
		storage: st,
		formats: formats,
		log:     log,
	}
}

type RunResponse struct {
	RunID   string                             `json:"run_id"`
	Stages  map[entity.Stage]entity.StageState `json:"stages"`
	Outcome *entity.RunOutcome                 `json:"outcome,omitempty"`
	Display *view.Display                      `json:"display,omitempty"`
}

// RegisterRoutes mounts the pages, the JSON API and /metrics on r. auth guards
// the run endpoints of the API.
func (h *Handler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/", h.UploadPage)
	r.Post("/runs", h.SubmitForm)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/health", h.HealthCheck)
		api.Group(func(runs chi.Router) {
			if auth != nil {
				runs.Use(auth)
			}
			runs.Post("/runs", h.CreateRun)
			runs.Get("/runs/current", h.CurrentRun)
			runs.Get("/runs/{run_id}", h.GetRun)
		})
	})
	h.log.Info("all routes registered successfully")
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	json.WriteJSON(w, http.StatusOK, map[string]bool{"status": true})
}

func (h *Handler) UploadPage(w http.ResponseWriter, r *http.Request) {
	current, err := h.storage.Current(r.Context())
	if err != nil {
		current = nil
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.RenderUpload(w, view.NewUploadPage(h.formats, current)); err != nil {
		h.log.Error("failed to render upload page", slog.String("error", err.Error()))
	}
}

// SubmitForm runs the pipeline for a browser upload and renders the result page.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	run, status, err := h.process(w, r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var display view.Display
	if err != nil {
		display = view.Display{Kind: entity.OutcomeTotalFailure, Error: requestErrorMessage(err)}
	} else {
		display = view.FromOutcome(*run.Outcome)
	}
	w.WriteHeader(status)
	if err := view.RenderResult(w, display); err != nil {
		h.log.Error("failed to render result page", slog.String("error", err.Error()))
	}
}

func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	run, status, err := h.process(w, r)
	if err != nil {
		json.WriteJSON(w, status, map[string]string{"error": requestErrorMessage(err)})
		return
	}
	json.WriteJSON(w, status, newRunResponse(run))
}

func (h *Handler) CurrentRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.storage.Current(r.Context())
	if err != nil {
		json.WriteError(w, http.StatusNotFound, fmt.Errorf("no run in progress"))
		return
	}
	json.WriteJSON(w, http.StatusOK, run)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := h.storage.Get(r.Context(), runID)
	if err != nil {
		h.log.Debug("run not found", slog.String("run_id", runID))
		json.WriteError(w, http.StatusNotFound, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, newRunResponse(run))
}

// process reads the upload, claims the single run slot and executes the pipeline.
// The returned status is the HTTP status to answer with.
func (h *Handler) process(w http.ResponseWriter, r *http.Request) (*entity.Run, int, error) {
	audio, err := h.readAudio(w, r)
	if err != nil {
		h.log.Warn("invalid upload", slog.String("error", err.Error()))
		return nil, uploadStatus(err), err
	}

	ctx := r.Context()
	run, err := h.storage.Begin(ctx, audio.Filename)
	if err != nil {
		h.log.Warn("run refused", slog.String("error", err.Error()))
		if errors.Is(err, storage.ErrBusy) {
			return nil, http.StatusConflict, err
		}
		return nil, http.StatusInternalServerError, err
	}

	log := h.log.With(slog.String("run_id", run.ID))
	log.Info("run accepted",
		slog.String("filename", audio.Filename),
		slog.String("subject", middleware.Subject(ctx)))

	// the run outlives a disconnecting client; only the backend timeout bounds it
	runCtx := context.WithoutCancel(ctx)
	observer := usecase.ObserverFunc(func(stage entity.Stage, state entity.StageState) {
		if err := h.storage.SetStage(runCtx, run.ID, stage, state); err != nil {
			log.Error("failed to update stage", slog.String("error", err.Error()))
		}
	})

	outcome := h.usecase.RunObserved(runCtx, audio, observer)

	run, err = h.storage.Finish(runCtx, run.ID, outcome)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	log.Info("run completed", slog.String("outcome", string(outcome.Kind)))
	return run, http.StatusOK, nil
}

func (h *Handler) readAudio(w http.ResponseWriter, r *http.Request) (entity.AudioInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, consts.MaxAudioSize+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return entity.AudioInput{}, entity.ErrAudioTooLarge
		}
		return entity.AudioInput{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return entity.AudioInput{}, fmt.Errorf("file is required: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return entity.AudioInput{}, fmt.Errorf("failed to read upload: %w", err)
	}

	audio := entity.AudioInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	if err := usecase.ValidateAudio(audio, h.formats); err != nil {
		return entity.AudioInput{}, err
	}
	return audio, nil
}

func uploadStatus(err error) int {
	switch {
	case errors.Is(err, entity.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, entity.ErrAudioTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func requestErrorMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrBusy):
		return "A meeting is already being processed. Please wait for it to finish."
	case errors.Is(err, entity.ErrUnsupportedFormat):
		return "Unsupported file type. " + err.Error()
	}
	return err.Error()
}

func newRunResponse(run *entity.Run) RunResponse {
	resp := RunResponse{RunID: run.ID, Stages: run.Stages, Outcome: run.Outcome}
	if run.Outcome != nil {
		d := view.FromOutcome(*run.Outcome)
		resp.Display = &d
	}
	return resp
}
