package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xilidan/automator/gateways/automator/middleware"
	"github.com/xilidan/automator/services/automator/entity"
	"github.com/xilidan/automator/services/automator/storage"
	"github.com/xilidan/automator/services/automator/usecase"
)

type fakeUsecase struct {
	outcome entity.RunOutcome
	audio   entity.AudioInput
}

func (f *fakeUsecase) Run(ctx context.Context, audio entity.AudioInput) entity.RunOutcome {
	return f.RunObserved(ctx, audio, nil)
}

func (f *fakeUsecase) RunObserved(ctx context.Context, audio entity.AudioInput, obs usecase.Observer) entity.RunOutcome {
	f.audio = audio
	if obs != nil {
		for _, stage := range entity.Stages {
			obs.StageChanged(stage, entity.StateRunning)
			obs.StageChanged(stage, entity.StateDone)
		}
	}
	return f.outcome
}

func successOutcome() entity.RunOutcome {
	summary := "Report by Friday."
	return entity.RunOutcome{
		Kind:       entity.OutcomeSuccess,
		Transcript: "Alice sends the report.",
		Summary:    &summary,
		ActionItems: []entity.ActionItem{
			{Task: "Send report", Owner: "Alice", DueDate: "Friday"},
			{Task: "Review budget"},
		},
	}
}

func newTestRouter(uc usecase.Usecase, st storage.Storage, secret string) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(uc, st, []string{"wav"}, log)
	r := chi.NewRouter()
	h.RegisterRoutes(r, middleware.Auth(secret, log))
	return r
}

func uploadRequest(t *testing.T, path, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&fakeUsecase{}, storage.New(), "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": true}`, rec.Body.String())
}

func TestUploadPage(t *testing.T) {
	router := newTestRouter(&fakeUsecase{}, storage.New(), "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `accept=".wav"`)
	assert.Contains(t, rec.Body.String(), `action="/runs"`)
}

func TestCreateRun_Success(t *testing.T) {
	uc := &fakeUsecase{outcome: successOutcome()}
	st := storage.New()
	router := newTestRouter(uc, st, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/v1/runs", "standup.wav", []byte("RIFF")))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "standup.wav", uc.audio.Filename)
	assert.Equal(t, []byte("RIFF"), uc.audio.Data)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	require.NotNil(t, resp.Outcome)
	assert.Equal(t, entity.OutcomeSuccess, resp.Outcome.Kind)
	require.NotNil(t, resp.Display)
	require.Len(t, resp.Display.ActionItems, 2)
	assert.Equal(t, "Alice", resp.Display.ActionItems[0].Owner)
	assert.Equal(t, entity.StateDone, resp.Stages[entity.StageSummarize])

	// the finished run is available by id and the slot is free again
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+resp.RunID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/current", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRun_UnsupportedFormat(t *testing.T) {
	uc := &fakeUsecase{outcome: successOutcome()}
	router := newTestRouter(uc, storage.New(), "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/v1/runs", "notes.txt", []byte("hello")))

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unsupported file type")
	assert.Empty(t, uc.audio.Filename)
}

func TestCreateRun_MissingFile(t *testing.T) {
	router := newTestRouter(&fakeUsecase{}, storage.New(), "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRun_BusyRefused(t *testing.T) {
	uc := &fakeUsecase{outcome: successOutcome()}
	st := storage.New()
	router := newTestRouter(uc, st, "")

	inFlight, err := st.Begin(context.Background(), "first.wav")
	require.NoError(t, err)
	require.NoError(t, st.SetStage(context.Background(), inFlight.ID, entity.StageTranscribe, entity.StateRunning))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/v1/runs", "second.wav", []byte("RIFF")))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, uc.audio.Filename)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/current", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var run entity.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, inFlight.ID, run.ID)
	assert.True(t, run.Busy(entity.StageTranscribe))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), `type="submit" disabled>`)
}

func TestGetRun_NotFound(t *testing.T) {
	router := newTestRouter(&fakeUsecase{}, storage.New(), "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/unknown", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitForm_RendersResult(t *testing.T) {
	router := newTestRouter(&fakeUsecase{outcome: successOutcome()}, storage.New(), "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/runs", "standup.wav", []byte("RIFF")))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Send report")
	assert.Contains(t, body, "Owner: Alice")
	assert.Contains(t, body, "Due: Friday")
	assert.Contains(t, body, "Review budget")
}

func TestSubmitForm_TotalFailure(t *testing.T) {
	outcome := entity.RunOutcome{Kind: entity.OutcomeTotalFailure, Reason: "No transcription was returned from the backend."}
	router := newTestRouter(&fakeUsecase{outcome: outcome}, storage.New(), "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/runs", "standup.wav", []byte("RIFF")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No transcription was returned from the backend.")
}

func TestAuthRequiredWhenSecretSet(t *testing.T) {
	router := newTestRouter(&fakeUsecase{outcome: successOutcome()}, storage.New(), "secret")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/v1/runs", "standup.wav", []byte("RIFF")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// health stays public
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&fakeUsecase{}, storage.New(), "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
