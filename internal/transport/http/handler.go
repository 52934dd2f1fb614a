package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"radioeval-service/internal/entity"
	"radioeval-service/internal/objectstore"
	"radioeval-service/internal/pipeline"
	"radioeval-service/internal/repository/postgresql"
	"radioeval-service/internal/service"
)

// uploadExpiry bounds how long an issued upload URL stays valid.
const uploadExpiry = 5 * time.Minute

// JobAPI is the orchestrator port the transport needs.
type JobAPI interface {
	StartJob(ctx context.Context, input entity.JobInput) (string, error)
	GetJob(ctx context.Context, id string) (*entity.Job, error)
}

// Analyzer is the synchronous single-unit path.
type Analyzer interface {
	AnalyzeOne(ctx context.Context, audioKey string) (string, entity.EvaluationRecord, error)
}

// Uploader issues presigned upload URLs.
type Uploader interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
}

type Handler struct {
	jobs     JobAPI
	analyzer Analyzer
	uploads  Uploader
}

func NewHandler(jobs JobAPI, analyzer Analyzer, uploads Uploader) *Handler {
	return &Handler{jobs: jobs, analyzer: analyzer, uploads: uploads}
}

type createJobDTO struct {
	AudioKeys []string       `json:"audio_keys"`
	XMLKeys   entity.XMLKeys `json:"xml_keys"`
}

type createJobResp struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type analyzeDTO struct {
	AudioKey string `json:"audio_key"`
}

type analyzeResp struct {
	Transcript string                  `json:"transcript"`
	Evaluation entity.EvaluationRecord `json:"evaluation"`
}

type uploadURLResp struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
}

// CreateJob godoc
// @Summary Start a session evaluation job
// @Description Persists a pending job and dispatches it for background processing.
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body createJobDTO true "audio units and optional metadata document keys"
// @Success 202 {object} createJobResp
// @Failure 400 {object} apiError
// @Failure 500 {object} apiError
// @Router /jobs [post]
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var dto createJobDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	id, err := h.jobs.StartJob(r.Context(), entity.JobInput{
		AudioKeys: dto.AudioKeys,
		XMLKeys:   dto.XMLKeys,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoAudioKeys) {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		writeErr(w, http.StatusInternalServerError, "could not create job")
		return
	}

	writeJSON(w, http.StatusAccepted, createJobResp{JobID: id, Status: string(entity.StatusPending)})
}

// GetJob godoc
// @Summary Get job status and result
// @Tags jobs
// @Produce json
// @Param id path string true "job id"
// @Success 200 {object} entity.Job
// @Failure 404 {object} apiError
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgresql.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "could not load job")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// Analyze godoc
// @Summary Transcribe and score a single audio unit synchronously
// @Description Blocks until the unit is transcribed and scored. No job record is created.
// @Tags analyze
// @Accept json
// @Produce json
// @Param request body analyzeDTO true "audio unit key"
// @Success 200 {object} analyzeResp
// @Failure 400 {object} apiError
// @Failure 422 {object} apiError
// @Failure 502 {object} apiError
// @Router /analyze [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var dto analyzeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if dto.AudioKey == "" {
		writeErr(w, http.StatusBadRequest, "audio_key is required")
		return
	}

	transcript, record, err := h.analyzer.AnalyzeOne(r.Context(), dto.AudioKey)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoTranscription) {
			writeErr(w, http.StatusUnprocessableEntity, "audio unit produced no transcript")
			return
		}
		writeErr(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, analyzeResp{Transcript: transcript, Evaluation: record})
}

// UploadURL godoc
// @Summary Issue a presigned upload URL
// @Description Bare filenames land under input/; a missing filename gets a random .wav name.
// @Tags upload
// @Produce json
// @Param filename query string false "target filename"
// @Success 200 {object} uploadURLResp
// @Failure 502 {object} apiError
// @Router /upload-url [get]
func (h *Handler) UploadURL(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = uuid.NewString() + ".wav"
	}

	key := objectstore.UploadKey(filename)
	uploadURL, err := h.uploads.PresignPut(r.Context(), key, objectstore.ContentTypeFor(filename), uploadExpiry)
	if err != nil {
		writeErr(w, http.StatusBadGateway, "could not presign upload")
		return
	}

	writeJSON(w, http.StatusOK, uploadURLResp{UploadURL: uploadURL, Key: key})
}
