package handler

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/cardshow/cardshow/internal/ctxkeys"
	"github.com/cardshow/cardshow/internal/render"
	"github.com/cardshow/cardshow/internal/service"
	"github.com/cardshow/cardshow/internal/validation"
)

// BatchQueue hands accepted batches to the background worker.
type BatchQueue interface {
	Enqueue(batchID string)
}

type UploadHandler struct {
	uploadService *service.UploadService
	queue         BatchQueue
	maxFiles      int
}

func NewUploadHandler(uploadService *service.UploadService, queue BatchQueue, maxFiles int) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, queue: queue, maxFiles: maxFiles}
}

// CreateBatch stores the "files" parts and answers 202; cards are created
// in the background. An optional "analyze" field overrides the default.
func (h *UploadHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	limit := int64(h.maxFiles)*validation.ImageConstraints.MaxSize + (1 << 20)
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := r.ParseMultipartForm(32 << 20)
	if err != nil {
		render.Error(w, http.StatusBadRequest, "multipart body required")
		return
	}
	defer func() {
		removeErr := r.MultipartForm.RemoveAll()
		if removeErr != nil {
			slog.Warn("failed to remove multipart temp files", "error", removeErr)
		}
	}()

	var analyze *bool
	if v := r.FormValue("analyze"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			render.Error(w, http.StatusBadRequest, "analyze must be true or false")
			return
		}
		analyze = &b
	}

	headers := r.MultipartForm.File["files"]
	files := make([]service.BatchFile, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			render.Error(w, http.StatusBadRequest, "failed to read "+fh.Filename)
			return
		}
		opened = append(opened, f)
		files = append(files, service.BatchFile{Filename: fh.Filename, Body: f})
	}

	batch, err := h.uploadService.CreateBatch(r.Context(), ctxkeys.UserID(r.Context()), files, analyze)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.queue.Enqueue(batch.ID)
	render.JSON(w, http.StatusAccepted, batch)
}

func (h *UploadHandler) Batch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.uploadService.Batch(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, batch)
}
