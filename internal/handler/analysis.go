package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cardshow/cardshow/internal/render"
	"github.com/cardshow/cardshow/internal/service"
	"github.com/cardshow/cardshow/internal/service/analysis"
	"github.com/cardshow/cardshow/internal/validation"
)

type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// AnalyzeCardImage accepts {"image_url": ...} or a multipart "image" field.
func (h *AnalysisHandler) AnalyzeCardImage(w http.ResponseWriter, r *http.Request) {
	var img analysis.Image

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, validation.ImageConstraints.MaxSize+(1<<20))
		file, header, err := r.FormFile("image")
		if err != nil {
			render.Error(w, http.StatusBadRequest, "image file is required")
			return
		}
		defer func() {
			closeErr := file.Close()
			if closeErr != nil {
				slog.Error("failed to close file", "error", closeErr)
			}
		}()

		contentType, err := validation.ValidateFile(header, validation.ImageConstraints)
		if err != nil {
			render.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		data, err := io.ReadAll(file)
		if err != nil {
			render.Error(w, http.StatusBadRequest, "failed to read image")
			return
		}
		img = analysis.Image{Data: data, ContentType: contentType}
	} else {
		var req struct {
			ImageURL string `json:"image_url"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		url := strings.TrimSpace(req.ImageURL)
		if url != "" && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
			render.Error(w, http.StatusBadRequest, "image_url must be an http(s) URL")
			return
		}
		img = analysis.Image{URL: url}
	}

	result, err := h.analysisService.Analyze(r.Context(), img)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, result)
}
