package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cardshow/cardshow/internal/metrics"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/service/analysis"
)

type AnalysisService struct {
	analyzer analysis.Analyzer
	timeout  time.Duration
}

func NewAnalysisService(analyzer analysis.Analyzer) *AnalysisService {
	if analyzer == nil {
		analyzer = analysis.Disabled()
	}
	return &AnalysisService{analyzer: analyzer, timeout: 45 * time.Second}
}

// Analyze asks the vision model for card metadata suggestions.
func (s *AnalysisService) Analyze(ctx context.Context, img analysis.Image) (*model.CardAnalysis, error) {
	if img.URL == "" && len(img.Data) == 0 {
		return nil, invalid(analysis.ErrNoImage)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.analyzer.Analyze(ctx, img)
	switch {
	case errors.Is(err, analysis.ErrAnalysisDisabled):
		metrics.RecordAnalysis("disabled", time.Since(start))
		return nil, err
	case err != nil:
		metrics.RecordAnalysis("failed", time.Since(start))
		slog.Error("image analysis failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	metrics.RecordAnalysis("ok", time.Since(start))
	return result, nil
}
