package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/cardshow/cardshow/internal/metrics"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/service/analysis"
	"github.com/cardshow/cardshow/internal/validation"
	"github.com/google/uuid"
)

var (
	ErrEmptyBatch    = errors.New("at least one file is required")
	ErrBatchTooLarge = errors.New("too many files in one batch")
)

// BatchFile is one file of a bulk upload as received from the client.
type BatchFile struct {
	Filename string
	Body     io.Reader
}

// UploadService coordinates bulk uploads. Files are stored on receipt and
// turned into draft cards later, one at a time, by ProcessBatch.
type UploadService struct {
	uploadRepository repository.UploadRepository
	fileService      *FileService
	cardService      *CardService
	analysisService  *AnalysisService
	maxFiles         int
	autoAnalyze      bool
}

func NewUploadService(
	uploadRepository repository.UploadRepository,
	fileService *FileService,
	cardService *CardService,
	analysisService *AnalysisService,
	maxFiles int,
	autoAnalyze bool,
) *UploadService {
	return &UploadService{
		uploadRepository: uploadRepository,
		fileService:      fileService,
		cardService:      cardService,
		analysisService:  analysisService,
		maxFiles:         maxFiles,
		autoAnalyze:      autoAnalyze,
	}
}

// CreateBatch stores every file privately and records a pending batch.
// analyze overrides the configured default when non-nil.
func (s *UploadService) CreateBatch(ctx context.Context, userID string, files []BatchFile, analyze *bool) (*model.UploadBatch, error) {
	if len(files) == 0 {
		return nil, invalid(ErrEmptyBatch)
	}
	if len(files) > s.maxFiles {
		return nil, invalid(fmt.Errorf("%w: maximum is %d", ErrBatchTooLarge, s.maxFiles))
	}

	now := time.Now()
	batch := &model.UploadBatch{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    model.BatchStatusPending,
		Total:     len(files),
		Analyze:   s.autoAnalyze,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if analyze != nil {
		batch.Analyze = *analyze
	}

	items := make([]*model.UploadBatchItem, 0, len(files))
	for i, f := range files {
		// one byte over the limit is enough for validation to reject it later
		data, err := io.ReadAll(io.LimitReader(f.Body, validation.ImageConstraints.MaxSize+1))
		if err != nil {
			s.discard(ctx, batch.ID)
			return nil, fmt.Errorf("failed to read %s: %w", f.Filename, err)
		}

		file, err := s.fileService.Upload(ctx, FileUpload{
			UserID:       userID,
			OwnerType:    model.OwnerTypeBatch,
			OwnerID:      batch.ID,
			FileType:     model.FileTypeUpload,
			OriginalName: filepath.Base(f.Filename),
			ContentType:  validation.DetectContentType(data),
		}, bytes.NewReader(data))
		if err != nil {
			s.discard(ctx, batch.ID)
			return nil, err
		}

		items = append(items, &model.UploadBatchItem{
			ID:          uuid.New().String(),
			BatchID:     batch.ID,
			Position:    i,
			Filename:    file.OriginalName,
			StoragePath: file.StoragePath,
			MimeType:    file.MimeType,
			Size:        file.Size,
			Status:      model.BatchStatusPending,
			UpdatedAt:   now,
		})
	}

	err := s.uploadRepository.CreateBatch(batch, items)
	if err != nil {
		s.discard(ctx, batch.ID)
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	batch.Items = items
	slog.Info("upload batch created", "batch_id", batch.ID, "user_id", userID, "files", len(items))
	return batch, nil
}

func (s *UploadService) discard(ctx context.Context, batchID string) {
	err := s.fileService.DeleteByOwner(ctx, model.OwnerTypeBatch, batchID)
	if err != nil {
		slog.Error("failed to discard batch files", "error", err, "batch_id", batchID)
	}
}

// Batch returns a batch with its items for status polling.
func (s *UploadService) Batch(userID, id string) (*model.UploadBatch, error) {
	batch, err := s.uploadRepository.BatchByID(id)
	if err != nil {
		return nil, err
	}
	if batch.UserID != userID {
		return nil, repository.ErrBatchNotFound
	}

	items, err := s.uploadRepository.Items(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch items: %w", err)
	}
	batch.Items = items
	return batch, nil
}

// Unfinished lists batch ids a restart left pending or processing.
func (s *UploadService) Unfinished() ([]string, error) {
	batches, err := s.uploadRepository.Unfinished()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID)
	}
	return ids, nil
}

// ProcessBatch works through the pending items of a batch in order. Items
// finished before an interruption are skipped. A failing item is recorded
// and does not stop the batch; the batch fails only when every item failed.
func (s *UploadService) ProcessBatch(ctx context.Context, id string) error {
	batch, err := s.uploadRepository.BatchByID(id)
	if err != nil {
		return err
	}
	if batch.Done() {
		return nil
	}

	err = s.uploadRepository.SetBatchStatus(id, model.BatchStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to start batch: %w", err)
	}

	items, err := s.uploadRepository.Items(id)
	if err != nil {
		return fmt.Errorf("failed to load batch items: %w", err)
	}

	failed := 0
	for _, item := range items {
		if item.Status != model.BatchStatusPending {
			if item.Status == model.BatchStatusFailed {
				failed++
			}
			continue
		}
		if ctx.Err() != nil {
			// left processing; Unfinished picks it up on the next start
			return ctx.Err()
		}

		card, procErr := s.processItem(ctx, batch, item)
		if procErr != nil {
			failed++
			item.Status = model.BatchStatusFailed
			item.Error = procErr.Error()
			metrics.RecordBatchItem("failed")
			slog.Warn("batch item failed", "error", procErr, "batch_id", id, "position", item.Position)
		} else {
			item.Status = model.BatchStatusCompleted
			item.CardID = &card.ID
			metrics.RecordBatchItem("ok")
		}

		err = s.uploadRepository.FinishItem(item)
		if err != nil {
			return fmt.Errorf("failed to record item %d: %w", item.Position, err)
		}
	}

	status := model.BatchStatusCompleted
	if len(items) > 0 && failed == len(items) {
		status = model.BatchStatusFailed
	}
	err = s.uploadRepository.SetBatchStatus(id, status)
	if err != nil {
		return fmt.Errorf("failed to finish batch: %w", err)
	}

	s.discard(ctx, id)
	slog.Info("upload batch finished", "batch_id", id, "status", status, "items", len(items), "failed", failed)
	return nil
}

func (s *UploadService) processItem(ctx context.Context, batch *model.UploadBatch, item *model.UploadBatchItem) (*model.Card, error) {
	src, err := s.fileService.Open(ctx, item.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, validation.ImageConstraints.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	contentType, err := validation.ValidateReader(bytes.NewReader(data), item.Filename, int64(len(data)), validation.ImageConstraints)
	if err != nil {
		return nil, err
	}

	in := CardInput{Title: titleFromFilename(item.Filename)}
	if batch.Analyze {
		suggestion, err := s.analysisService.Analyze(ctx, analysis.Image{Data: data, ContentType: contentType})
		if err != nil {
			slog.Warn("batch analysis skipped", "error", err, "batch_id", batch.ID, "position", item.Position)
		} else {
			in.Title = suggestion.Title
			in.Description = suggestion.Description
			in.Rarity = suggestion.Rarity
			in.Tags = suggestion.Tags
		}
	}

	card, err := s.cardService.createWithSource(ctx, batch.UserID, model.CardSourceUpload, in)
	if err != nil {
		return nil, err
	}

	card, err = s.cardService.UploadImage(ctx, batch.UserID, card.ID, bytes.NewReader(data), item.Filename, int64(len(data)))
	if err != nil {
		delErr := s.cardService.Delete(ctx, batch.UserID, card.ID)
		if delErr != nil {
			slog.Error("failed to remove card after image error", "error", delErr, "batch_id", batch.ID)
		}
		return nil, err
	}
	return card, nil
}

// titleFromFilename turns "ember_drake-final.png" into "ember drake final".
func titleFromFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled card"
	}
	return truncateTitle(base)
}
