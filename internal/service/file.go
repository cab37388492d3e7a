package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/storage"
	"github.com/google/uuid"
)

type FileService struct {
	fileRepo repository.FileRepository
	storage  storage.Storage
}

func NewFileService(fileRepo repository.FileRepository, storage storage.Storage) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		storage:  storage,
	}
}

// FileUpload describes an object to store and track.
type FileUpload struct {
	UserID       string
	OwnerType    string
	OwnerID      string
	FileType     string
	OriginalName string
	ContentType  string
	Public       bool
}

// Upload stores body in the bucket and creates a database record.
// Content validation is the caller's job.
func (s *FileService) Upload(ctx context.Context, up FileUpload, body io.Reader) (*model.File, error) {
	ext := strings.ToLower(filepath.Ext(up.OriginalName))
	storagePath := storage.Key(up.FileType, ext, up.Public)

	counter := &countingReader{r: body}
	err := s.storage.Save(ctx, storagePath, counter, up.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	file := &model.File{
		ID:           uuid.New().String(),
		UserID:       up.UserID,
		OwnerType:    up.OwnerType,
		OwnerID:      up.OwnerID,
		Type:         up.FileType,
		Filename:     filepath.Base(storagePath),
		OriginalName: up.OriginalName,
		MimeType:     up.ContentType,
		Size:         counter.n,
		StoragePath:  storagePath,
		Public:       up.Public,
		CreatedAt:    time.Now(),
	}

	err = s.fileRepo.Create(file)
	if err != nil {
		// If DB insert fails, try to cleanup the uploaded file
		delErr := s.storage.Delete(ctx, storagePath)
		if delErr != nil {
			slog.Error("failed to delete file from storage during cleanup", "error", delErr, "path", storagePath)
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	file.URL = s.storage.URL(ctx, storagePath, up.Public)
	return file, nil
}

// Open streams a stored object.
func (s *FileService) Open(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	return s.storage.Open(ctx, storagePath)
}

// URL returns the public or presigned URL for a file.
func (s *FileService) URL(ctx context.Context, file *model.File) string {
	if file == nil {
		return ""
	}
	return s.storage.URL(ctx, file.StoragePath, file.Public)
}

// Avatar retrieves the newest avatar of a user.
func (s *FileService) Avatar(userID string) (*model.File, error) {
	return s.fileRepo.Latest(model.OwnerTypeUser, userID, model.FileTypeAvatar)
}

// Delete removes a file from storage and database
func (s *FileService) Delete(ctx context.Context, fileID string) error {
	file, err := s.fileRepo.ByID(fileID)
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}

	// Delete from storage (best effort)
	delErr := s.storage.Delete(ctx, file.StoragePath)
	if delErr != nil {
		slog.Error("failed to delete file from storage", "error", delErr, "path", file.StoragePath)
	}

	err = s.fileRepo.Delete(fileID)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	return nil
}

// DeleteByOwner removes every object attached to an owner, e.g. a deleted card.
func (s *FileService) DeleteByOwner(ctx context.Context, ownerType, ownerID string) error {
	paths, err := s.fileRepo.DeleteByOwner(ownerType, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete file records: %w", err)
	}

	for _, path := range paths {
		err = s.storage.Delete(ctx, path)
		if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			slog.Warn("failed to delete file from storage", "storage_path", path, "error", err)
		}
	}
	return nil
}

func (s *FileService) DeleteAllUserFilesFromStorage(ctx context.Context, userID string) error {
	files, err := s.fileRepo.ByUser(userID)
	if err != nil {
		return fmt.Errorf("failed to get user files: %w", err)
	}

	for _, file := range files {
		err = s.storage.Delete(ctx, file.StoragePath)
		if err != nil {
			// Log but continue - physical file may already be gone
			slog.Warn("failed to delete file from storage", "storage_path", file.StoragePath, "error", err)
		}
	}

	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
