package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/cardshow/cardshow/internal/metrics"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/psd"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/validation"
	"github.com/google/uuid"
)

var (
	ErrImportHasCard  = errors.New("this import already produced a card")
	ErrNoVisibleLayer = errors.New("selection contains no visible raster layer")
)

type PSDService struct {
	importRepository repository.PSDImportRepository
	fileService      *FileService
	cardService      *CardService
	maxBytes         int64
}

func NewPSDService(importRepository repository.PSDImportRepository, fileService *FileService, cardService *CardService, maxBytes int64) *PSDService {
	if maxBytes <= 0 {
		maxBytes = validation.PSDConstraints.MaxSize
	}
	return &PSDService{
		importRepository: importRepository,
		fileService:      fileService,
		cardService:      cardService,
		maxBytes:         maxBytes,
	}
}

// Import decodes a Photoshop document, stores the source, every visible
// raster layer and a reconstructed composite, and records the layer manifest.
func (s *PSDService) Import(ctx context.Context, userID string, body io.Reader, filename string) (*model.PSDImport, error) {
	imp, err := s.importPSD(ctx, userID, body, filename)
	if err != nil {
		metrics.RecordPSDImport("failed")
		return nil, err
	}
	metrics.RecordPSDImport("ok")
	return imp, nil
}

func (s *PSDService) importPSD(ctx context.Context, userID string, body io.Reader, filename string) (*model.PSDImport, error) {
	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	constraints := validation.PSDConstraints
	constraints.MaxSize = s.maxBytes
	contentType, err := validation.ValidateReader(bytes.NewReader(data), filename, int64(len(data)), constraints)
	if err != nil {
		return nil, invalid(err)
	}

	start := time.Now()
	doc, err := psd.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, invalid(err)
	}
	entries := psd.Flatten(doc)
	slog.Debug("psd decoded", "layers", len(entries), "width", doc.Width, "height", doc.Height, "duration", time.Since(start))

	imp := &model.PSDImport{
		ID:        uuid.New().String(),
		UserID:    userID,
		Filename:  filepath.Base(filename),
		Width:     doc.Width,
		Height:    doc.Height,
		CreatedAt: time.Now(),
	}

	source, err := s.fileService.Upload(ctx, FileUpload{
		UserID:       userID,
		OwnerType:    model.OwnerTypePSDImport,
		OwnerID:      imp.ID,
		FileType:     model.FileTypePSD,
		OriginalName: imp.Filename,
		ContentType:  contentType,
	}, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	imp.SourcePath = source.StoragePath

	layers := make(model.PSDLayers, 0, len(entries))
	for _, e := range entries {
		layer := e.Layer
		if !layer.IsGroup && layer.Visible && e.Node.Image != nil {
			file, err := s.storePNG(ctx, userID, imp.ID, model.FileTypeLayer, layer.ID+".png", e.Node.Image, true)
			if err != nil {
				s.cleanup(ctx, imp.ID)
				return nil, err
			}
			layer.ImageURL = file.URL
			layer.ImagePath = file.StoragePath
		}
		layers = append(layers, layer)
	}
	imp.Layers = layers
	imp.LayerCount = len(layers)

	composite, err := s.storePNG(ctx, userID, imp.ID, model.FileTypeComposite, "composite.png",
		psd.Composite(doc.Width, doc.Height, entries, nil), true)
	if err != nil {
		s.cleanup(ctx, imp.ID)
		return nil, err
	}
	imp.CompositePath = composite.StoragePath
	imp.CompositeURL = composite.URL

	err = s.importRepository.Create(imp)
	if err != nil {
		s.cleanup(ctx, imp.ID)
		return nil, fmt.Errorf("failed to record psd import: %w", err)
	}

	slog.Info("psd imported", "import_id", imp.ID, "user_id", userID, "layers", imp.LayerCount)
	return imp, nil
}

func (s *PSDService) storePNG(ctx context.Context, userID, importID, fileType, name string, img image.Image, public bool) (*model.File, error) {
	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return s.fileService.Upload(ctx, FileUpload{
		UserID:       userID,
		OwnerType:    model.OwnerTypePSDImport,
		OwnerID:      importID,
		FileType:     fileType,
		OriginalName: name,
		ContentType:  "image/png",
		Public:       public,
	}, &buf)
}

func (s *PSDService) cleanup(ctx context.Context, importID string) {
	err := s.fileService.DeleteByOwner(ctx, model.OwnerTypePSDImport, importID)
	if err != nil {
		slog.Error("failed to clean up psd import files", "error", err, "import_id", importID)
	}
}

func (s *PSDService) Get(userID, id string) (*model.PSDImport, error) {
	imp, err := s.importRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	if imp.UserID != userID {
		return nil, repository.ErrPSDImportNotFound
	}
	return imp, nil
}

func (s *PSDService) List(userID string) ([]*model.PSDImport, error) {
	imports, err := s.importRepository.ByUser(userID)
	if err != nil {
		return nil, err
	}
	if imports == nil {
		imports = []*model.PSDImport{}
	}
	return imports, nil
}

// CreateCard turns an import into a draft card. With layerIDs the art is
// re-composited from the stored source using only those layers.
func (s *PSDService) CreateCard(ctx context.Context, userID, id string, layerIDs []string, title string) (*model.Card, error) {
	imp, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if imp.CardID != nil {
		return nil, ErrImportHasCard
	}

	imageURL, imagePath := imp.CompositeURL, imp.CompositePath
	manifest := imp.Layers

	if len(layerIDs) > 0 {
		selected := make(map[string]bool, len(layerIDs))
		for _, lid := range layerIDs {
			selected[lid] = true
		}
		file, err := s.recomposite(ctx, imp, selected)
		if err != nil {
			return nil, err
		}
		imageURL, imagePath = file.URL, file.StoragePath

		manifest = make(model.PSDLayers, 0, len(selected))
		for _, l := range imp.Layers {
			if selected[l.ID] {
				manifest = append(manifest, l)
			}
		}
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSuffix(imp.Filename, filepath.Ext(imp.Filename))
	}
	if title == "" {
		title = "Untitled card"
	}

	card := &model.Card{
		CreatorID:    userID,
		OwnerID:      userID,
		Title:        truncateTitle(title),
		ImageURL:     imageURL,
		ImagePath:    imagePath,
		ThumbnailURL: imageURL,
		IsDraft:      true,
		Source:       model.CardSourcePSD,
		DesignMetadata: model.JSONObject{
			"psd_import_id": imp.ID,
			"width":         imp.Width,
			"height":        imp.Height,
			"layers":        manifest,
		},
	}
	err = s.cardService.CreateFrom(card)
	if err != nil {
		return nil, err
	}

	err = s.importRepository.SetCard(imp.ID, card.ID)
	if errors.Is(err, repository.ErrPSDImportLinked) {
		// Lost the race to a concurrent request.
		if derr := s.cardService.cardRepository.Delete(card.ID); derr != nil {
			slog.Error("failed to remove unlinked psd card", "card_id", card.ID, "error", derr)
		}
		return nil, ErrImportHasCard
	}
	if err != nil {
		return nil, fmt.Errorf("failed to link card to import: %w", err)
	}

	slog.Info("card created from psd", "import_id", imp.ID, "card_id", card.ID, "layers", len(manifest))
	return card, nil
}

func (s *PSDService) recomposite(ctx context.Context, imp *model.PSDImport, selected map[string]bool) (*model.File, error) {
	src, err := s.fileService.Open(ctx, imp.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open psd source: %w", err)
	}
	defer src.Close()

	doc, err := psd.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored psd: %w", err)
	}
	entries := psd.Flatten(doc)

	drawn := false
	for _, e := range entries {
		if selected[e.Layer.ID] && !e.Layer.IsGroup && e.Layer.Visible && e.Node.Image != nil {
			drawn = true
			break
		}
	}
	if !drawn {
		return nil, invalid(ErrNoVisibleLayer)
	}

	img := psd.Composite(doc.Width, doc.Height, entries, func(id string) bool { return selected[id] })
	return s.storePNG(ctx, imp.UserID, imp.ID, model.FileTypeComposite, "composite-selection.png", img, true)
}
