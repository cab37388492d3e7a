package validation

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	AllowedMimeTypes  map[string]bool
	AllowedExtensions map[string]bool
	MaxSize           int64
}

const psdMimeType = "image/vnd.adobe.photoshop"

var (
	// ImageConstraints covers card art and bulk uploads
	ImageConstraints = FileConstraints{
		AllowedMimeTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/webp": true,
			"image/gif":  true,
		},
		AllowedExtensions: map[string]bool{
			".jpg":  true,
			".jpeg": true,
			".png":  true,
			".webp": true,
			".gif":  true,
		},
		MaxSize: 20 << 20, // 20MB
	}

	// PSDConstraints covers Photoshop documents for layer import
	PSDConstraints = FileConstraints{
		AllowedMimeTypes: map[string]bool{
			psdMimeType: true,
		},
		AllowedExtensions: map[string]bool{
			".psd": true,
		},
		MaxSize: 100 << 20, // 100MB
	}
)

// ValidateFile validates a file upload against one or more constraint sets
// If multiple constraints are provided, file must match at least one (OR logic)
func ValidateFile(header *multipart.FileHeader, constraints ...FileConstraints) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ValidateReader(file, header.Filename, header.Size, constraints...)
}

// ValidateReader sniffs the first 512 bytes of r and checks size, detected
// content type and extension. It returns the detected content type and
// rewinds r when it is seekable.
func ValidateReader(r io.Reader, filename string, size int64, constraints ...FileConstraints) (string, error) {
	if len(constraints) == 0 {
		return "", fmt.Errorf("no file constraints provided")
	}

	buffer := make([]byte, 512)
	n, err := io.ReadFull(r, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	seeker, ok := r.(io.Seeker)
	if ok {
		_, err = seeker.Seek(0, io.SeekStart)
		if err != nil {
			return "", fmt.Errorf("failed to reset file pointer: %w", err)
		}
	}

	detected := DetectContentType(buffer[:n])
	ext := strings.ToLower(filepath.Ext(filename))

	var lastErr error
	for _, constraint := range constraints {
		lastErr = checkConstraint(constraint, detected, ext, size)
		if lastErr == nil {
			return detected, nil
		}
	}

	return "", lastErr
}

// DetectContentType extends http.DetectContentType with Photoshop documents.
func DetectContentType(head []byte) string {
	if bytes.HasPrefix(head, []byte("8BPS")) {
		return psdMimeType
	}
	return http.DetectContentType(head)
}

func checkConstraint(constraints FileConstraints, detected, ext string, size int64) error {
	if size > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return fmt.Errorf("file too large: maximum size is %d MB", maxMB)
	}

	// Content sniffing cannot be faked by changing the Content-Type header
	if !constraints.AllowedMimeTypes[detected] {
		return fmt.Errorf("invalid file type (detected: %s)", detected)
	}

	if !constraints.AllowedExtensions[ext] {
		return fmt.Errorf("invalid file extension: %s", ext)
	}

	return nil
}
