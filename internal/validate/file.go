package validate

import (
	"errors"
	"fmt"
	"strings"
)

// File validation errors
var (
	ErrInvalidMIMEType = errors.New("invalid MIME type")
	ErrFileTooLarge    = errors.New("file too large")
)

// MIME types accepted by the asset gallery.
const (
	MIMEImageJPEG = "image/jpeg"
	MIMEImagePNG  = "image/png"
	MIMEImageGIF  = "image/gif"
	MIMEImageWebP = "image/webp"
	MIMEAudioMPEG = "audio/mpeg"
	MIMEAudioWAV  = "audio/wav"
	MIMEAudioOGG  = "audio/ogg"
)

// AllowedImageTypes defines allowed image MIME types.
var AllowedImageTypes = []string{
	MIMEImageJPEG,
	MIMEImagePNG,
	MIMEImageGIF,
	MIMEImageWebP,
}

// AllowedAudioTypes defines allowed audio MIME types.
var AllowedAudioTypes = []string{
	MIMEAudioMPEG,
	MIMEAudioWAV,
	MIMEAudioOGG,
}

// FileConstraints defines validation constraints for file uploads.
type FileConstraints struct {
	AllowedTypes []string // Allowed MIME types
	MaxSizeBytes int64    // Maximum file size in bytes
}

// MIMEType validates a MIME type against allowed types.
// Returns the normalized MIME type (lowercased) and an error if invalid.
func MIMEType(mimeType string, allowedTypes []string) (string, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	if mimeType == "" {
		return "", ErrEmpty
	}

	for _, allowed := range allowedTypes {
		if mimeType == strings.ToLower(allowed) {
			return mimeType, nil
		}
	}

	return "", fmt.Errorf("%w: %q not in allowed types", ErrInvalidMIMEType, mimeType)
}

// FileSize validates a file size against constraints.
func FileSize(sizeBytes int64, constraints FileConstraints) error {
	if sizeBytes <= 0 {
		return errors.New("file size must be positive")
	}

	if constraints.MaxSizeBytes > 0 && sizeBytes > constraints.MaxSizeBytes {
		return fmt.Errorf("%w: got %d bytes, maximum is %d", ErrFileTooLarge, sizeBytes, constraints.MaxSizeBytes)
	}

	return nil
}

// File validates both MIME type and file size.
func File(mimeType string, sizeBytes int64, constraints FileConstraints) (string, error) {
	validatedType, err := MIMEType(mimeType, constraints.AllowedTypes)
	if err != nil {
		return "", err
	}

	if err := FileSize(sizeBytes, constraints); err != nil {
		return "", err
	}

	return validatedType, nil
}

// ImageFile validates an image upload against the given size cap.
func ImageFile(mimeType string, sizeBytes, maxSizeBytes int64) (string, error) {
	return File(mimeType, sizeBytes, FileConstraints{
		AllowedTypes: AllowedImageTypes,
		MaxSizeBytes: maxSizeBytes,
	})
}

// AudioFile validates an audio upload against the given size cap.
func AudioFile(mimeType string, sizeBytes, maxSizeBytes int64) (string, error) {
	return File(mimeType, sizeBytes, FileConstraints{
		AllowedTypes: AllowedAudioTypes,
		MaxSizeBytes: maxSizeBytes,
	})
}
