package validate

import (
	"errors"
	"testing"
)

const testMaxUpload = 15 * 1024 * 1024

func TestImageFile(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		size     int64
		wantErr  error
	}{
		{"png ok", "image/png", 1024, nil},
		{"jpeg normalized", "IMAGE/JPEG", 1024, nil},
		{"audio rejected", "audio/mpeg", 1024, ErrInvalidMIMEType},
		{"too large", "image/png", testMaxUpload + 1, ErrFileTooLarge},
		{"empty type", "", 1024, ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImageFile(tt.mimeType, tt.size, testMaxUpload)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAudioFile(t *testing.T) {
	if _, err := AudioFile("audio/ogg", 2048, testMaxUpload); err != nil {
		t.Errorf("ogg should be accepted: %v", err)
	}
	if _, err := AudioFile("image/png", 2048, testMaxUpload); !errors.Is(err, ErrInvalidMIMEType) {
		t.Errorf("png should be rejected for audio, got %v", err)
	}
}

func TestFileSize_Zero(t *testing.T) {
	if err := FileSize(0, FileConstraints{MaxSizeBytes: testMaxUpload}); err == nil {
		t.Error("zero size should be rejected")
	}
}
