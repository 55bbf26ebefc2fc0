package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestTrackURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"https", "https://example.com/song.mp3", nil},
		{"http on public host", "http://example.com/song.mp3", nil},
		{"lan host allowed", "http://192.168.1.10:8080/assets/audio/rain.ogg", nil},
		{"localhost allowed", "http://localhost:8080/assets/audio/rain.ogg", nil},
		{"ftp rejected", "ftp://example.com/song.mp3", ErrDisallowedScheme},
		{"empty", "", ErrEmpty},
		{"no hostname", "http://", ErrInvalidURL},
		{"too long", "https://example.com/" + strings.Repeat("a", 2048), ErrStringTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TrackURL(tt.input)
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
