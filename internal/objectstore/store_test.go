package objectstore_test

import (
	"testing"

	"radioeval-service/internal/objectstore"
)

func TestUploadKey(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"clip.mp3", "input/clip.mp3"},
		{"session1.wav", "input/session1.wav"},
		{"sessions/2024/clip.wav", "sessions/2024/clip.wav"},
	}
	for _, tc := range cases {
		if got := objectstore.UploadKey(tc.filename); got != tc.want {
			t.Errorf("UploadKey(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"clip.mp3", "audio/mpeg"},
		{"clip.WAV", "audio/wav"},
		{"CallRefs.xml", "application/xml"},
		{"blob.bin", "application/octet-stream"},
		{"noext", "application/octet-stream"},
	}
	for _, tc := range cases {
		if got := objectstore.ContentTypeFor(tc.filename); got != tc.want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}
