package storage

import (
	"testing"

	"github.com/KattaManasa0402/Marine-life/internal/config"
)

func TestObjectURL(t *testing.T) {
	tests := []struct {
		base, bucket, key, want string
	}{
		{"http://localhost:9000", "marine-bucket", "media/1/a.jpg", "http://localhost:9000/marine-bucket/media/1/a.jpg"},
		{"https://cdn.example.org/", "b", "/k.png", "https://cdn.example.org/b/k.png"},
	}
	for _, tt := range tests {
		if got := ObjectURL(tt.base, tt.bucket, tt.key); got != tt.want {
			t.Errorf("ObjectURL(%q, %q, %q) = %q, want %q", tt.base, tt.bucket, tt.key, got, tt.want)
		}
	}
}

func TestNewMinIOStore_PublicURL(t *testing.T) {
	s, err := NewMinIOStore(config.MinIOConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "marine-bucket",
	})
	if err != nil {
		t.Fatalf("NewMinIOStore error: %v", err)
	}
	if got := s.ObjectURL("x.jpg"); got != "http://localhost:9000/marine-bucket/x.jpg" {
		t.Errorf("ObjectURL = %q", got)
	}

	s, err = NewMinIOStore(config.MinIOConfig{
		Endpoint:  "minio:9000",
		Bucket:    "marine-bucket",
		PublicURL: "https://files.example.org/",
	})
	if err != nil {
		t.Fatalf("NewMinIOStore error: %v", err)
	}
	if got := s.ObjectURL("x.jpg"); got != "https://files.example.org/marine-bucket/x.jpg" {
		t.Errorf("ObjectURL = %q", got)
	}
}
