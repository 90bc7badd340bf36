package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8080/files/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	data := []byte("video bytes")
	if err := s.Put(ctx, "recordings/a.avi", bytes.NewReader(data), int64(len(data)), "video/x-msvideo"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "recordings", "a.avi"))
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("stored %q, %v", got, err)
	}

	if u := s.URL("recordings/a.avi"); u != "http://localhost:8080/files/recordings/a.avi" {
		t.Errorf("URL = %q", u)
	}

	if err := s.Delete(ctx, "recordings/a.avi"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "recordings", "a.avi")); !os.IsNotExist(err) {
		t.Error("file still exists after Delete")
	}
	if err := s.Delete(ctx, "recordings/a.avi"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestLocalStore_Errors(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	t.Run("escaping key", func(t *testing.T) {
		err := s.Put(ctx, "../evil", strings.NewReader("x"), 1, "")
		var se *StorageError
		if !errors.As(err, &se) || se.Op != "put" {
			t.Errorf("err = %v, want put StorageError", err)
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		err := s.Put(ctx, "short.avi", strings.NewReader("abc"), 10, "")
		if err == nil {
			t.Fatal("expected error")
		}
		if _, statErr := os.Stat(filepath.Join(s.Dir(), "short.avi")); !os.IsNotExist(statErr) {
			t.Error("partial file left behind")
		}
	})
}

func TestS3Store_URL(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{
			name: "public url",
			cfg:  S3Config{Bucket: "rec", PublicURL: "https://cdn.example.com/public/rec/"},
			want: "https://cdn.example.com/public/rec/a b.avi",
		},
		{
			name: "custom endpoint",
			cfg:  S3Config{Bucket: "rec", Endpoint: "https://project.storage.example.com"},
			want: "https://project.storage.example.com/rec/a b.avi",
		},
		{
			name: "aws",
			cfg:  S3Config{Bucket: "rec", Region: "eu-west-1"},
			want: "https://rec.s3.eu-west-1.amazonaws.com/a b.avi",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.AccessKey, tt.cfg.SecretKey = "key", "secret"
			s, err := NewS3Store(ctx, tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			want := strings.ReplaceAll(tt.want, " ", "%20")
			if got := s.URL("a b.avi"); got != want {
				t.Errorf("URL = %q, want %q", got, want)
			}
		})
	}
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{AccessKey: "k", SecretKey: "s"})
	var se *StorageError
	if !errors.As(err, &se) {
		t.Errorf("err = %v, want StorageError", err)
	}
}

func TestS3Store_PutDelete(t *testing.T) {
	var mu sync.Mutex
	objects := map[string][]byte{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = body
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			delete(objects, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	s, err := NewS3Store(context.Background(), S3Config{
		Bucket:    "recordings",
		Endpoint:  srv.URL,
		AccessKey: "key",
		SecretKey: "secret",
		PathStyle: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	data := []byte("clip")
	if err := s.Put(context.Background(), "u/clip.avi", bytes.NewReader(data), int64(len(data)), "video/x-msvideo"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	mu.Lock()
	stored := objects["/recordings/u/clip.avi"]
	mu.Unlock()
	if !bytes.Equal(stored, data) {
		t.Errorf("stored %q, objects = %v", stored, objects)
	}

	if err := s.Delete(context.Background(), "u/clip.avi"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(objects) != 0 {
		t.Errorf("objects after delete = %v", objects)
	}
}

func TestS3Store_PutFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<?xml version="1.0"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`))
	}))
	defer srv.Close()

	s, err := NewS3Store(context.Background(), S3Config{
		Bucket: "b", Endpoint: srv.URL, AccessKey: "k", SecretKey: "s", PathStyle: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.Put(context.Background(), "x.avi", strings.NewReader("x"), 1, "")
	var se *StorageError
	if !errors.As(err, &se) || se.Key != "x.avi" {
		t.Errorf("err = %v, want StorageError for x.avi", err)
	}
}
