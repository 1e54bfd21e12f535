package uploads

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return req.MultipartForm.File["file"][0]
}

func TestSaveAndRemove(t *testing.T) {
	s, err := NewStorage(t.TempDir(), 1024)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	meta, err := s.Save(fileHeader(t, "../../evil/Challenge.ZIP", []byte("payload")))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.OriginalName != "Challenge.ZIP" || !strings.HasSuffix(meta.Filename, ".zip") || meta.Size != 7 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	path, err := s.Path(meta.Filename)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "payload" {
		t.Fatalf("expected stored payload, got %q %v", data, err)
	}

	if err := s.Remove(meta.Filename); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	if err := s.Remove(meta.Filename); err != nil {
		t.Fatalf("second Remove should be a no-op: %v", err)
	}
}

func TestSaveRejectsOversizedFile(t *testing.T) {
	s, err := NewStorage(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	if _, err := s.Save(fileHeader(t, "big.bin", []byte("too large"))); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 0 {
		t.Fatalf("expected no leftover files, got %d", len(entries))
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	s, err := NewStorage(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	for _, name := range []string{"", "..", "../x", "a/b"} {
		if _, err := s.Path(name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected ErrInvalidName for %q, got %v", name, err)
		}
	}
}
