package evidence

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiskStoreSave(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(filepath.Join(dir, "evidence"))
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	url, err := s.Save("shot.png", strings.NewReader("fake image bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(url, URLPrefix) {
		t.Errorf("url %q missing prefix %q", url, URLPrefix)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("url %q should keep the extension", url)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), strings.TrimPrefix(url, URLPrefix)))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "fake image bytes" {
		t.Errorf("stored content mismatch: %q", data)
	}
}

func TestDiskStoreContentAddressed(t *testing.T) {
	s, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	// Identical content collapses to one file regardless of upload name.
	url1, err := s.Save("a.png", strings.NewReader("same"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	url2, err := s.Save("b.png", strings.NewReader("same"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url1 != url2 {
		t.Errorf("identical uploads got different urls: %q vs %q", url1, url2)
	}

	url3, err := s.Save("a.png", strings.NewReader("different"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url3 == url1 {
		t.Error("different content must get a different url")
	}

	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 stored files, got %d", len(entries))
	}
}

func TestSafeExt(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"shot.png", ".png"},
		{"SHOT.JPEG", ".jpeg"},
		{"noext", ""},
		{"weird.reallylongext", ""},
		{"../../etc/passwd", ""},
	}
	for _, tt := range tests {
		if got := safeExt(tt.in); got != tt.want {
			t.Errorf("safeExt(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
