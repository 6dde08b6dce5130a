package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vault/internal/testsupport"
	"vault/internal/vinyl"
)

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		source      string
		contentType string
		want        string
	}{
		{"https://img.example.com/x.png?v=1", "", ".png"},
		{"https://img.example.com/x.jpeg", "", ".jpeg"},
		{"https://img.example.com/x", "image/png", ".png"},
		{"https://img.example.com/x", "image/webp; charset=binary", ".webp"},
		{"https://img.example.com/x", "", ".jpg"},
		{"https://img.example.com/x.exe", "", ".jpg"},
	}
	for _, tc := range tests {
		if got := extensionFor(tc.source, tc.contentType); got != tc.want {
			t.Errorf("extensionFor(%q, %q) = %q, want %q", tc.source, tc.contentType, got, tc.want)
		}
	}
}

func TestMaterializeFromLocalFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	repo := NewCoverRepository(cfg.Paths.CoversDir, nil)

	source := filepath.Join(t.TempDir(), "upload.png")
	testsupport.WriteFile(t, source, []byte("png-bytes"))

	stored, err := repo.Materialize(context.Background(), db, source, "Daft Punk", "Discovery", vinyl.Format33)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if stored.FileName != "daft-punk-discovery-33t.png" {
		t.Errorf("fileName = %q", stored.FileName)
	}
	data, err := os.ReadFile(repo.Path(stored.FileName))
	if err != nil {
		t.Fatalf("read stored cover: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("stored content = %q", data)
	}
}

func TestWriteFileDisambiguatesCollisions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	repo := NewCoverRepository(cfg.Paths.CoversDir, nil)

	first, err := repo.writeFile([]byte("one"), "Daft Punk", "Discovery", vinyl.Format33, ".jpg")
	if err != nil {
		t.Fatalf("writeFile failed: %v", err)
	}
	second, err := repo.writeFile([]byte("two"), "Daft Punk", "Discovery", vinyl.Format33, ".jpg")
	if err != nil {
		t.Fatalf("second writeFile failed: %v", err)
	}
	if first != "daft-punk-discovery-33t.jpg" {
		t.Errorf("first = %q", first)
	}
	if second != "daft-punk-discovery-33t-1.jpg" {
		t.Errorf("second = %q", second)
	}
}
