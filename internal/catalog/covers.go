package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"vault/internal/textutil"
	"vault/internal/vinyl"
)

// maxCoverBytes bounds a downloaded cover image.
const maxCoverBytes = 20 << 20

// CoverFetcher obtains cover bytes from a remote URL.
type CoverFetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// HTTPCoverFetcher downloads covers over HTTP.
type HTTPCoverFetcher struct {
	Client *http.Client
}

// Fetch downloads the image at url.
func (f *HTTPCoverFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build cover request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download cover: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download cover: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read cover body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// CoverRepository stores cover files content-addressed under one directory.
// Byte-identical covers are stored once and shared across records.
type CoverRepository struct {
	dir     string
	fetcher CoverFetcher
}

// NewCoverRepository creates a repository rooted at dir.
func NewCoverRepository(dir string, fetcher CoverFetcher) *CoverRepository {
	if fetcher == nil {
		fetcher = &HTTPCoverFetcher{}
	}
	return &CoverRepository{dir: dir, fetcher: fetcher}
}

// StoredCover describes a materialized cover file.
type StoredCover struct {
	FileName  string
	Hash      string
	SourceURL string
}

// Materialize obtains the cover bytes from source (remote URL or local
// path), deduplicates by content hash against files the catalog already
// references, and otherwise persists the bytes under a slugified filename.
// The querier lets the hash lookup run inside the finalize transaction.
func (r *CoverRepository) Materialize(ctx context.Context, q querier, source, artistName, title string, format vinyl.Format) (*StoredCover, error) {
	data, contentType, err := r.obtain(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("cover source is empty")
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if existing, err := r.findStoredByHash(ctx, q, hash); err != nil {
		return nil, err
	} else if existing != "" {
		return &StoredCover{FileName: existing, Hash: hash, SourceURL: source}, nil
	}

	fileName, err := r.writeFile(data, artistName, title, format, extensionFor(source, contentType))
	if err != nil {
		return nil, err
	}
	return &StoredCover{FileName: fileName, Hash: hash, SourceURL: source}, nil
}

// Path returns the absolute location of a stored cover file.
func (r *CoverRepository) Path(fileName string) string {
	return filepath.Join(r.dir, fileName)
}

func (r *CoverRepository) obtain(ctx context.Context, source string) ([]byte, string, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return r.fetcher.Fetch(ctx, source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, "", fmt.Errorf("read cover file: %w", err)
	}
	return data, "", nil
}

// findStoredByHash returns the filename of an already stored cover whose
// content hash matches, verifying the file still exists on disk.
func (r *CoverRepository) findStoredByHash(ctx context.Context, q querier, hash string) (string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT e.cover_file FROM editions e
         JOIN records r ON r.id = e.record_id
         WHERE r.cover_hash = ? AND e.cover_file IS NOT NULL`,
		hash,
	)
	if err != nil {
		return "", fmt.Errorf("cover hash lookup: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fileName sql.NullString
		if err := rows.Scan(&fileName); err != nil {
			return "", fmt.Errorf("scan cover file: %w", err)
		}
		if !fileName.Valid || fileName.String == "" {
			continue
		}
		if _, err := os.Stat(r.Path(fileName.String)); err == nil {
			return fileName.String, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate cover files: %w", err)
	}
	return "", nil
}

// writeFile persists the bytes under artist-title-format, adding a numeric
// suffix when a different file already claims the name.
func (r *CoverRepository) writeFile(data []byte, artistName, title string, format vinyl.Format, ext string) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create covers directory: %w", err)
	}
	base := textutil.Slugify(artistName + " " + title + " " + string(format))

	fileName := base + ext
	for suffix := 1; ; suffix++ {
		target := r.Path(fileName)
		if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
			break
		}
		fileName = fmt.Sprintf("%s-%d%s", base, suffix, ext)
	}

	if err := os.WriteFile(r.Path(fileName), data, 0o644); err != nil {
		return "", fmt.Errorf("write cover file: %w", err)
	}
	return fileName, nil
}

// extensionFor infers the file extension from the source URL suffix, then
// the HTTP content type, defaulting to .jpg.
func extensionFor(source, contentType string) string {
	if ext := strings.ToLower(path.Ext(strings.SplitN(source, "?", 2)[0])); ext != "" {
		switch ext {
		case ".jpg", ".jpeg", ".png", ".gif", ".webp":
			return ext
		}
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		switch mediaType {
		case "image/jpeg":
			return ".jpg"
		case "image/png":
			return ".png"
		case "image/gif":
			return ".gif"
		case "image/webp":
			return ".webp"
		}
	}
	return ".jpg"
}
