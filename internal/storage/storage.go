// Package storage persists uploaded images and returns their public URL.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxFileSize is the largest accepted upload.
const MaxFileSize = 5 << 20

// ErrTooLarge and ErrUnsupportedType are returned for rejected uploads.
var (
	ErrTooLarge        = errors.New("file exceeds 5 MiB")
	ErrUnsupportedType = errors.New("only png, jpeg and webp images are allowed")
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// Store saves blobs and returns the URL they are served from.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// Disk stores files under a local directory that is served at /uploads.
type Disk struct {
	dir     string
	baseURL string
}

// NewDisk creates dir if needed.
func NewDisk(dir, publicURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir, baseURL: strings.TrimRight(publicURL, "/") + "/uploads"}, nil
}

// Dir is the directory files are written to.
func (d *Disk) Dir() string { return d.dir }

// Save sniffs the content type, enforces the size limit and writes the file
// under a random name. name is only used for logging context by callers.
func (d *Disk) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload %s: %w", name, err)
	}
	if len(data) > MaxFileSize {
		return "", ErrTooLarge
	}

	ext, ok := extensions[http.DetectContentType(data)]
	if !ok {
		return "", ErrUnsupportedType
	}

	filename := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(d.dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return d.baseURL + "/" + filename, nil
}

// SaveMultipart stores an uploaded form file. A nil header is not an error
// and yields an empty URL.
func SaveMultipart(ctx context.Context, s Store, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", nil
	}
	if fh.Size > MaxFileSize {
		return "", ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.Save(ctx, fh.Filename, f)
}

// Memory keeps files in memory. Used in tests.
type Memory struct {
	Files map[string][]byte
}

func (m *Memory) Save(_ context.Context, name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	if m.Files == nil {
		m.Files = map[string][]byte{}
	}
	m.Files[name] = buf.Bytes()
	return "memory://" + name, nil
}
