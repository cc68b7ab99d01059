package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"dapp/internal/domain"
)

// DiskStore writes images under a directory served at BaseURL.
type DiskStore struct {
	Dir     string
	BaseURL string
	MaxSize int64
}

var _ domain.ImageStore = (*DiskStore)(nil)

// NewDiskStore creates dir if needed.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	return &DiskStore{Dir: dir, BaseURL: strings.TrimSuffix(baseURL, "/"), MaxSize: DefaultMaxSize}, nil
}

// SaveImage stores the image under a random name and returns its URL. The
// caller's name and content type are ignored in favour of the sniffed type.
func (d *DiskStore) SaveImage(ctx context.Context, _, _ string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, ext, body, err := sniff(r)
	if err != nil {
		return "", err
	}
	name := uuid.NewString() + ext

	tmp, err := os.CreateTemp(d.Dir, ".upload-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, limit(body, d.maxSize())); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, filepath.Join(d.Dir, name)); err != nil {
		return "", err
	}
	return d.BaseURL + "/" + name, nil
}

// Hosts reports whether url is a file name under BaseURL.
func (d *DiskStore) Hosts(url string) bool {
	_, ok := storedName(url, d.BaseURL+"/")
	return ok
}

func (d *DiskStore) maxSize() int64 {
	if d.MaxSize > 0 {
		return d.MaxSize
	}
	return DefaultMaxSize
}
