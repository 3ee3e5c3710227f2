package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// FSStore writes blobs below base and serves them from publicURL/assets/.
type FSStore struct {
	base      string
	publicURL string
	prefix    string
}

func NewFSStore(base, publicURL string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base, publicURL: strings.TrimSuffix(publicURL, "/"), prefix: "answers"}, nil
}

func (s *FSStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("empty blob")
	}
	key := path.Join(s.prefix, uuid.NewString()+extensionFor(contentType, data))
	dst := filepath.Join(s.base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	tmp := dst + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return s.URL(key), nil
}

// URL is the public address of key.
func (s *FSStore) URL(key string) string {
	return s.publicURL + "/assets/" + key
}

func (s *FSStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(filepath.Join(s.base, filepath.FromSlash(clean)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		_ = f.Close()
		return nil, "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, "", err
	}
	return f, mt.String(), nil
}

func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	clean := path.Clean(key)
	if key == "" || clean == "." || clean != key || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", ErrInvalidKey
	}
	return clean, nil
}

func extensionFor(contentType string, data []byte) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return mimetype.Detect(data).Extension()
}
