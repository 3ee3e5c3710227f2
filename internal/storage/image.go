package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrTooLarge      = errors.New("image exceeds the maximum size")
	ErrNotImage      = errors.New("file is not an image")
	ErrLocalPath     = errors.New("local device path cannot be read by the server")
	ErrInvalidBase64 = errors.New("image data is not valid base64")
)

// ImageUpload is an inline image as sent by the client.
type ImageUpload struct {
	Data        string `json:"data"` // base64, optionally a data: URL
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
}

// Decode validates the upload and returns the raw bytes with the sniffed
// content type. Declared types are not trusted.
func (u ImageUpload) Decode(maxBytes int64) ([]byte, string, error) {
	raw := strings.TrimSpace(u.Data)
	if i := strings.Index(raw, ","); strings.HasPrefix(raw, "data:") && i > 0 {
		raw = raw[i+1:]
	}
	if maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(raw))) > maxBytes+2 {
		return nil, "", ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, "", ErrInvalidBase64
	}
	return CheckImage(data, maxBytes)
}

// CheckImage enforces the size limit and that data is an image.
func CheckImage(data []byte, maxBytes int64) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", ErrNotImage
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("%w (%d bytes, limit %d)", ErrTooLarge, len(data), maxBytes)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, "", fmt.Errorf("%w: %s", ErrNotImage, mt.String())
	}
	return data, mt.String(), nil
}

// IsRemoteURL reports whether ref already points at durable storage.
func IsRemoteURL(ref string) bool {
	return strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://")
}

// IsLocalPath reports device-local references such as file:// URIs.
func IsLocalPath(ref string) bool {
	return strings.HasPrefix(ref, "file://") || strings.HasPrefix(ref, "/") ||
		strings.HasPrefix(ref, "content://") || strings.HasPrefix(ref, "ph://")
}
