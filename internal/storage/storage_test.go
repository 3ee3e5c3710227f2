package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestFSStorePutGet(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "http://cdn.test/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	u, err := s.Put(ctx, pngHeader, "image/png")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(u, "http://cdn.test/assets/answers/") || !strings.HasSuffix(u, ".png") {
		t.Fatalf("unexpected url %q", u)
	}

	key := strings.TrimPrefix(u, "http://cdn.test/assets/")
	rc, ct, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != string(pngHeader) || ct != "image/png" {
		t.Fatalf("roundtrip mismatch: ct=%q len=%d", ct, len(got))
	}
}

func TestFSStoreGetRejectsTraversal(t *testing.T) {
	s, _ := NewFSStore(t.TempDir(), "http://x")
	for _, key := range []string{"../etc/passwd", "answers/../../x", ""} {
		if _, _, err := s.Get(context.Background(), key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Get(%q) err = %v, want ErrInvalidKey", key, err)
		}
	}
	if _, _, err := s.Get(context.Background(), "answers/missing.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing key err = %v", err)
	}
}

func TestImageUploadDecode(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString(pngHeader)

	data, ct, err := ImageUpload{Data: "data:image/png;base64," + enc}.Decode(1024)
	if err != nil || ct != "image/png" || len(data) != len(pngHeader) {
		t.Fatalf("decode = %d bytes, %q, %v", len(data), ct, err)
	}

	if _, _, err := (ImageUpload{Data: enc}).Decode(8); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	txt := base64.StdEncoding.EncodeToString([]byte("just some text"))
	if _, _, err := (ImageUpload{Data: txt, ContentType: "image/png"}).Decode(1024); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	if _, _, err := (ImageUpload{Data: "%%%"}).Decode(1024); !errors.Is(err, ErrInvalidBase64) {
		t.Fatalf("expected ErrInvalidBase64, got %v", err)
	}
}

func TestRefKinds(t *testing.T) {
	if !IsRemoteURL("https://x/y.png") || IsRemoteURL("file:///tmp/a.png") {
		t.Fatal("IsRemoteURL mismatch")
	}
	if !IsLocalPath("file:///data/user/0/cache/a.jpg") || !IsLocalPath("/sdcard/a.jpg") || IsLocalPath("https://x") {
		t.Fatal("IsLocalPath mismatch")
	}
}
