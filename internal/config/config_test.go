package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, k := range []string{"MODE", "HTTP_ADDR", "PUBLIC_URL", "DB_DRIVER", "AUTH_HMAC_SECRET", "TOKEN_TTL", "CORS_ORIGINS", "MAX_IMAGE_BYTES"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.Mode != ModeOffline || c.HTTPAddr != ":8080" || c.PublicURL != "http://localhost:8080" {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.DBDriver != "sqlite" || c.AuthHMACSecret != DevHMACSecret || c.TokenTTL != 8*time.Hour {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.MaxImageBytes != 5*1024*1024 || len(c.CORSOrigins) != 2 || !c.EnableLocalAuth {
		t.Fatalf("unexpected defaults %+v", c)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MODE", "online")
	t.Setenv("PUBLIC_URL", "https://learn.example.com/")
	t.Setenv("TOKEN_TTL", "15m")
	t.Setenv("ENABLE_LOCAL_AUTH", "false")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("MAX_IMAGE_BYTES", "not-a-number")

	c := FromEnv()
	if c.Mode != ModeOnline || c.PublicURL != "https://learn.example.com" || c.TokenTTL != 15*time.Minute {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if c.EnableLocalAuth {
		t.Fatalf("ENABLE_LOCAL_AUTH=false ignored")
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins %q", c.CORSOrigins)
	}
	if c.MaxImageBytes != 5*1024*1024 {
		t.Fatalf("invalid MAX_IMAGE_BYTES should fall back, got %d", c.MaxImageBytes)
	}
}

func TestFromEnvDotenvFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(f, []byte("LLM_MODEL=gemini-test\nLOG_FORMAT=json\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", f)
	t.Setenv("LOG_FORMAT", "text") // process env wins over the file
	os.Unsetenv("LLM_MODEL")
	t.Cleanup(func() { os.Unsetenv("LLM_MODEL") })

	c := FromEnv()
	if c.LLMModel != "gemini-test" {
		t.Fatalf("dotenv value not loaded: %q", c.LLMModel)
	}
	if c.LogFormat != "text" {
		t.Fatalf("environment should win over dotenv, got %q", c.LogFormat)
	}
}
