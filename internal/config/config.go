package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

// DevHMACSecret is the token secret used when none is configured. It is
// refused in online mode.
const DevHMACSecret = "supersecret-dev-key"

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode      Mode
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	BlobBasePath  string
	MaxImageBytes int64

	EnableLocalAuth bool
	AuthHMACSecret  string
	TokenTTL        time.Duration

	// Google sign-in; disabled while GoogleClientID is empty
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleAllowedHD    string

	// bootstrap admin, created on startup when missing
	AdminEmail    string
	AdminPassHash string // bcrypt

	CORSOrigins []string

	LLMAPIKey  string
	LLMModel   string
	LLMBaseURL string

	LogLevel  string
	LogFormat string // text|json

	RequestTimeout time.Duration
}

// FromEnv loads an optional dotenv file (ENV_FILE, default .env) and then
// reads the process environment. Values already present in the environment win.
func FromEnv() Config {
	envFile := envOr("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	addr := envOr("HTTP_ADDR", ":8080")
	pub := strings.TrimSuffix(envOr("PUBLIC_URL", "http://localhost"+addr), "/")

	defOrigins := "http://localhost:8081,http://localhost:19006"
	if mode == ModeOnline {
		defOrigins = "https://learn.mindengage.ai"
	}

	return Config{
		Mode:      mode,
		HTTPAddr:  addr,
		PublicURL: pub,

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		BlobBasePath:  envOr("BLOB_BASE_PATH", "./data"),
		MaxImageBytes: int64(envInt("MAX_IMAGE_BYTES", 5*1024*1024)),

		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),
		AuthHMACSecret:  envOr("AUTH_HMAC_SECRET", DevHMACSecret),
		TokenTTL:        envDuration("TOKEN_TTL", 8*time.Hour),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  envOr("GOOGLE_REDIRECT_URI", pub+"/auth/google/callback"),
		GoogleAllowedHD:    os.Getenv("GOOGLE_ALLOWED_HD"),

		AdminEmail:    envOr("ADMIN_EMAIL", "admin@localhost"),
		AdminPassHash: envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),

		CORSOrigins: csvOr("CORS_ORIGINS", defOrigins),

		LLMAPIKey:  os.Getenv("LLM_API_KEY"),
		LLMModel:   envOr("LLM_MODEL", "gemini-2.5-flash"),
		LLMBaseURL: envOr("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),

		RequestTimeout: envDuration("REQUEST_TIMEOUT", 30*time.Second),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil && n > 0 {
		return n
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k))); err == nil && d > 0 {
		return d
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
