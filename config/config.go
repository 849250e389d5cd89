package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultMaxUploadBytes caps a single document upload (50 MiB)
	DefaultMaxUploadBytes = 50 << 20
)

type Config struct {
	ServerPort  string
	DBPath      string
	Environment string
	UploadDir   string
	// Turso / libsql
	TursoDatabaseURL string
	TursoAuthToken   string
	// Cloudflare R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged to console instead of sent
	NotifyEmail   string
	// AI providers
	GeminiAPIKey     string
	GeminiModel      string
	OpenAIAPIKey     string
	OpenAIModel      string
	AnalysisProvider string // openai, gemini
	// External services
	MetabuscadorURL      string
	MetabuscadorTimeout  time.Duration
	ExtractionServiceURL string
	// Limits and jobs
	MaxUploadBytes        int64
	ToolRatePerMinute     int
	DoctrineMaxItems      int
	ReconsolidateSchedule string
	ChromePath            string
	// Other
	AllowedOrigins []string
	AppURL         string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		DBPath:                getEnv("DB_PATH", "db/app.db"),
		Environment:           getEnv("ENVIRONMENT", "development"),
		UploadDir:             getEnv("UPLOAD_DIR", "static/uploads"),
		TursoDatabaseURL:      getEnv("TURSO_DATABASE_URL", ""),
		TursoAuthToken:        getEnv("TURSO_AUTH_TOKEN", ""),
		R2AccountID:           getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:         getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:     getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:          getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:           getEnv("R2_PUBLIC_URL", ""),
		ResendAPIKey:          getEnv("RESEND_API_KEY", ""),
		EmailFrom:             getEnv("EMAIL_FROM", "noreply@lexprocess.pe"),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Lex Process"),
		EmailTestMode:         getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		NotifyEmail:           getEnv("NOTIFY_EMAIL", ""),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o"),
		AnalysisProvider:      strings.ToLower(getEnv("ANALYSIS_PROVIDER", "openai")),
		MetabuscadorURL:       strings.TrimRight(getEnv("METABUSCADOR_SERVICE_URL", "http://localhost:8000"), "/"),
		MetabuscadorTimeout:   getEnvDuration("METABUSCADOR_TIMEOUT", 20*time.Second),
		ExtractionServiceURL:  strings.TrimRight(getEnv("EXTRACTION_SERVICE_URL", ""), "/"),
		MaxUploadBytes:        int64(getEnvInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
		ToolRatePerMinute:     getEnvInt("TOOL_RATE_PER_MINUTE", 30),
		DoctrineMaxItems:      getEnvInt("DOCTRINE_MAX_ITEMS", 10),
		ReconsolidateSchedule: getEnv("RECONSOLIDATE_SCHEDULE", "0 3 * * *"),
		ChromePath:            getEnv("CHROME_PATH", ""),
		AllowedOrigins:        strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		AppURL:                getEnv("APP_URL", "http://localhost:8080"),
	}
}

// UseR2 reports whether every R2 credential is present
func (c *Config) UseR2() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Printf("Using default value for %s: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("[WARNING] Invalid value for %s (%q), using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("[WARNING] Invalid duration for %s (%q), using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
