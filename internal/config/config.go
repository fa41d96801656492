package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	// LLM provider
	OpenAIAPIKey string
	Model        string
	// Assistant gateway (the chat proxy the conversation engine talks to)
	APIURL         string
	FrontendSecret string
	RequestTimeout time.Duration
	// Single bounded retry after an upstream 429. Off unless explicitly enabled.
	RetryOnRateLimit bool
	RetryDelay       time.Duration
	// Conversation limits
	MaxMessageLength      int
	MaxConversationLength int
	MaxQuestions          int
	// Summary delivery
	SummaryAPIURL    string
	EmailHost        string
	EmailPort        int
	EmailUser        string
	EmailPassword    string
	EmailFromName    string
	EmailRateLimit   int
	EmailRateWindow  time.Duration
	MaxContentLength int
	MaxSubjectLength int
	// News
	NewsAPIURL   string
	NewsAPIKey   string
	NewsCacheTTL time.Duration
	// Database (optional delivery log)
	DatabaseURL string
	// Data files
	PromptFile string
	RatesFile  string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:                  getEnvDefault("PORT", "8080"),
		AllowedOrigins:        getEnvListDefault("ALLOWED_ORIGINS", []string{"*"}),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		Model:                 getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		APIURL:                getEnvDefault("API_URL", "http://localhost:8080/api/chat"),
		FrontendSecret:        os.Getenv("FRONTEND_SECRET"),
		RequestTimeout:        getEnvDurationDefault("REQUEST_TIMEOUT", 30*time.Second),
		RetryOnRateLimit:      getEnvBoolDefault("RETRY_ON_RATE_LIMIT", false),
		RetryDelay:            getEnvDurationDefault("RETRY_DELAY", 3*time.Second),
		MaxMessageLength:      getEnvIntDefault("MAX_MESSAGE_LENGTH", 2000),
		MaxConversationLength: getEnvIntDefault("MAX_CONVERSATION_LENGTH", 50),
		MaxQuestions:          getEnvIntDefault("MAX_QUESTIONS", 12),
		SummaryAPIURL:         getEnvDefault("SUMMARY_API_URL", "http://localhost:8080/api/send-summary"),
		EmailHost:             getEnvDefault("EMAIL_HOST", "smtp.zoho.com"),
		EmailPort:             getEnvIntDefault("EMAIL_PORT", 465),
		EmailUser:             os.Getenv("EMAIL_USER"),
		EmailPassword:         os.Getenv("EMAIL_PASSWORD"),
		EmailFromName:         getEnvDefault("EMAIL_FROM_NAME", "VetDesk"),
		EmailRateLimit:        getEnvIntDefault("EMAIL_RATE_LIMIT", 3),
		EmailRateWindow:       getEnvDurationDefault("EMAIL_RATE_WINDOW", time.Hour),
		MaxContentLength:      getEnvIntDefault("MAX_CONTENT_LENGTH", 50000),
		MaxSubjectLength:      getEnvIntDefault("MAX_SUBJECT_LENGTH", 200),
		NewsAPIURL:            os.Getenv("NEWS_API_URL"),
		NewsAPIKey:            os.Getenv("NEWS_API_KEY"),
		NewsCacheTTL:          getEnvDurationDefault("NEWS_CACHE_TTL", 10*time.Minute),
		DatabaseURL:           os.Getenv("DB_URL"),
		PromptFile:            getEnvDefault("PROMPT_FILE", "prompts/assistant.yaml"),
		RatesFile:             os.Getenv("RATES_FILE"),
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("warning: OPENAI_API_KEY is not set; chat proxy calls will fail until provided")
	}
	if cfg.FrontendSecret == "" {
		log.Println("warning: FRONTEND_SECRET is not set; the chat proxy will reject all requests")
	}
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvListDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
		log.Printf("warning: invalid integer for %s, using default %d", key, def)
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
		log.Printf("warning: invalid duration for %s, using default %s", key, def)
	}
	return def
}
