package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	PublicBaseURL      string
	CORSAllowedOrigins []string

	// Vapi call provider
	VapiPublicKey   string
	VapiWorkflowID  string
	VapiAssistantID string
	VapiBaseURL     string

	// Gemini scoring
	GeminiAPIKey  string
	GeminiModelID string

	// DynamoDB document store
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	InterviewsTable     string
	FeedbackTable       string
	UsersTable          string

	// Redis live transcript mirror
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Session behavior
	CompletionDelay     time.Duration
	TranscriptMirror    bool
	TranscriptMirrorTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),

		VapiPublicKey:   getEnv("VAPI_PUBLIC_KEY", ""),
		VapiWorkflowID:  getEnv("VAPI_WORKFLOW_ID", ""),
		VapiAssistantID: getEnv("VAPI_ASSISTANT_ID", ""),
		VapiBaseURL:     getEnv("VAPI_BASE_URL", "wss://api.vapi.ai/ws"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.0-flash-001"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		InterviewsTable:     getEnv("INTERVIEWS_TABLE", "interviews"),
		FeedbackTable:       getEnv("FEEDBACK_TABLE", "feedback"),
		UsersTable:          getEnv("USERS_TABLE", "users"),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CompletionDelay:     getEnvAsDuration("COMPLETION_DELAY", time.Second),
		TranscriptMirror:    getEnvAsBool("TRANSCRIPT_MIRROR", false),
		TranscriptMirrorTTL: getEnvAsDuration("TRANSCRIPT_MIRROR_TTL", 24*time.Hour),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsSlice retrieves a comma-separated environment variable or returns a default value
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
