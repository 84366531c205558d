package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvConfig carries everything read from the environment: credentials,
// endpoints and process-level switches. Workflow structure lives in the
// YAML document, not here.
type EnvConfig struct {
	ConfigPath               string
	RunOnce                  bool
	AllowPartialSourceErrors bool
	StatePath                string
	OpenAI                   OpenAIEnvConfig
	OTel                     OTelEnvConfig
	RSS                      RSSEnvConfig
	Reddit                   RedditEnvConfig
	SMTP                     SMTPEnvConfig
}

type OpenAIEnvConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
}

type OTelEnvConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" or "http/protobuf"
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

type RSSEnvConfig struct {
	HTTPTimeout time.Duration
	UserAgent   string
}

type RedditEnvConfig struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

type SMTPEnvConfig struct {
	Host               string
	Port               int
	User               string
	Password           string
	TLSMode            string
	InsecureSkipVerify bool
}

func LoadEnv() EnvConfig {
	otlpEndpoint := strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""))

	openAIModel := strings.TrimSpace(envString("OPENAI_MODEL", ""))
	if openAIModel == "" {
		openAIModel = "gpt-4o-mini"
	}

	return EnvConfig{
		ConfigPath:               envString("FEEDSIFT_CONFIG", "feedsift.yaml"),
		RunOnce:                  envBool("RUN_ONCE", false),
		AllowPartialSourceErrors: envBool("ALLOW_PARTIAL_SOURCE_ERRORS", false),
		StatePath:                envString("FEEDSIFT_STATE_PATH", ""),
		OpenAI: OpenAIEnvConfig{
			APIKey:      strings.TrimSpace(envString("OPENAI_API_KEY", "")),
			BaseURL:     strings.TrimSpace(envString("OPENAI_BASE_URL", "")),
			Model:       openAIModel,
			Temperature: envFloatPtr("OPENAI_TEMPERATURE"),
		},
		OTel: OTelEnvConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			ServiceName: strings.TrimSpace(envString("OTEL_SERVICE_NAME", "feedsift")),
			Endpoint:    otlpEndpoint,
			Protocol:    strings.ToLower(strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			Headers:     parseHeaders(envString("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", defaultInsecure(otlpEndpoint)),
			SampleRatio: clamp01(envFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0)),
		},
		RSS: RSSEnvConfig{
			HTTPTimeout: envDuration("RSS_HTTP_TIMEOUT", 10*time.Second),
			UserAgent:   envString("RSS_USER_AGENT", "feedsift/0.1"),
		},
		Reddit: RedditEnvConfig{
			ClientID:     envString("REDDIT_CLIENT_ID", ""),
			ClientSecret: envString("REDDIT_CLIENT_SECRET", ""),
			Username:     envString("REDDIT_USERNAME", ""),
			Password:     envString("REDDIT_PASSWORD", ""),
		},
		SMTP: SMTPEnvConfig{
			Host:               envString("SMTP_HOST", ""),
			Port:               envInt("SMTP_PORT", 587),
			User:               envString("SMTP_USER", ""),
			Password:           envString("SMTP_PASSWORD", ""),
			TLSMode:            envString("SMTP_TLS_MODE", ""),
			InsecureSkipVerify: envBool("SMTP_INSECURE_SKIP_VERIFY", false),
		},
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envFloatPtr(key string) *float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func parseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	headers := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key != "" {
			headers[key] = value
		}
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func defaultInsecure(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
