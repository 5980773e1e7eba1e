package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Completion providers.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Service       ServiceConfig
	Completion    CompletionConfig
	Pipeline      PipelineConfig
	Kafka         KafkaConfig
	Collector     CollectorConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Principal string
	HTTPPort  string
}

type CompletionConfig struct {
	Provider        string
	APIKey          string `json:"-"`
	BaseURL         string
	CorrectionModel string
	EvaluationModel string
	Temperature     float64
	Timeout         time.Duration
}

type PipelineConfig struct {
	CompanyName    string
	KeywordsFile   string
	ChecklistFile  string
	MaxConcurrency int
}

type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	TopicTranscript string
	TopicReport     string
	GroupID         string
	Principal       string
}

type CollectorConfig struct {
	IdleTimeout  time.Duration
	MaxFragments int
	Retention    time.Duration // how long finished interactions keep rejecting late fragments
}

type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-script-adherence")
	provider := strings.ToLower(envOrDefault("COMPLETION_PROVIDER", ProviderMock))

	return &Config{
		Service: ServiceConfig{
			Principal: principal,
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
		},
		Completion: CompletionConfig{
			Provider:        provider,
			APIKey:          apiKeyFor(provider),
			BaseURL:         os.Getenv("COMPLETION_BASE_URL"),
			CorrectionModel: envOrDefault("CORRECTION_MODEL", "gpt-3.5-turbo"),
			EvaluationModel: envOrDefault("EVALUATION_MODEL", "gpt-4o"),
			Temperature:     envOrDefaultFloat("COMPLETION_TEMPERATURE", 0),
			Timeout:         envOrDefaultDuration("COMPLETION_TIMEOUT", 60*time.Second),
		},
		Pipeline: PipelineConfig{
			CompanyName:    envOrDefault("COMPANY_NAME", "Choice Finx"),
			KeywordsFile:   envOrDefault("KEYWORDS_FILE", "data/keywords.txt"),
			ChecklistFile:  os.Getenv("CHECKLIST_FILE"),
			MaxConcurrency: envOrDefaultInt("PIPELINE_MAX_CONCURRENCY", 8),
		},
		Kafka: KafkaConfig{
			Enabled:         envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:         envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicTranscript: envOrDefault("KAFKA_TOPIC_TRANSCRIPT", "interaction.transcript.final"),
			TopicReport:     envOrDefault("KAFKA_TOPIC_REPORT", "interaction.adherence.report"),
			GroupID:         envOrDefault("KAFKA_GROUP_ID", "script-adherence"),
			Principal:       envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Collector: CollectorConfig{
			IdleTimeout:  envOrDefaultDuration("COLLECTOR_IDLE_TIMEOUT", 30*time.Second),
			MaxFragments: envOrDefaultInt("COLLECTOR_MAX_FRAGMENTS", 2000),
			Retention:    envOrDefaultDuration("COLLECTOR_RETENTION", 10*time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}
}

// apiKeyFor prefers COMPLETION_API_KEY and falls back to the provider's conventional variable.
func apiKeyFor(provider string) string {
	if v := os.Getenv("COMPLETION_API_KEY"); v != "" {
		return v
	}
	switch provider {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	default:
		return ""
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
