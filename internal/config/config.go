package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string `env:"PORT" envDefault:"8090"`
	DataDir        string `env:"DATA_DIR" envDefault:"./data"`
	DefaultProject string `env:"DEFAULT_PROJECT" envDefault:"default"`

	// Optional bearer auth; empty leaves the API open.
	APIKey string `env:"NOTELOOP_API_KEY"`

	// Section synthesis. With no key the deterministic fallback is used.
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string        `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-5-20250929"`
	SynthTimeout    time.Duration `env:"SYNTH_TIMEOUT" envDefault:"60s"`

	// Audio transcription.
	GroqAPIKey        string        `env:"GROQ_API_KEY"`
	WhisperModel      string        `env:"WHISPER_MODEL" envDefault:"whisper-large-v3"`
	TranscribeTimeout time.Duration `env:"TRANSCRIBE_TIMEOUT" envDefault:"30s"`

	// Section embedding.
	OllamaURL  string `env:"OLLAMA_URL" envDefault:"http://localhost:11434/api"`
	EmbedModel string `env:"EMBED_MODEL" envDefault:"nomic-embed-text"`

	// Classification thresholds.
	SimilarityConfident float64 `env:"SIMILARITY_CONFIDENT" envDefault:"0.65"`
	SimilarityFloor     float64 `env:"SIMILARITY_FLOOR" envDefault:"0.35"`

	// Audio request queue.
	MaxQueueSize int           `env:"MAX_QUEUE_SIZE" envDefault:"100"`
	ResultTTL    time.Duration `env:"RESULT_TTL" envDefault:"1h"`
	MaxResults   int           `env:"MAX_RESULTS" envDefault:"100"`

	// Upload limits.
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"26214400"` // 25MB

	// PDF import.
	PDFFallbackPdftotext bool `env:"PDF_FALLBACK_PDFTOTEXT" envDefault:"true"`
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.SimilarityFloor < 0 || c.SimilarityConfident > 1 {
		return fmt.Errorf("similarity thresholds must lie in [0, 1]")
	}
	if c.SimilarityFloor >= c.SimilarityConfident {
		return fmt.Errorf("SIMILARITY_FLOOR (%.2f) must be below SIMILARITY_CONFIDENT (%.2f)",
			c.SimilarityFloor, c.SimilarityConfident)
	}
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("MAX_QUEUE_SIZE must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}
