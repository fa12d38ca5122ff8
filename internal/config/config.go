package config

import (
	"os"
	"path/filepath"
)

type Config struct {
	Ollama     OllamaConfig
	Storage    StorageConfig
	Data       DataConfig
	Retrieval  RetrievalConfig
	Generation GenerationConfig
	Log        LogConfig
}

type OllamaConfig struct {
	BaseURL    string
	GenModel   string
	EmbedModel string
}

type StorageConfig struct {
	DataDir string
}

// DataConfig points at the source corpora read by the offline index pass.
type DataConfig struct {
	DatasetDir string
	DocsDir    string
}

type RetrievalConfig struct {
	// SimilarityThreshold is the minimum cosine similarity a knowledge
	// document must score to answer a query.
	SimilarityThreshold float64
}

// GenerationConfig holds the sampling parameters for fallback answers.
type GenerationConfig struct {
	MaxNewTokens int
	Temperature  float64
	TopP         float64
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			GenModel:   "llama3.2:latest",
			EmbedModel: "nomic-embed-text",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Data: DataConfig{
			DatasetDir: "dataset",
			DocsDir:    "docs",
		},
		Retrieval: RetrievalConfig{
			SimilarityThreshold: 0.6,
		},
		Generation: GenerationConfig{
			MaxNewTokens: 150,
			Temperature:  0.7,
			TopP:         0.95,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/teller/config.json, then applies TELLER_* environment
// variable overrides on top.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "teller-data"
		}
	}
	return filepath.Join(dir, "teller")
}
