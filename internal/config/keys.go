package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "ollama.base_url", typ: kString, env: "TELLER_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.gen_model", typ: kString, env: "TELLER_OLLAMA_GEN_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.GenModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.GenModel },
	},
	{
		key: "ollama.embed_model", typ: kString, env: "TELLER_OLLAMA_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.EmbedModel },
	},
	{
		key: "storage.data_dir", typ: kString, env: "TELLER_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "data.dataset_dir", typ: kString, env: "TELLER_DATA_DATASET_DIR",
		apply:   func(cfg *Config, v any) { cfg.Data.DatasetDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.DatasetDir },
	},
	{
		key: "data.docs_dir", typ: kString, env: "TELLER_DATA_DOCS_DIR",
		apply:   func(cfg *Config, v any) { cfg.Data.DocsDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.DocsDir },
	},
	{
		key: "retrieval.similarity_threshold", typ: kFloat, env: "TELLER_RETRIEVAL_SIMILARITY_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.SimilarityThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Retrieval.SimilarityThreshold },
	},
	{
		key: "generation.max_new_tokens", typ: kInt, env: "TELLER_GENERATION_MAX_NEW_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Generation.MaxNewTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Generation.MaxNewTokens },
	},
	{
		key: "generation.temperature", typ: kFloat, env: "TELLER_GENERATION_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Generation.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Generation.Temperature },
	},
	{
		key: "generation.top_p", typ: kFloat, env: "TELLER_GENERATION_TOP_P",
		apply:   func(cfg *Config, v any) { cfg.Generation.TopP = v.(float64) },
		extract: func(cfg Config) any { return cfg.Generation.TopP },
	},
	{
		key: "log.level", typ: kString, env: "TELLER_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
