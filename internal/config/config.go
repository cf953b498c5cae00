// Package config loads and validates the engine configuration from
// YAML, merged with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Provider string `yaml:"provider"`

	Ollama struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"ollama"`

	OpenAI struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"openai"`

	Chunking struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"chunking"`

	Models struct {
		Embedding struct {
			Name string `yaml:"name"`
		} `yaml:"embedding"`
		Generation struct {
			Name string `yaml:"name"`
			// Pointer so an explicit 0 survives defaulting.
			Temperature *float64 `yaml:"temperature"`
			MaxTokens   int      `yaml:"max_tokens"`
		} `yaml:"generation"`
	} `yaml:"models"`

	Retrieval struct {
		TopK     int      `yaml:"top_k"`
		MinScore *float64 `yaml:"min_score"`
	} `yaml:"retrieval"`

	VectorStore struct {
		PersistDirectory string `yaml:"persist_directory"`
		FAQDirectory     string `yaml:"faq_directory"`
	} `yaml:"vector_store"`

	Reply struct {
		MinScore      *float64 `yaml:"min_score"`
		RatePerSecond float64  `yaml:"rate_per_second"`
	} `yaml:"reply"`
}

func Load(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docrag/config.yaml"),
			"/etc/docrag/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	config := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %v", err)
		}
	}

	mergeWithEnv(config)
	applyDefaults(config)

	return config, nil
}

func applyDefaults(config *Config) {
	if config.Provider == "" {
		config.Provider = "ollama"
	}
	if config.Ollama.BaseURL == "" {
		config.Ollama.BaseURL = "http://localhost:11434"
	}

	if config.Chunking.ChunkSize == 0 {
		config.Chunking.ChunkSize = 1000
	}
	if config.Chunking.ChunkOverlap == 0 {
		config.Chunking.ChunkOverlap = 150
	}

	if config.Models.Embedding.Name == "" {
		config.Models.Embedding.Name = "nomic-embed-text"
	}
	if config.Models.Generation.Name == "" {
		config.Models.Generation.Name = "llama3.2:3b"
	}
	if config.Models.Generation.Temperature == nil {
		config.Models.Generation.Temperature = floatPtr(0.1)
	}
	if config.Models.Generation.MaxTokens == 0 {
		config.Models.Generation.MaxTokens = 512
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 3
	}
	if config.Retrieval.MinScore == nil {
		config.Retrieval.MinScore = floatPtr(0.4)
	}

	if config.VectorStore.PersistDirectory == "" {
		config.VectorStore.PersistDirectory = filepath.Join("data", "embeddings")
	}
	if config.VectorStore.FAQDirectory == "" {
		config.VectorStore.FAQDirectory = filepath.Join("data", "embeddings_faq")
	}

	// FAQ lookups for short comments run against a looser threshold
	// than full document queries.
	if config.Reply.MinScore == nil {
		derived := *config.Retrieval.MinScore - 0.1
		if derived < 0 {
			derived = 0
		}
		config.Reply.MinScore = &derived
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Ollama.BaseURL = baseURL
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.OpenAI.APIKey = key
	}
	if provider := os.Getenv("DOCRAG_PROVIDER"); provider != "" {
		config.Provider = provider
	}
}
