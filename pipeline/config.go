package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/broadlistening/ai"
	"gopkg.in/yaml.v3"
)

// Config is the YAML pipeline configuration of one dataset. The token usage
// fields are updated in place and written back after every run.
type Config struct {
	Input     string `yaml:"input"`
	OutputDir string `yaml:"output_dir"`

	// RootDir holds the inputs/ and outputs/ directories. Default: "."
	RootDir string `yaml:"root_dir,omitempty"`

	// StateDir holds run records and the embedding cache. Empty disables both.
	StateDir string `yaml:"state_dir,omitempty"`

	// MetricsFile receives provider metrics in Prometheus text format.
	MetricsFile string `yaml:"metrics_file,omitempty"`

	Provider          string  `yaml:"provider,omitempty"`
	LocalLLMAddress   string  `yaml:"local_llm_address,omitempty"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`

	Embedding           EmbeddingConfig `yaml:"embedding"`
	IsEmbeddedAtLocal   bool            `yaml:"is_embedded_at_local"`
	LocalEmbeddingModel string          `yaml:"local_embedding_model,omitempty"`

	Extraction     ExtractionConfig `yaml:"extraction"`
	SkipExtraction bool             `yaml:"skip_extraction"`

	AutoCluster            bool             `yaml:"auto_cluster"`
	HierarchicalClustering ClusteringConfig `yaml:"hierarchical_clustering"`

	HierarchicalInitialLabelling LabellingConfig `yaml:"hierarchical_initial_labelling"`
	SkipInitialLabelling         bool            `yaml:"skip_initial_labelling"`

	TotalTokenUsage  int `yaml:"total_token_usage"`
	TokenUsageInput  int `yaml:"token_usage_input"`
	TokenUsageOutput int `yaml:"token_usage_output"`
}

// EmbeddingConfig selects the remote embedding model.
type EmbeddingConfig struct {
	Model string `yaml:"model"`
}

// ExtractionConfig configures argument extraction.
type ExtractionConfig struct {
	Model      string         `yaml:"model"`
	Prompt     string         `yaml:"prompt"`
	Workers    int            `yaml:"workers"`
	Limit      int            `yaml:"limit"`
	Properties []string       `yaml:"properties"`
	Categories map[string]any `yaml:"categories,omitempty"`
}

// ClusteringConfig lists the cluster count of each level, coarsest first.
type ClusteringConfig struct {
	ClusterNums []int `yaml:"cluster_nums,omitempty"`
}

// LabellingConfig configures cluster labelling.
type LabellingConfig struct {
	SamplingNum int    `yaml:"sampling_num"`
	Prompt      string `yaml:"prompt"`
	Model       string `yaml:"model"`
	Workers     int    `yaml:"workers"`
}

const defaultChatModel = "gpt-4o-mini"

// LoadConfig reads a YAML configuration and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Defaults()
	return &cfg, nil
}

// SaveConfig writes the configuration back as YAML.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Defaults fills unset fields.
func (c *Config) Defaults() {
	if c.RootDir == "" {
		c.RootDir = "."
	}
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.LocalEmbeddingModel == "" {
		c.LocalEmbeddingModel = ai.DefaultLocalEmbeddingModel
	}
	if c.Extraction.Model == "" {
		c.Extraction.Model = defaultChatModel
	}
	if c.Extraction.Workers <= 0 {
		c.Extraction.Workers = 1
	}
	if c.HierarchicalInitialLabelling.Model == "" {
		c.HierarchicalInitialLabelling.Model = c.Extraction.Model
	}
	if c.HierarchicalInitialLabelling.Workers <= 0 {
		c.HierarchicalInitialLabelling.Workers = 1
	}
	if c.HierarchicalInitialLabelling.SamplingNum <= 0 {
		c.HierarchicalInitialLabelling.SamplingNum = 30
	}
}

// Validate reports configuration errors that would stop a run.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("%w: input is required", ErrInvalidConfig)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_dir is required", ErrInvalidConfig)
	}
	if c.Extraction.Limit < 0 {
		return fmt.Errorf("%w: extraction.limit cannot be negative", ErrInvalidConfig)
	}
	for _, k := range c.HierarchicalClustering.ClusterNums {
		if k < 2 {
			return fmt.Errorf("%w: cluster count %d is below 2", ErrInvalidConfig, k)
		}
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second cannot be negative", ErrInvalidConfig)
	}
	if _, err := ai.ParseProvider(c.Provider, c.LocalLLMAddress); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AIConfig builds the provider gateway configuration.
func (c *Config) AIConfig() (*ai.Config, error) {
	provider, err := ai.ParseProvider(c.Provider, c.LocalLLMAddress)
	if err != nil {
		return nil, err
	}
	return ai.NewConfig(
		ai.WithProvider(provider),
		ai.WithChatModel(c.Extraction.Model),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithLocalEmbedding(c.IsEmbeddedAtLocal, c.LocalEmbeddingModel),
		ai.WithRequestsPerSecond(c.RequestsPerSecond),
	), nil
}

// EmbeddingModelName names the model that produces the vectors.
func (c *Config) EmbeddingModelName() string {
	if c.IsEmbeddedAtLocal {
		return c.LocalEmbeddingModel
	}
	return c.Provider + "/" + c.Embedding.Model
}
