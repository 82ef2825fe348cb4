package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LLMConfig holds settings for the reasoning service connection.
type LLMConfig struct {
	Host           string        `yaml:"host"`
	Model          string        `yaml:"model"`
	Temperature    float64       `yaml:"temperature"`
	NumCtx         int           `yaml:"num_ctx"`
	MaxTokens      int           `yaml:"max_tokens"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// AgentConfig holds settings for the orchestration loop.
type AgentConfig struct {
	MaxTurns        int  `yaml:"max_turns"`
	MinimumRecords  int  `yaml:"minimum_records"`
	AutoExtract     bool `yaml:"auto_extract"`
	AutoExtractSize int  `yaml:"auto_extract_size"`
}

// SearchConfig holds settings for the web search service.
type SearchConfig struct {
	MaxResults int           `yaml:"max_results"`
	Timeout    time.Duration `yaml:"timeout"`
	Region     string        `yaml:"region"`
}

// BrowserConfig holds settings for the browser automation service.
type BrowserConfig struct {
	Headless    bool          `yaml:"headless"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// OutputConfig holds settings for the record writer.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Format    string `yaml:"format"` // "csv" or "xlsx"
}

// Config is the full application configuration.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	LLM      LLMConfig     `yaml:"llm"`
	Agent    AgentConfig   `yaml:"agent"`
	Search   SearchConfig  `yaml:"search"`
	Browser  BrowserConfig `yaml:"browser"`
	Output   OutputConfig  `yaml:"output"`
}

// Default returns the configuration used when no file or overrides are present.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		LLM: LLMConfig{
			Host:           "http://localhost:11434",
			Model:          "qwen3:8b",
			Temperature:    0.2,
			NumCtx:         16384,
			MaxTokens:      4096,
			RequestTimeout: 240 * time.Second,
		},
		Agent: AgentConfig{
			MaxTurns:        20,
			MinimumRecords:  5,
			AutoExtract:     true,
			AutoExtractSize: 5000,
		},
		Search: SearchConfig{
			MaxResults: 5,
			Timeout:    30 * time.Second,
			Region:     "wt-wt",
		},
		Browser: BrowserConfig{
			Headless:    true,
			CallTimeout: 60 * time.Second,
		},
		Output: OutputConfig{
			Directory: "outputs",
			Format:    "csv",
		},
	}
}

// Load reads configuration from path if it exists, layered over defaults,
// then applies environment overrides. An empty path skips the file step.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides selected fields from the environment. Only the knobs
// that are useful to flip per-invocation are exposed.
func (c *Config) applyEnv() {
	if v := os.Getenv("CRAWLER_LLM_HOST"); v != "" {
		c.LLM.Host = v
	}
	if v := os.Getenv("CRAWLER_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("CRAWLER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CRAWLER_MAX_TURNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Agent.MaxTurns = n
		}
	}
	if v := os.Getenv("CRAWLER_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("CRAWLER_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
}

// Validate checks fields that would otherwise fail deep inside a session.
func (c *Config) Validate() error {
	if c.Agent.MaxTurns <= 0 {
		return fmt.Errorf("agent.max_turns must be positive, got %d", c.Agent.MaxTurns)
	}
	if c.Output.Format != "csv" && c.Output.Format != "xlsx" {
		return fmt.Errorf("output.format must be \"csv\" or \"xlsx\", got %q", c.Output.Format)
	}
	if c.LLM.Host == "" {
		return fmt.Errorf("llm.host must not be empty")
	}
	return nil
}
