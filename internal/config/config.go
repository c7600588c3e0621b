package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the fsdgen API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	CodeGen   GeneratorConfig `yaml:"codegen"`
	TestCases TestCasesConfig `yaml:"testcases"`
	FuncDoc   GeneratorConfig `yaml:"funcdoc"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	Dimensions   int    `yaml:"dimensions"`     // native model dimension hint, 0 = provider default
	TargetDim    int    `yaml:"target_dim"`     // index dimension; vectors are padded/truncated to it
	CacheTTLHrs  int    `yaml:"cache_ttl_hours"`
}

// LLMConfig holds the chat completion backend settings.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// GeneratorConfig holds settings shared by the generation services.
type GeneratorConfig struct {
	Collections  []string `yaml:"collections"`
	TopK         int      `yaml:"top_k"`
	Temperature  float32  `yaml:"temperature"`
	MaxTokens    int      `yaml:"max_tokens"`
	StageDelayMS int      `yaml:"stage_delay_ms"` // pause between pipeline stages
}

// TestCasesConfig holds settings for the test-case generation service.
type TestCasesConfig struct {
	Collections   []string `yaml:"collections"`
	TopK          int      `yaml:"top_k"`
	Temperature   float32  `yaml:"temperature"`
	MaxTokens     int      `yaml:"max_tokens"`
	ScenarioCount int      `yaml:"scenario_count"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Three sequential LLM calls can take a while.
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.TargetDim < 0 {
		c.Embedding.TargetDim = 0
	}
	if c.Embedding.CacheTTLHrs <= 0 {
		c.Embedding.CacheTTLHrs = 24
	}
	if len(c.CodeGen.Collections) == 0 {
		c.CodeGen.Collections = []string{"Sql_Database", "DDL_Database"}
	}
	if c.CodeGen.TopK <= 0 {
		c.CodeGen.TopK = 1
	}
	if c.CodeGen.Temperature <= 0 {
		c.CodeGen.Temperature = 1.3
	}
	if c.CodeGen.MaxTokens <= 0 {
		c.CodeGen.MaxTokens = 2048
	}
	if c.CodeGen.StageDelayMS <= 0 {
		c.CodeGen.StageDelayMS = 2000
	}
	if len(c.TestCases.Collections) == 0 {
		c.TestCases.Collections = []string{"Flexcube_user_guide_14.x", "Flexcube_Userguide_12.x", "fn_tables2"}
	}
	if c.TestCases.TopK <= 0 {
		c.TestCases.TopK = 5
	}
	if c.TestCases.Temperature <= 0 {
		c.TestCases.Temperature = 0.3
	}
	if c.TestCases.MaxTokens <= 0 {
		c.TestCases.MaxTokens = 1024
	}
	if c.TestCases.ScenarioCount <= 0 {
		c.TestCases.ScenarioCount = 10
	}
	if len(c.FuncDoc.Collections) == 0 {
		c.FuncDoc.Collections = []string{"Flexcube_user_guide_14.x", "Flexcube_Userguide_12.x"}
	}
	if c.FuncDoc.TopK <= 0 {
		c.FuncDoc.TopK = 5
	}
	if c.FuncDoc.Temperature <= 0 {
		c.FuncDoc.Temperature = 0.3
	}
	if c.FuncDoc.MaxTokens <= 0 {
		c.FuncDoc.MaxTokens = 2000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
