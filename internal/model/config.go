package model

import "time"

// Config is the complete sentcheck configuration
type Config struct {
	Parser      ParserConfig      `yaml:"parser" mapstructure:"parser"`
	Policy      PolicyConfig      `yaml:"policy" mapstructure:"policy"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Records     RecordsConfig     `yaml:"records" mapstructure:"records"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// ParserConfig selects and tunes the external dependency parser
type ParserConfig struct {
	Backend           string        `yaml:"backend" mapstructure:"backend"`         // spacy, openai, ollama, anthropic, conllu
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`       // spaCy service or OpenAI-compatible endpoint
	Model             string        `yaml:"model" mapstructure:"model"`             // e.g. en_core_web_sm, gpt-4o-mini
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	ConllUPath        string        `yaml:"conllu_path,omitempty" mapstructure:"conllu_path"`
	FetchOnLoad       bool          `yaml:"fetch_on_load" mapstructure:"fetch_on_load"` // Install the model if the first probe fails
	LoadRetries       uint64        `yaml:"load_retries" mapstructure:"load_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 0 disables limiting
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// PolicyConfig selects the strictness table and default level
type PolicyConfig struct {
	RuleSet   string                    `yaml:"ruleset" mapstructure:"ruleset"` // canonical or narrow
	Default   string                    `yaml:"default" mapstructure:"default"` // lenient, balanced, strict
	Overrides map[string]PolicyOverride `yaml:"overrides,omitempty" mapstructure:"overrides"`
}

// PolicyOverride replaces fields of one strictness level.
// Empty fields keep the table's value.
type PolicyOverride struct {
	RootTags        []string `yaml:"root_tags,omitempty" mapstructure:"root_tags"`
	SubjectTags     []string `yaml:"subject_tags,omitempty" mapstructure:"subject_tags"`
	Require         []string `yaml:"require,omitempty" mapstructure:"require"`
	RequireArgument *bool    `yaml:"require_argument,omitempty" mapstructure:"require_argument"`
	Expr            string   `yaml:"expr,omitempty" mapstructure:"expr"` // CEL over root, subject, object
}

// CacheConfig controls parse caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, disk, layered, redis
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	RedisAddr string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
}

// RecordsConfig selects where checked queries are accumulated
type RecordsConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // memory, postgres
	DSN     string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls CLI rendering
type OutputConfig struct {
	Format  string `yaml:"format" mapstructure:"format"` // terminal, plain, html, json
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Parser: ParserConfig{
			Backend:           "spacy",
			BaseURL:           "http://localhost:8000",
			Model:             "en_core_web_sm",
			Timeout:           30 * time.Second,
			FetchOnLoad:       true,
			LoadRetries:       3,
			RequestsPerSecond: 0,
			Burst:             5,
		},
		Policy: PolicyConfig{
			RuleSet: "canonical",
			Default: "lenient",
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "memory",
			Dir:     "~/.sentcheck/cache",
			TTL:     24 * time.Hour,
		},
		Records: RecordsConfig{
			Backend: "memory",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Output: OutputConfig{
			Format: "terminal",
		},
	}
}
