package configloader

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	ReadTimeout    int      `yaml:"readTimeout"`
	WriteTimeout   int      `yaml:"writeTimeout"`
	IdleTimeout    int      `yaml:"idleTimeout"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentRoutines    int `yaml:"max_concurrent_routines"`
	RPCCallTimeoutSeconds    int `yaml:"rpc_call_timeout_seconds"`
	ConnectionTimeoutSeconds int `yaml:"connection_timeout_seconds"`
}

// QueryConfig controls how raw input is normalized.
type QueryConfig struct {
	SchemePrefixes []string `yaml:"schemePrefixes"`
	NameSuffixes   []string `yaml:"nameSuffixes"`
}

// ENSConfig holds name resolution settings.
type ENSConfig struct {
	RegistryAddress         string `yaml:"registryAddress"`
	Network                 string `yaml:"network"`
	AvatarBaseURL           string `yaml:"avatarBaseURL"`
	RequestTimeoutMillis    int64  `yaml:"requestTimeoutMillis"`
	SkipReverseVerification bool   `yaml:"skipReverseVerification"`
}

// SourceOverride tunes a single source.
type SourceOverride struct {
	TimeoutMillis      int64   `yaml:"timeoutMillis"`
	RateLimitPerSecond float64 `yaml:"rateLimitPerSecond"`
	Burst              int     `yaml:"burst"`
	MaxRetries         *int    `yaml:"maxRetries"`
}

// SourcesConfig holds the shared freshness, timeout and retry policy of all sources.
type SourcesConfig struct {
	FreshnessSeconds     int                       `yaml:"freshnessSeconds"`
	TimeoutMillis        int64                     `yaml:"timeoutMillis"`
	MaxRetries           int                       `yaml:"maxRetries"`
	RetryBaseDelayMillis int64                     `yaml:"retryBaseDelayMillis"`
	RateLimitPerSecond   float64                   `yaml:"rateLimitPerSecond"`
	Burst                int                       `yaml:"burst"`
	Overrides            map[string]SourceOverride `yaml:"overrides"`
}

// TokensConfig selects the token balance provider.
type TokensConfig struct {
	Provider      string `yaml:"provider"`
	PriceFallback bool   `yaml:"priceFallback"`
}

// ProviderConfig holds the HTTP settings of a third-party API.
type ProviderConfig struct {
	BaseURL              string `yaml:"baseURL"`
	APIKey               string `yaml:"apiKey"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	PageSize             int    `yaml:"pageSize"`
	MaxPages             int    `yaml:"maxPages"`
}

// DEXScreenerConfig holds DEXScreener API specific configurations.
type DEXScreenerConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// TokenPriceServiceConfig holds configuration for the TokenPriceService.
type TokenPriceServiceConfig struct {
	MaxTokensPerBatchRequest int   `yaml:"maxTokensPerBatchRequest"`
	CacheTTLMinutes          int   `yaml:"cacheTTLMinutes"`
	RequestTimeoutMillis     int64 `yaml:"requestTimeoutMillis"`
}

// AggregationConfig holds filtering and display settings of the aggregator.
type AggregationConfig struct {
	SpamPatterns  []string `yaml:"spamPatterns"`
	DisplayLimit  int      `yaml:"displayLimit"`
	NftFetchLimit int      `yaml:"nftFetchLimit"`
}

// HistoryConfig holds search history settings.
type HistoryConfig struct {
	MaxEntries int `yaml:"maxEntries"`
}

// NetworksConfig selects the tracked chains.
type NetworksConfig struct {
	Tracked            []string          `yaml:"tracked"`
	ContractProbeChain string            `yaml:"contractProbeChain"`
	RPCOverrides       map[string]string `yaml:"rpcOverrides"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig            `yaml:"server"`
	Logging       LoggingConfig           `yaml:"logging"`
	Performance   PerformanceConfig       `yaml:"performance"`
	Query         QueryConfig             `yaml:"query"`
	ENS           ENSConfig               `yaml:"ens"`
	Sources       SourcesConfig           `yaml:"sources"`
	Tokens        TokensConfig            `yaml:"tokens"`
	Alchemy       ProviderConfig          `yaml:"alchemy"`
	Moralis       ProviderConfig          `yaml:"moralis"`
	OpenSea       ProviderConfig          `yaml:"openSea"`
	POAP          ProviderConfig          `yaml:"poap"`
	EFP           ProviderConfig          `yaml:"efp"`
	DEXScreener   DEXScreenerConfig       `yaml:"dexScreener"`
	TokenPriceSvc TokenPriceServiceConfig `yaml:"tokenPriceService"`
	Aggregation   AggregationConfig       `yaml:"aggregation"`
	History       HistoryConfig           `yaml:"history"`
	Networks      NetworksConfig          `yaml:"networks"`
}

// DefaultSpamPatterns match promotional and phishing token names.
var DefaultSpamPatterns = []string{`visit`, `claim`, `airdrop`, `\.com`, `\.xyz`, `\.io`, `\.cash`, `\.net`, `reward`}

// Load reads the YAML configuration file from the given path, applies defaults and environment overrides.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	logrus.Info("Configuration loaded successfully.")
	return cfg, nil
}

// Parse unmarshals YAML data, applies environment overrides and defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"ALCHEMY_API_KEY", &cfg.Alchemy.APIKey},
		{"MORALIS_API_KEY", &cfg.Moralis.APIKey},
		{"OPENSEA_API_KEY", &cfg.OpenSea.APIKey},
		{"POAP_API_KEY", &cfg.POAP.APIKey},
		{"SERVER_PORT", &cfg.Server.Port},
		{"LOG_LEVEL", &cfg.Logging.Level},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.target = v
			logrus.Debugf("%s set from environment", o.env)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 30
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Performance.MaxConcurrentRoutines <= 0 {
		cfg.Performance.MaxConcurrentRoutines = 10
	}
	if cfg.Performance.RPCCallTimeoutSeconds <= 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 10
	}
	if cfg.Performance.ConnectionTimeoutSeconds <= 0 {
		cfg.Performance.ConnectionTimeoutSeconds = 10
	}

	if len(cfg.Query.SchemePrefixes) == 0 {
		cfg.Query.SchemePrefixes = []string{"eth:", "oeth:"}
	}
	if len(cfg.Query.NameSuffixes) == 0 {
		cfg.Query.NameSuffixes = []string{".eth", ".xyz"}
	}

	if cfg.ENS.RegistryAddress == "" {
		cfg.ENS.RegistryAddress = "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e"
	}
	if cfg.ENS.Network == "" {
		cfg.ENS.Network = "ethereum"
	}
	if cfg.ENS.AvatarBaseURL == "" {
		cfg.ENS.AvatarBaseURL = "https://metadata.ens.domains/mainnet/avatar"
	}
	if cfg.ENS.RequestTimeoutMillis == 0 {
		cfg.ENS.RequestTimeoutMillis = 10000
	}

	if cfg.Sources.FreshnessSeconds <= 0 {
		cfg.Sources.FreshnessSeconds = 60
	}
	if cfg.Sources.TimeoutMillis <= 0 {
		cfg.Sources.TimeoutMillis = 10000
		logrus.Infof("Sources.TimeoutMillis not set, defaulting to %d ms", cfg.Sources.TimeoutMillis)
	}
	// A negative value disables retries.
	if cfg.Sources.MaxRetries == 0 {
		cfg.Sources.MaxRetries = 2
	}
	if cfg.Sources.RetryBaseDelayMillis <= 0 {
		cfg.Sources.RetryBaseDelayMillis = 500
	}
	if cfg.Sources.RateLimitPerSecond <= 0 {
		cfg.Sources.RateLimitPerSecond = 5
	}
	if cfg.Sources.Burst <= 0 {
		cfg.Sources.Burst = 5
	}

	cfg.Tokens.Provider = strings.ToLower(strings.TrimSpace(cfg.Tokens.Provider))
	if cfg.Tokens.Provider == "" {
		cfg.Tokens.Provider = "alchemy"
	}

	defaultProvider(&cfg.Alchemy, "Alchemy", "https://api.g.alchemy.com/data/v1", 100)
	defaultProvider(&cfg.Moralis, "Moralis", "https://deep-index.moralis.io/api/v2.2", 100)
	defaultProvider(&cfg.OpenSea, "OpenSea", "https://api.opensea.io/api/v2", 50)
	defaultProvider(&cfg.POAP, "POAP", "https://api.poap.tech", 0)
	defaultProvider(&cfg.EFP, "EFP", "https://data.ethfollow.xyz/api/v1", 0)

	if cfg.DEXScreener.BaseURL == "" {
		cfg.DEXScreener.BaseURL = "https://api.dexscreener.com"
		logrus.Infof("DEXScreener.BaseURL not set, defaulting to %s", cfg.DEXScreener.BaseURL)
	}
	if cfg.DEXScreener.RequestTimeoutMillis == 0 {
		cfg.DEXScreener.RequestTimeoutMillis = 10000
	}
	if cfg.TokenPriceSvc.MaxTokensPerBatchRequest == 0 {
		cfg.TokenPriceSvc.MaxTokensPerBatchRequest = 30
	}
	if cfg.TokenPriceSvc.CacheTTLMinutes == 0 {
		cfg.TokenPriceSvc.CacheTTLMinutes = 60
	}
	if cfg.TokenPriceSvc.RequestTimeoutMillis == 0 {
		cfg.TokenPriceSvc.RequestTimeoutMillis = cfg.DEXScreener.RequestTimeoutMillis
	}

	if len(cfg.Aggregation.SpamPatterns) == 0 {
		cfg.Aggregation.SpamPatterns = append([]string(nil), DefaultSpamPatterns...)
	}
	if cfg.Aggregation.DisplayLimit <= 0 {
		cfg.Aggregation.DisplayLimit = 5
	}
	if cfg.Aggregation.NftFetchLimit <= 0 {
		cfg.Aggregation.NftFetchLimit = 50
	}

	if cfg.History.MaxEntries <= 0 {
		cfg.History.MaxEntries = 20
	}

	if len(cfg.Networks.Tracked) == 0 {
		cfg.Networks.Tracked = []string{"ethereum", "optimism", "arbitrum", "base", "polygon"}
	}
	if cfg.Networks.ContractProbeChain == "" {
		cfg.Networks.ContractProbeChain = "ethereum"
	}
}

func defaultProvider(p *ProviderConfig, name, baseURL string, pageSize int) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
		logrus.Debugf("%s.BaseURL not set, defaulting to %s", name, baseURL)
	}
	p.BaseURL = strings.TrimRight(p.BaseURL, "/")
	if p.RequestTimeoutMillis == 0 {
		p.RequestTimeoutMillis = 10000
	}
	if p.PageSize == 0 {
		p.PageSize = pageSize
	}
	if p.MaxPages == 0 {
		p.MaxPages = 5
	}
}

func validate(cfg *Config) error {
	switch cfg.Tokens.Provider {
	case "alchemy":
		if cfg.Alchemy.APIKey == "" {
			logrus.Warn("Alchemy API key is not configured. Token balances will fail until ALCHEMY_API_KEY is set.")
		}
	case "moralis":
		if cfg.Moralis.APIKey == "" {
			logrus.Warn("Moralis API key is not configured. Token balances will fail until MORALIS_API_KEY is set.")
		}
	default:
		return fmt.Errorf("unknown tokens.provider %q (expected alchemy or moralis)", cfg.Tokens.Provider)
	}
	if cfg.OpenSea.APIKey == "" {
		logrus.Warn("OpenSea API key is not configured. NFT lookups may be rejected.")
	}
	for _, p := range cfg.Query.NameSuffixes {
		if !strings.HasPrefix(p, ".") {
			return fmt.Errorf("query.nameSuffixes entry %q must start with a dot", p)
		}
	}
	return nil
}
