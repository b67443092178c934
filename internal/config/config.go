package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Verifier VerifierConfig `yaml:"verifier"`
	Claim    ClaimConfig    `yaml:"claim"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig NATS message server configuration. URL may be empty, in which
// case event publishing is disabled and claims are processed without it.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`        // connect timeout, seconds
	ReconnectWait int    `yaml:"reconnect_wait"` // seconds
	MaxReconnects int    `yaml:"max_reconnects"`
	SubjectPrefix string `yaml:"subject_prefix"` // defaults to "airdrop"
}

// VerifierConfig external proof verification service configuration
type VerifierConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Timeout int    `yaml:"timeout"` // request timeout, seconds
}

// ClaimConfig distribution parameters fixed at deployment. Epoch, root and
// reward amount live in the database afterwards; these seed the first epoch.
type ClaimConfig struct {
	// ProgramIdentity is the 32-byte identity of the guest program the
	// verifier checks proofs against (hex). Never taken from callers.
	ProgramIdentity string `yaml:"programIdentity"`
	InitialRoot     string `yaml:"initialRoot"`     // bytes32 hex, non-zero
	InitialReward   string `yaml:"initialReward"`   // decimal string, wei
	InitialTreasury string `yaml:"initialTreasury"` // decimal string, wei
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// AppConfig global application configuration instance
var AppConfig *Config

// LoadConfig loads configuration from a yaml file, then applies environment
// variable overrides (env wins over file).
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		NATS:   NATSConfig{Timeout: 10, ReconnectWait: 5, MaxReconnects: -1, SubjectPrefix: "airdrop"},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database DSN is required (config file or DATABASE_DSN)")
	}
	if cfg.Claim.ProgramIdentity == "" {
		return nil, fmt.Errorf("claim program identity is required (config file or CLAIM_PROGRAM_IDENTITY)")
	}

	AppConfig = cfg
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Server.Host, "SERVER_HOST")
	overrideInt(&cfg.Server.Port, "SERVER_PORT")
	overrideString(&cfg.Database.DSN, "DATABASE_DSN")
	overrideString(&cfg.NATS.URL, "NATS_URL")
	overrideString(&cfg.Verifier.BaseURL, "VERIFIER_BASE_URL")
	overrideInt(&cfg.Verifier.Timeout, "VERIFIER_TIMEOUT")
	overrideString(&cfg.Claim.ProgramIdentity, "CLAIM_PROGRAM_IDENTITY")
	overrideString(&cfg.Claim.InitialRoot, "CLAIM_INITIAL_ROOT")
	overrideString(&cfg.Claim.InitialReward, "CLAIM_INITIAL_REWARD")
	overrideString(&cfg.Claim.InitialTreasury, "CLAIM_INITIAL_TREASURY")
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
