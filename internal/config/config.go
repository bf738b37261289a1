package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-name-registry/internal/domain"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// RateLimitConfig holds the per-caller limit applied to mutating routes
type RateLimitConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	RedisURL            string        `mapstructure:"redis_url"`
	RedisKeyPrefix      string        `mapstructure:"redis_key_prefix"`
	RequestsPerMinute   int           `mapstructure:"requests_per_minute"`
	Burst               int           `mapstructure:"burst"`
	EnableLocalFallback bool          `mapstructure:"enable_local_fallback"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
}

// SeedingConfig controls the seeding phase of a fresh registry
type SeedingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// RegistryConfig holds the registry accounts and economics. Amounts are decimal
// or 0x-prefixed hex strings.
type RegistryConfig struct {
	Owner    string `mapstructure:"owner"`
	Treasury string `mapstructure:"treasury"`
	Escrow   string `mapstructure:"escrow"`

	BaseRentalPrice     string            `mapstructure:"base_rental_price"`
	PriceMultiplier     uint64            `mapstructure:"price_multiplier"`
	RentalPeriod        time.Duration     `mapstructure:"rental_period"`
	URLUpdatePrice      string            `mapstructure:"url_update_price"`
	ReactionPrices      map[string]string `mapstructure:"reaction_prices"`
	RevealPrices        map[string]string `mapstructure:"reveal_prices"`
	ContactUpdatePrices map[string]string `mapstructure:"contact_update_prices"`
	RebateBps           uint64            `mapstructure:"rebate_bps"`
	HolderShareBps      uint64            `mapstructure:"holder_share_bps"`

	Seeding           SeedingConfig `mapstructure:"seeding"`
	ReservedNamesPath string        `mapstructure:"reserved_names_path"`

	// LockWait bounds how long a request waits for the operation in flight
	LockWait time.Duration `mapstructure:"lock_wait"`
}

// VanityConfig holds the vanity URL collaborator webhook
type VanityConfig struct {
	WebhookURL    string        `mapstructure:"webhook_url"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
}

// OutboxRelayConfig holds configuration for the outbox relay loop
type OutboxRelayConfig struct {
	BatchSize    int           `mapstructure:"batch_size"`
	PoolSize     int           `mapstructure:"pool_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`

	// MetricsAddress serves /metrics; empty disables it
	MetricsAddress string `mapstructure:"metrics_address"`
}

// APIConfig holds configuration for API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig    `mapstructure:"server"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Auth       AuthConfig      `mapstructure:"auth"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Registry   RegistryConfig  `mapstructure:"registry"`
}

// RelayConfig holds configuration for the outbox relay program
type RelayConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig    `mapstructure:"database"`
	NATS       NATSConfig        `mapstructure:"nats"`
	Vanity     VanityConfig      `mapstructure:"vanity"`
	Relay      OutboxRelayConfig `mapstructure:"relay"`
}

// LoadAPIConfig loads configuration for API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.redis_url", "redis://localhost:6379/0")
	v.SetDefault("rate_limit.redis_key_prefix", "ff:registry:limiter:")
	v.SetDefault("rate_limit.requests_per_minute", 60)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("rate_limit.enable_local_fallback", true)
	v.SetDefault("rate_limit.health_check_interval", "10s")
	v.SetDefault("registry.base_rental_price", "1000000000000000")
	v.SetDefault("registry.price_multiplier", 2)
	v.SetDefault("registry.rental_period", "720h")
	v.SetDefault("registry.url_update_price", "0")
	v.SetDefault("registry.rebate_bps", domain.DEFAULT_REBATE_BPS)
	v.SetDefault("registry.holder_share_bps", domain.DEFAULT_HOLDER_SHARE_BPS)
	v.SetDefault("registry.seeding.enabled", false)
	v.SetDefault("registry.lock_wait", "5s")

	if err := v.ReadInConfig(); err != nil {
		var error viper.ConfigFileNotFoundError
		if errors.As(err, &error) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// LoadRelayConfig loads configuration for the outbox relay program
func LoadRelayConfig(configFile string, envPath string) (*RelayConfig, error) {
	v := configureViper("relay", configFile, envPath)

	// Set defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "NAME_REGISTRY_EVENTS")
	v.SetDefault("nats.subject_prefix", "names")
	v.SetDefault("nats.connection_name", "ff-name-registry-relay")
	v.SetDefault("vanity.http_timeout", "10s")
	v.SetDefault("relay.batch_size", 100)
	v.SetDefault("relay.pool_size", 8)
	v.SetDefault("relay.poll_interval", "2s")
	v.SetDefault("relay.max_attempts", 10)
	v.SetDefault("relay.metrics_address", ":9102")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg RelayConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if cfg.Database.Host == "" {
		return nil, errors.New("database.host is required")
	}
	if cfg.Database.DBName == "" {
		return nil, errors.New("database.dbname is required")
	}
	if cfg.NATS.URL == "" {
		return nil, errors.New("nats.url is required")
	}

	return &cfg, nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/relay/, cmd/api/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("FF_NAME_REGISTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	commonKeys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.subject_prefix",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// Rate limit
		"rate_limit.enabled",
		"rate_limit.redis_url",
		"rate_limit.redis_key_prefix",
		"rate_limit.requests_per_minute",
		"rate_limit.burst",
		"rate_limit.enable_local_fallback",
		"rate_limit.health_check_interval",
		// Registry
		"registry.owner",
		"registry.treasury",
		"registry.escrow",
		"registry.base_rental_price",
		"registry.price_multiplier",
		"registry.rental_period",
		"registry.url_update_price",
		"registry.rebate_bps",
		"registry.holder_share_bps",
		"registry.seeding.enabled",
		"registry.reserved_names_path",
		"registry.lock_wait",
		// Vanity collaborator
		"vanity.webhook_url",
		"vanity.webhook_secret",
		"vanity.http_timeout",
		// Relay
		"relay.batch_size",
		"relay.pool_size",
		"relay.poll_interval",
		"relay.max_attempts",
	}

	for _, key := range commonKeys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Addresses parses the owner, treasury and escrow accounts
func (c *RegistryConfig) Addresses() (owner, treasury, escrow common.Address, err error) {
	parse := func(key, value string, required bool) (common.Address, error) {
		if value == "" && !required {
			return common.Address{}, nil
		}
		if !common.IsHexAddress(value) {
			return common.Address{}, fmt.Errorf("registry.%s: invalid address %q", key, value)
		}
		return common.HexToAddress(value), nil
	}

	if owner, err = parse("owner", c.Owner, true); err != nil {
		return
	}
	if treasury, err = parse("treasury", c.Treasury, false); err != nil {
		return
	}
	escrow, err = parse("escrow", c.Escrow, true)
	return
}

// ToEconomics parses the configured prices. Every reaction and field needs a price.
func (c *RegistryConfig) ToEconomics() (domain.Economics, error) {
	base, err := parseAmount("base_rental_price", c.BaseRentalPrice)
	if err != nil {
		return domain.Economics{}, err
	}
	urlPrice, err := parseAmount("url_update_price", c.URLUpdatePrice)
	if err != nil {
		return domain.Economics{}, err
	}

	econ := domain.Economics{
		BaseRentalPrice:     base,
		PriceMultiplier:     c.PriceMultiplier,
		RentalPeriod:        c.RentalPeriod,
		URLUpdatePrice:      urlPrice,
		ReactionPrices:      make(map[domain.Reaction]*big.Int, len(domain.Reactions)),
		RevealPrices:        make(map[domain.Field]*big.Int, len(domain.Fields)),
		ContactUpdatePrices: make(map[domain.Field]*big.Int, len(domain.Fields)),
		RebateBps:           c.RebateBps,
		HolderShareBps:      c.HolderShareBps,
	}

	for key, value := range c.ReactionPrices {
		r, err := domain.ParseReaction(key)
		if err != nil {
			return domain.Economics{}, fmt.Errorf("registry.reaction_prices: %w", err)
		}
		if econ.ReactionPrices[r], err = parseAmount("reaction_prices."+key, value); err != nil {
			return domain.Economics{}, err
		}
	}
	for key, value := range c.RevealPrices {
		f, err := domain.ParseField(key)
		if err != nil {
			return domain.Economics{}, fmt.Errorf("registry.reveal_prices: %w", err)
		}
		if econ.RevealPrices[f], err = parseAmount("reveal_prices."+key, value); err != nil {
			return domain.Economics{}, err
		}
	}
	for key, value := range c.ContactUpdatePrices {
		f, err := domain.ParseField(key)
		if err != nil {
			return domain.Economics{}, fmt.Errorf("registry.contact_update_prices: %w", err)
		}
		if econ.ContactUpdatePrices[f], err = parseAmount("contact_update_prices."+key, value); err != nil {
			return domain.Economics{}, err
		}
	}

	econ = econ.Normalize()
	if err := econ.Validate(); err != nil {
		return domain.Economics{}, fmt.Errorf("registry: %w", err)
	}
	return econ, nil
}

func parseAmount(key, value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	amount, ok := math.ParseBig256(value)
	if !ok {
		return nil, fmt.Errorf("registry.%s: invalid amount %q", key, value)
	}
	return amount, nil
}
