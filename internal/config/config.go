package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is built once in main and handed to every component constructor.
type Config struct {
	Environment string
	RunLocal    bool
	AdminURL    string

	AWS         AWSConfig
	Tables      TablesConfig
	Queues      QueuesConfig
	Fulfillment FulfillmentConfig
	Storefront  StorefrontConfig
	Inventory   InventoryConfig
	Retry       RetryConfig
	Importer    ImporterConfig
	Idempotency IdempotencyConfig
	Logging     LoggingConfig
	Metrics     MetricsConfig
	Worker      WorkerConfig
	Scheduler   SchedulerConfig
}

type AWSConfig struct {
	Region           string
	EndpointOverride string
}

type TablesConfig struct {
	Orders         string `validate:"required"`
	InventoryItems string `validate:"required"`
	SyncSessions   string `validate:"required"`
	StoreLocations string `validate:"required"`
	OrderReturns   string `validate:"required"`
	Idempotency    string `validate:"required"`
}

type QueuesConfig struct {
	Notifications string `validate:"required"`
	Errors        string `validate:"required"`
	Commands      string `validate:"required"`
	Emails        string
}

type FulfillmentConfig struct {
	BaseURL                string `validate:"required,url"`
	TokenURL               string `validate:"required,url"`
	ClientID               string
	ClientSecret           string
	RefreshToken           string
	MerchantID             string
	MarketplaceID          string
	Timeout                time.Duration
	BreakerMaxFailures     uint32
	BreakerOpenTimeout     time.Duration
	DisableConfirmShipment bool
}

type StorefrontConfig struct {
	ShopDomain   string
	AccessToken  string
	APIVersion   string
	Timeout      time.Duration
	CreateOrders bool
}

type InventoryConfig struct {
	Buffer           int
	TestMode         bool
	TestSKUs         []string
	TestModeQuantity int
	SyncTimeout      time.Duration
}

type RetryConfig struct {
	MaxServerErrorRetries int
	UnavailableWindow     time.Duration
	ServerErrorDelay      time.Duration
	UnavailableDelay      time.Duration
}

type ImporterConfig struct {
	Lookback time.Duration
	PageSize int
}

type IdempotencyConfig struct {
	TTL time.Duration
}

type LoggingConfig struct {
	Level       string
	Development bool
}

type MetricsConfig struct {
	Namespace string
	Enabled   bool
}

type WorkerConfig struct {
	Role string `validate:"omitempty,oneof=notifications commands errors"`
}

type SchedulerConfig struct {
	Role string `validate:"omitempty,oneof=import-shipments inventory-sync"`
}

// IsProduction gates side effects that only run against the live backend.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Environment) {
	case "prod", "production":
		return true
	}
	return false
}

var defaultTestSKUs = []string{"1FMCBEC", "1CMBT7G", "1BSGBO", "1CFPRPWP", "1FMOMNM"}

// Load reads the process environment (and a .env file when present) into a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "dev"),
		RunLocal:    getEnvBool("RUN_LOCAL", false),
		AdminURL:    getEnv("ADMIN_URL", ""),
		AWS: AWSConfig{
			Region:           getEnv("AWS_REGION", "us-east-1"),
			EndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		},
		Tables: TablesConfig{
			Orders:         getEnv("ORDERS_TABLE", ""),
			InventoryItems: getEnv("INVENTORY_ITEMS_TABLE", ""),
			SyncSessions:   getEnv("SYNC_SESSIONS_TABLE", ""),
			StoreLocations: getEnv("STORE_LOCATIONS_TABLE", ""),
			OrderReturns:   getEnv("ORDER_RETURNS_TABLE", ""),
			Idempotency:    getEnv("IDEMPOTENCY_TABLE", ""),
		},
		Queues: QueuesConfig{
			Notifications: getEnv("NOTIFICATIONS_QUEUE_URL", ""),
			Errors:        getEnv("ERRORS_QUEUE_URL", ""),
			Commands:      getEnv("COMMANDS_QUEUE_URL", ""),
			Emails:        getEnv("EMAILS_QUEUE_URL", ""),
		},
		Fulfillment: FulfillmentConfig{
			BaseURL:                getEnv("FULFILLMENT_BASE_URL", "https://sellingpartnerapi-na.amazon.com"),
			TokenURL:               getEnv("FULFILLMENT_TOKEN_URL", "https://api.amazon.com/auth/o2/token"),
			ClientID:               getEnv("FULFILLMENT_CLIENT_ID", ""),
			ClientSecret:           getEnv("FULFILLMENT_CLIENT_SECRET", ""),
			RefreshToken:           getEnv("FULFILLMENT_REFRESH_TOKEN", ""),
			MerchantID:             getEnv("FULFILLMENT_MERCHANT_ID", ""),
			MarketplaceID:          getEnv("FULFILLMENT_MARKETPLACE_ID", "ATVPDKIKX0DER"),
			Timeout:                getEnvDuration("FULFILLMENT_TIMEOUT", 25*time.Second),
			BreakerMaxFailures:     uint32(getEnvInt("FULFILLMENT_BREAKER_MAX_FAILURES", 5)),
			BreakerOpenTimeout:     getEnvDuration("FULFILLMENT_BREAKER_OPEN_TIMEOUT", 30*time.Second),
			DisableConfirmShipment: getEnvBool("DISABLE_CONFIRM_SHIPMENT", false),
		},
		Storefront: StorefrontConfig{
			ShopDomain:   getEnv("STOREFRONT_SHOP_DOMAIN", ""),
			AccessToken:  getEnv("STOREFRONT_ACCESS_TOKEN", ""),
			APIVersion:   getEnv("STOREFRONT_API_VERSION", "2024-01"),
			Timeout:      getEnvDuration("STOREFRONT_TIMEOUT", 15*time.Second),
			CreateOrders: getEnvBool("STOREFRONT_CREATE_ORDERS", false),
		},
		Inventory: InventoryConfig{
			Buffer:           getEnvInt("INVENTORY_BUFFER", 10),
			TestMode:         strings.EqualFold(getEnv("TEST_MODE", "OFF"), "ON"),
			TestSKUs:         getEnvList("TEST_SKUS", defaultTestSKUs),
			TestModeQuantity: getEnvInt("TEST_MODE_QUANTITY", 20),
			SyncTimeout:      getEnvDuration("INVENTORY_SYNC_TIMEOUT", 590*time.Second),
		},
		Retry: RetryConfig{
			MaxServerErrorRetries: getEnvInt("RETRY_MAX_SERVER_ERRORS", 3),
			UnavailableWindow:     getEnvDuration("RETRY_UNAVAILABLE_WINDOW", 15*time.Minute),
			ServerErrorDelay:      getEnvDuration("RETRY_SERVER_ERROR_DELAY", 20*time.Second),
			UnavailableDelay:      getEnvDuration("RETRY_UNAVAILABLE_DELAY", 30*time.Second),
		},
		Importer: ImporterConfig{
			Lookback: getEnvDuration("IMPORT_LOOKBACK", 15*time.Minute),
			PageSize: getEnvInt("IMPORT_PAGE_SIZE", 10),
		},
		Idempotency: IdempotencyConfig{
			TTL: getEnvDuration("IDEMPOTENCY_TTL", 48*time.Hour),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvBool("LOG_DEVELOPMENT", false),
		},
		Metrics: MetricsConfig{
			Namespace: getEnv("METRICS_NAMESPACE", "OmnichannelFulfillment"),
			Enabled:   getEnvBool("METRICS_ENABLED", true),
		},
		Worker: WorkerConfig{
			Role: getEnv("WORKER_ROLE", ""),
		},
		Scheduler: SchedulerConfig{
			Role: getEnv("SCHEDULER_ROLE", ""),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func Validate(cfg *Config) error {
	if err := validatorv10.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
