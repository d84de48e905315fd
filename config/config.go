package config

import (
	"fmt"
	"strings"
	"time"

	"food-marketplace-api/models"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

type Config struct {
	ServerPort          string        `mapstructure:"SERVER_PORT"`
	GinMode             string        `mapstructure:"GIN_MODE"`
	DBDriver            string        `mapstructure:"DB_DRIVER"`
	DBDSN               string        `mapstructure:"DB_DSN"`
	JWTSecret           string        `mapstructure:"JWT_SECRET"`
	JWTTTL              time.Duration `mapstructure:"JWT_TTL"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	LogPretty           bool          `mapstructure:"LOG_PRETTY"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	TaxRate             float64       `mapstructure:"TAX_RATE"`
	DeliveryFee         float64       `mapstructure:"DELIVERY_FEE"`
	StrictTransitions   bool          `mapstructure:"STRICT_TRANSITIONS"`
	AggregateMaxRetries int           `mapstructure:"AGGREGATE_MAX_RETRIES"`
	RedisAddr           string        `mapstructure:"REDIS_ADDR"`
	RedisPassword       string        `mapstructure:"REDIS_PASSWORD"`
	MenuCacheTTL        time.Duration `mapstructure:"MENU_CACHE_TTL"`
	KafkaBrokers        []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic          string        `mapstructure:"KAFKA_TOPIC"`
}

var defaults = map[string]any{
	"SERVER_PORT":           "8080",
	"GIN_MODE":              "debug",
	"DB_DRIVER":             "sqlite",
	"DB_DSN":                "food_delivery.db",
	"JWT_SECRET":            "food_delivery_super_secret_2024",
	"JWT_TTL":               "24h",
	"LOG_LEVEL":             "info",
	"LOG_PRETTY":            false,
	"CORS_ORIGINS":          "*",
	"TAX_RATE":              0.05,
	"DELIVERY_FEE":          40.0,
	"STRICT_TRANSITIONS":    false,
	"AGGREGATE_MAX_RETRIES": 5,
	"REDIS_ADDR":            "",
	"REDIS_PASSWORD":        "",
	"MENU_CACHE_TTL":        "5m",
	"KAFKA_BROKERS":         "",
	"KAFKA_TOPIC":           "order-events",
}

// Load reads .env files (if any) into the environment, then the environment into a Config.
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is fine: the process environment and defaults still apply
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)

	if cfg.TaxRate < 0 || cfg.TaxRate > 1 {
		return nil, fmt.Errorf("TAX_RATE must be between 0 and 1, got %v", cfg.TaxRate)
	}
	if cfg.DeliveryFee < 0 {
		return nil, fmt.Errorf("DELIVERY_FEE must not be negative, got %v", cfg.DeliveryFee)
	}
	return cfg, nil
}

// splitList flattens comma separated entries and drops blanks.
func splitList(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// OpenDB connects to the configured driver. Only sqlite and postgres are supported.
func OpenDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDSN)
	case "postgres":
		dialector = postgres.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

// Migrate creates or updates every table. Restaurants precede menus because menus
// carry the restaurant foreign key.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.Menu{},
		&models.MenuItem{},
		&models.SpecialOffer{},
		&models.DeliveryPartner{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.Review{},
		&models.RestaurantMonthlyStat{},
	)
}

// InitDB opens and migrates the database and stores it in DB.
func InitDB(cfg *Config) error {
	db, err := OpenDB(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	DB = db
	return nil
}
