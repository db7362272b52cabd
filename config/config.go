package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"teamhub/models"
)

var (
	DB        *gorm.DB
	AppConfig Config
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type Config struct {
	Environment    string   `json:"environment"`
	ServerPort     string   `json:"server_port"`
	SecretKey      string   `json:"-"`
	LogLevel       string   `json:"log_level"`
	SentryDSN      string   `json:"-"`
	AllowedOrigins []string `json:"allowed_origins"`

	DBDriver       string `json:"db_driver"`
	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	AccessTokenLifetime  time.Duration `json:"access_token_lifetime"`
	RefreshTokenLifetime time.Duration `json:"refresh_token_lifetime"`
	TokenCleanupInterval time.Duration `json:"token_cleanup_interval"`

	RateLimitAuth int         `json:"rate_limit_auth"`
	Redis         RedisConfig `json:"redis"`
}

// LoadEnv reads a dotenv file into the process environment. A missing
// default .env is not an error; an explicitly named file must exist.
func LoadEnv(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "8000"),
		SecretKey:      getEnv("SECRET_KEY", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SentryDSN:      getEnv("SENTRY_DSN", ""),
		AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		DBDriver:       getEnv("DB_DRIVER", "postgres"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "teamhub"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		AccessTokenLifetime:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_LIFETIME_MINUTES", 60)) * time.Minute,
		RefreshTokenLifetime: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_LIFETIME_DAYS", 7)) * 24 * time.Hour,
		TokenCleanupInterval: getEnvAsDuration("TOKEN_CLEANUP_INTERVAL", time.Hour),

		RateLimitAuth: getEnvAsInt("RATE_LIMIT_AUTH", 5),
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
	}

	if AppConfig.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	switch AppConfig.DBDriver {
	case "postgres":
		if AppConfig.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case "sqlite":
		if AppConfig.Environment == "production" {
			return fmt.Errorf("DB_DRIVER=sqlite is not allowed in production")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", AppConfig.DBDriver)
	}

	logConfig()
	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// ConnectDB opens the configured database, tunes the pool and migrates the
// schema.
func ConnectDB() error {
	db, err := Open(AppConfig)
	if err != nil {
		return err
	}
	DB = db

	log.Println("🔄 Starting database migration...")
	if err := Migrate(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

func Open(cfg Config) (*gorm.DB, error) {
	log.Println("Attempting to connect to database...")

	gormConfig := &gorm.Config{TranslateError: true}
	if cfg.IsProduction() {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	}

	var dialector gorm.Dialector
	if cfg.DBDriver == "sqlite" {
		log.Println("Using sqlite database:", cfg.DBName)
		dsn := cfg.DBName
		if strings.Contains(dsn, "?") {
			dsn += "&_foreign_keys=on"
		} else {
			dsn += "?_foreign_keys=on"
		}
		dialector = sqlite.Open(dsn)
	} else {
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode,
		)
		log.Println("Using connection string:", maskPassword(dsn))
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB instance: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(30 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	log.Println("✅ Successfully connected to the database")
	return db, nil
}

// Migrate creates or updates every table and index.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvAsList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	if AppConfig.DBDriver == "sqlite" {
		log.Printf("Database: sqlite %s", AppConfig.DBName)
	} else {
		log.Printf("Database: %s@%s:%s/%s",
			AppConfig.DBUser,
			AppConfig.DBHost,
			AppConfig.DBPort,
			AppConfig.DBName)
	}
	log.Printf("Token lifetimes: access=%s refresh=%s", AppConfig.AccessTokenLifetime, AppConfig.RefreshTokenLifetime)
	log.Printf("Redis rate limit storage: %t", AppConfig.Redis.Enabled)
}
