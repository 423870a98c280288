package config

import (
	"fmt"
	"log"
	"mailscout/models"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

// ProbeConfig holds the knobs for the verification engine.
type ProbeConfig struct {
	Timeout     time.Duration `json:"timeout"`
	Port        string        `json:"port"`
	HelloDomain string        `json:"hello_domain"`
	FromAddress string        `json:"from_address"`
	Concurrency int           `json:"concurrency"`

	// Heuristic weights for anti-enumeration server behaviour.
	DisconnectedScore   float64 `json:"disconnected_score"`
	ProbeErrorScore     float64 `json:"probe_error_score"`
	DefensiveAsPositive bool    `json:"defensive_as_positive"`
}

type SMTPConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"-"`
	FromEmail string `json:"from_email"`
}

type Config struct {
	Environment       string      `json:"environment"`
	ServerPort        string      `json:"server_port"`
	DBHost            string      `json:"db_host"`
	DBPort            string      `json:"db_port"`
	DBUser            string      `json:"db_user"`
	DBPassword        string      `json:"-"`
	DBName            string      `json:"db_name"`
	DBSSLMode         string      `json:"db_ssl_mode"`
	DBMaxIdleConns    int         `json:"db_max_idle_conns"`
	DBMaxOpenConns    int         `json:"db_max_open_conns"`
	Redis             RedisConfig `json:"redis"`
	Probe             ProbeConfig `json:"probe"`
	SMTP              SMTPConfig  `json:"smtp"`
	RateLimitDiscover int         `json:"rate_limit_discover"`
	MinSaveConfidence float64     `json:"min_save_confidence"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "mailscout"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Probe: ProbeConfig{
			Timeout:             time.Duration(getEnvAsInt("PROBE_TIMEOUT_SECONDS", 10)) * time.Second,
			Port:                getEnv("PROBE_PORT", "25"),
			HelloDomain:         getEnv("PROBE_HELLO_DOMAIN", "verify.mailscout.local"),
			FromAddress:         getEnv("PROBE_FROM_ADDRESS", "verify@mailscout.local"),
			Concurrency:         getEnvAsInt("PROBE_CONCURRENCY", 4),
			DisconnectedScore:   getEnvAsFloat("PROBE_DISCONNECTED_SCORE", 0.3),
			ProbeErrorScore:     getEnvAsFloat("PROBE_ERROR_SCORE", 0.2),
			DefensiveAsPositive: getEnv("PROBE_DEFENSIVE_AS_POSITIVE", "true") == "true",
		},
		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      getEnvAsInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromEmail: getEnv("FROM_EMAIL", "noreply@mailscout.local"),
		},
		RateLimitDiscover: getEnvAsInt("RATE_LIMIT_DISCOVER", 30),
		MinSaveConfidence: getEnvAsFloat("MIN_SAVE_CONFIDENCE", 0.7),
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.Probe.Timeout <= 0 {
		return fmt.Errorf("PROBE_TIMEOUT_SECONDS must be positive")
	}
	if AppConfig.MinSaveConfidence < 0 || AppConfig.MinSaveConfidence > 1 {
		return fmt.Errorf("MIN_SAVE_CONFIDENCE must be in [0,1]")
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("✅ Successfully connected to the database")
	log.Println("🔄 Starting database migration...")
	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return fallback
	}
	return value
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
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Probe: port %s, timeout %s, fan-out %d",
		AppConfig.Probe.Port,
		AppConfig.Probe.Timeout,
		AppConfig.Probe.Concurrency)
	log.Printf("Notifications enabled: %t", AppConfig.SMTP.Host != "")
}

func migrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.DiscoveryJob{},
		&models.DiscoveryTarget{},
		&models.Contact{},
	)
}
