package mteam

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ConfigPath string
	Profile    string
	ApiGinMode string
	LogLevel   string

	Ip             string
	Port           string
	MetricsPort    string
	RequestTimeout time.Duration

	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string

	// auth
	AuthMode     string
	JWTSecret    string `secret:"true"`
	TokenTTL     time.Duration
	AuthAddress  string
	Realm        string
	Audience     string
	ClientID     string
	ClientSecret string `secret:"true"`

	// database
	DBAddress      string
	DBUser         string
	DBPassword     string `secret:"true"`
	DBName         string
	DBSSLMode      string
	MigrateOnStart bool

	// rate limiting
	RedisAddr          string
	RedisPassword      string `secret:"true"`
	RedisDB            int
	RateLimitPerMinute int

	// payments
	PaymentCurrency string
	DefaultBalance  int64
}

// LoadConfig reads an optional .env file at path and then the environment.
func LoadConfig(path string) Config {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			log.Printf("Failed to load the config file at %s, using default ones...", path)
		}
	}

	s := strings.Split(path, "/")
	return Config{
		ConfigPath: s[len(s)-1],
		Profile:    getEnv("PROFILE", "baremetal"),
		ApiGinMode: getEnv("GIN_MODE", "debug"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		Ip:             getEnv("IP", "localhost"),
		Port:           getEnv("PORT", "5000"),
		MetricsPort:    getEnv("METRICS_PORT", ""),
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 10*time.Second),

		AllowedOrigins: getEnvFields("ALLOW_ORIGINS", []string{"*"}),
		AllowedMethods: getEnvFields("ALLOW_METHODS", []string{"GET", "POST", "OPTIONS"}),
		AllowedHeaders: getEnvFields("ALLOW_HEADERS", []string{"Origin", "Content-Type", "Authorization"}),

		AuthMode:     strings.ToLower(getEnv("AUTH_MODE", "local")),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		TokenTTL:     getDurationEnv("TOKEN_TTL", 7*24*time.Hour),
		AuthAddress:  getEnv("AUTH_ADDRESS", "localhost:8080"),
		Realm:        getEnv("KC_REALM", "teamup"),
		Audience:     getEnv("KC_AUDIENCE", "teamup-front"),
		ClientID:     getEnv("KC_CLIENT", "teamup-api"),
		ClientSecret: getEnv("KC_CLIENT_SECRET", ""),

		DBAddress:      getEnv("DB_ADDRESS", "localhost:5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "teamup"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		MigrateOnStart: getBoolEnv("MIGRATE_ON_START", "true"),

		RedisAddr:          getEnv("RATE_LIMIT_REDIS_ADDR", ""),
		RedisPassword:      getEnv("RATE_LIMIT_REDIS_PASSWORD", ""),
		RedisDB:            getIntEnv("RATE_LIMIT_REDIS_DB", 0),
		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 30),

		PaymentCurrency: getEnv("PAYMENT_CURRENCY", "INR"),
		DefaultBalance:  int64(getIntEnv("DEFAULT_BALANCE", 0)),
	}
}

func (cfg *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBAddress,
		cfg.DBName,
		cfg.DBSSLMode,
	)
}

func (cfg *Config) Addr() string {
	return fmt.Sprintf(":%s", cfg.Port)
}

func getEnv(env, fallback string) string {
	if value, exists := os.LookupEnv(env); exists {
		return value
	}

	return fallback
}

func getEnvFields(env string, fallback []string) []string {
	if value, exists := os.LookupEnv(env); exists {
		fields := strings.Split(strings.TrimSpace(value), ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		return fields
	}

	return fallback
}

func getBoolEnv(env, fallback string) bool {
	if value, exists := os.LookupEnv(env); exists {
		return strings.ToLower(value) == "true"
	}

	return strings.ToLower(fallback) == "true"
}

func getIntEnv(env string, fallback int) int {
	if value, exists := os.LookupEnv(env); exists {
		int_value, err := strconv.Atoi(value)
		if err == nil {
			return int_value
		}
	}

	return fallback
}

func getDurationEnv(env string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(env); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}

	return fallback
}

// String renders one line per field with secrets masked.
func (cfg *Config) String() string {
	var strBuilder strings.Builder

	reflectedValues := reflect.ValueOf(cfg).Elem()
	reflectedTypes := reflect.TypeOf(cfg).Elem()

	strBuilder.WriteString(fmt.Sprintf("[CFG]CONFIGURATION: %s\n", cfg.ConfigPath))

	for i := range reflectedValues.NumField() {
		field := reflectedTypes.Field(i)
		fieldValue := reflectedValues.Field(i).Interface()

		if field.Tag.Get("secret") == "true" {
			if s, _ := fieldValue.(string); s != "" {
				fieldValue = "****"
			}
		}

		strBuilder.WriteString(fmt.Sprintf("[CFG]%2d. %-20s -> %v\n", i+1, field.Name, fieldValue))
	}

	return strBuilder.String()
}
