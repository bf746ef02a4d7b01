package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Learning LearningConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	PoolSize      int
	MinIdleConns  int
	OpTimeout     time.Duration
	SnapshotTTL   time.Duration
}

// LearningConfig controls the decision engine and experiment harness.
type LearningConfig struct {
	// HarnessEnabled is the process-wide gate. Off means every decision
	// returns the first candidate.
	HarnessEnabled   bool
	ShadowEnabled    bool
	ShadowTimeout    time.Duration
	SnapshotInterval time.Duration
	PoliciesFile     string
	Seed             uint64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	redisPoolSize, err := getEnvInt("REDIS_POOL_SIZE", 10)
	if err != nil || redisPoolSize < 1 {
		return nil, fmt.Errorf("invalid REDIS_POOL_SIZE: %q", os.Getenv("REDIS_POOL_SIZE"))
	}
	redisMinIdle, err := getEnvInt("REDIS_MIN_IDLE_CONNS", 5)
	if err != nil || redisMinIdle < 0 {
		return nil, fmt.Errorf("invalid REDIS_MIN_IDLE_CONNS: %q", os.Getenv("REDIS_MIN_IDLE_CONNS"))
	}
	redisOpTimeout, err := getEnvDuration("REDIS_OP_TIMEOUT", 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_OP_TIMEOUT: %w", err)
	}

	harnessEnabled, err := getEnvBool("LEARNING_HARNESS_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("invalid LEARNING_HARNESS_ENABLED: %w", err)
	}
	shadowEnabled, err := getEnvBool("LEARNING_SHADOW_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("invalid LEARNING_SHADOW_ENABLED: %w", err)
	}
	shadowTimeout, err := getEnvDuration("LEARNING_SHADOW_TIMEOUT", 20*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid LEARNING_SHADOW_TIMEOUT: %w", err)
	}
	snapshotInterval, err := getEnvDuration("LEARNING_SNAPSHOT_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid LEARNING_SNAPSHOT_INTERVAL: %w", err)
	}
	snapshotTTL, err := getEnvDuration("REDIS_SNAPSHOT_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_SNAPSHOT_TTL: %w", err)
	}

	seed := uint64(time.Now().UnixNano())
	if raw := os.Getenv("LEARNING_SEED"); raw != "" {
		seed, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid LEARNING_SEED: %w", err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Adaptive Router"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: []string{getEnv("CORS_ORIGIN", "http://localhost:3000")},
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "adaptive_router"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			PoolSize:      redisPoolSize,
			MinIdleConns:  redisMinIdle,
			OpTimeout:     redisOpTimeout,
			SnapshotTTL:   snapshotTTL,
		},
		Learning: LearningConfig{
			HarnessEnabled:   harnessEnabled,
			ShadowEnabled:    shadowEnabled,
			ShadowTimeout:    shadowTimeout,
			SnapshotInterval: snapshotInterval,
			PoliciesFile:     getEnv("LEARNING_POLICIES_FILE", "policies.yaml"),
			Seed:             seed,
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(val)
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(val)
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(val)
}
