package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/livingpark/ppmi/internal/domain/cohort"
	"github.com/livingpark/ppmi/internal/domain/study"
)

type Config struct {
	Env             string   `mapstructure:"ENV"`
	LogLevel        string   `mapstructure:"LOG_LEVEL"`
	Port            string   `mapstructure:"PORT"`
	StudyDir        string   `mapstructure:"STUDY_DIR"`
	CacheDir        string   `mapstructure:"CACHE_DIR"`
	BaseDir         string   `mapstructure:"BASE_DIR"`
	DuplicatePolicy string   `mapstructure:"DUPLICATE_POLICY"`
	CohortIDMode    string   `mapstructure:"COHORT_ID_MODE"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	DatabaseURL     string   `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32    `mapstructure:"DB_MIN_CONNS"`
	DBSchema        string   `mapstructure:"DB_SCHEMA"`
	S3Endpoint      string   `mapstructure:"S3_ENDPOINT"`
	S3Region        string   `mapstructure:"S3_REGION"`
	S3Bucket        string   `mapstructure:"S3_BUCKET"`
	S3Prefix        string   `mapstructure:"S3_PREFIX"`
	S3AccessKey     string   `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey     string   `mapstructure:"S3_SECRET_KEY"`
	S3UseSSL        bool     `mapstructure:"S3_USE_SSL"`
}

var keys = []string{
	"ENV", "LOG_LEVEL", "PORT",
	"STUDY_DIR", "CACHE_DIR", "BASE_DIR",
	"DUPLICATE_POLICY", "COHORT_ID_MODE", "CORS_ORIGINS",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA",
	"S3_ENDPOINT", "S3_REGION", "S3_BUCKET", "S3_PREFIX",
	"S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_USE_SSL",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8000")
	v.SetDefault("STUDY_DIR", "inputs/study_files")
	v.SetDefault("CACHE_DIR", ".cache")
	v.SetDefault("BASE_DIR", "inputs")
	v.SetDefault("DUPLICATE_POLICY", string(study.KeepLast))
	v.SetDefault("COHORT_ID_MODE", string(cohort.ModeHash))
	v.SetDefault("CORS_ORIGINS", "http://localhost:8888")
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 0)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("S3_USE_SSL", true)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// HasDatabase reports whether study tables are read from Postgres instead of
// CSV files.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// HasObjectStore reports whether missing study files can be downloaded.
func (c *Config) HasObjectStore() bool {
	return c.S3Endpoint != "" || c.S3Bucket != ""
}

// Validate checks value formats and cross-field requirements.
func (c *Config) Validate() error {
	if c.StudyDir == "" && !c.HasDatabase() {
		return fmt.Errorf("STUDY_DIR is required unless DATABASE_URL is set")
	}
	if _, err := study.ParseConflictPolicy(c.DuplicatePolicy); err != nil {
		return fmt.Errorf("DUPLICATE_POLICY: %w", err)
	}
	if _, err := cohort.Generator(cohort.Mode(c.CohortIDMode)); err != nil {
		return fmt.Errorf("COHORT_ID_MODE: %w", err)
	}
	if c.HasObjectStore() {
		if c.S3Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT is required when S3_BUCKET is set")
		}
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when S3_ENDPOINT is set")
		}
	}
	if c.HasDatabase() && c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
