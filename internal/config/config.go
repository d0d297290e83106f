package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	RecordStoreBaseURL string
	RecordStoreAPIKey  string
	SubmissionsTable   string
	GradesTable        string
	RecordStoreTimeout time.Duration

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	RedisURL     string
	ListCacheTTL time.Duration

	JWTSecret string

	MaxInlineAttachmentChars int
	MaxDrawingChars          int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AttachmentHostConfigured reports whether the external attachment host can
// be used. Missing credentials downgrade attachments to inline-or-drop.
func (c Config) AttachmentHostConfigured() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TAREAS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Tareas API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("store.submissions_table", "submissions")
	v.SetDefault("store.grades_table", "grades")
	v.SetDefault("store.timeout", "15s")
	v.SetDefault("cloudinary.folder", "tareas/entregas")
	v.SetDefault("list_cache_ttl", "30s")
	v.SetDefault("max_inline_attachment_chars", 90000)
	v.SetDefault("max_drawing_chars", 100000)

	storeTimeout, err := time.ParseDuration(v.GetString("store.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid record store timeout: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("list_cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid list cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                  v.GetString("app.name"),
		AppEnv:                   v.GetString("app.env"),
		AppPort:                  v.GetString("app.port"),
		RecordStoreBaseURL:       v.GetString("store.base_url"),
		RecordStoreAPIKey:        v.GetString("store.api_key"),
		SubmissionsTable:         v.GetString("store.submissions_table"),
		GradesTable:              v.GetString("store.grades_table"),
		RecordStoreTimeout:       storeTimeout,
		CloudinaryCloudName:      v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:         v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:      v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder:   v.GetString("cloudinary.folder"),
		RedisURL:                 v.GetString("redis.url"),
		ListCacheTTL:             cacheTTL,
		JWTSecret:                v.GetString("jwt.secret"),
		MaxInlineAttachmentChars: v.GetInt("max_inline_attachment_chars"),
		MaxDrawingChars:          v.GetInt("max_drawing_chars"),
	}

	if cfg.RecordStoreBaseURL == "" || cfg.RecordStoreAPIKey == "" {
		return Config{}, fmt.Errorf("record store base url and api key must be provided")
	}

	if cfg.MaxInlineAttachmentChars <= 0 {
		cfg.MaxInlineAttachmentChars = 90000
	}

	if cfg.MaxDrawingChars <= 0 {
		cfg.MaxDrawingChars = 100000
	}

	return cfg, nil
}
