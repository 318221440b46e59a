package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/unclebandit/partnerconnex-backend/internal/logger"
)

type Config struct {
	App      App      `mapstructure:"app"`
	Database Database `mapstructure:"database"`
	Redis    Redis    `mapstructure:"redis"`
	AMQP     AMQP     `mapstructure:"amqp"`
	Wizard   Wizard   `mapstructure:"wizard"`
	Storage  Storage  `mapstructure:"storage"`
	Upload   Upload   `mapstructure:"upload"`
	Metrics  Metrics  `mapstructure:"metrics"`
	Mail     Mail     `mapstructure:"mail"`
}

type App struct {
	Port           int      `mapstructure:"port"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogLevel       string   `mapstructure:"log_level"`
}

type Database struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the lib/pq connection URL.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

func (d Database) Enabled() bool { return d.Host != "" }

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AMQP struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

type Wizard struct {
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	RequireNDAView bool          `mapstructure:"require_nda_view"`
}

type Storage struct {
	Bucket       string        `mapstructure:"bucket"`
	Folder       string        `mapstructure:"folder"`
	SignedURLTTL time.Duration `mapstructure:"signed_url_ttl"`
	Enabled      bool          `mapstructure:"enabled"`
}

type Upload struct {
	MaxSizeMB    int      `mapstructure:"max_size_mb"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

type Metrics struct {
	YouTubeAPIKey        string        `mapstructure:"youtube_api_key"`
	InstagramAccessToken string        `mapstructure:"instagram_access_token"`
	InstagramBusinessID  string        `mapstructure:"instagram_business_id"`
	TikTokAccessToken    string        `mapstructure:"tiktok_access_token"`
	Timeout              time.Duration `mapstructure:"timeout"`
}

type Mail struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// legacyEnv maps config keys to the plain variable names used by existing deployments.
var legacyEnv = map[string]string{
	"app.port":          "PORT",
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"database.name":     "DB_NAME",
	"redis.addr":        "REDIS_ADDR",
	"amqp.url":          "AMQP_URL",
	"storage.bucket":    "GCS_BUCKET",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.allowed_origins", []string{"*"})
	v.SetDefault("app.log_level", "debug")

	v.SetDefault("database.host", "")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "partnerconnex")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.queue", "submission_events")

	v.SetDefault("wizard.session_ttl", 2*time.Hour)
	v.SetDefault("wizard.require_nda_view", true)

	v.SetDefault("storage.bucket", "attachments")
	v.SetDefault("storage.folder", "submissions")
	v.SetDefault("storage.signed_url_ttl", 365*24*time.Hour)
	v.SetDefault("storage.enabled", false)

	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("upload.allowed_types", []string{"image/*", "application/pdf", "video/*"})

	v.SetDefault("metrics.youtube_api_key", "")
	v.SetDefault("metrics.instagram_access_token", "")
	v.SetDefault("metrics.instagram_business_id", "")
	v.SetDefault("metrics.tiktok_access_token", "")
	v.SetDefault("metrics.timeout", 10*time.Second)

	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@partnerconnex.local")
}

// Load reads .env, an optional config file (config.json or config-$ENV.json)
// and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.GetLogger().Debug("No .env file found, relying on OS environment variables")
	}
	return LoadFrom(viper.New())
}

func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName(configName())
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("../")
	v.AddConfigPath("../../")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		upper := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, upper, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logger.GetLogger().Debug("Config file not found, using defaults and environment")
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if c.Upload.MaxSizeMB <= 0 {
		return nil, fmt.Errorf("upload.max_size_mb must be positive, got %d", c.Upload.MaxSizeMB)
	}
	return &c, nil
}

func configName() string {
	name := "config"
	if env := os.Getenv("ENV"); env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}
