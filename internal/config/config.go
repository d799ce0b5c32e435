package config

import (
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config структура конфигурации
type Config struct {
	AppEnv          string        `env:"APP_ENV" env-default:"production"`
	HTTPPort        string        `env:"HTTP_PORT" env-default:"8080"`
	WSPort          string        `env:"WS_PORT" env-default:"8081"`
	JWTSecret       string        `env:"JWT_SECRET" env-required:"true"`
	Storage         string        `env:"STORAGE" env-default:"postgres"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" env-default:"5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"15s"`

	DatabaseURL    string `env:"DATABASE_URL"`
	DatabaseConfig DatabaseConfig
	Redis          RedisConfig
	NATS           NATSConfig
	Logger         LoggerConfig
	Cloudinary     CloudinaryConfig
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host     string `env:"PGHOST" env-default:"localhost"`
	Port     string `env:"PGPORT" env-default:"5432"`
	User     string `env:"PGUSER" env-default:"carswipe_user"`
	Password string `env:"PGPASSWORD" env-default:"carswipe_pass"`
	Name     string `env:"PGDATABASE" env-default:"carswipe"`
	SSLMode  string `env:"PGSSLMODE" env-default:"disable"`
	MaxConns int32  `env:"PG_MAX_CONNS" env-default:"10"`
	MinConns int32  `env:"PG_MIN_CONNS" env-default:"2"`
}

// RedisConfig кэш объявлений, пустой адрес отключает кэш
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	PostTTL  time.Duration `env:"POST_CACHE_TTL" env-default:"10m"`
}

// NATSConfig ретрансляция сообщений между инстансами, пустой URL отключает её
type NATSConfig struct {
	URL           string `env:"NATS_URL"`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX" env-default:"carswipe.chat"`
}

type LoggerConfig struct {
	Level      string `env:"LOG_LEVEL" env-default:"info"`
	Encoding   string `env:"LOG_ENCODING" env-default:"json"`
	TimeFormat string `env:"LOG_TIME_FORMAT" env-default:"2006-01-02T15:04:05.000Z07:00"`
}

// CloudinaryConfig содержит конфигурацию для Cloudinary
type CloudinaryConfig struct {
	CloudName    string `env:"CLOUDINARY_CLOUD_NAME"`
	APIKey       string `env:"CLOUDINARY_API_KEY"`
	APISecret    string `env:"CLOUDINARY_API_SECRET"`
	UploadPreset string `env:"CLOUDINARY_UPLOAD_PRESET" env-default:"carswipe"`
	UploadFolder string `env:"CLOUDINARY_UPLOAD_FOLDER" env-default:"posts"`
}

// LoadConfig загружает переменные из .env и окружения
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env файл не найден, используем переменные окружения")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}

	if cfg.Storage != "postgres" && cfg.Storage != "memory" {
		return nil, fmt.Errorf("неизвестный тип хранилища %q", cfg.Storage)
	}

	if cfg.DatabaseURL == "" {
		db := cfg.DatabaseConfig
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			db.User, db.Password, db.Host, db.Port, db.Name, db.SSLMode)
	}

	return &cfg, nil
}

// IsDevelopment возвращает true для локального окружения
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "local"
}
