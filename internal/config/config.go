// Package config загружает конфигурацию приложения.
//
// Источники по возрастанию приоритета: значения по умолчанию, YAML-файл из CONFIG_FILE,
// переменные окружения (в том числе из необязательного .env).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"shapeshift3d/internal/logger"
)

// DefaultSessionSecret - секрет по умолчанию. В продакшене его нужно переопределить.
const DefaultSessionSecret = "fallback-secret-change-in-production"

// Драйверы хранилища и хранилища сессий.
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"

	SessionStoreCookie = "cookie"
	SessionStoreMemory = "memory"
)

// Config - конфигурация приложения.
type Config struct {
	ListenPort string
	GinMode    string

	SessionSecret string
	SessionStore  string // cookie | memory
	SessionMaxAge int    // секунды
	CookieSecure  bool

	StorageDriver string // json | sqlite
	DataPath      string // папка JSON-коллекций
	DBPath        string // файл SQLite

	UploadPath        string
	AllowedExtensions []string
	MaxUploadSize     int64 // байты, лимит на весь запрос

	BcryptCost int

	RedisAddr       string // пусто - ограничение частоты входа выключено
	RedisPassword   string
	RedisDB         int
	LoginRateLimit  int
	LoginRateWindow time.Duration

	LogLevel  string
	LogPretty bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_port", "8080")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("session_secret", DefaultSessionSecret)
	v.SetDefault("session_store", SessionStoreCookie)
	v.SetDefault("session_max_age", 86400*7)
	v.SetDefault("cookie_secure", false)
	v.SetDefault("storage_driver", StorageJSON)
	v.SetDefault("data_path", "data")
	v.SetDefault("db_path", "data/shapeshift.db")
	v.SetDefault("upload_path", "uploads")
	v.SetDefault("allowed_extensions", "png,jpg,jpeg,gif,webp")
	v.SetDefault("max_upload_size", 16<<20)
	v.SetDefault("bcrypt_cost", 10)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("login_rate_limit", 10)
	v.SetDefault("login_rate_window", time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
}

// Load читает конфигурацию. .env и CONFIG_FILE необязательны.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации %s: %w", path, err)
		}
	}

	cfg := &Config{
		ListenPort:        v.GetString("listen_port"),
		GinMode:           v.GetString("gin_mode"),
		SessionSecret:     v.GetString("session_secret"),
		SessionStore:      strings.ToLower(v.GetString("session_store")),
		SessionMaxAge:     v.GetInt("session_max_age"),
		CookieSecure:      v.GetBool("cookie_secure"),
		StorageDriver:     strings.ToLower(v.GetString("storage_driver")),
		DataPath:          v.GetString("data_path"),
		DBPath:            v.GetString("db_path"),
		UploadPath:        v.GetString("upload_path"),
		AllowedExtensions: stringList(v.Get("allowed_extensions")),
		MaxUploadSize:     v.GetInt64("max_upload_size"),
		BcryptCost:        v.GetInt("bcrypt_cost"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisPassword:     v.GetString("redis_password"),
		RedisDB:           v.GetInt("redis_db"),
		LoginRateLimit:    v.GetInt("login_rate_limit"),
		LoginRateWindow:   v.GetDuration("login_rate_window"),
		LogLevel:          v.GetString("log_level"),
		LogPretty:         v.GetBool("log_pretty"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == DefaultSessionSecret {
		logger.L.Warn().Msg("SESSION_SECRET не установлен, используется значение по умолчанию")
	}
	return cfg, nil
}

// Validate проверяет согласованность значений.
func (c *Config) Validate() error {
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("неизвестный GIN_MODE: %q", c.GinMode)
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET не может быть пустым")
	}
	if c.SessionStore != SessionStoreCookie && c.SessionStore != SessionStoreMemory {
		return fmt.Errorf("неизвестный SESSION_STORE: %q", c.SessionStore)
	}
	if c.StorageDriver != StorageJSON && c.StorageDriver != StorageSQLite {
		return fmt.Errorf("неизвестный STORAGE_DRIVER: %q", c.StorageDriver)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE должен быть положительным, получено %d", c.MaxUploadSize)
	}
	if len(c.AllowedExtensions) == 0 {
		return errors.New("ALLOWED_EXTENSIONS не может быть пустым")
	}
	if c.UploadPath == "" {
		return errors.New("UPLOAD_PATH не может быть пустым")
	}
	return nil
}

// stringList принимает строку через запятую (из окружения) или список (из YAML).
func stringList(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []any:
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(p), "."))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
