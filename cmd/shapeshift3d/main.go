package main

import (
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"shapeshift3d/internal/config"
	"shapeshift3d/internal/database"
	"shapeshift3d/internal/logger"
	"shapeshift3d/internal/metrics"
	"shapeshift3d/internal/server"
	"shapeshift3d/internal/storage"
)

// checkOrCreateDir проверяет, что путь - директория, и создает ее при отсутствии.
// Любая ошибка на старте фатальна.
func checkOrCreateDir(dirPath string) {
	if dirPath == "" {
		logger.L.Fatal().Msg("путь к директории не может быть пустым")
	}
	if dirPath == "/" {
		logger.L.Fatal().Str("path", dirPath).Msg("небезопасный путь для директории")
	}

	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		logger.L.Info().Str("path", dirPath).Msg("папка не найдена, создаем")
		if err := os.MkdirAll(dirPath, 0o755); err != nil {
			logger.L.Fatal().Err(err).Str("path", dirPath).Msg("не удалось создать папку")
		}
		return
	}
	if err != nil {
		logger.L.Fatal().Err(err).Str("path", dirPath).Msg("ошибка при проверке папки")
	}
	if !info.IsDir() {
		logger.L.Fatal().Str("path", dirPath).Msg("путь существует, но не является директорией")
	}
}

// openStore выбирает хранилище записей по STORAGE_DRIVER. Возвращает функцию закрытия.
func openStore(cfg *config.Config) (storage.Store, func()) {
	if cfg.StorageDriver == config.StorageSQLite {
		checkOrCreateDir(filepath.Dir(cfg.DBPath))
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			logger.L.Fatal().Err(err).Msg("ошибка инициализации базы данных")
		}
		return db, func() {
			if err := db.Close(); err != nil {
				logger.L.Error().Err(err).Msg("ошибка закрытия базы данных")
			}
		}
	}

	checkOrCreateDir(cfg.DataPath)
	fs, err := storage.NewFileStore(cfg.DataPath)
	if err != nil {
		logger.L.Fatal().Err(err).Msg("ошибка инициализации файлового хранилища")
	}
	return fs, func() {}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Fatal().Err(err).Msg("ошибка загрузки конфигурации")
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	checkOrCreateDir(cfg.UploadPath)

	store, closeStore := openStore(cfg)
	defer closeStore()

	rdb := config.NewRedisClient(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	router, err := server.NewRouter(cfg, server.Deps{
		Store:   store,
		Redis:   rdb,
		Metrics: metrics.New(),
	})
	if err != nil {
		logger.L.Fatal().Err(err).Msg("ошибка создания маршрутизатора")
	}

	logger.L.Info().
		Str("storage", cfg.StorageDriver).
		Str("sessions", cfg.SessionStore).
		Bool("rate_limit", rdb != nil).
		Msg("приложение настроено")

	if err := server.New(cfg, router).Run(); err != nil {
		logger.L.Error().Err(err).Msg("сервер завершился с ошибкой")
		closeStore()
		os.Exit(1)
	}
}
