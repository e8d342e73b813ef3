package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shapeshift3d/internal/logger"
	"shapeshift3d/internal/models"
)

// DefaultDrawingName - имя модели из рисунка, если пользователь его не указал.
const DefaultDrawingName = "Untitled Drawing"

// timestampLayout - префикс имени файла (аналог %Y%m%d_%H%M%S_).
const timestampLayout = "20060102_150405_"

// drawingSuffix - постоянная часть имени файла рисунка.
const drawingSuffix = "drawing.png"

// maxNameAttempts - сколько раз пробуем подобрать свободное имя файла.
const maxNameAttempts = 5

var (
	ErrNoFile          = errors.New("файл не выбран")
	ErrFileType        = errors.New("недопустимый тип файла")
	ErrNoCanvasData    = errors.New("нет данных холста")
	ErrMalformedCanvas = errors.New("некорректные данные холста")
)

// Intake принимает загруженные изображения и рисунки с холста, сохраняет их в папку
// загрузок и создает записи моделей. Содержимое файлов не проверяется: разрешенность
// определяется только по расширению.
type Intake struct {
	uploadDir string
	allowed   map[string]bool
	catalog   *ModelCatalog
	now       func() time.Time
}

// NewIntake создает обработчик загрузок. allowedExtensions - расширения без точки,
// регистр не важен.
func NewIntake(uploadDir string, allowedExtensions []string, catalog *ModelCatalog) *Intake {
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			allowed[ext] = true
		}
	}
	return &Intake{
		uploadDir: uploadDir,
		allowed:   allowed,
		catalog:   catalog,
		now:       time.Now,
	}
}

// AllowedFile проверяет расширение (часть после последней точки) без учета регистра.
func (in *Intake) AllowedFile(filename string) bool {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return false
	}
	return in.allowed[strings.ToLower(filename[i+1:])]
}

// SaveUpload сохраняет загруженный файл и создает модель типа upload.
// Возвращает id модели. При ErrNoFile и ErrFileType ничего не записывается.
func (in *Intake) SaveUpload(ctx context.Context, userID, modelName, filename string, src io.Reader) (string, error) {
	if filename == "" || src == nil {
		return "", ErrNoFile
	}
	if !in.AllowedFile(filename) {
		return "", fmt.Errorf("%w: %s", ErrFileType, filename)
	}

	stored, err := in.writeFile(SanitizeFilename(filename), src)
	if err != nil {
		return "", err
	}

	if modelName == "" {
		modelName = DefaultModelName
	}
	modelID, err := in.record(ctx, userID, modelName, models.ModelTypeUpload, stored)
	if err != nil {
		return "", err
	}

	logger.L.Info().Str("user_id", userID).Str("model_id", modelID).Str("file", stored).
		Str("original_name", filename).Msg("Файл загружен, модель создана")
	return modelID, nil
}

// SaveDrawing декодирует data URL вида "<метаданные>,<base64>" и создает модель типа draw.
// Содержимое после декодирования не проверяется.
func (in *Intake) SaveDrawing(ctx context.Context, userID, modelName, canvasData string) (string, error) {
	if canvasData == "" {
		return "", ErrNoCanvasData
	}

	_, payload, found := strings.Cut(canvasData, ",")
	if !found {
		return "", fmt.Errorf("%w: отсутствует разделитель ','", ErrMalformedCanvas)
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCanvas, err)
	}

	stored, err := in.writeFile(drawingSuffix, bytes.NewReader(decoded))
	if err != nil {
		return "", err
	}

	if modelName == "" {
		modelName = DefaultDrawingName
	}
	modelID, err := in.record(ctx, userID, modelName, models.ModelTypeDraw, stored)
	if err != nil {
		return "", err
	}

	logger.L.Info().Str("user_id", userID).Str("model_id", modelID).Str("file", stored).
		Int("bytes", len(decoded)).Msg("Рисунок сохранен, модель создана")
	return modelID, nil
}

// record создает запись модели с именами-заглушками. Если запись не удалась,
// сохраненный файл удаляется.
func (in *Intake) record(ctx context.Context, userID, name, modelType, stored string) (string, error) {
	modelFile, thumbnail := placeholderArtifacts()
	modelID, err := in.catalog.Create(ctx, userID, ModelInput{
		Name:         name,
		Type:         modelType,
		OriginalFile: stored,
		ModelFile:    modelFile,
		Thumbnail:    thumbnail,
	})
	if err != nil {
		cleanupFile(filepath.Join(in.uploadDir, stored))
		return "", err
	}
	return modelID, nil
}

// writeFile записывает src в папку загрузок под именем "<timestamp>_<base>".
// Если имя занято, перед base вставляется короткий случайный суффикс.
func (in *Intake) writeFile(base string, src io.Reader) (string, error) {
	prefix := in.now().Format(timestampLayout)
	name := prefix + base

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		fullPath := filepath.Join(in.uploadDir, name)
		f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			name = prefix + shortID() + "_" + base
			continue
		}
		if err != nil {
			return "", fmt.Errorf("не удалось создать файл на сервере (%s): %w", fullPath, err)
		}

		if _, err := io.Copy(f, src); err != nil {
			f.Close()
			cleanupFile(fullPath)
			return "", fmt.Errorf("ошибка записи файла %s: %w", fullPath, err)
		}
		if err := f.Close(); err != nil {
			cleanupFile(fullPath)
			return "", fmt.Errorf("ошибка закрытия файла %s: %w", fullPath, err)
		}
		return name, nil
	}
	return "", fmt.Errorf("не удалось подобрать свободное имя для %s", base)
}

// cleanupFile удаляет файл после ошибки обработки.
func cleanupFile(fullPath string) {
	if err := os.Remove(fullPath); err != nil {
		logger.L.Warn().Err(err).Str("file", fullPath).Msg("Не удалось удалить файл после ошибки")
		return
	}
	logger.L.Info().Str("file", fullPath).Msg("Файл удален после ошибки обработки")
}
