package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shapeshift3d/internal/models"
	"shapeshift3d/internal/storage"
)

// ModelsCollection - имя коллекции моделей.
const ModelsCollection = "models"

// DefaultModelName - имя модели, если пользователь его не указал.
const DefaultModelName = "Untitled Model"

// ModelInput - данные для новой записи модели.
type ModelInput struct {
	Name         string
	Type         string // по умолчанию models.ModelTypeUpload
	OriginalFile string
	ModelFile    string
	Thumbnail    string
}

// ModelCatalog - каталог моделей поверх коллекции "models".
type ModelCatalog struct {
	models *storage.Collection[models.Model]
	now    func() time.Time
}

// NewModelCatalog создает каталог моделей поверх коллекции "models".
func NewModelCatalog(store storage.Store) *ModelCatalog {
	return &ModelCatalog{
		models: storage.NewCollection[models.Model](store, ModelsCollection),
		now:    time.Now,
	}
}

// Create добавляет модель пользователя userID и возвращает ее id.
// Статус сразу completed: реальной обработки нет.
func (c *ModelCatalog) Create(ctx context.Context, userID string, in ModelInput) (string, error) {
	if in.Name == "" {
		in.Name = DefaultModelName
	}
	if in.Type == "" {
		in.Type = models.ModelTypeUpload
	}

	m := models.Model{
		ID:               uuid.NewString(),
		UserID:           userID,
		Name:             in.Name,
		Type:             in.Type,
		OriginalFile:     in.OriginalFile,
		ModelFile:        in.ModelFile,
		Thumbnail:        in.Thumbnail,
		CreatedAt:        c.now(),
		ProcessingStatus: models.StatusCompleted,
	}
	if err := c.models.Append(ctx, m); err != nil {
		return "", fmt.Errorf("ошибка сохранения модели для пользователя %s: %w", userID, err)
	}
	return m.ID, nil
}

// ListByUser возвращает модели пользователя в порядке добавления.
func (c *ModelCatalog) ListByUser(ctx context.Context, userID string) ([]models.Model, error) {
	all, err := c.models.All(ctx)
	if err != nil {
		return nil, err
	}
	owned := make([]models.Model, 0)
	for _, m := range all {
		if m.UserID == userID {
			owned = append(owned, m)
		}
	}
	return owned, nil
}
