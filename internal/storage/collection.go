package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"shapeshift3d/internal/logger"
)

// Record - типизированная запись коллекции, проверяемая на границе хранилища.
type Record interface {
	Validate() error
}

// Collection - типизированное представление коллекции поверх Store.
type Collection[T Record] struct {
	store Store
	name  string
}

// NewCollection связывает тип записи T с коллекцией name хранилища store.
func NewCollection[T Record](store Store, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

// All возвращает все записи коллекции в порядке вставки.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	raw, err := c.store.Load(ctx, c.name)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки коллекции %s: %w", c.name, err)
	}
	return c.decode(raw), nil
}

// Append добавляет запись в конец коллекции.
func (c *Collection[T]) Append(ctx context.Context, item T) error {
	return c.Update(ctx, func(items []T) ([]T, error) {
		return append(items, item), nil
	})
}

// Update выполняет чтение-изменение-запись типизированных записей.
// Каждая запись результата проходит Validate до записи.
func (c *Collection[T]) Update(ctx context.Context, fn func(items []T) ([]T, error)) error {
	err := c.store.Update(ctx, c.name, func(raw []json.RawMessage) ([]json.RawMessage, error) {
		items, err := fn(c.decode(raw))
		if err != nil {
			return nil, err
		}
		out := make([]json.RawMessage, 0, len(items))
		for i, item := range items {
			if err := item.Validate(); err != nil {
				return nil, fmt.Errorf("запись %d коллекции %s не прошла проверку: %w", i, c.name, err)
			}
			b, err := json.Marshal(item)
			if err != nil {
				return nil, fmt.Errorf("ошибка сериализации записи %d коллекции %s: %w", i, c.name, err)
			}
			out = append(out, b)
		}
		return out, nil
	})
	if err != nil {
		return fmt.Errorf("ошибка обновления коллекции %s: %w", c.name, err)
	}
	return nil
}

// decode разбирает записи. Если хотя бы одна запись не разбирается или не проходит проверку,
// коллекция считается поврежденной и читается как пустая.
func (c *Collection[T]) decode(raw []json.RawMessage) []T {
	items := make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			logger.L.Warn().Err(err).Str("collection", c.name).Int("index", i).
				Msg("Не удалось разобрать запись, коллекция считается пустой")
			return []T{}
		}
		if err := item.Validate(); err != nil {
			logger.L.Warn().Err(err).Str("collection", c.name).Int("index", i).
				Msg("Запись не прошла проверку, коллекция считается пустой")
			return []T{}
		}
		items = append(items, item)
	}
	return items
}
