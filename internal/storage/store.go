// Package storage - хранилище именованных коллекций JSON-записей.
//
// Каждая коллекция ("users", "models") хранится целиком и целиком перезаписывается.
// Отсутствующая или поврежденная коллекция читается как пустая. Все изменения идут через
// Update, который выполняет чтение-изменение-запись под дисциплиной одного писателя,
// поэтому параллельные запросы не теряют чужие изменения.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrInvalidCollection - недопустимое имя коллекции.
	ErrInvalidCollection = errors.New("недопустимое имя коллекции")
	// ErrConflict - коллекцию изменили параллельно, и повторные попытки исчерпаны.
	ErrConflict = errors.New("конфликт параллельного изменения коллекции")
)

// UpdateFunc получает текущие записи коллекции и возвращает новое полное содержимое.
// Ошибка из UpdateFunc отменяет запись.
type UpdateFunc func(records []json.RawMessage) ([]json.RawMessage, error)

// Store - абстракция хранилища коллекций. Реализации: FileStore, MemoryStore и
// SQLite-хранилище из пакета database.
type Store interface {
	// Load возвращает все записи коллекции в порядке вставки.
	Load(ctx context.Context, name string) ([]json.RawMessage, error)
	// Save полностью перезаписывает коллекцию.
	Save(ctx context.Context, name string, records []json.RawMessage) error
	// Update атомарно (относительно других вызовов Update/Save) изменяет коллекцию.
	Update(ctx context.Context, name string, fn UpdateFunc) error
}

var collectionNameRe = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidateName проверяет имя коллекции. Имя используется как часть пути к файлу,
// поэтому разрешены только строчные латинские буквы, цифры, '_' и '-'.
func ValidateName(name string) error {
	if !collectionNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}

// DecodeRecords разбирает сериализованную коллекцию. Пустые данные дают пустую коллекцию.
func DecodeRecords(data []byte) ([]json.RawMessage, error) {
	if len(data) == 0 {
		return []json.RawMessage{}, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

// EncodeRecords сериализует коллекцию в JSON-массив с отступами.
// nil превращается в "[]", а не в "null".
func EncodeRecords(records []json.RawMessage) ([]byte, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации коллекции: %w", err)
	}
	return data, nil
}

func cloneRecords(records []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(records))
	for i, r := range records {
		out[i] = append(json.RawMessage(nil), r...)
	}
	return out
}
