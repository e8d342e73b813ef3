package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"shapeshift3d/internal/logger"
)

// FileStore хранит каждую коллекцию в файле <dir>/<name>.json.
// Запись атомарная: JSON → временный файл → fsync → rename.
// Мьютекс на коллекцию обеспечивает одного писателя в пределах процесса.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore создает хранилище в директории dir, создавая ее при необходимости.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("путь к директории данных не может быть пустым")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dir, err)
	}
	return &FileStore{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Path возвращает путь к файлу коллекции.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) lock(name string) func() {
	s.mu.Lock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Load читает коллекцию. Отсутствующий или поврежденный файл дает пустую коллекцию.
func (s *FileStore) Load(ctx context.Context, name string) ([]json.RawMessage, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer s.lock(name)()
	return s.read(name)
}

// Save атомарно перезаписывает файл коллекции.
func (s *FileStore) Save(ctx context.Context, name string, records []json.RawMessage) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	defer s.lock(name)()
	return s.write(name, records)
}

// Update читает, изменяет и записывает коллекцию под ее блокировкой.
// Если fn вернула ошибку, файл не меняется.
func (s *FileStore) Update(ctx context.Context, name string, fn UpdateFunc) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	defer s.lock(name)()

	records, err := s.read(name)
	if err != nil {
		return err
	}
	updated, err := fn(records)
	if err != nil {
		return err
	}
	return s.write(name, updated)
}

// read читает файл коллекции. Отсутствующий или поврежденный файл дает пустую коллекцию.
func (s *FileStore) read(name string) ([]json.RawMessage, error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения коллекции %s: %w", path, err)
	}

	records, err := DecodeRecords(data)
	if err != nil {
		logger.L.Warn().Err(err).Str("file", path).Msg("Поврежденный файл коллекции, используется пустая коллекция")
		return []json.RawMessage{}, nil
	}
	return records, nil
}

func (s *FileStore) write(name string, records []json.RawMessage) error {
	data, err := EncodeRecords(records)
	if err != nil {
		return err
	}

	path := s.Path(name)
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	return nil
}
