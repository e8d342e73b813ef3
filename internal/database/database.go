package database

import (
	// Стандартные библиотеки
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// Внутренние пакеты
	"shapeshift3d/internal/logger"
	"shapeshift3d/internal/storage"

	// Драйвер SQLite. Пустой импорт регистрирует драйвер "sqlite" в database/sql.
	_ "modernc.org/sqlite"
)

// maxUpdateAttempts - число попыток Update при конфликте версий.
const maxUpdateAttempts = 3

// Store - хранилище коллекций в SQLite. Каждая коллекция - одна строка таблицы
// collections с JSON-массивом записей и счетчиком версии для оптимистичной блокировки.
type Store struct {
	db *sql.DB
}

// Проверка на этапе компиляции: Store реализует storage.Store.
var _ storage.Store = (*Store)(nil)

// Open открывает (или создает) базу SQLite по пути dataSourceName и создает таблицу.
func Open(dataSourceName string) (*Store, error) {
	// Параметры соединения:
	// - journal_mode(WAL): чтение не блокирует запись.
	// - busy_timeout(5000): ожидание снятия блокировки до 5 секунд.
	// - synchronous(NORMAL): компромисс между скоростью и надежностью.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dataSourceName)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка при открытии %s: %w", dataSourceName, err)
	}

	// Для SQLite - одно соединение: запись в один файл все равно последовательна.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка при проверке соединения с %s: %w", dataSourceName, err)
	}

	s := &Store{db: db}
	if err = s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка при создании таблиц: %w", err)
	}

	logger.L.Info().Str("path", dataSourceName).Msg("Успешно подключились к базе данных")
	return s, nil
}

// createTables создает таблицу collections, если ее еще нет.
func (s *Store) createTables() error {
	collectionsTableSQL := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT NOT NULL PRIMARY KEY,               -- Имя коллекции ("users", "models")
		records TEXT NOT NULL DEFAULT '[]',           -- JSON-массив записей
		version INTEGER NOT NULL DEFAULT 0,           -- Счетчик версии (оптимистичная блокировка)
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP -- Время последней записи
	);`

	if _, err := s.db.Exec(collectionsTableSQL); err != nil {
		return fmt.Errorf("ошибка при создании таблицы collections: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load возвращает записи коллекции. Отсутствующая строка или невалидный JSON дают
// пустую коллекцию.
func (s *Store) Load(ctx context.Context, name string) ([]json.RawMessage, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}
	records, _, err := s.read(ctx, s.db, name)
	return records, err
}

// Save перезаписывает коллекцию целиком и увеличивает версию.
func (s *Store) Save(ctx context.Context, name string, records []json.RawMessage) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}
	data, err := storage.EncodeRecords(records)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collections (name, records, version, updated_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			records = excluded.records,
			version = collections.version + 1,
			updated_at = CURRENT_TIMESTAMP`, name, string(data))
	if err != nil {
		return fmt.Errorf("ошибка сохранения коллекции %s: %w", name, err)
	}
	return nil
}

// Update читает коллекцию вместе с версией, применяет fn и записывает результат только
// если версия не изменилась. Каждая попытка идет в отдельной транзакции; при конфликте
// (коллекцию изменил другой процесс) попытка повторяется.
func (s *Store) Update(ctx context.Context, name string, fn storage.UpdateFunc) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err := s.updateOnce(ctx, name, fn)
		if !errors.Is(err, errVersionChanged) {
			return err
		}
		logger.L.Warn().Str("collection", name).Int("attempt", attempt).
			Msg("Версия коллекции изменилась параллельно, повторяем")
	}
	return fmt.Errorf("%w: %s", storage.ErrConflict, name)
}

var errVersionChanged = errors.New("версия коллекции изменилась")

func (s *Store) updateOnce(ctx context.Context, name string, fn storage.UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции Update: %w", err)
	}
	// Если Commit успешен, Rollback ничего не делает.
	defer tx.Rollback()

	// Гарантируем наличие строки, чтобы UPDATE ... WHERE version = ? было применимо.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, records, version) VALUES (?, '[]', 0)`, name); err != nil {
		return fmt.Errorf("ошибка инициализации коллекции %s: %w", name, err)
	}

	records, version, err := s.read(ctx, tx, name)
	if err != nil {
		return err
	}

	updated, err := fn(records)
	if err != nil {
		return err
	}
	data, err := storage.EncodeRecords(updated)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE collections
		SET records = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE name = ? AND version = ?`, string(data), name, version)
	if err != nil {
		return fmt.Errorf("ошибка обновления коллекции %s: %w", name, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения rowsAffected для коллекции %s: %w", name, err)
	}
	if rowsAffected != 1 {
		return errVersionChanged
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции Update: %w", err)
	}
	return nil
}

// Version возвращает текущую версию коллекции (0, если коллекции нет).
func (s *Store) Version(ctx context.Context, name string) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM collections WHERE name = ?`, name).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения версии коллекции %s: %w", name, err)
	}
	return version, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) read(ctx context.Context, q querier, name string) ([]json.RawMessage, int64, error) {
	var (
		data    string
		version int64
	)
	err := q.QueryRowContext(ctx, `SELECT records, version FROM collections WHERE name = ?`, name).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return []json.RawMessage{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения коллекции %s: %w", name, err)
	}

	records, err := storage.DecodeRecords([]byte(data))
	if err != nil {
		logger.L.Warn().Err(err).Str("collection", name).Msg("Поврежденные данные коллекции, используется пустая коллекция")
		return []json.RawMessage{}, version, nil
	}
	return records, version, nil
}
