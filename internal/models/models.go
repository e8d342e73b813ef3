package models

import (
	"errors"
	"time"
)

// Типы моделей: загруженное изображение или рисунок с холста.
const (
	ModelTypeUpload = "upload"
	ModelTypeDraw   = "draw"
)

// StatusCompleted - единственный статус обработки. Реального преобразования 2D→3D нет,
// поэтому запись сразу считается готовой.
const StatusCompleted = "completed"

// User представляет зарегистрированного пользователя.
// Теги `json:"..."` задают формат записи в коллекции "users".
type User struct {
	ID        string    `json:"id"`         // UUID пользователя
	Email     string    `json:"email"`      // Email (уникальный, сравнивается с учетом регистра)
	Username  string    `json:"username"`   // Отображаемое имя
	Password  string    `json:"password"`   // bcrypt-хеш пароля, НИКОГДА не открытый текст
	CreatedAt time.Time `json:"created_at"` // Время регистрации
}

// Validate проверяет запись на границе хранилища.
func (u User) Validate() error {
	if u.ID == "" {
		return errors.New("у пользователя отсутствует id")
	}
	if u.Email == "" {
		return errors.New("у пользователя отсутствует email")
	}
	if u.Password == "" {
		return errors.New("у пользователя отсутствует хеш пароля")
	}
	return nil
}

// Model - запись о "3D-модели", созданной из загрузки или рисунка.
// Поля model_file и thumbnail содержат только сгенерированные имена, самих файлов нет.
type Model struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"` // Владелец; модель видна только ему
	Name             string    `json:"name"`
	Type             string    `json:"type"`          // ModelTypeUpload или ModelTypeDraw
	OriginalFile     string    `json:"original_file"` // Имя исходного файла в папке загрузок
	ModelFile        string    `json:"model_file"`
	Thumbnail        string    `json:"thumbnail"`
	CreatedAt        time.Time `json:"created_at"`
	ProcessingStatus string    `json:"processing_status"`
}

// Validate проверяет запись на границе хранилища.
func (m Model) Validate() error {
	if m.ID == "" {
		return errors.New("у модели отсутствует id")
	}
	if m.UserID == "" {
		return errors.New("у модели отсутствует user_id")
	}
	if m.Type != ModelTypeUpload && m.Type != ModelTypeDraw {
		return errors.New("неизвестный тип модели: " + m.Type)
	}
	return nil
}
