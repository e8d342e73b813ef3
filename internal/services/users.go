package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shapeshift3d/internal/auth"
	"shapeshift3d/internal/logger"
	"shapeshift3d/internal/models"
	"shapeshift3d/internal/storage"
)

// UsersCollection - имя коллекции пользователей.
const UsersCollection = "users"

var (
	// ErrEmailTaken - пользователь с таким email уже существует.
	ErrEmailTaken = errors.New("email уже зарегистрирован")
	// ErrInvalidCredentials - неизвестный email или неверный пароль.
	ErrInvalidCredentials = errors.New("неверный email или пароль")
)

// UserDirectory - справочник пользователей поверх коллекции "users".
// Обновлений и удаления пользователей нет.
type UserDirectory struct {
	users      *storage.Collection[models.User]
	bcryptCost int
	now        func() time.Time
}

// NewUserDirectory создает каталог пользователей поверх коллекции "users".
// bcryptCost вне допустимого диапазона заменяется на стоимость по умолчанию.
func NewUserDirectory(store storage.Store, bcryptCost int) *UserDirectory {
	return &UserDirectory{
		users:      storage.NewCollection[models.User](store, UsersCollection),
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// FindByEmail ищет пользователя линейным проходом по коллекции.
// Возвращает nil, nil, если пользователь не найден.
func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := d.users.All(ctx)
	if err != nil {
		return nil, err
	}
	if u := findByEmail(users, email); u != nil {
		return u, nil
	}
	return nil, nil
}

// Create регистрирует пользователя. Возвращает ErrEmailTaken, если email занят.
// Проверка уникальности и запись выполняются внутри одного Update.
func (d *UserDirectory) Create(ctx context.Context, email, password, username string) (*models.User, error) {
	// Хешируем до захвата коллекции: bcrypt намеренно медленный.
	hash, err := auth.HashPassword(password, d.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Username:  username,
		Password:  hash,
		CreatedAt: d.now(),
	}

	err = d.users.Update(ctx, func(users []models.User) ([]models.User, error) {
		if findByEmail(users, email) != nil {
			return nil, ErrEmailTaken
		}
		return append(users, user), nil
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("ошибка создания пользователя %s: %w", email, err)
	}

	logger.L.Info().Str("user_id", user.ID).Str("email", email).Msg("Создан пользователь")
	return &user, nil
}

// Authenticate проверяет email и пароль. При любой неудаче возвращает ErrInvalidCredentials.
func (d *UserDirectory) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := d.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func findByEmail(users []models.User, email string) *models.User {
	for i := range users {
		if users[i].Email == email {
			u := users[i]
			return &u
		}
	}
	return nil
}
