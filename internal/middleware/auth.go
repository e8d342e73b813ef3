// Package middleware содержит middleware gin: проверку сессии, флеш-сообщения,
// лимит тела запроса, журнал запросов и ограничение частоты входа.
package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"shapeshift3d/internal/logger"
)

// Ключи значений в сессии.
const (
	SessionUserID   = "userID"
	SessionUsername = "username"
)

const identityKey = "identity"

// Identity - аутентифицированный пользователь текущего запроса.
type Identity struct {
	UserID   string
	Username string
}

// AuthRequired пропускает запрос только при наличии userID в сессии.
// Иначе - редирект на /login.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		raw := session.Get(SessionUserID)
		if raw == nil {
			logger.L.Debug().Str("path", c.Request.URL.Path).Str("ip", c.ClientIP()).Msg("доступ запрещен: нет сессии")
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		userID, ok := raw.(string)
		if !ok || userID == "" {
			logger.L.Warn().Str("ip", c.ClientIP()).Msgf("некорректный userID (%T) в сессии, сессия будет очищена", raw)
			session.Clear()
			if err := session.Save(); err != nil {
				logger.L.Error().Err(err).Msg("ошибка сохранения сессии при очистке")
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		username, _ := session.Get(SessionUsername).(string)
		c.Set(identityKey, Identity{UserID: userID, Username: username})
		c.Next()
	}
}

// CurrentIdentity возвращает пользователя, установленного AuthRequired.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// SessionUser читает имя пользователя из сессии без проверки доступа.
// Используется публичными страницами для навигации.
func SessionUser(c *gin.Context) (username string, loggedIn bool) {
	session := sessions.Default(c)
	userID, _ := session.Get(SessionUserID).(string)
	username, _ = session.Get(SessionUsername).(string)
	return username, userID != ""
}
