package middleware

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"shapeshift3d/internal/logger"
)

// Категории флеш-сообщений.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

var flashCategories = []string{FlashSuccess, FlashError, FlashInfo}

// Флеши лежат в сессии как []interface{}, cookie-хранилище кодирует их через gob.
func init() {
	gob.Register([]interface{}{})
}

// Flash - сообщение, показываемое на следующей отрисованной странице.
type Flash struct {
	Category string
	Message  string
}

// FlashKey - ключ сессии для сообщений категории.
func FlashKey(category string) string {
	return "_flash_" + category
}

// AddFlash кладет сообщение в сессию и сохраняет ее.
func AddFlash(c *gin.Context, category, message string) {
	session := sessions.Default(c)
	session.AddFlash(message, FlashKey(category))
	if err := session.Save(); err != nil {
		logger.L.Error().Err(err).Msg("ошибка сохранения флеш-сообщения")
	}
}

// TakeFlashes забирает все накопленные сообщения. Сессия сохраняется,
// только если что-то было прочитано.
func TakeFlashes(c *gin.Context) []Flash {
	session := sessions.Default(c)
	var out []Flash
	for _, category := range flashCategories {
		for _, v := range session.Flashes(FlashKey(category)) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Category: category, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		if err := session.Save(); err != nil {
			logger.L.Error().Err(err).Msg("ошибка сохранения сессии после чтения флеш-сообщений")
		}
	}
	return out
}
