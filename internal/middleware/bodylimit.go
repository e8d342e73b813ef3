package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shapeshift3d/internal/logger"
)

const bodyLimitKey = "bodyLimit"

// BodyLimit ограничивает размер тела запроса. Запрос с заявленным Content-Length
// больше лимита отклоняется до обработчика, остальные читаются через MaxBytesReader.
func BodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(bodyLimitKey, max)
		if c.Request.ContentLength > max {
			logger.L.Warn().
				Int64("content_length", c.Request.ContentLength).
				Int64("limit", max).
				Str("path", c.Request.URL.Path).
				Msg("тело запроса превышает лимит")
			RejectTooLarge(c)
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}

// TooLargeMessage - текст флеша для лимита max байт.
func TooLargeMessage(max int64) string {
	return fmt.Sprintf("File is too large. Maximum size is %s.", FormatSize(max))
}

// FormatSize записывает размер в MB или KB, если он делится нацело, иначе в байтах.
func FormatSize(n int64) string {
	switch {
	case n > 0 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n > 0 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

// RejectTooLarge отвечает флешем и редиректом обратно на путь запроса.
// Лимит берется из контекста, куда его кладет BodyLimit.
func RejectTooLarge(c *gin.Context) {
	msg := "File is too large."
	if max, ok := c.Get(bodyLimitKey); ok {
		if n, ok := max.(int64); ok {
			msg = TooLargeMessage(n)
		}
	}
	AddFlash(c, FlashError, msg)
	c.Redirect(http.StatusFound, c.Request.URL.Path)
}

// IsTooLarge сообщает, что ошибка вызвана превышением лимита тела запроса.
func IsTooLarge(err error) bool {
	if err == nil {
		return false
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
