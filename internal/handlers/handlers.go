// Package handlers содержит обработчики HTTP-запросов: страницы, формы входа и регистрации,
// загрузку изображений и рисунков.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shapeshift3d/internal/logger"
	"shapeshift3d/internal/metrics"
	"shapeshift3d/internal/middleware"
	"shapeshift3d/internal/services"
)

// MultipartMemory - сколько данных multipart-формы держать в памяти, остальное
// уходит во временные файлы. Используется и маршрутизатором, и разбором формы рисунка.
const MultipartMemory = 10 << 20

// Handler держит зависимости обработчиков.
type Handler struct {
	users     *services.UserDirectory
	catalog   *services.ModelCatalog
	intake    *services.Intake
	metrics   *metrics.Metrics
	maxUpload int64 // лимит тела запроса, показывается на странице загрузки
}

// New создает обработчики. maxUpload - настроенный лимит тела запроса в байтах.
func New(users *services.UserDirectory, catalog *services.ModelCatalog, intake *services.Intake, m *metrics.Metrics, maxUpload int64) *Handler {
	return &Handler{
		users:     users,
		catalog:   catalog,
		intake:    intake,
		metrics:   m,
		maxUpload: maxUpload,
	}
}

// render отрисовывает страницу. В данные добавляются флеш-сообщения из сессии
// (плюс extra, показываемые сразу) и сведения о пользователе для навигации.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H, extra ...middleware.Flash) {
	if data == nil {
		data = gin.H{}
	}
	flashes := append(middleware.TakeFlashes(c), extra...)
	username, loggedIn := middleware.SessionUser(c)

	data["flashes"] = flashes
	data["loggedIn"] = loggedIn
	data["username"] = username
	c.HTML(status, name, data)
}

// identity возвращает пользователя из контекста. Вызывается только за AuthRequired.
func identity(c *gin.Context) (middleware.Identity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		logger.L.Error().Str("path", c.Request.URL.Path).Msg("обработчик вызван без AuthRequired")
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
	return id, ok
}

// errorFlash - сообщение об ошибке для немедленного показа на отрисовываемой странице.
func errorFlash(msg string) middleware.Flash {
	return middleware.Flash{Category: middleware.FlashError, Message: msg}
}
