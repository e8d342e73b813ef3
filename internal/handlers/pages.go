package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shapeshift3d/internal/logger"
	"shapeshift3d/internal/middleware"
)

// ShowHomePage отображает главную страницу.
func (h *Handler) ShowHomePage(c *gin.Context) {
	h.render(c, http.StatusOK, "index.html", gin.H{"title": "Home"})
}

// ShowFeaturesPage отображает страницу возможностей.
func (h *Handler) ShowFeaturesPage(c *gin.Context) {
	h.render(c, http.StatusOK, "features.html", gin.H{"title": "Features"})
}

// ShowAboutPage отображает страницу "О проекте".
func (h *Handler) ShowAboutPage(c *gin.Context) {
	h.render(c, http.StatusOK, "about.html", gin.H{"title": "About"})
}

// ShowDemoPage отображает демонстрационную страницу.
func (h *Handler) ShowDemoPage(c *gin.Context) {
	h.render(c, http.StatusOK, "demo.html", gin.H{"title": "Demo"})
}

// ShowContactPage отображает форму обратной связи.
func (h *Handler) ShowContactPage(c *gin.Context) {
	h.render(c, http.StatusOK, "contact.html", gin.H{"title": "Contact"})
}

// HandleContact только подтверждает получение: сообщение пишется в журнал и никуда не отправляется.
func (h *Handler) HandleContact(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	email := strings.TrimSpace(c.PostForm("email"))
	message := strings.TrimSpace(c.PostForm("message"))

	if name == "" || email == "" || message == "" {
		h.render(c, http.StatusBadRequest, "contact.html",
			gin.H{"title": "Contact", "name": name, "email": email, "message": message},
			errorFlash("All fields are required"))
		return
	}

	logger.L.Info().Str("name", name).Str("email", email).Int("length", len(message)).Msg("получено сообщение с формы обратной связи")
	middleware.AddFlash(c, middleware.FlashSuccess, "Thank you for your message! We will get back to you soon.")
	c.Redirect(http.StatusFound, "/contact")
}

// Healthz - проверка живости для оркестратора и балансировщика.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
