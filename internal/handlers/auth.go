package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"shapeshift3d/internal/logger"
	"shapeshift3d/internal/middleware"
	"shapeshift3d/internal/services"
)

// ShowLoginPage отображает форму входа.
func (h *Handler) ShowLoginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{"title": "Login"})
}

// HandleLogin проверяет email и пароль. При успехе сохраняет userID и username в сессии.
func (h *Handler) HandleLogin(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")

	user, err := h.users.Authenticate(c.Request.Context(), email, password)
	if err != nil {
		h.metrics.Login(false)
		if !errors.Is(err, services.ErrInvalidCredentials) {
			logger.L.Error().Err(err).Msg("ошибка проверки учетных данных")
		}
		h.render(c, http.StatusOK, "login.html", gin.H{"title": "Login", "email": email},
			errorFlash("Invalid email or password"))
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserID, user.ID)
	session.Set(middleware.SessionUsername, user.Username)
	session.AddFlash("Login successful!", middleware.FlashKey(middleware.FlashSuccess))
	if err := session.Save(); err != nil {
		logger.L.Error().Err(err).Str("user_id", user.ID).Msg("ошибка сохранения сессии")
		h.render(c, http.StatusInternalServerError, "login.html", gin.H{"title": "Login", "email": email},
			errorFlash("Could not start a session. Please try again."))
		return
	}

	h.metrics.Login(true)
	logger.L.Info().Str("user_id", user.ID).Str("ip", c.ClientIP()).Msg("пользователь вошел в систему")
	c.Redirect(http.StatusFound, "/dashboard")
}

// ShowRegisterPage отображает форму регистрации.
func (h *Handler) ShowRegisterPage(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", gin.H{"title": "Register"})
}

// HandleRegister создает пользователя. Все поля обязательны, email уникален.
func (h *Handler) HandleRegister(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	username := strings.TrimSpace(c.PostForm("username"))

	form := gin.H{"title": "Register", "email": email, "username_value": username}

	if email == "" || password == "" || username == "" {
		h.render(c, http.StatusBadRequest, "register.html", form, errorFlash("All fields are required"))
		return
	}

	user, err := h.users.Create(c.Request.Context(), email, password, username)
	if errors.Is(err, services.ErrEmailTaken) {
		h.render(c, http.StatusOK, "register.html", form, errorFlash("Email already exists"))
		return
	}
	if err != nil {
		logger.L.Error().Err(err).Msg("ошибка создания пользователя")
		h.render(c, http.StatusInternalServerError, "register.html", form,
			errorFlash("Registration failed. Please try again."))
		return
	}

	h.metrics.Registered()
	logger.L.Info().Str("user_id", user.ID).Msg("пользователь зарегистрирован")
	middleware.AddFlash(c, middleware.FlashSuccess, "Registration successful! Please log in.")
	c.Redirect(http.StatusFound, "/login")
}

// HandleLogout очищает сессию независимо от того, был ли вход.
func (h *Handler) HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	userID, _ := session.Get(middleware.SessionUserID).(string)
	session.Clear()
	middleware.AddFlash(c, middleware.FlashInfo, "You have been logged out")
	if userID != "" {
		logger.L.Info().Str("user_id", userID).Msg("пользователь вышел из системы")
	}
	c.Redirect(http.StatusFound, "/")
}
